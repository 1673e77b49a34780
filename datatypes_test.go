package riak

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pior/riak/internal/testutils"
	"github.com/pior/riak/pbc"
)

func TestCounterUpdate(t *testing.T) {
	server := testutils.NewFakeServer(t)
	updates := make(chan *pbc.DtUpdateReq, 1)
	server.Handle(pbc.CodeDtUpdateReq, func(msg pbc.Message) testutils.Reply {
		updates <- msg.(*pbc.DtUpdateReq)
		return testutils.Respond(pbc.CodeDtUpdateResp, &pbc.DtUpdateResp{
			Context:      []byte("ctx1"),
			CounterValue: ptr(int64(7)),
		})
	})
	client := newTestClient(t, Config{}, server)

	counter := client.BucketType("counters").Bucket("visits").Counter("home")
	counter.Increment(10)
	counter.Decrement(3)
	require.True(t, counter.Modified())

	require.NoError(t, counter.Update(context.Background(), UpdateDatatypeOptions{}))
	require.Equal(t, int64(7), counter.Value())
	require.False(t, counter.Modified())
	require.Equal(t, []byte("ctx1"), counter.Context())

	req := <-updates
	require.Equal(t, "counters", string(req.Type))
	require.Equal(t, "visits", string(req.Bucket))
	require.Equal(t, "home", string(req.Key))
	require.Equal(t, int64(7), *req.Op.CounterOp.Increment)
	require.True(t, *req.ReturnBody)
	require.Equal(t, uint64(1), client.Stats().DatatypeUpdates)
}

func TestCounterReload(t *testing.T) {
	server := testutils.NewFakeServer(t)
	server.Handle(pbc.CodeDtFetchReq, func(pbc.Message) testutils.Reply {
		return testutils.Respond(pbc.CodeDtFetchResp, &pbc.DtFetchResp{
			Type:  pbc.DataTypeCounter,
			Value: &pbc.DtValue{CounterValue: ptr(int64(42))},
		})
	})
	client := newTestClient(t, Config{}, server)

	counter := client.BucketType("counters").Bucket("visits").Counter("home")
	counter.Increment(1)
	require.NoError(t, counter.Reload(context.Background(), FetchDatatypeOptions{}))
	require.Equal(t, int64(42), counter.Value())
	require.False(t, counter.Modified())
}

func TestReloadRejectsOtherDatatype(t *testing.T) {
	server := testutils.NewFakeServer(t)
	server.Handle(pbc.CodeDtFetchReq, func(pbc.Message) testutils.Reply {
		return testutils.Respond(pbc.CodeDtFetchResp, &pbc.DtFetchResp{Type: pbc.DataTypeSet})
	})
	client := newTestClient(t, Config{}, server)

	counter := client.BucketType("sets").Bucket("tags").Counter("home")
	require.Error(t, counter.Reload(context.Background(), FetchDatatypeOptions{}))
}

func TestDatatypeInDefaultBucketType(t *testing.T) {
	server := testutils.NewFakeServer(t)
	client := newTestClient(t, Config{}, server)

	counter := client.Bucket("visits").Counter("home")
	counter.Increment(1)
	require.ErrorIs(t, counter.Update(context.Background(), UpdateDatatypeOptions{}), ErrDefaultBucketType)
	require.ErrorIs(t, counter.Reload(context.Background(), FetchDatatypeOptions{}), ErrDefaultBucketType)
	require.Equal(t, 0, server.Requests())
}

func TestUpdateWithoutOperation(t *testing.T) {
	server := testutils.NewFakeServer(t)
	client := newTestClient(t, Config{}, server)

	set := client.BucketType("sets").Bucket("tags").Set("post-1")
	require.ErrorIs(t, set.Update(context.Background(), UpdateDatatypeOptions{}), ErrNoOperation)
	require.Equal(t, 0, server.Requests())
}

func TestSetDiscardRequiresContext(t *testing.T) {
	server := testutils.NewFakeServer(t)
	client := newTestClient(t, Config{}, server)

	set := client.BucketType("sets").Bucket("tags").Set("post-1")
	require.ErrorIs(t, set.Discard("go"), ErrContextRequired)
	require.False(t, set.Modified())
	require.Equal(t, 0, server.Requests())
}

func TestSetUpdate(t *testing.T) {
	server := testutils.NewFakeServer(t)
	server.Handle(pbc.CodeDtFetchReq, func(pbc.Message) testutils.Reply {
		return testutils.Respond(pbc.CodeDtFetchResp, &pbc.DtFetchResp{
			Type:    pbc.DataTypeSet,
			Context: []byte("ctx1"),
			Value:   &pbc.DtValue{SetValue: [][]byte{[]byte("rust"), []byte("go")}},
		})
	})
	updates := make(chan *pbc.DtUpdateReq, 1)
	server.Handle(pbc.CodeDtUpdateReq, func(msg pbc.Message) testutils.Reply {
		updates <- msg.(*pbc.DtUpdateReq)
		return testutils.Respond(pbc.CodeDtUpdateResp, &pbc.DtUpdateResp{
			Context:  []byte("ctx2"),
			SetValue: [][]byte{[]byte("zig"), []byte("go")},
		})
	})
	client := newTestClient(t, Config{}, server)
	ctx := context.Background()

	set := client.BucketType("sets").Bucket("tags").Set("post-1")
	require.NoError(t, set.Reload(ctx, FetchDatatypeOptions{}))
	require.Equal(t, []string{"go", "rust"}, set.Value())
	require.True(t, set.Contains("rust"))

	set.Add("zig")
	require.NoError(t, set.Discard("rust"))
	require.NoError(t, set.Update(ctx, UpdateDatatypeOptions{}))
	require.Equal(t, []string{"go", "zig"}, set.Value())
	require.False(t, set.Contains("rust"))
	require.Equal(t, []byte("ctx2"), set.Context())

	req := <-updates
	require.Equal(t, []byte("ctx1"), req.Context)
	require.Equal(t, [][]byte{[]byte("zig")}, req.Op.SetOp.Adds)
	require.Equal(t, [][]byte{[]byte("rust")}, req.Op.SetOp.Removes)
}

func TestSetAddCancelsDiscard(t *testing.T) {
	set := &Set{datatype: datatype{context: []byte("ctx")}}
	require.NoError(t, set.Discard("go"))
	set.Add("go")
	set.Add("go")

	op := set.op()
	require.Equal(t, []string{"go"}, op.Adds)
	require.Empty(t, op.Removes)
}

func TestMapOpCollectsFieldsInOrder(t *testing.T) {
	m := newMap(datatype{}, nil)
	m.Register("name").Assign("alice")
	m.Counter("visits").Increment(2)
	m.Flag("admin").Enable()
	m.Set("tags").Add("go")
	m.Map("address").Register("city").Assign("Montreal")
	m.Counter("untouched")

	require.True(t, m.Modified())
	op := m.op()
	require.Empty(t, op.Removes)
	require.Equal(t, []MapUpdate{
		{Key: MapKey{"visits", pbc.MapFieldCounter}, Counter: &CounterOp{Increment: 2}},
		{Key: MapKey{"tags", pbc.MapFieldSet}, Set: &SetOp{Adds: []string{"go"}}},
		{Key: MapKey{"name", pbc.MapFieldRegister}, Register: ptr("alice")},
		{Key: MapKey{"admin", pbc.MapFieldFlag}, Flag: pbc.FlagEnable},
		{Key: MapKey{"address", pbc.MapFieldMap}, Map: &MapOp{
			Updates: []MapUpdate{{Key: MapKey{"city", pbc.MapFieldRegister}, Register: ptr("Montreal")}},
		}},
	}, op.Updates)
}

func TestMapRemovalsRequireRootContext(t *testing.T) {
	m := newMap(datatype{}, nil)
	require.ErrorIs(t, m.Remove(MapKey{"name", pbc.MapFieldRegister}), ErrContextRequired)
	require.ErrorIs(t, m.Map("address").Remove(MapKey{"city", pbc.MapFieldRegister}), ErrContextRequired)
	require.ErrorIs(t, m.Flag("admin").Disable(), ErrContextRequired)
	require.ErrorIs(t, m.Map("address").Set("tags").Discard("go"), ErrContextRequired)
	require.False(t, m.Modified())

	m.context = []byte("ctx")
	require.NoError(t, m.Map("address").Set("tags").Discard("go"))
	require.NoError(t, m.Remove(MapKey{"name", pbc.MapFieldRegister}))
	require.Equal(t, []byte("ctx"), m.Map("address").Context())
	require.True(t, m.Modified())
}

func TestMapRemoveDropsStagedField(t *testing.T) {
	m := newMap(datatype{context: []byte("ctx")}, nil)
	m.Counter("visits").Increment(1)
	require.NoError(t, m.Remove(MapKey{"visits", pbc.MapFieldCounter}))

	op := m.op()
	require.Equal(t, []MapKey{{"visits", pbc.MapFieldCounter}}, op.Removes)
	require.Empty(t, op.Updates)
}

func TestMapNestedUpdateGoesThroughRoot(t *testing.T) {
	server := testutils.NewFakeServer(t)
	server.Handle(pbc.CodeDtFetchReq, func(pbc.Message) testutils.Reply {
		return testutils.Respond(pbc.CodeDtFetchResp, &pbc.DtFetchResp{
			Type:    pbc.DataTypeMap,
			Context: []byte("ctx1"),
			Value: &pbc.DtValue{MapValue: []*pbc.MapEntry{
				{Field: &pbc.MapField{Name: []byte("name"), Type: pbc.MapFieldRegister}, RegisterValue: []byte("alice")},
				{Field: &pbc.MapField{Name: []byte("address"), Type: pbc.MapFieldMap}, MapValue: []*pbc.MapEntry{
					{Field: &pbc.MapField{Name: []byte("city"), Type: pbc.MapFieldRegister}, RegisterValue: []byte("Paris")},
				}},
			}},
		})
	})
	updates := make(chan *pbc.DtUpdateReq, 1)
	server.Handle(pbc.CodeDtUpdateReq, func(msg pbc.Message) testutils.Reply {
		updates <- msg.(*pbc.DtUpdateReq)
		return testutils.Respond(pbc.CodeDtUpdateResp, &pbc.DtUpdateResp{
			Context: []byte("ctx2"),
			MapValue: []*pbc.MapEntry{
				{Field: &pbc.MapField{Name: []byte("name"), Type: pbc.MapFieldRegister}, RegisterValue: []byte("alice")},
				{Field: &pbc.MapField{Name: []byte("address"), Type: pbc.MapFieldMap}, MapValue: []*pbc.MapEntry{
					{Field: &pbc.MapField{Name: []byte("city"), Type: pbc.MapFieldRegister}, RegisterValue: []byte("Montreal")},
				}},
			},
		})
	})
	client := newTestClient(t, Config{}, server)
	ctx := context.Background()

	user := client.BucketType("maps").Bucket("users").Map("alice")
	require.NoError(t, user.Reload(ctx, FetchDatatypeOptions{}))
	require.Equal(t, "alice", user.Register("name").Value())

	address := user.Map("address")
	require.Equal(t, "Paris", address.Register("city").Value())
	require.Equal(t, "alice", address.Key())

	address.Register("city").Assign("Montreal")
	require.NoError(t, address.Update(ctx, UpdateDatatypeOptions{}))
	require.False(t, user.Modified())
	require.Equal(t, []byte("ctx2"), user.Context())
	require.Equal(t, "Montreal", user.Map("address").Register("city").Value())

	req := <-updates
	require.Equal(t, "alice", string(req.Key))
	require.Equal(t, []byte("ctx1"), req.Context)
	require.Len(t, req.Op.MapOp.Updates, 1)
	upd := req.Op.MapOp.Updates[0]
	require.Equal(t, "address", string(upd.Field.Name))
	require.Equal(t, pbc.MapFieldMap, upd.Field.Type)
	require.Equal(t, "Montreal", string(upd.MapOp.Updates[0].RegisterOp))
}

func TestMapUpdateAdoptsGeneratedKey(t *testing.T) {
	server := testutils.NewFakeServer(t)
	server.Handle(pbc.CodeDtUpdateReq, func(pbc.Message) testutils.Reply {
		return testutils.Respond(pbc.CodeDtUpdateResp, &pbc.DtUpdateResp{Key: []byte("k123"), Context: []byte("ctx")})
	})
	client := newTestClient(t, Config{}, server)

	m := client.BucketType("maps").Bucket("users").Map("")
	m.Flag("active").Enable()
	require.NoError(t, m.Update(context.Background(), UpdateDatatypeOptions{}))
	require.Equal(t, "k123", m.Key())
	require.False(t, m.Flag("active").Value())
}

func TestDatatypeDelete(t *testing.T) {
	server := testutils.NewFakeServer(t)
	server.Handle(pbc.CodeDelReq, func(pbc.Message) testutils.Reply {
		return testutils.Respond(pbc.CodeDelResp, nil)
	})
	client := newTestClient(t, Config{}, server)

	m := newMap(datatype{bucket: client.BucketType("maps").Bucket("users"), key: "alice", context: []byte("ctx")},
		&MapValue{Registers: map[string]string{"name": "alice"}})
	require.NoError(t, m.Delete(context.Background()))
	require.Nil(t, m.Context())
	require.Equal(t, "", m.Register("name").Value())
}
