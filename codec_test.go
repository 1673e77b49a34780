package riak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pior/riak/pbc"
)

func TestLocationString(t *testing.T) {
	require.Equal(t, "default/users/alice", Location{Bucket: "users", Key: "alice"}.String())
	require.Equal(t, "maps/users/alice", Location{BucketType: "maps", Bucket: "users", Key: "alice"}.String())
}

func TestQuorum(t *testing.T) {
	for _, s := range []string{"one", "quorum", "all", "default", "3"} {
		q, err := ParseQuorum(s)
		require.NoError(t, err)
		require.Equal(t, s, q.String())
	}

	_, err := ParseQuorum("most")
	require.Error(t, err)

	require.Nil(t, Quorum(0).wire())
	require.Equal(t, uint32(pbc.QuorumAll), *QuorumAll.wire())
}

func TestTimeoutMillis(t *testing.T) {
	require.Nil(t, timeoutMillis(0))
	require.Equal(t, uint32(1), *timeoutMillis(time.Microsecond))
	require.Equal(t, uint32(1500), *timeoutMillis(1500*time.Millisecond))
}

func TestEncodeGetReq(t *testing.T) {
	req := encodeGetReq(Location{BucketType: "maps", Bucket: "users", Key: "alice"}, GetOptions{
		PR:   QuorumMajority,
		Head: true,
	})
	require.Equal(t, "users", string(req.Bucket))
	require.Equal(t, "alice", string(req.Key))
	require.Equal(t, "maps", string(req.Type))
	require.Equal(t, uint32(pbc.QuorumQuorum), *req.PR)
	require.Nil(t, req.R)
	require.True(t, *req.Head)
	require.Nil(t, req.DeletedVClock)
}

func TestEncodePutReqNewObject(t *testing.T) {
	obj := &Object{Location: Location{Bucket: "users"}}
	req, err := encodePutReq(obj, PutOptions{ReturnBody: true})
	require.NoError(t, err)
	require.Nil(t, req.Key)
	require.NotNil(t, req.Content.Value)
	require.Empty(t, req.Content.Value)
	require.True(t, *req.ReturnBody)
	require.Nil(t, req.Type)
}

func TestEncodeSiblingSkipsServerFields(t *testing.T) {
	c := encodeSibling(&Sibling{
		Value:        []byte("v"),
		ContentType:  "text/plain",
		VTag:         "vtag",
		Deleted:      true,
		LastModified: time.Now(),
		UserMeta:     map[string]string{"owner": "alice"},
	})
	require.Nil(t, c.VTag)
	require.Nil(t, c.Deleted)
	require.Nil(t, c.LastMod)
	require.Equal(t, []*pbc.Pair{{Key: []byte("owner"), Value: []byte("alice")}}, c.UserMeta)
}

func TestDecodeSibling(t *testing.T) {
	s := decodeSibling(&pbc.Content{
		Value:        []byte("v"),
		ContentType:  []byte("application/json"),
		VTag:         []byte("abc"),
		LastMod:      ptr(uint32(1700000000)),
		LastModUsecs: ptr(uint32(250)),
		Links:        []*pbc.Link{{Bucket: []byte("users"), Key: []byte("bob"), Tag: []byte("friend")}},
		UserMeta:     []*pbc.Pair{{Key: []byte("owner"), Value: []byte("alice")}},
		Indexes:      []*pbc.Pair{{Key: []byte("age_int"), Value: []byte("42")}},
		Deleted:      ptr(true),
	})
	require.Equal(t, "application/json", s.ContentType)
	require.Equal(t, "abc", s.VTag)
	require.Equal(t, time.Unix(1700000000, 250000), s.LastModified)
	require.Equal(t, []Link{{Bucket: "users", Key: "bob", Tag: "friend"}}, s.Links)
	require.Equal(t, map[string]string{"owner": "alice"}, s.UserMeta)
	require.Equal(t, []IndexEntry{{Field: "age_int", Value: "42"}}, s.Indexes)
	require.True(t, s.Deleted)
}

func TestApplyPutResp(t *testing.T) {
	obj := &Object{VClock: []byte("old"), Siblings: []*Sibling{{Value: []byte("mine")}}}

	applyPutResp(obj, &pbc.PutResp{})
	require.Equal(t, []byte("old"), obj.VClock)
	require.Len(t, obj.Siblings, 1)

	applyPutResp(obj, &pbc.PutResp{
		Key:     []byte("k"),
		VClock:  []byte("new"),
		Content: []*pbc.Content{{Value: []byte("a")}, {Value: []byte("b")}},
	})
	require.Equal(t, "k", obj.Key)
	require.Equal(t, []byte("new"), obj.VClock)
	require.Len(t, obj.Siblings, 2)
}

func TestBucketPropsHooks(t *testing.T) {
	props := encodeBucketProps(&BucketProps{
		Precommit: []Hook{{ModFun: &ModFun{Module: "validate", Function: "check"}}, {Name: "js_hook"}},
	})
	require.True(t, *props.HasPrecommit)
	require.Len(t, props.Precommit, 2)
	require.Nil(t, props.Postcommit)
	require.Nil(t, props.HasPostcommit)

	decoded := decodeBucketProps(props)
	require.Equal(t, []Hook{{ModFun: &ModFun{Module: "validate", Function: "check"}}, {Name: "js_hook"}}, decoded.Precommit)
	require.Nil(t, decoded.Postcommit)

	cleared := decodeBucketProps(&pbc.BucketProps{HasPostcommit: ptr(false)})
	require.Nil(t, cleared.Postcommit)
	require.NotNil(t, decodeBucketProps(nil))
}

func TestEncodeDtUpdateReq(t *testing.T) {
	loc := Location{BucketType: "maps", Bucket: "users", Key: "alice"}

	_, err := encodeDtUpdateReq(Location{Bucket: "users", Key: "alice"}, DatatypeOp{Counter: &CounterOp{Increment: 1}}, UpdateDatatypeOptions{})
	require.ErrorIs(t, err, ErrDefaultBucketType)

	_, err = encodeDtUpdateReq(loc, DatatypeOp{}, UpdateDatatypeOptions{})
	require.ErrorIs(t, err, ErrNoOperation)

	removal := DatatypeOp{Map: &MapOp{Updates: []MapUpdate{
		{Key: MapKey{"admin", pbc.MapFieldFlag}, Flag: pbc.FlagDisable},
	}}}
	_, err = encodeDtUpdateReq(loc, removal, UpdateDatatypeOptions{})
	require.ErrorIs(t, err, ErrContextRequired)

	req, err := encodeDtUpdateReq(loc, removal, UpdateDatatypeOptions{Context: []byte("ctx"), W: QuorumOne})
	require.NoError(t, err)
	require.Equal(t, []byte("ctx"), req.Context)
	require.Equal(t, uint32(pbc.QuorumOne), *req.W)
	require.Equal(t, pbc.FlagDisable, *req.Op.MapOp.Updates[0].FlagOp)
	require.Nil(t, req.ReturnBody)
}

func TestNestedMapRemovalNeedsContext(t *testing.T) {
	op := DatatypeOp{Map: &MapOp{Updates: []MapUpdate{
		{Key: MapKey{"address", pbc.MapFieldMap}, Map: &MapOp{Removes: []MapKey{{"city", pbc.MapFieldRegister}}}},
	}}}
	require.True(t, op.needsContext())

	op = DatatypeOp{Set: &SetOp{Adds: []string{"go"}}}
	require.False(t, op.needsContext())
}

func TestEncodeDtFetchReq(t *testing.T) {
	_, err := encodeDtFetchReq(Location{BucketType: "maps", Bucket: "users"}, FetchDatatypeOptions{})
	require.ErrorIs(t, err, ErrKeyRequired)

	req, err := encodeDtFetchReq(Location{BucketType: "maps", Bucket: "users", Key: "alice"}, FetchDatatypeOptions{NoContext: true})
	require.NoError(t, err)
	require.False(t, *req.IncludeContext)
}

func TestDecodeDtFetchResp(t *testing.T) {
	v := decodeDtFetchResp(&pbc.DtFetchResp{
		Type:    pbc.DataTypeMap,
		Context: []byte("ctx"),
		Value: &pbc.DtValue{MapValue: []*pbc.MapEntry{
			{Field: &pbc.MapField{Name: []byte("visits"), Type: pbc.MapFieldCounter}, CounterValue: ptr(int64(3))},
			{Field: &pbc.MapField{Name: []byte("tags"), Type: pbc.MapFieldSet}, SetValue: [][]byte{[]byte("b"), []byte("a")}},
			{Field: &pbc.MapField{Name: []byte("admin"), Type: pbc.MapFieldFlag}, FlagValue: ptr(true)},
		}},
	})
	require.Equal(t, []byte("ctx"), v.Context)
	require.Equal(t, int64(3), v.Map.Counters["visits"])
	require.Equal(t, []string{"a", "b"}, v.Map.Sets["tags"])
	require.True(t, v.Map.Flags["admin"])

	empty := decodeDtFetchResp(&pbc.DtFetchResp{Type: pbc.DataTypeMap})
	require.NotNil(t, empty.Map)
	require.Empty(t, empty.Map.Registers)
}
