package riak

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pior/riak/pbc"
)

// newIntegrationClient connects to the nodes listed in RIAK_NODES, such as
// "127.0.0.1:8087". Tests using it are skipped when it is not set.
//
// Datatype tests expect the bucket types created by:
//
//	riak-admin bucket-type create counters '{"props":{"datatype":"counter"}}'
//	riak-admin bucket-type create sets '{"props":{"datatype":"set"}}'
//	riak-admin bucket-type create maps '{"props":{"datatype":"map"}}'
func newIntegrationClient(t *testing.T) *Client {
	t.Helper()
	nodes := os.Getenv("RIAK_NODES")
	if nodes == "" {
		t.Skip("RIAK_NODES is not set")
	}

	client, err := NewClient(NewStaticNodes(strings.Split(nodes, ",")...), Config{MaxSize: 4})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx), "Ensure Riak is running")
	return client
}

// uniqueKey generates a unique key for testing to avoid collisions.
func uniqueKey(prefix string) string {
	return fmt.Sprintf("%s_%d_%d", prefix, os.Getpid(), time.Now().UnixNano())
}

func TestIntegrationStoreGetDelete(t *testing.T) {
	client := newIntegrationClient(t)
	ctx := t.Context()
	bucket := client.Bucket("riak_go_test")
	key := uniqueKey("object")

	obj := bucket.NewObject(key)
	require.NoError(t, obj.SetContentType(ContentTypeText))
	require.NoError(t, obj.SetValue([]byte("hello integration world")))
	obj.Siblings[0].AddIndex("test_bin", key)
	require.NoError(t, obj.Store(ctx, PutOptions{ReturnBody: true}))
	require.NotEmpty(t, obj.VClock)

	fetched, err := bucket.Get(ctx, key, GetOptions{})
	require.NoError(t, err)
	require.True(t, fetched.Exists())
	value, err := fetched.Value()
	require.NoError(t, err)
	require.Equal(t, "hello integration world", string(value))

	page, err := bucket.Index(ctx, IndexQuery{Index: "test_bin", Match: key})
	require.NoError(t, err)
	require.Equal(t, []string{key}, page.Keys)

	require.NoError(t, fetched.Delete(ctx, DeleteOptions{}))
	gone, err := bucket.Get(ctx, key, GetOptions{})
	require.NoError(t, err)
	require.False(t, gone.Exists())
}

func TestIntegrationGeneratedKey(t *testing.T) {
	client := newIntegrationClient(t)
	obj := client.Bucket("riak_go_test").NewObject("")
	require.NoError(t, obj.Encode(map[string]string{"k": "v"}))
	require.NoError(t, obj.Store(t.Context(), PutOptions{}))
	require.NotEmpty(t, obj.Key)
	require.NoError(t, obj.Delete(t.Context(), DeleteOptions{}))
}

func TestIntegrationCompressedValue(t *testing.T) {
	client := newIntegrationClient(t)
	ctx := t.Context()
	bucket := client.Bucket("riak_go_test")
	key := uniqueKey("zstd")

	obj := bucket.NewObject(key)
	s, err := obj.Content()
	require.NoError(t, err)
	s.ContentEncoding = ContentEncodingZstd
	require.NoError(t, obj.SetValue([]byte(strings.Repeat("compress me ", 100))))
	require.NoError(t, obj.Store(ctx, PutOptions{}))

	fetched, err := bucket.Get(ctx, key, GetOptions{})
	require.NoError(t, err)
	value, err := fetched.Value()
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("compress me ", 100), string(value))
}

func TestIntegrationServerInfo(t *testing.T) {
	client := newIntegrationClient(t)
	info, err := client.ServerInfo(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, info.Node)
	require.NotEmpty(t, info.Version)
}

func TestIntegrationCounter(t *testing.T) {
	client := newIntegrationClient(t)
	ctx := t.Context()
	counter := client.BucketType("counters").Bucket("riak_go_test").Counter(uniqueKey("counter"))

	counter.Increment(5)
	require.NoError(t, counter.Update(ctx, UpdateDatatypeOptions{}))
	counter.Decrement(2)
	require.NoError(t, counter.Update(ctx, UpdateDatatypeOptions{}))
	require.Equal(t, int64(3), counter.Value())

	require.NoError(t, counter.Reload(ctx, FetchDatatypeOptions{}))
	require.Equal(t, int64(3), counter.Value())
}

func TestIntegrationSet(t *testing.T) {
	client := newIntegrationClient(t)
	ctx := t.Context()
	set := client.BucketType("sets").Bucket("riak_go_test").Set(uniqueKey("set"))

	require.ErrorIs(t, set.Discard("a"), ErrContextRequired)
	set.Add("a")
	set.Add("b")
	require.NoError(t, set.Update(ctx, UpdateDatatypeOptions{}))
	require.Equal(t, []string{"a", "b"}, set.Value())

	require.NoError(t, set.Discard("a"))
	require.NoError(t, set.Update(ctx, UpdateDatatypeOptions{}))
	require.Equal(t, []string{"b"}, set.Value())
}

func TestIntegrationMap(t *testing.T) {
	client := newIntegrationClient(t)
	ctx := t.Context()
	m := client.BucketType("maps").Bucket("riak_go_test").Map(uniqueKey("map"))

	m.Register("name").Assign("alice")
	m.Flag("active").Enable()
	m.Map("address").Register("city").Assign("Montreal")
	require.NoError(t, m.Update(ctx, UpdateDatatypeOptions{}))

	require.NoError(t, m.Reload(ctx, FetchDatatypeOptions{}))
	require.Equal(t, "alice", m.Register("name").Value())
	require.True(t, m.Flag("active").Value())
	require.Equal(t, "Montreal", m.Map("address").Register("city").Value())

	require.NoError(t, m.Remove(MapKey{Name: "name", Type: pbc.MapFieldRegister}))
	require.NoError(t, m.Update(ctx, UpdateDatatypeOptions{}))
	_, present := m.Value().Registers["name"]
	require.False(t, present)
}

func TestIntegrationMapReduce(t *testing.T) {
	client := newIntegrationClient(t)
	ctx := t.Context()
	bucket := client.Bucket(uniqueKey("mr"))

	for i := range 3 {
		obj := bucket.NewObject(fmt.Sprintf("k%d", i))
		require.NoError(t, obj.Encode(i+1))
		require.NoError(t, obj.Store(ctx, PutOptions{}))
	}

	result, err := client.MapReduce().
		AddBucket("", bucket.Name()).
		Map(NamedJavaScript("Riak.mapValuesJson"), nil, false).
		Reduce(NamedJavaScript("Riak.reduceSum"), nil, true).
		Run(ctx)
	require.NoError(t, err)

	var sum []int
	require.NoError(t, result.Decode(1, &sum))
	require.Equal(t, []int{6}, sum)
}
