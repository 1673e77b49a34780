package riak

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pior/riak/internal/testutils"
	"github.com/pior/riak/pbc"
)

func decodeJob(t *testing.T, m *MapReduce) map[string]any {
	t.Helper()
	b, err := m.Encode()
	require.NoError(t, err)
	var job map[string]any
	require.NoError(t, json.Unmarshal(b, &job))
	return job
}

func TestMapReduceEncodeBucket(t *testing.T) {
	job := decodeJob(t, NewMapReduce().
		AddBucket("", "logs").
		Map(NamedJavaScript("Riak.mapValuesJson"), nil, false).
		Reduce(Erlang("riak_kv_mapreduce", "reduce_sum"), nil, false).
		Timeout(5*time.Second))

	require.Equal(t, "logs", job["inputs"])
	require.Equal(t, float64(5000), job["timeout"])
	require.Equal(t, []any{
		map[string]any{"map": map[string]any{"language": "javascript", "name": "Riak.mapValuesJson", "keep": false}},
		map[string]any{"reduce": map[string]any{"language": "erlang", "module": "riak_kv_mapreduce", "function": "reduce_sum", "keep": true}},
	}, job["query"])
}

func TestMapReduceEncodeTypedBucket(t *testing.T) {
	job := decodeJob(t, NewMapReduce().AddBucket("logs_type", "logs").Map(JavaScript("function(v){return [1];}"), nil, true))
	require.Equal(t, []any{"logs_type", "logs"}, job["inputs"])
}

func TestMapReduceEncodeObjects(t *testing.T) {
	job := decodeJob(t, NewMapReduce().
		AddObject(Location{Bucket: "users", Key: "alice"}).
		AddObjectData(Location{BucketType: "maps", Bucket: "users", Key: "bob"}, "extra").
		Link("", "friend", false).
		Map(NamedJavaScript("Riak.mapValues"), map[string]any{"limit": 10}, false))

	require.Equal(t, []any{
		[]any{"users", "alice", ""},
		[]any{"users", "bob", "extra", "maps"},
	}, job["inputs"])

	query := job["query"].([]any)
	require.Equal(t, map[string]any{"link": map[string]any{"bucket": "_", "tag": "friend", "keep": false}}, query[0])
	mapPhase := query[1].(map[string]any)["map"].(map[string]any)
	require.Equal(t, map[string]any{"limit": float64(10)}, mapPhase["arg"])
	require.Equal(t, true, mapPhase["keep"])
}

func TestMapReduceEncodeIndex(t *testing.T) {
	job := decodeJob(t, NewMapReduce().
		AddIndex(IndexQuery{BucketType: "people", Bucket: "users", Index: "age_int", Range: true, Min: "18", Max: "30"}).
		Map(NamedJavaScript("Riak.mapValues"), nil, true))

	require.Equal(t, map[string]any{
		"bucket": []any{"people", "users"},
		"index":  "age_int",
		"start":  "18",
		"end":    "30",
	}, job["inputs"])
}

func TestMapReduceEncodeErrors(t *testing.T) {
	_, err := NewMapReduce().Map(NamedJavaScript("Riak.mapValues"), nil, true).Encode()
	require.Error(t, err)

	_, err = NewMapReduce().AddBucket("", "logs").AddObject(Location{Bucket: "users", Key: "alice"}).Encode()
	require.ErrorIs(t, err, errMixedInputs)

	_, err = NewMapReduce().AddBucket("", "logs").Run(context.Background())
	require.Error(t, err)
}

func TestMergeMapRedResp(t *testing.T) {
	result := MapReduceResult{}
	require.NoError(t, mergeMapRedResp(result, &pbc.MapRedResp{Phase: ptr(uint32(1)), Response: []byte(`[1, 2]`)}))
	require.NoError(t, mergeMapRedResp(result, &pbc.MapRedResp{Phase: ptr(uint32(0)), Response: []byte(`{"a": 1}`)}))
	require.NoError(t, mergeMapRedResp(result, &pbc.MapRedResp{Phase: ptr(uint32(1)), Response: []byte(`[3]`)}))
	require.NoError(t, mergeMapRedResp(result, &pbc.MapRedResp{Done: ptr(true)}))
	require.Error(t, mergeMapRedResp(result, &pbc.MapRedResp{Phase: ptr(uint32(1)), Response: []byte(`[oops`)}))

	require.Equal(t, []uint32{0, 1}, result.Phases())
	require.Len(t, result.All(), 4)

	var sums []int
	require.NoError(t, result.Decode(1, &sums))
	require.Equal(t, []int{1, 2, 3}, sums)

	var none []int
	require.NoError(t, result.Decode(7, &none))
	require.Empty(t, none)
}

func TestClientMapReduce(t *testing.T) {
	server := testutils.NewFakeServer(t)
	jobs := make(chan *pbc.MapRedReq, 1)
	server.Handle(pbc.CodeMapRedReq, func(msg pbc.Message) testutils.Reply {
		jobs <- msg.(*pbc.MapRedReq)
		return testutils.Reply{Frames: []testutils.Frame{
			{Code: pbc.CodeMapRedResp, Msg: &pbc.MapRedResp{Phase: ptr(uint32(0)), Response: []byte(`[10, 20]`)}},
			{Code: pbc.CodeMapRedResp, Msg: &pbc.MapRedResp{Phase: ptr(uint32(0)), Response: []byte(`[30]`)}},
			{Code: pbc.CodeMapRedResp, Msg: &pbc.MapRedResp{Done: ptr(true)}},
		}}
	})
	client := newTestClient(t, Config{MaxSize: 1}, server)
	ctx := context.Background()

	result, err := client.MapReduce().
		AddBucket("", "logs").
		Map(NamedJavaScript("Riak.mapValuesJson"), nil, true).
		Run(ctx)
	require.NoError(t, err)

	var values []int
	require.NoError(t, result.Decode(0, &values))
	require.Equal(t, []int{10, 20, 30}, values)

	job := <-jobs
	require.Equal(t, ContentTypeMapReduce, string(job.ContentType))
	require.JSONEq(t, `{"inputs":"logs","query":[{"map":{"language":"javascript","name":"Riak.mapValuesJson","keep":true}}]}`, string(job.Request))

	var parts int
	err = client.MapReduce().
		AddBucket("", "logs").
		Map(NamedJavaScript("Riak.mapValuesJson"), nil, true).
		Stream(ctx, func(phase uint32, data json.RawMessage) error {
			parts++
			return nil
		})
	require.NoError(t, err)
	require.Equal(t, 2, parts)
	require.Equal(t, 1, server.Accepted())
}
