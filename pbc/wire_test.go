package pbc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
)

func TestMarshalKnownEncodings(t *testing.T) {
	tests := []struct {
		name     string
		msg      Message
		expected []byte
	}{
		{
			name:     "get request",
			msg:      &GetReq{Bucket: []byte("b"), Key: []byte("k")},
			expected: []byte{0x0a, 0x01, 'b', 0x12, 0x01, 'k'},
		},
		{
			name:     "get request with r and type",
			msg:      &GetReq{Bucket: []byte("b"), Key: []byte("k"), R: proto.Uint32(2), Type: []byte("t")},
			expected: []byte{0x0a, 0x01, 'b', 0x12, 0x01, 'k', 0x18, 0x02, 0x6a, 0x01, 't'},
		},
		{
			name:     "counter decrement is zigzag encoded",
			msg:      &CounterOp{Increment: proto.Int64(-1)},
			expected: []byte{0x08, 0x01},
		},
		{
			name:     "empty message",
			msg:      &ListBucketsReq{},
			expected: []byte{},
		},
		{
			name:     "required error fields are always written",
			msg:      &ErrorResp{},
			expected: []byte{0x0a, 0x00, 0x10, 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.msg.Marshal()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRoundTripNestedMessages(t *testing.T) {
	repl := ReplRealtime
	flag := FlagEnable

	tests := []struct {
		name string
		msg  Message
		out  Message
	}{
		{
			name: "bucket properties with hooks",
			msg: &SetBucketReq{
				Bucket: []byte("users"),
				Type:   []byte("maps"),
				Props: &BucketProps{
					NVal:      proto.Uint32(3),
					AllowMult: proto.Bool(true),
					R:         proto.Uint32(QuorumQuorum),
					Precommit: []*CommitHook{
						{ModFun: &ModFun{Module: []byte("validate"), Function: []byte("check")}},
						{Name: []byte("js_hook")},
					},
					ChashKeyfun: &ModFun{Module: []byte("riak_core_util"), Function: []byte("chash_std_keyfun")},
					Repl:        &repl,
					Datatype:    []byte("map"),
				},
			},
			out: &SetBucketReq{},
		},
		{
			name: "map update",
			msg: &DtUpdateReq{
				Bucket:  []byte("profiles"),
				Key:     []byte("alice"),
				Type:    []byte("maps"),
				Context: []byte{1, 2, 3},
				Op: &DtOp{MapOp: &MapOp{
					Removes: []*MapField{{Name: []byte("old"), Type: MapFieldRegister}},
					Updates: []*MapUpdate{
						{Field: &MapField{Name: []byte("visits"), Type: MapFieldCounter}, CounterOp: &CounterOp{Increment: proto.Int64(-7)}},
						{Field: &MapField{Name: []byte("admin"), Type: MapFieldFlag}, FlagOp: &flag},
						{
							Field: &MapField{Name: []byte("address"), Type: MapFieldMap},
							MapOp: &MapOp{Updates: []*MapUpdate{
								{Field: &MapField{Name: []byte("city"), Type: MapFieldRegister}, RegisterOp: []byte("Lyon")},
							}},
						},
					},
				}},
				ReturnBody: proto.Bool(true),
			},
			out: &DtUpdateReq{},
		},
		{
			name: "datatype fetch response",
			msg: &DtFetchResp{
				Context: []byte("ctx"),
				Type:    DataTypeMap,
				Value: &DtValue{MapValue: []*MapEntry{
					{Field: &MapField{Name: []byte("visits"), Type: MapFieldCounter}, CounterValue: proto.Int64(-42)},
					{Field: &MapField{Name: []byte("tags"), Type: MapFieldSet}, SetValue: [][]byte{[]byte("a"), []byte("b")}},
				}},
			},
			out: &DtFetchResp{},
		},
		{
			name: "index response with terms",
			msg: &IndexResp{
				Results:      []*Pair{{Key: []byte("2024"), Value: []byte("k1")}},
				Continuation: []byte("g2gCYgAAAAFtAAAAAms="),
				Done:         proto.Bool(true),
			},
			out: &IndexResp{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := tt.msg.Marshal()
			require.NoError(t, err)
			require.NoError(t, tt.out.Unmarshal(b))
			assert.Equal(t, tt.msg, tt.out)
		})
	}
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("from a newer server"))
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("riak@node1"))
	b = protowire.AppendTag(b, 98, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 7)

	var resp GetServerInfoResp
	require.NoError(t, resp.Unmarshal(b))
	assert.Equal(t, []byte("riak@node1"), resp.Node)
	assert.Nil(t, resp.ServerVersion)
}

func TestUnmarshalCopiesInput(t *testing.T) {
	b, err := (&Pair{Key: []byte("key"), Value: []byte("value")}).Marshal()
	require.NoError(t, err)

	var pair Pair
	require.NoError(t, pair.Unmarshal(b))
	for i := range b {
		b[i] = 0
	}
	assert.Equal(t, []byte("key"), pair.Key)
	assert.Equal(t, []byte("value"), pair.Value)
}

func TestUnmarshalResetsReceiver(t *testing.T) {
	resp := &GetResp{VClock: []byte("stale"), Unchanged: proto.Bool(true)}
	require.NoError(t, resp.Unmarshal(nil))
	assert.Equal(t, &GetResp{}, resp)
}

func TestDoneMessages(t *testing.T) {
	assert.False(t, (&ListKeysResp{}).IsDone())
	assert.False(t, (&ListKeysResp{Done: proto.Bool(false)}).IsDone())
	assert.True(t, (&ListKeysResp{Done: proto.Bool(true)}).IsDone())
	assert.True(t, (&ListBucketsResp{Done: proto.Bool(true)}).IsDone())
	assert.True(t, (&MapRedResp{Done: proto.Bool(true)}).IsDone())
	assert.True(t, (&IndexResp{Done: proto.Bool(true)}).IsDone())
}

func TestRegistry(t *testing.T) {
	assert.True(t, IsKnown(CodePingResp))
	assert.True(t, IsKnown(CodeDtUpdateResp))
	assert.False(t, IsKnown(Code(27)))
	assert.False(t, IsKnown(Code(200)))

	msg, err := NewMessage(CodeDelResp)
	require.NoError(t, err)
	assert.Nil(t, msg)

	msg, err = NewMessage(CodeGetResp)
	require.NoError(t, err)
	assert.IsType(t, &GetResp{}, msg)

	_, err = NewMessage(Code(200))
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, Code(200), protoErr.Code)
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "GetReq", CodeGetReq.String())
	assert.Equal(t, "DtFetchResp", CodeDtFetchResp.String())
	assert.Equal(t, "Code(200)", Code(200).String())
}
