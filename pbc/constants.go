package pbc

import "strconv"

// Code is the one-byte message type that follows the length prefix of every frame.
type Code uint8

// Message codes of the Riak Protocol Buffers API.
const (
	CodeErrorResp         Code = 0
	CodePingReq           Code = 1
	CodePingResp          Code = 2
	CodeGetClientIDReq    Code = 3
	CodeGetClientIDResp   Code = 4
	CodeSetClientIDReq    Code = 5
	CodeSetClientIDResp   Code = 6
	CodeGetServerInfoReq  Code = 7
	CodeGetServerInfoResp Code = 8
	CodeGetReq            Code = 9
	CodeGetResp           Code = 10
	CodePutReq            Code = 11
	CodePutResp           Code = 12
	CodeDelReq            Code = 13
	CodeDelResp           Code = 14
	CodeListBucketsReq    Code = 15
	CodeListBucketsResp   Code = 16
	CodeListKeysReq       Code = 17
	CodeListKeysResp      Code = 18
	CodeGetBucketReq      Code = 19
	CodeGetBucketResp     Code = 20
	CodeSetBucketReq      Code = 21
	CodeSetBucketResp     Code = 22
	CodeMapRedReq         Code = 23
	CodeMapRedResp        Code = 24
	CodeIndexReq          Code = 25
	CodeIndexResp         Code = 26
	CodeResetBucketReq    Code = 29
	CodeResetBucketResp   Code = 30
	CodeGetBucketTypeReq  Code = 31
	CodeSetBucketTypeReq  Code = 32
	CodeDtFetchReq        Code = 80
	CodeDtFetchResp       Code = 81
	CodeDtUpdateReq       Code = 82
	CodeDtUpdateResp      Code = 83
)

var codeNames = map[Code]string{
	CodeErrorResp:         "ErrorResp",
	CodePingReq:           "PingReq",
	CodePingResp:          "PingResp",
	CodeGetClientIDReq:    "GetClientIdReq",
	CodeGetClientIDResp:   "GetClientIdResp",
	CodeSetClientIDReq:    "SetClientIdReq",
	CodeSetClientIDResp:   "SetClientIdResp",
	CodeGetServerInfoReq:  "GetServerInfoReq",
	CodeGetServerInfoResp: "GetServerInfoResp",
	CodeGetReq:            "GetReq",
	CodeGetResp:           "GetResp",
	CodePutReq:            "PutReq",
	CodePutResp:           "PutResp",
	CodeDelReq:            "DelReq",
	CodeDelResp:           "DelResp",
	CodeListBucketsReq:    "ListBucketsReq",
	CodeListBucketsResp:   "ListBucketsResp",
	CodeListKeysReq:       "ListKeysReq",
	CodeListKeysResp:      "ListKeysResp",
	CodeGetBucketReq:      "GetBucketReq",
	CodeGetBucketResp:     "GetBucketResp",
	CodeSetBucketReq:      "SetBucketReq",
	CodeSetBucketResp:     "SetBucketResp",
	CodeMapRedReq:         "MapRedReq",
	CodeMapRedResp:        "MapRedResp",
	CodeIndexReq:          "IndexReq",
	CodeIndexResp:         "IndexResp",
	CodeResetBucketReq:    "ResetBucketReq",
	CodeResetBucketResp:   "ResetBucketResp",
	CodeGetBucketTypeReq:  "GetBucketTypeReq",
	CodeSetBucketTypeReq:  "SetBucketTypeReq",
	CodeDtFetchReq:        "DtFetchReq",
	CodeDtFetchResp:       "DtFetchResp",
	CodeDtUpdateReq:       "DtUpdateReq",
	CodeDtUpdateResp:      "DtUpdateResp",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "Code(" + strconv.Itoa(int(c)) + ")"
}

// Framing constants
const (
	// HeaderLength is the size of the big-endian length prefix.
	HeaderLength = 4

	// MaxFrameLength bounds the length prefix accepted from the server.
	// A larger prefix is treated as a desynchronized stream.
	MaxFrameLength = 64 << 20

	// MaxChunkSize is the size of a single socket read while assembling a frame.
	MaxChunkSize = 64 << 10
)

// Symbolic quorum values. Any other value is a literal node count.
const (
	QuorumOne     uint32 = 4294967294
	QuorumQuorum  uint32 = 4294967293
	QuorumAll     uint32 = 4294967292
	QuorumDefault uint32 = 4294967291
)

// ReplMode is the replication mode stored in bucket properties.
type ReplMode int32

const (
	ReplFalse    ReplMode = 0
	ReplRealtime ReplMode = 1
	ReplFullsync ReplMode = 2
	ReplTrue     ReplMode = 3
)

// IndexQueryType selects between exact match and range index queries.
type IndexQueryType int32

const (
	IndexQueryEq    IndexQueryType = 0
	IndexQueryRange IndexQueryType = 1
)

// DataType identifies the convergent datatype stored under a key.
type DataType int32

const (
	DataTypeCounter DataType = 1
	DataTypeSet     DataType = 2
	DataTypeMap     DataType = 3
	DataTypeHLL     DataType = 4
	DataTypeGSet    DataType = 5
)

// MapFieldType identifies the datatype embedded in a map field.
type MapFieldType int32

const (
	MapFieldCounter  MapFieldType = 1
	MapFieldSet      MapFieldType = 2
	MapFieldRegister MapFieldType = 3
	MapFieldFlag     MapFieldType = 4
	MapFieldMap      MapFieldType = 5
)

// FlagOp enables or disables a flag embedded in a map.
type FlagOp int32

const (
	FlagEnable  FlagOp = 1
	FlagDisable FlagOp = 2
)
