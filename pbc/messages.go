package pbc

// Message is a structured frame body.
// Optional scalar fields are pointers; a nil byte slice is an absent field.
type Message interface {
	Marshal() ([]byte, error)
	Unmarshal(b []byte) error
}

// Doner is implemented by the messages of multi-part responses.
// The final part of a stream reports IsDone.
type Doner interface {
	IsDone() bool
}

// ErrorResp is the body of CodeErrorResp.
type ErrorResp struct {
	ErrMsg  []byte
	ErrCode uint32
}

// GetClientIDResp is the body of CodeGetClientIDResp.
type GetClientIDResp struct {
	ClientID []byte
}

// SetClientIDReq is the body of CodeSetClientIDReq.
type SetClientIDReq struct {
	ClientID []byte
}

// GetServerInfoResp is the body of CodeGetServerInfoResp.
type GetServerInfoResp struct {
	Node          []byte
	ServerVersion []byte
}

// Pair is a key/value pair used for user metadata, index entries and index results.
type Pair struct {
	Key   []byte
	Value []byte
}

// Link is a link from one object to another.
type Link struct {
	Bucket []byte
	Key    []byte
	Tag    []byte
}

// Content is a single sibling of a stored object.
type Content struct {
	Value           []byte
	ContentType     []byte
	Charset         []byte
	ContentEncoding []byte
	VTag            []byte
	Links           []*Link
	LastMod         *uint32
	LastModUsecs    *uint32
	UserMeta        []*Pair
	Indexes         []*Pair
	Deleted         *bool
	TTL             *uint32
}

// GetReq fetches an object.
type GetReq struct {
	Bucket        []byte
	Key           []byte
	R             *uint32
	PR            *uint32
	BasicQuorum   *bool
	NotFoundOK    *bool
	IfModified    []byte
	Head          *bool
	DeletedVClock *bool
	Timeout       *uint32
	SloppyQuorum  *bool
	NVal          *uint32
	Type          []byte
}

// GetResp carries the siblings of an object. Not found is an empty GetResp.
type GetResp struct {
	Content   []*Content
	VClock    []byte
	Unchanged *bool
}

// PutReq stores an object.
type PutReq struct {
	Bucket        []byte
	Key           []byte
	VClock        []byte
	Content       *Content
	W             *uint32
	DW            *uint32
	ReturnBody    *bool
	PW            *uint32
	IfNotModified *bool
	IfNoneMatch   *bool
	ReturnHead    *bool
	Timeout       *uint32
	Asis          *bool
	SloppyQuorum  *bool
	NVal          *uint32
	Type          []byte
}

// PutResp returns the stored siblings when ReturnBody was requested,
// and the generated key when the request had none.
type PutResp struct {
	Content []*Content
	VClock  []byte
	Key     []byte
}

// DelReq deletes an object.
type DelReq struct {
	Bucket       []byte
	Key          []byte
	RW           *uint32
	VClock       []byte
	R            *uint32
	W            *uint32
	PR           *uint32
	PW           *uint32
	DW           *uint32
	Timeout      *uint32
	SloppyQuorum *bool
	NVal         *uint32
	Type         []byte
}

// ListBucketsReq lists the buckets of a bucket type.
type ListBucketsReq struct {
	Timeout *uint32
	Stream  *bool
	Type    []byte
}

// ListBucketsResp is one part of a bucket listing.
type ListBucketsResp struct {
	Buckets [][]byte
	Done    *bool
}

func (m *ListBucketsResp) IsDone() bool { return m.Done != nil && *m.Done }

// ListKeysReq lists the keys of a bucket. The response is always streamed.
type ListKeysReq struct {
	Bucket  []byte
	Timeout *uint32
	Type    []byte
}

// ListKeysResp is one part of a key listing.
type ListKeysResp struct {
	Keys [][]byte
	Done *bool
}

func (m *ListKeysResp) IsDone() bool { return m.Done != nil && *m.Done }

// ModFun names an Erlang module and function.
type ModFun struct {
	Module   []byte
	Function []byte
}

// CommitHook is either a module/function pair or a named JavaScript hook.
type CommitHook struct {
	ModFun *ModFun
	Name   []byte
}

// BucketProps holds the properties of a bucket or bucket type.
type BucketProps struct {
	NVal          *uint32
	AllowMult     *bool
	LastWriteWins *bool
	Precommit     []*CommitHook
	HasPrecommit  *bool
	Postcommit    []*CommitHook
	HasPostcommit *bool
	ChashKeyfun   *ModFun
	Linkfun       *ModFun
	OldVClock     *uint32
	YoungVClock   *uint32
	BigVClock     *uint32
	SmallVClock   *uint32
	PR            *uint32
	R             *uint32
	W             *uint32
	PW            *uint32
	DW            *uint32
	RW            *uint32
	BasicQuorum   *bool
	NotFoundOK    *bool
	Backend       []byte
	Search        *bool
	Repl          *ReplMode
	SearchIndex   []byte
	Datatype      []byte
	Consistent    *bool
	WriteOnce     *bool
	HLLPrecision  *uint32
	TTL           *uint32
}

// GetBucketReq fetches bucket properties.
type GetBucketReq struct {
	Bucket []byte
	Type   []byte
}

// GetBucketResp carries bucket or bucket type properties.
type GetBucketResp struct {
	Props *BucketProps
}

// SetBucketReq stores bucket properties.
type SetBucketReq struct {
	Bucket []byte
	Props  *BucketProps
	Type   []byte
}

// ResetBucketReq restores the default properties of a bucket.
type ResetBucketReq struct {
	Bucket []byte
	Type   []byte
}

// GetBucketTypeReq fetches bucket type properties.
type GetBucketTypeReq struct {
	Type []byte
}

// SetBucketTypeReq stores bucket type properties.
type SetBucketTypeReq struct {
	Type  []byte
	Props *BucketProps
}

// MapRedReq submits a MapReduce job.
type MapRedReq struct {
	Request     []byte
	ContentType []byte
}

// MapRedResp is one part of a MapReduce result, tagged with the phase that produced it.
type MapRedResp struct {
	Phase    *uint32
	Response []byte
	Done     *bool
}

func (m *MapRedResp) IsDone() bool { return m.Done != nil && *m.Done }

// IndexReq queries a secondary index.
type IndexReq struct {
	Bucket         []byte
	Index          []byte
	QType          IndexQueryType
	Key            []byte
	RangeMin       []byte
	RangeMax       []byte
	ReturnTerms    *bool
	Stream         *bool
	MaxResults     *uint32
	Continuation   []byte
	Timeout        *uint32
	Type           []byte
	TermRegex      []byte
	PaginationSort *bool
}

// IndexResp carries matching keys, or term/key pairs when terms were requested.
type IndexResp struct {
	Keys         [][]byte
	Results      []*Pair
	Continuation []byte
	Done         *bool
}

func (m *IndexResp) IsDone() bool { return m.Done != nil && *m.Done }

// MapField names a field embedded in a map datatype.
type MapField struct {
	Name []byte
	Type MapFieldType
}

// MapEntry is the value of a single map field.
type MapEntry struct {
	Field         *MapField
	CounterValue  *int64
	SetValue      [][]byte
	RegisterValue []byte
	FlagValue     *bool
	MapValue      []*MapEntry
}

// DtFetchReq fetches a convergent datatype.
type DtFetchReq struct {
	Bucket         []byte
	Key            []byte
	Type           []byte
	R              *uint32
	PR             *uint32
	BasicQuorum    *bool
	NotFoundOK     *bool
	Timeout        *uint32
	SloppyQuorum   *bool
	NVal           *uint32
	IncludeContext *bool
}

// DtValue is the value of a fetched datatype.
type DtValue struct {
	CounterValue *int64
	SetValue     [][]byte
	MapValue     []*MapEntry
	HLLValue     *uint64
	GSetValue    [][]byte
}

// DtFetchResp carries a datatype value and its causal context.
type DtFetchResp struct {
	Context []byte
	Type    DataType
	Value   *DtValue
}

// CounterOp increments (or, with a negative value, decrements) a counter.
type CounterOp struct {
	Increment *int64
}

// SetOp adds and removes set members.
type SetOp struct {
	Adds    [][]byte
	Removes [][]byte
}

// MapUpdate updates one map field.
type MapUpdate struct {
	Field      *MapField
	CounterOp  *CounterOp
	SetOp      *SetOp
	RegisterOp []byte
	FlagOp     *FlagOp
	MapOp      *MapOp
}

// MapOp removes and updates map fields.
type MapOp struct {
	Removes []*MapField
	Updates []*MapUpdate
}

// DtOp wraps the operation for exactly one datatype.
type DtOp struct {
	CounterOp *CounterOp
	SetOp     *SetOp
	MapOp     *MapOp
}

// DtUpdateReq sends a datatype operation.
type DtUpdateReq struct {
	Bucket         []byte
	Key            []byte
	Type           []byte
	Context        []byte
	Op             *DtOp
	W              *uint32
	DW             *uint32
	PW             *uint32
	ReturnBody     *bool
	Timeout        *uint32
	SloppyQuorum   *bool
	NVal           *uint32
	IncludeContext *bool
}

// DtUpdateResp returns the generated key, the new context and, with
// ReturnBody, the new value.
type DtUpdateResp struct {
	Key          []byte
	Context      []byte
	CounterValue *int64
	SetValue     [][]byte
	MapValue     []*MapEntry
	HLLValue     *uint64
	GSetValue    [][]byte
}
