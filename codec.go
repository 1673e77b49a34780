package riak

import (
	"strconv"
	"time"

	"github.com/pior/riak/pbc"
)

// DefaultBucketType is the bucket type of buckets created without one.
// It is never sent on the wire.
const DefaultBucketType = "default"

// Location addresses an object.
type Location struct {
	BucketType string
	Bucket     string
	Key        string
}

func (l Location) String() string {
	t := l.BucketType
	if t == "" {
		t = DefaultBucketType
	}
	return t + "/" + l.Bucket + "/" + l.Key
}

func (l Location) isDefaultType() bool {
	return l.BucketType == "" || l.BucketType == DefaultBucketType
}

// wireType returns the bucket type as sent in requests.
func wireType(bucketType string) []byte {
	if bucketType == "" || bucketType == DefaultBucketType {
		return nil
	}
	return []byte(bucketType)
}

func optString(s string) []byte {
	if s == "" {
		return nil
	}
	return []byte(s)
}

func optTrue(b bool) *bool {
	if !b {
		return nil
	}
	return &b
}

func optUint32(v uint32) *uint32 {
	if v == 0 {
		return nil
	}
	return &v
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

func timeoutMillis(d time.Duration) *uint32 {
	if d <= 0 {
		return nil
	}
	ms := uint32(max(d.Milliseconds(), 1))
	return &ms
}

// Quorum is a replica count for reads and writes. The zero value leaves the
// bucket default in place.
type Quorum uint32

const (
	QuorumOne      = Quorum(pbc.QuorumOne)
	QuorumMajority = Quorum(pbc.QuorumQuorum)
	QuorumAll      = Quorum(pbc.QuorumAll)
	QuorumDefault  = Quorum(pbc.QuorumDefault)
)

func (q Quorum) String() string {
	switch q {
	case QuorumOne:
		return "one"
	case QuorumMajority:
		return "quorum"
	case QuorumAll:
		return "all"
	case QuorumDefault:
		return "default"
	}
	return strconv.FormatUint(uint64(q), 10)
}

// ParseQuorum accepts "one", "quorum", "all", "default" or a replica count.
func ParseQuorum(s string) (Quorum, error) {
	switch s {
	case "one":
		return QuorumOne, nil
	case "quorum":
		return QuorumMajority, nil
	case "all":
		return QuorumAll, nil
	case "default":
		return QuorumDefault, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return Quorum(n), nil
}

func (q Quorum) wire() *uint32 {
	return optUint32(uint32(q))
}

func quorumOf(v *uint32) Quorum {
	if v == nil {
		return 0
	}
	return Quorum(*v)
}

// GetOptions tunes a fetch.
type GetOptions struct {
	R, PR         Quorum
	BasicQuorum   *bool
	NotFoundOK    *bool
	Head          bool // fetch metadata only
	DeletedVClock bool // return the vector clock of tombstones
	IfModified    []byte
	Timeout       time.Duration

	// Resolver is applied when more than one sibling is returned.
	Resolver Resolver
}

// PutOptions tunes a store.
type PutOptions struct {
	W, DW, PW     Quorum
	ReturnBody    bool
	ReturnHead    bool
	IfNotModified bool
	IfNoneMatch   bool
	Timeout       time.Duration

	// Resolver is applied when the returned body holds more than one sibling.
	Resolver Resolver
}

// DeleteOptions tunes a delete.
type DeleteOptions struct {
	VClock               []byte
	RW, R, W, PR, PW, DW Quorum
	Timeout              time.Duration
}

func encodeGetReq(loc Location, opts GetOptions) *pbc.GetReq {
	return &pbc.GetReq{
		Bucket:        []byte(loc.Bucket),
		Key:           []byte(loc.Key),
		R:             opts.R.wire(),
		PR:            opts.PR.wire(),
		BasicQuorum:   opts.BasicQuorum,
		NotFoundOK:    opts.NotFoundOK,
		IfModified:    opts.IfModified,
		Head:          optTrue(opts.Head),
		DeletedVClock: optTrue(opts.DeletedVClock),
		Timeout:       timeoutMillis(opts.Timeout),
		Type:          wireType(loc.BucketType),
	}
}

// decodeObject builds an object from a fetch response. A response without
// content is an object that does not exist.
func decodeObject(loc Location, resp *pbc.GetResp) *Object {
	obj := &Object{Location: loc, VClock: resp.VClock}
	for _, c := range resp.Content {
		obj.Siblings = append(obj.Siblings, decodeSibling(c))
	}
	return obj
}

func encodePutReq(obj *Object, opts PutOptions) (*pbc.PutReq, error) {
	var content *pbc.Content
	switch len(obj.Siblings) {
	case 0:
		content = &pbc.Content{Value: []byte{}}
	case 1:
		content = encodeSibling(obj.Siblings[0])
	default:
		return nil, &ConflictError{Key: obj.Key, Siblings: len(obj.Siblings)}
	}

	return &pbc.PutReq{
		Bucket:        []byte(obj.Bucket),
		Key:           optString(obj.Key),
		VClock:        obj.VClock,
		Content:       content,
		W:             opts.W.wire(),
		DW:            opts.DW.wire(),
		PW:            opts.PW.wire(),
		ReturnBody:    optTrue(opts.ReturnBody),
		ReturnHead:    optTrue(opts.ReturnHead),
		IfNotModified: optTrue(opts.IfNotModified),
		IfNoneMatch:   optTrue(opts.IfNoneMatch),
		Timeout:       timeoutMillis(opts.Timeout),
		Type:          wireType(obj.BucketType),
	}, nil
}

// applyPutResp updates obj with a store response: the generated key, the
// new vector clock and, when requested, the stored siblings.
func applyPutResp(obj *Object, resp *pbc.PutResp) {
	if len(resp.Key) > 0 {
		obj.Key = string(resp.Key)
	}
	if resp.VClock != nil {
		obj.VClock = resp.VClock
	}
	if len(resp.Content) > 0 {
		obj.Siblings = obj.Siblings[:0]
		for _, c := range resp.Content {
			obj.Siblings = append(obj.Siblings, decodeSibling(c))
		}
	}
}

func encodeDelReq(loc Location, opts DeleteOptions) *pbc.DelReq {
	return &pbc.DelReq{
		Bucket:  []byte(loc.Bucket),
		Key:     []byte(loc.Key),
		VClock:  opts.VClock,
		RW:      opts.RW.wire(),
		R:       opts.R.wire(),
		W:       opts.W.wire(),
		PR:      opts.PR.wire(),
		PW:      opts.PW.wire(),
		DW:      opts.DW.wire(),
		Timeout: timeoutMillis(opts.Timeout),
		Type:    wireType(loc.BucketType),
	}
}

func decodeSibling(c *pbc.Content) *Sibling {
	s := &Sibling{
		Value:           c.Value,
		ContentType:     string(c.ContentType),
		Charset:         string(c.Charset),
		ContentEncoding: string(c.ContentEncoding),
		VTag:            string(c.VTag),
		Deleted:         isTrue(c.Deleted),
	}
	if c.LastMod != nil {
		var usecs int64
		if c.LastModUsecs != nil {
			usecs = int64(*c.LastModUsecs)
		}
		s.LastModified = time.Unix(int64(*c.LastMod), usecs*int64(time.Microsecond))
	}
	for _, l := range c.Links {
		s.Links = append(s.Links, Link{Bucket: string(l.Bucket), Key: string(l.Key), Tag: string(l.Tag)})
	}
	if len(c.UserMeta) > 0 {
		s.UserMeta = make(map[string]string, len(c.UserMeta))
		for _, p := range c.UserMeta {
			s.UserMeta[string(p.Key)] = string(p.Value)
		}
	}
	for _, p := range c.Indexes {
		s.Indexes = append(s.Indexes, IndexEntry{Field: string(p.Key), Value: string(p.Value)})
	}
	return s
}

// encodeSibling converts a sibling for a store request. Server-assigned
// fields (vtag, modification time, deleted flag) are not sent.
func encodeSibling(s *Sibling) *pbc.Content {
	c := &pbc.Content{
		Value:           s.Value,
		ContentType:     optString(s.ContentType),
		Charset:         optString(s.Charset),
		ContentEncoding: optString(s.ContentEncoding),
	}
	if c.Value == nil {
		c.Value = []byte{}
	}
	for _, l := range s.Links {
		c.Links = append(c.Links, &pbc.Link{Bucket: optString(l.Bucket), Key: optString(l.Key), Tag: optString(l.Tag)})
	}
	for k, v := range s.UserMeta {
		c.UserMeta = append(c.UserMeta, &pbc.Pair{Key: []byte(k), Value: []byte(v)})
	}
	for _, e := range s.Indexes {
		c.Indexes = append(c.Indexes, &pbc.Pair{Key: []byte(e.Field), Value: []byte(e.Value)})
	}
	return c
}

// ServerInfo identifies a Riak node.
type ServerInfo struct {
	Node    string
	Version string
}

// ModFun names an Erlang function.
type ModFun struct {
	Module   string
	Function string
}

// Hook is a commit hook: either an Erlang function or a named hook.
type Hook struct {
	ModFun *ModFun
	Name   string
}

// BucketProps holds bucket or bucket type properties.
//
// Nil and zero fields are left unchanged by SetBucketProps. A non-nil empty
// Precommit or Postcommit list clears the hooks.
type BucketProps struct {
	NVal          *uint32
	AllowMult     *bool
	LastWriteWins *bool
	Precommit     []Hook
	Postcommit    []Hook
	ChashKeyfun   *ModFun
	Linkfun       *ModFun
	OldVClock     *uint32
	YoungVClock   *uint32
	BigVClock     *uint32
	SmallVClock   *uint32
	PR, R, W      Quorum
	PW, DW, RW    Quorum
	BasicQuorum   *bool
	NotFoundOK    *bool
	Backend       string
	Search        *bool
	Repl          *pbc.ReplMode
	SearchIndex   string
	Datatype      string
	Consistent    *bool
	WriteOnce     *bool
	HLLPrecision  *uint32
	TTL           *uint32
}

func encodeModFun(m *ModFun) *pbc.ModFun {
	if m == nil {
		return nil
	}
	return &pbc.ModFun{Module: []byte(m.Module), Function: []byte(m.Function)}
}

func decodeModFun(m *pbc.ModFun) *ModFun {
	if m == nil {
		return nil
	}
	return &ModFun{Module: string(m.Module), Function: string(m.Function)}
}

func encodeHooks(hooks []Hook) ([]*pbc.CommitHook, *bool) {
	if hooks == nil {
		return nil, nil
	}
	out := make([]*pbc.CommitHook, 0, len(hooks))
	for _, h := range hooks {
		out = append(out, &pbc.CommitHook{ModFun: encodeModFun(h.ModFun), Name: optString(h.Name)})
	}
	has := len(out) > 0
	return out, &has
}

func decodeHooks(hooks []*pbc.CommitHook, has *bool) []Hook {
	if len(hooks) == 0 && !isTrue(has) {
		return nil
	}
	out := make([]Hook, 0, len(hooks))
	for _, h := range hooks {
		out = append(out, Hook{ModFun: decodeModFun(h.ModFun), Name: string(h.Name)})
	}
	return out
}

func encodeBucketProps(p *BucketProps) *pbc.BucketProps {
	out := &pbc.BucketProps{
		NVal:          p.NVal,
		AllowMult:     p.AllowMult,
		LastWriteWins: p.LastWriteWins,
		ChashKeyfun:   encodeModFun(p.ChashKeyfun),
		Linkfun:       encodeModFun(p.Linkfun),
		OldVClock:     p.OldVClock,
		YoungVClock:   p.YoungVClock,
		BigVClock:     p.BigVClock,
		SmallVClock:   p.SmallVClock,
		PR:            p.PR.wire(),
		R:             p.R.wire(),
		W:             p.W.wire(),
		PW:            p.PW.wire(),
		DW:            p.DW.wire(),
		RW:            p.RW.wire(),
		BasicQuorum:   p.BasicQuorum,
		NotFoundOK:    p.NotFoundOK,
		Backend:       optString(p.Backend),
		Search:        p.Search,
		Repl:          p.Repl,
		SearchIndex:   optString(p.SearchIndex),
		Datatype:      optString(p.Datatype),
		Consistent:    p.Consistent,
		WriteOnce:     p.WriteOnce,
		HLLPrecision:  p.HLLPrecision,
		TTL:           p.TTL,
	}
	out.Precommit, out.HasPrecommit = encodeHooks(p.Precommit)
	out.Postcommit, out.HasPostcommit = encodeHooks(p.Postcommit)
	return out
}

func decodeBucketProps(p *pbc.BucketProps) *BucketProps {
	if p == nil {
		return &BucketProps{}
	}
	return &BucketProps{
		NVal:          p.NVal,
		AllowMult:     p.AllowMult,
		LastWriteWins: p.LastWriteWins,
		Precommit:     decodeHooks(p.Precommit, p.HasPrecommit),
		Postcommit:    decodeHooks(p.Postcommit, p.HasPostcommit),
		ChashKeyfun:   decodeModFun(p.ChashKeyfun),
		Linkfun:       decodeModFun(p.Linkfun),
		OldVClock:     p.OldVClock,
		YoungVClock:   p.YoungVClock,
		BigVClock:     p.BigVClock,
		SmallVClock:   p.SmallVClock,
		PR:            quorumOf(p.PR),
		R:             quorumOf(p.R),
		W:             quorumOf(p.W),
		PW:            quorumOf(p.PW),
		DW:            quorumOf(p.DW),
		RW:            quorumOf(p.RW),
		BasicQuorum:   p.BasicQuorum,
		NotFoundOK:    p.NotFoundOK,
		Backend:       string(p.Backend),
		Search:        p.Search,
		Repl:          p.Repl,
		SearchIndex:   string(p.SearchIndex),
		Datatype:      string(p.Datatype),
		Consistent:    p.Consistent,
		WriteOnce:     p.WriteOnce,
		HLLPrecision:  p.HLLPrecision,
		TTL:           p.TTL,
	}
}

func stringsOf(bs [][]byte) []string {
	if len(bs) == 0 {
		return nil
	}
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = string(b)
	}
	return out
}

func bytesOf(ss []string) [][]byte {
	if len(ss) == 0 {
		return nil
	}
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}
