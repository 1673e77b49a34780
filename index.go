package riak

import (
	"context"
	"errors"
	"time"

	"github.com/pior/riak/pbc"
)

// Special indexes present on every bucket.
const (
	IndexBucket = "$bucket"
	IndexKey    = "$key"
)

// IndexQuery is a secondary index query: an exact match on Match, or with
// Range set, every term between Min and Max inclusive.
type IndexQuery struct {
	BucketType string
	Bucket     string
	Index      string

	Match    string
	Range    bool
	Min, Max string

	ReturnTerms    bool   // range queries only
	TermRegex      string // range queries on binary indexes only
	MaxResults     uint32 // page size, zero for all results
	Continuation   []byte
	PaginationSort *bool
	Timeout        time.Duration
}

// IndexTerm is a matching term and the key it indexes.
type IndexTerm struct {
	Term string
	Key  string
}

// IndexResult is one page of index results.
type IndexResult struct {
	Keys  []string
	Terms []IndexTerm // set instead of Keys when terms were requested

	// Continuation fetches the next page. Empty on the last page.
	Continuation []byte
}

func encodeIndexReq(q IndexQuery) (*pbc.IndexReq, error) {
	if q.Bucket == "" || q.Index == "" {
		return nil, errors.New("riak: index query needs a bucket and an index")
	}
	req := &pbc.IndexReq{
		Bucket:         []byte(q.Bucket),
		Index:          []byte(q.Index),
		MaxResults:     optUint32(q.MaxResults),
		Continuation:   q.Continuation,
		PaginationSort: q.PaginationSort,
		Timeout:        timeoutMillis(q.Timeout),
		Type:           wireType(q.BucketType),
	}
	if q.Range {
		req.QType = pbc.IndexQueryRange
		req.RangeMin = []byte(q.Min)
		req.RangeMax = []byte(q.Max)
		req.ReturnTerms = optTrue(q.ReturnTerms)
		req.TermRegex = optString(q.TermRegex)
	} else {
		req.QType = pbc.IndexQueryEq
		req.Key = []byte(q.Match)
	}
	return req, nil
}

// mergeIndexResp adds one response part to res.
func mergeIndexResp(res *IndexResult, resp *pbc.IndexResp) {
	for _, k := range resp.Keys {
		res.Keys = append(res.Keys, string(k))
	}
	for _, p := range resp.Results {
		res.Terms = append(res.Terms, IndexTerm{Term: string(p.Key), Key: string(p.Value)})
	}
	if len(resp.Continuation) > 0 {
		res.Continuation = resp.Continuation
	}
}

// IndexPages walks the pages of a paginated index query.
//
//	pages := bucket.IndexPages(riak.IndexQuery{Index: "email_bin", Match: "a@b.c", MaxResults: 100})
//	for pages.Next(ctx) {
//	    page := pages.Page()
//	}
//	if err := pages.Err(); err != nil {
//	    return err
//	}
type IndexPages struct {
	query func(ctx context.Context, q IndexQuery) (*IndexResult, error)
	q     IndexQuery
	page  *IndexResult
	err   error
	done  bool
}

// Next fetches the next page.
func (p *IndexPages) Next(ctx context.Context) bool {
	if p.done {
		return false
	}
	page, err := p.query(ctx, p.q)
	if err != nil {
		p.err = err
		p.done = true
		return false
	}
	p.page = page
	if len(page.Continuation) == 0 {
		p.done = true
	}
	p.q.Continuation = page.Continuation
	return true
}

// Page returns the page fetched by the last call to Next.
func (p *IndexPages) Page() *IndexResult { return p.page }

// Err returns the error that stopped the iteration.
func (p *IndexPages) Err() error { return p.err }
