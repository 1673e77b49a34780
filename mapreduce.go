package riak

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/pior/riak/pbc"
)

// ContentTypeMapReduce is the content type of MapReduce jobs built by MapReduce.
const ContentTypeMapReduce = ContentTypeJSON

// Function is a map or reduce function, written in Erlang or JavaScript.
type Function struct {
	Language string // "erlang" or "javascript"
	Module   string
	Function string
	Name     string // named JavaScript function
	Source   string // anonymous JavaScript function
}

// Erlang references an Erlang function, such as
// Erlang("riak_kv_mapreduce", "map_object_value").
func Erlang(module, function string) Function {
	return Function{Language: "erlang", Module: module, Function: function}
}

// JavaScript is an anonymous JavaScript function.
func JavaScript(source string) Function {
	return Function{Language: "javascript", Source: source}
}

// NamedJavaScript references a built-in JavaScript function, such as
// NamedJavaScript("Riak.mapValuesJson").
func NamedJavaScript(name string) Function {
	return Function{Language: "javascript", Name: name}
}

type phase struct {
	kind string // map, reduce or link
	fn   Function
	arg  any
	keep bool

	bucket string // link phases
	tag    string
}

func (p phase) MarshalJSON() ([]byte, error) {
	spec := map[string]any{"keep": p.keep}
	if p.kind == "link" {
		spec["bucket"] = p.bucket
		spec["tag"] = p.tag
		if p.bucket == "" {
			spec["bucket"] = "_"
		}
		if p.tag == "" {
			spec["tag"] = "_"
		}
	} else {
		spec["language"] = p.fn.Language
		switch {
		case p.fn.Module != "":
			spec["module"] = p.fn.Module
			spec["function"] = p.fn.Function
		case p.fn.Name != "":
			spec["name"] = p.fn.Name
		default:
			spec["source"] = p.fn.Source
		}
		if p.arg != nil {
			spec["arg"] = p.arg
		}
	}
	return json.Marshal(map[string]any{p.kind: spec})
}

// MapReduce builds and runs a MapReduce job.
//
//	result, err := client.MapReduce().
//	    AddBucket("default", "logs").
//	    Map(riak.NamedJavaScript("Riak.mapValuesJson"), nil, false).
//	    Reduce(riak.Erlang("riak_kv_mapreduce", "reduce_sum"), nil, true).
//	    Run(ctx)
//
// When no phase asks to keep its result, the last phase does.
type MapReduce struct {
	client  *Client
	bucket  []string
	objects [][]any
	index   map[string]any
	phases  []phase
	timeout time.Duration
	err     error
}

// NewMapReduce returns a job builder not bound to a client. Encode it and
// send it with Connection.MapReduce.
func NewMapReduce() *MapReduce {
	return &MapReduce{}
}

func (m *MapReduce) setErr(err error) *MapReduce {
	if m.err == nil {
		m.err = err
	}
	return m
}

var errMixedInputs = errors.New("riak: a MapReduce job takes a bucket, an index or a list of objects")

// AddBucket uses every object of a bucket as input.
func (m *MapReduce) AddBucket(bucketType, bucket string) *MapReduce {
	if len(m.objects) > 0 || m.index != nil {
		return m.setErr(errMixedInputs)
	}
	if bucketType == "" || bucketType == DefaultBucketType {
		m.bucket = []string{bucket}
	} else {
		m.bucket = []string{bucketType, bucket}
	}
	return m
}

// AddObject adds one object to the inputs.
func (m *MapReduce) AddObject(loc Location) *MapReduce {
	return m.AddObjectData(loc, "")
}

// AddObjectData adds one object to the inputs, with data passed to the map
// function.
func (m *MapReduce) AddObjectData(loc Location, keyData any) *MapReduce {
	if m.bucket != nil || m.index != nil {
		return m.setErr(errMixedInputs)
	}
	input := []any{loc.Bucket, loc.Key, keyData}
	if !loc.isDefaultType() {
		input = append(input, loc.BucketType)
	}
	m.objects = append(m.objects, input)
	return m
}

// AddIndex uses the result of a secondary index query as input.
func (m *MapReduce) AddIndex(q IndexQuery) *MapReduce {
	if m.bucket != nil || len(m.objects) > 0 {
		return m.setErr(errMixedInputs)
	}
	var bucket any = q.Bucket
	if wireType(q.BucketType) != nil {
		bucket = []string{q.BucketType, q.Bucket}
	}
	m.index = map[string]any{"bucket": bucket, "index": q.Index}
	if q.Range {
		m.index["start"] = q.Min
		m.index["end"] = q.Max
	} else {
		m.index["key"] = q.Match
	}
	return m
}

// Map adds a map phase.
func (m *MapReduce) Map(fn Function, arg any, keep bool) *MapReduce {
	m.phases = append(m.phases, phase{kind: "map", fn: fn, arg: arg, keep: keep})
	return m
}

// Reduce adds a reduce phase.
func (m *MapReduce) Reduce(fn Function, arg any, keep bool) *MapReduce {
	m.phases = append(m.phases, phase{kind: "reduce", fn: fn, arg: arg, keep: keep})
	return m
}

// Link adds a link phase following links with the given bucket and tag.
// Empty values match any bucket or tag.
func (m *MapReduce) Link(bucket, tag string, keep bool) *MapReduce {
	m.phases = append(m.phases, phase{kind: "link", bucket: bucket, tag: tag, keep: keep})
	return m
}

// Timeout bounds the job on the server side.
func (m *MapReduce) Timeout(d time.Duration) *MapReduce {
	m.timeout = d
	return m
}

// Encode returns the JSON job.
func (m *MapReduce) Encode() ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	job := map[string]any{}
	switch {
	case m.bucket != nil:
		if len(m.bucket) == 1 {
			job["inputs"] = m.bucket[0]
		} else {
			job["inputs"] = m.bucket
		}
	case m.index != nil:
		job["inputs"] = m.index
	case len(m.objects) > 0:
		job["inputs"] = m.objects
	default:
		return nil, errors.New("riak: MapReduce job has no inputs")
	}

	phases := slices.Clone(m.phases)
	if len(phases) > 0 && !slices.ContainsFunc(phases, func(p phase) bool { return p.keep }) {
		phases[len(phases)-1].keep = true
	}
	job["query"] = phases

	if m.timeout > 0 {
		job["timeout"] = m.timeout.Milliseconds()
	}
	return json.Marshal(job)
}

// Run sends the job and collects the results of every kept phase.
func (m *MapReduce) Run(ctx context.Context) (MapReduceResult, error) {
	if m.client == nil {
		return nil, errors.New("riak: MapReduce job is not bound to a client")
	}
	job, err := m.Encode()
	if err != nil {
		return nil, err
	}
	return m.client.runMapReduce(ctx, job)
}

// Stream sends the job and calls fn for every part of the result, in order.
func (m *MapReduce) Stream(ctx context.Context, fn func(phase uint32, data json.RawMessage) error) error {
	if m.client == nil {
		return errors.New("riak: MapReduce job is not bound to a client")
	}
	job, err := m.Encode()
	if err != nil {
		return err
	}
	return m.client.streamMapReduce(ctx, job, fn)
}

// MapReduceResult holds the values produced by each kept phase.
type MapReduceResult map[uint32][]json.RawMessage

// Phases returns the numbers of the phases with results, in order.
func (r MapReduceResult) Phases() []uint32 {
	phases := make([]uint32, 0, len(r))
	for p := range r {
		phases = append(phases, p)
	}
	slices.Sort(phases)
	return phases
}

// All returns the values of every phase, in phase order.
func (r MapReduceResult) All() []json.RawMessage {
	var all []json.RawMessage
	for _, p := range r.Phases() {
		all = append(all, r[p]...)
	}
	return all
}

// Decode unmarshals the values of one phase, as a JSON array, into v.
func (r MapReduceResult) Decode(phase uint32, v any) error {
	values := r[phase]
	if values == nil {
		values = []json.RawMessage{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// mergeMapRedResp adds one response part to r. Parts holding a JSON array
// are merged element by element; other values are appended whole.
func mergeMapRedResp(r MapReduceResult, resp *pbc.MapRedResp) error {
	if resp.Phase == nil || len(resp.Response) == 0 {
		return nil
	}
	phase := *resp.Phase

	data := bytes.TrimSpace(resp.Response)
	if len(data) > 0 && data[0] == '[' {
		var values []json.RawMessage
		if err := json.Unmarshal(data, &values); err != nil {
			return err
		}
		r[phase] = append(r[phase], values...)
		return nil
	}
	r[phase] = append(r[phase], json.RawMessage(data))
	return nil
}
