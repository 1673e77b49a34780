package riak

import (
	"sort"
	"time"

	"github.com/pior/riak/pbc"
)

// MapKey names a map field. Fields with the same name and different types
// are distinct.
type MapKey struct {
	Name string
	Type pbc.MapFieldType
}

// MapValue is the value of a map datatype.
type MapValue struct {
	Counters  map[string]int64
	Sets      map[string][]string
	Registers map[string]string
	Flags     map[string]bool
	Maps      map[string]*MapValue
}

func newMapValue() *MapValue {
	return &MapValue{
		Counters:  map[string]int64{},
		Sets:      map[string][]string{},
		Registers: map[string]string{},
		Flags:     map[string]bool{},
		Maps:      map[string]*MapValue{},
	}
}

// DatatypeValue is a fetched or updated convergent datatype.
// Only the field matching Type is set.
type DatatypeValue struct {
	Type    pbc.DataType
	Key     string // generated key, on updates without a key
	Context []byte

	Counter int64
	Set     []string
	Map     *MapValue
	HLL     uint64
	GSet    []string
}

// CounterOp increments a counter; a negative value decrements it.
type CounterOp struct {
	Increment int64
}

// SetOp adds and removes set elements. Removals need a context.
type SetOp struct {
	Adds    []string
	Removes []string
}

// MapUpdate updates one field of a map. Exactly one operation is set,
// matching Key.Type.
type MapUpdate struct {
	Key      MapKey
	Counter  *CounterOp
	Set      *SetOp
	Register *string
	Flag     pbc.FlagOp
	Map      *MapOp
}

// MapOp removes and updates map fields. Removals need a context.
type MapOp struct {
	Removes []MapKey
	Updates []MapUpdate
}

// DatatypeOp is the operation sent for one datatype. Exactly one field is set.
type DatatypeOp struct {
	Counter *CounterOp
	Set     *SetOp
	Map     *MapOp
}

func (op DatatypeOp) isEmpty() bool {
	return op.Counter == nil && op.Set == nil && op.Map == nil
}

// needsContext reports whether the operation removes anything.
func (op DatatypeOp) needsContext() bool {
	switch {
	case op.Set != nil:
		return len(op.Set.Removes) > 0
	case op.Map != nil:
		return op.Map.needsContext()
	}
	return false
}

func (op *MapOp) needsContext() bool {
	if len(op.Removes) > 0 {
		return true
	}
	for _, u := range op.Updates {
		switch {
		case u.Set != nil && len(u.Set.Removes) > 0:
			return true
		case u.Flag == pbc.FlagDisable:
			return true
		case u.Map != nil && u.Map.needsContext():
			return true
		}
	}
	return false
}

func (op DatatypeOp) dataType() pbc.DataType {
	switch {
	case op.Counter != nil:
		return pbc.DataTypeCounter
	case op.Set != nil:
		return pbc.DataTypeSet
	case op.Map != nil:
		return pbc.DataTypeMap
	}
	return 0
}

// FetchDatatypeOptions tunes a datatype fetch.
type FetchDatatypeOptions struct {
	R, PR       Quorum
	BasicQuorum *bool
	NotFoundOK  *bool
	Timeout     time.Duration

	// NoContext skips the causal context in the response.
	NoContext bool
}

// UpdateDatatypeOptions tunes a datatype update.
type UpdateDatatypeOptions struct {
	Context    []byte
	W, DW, PW  Quorum
	ReturnBody bool
	Timeout    time.Duration
}

func encodeDtFetchReq(loc Location, opts FetchDatatypeOptions) (*pbc.DtFetchReq, error) {
	if loc.isDefaultType() {
		return nil, ErrDefaultBucketType
	}
	if loc.Key == "" {
		return nil, ErrKeyRequired
	}
	var includeContext *bool
	if opts.NoContext {
		includeContext = new(bool)
	}
	return &pbc.DtFetchReq{
		Bucket:         []byte(loc.Bucket),
		Key:            []byte(loc.Key),
		Type:           []byte(loc.BucketType),
		R:              opts.R.wire(),
		PR:             opts.PR.wire(),
		BasicQuorum:    opts.BasicQuorum,
		NotFoundOK:     opts.NotFoundOK,
		Timeout:        timeoutMillis(opts.Timeout),
		IncludeContext: includeContext,
	}, nil
}

func encodeDtUpdateReq(loc Location, op DatatypeOp, opts UpdateDatatypeOptions) (*pbc.DtUpdateReq, error) {
	if loc.isDefaultType() {
		return nil, ErrDefaultBucketType
	}
	if op.isEmpty() {
		return nil, ErrNoOperation
	}
	if op.needsContext() && len(opts.Context) == 0 {
		return nil, ErrContextRequired
	}
	return &pbc.DtUpdateReq{
		Bucket:     []byte(loc.Bucket),
		Key:        optString(loc.Key),
		Type:       []byte(loc.BucketType),
		Context:    opts.Context,
		Op:         encodeDtOp(op),
		W:          opts.W.wire(),
		DW:         opts.DW.wire(),
		PW:         opts.PW.wire(),
		ReturnBody: optTrue(opts.ReturnBody),
		Timeout:    timeoutMillis(opts.Timeout),
	}, nil
}

func encodeDtOp(op DatatypeOp) *pbc.DtOp {
	out := &pbc.DtOp{}
	switch {
	case op.Counter != nil:
		out.CounterOp = encodeCounterOp(op.Counter)
	case op.Set != nil:
		out.SetOp = encodeSetOp(op.Set)
	case op.Map != nil:
		out.MapOp = encodeMapOp(op.Map)
	}
	return out
}

func encodeCounterOp(op *CounterOp) *pbc.CounterOp {
	inc := op.Increment
	return &pbc.CounterOp{Increment: &inc}
}

func encodeSetOp(op *SetOp) *pbc.SetOp {
	return &pbc.SetOp{Adds: bytesOf(op.Adds), Removes: bytesOf(op.Removes)}
}

func encodeMapField(k MapKey) *pbc.MapField {
	return &pbc.MapField{Name: []byte(k.Name), Type: k.Type}
}

func encodeMapOp(op *MapOp) *pbc.MapOp {
	out := &pbc.MapOp{}
	for _, k := range op.Removes {
		out.Removes = append(out.Removes, encodeMapField(k))
	}
	for _, u := range op.Updates {
		upd := &pbc.MapUpdate{Field: encodeMapField(u.Key)}
		switch u.Key.Type {
		case pbc.MapFieldCounter:
			if u.Counter != nil {
				upd.CounterOp = encodeCounterOp(u.Counter)
			}
		case pbc.MapFieldSet:
			if u.Set != nil {
				upd.SetOp = encodeSetOp(u.Set)
			}
		case pbc.MapFieldRegister:
			if u.Register != nil {
				upd.RegisterOp = []byte(*u.Register)
			}
		case pbc.MapFieldFlag:
			if u.Flag != 0 {
				flag := u.Flag
				upd.FlagOp = &flag
			}
		case pbc.MapFieldMap:
			if u.Map != nil {
				upd.MapOp = encodeMapOp(u.Map)
			}
		}
		out.Updates = append(out.Updates, upd)
	}
	return out
}

func decodeDtFetchResp(resp *pbc.DtFetchResp) *DatatypeValue {
	v := &DatatypeValue{Type: resp.Type, Context: resp.Context}
	if resp.Value == nil {
		if resp.Type == pbc.DataTypeMap {
			v.Map = newMapValue()
		}
		return v
	}
	decodeDtValue(v, resp.Value.CounterValue, resp.Value.SetValue, resp.Value.MapValue, resp.Value.HLLValue, resp.Value.GSetValue)
	return v
}

func decodeDtUpdateResp(resp *pbc.DtUpdateResp, t pbc.DataType) *DatatypeValue {
	v := &DatatypeValue{Type: t, Key: string(resp.Key), Context: resp.Context}
	decodeDtValue(v, resp.CounterValue, resp.SetValue, resp.MapValue, resp.HLLValue, resp.GSetValue)
	return v
}

func decodeDtValue(v *DatatypeValue, counter *int64, set [][]byte, entries []*pbc.MapEntry, hll *uint64, gset [][]byte) {
	switch v.Type {
	case pbc.DataTypeCounter:
		if counter != nil {
			v.Counter = *counter
		}
	case pbc.DataTypeSet:
		v.Set = sortedStrings(set)
	case pbc.DataTypeMap:
		v.Map = decodeMapEntries(entries)
	case pbc.DataTypeHLL:
		if hll != nil {
			v.HLL = *hll
		}
	case pbc.DataTypeGSet:
		v.GSet = sortedStrings(gset)
	}
}

func decodeMapEntries(entries []*pbc.MapEntry) *MapValue {
	m := newMapValue()
	for _, e := range entries {
		name := string(e.Field.Name)
		switch e.Field.Type {
		case pbc.MapFieldCounter:
			if e.CounterValue != nil {
				m.Counters[name] = *e.CounterValue
			} else {
				m.Counters[name] = 0
			}
		case pbc.MapFieldSet:
			m.Sets[name] = sortedStrings(e.SetValue)
		case pbc.MapFieldRegister:
			m.Registers[name] = string(e.RegisterValue)
		case pbc.MapFieldFlag:
			m.Flags[name] = isTrue(e.FlagValue)
		case pbc.MapFieldMap:
			m.Maps[name] = decodeMapEntries(e.MapValue)
		}
	}
	return m
}

func sortedStrings(bs [][]byte) []string {
	out := stringsOf(bs)
	sort.Strings(out)
	return out
}
