package riak

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/pior/riak/pbc"
)

// datatype holds what every convergent datatype shares: where it lives and
// the causal context of its last fetch. Fields embedded in a map have a
// parent and use the location and context of the outermost map.
type datatype struct {
	bucket  *Bucket
	key     string
	context []byte
	parent  *Map
}

func (d *datatype) root() *datatype {
	for d.parent != nil {
		d = &d.parent.datatype
	}
	return d
}

// Key returns the key of the datatype, or of the map holding it.
func (d *datatype) Key() string {
	return d.root().key
}

// Context returns the opaque causal context of the last fetch.
func (d *datatype) Context() []byte {
	return d.root().context
}

func (d *datatype) requireContext() error {
	if len(d.root().context) == 0 {
		return ErrContextRequired
	}
	return nil
}

// datatypeState is implemented by the top-level datatypes.
type datatypeState interface {
	dataType() pbc.DataType
	toOp() DatatypeOp
	load(v *DatatypeValue)
	clear()
}

func reloadDatatype(ctx context.Context, d *datatype, s datatypeState, opts FetchDatatypeOptions) error {
	v, err := d.bucket.FetchDatatype(ctx, d.key, opts)
	if err != nil {
		return err
	}
	if v.Type != 0 && v.Type != s.dataType() {
		return fmt.Errorf("riak: %s holds a datatype of type %d, not %d", d.bucket.location(d.key), v.Type, s.dataType())
	}
	s.clear()
	d.context = v.Context
	s.load(v)
	return nil
}

// updateDatatype sends the staged operations and refreshes the value from
// the response.
func updateDatatype(ctx context.Context, d *datatype, s datatypeState, opts UpdateDatatypeOptions) error {
	op := s.toOp()
	if op.isEmpty() {
		return ErrNoOperation
	}
	if opts.Context == nil {
		opts.Context = d.context
	}
	opts.ReturnBody = true

	v, err := d.bucket.UpdateDatatype(ctx, d.key, op, opts)
	if err != nil {
		return err
	}
	if d.key == "" {
		d.key = v.Key
	}
	d.context = v.Context
	s.clear()
	s.load(v)
	return nil
}

func deleteDatatype(ctx context.Context, d *datatype, s datatypeState) error {
	if err := d.bucket.Delete(ctx, d.key, DeleteOptions{}); err != nil {
		return err
	}
	d.context = nil
	s.clear()
	s.load(&DatatypeValue{Type: s.dataType()})
	return nil
}

// Counter is a convergent counter. Increments are staged locally and sent
// by Update.
type Counter struct {
	datatype
	value     int64
	increment int64
}

// Value returns the value of the last fetch, without staged increments.
func (c *Counter) Value() int64 { return c.value }

func (c *Counter) Increment(n int64) { c.increment += n }

func (c *Counter) Decrement(n int64) { c.increment -= n }

// Modified reports whether an increment is staged.
func (c *Counter) Modified() bool { return c.increment != 0 }

func (c *Counter) dataType() pbc.DataType { return pbc.DataTypeCounter }

func (c *Counter) op() *CounterOp {
	if c.increment == 0 {
		return nil
	}
	return &CounterOp{Increment: c.increment}
}

func (c *Counter) toOp() DatatypeOp { return DatatypeOp{Counter: c.op()} }

func (c *Counter) load(v *DatatypeValue) { c.value = v.Counter }

func (c *Counter) clear() { c.increment = 0 }

// Reload fetches the counter, dropping staged increments. On a map field,
// the whole map is reloaded.
func (c *Counter) Reload(ctx context.Context, opts FetchDatatypeOptions) error {
	if c.parent != nil {
		return c.parent.rootMap().Reload(ctx, opts)
	}
	return reloadDatatype(ctx, &c.datatype, c, opts)
}

// Update sends the staged increment. On a map field, the whole map is
// updated.
func (c *Counter) Update(ctx context.Context, opts UpdateDatatypeOptions) error {
	if c.parent != nil {
		return c.parent.rootMap().Update(ctx, opts)
	}
	return updateDatatype(ctx, &c.datatype, c, opts)
}

// Delete removes the counter from Riak.
func (c *Counter) Delete(ctx context.Context) error {
	if c.parent != nil {
		return c.parent.rootMap().Delete(ctx)
	}
	return deleteDatatype(ctx, &c.datatype, c)
}

// Set is a convergent set of strings. Additions and removals are staged
// locally and sent by Update.
type Set struct {
	datatype
	value   []string
	adds    []string
	removes []string
}

// Value returns the sorted elements of the last fetch.
func (s *Set) Value() []string { return s.value }

// Contains reports whether the last fetch held v.
func (s *Set) Contains(v string) bool {
	_, found := slices.BinarySearch(s.value, v)
	return found
}

// Add stages the addition of v.
func (s *Set) Add(v string) {
	s.removes = slices.DeleteFunc(s.removes, func(e string) bool { return e == v })
	if !slices.Contains(s.adds, v) {
		s.adds = append(s.adds, v)
	}
}

// Discard stages the removal of v. Removals need the context of a previous
// fetch: without it, Discard returns ErrContextRequired and stages nothing.
func (s *Set) Discard(v string) error {
	if err := s.requireContext(); err != nil {
		return err
	}
	s.adds = slices.DeleteFunc(s.adds, func(e string) bool { return e == v })
	if !slices.Contains(s.removes, v) {
		s.removes = append(s.removes, v)
	}
	return nil
}

func (s *Set) Modified() bool { return len(s.adds) > 0 || len(s.removes) > 0 }

func (s *Set) dataType() pbc.DataType { return pbc.DataTypeSet }

func (s *Set) op() *SetOp {
	if !s.Modified() {
		return nil
	}
	return &SetOp{Adds: slices.Clone(s.adds), Removes: slices.Clone(s.removes)}
}

func (s *Set) toOp() DatatypeOp { return DatatypeOp{Set: s.op()} }

func (s *Set) load(v *DatatypeValue) { s.value = v.Set }

func (s *Set) clear() {
	s.adds = nil
	s.removes = nil
}

// Reload fetches the set, dropping staged changes. On a map field, the whole
// map is reloaded.
func (s *Set) Reload(ctx context.Context, opts FetchDatatypeOptions) error {
	if s.parent != nil {
		return s.parent.rootMap().Reload(ctx, opts)
	}
	return reloadDatatype(ctx, &s.datatype, s, opts)
}

// Update sends the staged changes. On a map field, the whole map is updated.
func (s *Set) Update(ctx context.Context, opts UpdateDatatypeOptions) error {
	if s.parent != nil {
		return s.parent.rootMap().Update(ctx, opts)
	}
	return updateDatatype(ctx, &s.datatype, s, opts)
}

// Delete removes the set from Riak.
func (s *Set) Delete(ctx context.Context) error {
	if s.parent != nil {
		return s.parent.rootMap().Delete(ctx)
	}
	return deleteDatatype(ctx, &s.datatype, s)
}

// Register is a last-write-wins string. It only exists inside a map.
type Register struct {
	datatype
	value    string
	assigned *string
}

func (r *Register) Value() string { return r.value }

// Assign stages a new value.
func (r *Register) Assign(v string) { r.assigned = &v }

func (r *Register) Modified() bool { return r.assigned != nil }

func (r *Register) clear() { r.assigned = nil }

// Flag is a boolean. It only exists inside a map.
type Flag struct {
	datatype
	value bool
	op    pbc.FlagOp
}

func (f *Flag) Value() bool { return f.value }

// Enable stages enabling the flag.
func (f *Flag) Enable() { f.op = pbc.FlagEnable }

// Disable stages disabling the flag. Like a removal, it needs the context of
// a previous fetch.
func (f *Flag) Disable() error {
	if err := f.requireContext(); err != nil {
		return err
	}
	f.op = pbc.FlagDisable
	return nil
}

func (f *Flag) Modified() bool { return f.op != 0 }

func (f *Flag) clear() { f.op = 0 }

// Map is a convergent map. Its fields are counters, sets, registers, flags
// and maps, named by name and type. Accessing a field that does not exist
// returns an empty one; staging an operation on it creates it on Update.
type Map struct {
	datatype
	value   *MapValue
	removes []MapKey

	counters  map[string]*Counter
	sets      map[string]*Set
	registers map[string]*Register
	flags     map[string]*Flag
	maps      map[string]*Map
}

func newMap(d datatype, value *MapValue) *Map {
	m := &Map{datatype: d}
	m.setValue(value)
	return m
}

func (m *Map) setValue(value *MapValue) {
	if value == nil {
		value = newMapValue()
	}
	m.value = value
	m.counters = map[string]*Counter{}
	m.sets = map[string]*Set{}
	m.registers = map[string]*Register{}
	m.flags = map[string]*Flag{}
	m.maps = map[string]*Map{}
}

func (m *Map) rootMap() *Map {
	for m.parent != nil {
		m = m.parent
	}
	return m
}

// Value returns the value of the last fetch.
func (m *Map) Value() *MapValue { return m.value }

func (m *Map) child() datatype { return datatype{parent: m} }

// Counter returns the counter field with the given name.
func (m *Map) Counter(name string) *Counter {
	if c, ok := m.counters[name]; ok {
		return c
	}
	c := &Counter{datatype: m.child(), value: m.value.Counters[name]}
	m.counters[name] = c
	return c
}

// Set returns the set field with the given name.
func (m *Map) Set(name string) *Set {
	if s, ok := m.sets[name]; ok {
		return s
	}
	s := &Set{datatype: m.child(), value: m.value.Sets[name]}
	m.sets[name] = s
	return s
}

// Register returns the register field with the given name.
func (m *Map) Register(name string) *Register {
	if r, ok := m.registers[name]; ok {
		return r
	}
	r := &Register{datatype: m.child(), value: m.value.Registers[name]}
	m.registers[name] = r
	return r
}

// Flag returns the flag field with the given name.
func (m *Map) Flag(name string) *Flag {
	if f, ok := m.flags[name]; ok {
		return f
	}
	f := &Flag{datatype: m.child(), value: m.value.Flags[name]}
	m.flags[name] = f
	return f
}

// Map returns the map field with the given name.
func (m *Map) Map(name string) *Map {
	if sub, ok := m.maps[name]; ok {
		return sub
	}
	sub := newMap(m.child(), m.value.Maps[name])
	m.maps[name] = sub
	return sub
}

// Remove stages the removal of a field, dropping the operations staged on
// it. Removals need the context of a previous fetch.
func (m *Map) Remove(key MapKey) error {
	if err := m.requireContext(); err != nil {
		return err
	}
	switch key.Type {
	case pbc.MapFieldCounter:
		delete(m.counters, key.Name)
	case pbc.MapFieldSet:
		delete(m.sets, key.Name)
	case pbc.MapFieldRegister:
		delete(m.registers, key.Name)
	case pbc.MapFieldFlag:
		delete(m.flags, key.Name)
	case pbc.MapFieldMap:
		delete(m.maps, key.Name)
	default:
		return fmt.Errorf("riak: unknown map field type %d", key.Type)
	}
	if !slices.Contains(m.removes, key) {
		m.removes = append(m.removes, key)
	}
	return nil
}

// Modified reports whether an operation is staged on the map or its fields.
func (m *Map) Modified() bool {
	return m.op() != nil
}

func (m *Map) dataType() pbc.DataType { return pbc.DataTypeMap }

// op collects the staged operations, fields sorted by name.
func (m *Map) op() *MapOp {
	var updates []MapUpdate
	for _, name := range sortedKeys(m.counters) {
		if op := m.counters[name].op(); op != nil {
			updates = append(updates, MapUpdate{Key: MapKey{name, pbc.MapFieldCounter}, Counter: op})
		}
	}
	for _, name := range sortedKeys(m.sets) {
		if op := m.sets[name].op(); op != nil {
			updates = append(updates, MapUpdate{Key: MapKey{name, pbc.MapFieldSet}, Set: op})
		}
	}
	for _, name := range sortedKeys(m.registers) {
		if r := m.registers[name]; r.assigned != nil {
			v := *r.assigned
			updates = append(updates, MapUpdate{Key: MapKey{name, pbc.MapFieldRegister}, Register: &v})
		}
	}
	for _, name := range sortedKeys(m.flags) {
		if f := m.flags[name]; f.op != 0 {
			updates = append(updates, MapUpdate{Key: MapKey{name, pbc.MapFieldFlag}, Flag: f.op})
		}
	}
	for _, name := range sortedKeys(m.maps) {
		if op := m.maps[name].op(); op != nil {
			updates = append(updates, MapUpdate{Key: MapKey{name, pbc.MapFieldMap}, Map: op})
		}
	}

	if len(m.removes) == 0 && len(updates) == 0 {
		return nil
	}
	return &MapOp{Removes: slices.Clone(m.removes), Updates: updates}
}

func (m *Map) toOp() DatatypeOp { return DatatypeOp{Map: m.op()} }

func (m *Map) load(v *DatatypeValue) { m.setValue(v.Map) }

func (m *Map) clear() {
	m.removes = nil
	for _, c := range m.counters {
		c.clear()
	}
	for _, s := range m.sets {
		s.clear()
	}
	for _, r := range m.registers {
		r.clear()
	}
	for _, f := range m.flags {
		f.clear()
	}
	for _, sub := range m.maps {
		sub.clear()
	}
}

// Reload fetches the map, dropping staged operations and field values.
// On a nested map, the outermost map is reloaded.
func (m *Map) Reload(ctx context.Context, opts FetchDatatypeOptions) error {
	if m.parent != nil {
		return m.rootMap().Reload(ctx, opts)
	}
	return reloadDatatype(ctx, &m.datatype, m, opts)
}

// Update sends the staged operations of the map and its fields.
// On a nested map, the outermost map is updated.
func (m *Map) Update(ctx context.Context, opts UpdateDatatypeOptions) error {
	if m.parent != nil {
		return m.rootMap().Update(ctx, opts)
	}
	return updateDatatype(ctx, &m.datatype, m, opts)
}

// Delete removes the map from Riak.
func (m *Map) Delete(ctx context.Context) error {
	if m.parent != nil {
		return m.rootMap().Delete(ctx)
	}
	return deleteDatatype(ctx, &m.datatype, m)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
