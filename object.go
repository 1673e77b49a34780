package riak

import (
	"context"
	"slices"
	"time"
)

// Object is a value stored in Riak together with its causal history.
//
// An object read from Riak may hold several siblings, the concurrent versions
// written without a common ancestor. The single-value accessors (Value,
// SetValue, Decode, Encode...) return a *ConflictError until the siblings
// are resolved to one.
//
// VClock is opaque and must be sent back unchanged on the next Store.
type Object struct {
	Location
	VClock   []byte
	Siblings []*Sibling

	bucket *Bucket
}

// Sibling is one version of an object.
type Sibling struct {
	// Value holds the bytes as stored, with ContentEncoding applied.
	// Use Data and SetData to work with the decoded bytes.
	Value           []byte
	ContentType     string
	Charset         string
	ContentEncoding string
	VTag            string
	Links           []Link
	LastModified    time.Time
	UserMeta        map[string]string
	Indexes         []IndexEntry
	Deleted         bool
}

// Link points from an object to another one.
type Link struct {
	Bucket string
	Key    string
	Tag    string
}

// IndexEntry is a secondary index term. Field names end in "_bin" for
// binary terms and "_int" for integer terms.
type IndexEntry struct {
	Field string
	Value string
}

// Resolver reduces the siblings of an object, usually to one.
// It is called once after a fetch or store returned more than one sibling.
type Resolver func(o *Object)

// DefaultResolver keeps every sibling. The single-value accessors then
// return a *ConflictError.
func DefaultResolver(o *Object) {}

// LastWriteWinsResolver keeps the sibling with the most recent modification
// time.
func LastWriteWinsResolver(o *Object) {
	if len(o.Siblings) < 2 {
		return
	}
	latest := o.Siblings[0]
	for _, s := range o.Siblings[1:] {
		if s.LastModified.After(latest.LastModified) {
			latest = s
		}
	}
	o.Siblings = []*Sibling{latest}
}

// Exists reports whether the object was found.
func (o *Object) Exists() bool {
	return len(o.Siblings) > 0
}

// HasSiblings reports whether the object holds unresolved siblings.
func (o *Object) HasSiblings() bool {
	return len(o.Siblings) > 1
}

// Resolve applies r when the object holds more than one sibling.
func (o *Object) Resolve(r Resolver) {
	if r != nil && len(o.Siblings) > 1 {
		r(o)
	}
}

// Content returns the only sibling, creating an empty one for new objects.
func (o *Object) Content() (*Sibling, error) {
	switch len(o.Siblings) {
	case 0:
		s := &Sibling{}
		o.Siblings = append(o.Siblings, s)
		return s, nil
	case 1:
		return o.Siblings[0], nil
	default:
		return nil, &ConflictError{Key: o.Key, Siblings: len(o.Siblings)}
	}
}

// Value returns the decoded bytes of the only sibling.
// A missing object has a nil value.
func (o *Object) Value() ([]byte, error) {
	if len(o.Siblings) == 0 {
		return nil, nil
	}
	s, err := o.Content()
	if err != nil {
		return nil, err
	}
	return s.Data()
}

// SetValue replaces the value of the only sibling.
func (o *Object) SetValue(b []byte) error {
	s, err := o.Content()
	if err != nil {
		return err
	}
	return s.SetData(b)
}

// ContentType returns the content type of the only sibling.
func (o *Object) ContentType() (string, error) {
	if len(o.Siblings) == 0 {
		return "", nil
	}
	s, err := o.Content()
	if err != nil {
		return "", err
	}
	return s.ContentType, nil
}

// SetContentType sets the content type of the only sibling.
func (o *Object) SetContentType(contentType string) error {
	s, err := o.Content()
	if err != nil {
		return err
	}
	s.ContentType = contentType
	return nil
}

// Decode unmarshals the value of the only sibling into v, using the codec
// registered for its content type.
func (o *Object) Decode(v any) error {
	s, err := o.Content()
	if err != nil {
		return err
	}
	data, err := s.Data()
	if err != nil {
		return err
	}
	codec, err := o.codecs().lookup(s.ContentType)
	if err != nil {
		return err
	}
	return codec.Unmarshal(data, v)
}

// Encode marshals v into the only sibling, using the codec registered for
// its content type. An empty content type defaults to JSON.
func (o *Object) Encode(v any) error {
	s, err := o.Content()
	if err != nil {
		return err
	}
	if s.ContentType == "" {
		s.ContentType = ContentTypeJSON
	}
	codec, err := o.codecs().lookup(s.ContentType)
	if err != nil {
		return err
	}
	data, err := codec.Marshal(v)
	if err != nil {
		return err
	}
	return s.SetData(data)
}

func (o *Object) codecs() *ContentCodecs {
	if o.bucket != nil {
		return o.bucket.client.codecs
	}
	return defaultCodecs
}

// Store writes the object through its bucket and updates it with the
// response. The object must have been created by a Bucket.
func (o *Object) Store(ctx context.Context, opts PutOptions) error {
	if o.bucket == nil {
		return errUnboundObject
	}
	return o.bucket.Store(ctx, o, opts)
}

// Reload fetches the object again, replacing its siblings and vector clock.
func (o *Object) Reload(ctx context.Context, opts GetOptions) error {
	if o.bucket == nil {
		return errUnboundObject
	}
	fresh, err := o.bucket.Get(ctx, o.Key, opts)
	if err != nil {
		return err
	}
	o.VClock = fresh.VClock
	o.Siblings = fresh.Siblings
	return nil
}

// Delete removes the object, sending its vector clock.
func (o *Object) Delete(ctx context.Context, opts DeleteOptions) error {
	if o.bucket == nil {
		return errUnboundObject
	}
	if opts.VClock == nil {
		opts.VClock = o.VClock
	}
	if err := o.bucket.Delete(ctx, o.Key, opts); err != nil {
		return err
	}
	o.Siblings = nil
	o.VClock = nil
	return nil
}

// Data returns the value with ContentEncoding removed.
func (s *Sibling) Data() ([]byte, error) {
	return decodeContent(s.ContentEncoding, s.Value)
}

// SetData stores b, applying ContentEncoding.
func (s *Sibling) SetData(b []byte) error {
	v, err := encodeContent(s.ContentEncoding, b)
	if err != nil {
		return err
	}
	s.Value = v
	return nil
}

// AddIndex adds a secondary index term, ignoring duplicates.
func (s *Sibling) AddIndex(field, value string) {
	e := IndexEntry{Field: field, Value: value}
	if !slices.Contains(s.Indexes, e) {
		s.Indexes = append(s.Indexes, e)
	}
}

// RemoveIndex removes a secondary index term.
func (s *Sibling) RemoveIndex(field, value string) {
	s.Indexes = slices.DeleteFunc(s.Indexes, func(e IndexEntry) bool {
		return e.Field == field && e.Value == value
	})
}

// AddLink adds a link to another object.
func (s *Sibling) AddLink(bucket, key, tag string) {
	s.Links = append(s.Links, Link{Bucket: bucket, Key: key, Tag: tag})
}
