package riak

import (
	"context"
	"sync/atomic"
)

// BucketType is a named set of bucket properties. Buckets of a non-default
// type can hold convergent datatypes.
type BucketType struct {
	client *Client
	name   string
}

func (t *BucketType) Name() string {
	return t.name
}

// IsDefault reports whether this is the default bucket type.
func (t *BucketType) IsDefault() bool {
	return t.name == DefaultBucketType
}

// Bucket returns a bucket of this type. The same value is returned for the
// same name until Client.ForgetBucket is called.
func (t *BucketType) Bucket(name string) *Bucket {
	return t.client.bucket(t.name, name)
}

// Props returns the properties of the bucket type.
func (t *BucketType) Props(ctx context.Context) (*BucketProps, error) {
	var props *BucketProps
	err := t.client.Execute(ctx, t.name, func(conn *Connection) error {
		var err error
		props, err = conn.BucketTypeProps(ctx, t.name)
		return err
	})
	return props, err
}

// SetProps changes the properties of the bucket type. Unset fields are left
// unchanged.
func (t *BucketType) SetProps(ctx context.Context, props *BucketProps) error {
	return t.client.Execute(ctx, t.name, func(conn *Connection) error {
		return conn.SetBucketTypeProps(ctx, t.name, props)
	})
}

// Buckets lists the buckets of this type. This walks the whole keyspace of
// the cluster and is not meant for production traffic.
func (t *BucketType) Buckets(ctx context.Context) ([]string, error) {
	return t.client.ListBuckets(ctx, t.name)
}

// Bucket is a namespace of keys within a bucket type.
type Bucket struct {
	client     *Client
	bucketType string
	name       string
	resolver   atomic.Pointer[Resolver]
}

func (b *Bucket) Name() string {
	return b.name
}

// Type returns the bucket type of the bucket.
func (b *Bucket) Type() *BucketType {
	return b.client.BucketType(b.bucketType)
}

// SetResolver sets the resolver applied to objects fetched from this bucket
// when the call does not set one.
func (b *Bucket) SetResolver(r Resolver) {
	b.resolver.Store(&r)
}

func (b *Bucket) defaultResolver() Resolver {
	if r := b.resolver.Load(); r != nil && *r != nil {
		return *r
	}
	return b.client.config.Resolver
}

func (b *Bucket) location(key string) Location {
	return Location{BucketType: b.bucketType, Bucket: b.name, Key: key}
}

// NewObject returns an empty object bound to this bucket. Leave key empty to
// have Riak generate one on Store.
func (b *Bucket) NewObject(key string) *Object {
	return &Object{Location: b.location(key), bucket: b}
}

// Get fetches an object. A missing object is returned with Exists false.
func (b *Bucket) Get(ctx context.Context, key string, opts GetOptions) (*Object, error) {
	if opts.Resolver == nil {
		opts.Resolver = b.defaultResolver()
	}

	loc := b.location(key)
	var obj *Object
	err := b.client.Execute(ctx, loc.String(), func(conn *Connection) error {
		var err error
		obj, err = conn.Get(ctx, loc, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	obj.bucket = b
	b.client.stats.recordGet(obj.Exists())
	return obj, nil
}

// Store writes an object to this bucket and updates it with the response.
func (b *Bucket) Store(ctx context.Context, obj *Object, opts PutOptions) error {
	if opts.Resolver == nil {
		opts.Resolver = b.defaultResolver()
	}
	obj.BucketType = b.bucketType
	obj.Bucket = b.name
	obj.bucket = b

	err := b.client.Execute(ctx, obj.Location.String(), func(conn *Connection) error {
		return conn.Put(ctx, obj, opts)
	})
	if err != nil {
		return err
	}
	b.client.stats.recordPut()
	return nil
}

// Delete removes a key. Pass the vector clock of the last fetch in
// opts.VClock to avoid resurrecting siblings.
func (b *Bucket) Delete(ctx context.Context, key string, opts DeleteOptions) error {
	loc := b.location(key)
	err := b.client.Execute(ctx, loc.String(), func(conn *Connection) error {
		return conn.Delete(ctx, loc, opts)
	})
	if err != nil {
		return err
	}
	b.client.stats.recordDelete()
	return nil
}

// Props returns the properties of the bucket.
func (b *Bucket) Props(ctx context.Context) (*BucketProps, error) {
	var props *BucketProps
	err := b.client.Execute(ctx, b.location("").String(), func(conn *Connection) error {
		var err error
		props, err = conn.BucketProps(ctx, b.bucketType, b.name)
		return err
	})
	return props, err
}

// SetProps changes the properties of the bucket. Unset fields are left
// unchanged.
func (b *Bucket) SetProps(ctx context.Context, props *BucketProps) error {
	return b.client.Execute(ctx, b.location("").String(), func(conn *Connection) error {
		return conn.SetBucketProps(ctx, b.bucketType, b.name, props)
	})
}

// ResetProps restores the properties of the bucket to those of its type.
func (b *Bucket) ResetProps(ctx context.Context) error {
	return b.client.Execute(ctx, b.location("").String(), func(conn *Connection) error {
		return conn.ResetBucketProps(ctx, b.bucketType, b.name)
	})
}

// Keys lists the keys of the bucket. This walks the whole keyspace of the
// cluster and is not meant for production traffic.
func (b *Bucket) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := b.StreamKeys(ctx, func(part []string) error {
		keys = append(keys, part...)
		return nil
	})
	return keys, err
}

// StreamKeys calls fn with each part of the key listing, as received.
func (b *Bucket) StreamKeys(ctx context.Context, fn func(keys []string) error) error {
	b.client.stats.recordQuery()
	return b.client.Execute(ctx, b.location("").String(), func(conn *Connection) error {
		return conn.StreamListKeys(ctx, b.bucketType, b.name, fn)
	})
}

func (b *Bucket) indexQuery(q IndexQuery) IndexQuery {
	q.BucketType = b.bucketType
	q.Bucket = b.name
	return q
}

// Index runs a secondary index query on the bucket and returns one page.
func (b *Bucket) Index(ctx context.Context, q IndexQuery) (*IndexResult, error) {
	q = b.indexQuery(q)
	b.client.stats.recordQuery()

	var result *IndexResult
	err := b.client.Execute(ctx, b.location(q.Index).String(), func(conn *Connection) error {
		var err error
		result, err = conn.IndexQuery(ctx, q)
		return err
	})
	return result, err
}

// StreamIndex runs a secondary index query and calls fn with each part of
// the result, as received.
func (b *Bucket) StreamIndex(ctx context.Context, q IndexQuery, fn func(part *IndexResult) error) error {
	q = b.indexQuery(q)
	b.client.stats.recordQuery()

	return b.client.Execute(ctx, b.location(q.Index).String(), func(conn *Connection) error {
		return conn.StreamIndexQuery(ctx, q, fn)
	})
}

// IndexPages walks the pages of q, MaxResults results at a time.
func (b *Bucket) IndexPages(q IndexQuery) *IndexPages {
	return &IndexPages{query: b.Index, q: q}
}

// FetchDatatype fetches the convergent datatype stored under key.
func (b *Bucket) FetchDatatype(ctx context.Context, key string, opts FetchDatatypeOptions) (*DatatypeValue, error) {
	loc := b.location(key)
	var value *DatatypeValue
	err := b.client.Execute(ctx, loc.String(), func(conn *Connection) error {
		var err error
		value, err = conn.FetchDatatype(ctx, loc, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	b.client.stats.recordDatatypeFetch()
	return value, nil
}

// UpdateDatatype sends an operation on the datatype stored under key.
// Leave key empty to have Riak generate one.
func (b *Bucket) UpdateDatatype(ctx context.Context, key string, op DatatypeOp, opts UpdateDatatypeOptions) (*DatatypeValue, error) {
	loc := b.location(key)
	var value *DatatypeValue
	err := b.client.Execute(ctx, loc.String(), func(conn *Connection) error {
		var err error
		value, err = conn.UpdateDatatype(ctx, loc, op, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	b.client.stats.recordDatatypeUpdate()
	return value, nil
}

// Counter returns an empty counter bound to key. Call Reload to fetch it.
func (b *Bucket) Counter(key string) *Counter {
	return &Counter{datatype: datatype{bucket: b, key: key}}
}

// Set returns an empty set bound to key. Call Reload to fetch it.
func (b *Bucket) Set(key string) *Set {
	return &Set{datatype: datatype{bucket: b, key: key}}
}

// Map returns an empty map bound to key. Call Reload to fetch it.
func (b *Bucket) Map(key string) *Map {
	return newMap(datatype{bucket: b, key: key}, nil)
}
