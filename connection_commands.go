package riak

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pior/riak/pbc"
)

// Ping checks that the node answers.
func (c *Connection) Ping(ctx context.Context) error {
	_, err := c.Request(ctx, pbc.CodePingReq, nil, pbc.CodePingResp)
	return err
}

// ClientID returns the client id of the connection.
func (c *Connection) ClientID(ctx context.Context) ([]byte, error) {
	resp, err := c.Request(ctx, pbc.CodeGetClientIDReq, nil, pbc.CodeGetClientIDResp)
	if err != nil {
		return nil, err
	}
	return resp.(*pbc.GetClientIDResp).ClientID, nil
}

// SetClientID sets the client id used by the node for vector clock entries.
func (c *Connection) SetClientID(ctx context.Context, id []byte) error {
	_, err := c.Request(ctx, pbc.CodeSetClientIDReq, &pbc.SetClientIDReq{ClientID: id}, pbc.CodeSetClientIDResp)
	return err
}

// ServerInfo returns the node name and Riak version.
func (c *Connection) ServerInfo(ctx context.Context) (ServerInfo, error) {
	resp, err := c.Request(ctx, pbc.CodeGetServerInfoReq, nil, pbc.CodeGetServerInfoResp)
	if err != nil {
		return ServerInfo{}, err
	}
	info := resp.(*pbc.GetServerInfoResp)
	return ServerInfo{Node: string(info.Node), Version: string(info.ServerVersion)}, nil
}

// Get fetches an object. A missing object is returned with no siblings.
// When more than one sibling is returned, opts.Resolver is called once.
func (c *Connection) Get(ctx context.Context, loc Location, opts GetOptions) (*Object, error) {
	if loc.Key == "" {
		return nil, ErrKeyRequired
	}
	resp, err := c.Request(ctx, pbc.CodeGetReq, encodeGetReq(loc, opts), pbc.CodeGetResp)
	if err != nil {
		return nil, err
	}
	obj := decodeObject(loc, resp.(*pbc.GetResp))
	obj.Resolve(opts.Resolver)
	return obj, nil
}

// Put stores an object and updates it with the response: the generated key
// when the object had none, the new vector clock and, with ReturnBody, the
// stored siblings.
func (c *Connection) Put(ctx context.Context, obj *Object, opts PutOptions) error {
	req, err := encodePutReq(obj, opts)
	if err != nil {
		return err
	}
	resp, err := c.Request(ctx, pbc.CodePutReq, req, pbc.CodePutResp)
	if err != nil {
		return err
	}
	applyPutResp(obj, resp.(*pbc.PutResp))
	obj.Resolve(opts.Resolver)
	return nil
}

// Delete removes an object.
func (c *Connection) Delete(ctx context.Context, loc Location, opts DeleteOptions) error {
	if loc.Key == "" {
		return ErrKeyRequired
	}
	_, err := c.Request(ctx, pbc.CodeDelReq, encodeDelReq(loc, opts), pbc.CodeDelResp)
	return err
}

// BucketProps returns the properties of a bucket.
func (c *Connection) BucketProps(ctx context.Context, bucketType, bucket string) (*BucketProps, error) {
	req := &pbc.GetBucketReq{Bucket: []byte(bucket), Type: wireType(bucketType)}
	resp, err := c.Request(ctx, pbc.CodeGetBucketReq, req, pbc.CodeGetBucketResp)
	if err != nil {
		return nil, err
	}
	return decodeBucketProps(resp.(*pbc.GetBucketResp).Props), nil
}

// SetBucketProps changes the properties of a bucket.
func (c *Connection) SetBucketProps(ctx context.Context, bucketType, bucket string, props *BucketProps) error {
	req := &pbc.SetBucketReq{Bucket: []byte(bucket), Props: encodeBucketProps(props), Type: wireType(bucketType)}
	_, err := c.Request(ctx, pbc.CodeSetBucketReq, req, pbc.CodeSetBucketResp)
	return err
}

// ResetBucketProps restores the default properties of a bucket.
func (c *Connection) ResetBucketProps(ctx context.Context, bucketType, bucket string) error {
	req := &pbc.ResetBucketReq{Bucket: []byte(bucket), Type: wireType(bucketType)}
	_, err := c.Request(ctx, pbc.CodeResetBucketReq, req, pbc.CodeResetBucketResp)
	return err
}

// BucketTypeProps returns the properties of a bucket type.
func (c *Connection) BucketTypeProps(ctx context.Context, bucketType string) (*BucketProps, error) {
	req := &pbc.GetBucketTypeReq{Type: []byte(bucketType)}
	resp, err := c.Request(ctx, pbc.CodeGetBucketTypeReq, req, pbc.CodeGetBucketResp)
	if err != nil {
		return nil, err
	}
	return decodeBucketProps(resp.(*pbc.GetBucketResp).Props), nil
}

// SetBucketTypeProps changes the properties of a bucket type.
func (c *Connection) SetBucketTypeProps(ctx context.Context, bucketType string, props *BucketProps) error {
	req := &pbc.SetBucketTypeReq{Type: []byte(bucketType), Props: encodeBucketProps(props)}
	_, err := c.Request(ctx, pbc.CodeSetBucketTypeReq, req, pbc.CodeSetBucketResp)
	return err
}

// ListKeys returns every key of a bucket. This walks the whole keyspace of
// the cluster and is not meant for production traffic.
func (c *Connection) ListKeys(ctx context.Context, bucketType, bucket string) ([]string, error) {
	var keys []string
	err := c.StreamListKeys(ctx, bucketType, bucket, func(part []string) error {
		keys = append(keys, part...)
		return nil
	})
	return keys, err
}

// StreamListKeys calls fn with each part of the key listing, as received.
// An error from fn stops the listing and discards the connection.
func (c *Connection) StreamListKeys(ctx context.Context, bucketType, bucket string, fn func(keys []string) error) error {
	req := &pbc.ListKeysReq{Bucket: []byte(bucket), Type: wireType(bucketType)}
	return c.stream(ctx, pbc.CodeListKeysReq, req, pbc.CodeListKeysResp, func(msg pbc.Message) error {
		if keys := msg.(*pbc.ListKeysResp).Keys; len(keys) > 0 {
			return fn(stringsOf(keys))
		}
		return nil
	})
}

// ListBuckets returns the buckets of a bucket type.
func (c *Connection) ListBuckets(ctx context.Context, bucketType string) ([]string, error) {
	stream := true
	req := &pbc.ListBucketsReq{Stream: &stream, Type: wireType(bucketType)}

	var buckets []string
	err := c.stream(ctx, pbc.CodeListBucketsReq, req, pbc.CodeListBucketsResp, func(msg pbc.Message) error {
		buckets = append(buckets, stringsOf(msg.(*pbc.ListBucketsResp).Buckets)...)
		return nil
	})
	return buckets, err
}

// FetchDatatype fetches a convergent datatype.
func (c *Connection) FetchDatatype(ctx context.Context, loc Location, opts FetchDatatypeOptions) (*DatatypeValue, error) {
	req, err := encodeDtFetchReq(loc, opts)
	if err != nil {
		return nil, err
	}
	resp, err := c.Request(ctx, pbc.CodeDtFetchReq, req, pbc.CodeDtFetchResp)
	if err != nil {
		return nil, err
	}
	return decodeDtFetchResp(resp.(*pbc.DtFetchResp)), nil
}

// UpdateDatatype sends an operation on a convergent datatype. The returned
// value holds the new value only with ReturnBody, and the generated key when
// loc has no key.
//
// Removals without opts.Context fail with ErrContextRequired before anything
// is sent.
func (c *Connection) UpdateDatatype(ctx context.Context, loc Location, op DatatypeOp, opts UpdateDatatypeOptions) (*DatatypeValue, error) {
	req, err := encodeDtUpdateReq(loc, op, opts)
	if err != nil {
		return nil, err
	}
	resp, err := c.Request(ctx, pbc.CodeDtUpdateReq, req, pbc.CodeDtUpdateResp)
	if err != nil {
		return nil, err
	}
	return decodeDtUpdateResp(resp.(*pbc.DtUpdateResp), op.dataType()), nil
}

// MapReduce runs a job and collects the results of every phase.
func (c *Connection) MapReduce(ctx context.Context, job []byte, contentType string) (MapReduceResult, error) {
	result := MapReduceResult{}
	err := c.StreamMapReduce(ctx, job, contentType, func(phase uint32, data json.RawMessage) error {
		return mergeMapRedResp(result, &pbc.MapRedResp{Phase: &phase, Response: data})
	})
	return result, err
}

// StreamMapReduce runs a job and calls fn with each part of the result, as
// received.
func (c *Connection) StreamMapReduce(ctx context.Context, job []byte, contentType string, fn func(phase uint32, data json.RawMessage) error) error {
	req := &pbc.MapRedReq{Request: job, ContentType: []byte(contentType)}
	return c.stream(ctx, pbc.CodeMapRedReq, req, pbc.CodeMapRedResp, func(msg pbc.Message) error {
		resp := msg.(*pbc.MapRedResp)
		if resp.Phase == nil || len(resp.Response) == 0 {
			return nil
		}
		return fn(*resp.Phase, resp.Response)
	})
}

// IndexQuery runs a secondary index query and returns one page of results.
func (c *Connection) IndexQuery(ctx context.Context, q IndexQuery) (*IndexResult, error) {
	req, err := encodeIndexReq(q)
	if err != nil {
		return nil, err
	}
	resp, err := c.Request(ctx, pbc.CodeIndexReq, req, pbc.CodeIndexResp)
	if err != nil {
		return nil, err
	}
	result := &IndexResult{}
	mergeIndexResp(result, resp.(*pbc.IndexResp))
	return result, nil
}

// StreamIndexQuery runs a secondary index query with a streamed response and
// calls fn with each part.
func (c *Connection) StreamIndexQuery(ctx context.Context, q IndexQuery, fn func(part *IndexResult) error) error {
	req, err := encodeIndexReq(q)
	if err != nil {
		return err
	}
	stream := true
	req.Stream = &stream
	return c.stream(ctx, pbc.CodeIndexReq, req, pbc.CodeIndexResp, func(msg pbc.Message) error {
		part := &IndexResult{}
		mergeIndexResp(part, msg.(*pbc.IndexResp))
		return fn(part)
	})
}

// stream runs a streaming request and hands every part to fn.
func (c *Connection) stream(ctx context.Context, code pbc.Code, msg pbc.Message, expect pbc.Code, fn func(pbc.Message) error) error {
	s, err := c.StreamRequest(ctx, code, msg, expect)
	if err != nil {
		return err
	}
	defer s.Close()

	for s.Next() {
		if err := fn(s.Message()); err != nil {
			return fmt.Errorf("riak: %s stream stopped: %w", code, err)
		}
	}
	return s.Err()
}
