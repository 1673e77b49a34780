package riak

import (
	"errors"
	"fmt"
)

var (
	ErrConnectionClosed = errors.New("riak: connection closed")
	ErrConnectionBroken = errors.New("riak: connection broken")
	ErrPoolClosed       = errors.New("riak: pool closed")
	ErrClientClosed     = errors.New("riak: client closed")
	ErrNoNodes          = errors.New("riak: no nodes available")

	// ErrContextRequired is returned when a removal is staged on a datatype
	// that was never fetched. Riak needs the causal context to remove
	// elements, so the operation is rejected before any request is sent.
	ErrContextRequired = errors.New("riak: removal requires a datatype context, fetch it first")

	// ErrDefaultBucketType is returned for datatype operations on the default
	// bucket type, which cannot hold convergent datatypes.
	ErrDefaultBucketType = errors.New("riak: datatypes cannot be used in the default bucket type")

	ErrNoOperation = errors.New("riak: no operation staged")
	ErrKeyRequired = errors.New("riak: key required")

	errUnboundObject = errors.New("riak: object is not bound to a bucket")
)

// ConflictError is returned by the single-value accessors of an Object that
// still holds several siblings. Resolve the siblings first, for example with
// a Resolver.
type ConflictError struct {
	Key      string
	Siblings int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("riak: object %q has %d siblings, resolve them first", e.Key, e.Siblings)
}
