package riak

import (
	"context"
	"time"
)

// Pool manages connections to a single node.
type Pool interface {
	// Acquire returns a connection, blocking while every connection is in use.
	Acquire(ctx context.Context) (Resource, error)

	// AcquireAllIdle checks out every idle connection, for health checks.
	AcquireAllIdle() []Resource

	// Close closes the pool and its connections.
	Close()

	Stats() PoolStats
}

// Resource is a connection checked out of a Pool. Exactly one of Release,
// ReleaseUnused or Destroy must be called.
type Resource interface {
	Value() *Connection

	// Release returns the connection to the pool.
	Release()

	// ReleaseUnused returns the connection without counting it as used.
	ReleaseUnused()

	// Destroy closes the connection and frees its slot.
	Destroy()

	CreationTime() time.Time
	IdleDuration() time.Duration
}

// PoolFactory creates a pool of at most maxSize connections built by constructor.
type PoolFactory func(constructor func(ctx context.Context) (*Connection, error), maxSize int32) (Pool, error)

// With runs fn with a connection from pool.
//
// The connection is returned to the pool on every exit path. It is destroyed
// instead when fn leaves it broken, or when fn panics, since the framing
// state is then unknown.
func With(ctx context.Context, pool Pool, fn func(conn *Connection) error) error {
	res, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}

	released := false
	defer func() {
		if !released {
			res.Destroy()
		}
	}()

	err = fn(res.Value())

	released = true
	if res.Value().IsBroken() || res.Value().IsClosed() {
		res.Destroy()
	} else {
		res.Release()
	}
	return err
}
