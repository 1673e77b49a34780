package riak

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pior/riak/internal/coarsetime"
)

// NewGatePool creates the default pool.
//
// A counting admission gate sized maxSize bounds the connections checked out
// at once: Acquire blocks on the gate rather than failing. An admitted caller
// establishes a new connection while fewer than maxSize exist, and otherwise
// takes one from the ready list. Connections are never closed implicitly;
// the count only shrinks when a connection is destroyed.
//
// Close is a hard cutover: idle connections are closed, and so are the
// connections still checked out, whose in-flight requests fail.
func NewGatePool(constructor func(ctx context.Context) (*Connection, error), maxSize int32) (Pool, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("riak: pool size must be positive, got %d", maxSize)
	}
	return &gatePool{
		constructor: constructor,
		maxSize:     maxSize,
		gate:        semaphore.NewWeighted(int64(maxSize)),
		checkedOut:  make(map[*gateResource]struct{}),
		stats:       newPoolStatsCollector(),
	}, nil
}

// gateResource implements Resource for the gate pool.
type gateResource struct {
	conn         *Connection
	pool         *gatePool
	creationTime time.Time
	lastUsedTime time.Time
}

func (r *gateResource) Value() *Connection {
	return r.conn
}

func (r *gateResource) Release() {
	r.lastUsedTime = coarsetime.Now()
	r.pool.put(r)
}

func (r *gateResource) ReleaseUnused() {
	r.pool.put(r)
}

func (r *gateResource) Destroy() {
	r.pool.destroy(r)
}

func (r *gateResource) CreationTime() time.Time {
	return r.creationTime
}

func (r *gateResource) IdleDuration() time.Duration {
	return time.Since(r.lastUsedTime)
}

type gatePool struct {
	constructor func(ctx context.Context) (*Connection, error)
	maxSize     int32
	gate        *semaphore.Weighted

	// mu guards the fields below. Never wait on the gate with mu held.
	mu         sync.Mutex
	total      int32 // established and not destroyed, including in-progress dials
	ready      []*gateResource
	checkedOut map[*gateResource]struct{}
	closed     bool

	stats *poolStatsCollector
}

func (p *gatePool) Acquire(ctx context.Context) (Resource, error) {
	p.stats.recordAcquire()

	if !p.gate.TryAcquire(1) {
		waitStart := coarsetime.Now()
		if err := p.gate.Acquire(ctx, 1); err != nil {
			p.stats.recordAcquireError()
			return nil, err
		}
		p.stats.recordAcquireWait(time.Since(waitStart))
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.gate.Release(1)
		p.stats.recordAcquireError()
		return nil, ErrPoolClosed
	}

	if p.total < p.maxSize {
		// one slot is reserved under the lock so two callers never race for it
		p.total++
		p.mu.Unlock()
		return p.establish(ctx)
	}

	// admitted with every connection established: one is ready
	n := len(p.ready)
	res := p.ready[n-1]
	p.ready[n-1] = nil
	p.ready = p.ready[:n-1]
	p.checkedOut[res] = struct{}{}
	p.mu.Unlock()

	return res, nil
}

// establish dials a connection for a slot already counted in total.
func (p *gatePool) establish(ctx context.Context) (Resource, error) {
	conn, err := p.constructor(ctx)
	if err != nil {
		p.mu.Lock()
		p.total--
		p.mu.Unlock()
		p.gate.Release(1)
		p.stats.recordAcquireError()
		return nil, err
	}

	now := coarsetime.Now()
	res := &gateResource{
		conn:         conn,
		pool:         p,
		creationTime: now,
		lastUsedTime: now,
	}

	p.mu.Lock()
	if p.closed {
		p.total--
		p.mu.Unlock()
		conn.Close()
		p.gate.Release(1)
		p.stats.recordAcquireError()
		return nil, ErrPoolClosed
	}
	p.checkedOut[res] = struct{}{}
	p.mu.Unlock()

	p.stats.recordCreate()
	return res, nil
}

// put returns a connection to the ready list, then reopens the gate.
func (p *gatePool) put(res *gateResource) {
	p.mu.Lock()
	if _, ok := p.checkedOut[res]; !ok {
		// already handed back
		p.mu.Unlock()
		return
	}
	delete(p.checkedOut, res)
	if p.closed {
		p.total--
		p.mu.Unlock()
		res.conn.Close()
		p.gate.Release(1)
		p.stats.recordDestroy()
		return
	}
	p.ready = append(p.ready, res)
	p.mu.Unlock()

	p.gate.Release(1)
}

func (p *gatePool) destroy(res *gateResource) {
	res.conn.Close()

	p.mu.Lock()
	if _, ok := p.checkedOut[res]; !ok {
		p.mu.Unlock()
		return
	}
	delete(p.checkedOut, res)
	p.total--
	p.mu.Unlock()

	p.gate.Release(1)
	p.stats.recordDestroy()
}

// AcquireAllIdle checks out the idle connections, as far as the gate admits
// them without waiting.
func (p *gatePool) AcquireAllIdle() []Resource {
	p.mu.Lock()
	defer p.mu.Unlock()

	var idle []Resource
	for len(p.ready) > 0 && p.gate.TryAcquire(1) {
		n := len(p.ready)
		res := p.ready[n-1]
		p.ready[n-1] = nil
		p.ready = p.ready[:n-1]
		p.checkedOut[res] = struct{}{}
		idle = append(idle, res)
	}
	return idle
}

// Close closes every connection, including those checked out.
func (p *gatePool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	ready := p.ready
	p.ready = nil
	inUse := make([]*gateResource, 0, len(p.checkedOut))
	for res := range p.checkedOut {
		inUse = append(inUse, res)
	}
	p.total -= int32(len(ready))
	p.mu.Unlock()

	for _, res := range ready {
		res.conn.Close()
		p.stats.recordDestroy()
	}

	// hard cutover: holders see their requests fail, then Release or
	// Destroy frees the slot
	for _, res := range inUse {
		res.conn.Close()
	}
}

// Stats returns a snapshot of pool statistics.
func (p *gatePool) Stats() PoolStats {
	s := p.stats.snapshot()

	p.mu.Lock()
	s.TotalConns = p.total
	s.IdleConns = int32(len(p.ready))
	s.ActiveConns = int32(len(p.checkedOut))
	p.mu.Unlock()

	return s
}
