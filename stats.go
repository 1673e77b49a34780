package riak

import (
	"sync/atomic"
	"time"
)

// PoolStats contains statistics about a connection pool.
//
// Struct is sized to a single cache line (64 bytes), largest fields first.
//
// For Prometheus integration, see WritePrometheus, which exposes:
//   - Gauges: TotalConns, IdleConns, ActiveConns
//   - Counters: AcquireCount, AcquireWaitCount, CreatedConns, DestroyedConns, AcquireErrors
//   - Counter: AcquireWaitTimeNs, as seconds
type PoolStats struct {
	AcquireCount      uint64 // Total acquire attempts
	AcquireWaitCount  uint64 // Acquires that waited on the admission gate
	CreatedConns      uint64 // Total connections established
	DestroyedConns    uint64 // Total connections destroyed
	AcquireErrors     uint64 // Failed acquire attempts
	AcquireWaitTimeNs uint64 // Total nanoseconds spent waiting

	TotalConns  int32 // Established connections (active + idle)
	IdleConns   int32 // Connections in the ready list
	ActiveConns int32 // Connections checked out
	_           int32
}

// ClientStats contains statistics about client operations.
//
// Struct is sized to a single cache line (64 bytes).
type ClientStats struct {
	Gets            uint64 // Object fetches
	GetHits         uint64 // Object fetches that found the object
	Puts            uint64 // Object stores
	Deletes         uint64 // Object deletes
	DatatypeFetches uint64 // Datatype fetches
	DatatypeUpdates uint64 // Datatype updates
	Queries         uint64 // Listings, index queries and MapReduce jobs
	Errors          uint64 // Failed operations of any kind
}

// poolStatsCollector updates pool counters. Gauges are filled in by the
// pools, which know their own state.
type poolStatsCollector struct {
	stats PoolStats
}

func newPoolStatsCollector() *poolStatsCollector {
	return &poolStatsCollector{}
}

func (c *poolStatsCollector) recordAcquire() {
	atomic.AddUint64(&c.stats.AcquireCount, 1)
}

func (c *poolStatsCollector) recordAcquireWait(d time.Duration) {
	atomic.AddUint64(&c.stats.AcquireWaitCount, 1)
	atomic.AddUint64(&c.stats.AcquireWaitTimeNs, uint64(d.Nanoseconds()))
}

func (c *poolStatsCollector) recordCreate() {
	atomic.AddUint64(&c.stats.CreatedConns, 1)
}

func (c *poolStatsCollector) recordDestroy() {
	atomic.AddUint64(&c.stats.DestroyedConns, 1)
}

func (c *poolStatsCollector) recordAcquireError() {
	atomic.AddUint64(&c.stats.AcquireErrors, 1)
}

func (c *poolStatsCollector) snapshot() PoolStats {
	return PoolStats{
		AcquireCount:      atomic.LoadUint64(&c.stats.AcquireCount),
		AcquireWaitCount:  atomic.LoadUint64(&c.stats.AcquireWaitCount),
		CreatedConns:      atomic.LoadUint64(&c.stats.CreatedConns),
		DestroyedConns:    atomic.LoadUint64(&c.stats.DestroyedConns),
		AcquireErrors:     atomic.LoadUint64(&c.stats.AcquireErrors),
		AcquireWaitTimeNs: atomic.LoadUint64(&c.stats.AcquireWaitTimeNs),
	}
}

// clientStatsCollector updates client counters.
type clientStatsCollector struct {
	stats ClientStats
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{}
}

func (c *clientStatsCollector) recordGet(found bool) {
	atomic.AddUint64(&c.stats.Gets, 1)
	if found {
		atomic.AddUint64(&c.stats.GetHits, 1)
	}
}

func (c *clientStatsCollector) recordPut() {
	atomic.AddUint64(&c.stats.Puts, 1)
}

func (c *clientStatsCollector) recordDelete() {
	atomic.AddUint64(&c.stats.Deletes, 1)
}

func (c *clientStatsCollector) recordDatatypeFetch() {
	atomic.AddUint64(&c.stats.DatatypeFetches, 1)
}

func (c *clientStatsCollector) recordDatatypeUpdate() {
	atomic.AddUint64(&c.stats.DatatypeUpdates, 1)
}

func (c *clientStatsCollector) recordQuery() {
	atomic.AddUint64(&c.stats.Queries, 1)
}

func (c *clientStatsCollector) recordError() {
	atomic.AddUint64(&c.stats.Errors, 1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Gets:            atomic.LoadUint64(&c.stats.Gets),
		GetHits:         atomic.LoadUint64(&c.stats.GetHits),
		Puts:            atomic.LoadUint64(&c.stats.Puts),
		Deletes:         atomic.LoadUint64(&c.stats.Deletes),
		DatatypeFetches: atomic.LoadUint64(&c.stats.DatatypeFetches),
		DatatypeUpdates: atomic.LoadUint64(&c.stats.DatatypeUpdates),
		Queries:         atomic.LoadUint64(&c.stats.Queries),
		Errors:          atomic.LoadUint64(&c.stats.Errors),
	}
}
