package riak

import (
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestStatsStructSizes(t *testing.T) {
	require.Equal(t, uintptr(64), unsafe.Sizeof(PoolStats{}))
	require.Equal(t, uintptr(64), unsafe.Sizeof(ClientStats{}))
}

func TestPoolStatsCollector(t *testing.T) {
	c := newPoolStatsCollector()
	c.recordAcquire()
	c.recordAcquire()
	c.recordAcquireWait(3 * time.Millisecond)
	c.recordCreate()
	c.recordDestroy()
	c.recordAcquireError()

	require.Equal(t, PoolStats{
		AcquireCount:      2,
		AcquireWaitCount:  1,
		AcquireWaitTimeNs: uint64(3 * time.Millisecond),
		CreatedConns:      1,
		DestroyedConns:    1,
		AcquireErrors:     1,
	}, c.snapshot())
}

func TestClientStatsCollectorConcurrent(t *testing.T) {
	c := newClientStatsCollector()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				c.recordGet(i%2 == 0)
				c.recordQuery()
			}
		}()
	}
	wg.Wait()

	stats := c.snapshot()
	require.Equal(t, uint64(1000), stats.Gets)
	require.Equal(t, uint64(500), stats.GetHits)
	require.Equal(t, uint64(1000), stats.Queries)
	require.Zero(t, stats.Errors)
}
