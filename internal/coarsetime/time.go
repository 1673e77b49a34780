// Package coarsetime provides a clock refreshed every 10ms by a background
// goroutine, for timestamps taken on every pool acquire and release.
// The goroutine starts on the first call to Now.
package coarsetime

import (
	"sync"
	"sync/atomic"
	"time"
)

// Resolution is the maximum staleness of Now.
const Resolution = 10 * time.Millisecond

var (
	current atomic.Pointer[time.Time]
	start   sync.Once
)

func refresh() {
	t := time.Now()
	current.Store(&t)
}

func run() {
	refresh()
	go func() {
		ticker := time.NewTicker(Resolution)
		for range ticker.C {
			refresh()
		}
	}()
}

// Now returns the current time, at most Resolution old.
func Now() time.Time {
	start.Do(run)
	return *current.Load()
}
