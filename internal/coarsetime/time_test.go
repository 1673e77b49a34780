package coarsetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNowIsRecent(t *testing.T) {
	require.WithinDuration(t, time.Now(), Now(), 2*Resolution)
}

func TestNowAdvances(t *testing.T) {
	first := Now()
	require.Eventually(t, func() bool {
		return Now().After(first)
	}, time.Second, Resolution)
}

func BenchmarkTimeNow(b *testing.B) {
	var t time.Time

	b.Run("time", func(b *testing.B) {
		for b.Loop() {
			t = time.Now()
		}
	})

	b.Run("coarsetime", func(b *testing.B) {
		for b.Loop() {
			t = Now()
		}
	})

	_ = t
}
