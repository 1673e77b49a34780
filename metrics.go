package riak

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// WritePrometheus writes the client and pool statistics in the Prometheus
// text format.
//
// The set is rebuilt on each call from Stats and AllPoolStats, so nothing is
// registered globally and several clients can be exposed side by side.
func (c *Client) WritePrometheus(w io.Writer) {
	set := metrics.NewSet()

	s := c.Stats()
	clientCounter(set, "riak_client_gets_total", s.Gets)
	clientCounter(set, "riak_client_get_hits_total", s.GetHits)
	clientCounter(set, "riak_client_puts_total", s.Puts)
	clientCounter(set, "riak_client_deletes_total", s.Deletes)
	clientCounter(set, "riak_client_datatype_fetches_total", s.DatatypeFetches)
	clientCounter(set, "riak_client_datatype_updates_total", s.DatatypeUpdates)
	clientCounter(set, "riak_client_queries_total", s.Queries)
	clientCounter(set, "riak_client_errors_total", s.Errors)

	for _, ns := range c.AllPoolStats() {
		p := ns.PoolStats
		nodeGauge(set, "riak_pool_connections_total", ns.Addr, float64(p.TotalConns))
		nodeGauge(set, "riak_pool_connections_idle", ns.Addr, float64(p.IdleConns))
		nodeGauge(set, "riak_pool_connections_active", ns.Addr, float64(p.ActiveConns))
		nodeGauge(set, "riak_pool_circuit_breaker_state", ns.Addr, float64(ns.CircuitBreakerState))

		nodeCounter(set, "riak_pool_acquires_total", ns.Addr, p.AcquireCount)
		nodeCounter(set, "riak_pool_acquire_waits_total", ns.Addr, p.AcquireWaitCount)
		nodeCounter(set, "riak_pool_acquire_errors_total", ns.Addr, p.AcquireErrors)
		nodeCounter(set, "riak_pool_connections_created_total", ns.Addr, p.CreatedConns)
		nodeCounter(set, "riak_pool_connections_destroyed_total", ns.Addr, p.DestroyedConns)
		set.GetOrCreateFloatCounter(nodeMetric("riak_pool_acquire_wait_seconds_total", ns.Addr)).
			Set(float64(p.AcquireWaitTimeNs) / 1e9)
	}

	set.WritePrometheus(w)
}

func nodeMetric(name, addr string) string {
	return fmt.Sprintf("%s{node=%q}", name, addr)
}

func clientCounter(set *metrics.Set, name string, v uint64) {
	set.GetOrCreateCounter(name).Set(v)
}

func nodeCounter(set *metrics.Set, name, addr string, v uint64) {
	set.GetOrCreateCounter(nodeMetric(name, addr)).Set(v)
}

func nodeGauge(set *metrics.Set, name, addr string, v float64) {
	set.GetOrCreateGauge(nodeMetric(name, addr), func() float64 { return v })
}
