package riak

import (
	"context"

	"github.com/sony/gobreaker/v2"
)

// NodePool holds the connections to one node, behind an optional circuit
// breaker.
type NodePool struct {
	addr           string
	pool           Pool
	circuitBreaker *gobreaker.CircuitBreaker[bool]
}

// NewNodePool creates the pool for the node at addr. Connections are dialed
// lazily, on the first Acquire.
func NewNodePool(addr string, config Config) (*NodePool, error) {
	config = config.withDefaults()

	constructor := config.constructor
	if constructor == nil {
		constructor = func(ctx context.Context) (*Connection, error) {
			return dialConnection(ctx, addr, config)
		}
	}

	pool, err := config.Pool(constructor, config.MaxSize)
	if err != nil {
		return nil, err
	}

	np := &NodePool{addr: addr, pool: pool}
	if config.NewCircuitBreaker != nil {
		np.circuitBreaker = config.NewCircuitBreaker(addr)
	}
	return np, nil
}

// dialConnection opens a connection and sets the client id when configured.
func dialConnection(ctx context.Context, addr string, config Config) (*Connection, error) {
	netConn, err := config.Dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	conn := NewConnection(netConn)

	if config.ClientID != "" {
		if err := conn.SetClientID(ctx, NewClientID(config.ClientID)); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

func (np *NodePool) Address() string {
	return np.addr
}

// NodePoolStats contains the stats of a single node pool.
type NodePoolStats struct {
	Addr                 string
	PoolStats            PoolStats
	CircuitBreakerState  gobreaker.State
	CircuitBreakerCounts gobreaker.Counts
}

func (np *NodePool) Stats() NodePoolStats {
	stats := NodePoolStats{
		Addr:      np.addr,
		PoolStats: np.pool.Stats(),
	}
	if np.circuitBreaker != nil {
		stats.CircuitBreakerState = np.circuitBreaker.State()
		stats.CircuitBreakerCounts = np.circuitBreaker.Counts()
	}
	return stats
}

// Execute runs fn with a connection of the node, through the circuit breaker.
// See With for how the connection is returned to the pool.
func (np *NodePool) Execute(ctx context.Context, fn func(conn *Connection) error) error {
	if np.circuitBreaker == nil {
		return With(ctx, np.pool, fn)
	}

	_, err := np.circuitBreaker.Execute(func() (bool, error) {
		return true, With(ctx, np.pool, fn)
	})
	return err
}

func (np *NodePool) Close() {
	np.pool.Close()
}
