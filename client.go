package riak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"github.com/pior/riak/internal/coarsetime"
)

const healthCheckTimeout = time.Second

// Config holds the configuration of a Client. Every node gets its own pool
// configured the same way.
type Config struct {
	// MaxSize is the maximum number of connections per node.
	// Required: must be > 0.
	MaxSize int32

	// MaxConnLifetime is the maximum duration a connection can be reused.
	// Zero means no limit.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime is the maximum duration a connection can be idle before being closed.
	// Zero means no limit.
	MaxConnIdleTime time.Duration

	// HealthCheckInterval is how often idle connections are pinged.
	// Zero disables health checks.
	HealthCheckInterval time.Duration

	// Dialer is the net.Dialer used to create new connections.
	// If nil, the default net.Dialer is used.
	Dialer *net.Dialer

	// Pool is the connection pool factory.
	// If nil, uses NewGatePool. NewPuddlePool is the alternative.
	Pool PoolFactory

	// SelectNode picks which node serves a key.
	// If nil, uses DefaultSelectNode.
	SelectNode SelectNodeFunc

	// NewCircuitBreaker creates a circuit breaker for a node.
	// Called once per node address when its pool is created.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(node string) *gobreaker.CircuitBreaker[bool]

	// Resolver is applied to fetched objects with siblings, unless the
	// bucket or the call sets one. If nil, siblings are kept.
	Resolver Resolver

	// ClientID, when set, is hashed into the client id sent on every new
	// connection. Leave empty to let the node pick one.
	ClientID string

	// Logger receives health check and connection failures.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// for testing purposes only
	constructor func(ctx context.Context) (*Connection, error)
}

func (c Config) withDefaults() Config {
	if c.Dialer == nil {
		c.Dialer = &net.Dialer{}
	}
	if c.Pool == nil {
		c.Pool = NewGatePool
	}
	if c.SelectNode == nil {
		c.SelectNode = DefaultSelectNode
	}
	if c.Resolver == nil {
		c.Resolver = DefaultResolver
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

type bucketKey struct {
	bucketType string
	name       string
}

// Client is a Riak client. It keeps a pool of connections per node and
// routes every request to the node chosen by Config.SelectNode.
//
// A Client is safe for concurrent use.
type Client struct {
	nodes  Nodes
	config Config
	logger *slog.Logger

	mu    sync.RWMutex
	pools map[string]*NodePool

	buckets     *xsync.MapOf[bucketKey, *Bucket]
	bucketTypes *xsync.MapOf[string, *BucketType]
	codecs      *ContentCodecs

	stopHealthCheck chan struct{}
	closeOnce       sync.Once
	closed          atomic.Bool

	stats *clientStatsCollector
}

// NewClient creates a client for the given nodes.
// For a single node, use: NewClient(NewStaticNodes("host:8087"), config)
func NewClient(nodes Nodes, config Config) (*Client, error) {
	if len(nodes.List()) == 0 {
		return nil, ErrNoNodes
	}
	if config.MaxSize <= 0 {
		return nil, fmt.Errorf("riak: MaxSize must be positive, got %d", config.MaxSize)
	}
	config = config.withDefaults()

	client := &Client{
		nodes:           nodes,
		config:          config,
		logger:          config.Logger,
		pools:           make(map[string]*NodePool),
		buckets:         xsync.NewMapOf[bucketKey, *Bucket](),
		bucketTypes:     xsync.NewMapOf[string, *BucketType](),
		codecs:          NewContentCodecs(),
		stopHealthCheck: make(chan struct{}),
		stats:           newClientStatsCollector(),
	}

	if config.HealthCheckInterval > 0 {
		go client.healthCheckLoop()
	}

	return client, nil
}

// Close stops the health checks and closes every pool. Requests in flight
// fail, and later requests return ErrClientClosed.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.stopHealthCheck)

		c.mu.Lock()
		defer c.mu.Unlock()
		for _, np := range c.pools {
			np.Close()
		}
	})
}

// SetContentCodec registers the codec used by Object.Encode and
// Object.Decode for a content type.
func (c *Client) SetContentCodec(contentType string, codec ContentCodec) {
	c.codecs.Register(contentType, codec)
}

// BucketType returns the bucket type with the given name. The same value is
// returned for the same name.
func (c *Client) BucketType(name string) *BucketType {
	if name == "" {
		name = DefaultBucketType
	}
	bt, _ := c.bucketTypes.LoadOrCompute(name, func() *BucketType {
		return &BucketType{client: c, name: name}
	})
	return bt
}

// Bucket returns a bucket of the default bucket type.
func (c *Client) Bucket(name string) *Bucket {
	return c.BucketType(DefaultBucketType).Bucket(name)
}

// ForgetBucket drops a bucket from the cache. The next call to Bucket
// returns a new value, with the client defaults.
func (c *Client) ForgetBucket(bucketType, name string) {
	if bucketType == "" {
		bucketType = DefaultBucketType
	}
	c.buckets.Delete(bucketKey{bucketType: bucketType, name: name})
}

func (c *Client) bucket(bucketType, name string) *Bucket {
	key := bucketKey{bucketType: bucketType, name: name}
	b, _ := c.buckets.LoadOrCompute(key, func() *Bucket {
		return &Bucket{client: c, bucketType: bucketType, name: name}
	})
	return b
}

// nodePool returns the pool of a node, creating it on first use.
func (c *Client) nodePool(addr string) (*NodePool, error) {
	c.mu.RLock()
	np, exists := c.pools[addr]
	c.mu.RUnlock()
	if exists {
		return np, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if np, exists := c.pools[addr]; exists {
		return np, nil
	}

	np, err := NewNodePool(addr, c.config)
	if err != nil {
		return nil, err
	}
	c.pools[addr] = np
	return np, nil
}

// Execute runs fn with a connection of the node serving key.
func (c *Client) Execute(ctx context.Context, key string, fn func(conn *Connection) error) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	addr, err := c.config.SelectNode(key, c.nodes.List())
	if err != nil {
		c.stats.recordError()
		return err
	}
	np, err := c.nodePool(addr)
	if err != nil {
		c.stats.recordError()
		return err
	}

	err = np.Execute(ctx, fn)
	if err != nil {
		c.stats.recordError()
		if !isLocalError(err) {
			c.logger.Debug("riak: request failed", "node", addr, "error", err)
		}
	}
	return err
}

// Ping checks every node, in parallel.
func (c *Client) Ping(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, addr := range c.nodes.List() {
		g.Go(func() error {
			np, err := c.nodePool(addr)
			if err != nil {
				return err
			}
			if err := np.Execute(ctx, func(conn *Connection) error { return conn.Ping(ctx) }); err != nil {
				return fmt.Errorf("riak: ping %s: %w", addr, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// ServerInfo returns the name and version of one node.
func (c *Client) ServerInfo(ctx context.Context) (ServerInfo, error) {
	var info ServerInfo
	err := c.Execute(ctx, "", func(conn *Connection) error {
		var err error
		info, err = conn.ServerInfo(ctx)
		return err
	})
	return info, err
}

// ListBuckets returns the buckets of a bucket type. This walks the whole
// keyspace of the cluster and is not meant for production traffic.
func (c *Client) ListBuckets(ctx context.Context, bucketType string) ([]string, error) {
	c.stats.recordQuery()

	var buckets []string
	err := c.Execute(ctx, bucketType, func(conn *Connection) error {
		var err error
		buckets, err = conn.ListBuckets(ctx, bucketType)
		return err
	})
	return buckets, err
}

// MapReduce returns a job builder bound to the client.
func (c *Client) MapReduce() *MapReduce {
	return &MapReduce{client: c}
}

func (c *Client) runMapReduce(ctx context.Context, job []byte) (MapReduceResult, error) {
	c.stats.recordQuery()

	var result MapReduceResult
	err := c.Execute(ctx, string(job), func(conn *Connection) error {
		var err error
		result, err = conn.MapReduce(ctx, job, ContentTypeMapReduce)
		return err
	})
	return result, err
}

func (c *Client) streamMapReduce(ctx context.Context, job []byte, fn func(phase uint32, data json.RawMessage) error) error {
	c.stats.recordQuery()

	return c.Execute(ctx, string(job), func(conn *Connection) error {
		return conn.StreamMapReduce(ctx, job, ContentTypeMapReduce, fn)
	})
}

// healthCheckLoop periodically checks idle connections for health and lifecycle limits.
func (c *Client) healthCheckLoop() {
	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopHealthCheck:
			return
		case <-ticker.C:
			c.checkAllPools()
		}
	}
}

func (c *Client) checkAllPools() {
	c.mu.RLock()
	pools := make([]*NodePool, 0, len(c.pools))
	for _, np := range c.pools {
		pools = append(pools, np)
	}
	c.mu.RUnlock()

	for _, np := range pools {
		c.checkPoolConnections(np)
	}
}

// checkPoolConnections pings the idle connections of a pool and destroys
// those that are stale or do not answer.
func (c *Client) checkPoolConnections(np *NodePool) {
	now := coarsetime.Now()

	for _, res := range np.pool.AcquireAllIdle() {
		if c.config.MaxConnLifetime > 0 && now.Sub(res.CreationTime()) > c.config.MaxConnLifetime {
			res.Destroy()
			continue
		}

		if c.config.MaxConnIdleTime > 0 && res.IdleDuration() > c.config.MaxConnIdleTime {
			res.Destroy()
			continue
		}

		if err := c.healthCheck(res.Value()); err != nil {
			c.logger.Warn("riak: health check failed", "node", np.addr, "error", err)
			res.Destroy()
			continue
		}

		res.ReleaseUnused()
	}
}

func (c *Client) healthCheck(conn *Connection) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return err
	}
	if conn.IsBroken() {
		return errors.New("riak: connection broken after ping")
	}
	return nil
}

// Stats returns a snapshot of client statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// AllPoolStats returns the stats of every node pool created so far.
func (c *Client) AllPoolStats() []NodePoolStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := make([]NodePoolStats, 0, len(c.pools))
	for _, np := range c.pools {
		stats = append(stats, np.Stats())
	}
	return stats
}
