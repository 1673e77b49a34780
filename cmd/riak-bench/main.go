package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pior/riak"
)

type OperationType string

const (
	ReadHit   OperationType = "read-hit"
	WriteRead OperationType = "write-read"
	ReadMiss  OperationType = "read-miss"
	Counter   OperationType = "counter"
	Delete    OperationType = "delete"
	All       OperationType = "all"
)

const benchValue = "riak-bench-value"

type BenchmarkResult struct {
	Operation    OperationType
	Duration     time.Duration
	TotalOps     int64
	Successes    int64
	Failures     int64
	AvgLatency   time.Duration
	OpsPerSecond float64
	Correctness  bool
	ErrorMessage string
}

// step is one timed operation. A false ok with a nil error is a wrong result.
type step func(ctx context.Context, worker, n int) (ok bool, err error)

type bench struct {
	client      *riak.Client
	bucket      *riak.Bucket
	counters    *riak.Bucket
	duration    time.Duration
	concurrency int
}

func main() {
	var (
		operation   = flag.String("operation", "all", "Operation type: read-hit, write-read, read-miss, counter, delete, or all")
		duration    = flag.Duration("duration", 5*time.Second, "Duration to run benchmarks")
		concurrency = flag.Int("concurrency", 1, "Number of concurrent workers")
		nodes       = flag.String("nodes", "localhost:8087", "Comma-separated list of Riak nodes")
		bucket      = flag.String("bucket", "riak-bench", "Bucket used for objects")
		counterType = flag.String("counter-type", "counters", "Bucket type holding counters")
		maxConns    = flag.Int("max-conns", 20, "Maximum connections per node")
	)
	flag.Parse()

	fmt.Printf("Riak Benchmark Tool\n")
	fmt.Printf("===================\n")
	fmt.Printf("Operation: %s\n", *operation)
	fmt.Printf("Duration: %v\n", *duration)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Nodes: %s\n", *nodes)
	fmt.Println()

	client, err := riak.NewClient(riak.NewStaticNodes(strings.Split(*nodes, ",")...), riak.Config{
		MaxSize:             int32(*maxConns),
		MaxConnIdleTime:     5 * time.Minute,
		HealthCheckInterval: 30 * time.Second,
	})
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	fmt.Print("Testing connection...")
	if err := client.Ping(context.Background()); err != nil {
		fmt.Printf(" failed: %v\n", err)
		fmt.Printf("Make sure Riak is listening for Protocol Buffers on %s\n", *nodes)
		return
	}
	fmt.Println(" success!")
	fmt.Println()

	b := &bench{
		client:      client,
		bucket:      client.Bucket(*bucket),
		counters:    client.BucketType(*counterType).Bucket(*bucket),
		duration:    *duration,
		concurrency: *concurrency,
	}

	if OperationType(*operation) == All {
		for _, op := range []OperationType{ReadHit, WriteRead, ReadMiss, Counter, Delete} {
			fmt.Printf("\n--- Running %s benchmark ---\n", op)
			printResult(b.runOperation(op))
			time.Sleep(500 * time.Millisecond)
		}
	} else {
		printResult(b.runOperation(OperationType(*operation)))
	}

	for _, s := range client.AllPoolStats() {
		fmt.Printf("Pool %s: created=%d destroyed=%d waits=%d errors=%d\n",
			s.Addr, s.PoolStats.CreatedConns, s.PoolStats.DestroyedConns, s.PoolStats.AcquireWaitCount, s.PoolStats.AcquireErrors)
	}
}

func (b *bench) runOperation(op OperationType) *BenchmarkResult {
	switch op {
	case ReadHit:
		return b.readHit()
	case WriteRead:
		return b.run(op, b.writeRead)
	case ReadMiss:
		return b.run(op, b.readMiss)
	case Counter:
		return b.run(op, b.increment)
	case Delete:
		return b.run(op, b.writeDelete)
	}
	return &BenchmarkResult{Operation: op, ErrorMessage: fmt.Sprintf("Unknown operation: %s", op)}
}

// run calls fn from every worker until the duration is over.
func (b *bench) run(op OperationType, fn step) *BenchmarkResult {
	ctx := context.Background()
	result := &BenchmarkResult{Operation: op, Correctness: true}

	var totalOps, successes, failures, totalLatency atomic.Int64
	var mismatch atomic.Bool

	startTime := time.Now()
	var wg sync.WaitGroup
	for worker := range b.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; time.Since(startTime) < b.duration; n++ {
				opStart := time.Now()
				ok, err := fn(ctx, worker, n)
				totalOps.Add(1)
				totalLatency.Add(int64(time.Since(opStart)))

				switch {
				case err != nil:
					failures.Add(1)
				case !ok:
					failures.Add(1)
					mismatch.Store(true)
				default:
					successes.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	result.Duration = time.Since(startTime)
	result.TotalOps = totalOps.Load()
	result.Successes = successes.Load()
	result.Failures = failures.Load()
	if mismatch.Load() {
		result.Correctness = false
		result.ErrorMessage = "Unexpected value returned"
	}
	if result.TotalOps > 0 {
		result.AvgLatency = time.Duration(totalLatency.Load() / result.TotalOps)
		result.OpsPerSecond = float64(result.TotalOps) / result.Duration.Seconds()
	}
	return result
}

func (b *bench) store(ctx context.Context, key, value string) error {
	obj := b.bucket.NewObject(key)
	if err := obj.SetContentType(riak.ContentTypeText); err != nil {
		return err
	}
	if err := obj.SetValue([]byte(value)); err != nil {
		return err
	}
	return obj.Store(ctx, riak.PutOptions{})
}

func (b *bench) fetch(ctx context.Context, key string) (string, bool, error) {
	obj, err := b.bucket.Get(ctx, key, riak.GetOptions{Resolver: riak.LastWriteWinsResolver})
	if err != nil || !obj.Exists() {
		return "", false, err
	}
	value, err := obj.Value()
	return string(value), true, err
}

// readHit stores one object then reads it over and over.
func (b *bench) readHit() *BenchmarkResult {
	ctx := context.Background()
	key := "read-hit-key"

	fmt.Printf("Storing initial value for read-hit test...\n")
	if err := b.store(ctx, key, benchValue); err != nil {
		return &BenchmarkResult{Operation: ReadHit, ErrorMessage: fmt.Sprintf("Failed to store initial value: %v", err)}
	}

	return b.run(ReadHit, func(ctx context.Context, _, _ int) (bool, error) {
		value, found, err := b.fetch(ctx, key)
		return found && value == benchValue, err
	})
}

func (b *bench) writeRead(ctx context.Context, worker, n int) (bool, error) {
	key := fmt.Sprintf("write-read-%d-%d", worker, n)
	value := fmt.Sprintf("value-%d-%d", worker, n)
	if err := b.store(ctx, key, value); err != nil {
		return false, err
	}
	got, found, err := b.fetch(ctx, key)
	return found && got == value, err
}

func (b *bench) readMiss(ctx context.Context, worker, n int) (bool, error) {
	_, found, err := b.fetch(ctx, fmt.Sprintf("missing-%d-%d-%d", time.Now().UnixNano(), worker, n))
	return !found, err
}

func (b *bench) increment(ctx context.Context, worker, _ int) (bool, error) {
	c := b.counters.Counter(fmt.Sprintf("counter-%d", worker))
	c.Increment(1)
	if err := c.Update(ctx, riak.UpdateDatatypeOptions{}); err != nil {
		return false, err
	}
	return c.Value() > 0, nil
}

func (b *bench) writeDelete(ctx context.Context, worker, n int) (bool, error) {
	key := fmt.Sprintf("delete-%d-%d", worker, n)
	if err := b.store(ctx, key, benchValue); err != nil {
		return false, err
	}
	err := b.bucket.Delete(ctx, key, riak.DeleteOptions{})
	return err == nil, err
}

func printResult(result *BenchmarkResult) {
	fmt.Printf("Operation: %s\n", result.Operation)
	fmt.Printf("Duration: %v\n", result.Duration)
	fmt.Printf("Total Operations: %d\n", result.TotalOps)
	fmt.Printf("Successes: %d\n", result.Successes)
	fmt.Printf("Failures: %d\n", result.Failures)
	if result.TotalOps > 0 {
		fmt.Printf("Success Rate: %.2f%%\n", float64(result.Successes)/float64(result.TotalOps)*100)
		fmt.Printf("Ops/sec: %.2f\n", result.OpsPerSecond)
		fmt.Printf("Avg Latency: %v\n", result.AvgLatency)
	}
	fmt.Printf("Correctness: %t\n", result.Correctness)
	if result.ErrorMessage != "" {
		fmt.Printf("Error: %s\n", result.ErrorMessage)
	}
	fmt.Println()
}
