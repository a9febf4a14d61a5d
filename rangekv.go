// Package rangekv provides raw key-value access to a range-sharded store.
//
// Keys are partitioned into contiguous regions owned by leader stores;
// every operation resolves its key through a region directory, executes
// against the resolved owner and retries under a bounded backoff when the
// resolution turns out to be stale. Scans cross region boundaries
// transparently.
package rangekv

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tarantool/go-option"
	"go.uber.org/zap"

	"github.com/tarantool/go-rangekv/internal/options"
	"github.com/tarantool/go-rangekv/kv"
	"github.com/tarantool/go-rangekv/region"
	"github.com/tarantool/go-rangekv/retry"
	"github.com/tarantool/go-rangekv/router"
	"github.com/tarantool/go-rangekv/transport"
)

// DefaultScanBatchSize is the number of pairs a scan fetches from a store
// per ranged read.
const DefaultScanBatchSize = 1024

var (
	// ErrEmptyKey is returned for single-key operations on an empty key.
	// It is fatal and never retried.
	ErrEmptyKey = errors.New("empty key")

	// ErrInvalidLimit is returned for limited scans with a non-positive
	// limit. It is fatal and never retried.
	ErrInvalidLimit = errors.New("scan limit must be positive")
)

// clientOptions contains configuration options for client instances.
type clientOptions struct {
	Backoff       retry.Backoff // Retry policy for store calls.
	Logger        *zap.Logger   // Structured logger, nop by default.
	ScanBatchSize int           // Pairs fetched per ranged read.
}

// Option is a function that configures client options.
type Option = options.OptionCallback[clientOptions]

// WithBackoff configures the retry backoff policy.
func WithBackoff(backoff retry.Backoff) Option {
	return func(opts *clientOptions) {
		opts.Backoff = backoff
	}
}

// WithLogger configures a structured logger for the client.
func WithLogger(logger *zap.Logger) Option {
	return func(opts *clientOptions) {
		opts.Logger = logger
	}
}

// WithScanBatchSize configures the number of pairs fetched per ranged read
// during scans.
func WithScanBatchSize(size int) Option {
	return func(opts *clientOptions) {
		if size > 0 {
			opts.ScanBatchSize = size
		}
	}
}

// Client is the entry point for raw key-value operations. It is safe for
// concurrent use; each operation is independent and blocking.
type Client struct {
	executor  *retry.Executor
	transport transport.Transport
	batchSize int
	logger    *zap.Logger
	closers   []io.Closer
}

// New creates a new Client routing through the given directory and executing
// store calls through the given transport. Wrap the authoritative directory
// in a region.Cache to avoid a directory round trip per operation.
func New(directory region.Directory, tr transport.Transport, opts ...Option) *Client {
	resolved := options.ApplyOptions(func() clientOptions {
		return clientOptions{
			Backoff:       retry.NewExponential(0, 0, 0),
			Logger:        zap.NewNop(),
			ScanBatchSize: DefaultScanBatchSize,
		}
	}, opts)

	return &Client{
		executor:  retry.NewExecutor(router.New(directory), resolved.Backoff, resolved.Logger),
		transport: tr,
		batchSize: resolved.ScanBatchSize,
		logger:    resolved.Logger,
	}
}

// Put stores value under key.
func (c *Client) Put(ctx context.Context, key, value []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}

	err := c.executor.Do(ctx, key, func(ctx context.Context, routing region.Routing) error {
		return c.transport.Put(ctx, routing, key, value)
	})
	if err != nil {
		return fmt.Errorf("put failed: %w", err)
	}

	return nil
}

// Get reads the value stored under key. A missing key is not an error: the
// returned option is None.
func (c *Client) Get(ctx context.Context, key []byte) (option.Generic[[]byte], error) {
	if len(key) == 0 {
		return option.None[[]byte](), ErrEmptyKey
	}

	var value option.Generic[[]byte]

	err := c.executor.Do(ctx, key, func(ctx context.Context, routing region.Routing) error {
		var opErr error
		value, opErr = c.transport.Get(ctx, routing, key)

		return opErr
	})
	if err != nil {
		return option.None[[]byte](), fmt.Errorf("get failed: %w", err)
	}

	return value, nil
}

// Delete removes key. Deleting a missing key succeeds.
func (c *Client) Delete(ctx context.Context, key []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}

	err := c.executor.Do(ctx, key, func(ctx context.Context, routing region.Routing) error {
		return c.transport.Delete(ctx, routing, key)
	})
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	return nil
}

// ScanRange reads all pairs in the half-open range [start, end) in ascending
// key order, crossing region boundaries as needed. An empty end scans to the
// end of the key space.
func (c *Client) ScanRange(ctx context.Context, start, end []byte) ([]kv.Pair, error) {
	return drain(ctx, c.RangeScanner(start, end))
}

// ScanLimit reads at most limit pairs starting at start in ascending key
// order: the lexicographically smallest limit keys not less than start.
func (c *Client) ScanLimit(ctx context.Context, start []byte, limit int) ([]kv.Pair, error) {
	scanner, err := c.LimitScanner(start, limit)
	if err != nil {
		return nil, err
	}

	return drain(ctx, scanner)
}

// Close releases resources owned by the client, such as connections opened by
// Connect. A client built with New over externally owned collaborators has
// nothing to close.
func (c *Client) Close() error {
	var firstErr error

	for _, closer := range c.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.closers = nil
	c.logger.Debug("client closed")

	return firstErr
}

func drain(ctx context.Context, scanner *Scanner) ([]kv.Pair, error) {
	var pairs []kv.Pair

	for {
		next, err := scanner.Next(ctx)
		if err != nil {
			return nil, err
		}

		if !next.IsSome() {
			return pairs, nil
		}

		pairs = append(pairs, next.UnwrapOr(kv.Pair{}))
	}
}
