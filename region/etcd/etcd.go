// Package etcd provides an etcd-backed implementation of the region
// directory interface.
//
// The placement service keeps one record per region under a common meta
// prefix, keyed by the region's start key and encoded with msgpack. Resolving
// a key fetches the record with the largest start key not greater than the
// key and verifies that the recorded range still covers it.
package etcd

import (
	"context"
	"fmt"

	etcd "go.etcd.io/etcd/client/v3"

	"github.com/tarantool/go-rangekv/internal/options"
	"github.com/tarantool/go-rangekv/region"
)

// DefaultPrefix is the default meta prefix region records live under.
const DefaultPrefix = "/rangekv/regions/"

// Client defines the minimal etcd interface needed by the directory.
// *etcd.Client implements it; tests may substitute a mock.
type Client interface {
	// Get retrieves keys from etcd.
	Get(ctx context.Context, key string, opts ...etcd.OpOption) (*etcd.GetResponse, error)
	// Put stores a key in etcd.
	Put(ctx context.Context, key, val string, opts ...etcd.OpOption) (*etcd.PutResponse, error)
}

// directoryOptions contains configuration options for the directory.
type directoryOptions struct {
	Prefix string // Meta prefix for region records.
}

// Option is a function that configures directory options.
type Option = options.OptionCallback[directoryOptions]

// WithPrefix configures the meta prefix region records are stored under.
func WithPrefix(prefix string) Option {
	return func(opts *directoryOptions) {
		opts.Prefix = prefix
	}
}

// Directory is an authoritative region.Directory reading descriptors from
// etcd. It performs no caching of its own; wrap it in a region.Cache.
type Directory struct {
	client Client
	prefix string
}

var _ region.Directory = &Directory{}

// New creates a new etcd-backed directory. The client should be properly
// configured and connected to the placement service's etcd cluster.
func New(client Client, opts ...Option) *Directory {
	resolved := options.ApplyOptions(func() directoryOptions {
		return directoryOptions{Prefix: DefaultPrefix}
	}, opts)

	return &Directory{client: client, prefix: resolved.Prefix}
}

// Resolve implements the region.Directory interface. Any etcd failure and any
// gap in the recorded region table surface as region.ErrUnavailable so the
// retry layer treats them as transient.
func (d *Directory) Resolve(ctx context.Context, key []byte) (region.Routing, error) {
	// The owning region has the largest start key not greater than key, so
	// read the last record in [prefix, prefix+key+\x00).
	rangeEnd := d.prefix + string(key) + "\x00"

	resp, err := d.client.Get(ctx, d.prefix,
		etcd.WithRange(rangeEnd),
		etcd.WithSort(etcd.SortByKey, etcd.SortDescend),
		etcd.WithLimit(1),
	)
	if err != nil {
		return region.Routing{}, fmt.Errorf("%w: %s", region.ErrUnavailable, err)
	}

	if len(resp.Kvs) == 0 {
		return region.Routing{}, fmt.Errorf("%w: no region record covers key", region.ErrUnavailable)
	}

	desc, err := decodeRecord(resp.Kvs[0].Value)
	if err != nil {
		return region.Routing{}, fmt.Errorf("%w: %s", region.ErrUnavailable, err)
	}

	if !desc.Contains(key) {
		return region.Routing{}, fmt.Errorf(
			"%w: region %d no longer covers key", region.ErrUnavailable, desc.ID)
	}

	return region.Routing{Region: desc, Store: desc.Leader}, nil
}

// Invalidate implements the region.Directory interface. The directory is
// authoritative and keeps no cache, so there is nothing to discard.
func (d *Directory) Invalidate(uint64) {}

// Publish writes a region record, replacing any previous record with the same
// start key. It is used by placement tooling and integration tests.
func (d *Directory) Publish(ctx context.Context, desc region.Descriptor) error {
	value, err := encodeRecord(desc)
	if err != nil {
		return err
	}

	if _, err := d.client.Put(ctx, d.prefix+string(desc.StartKey), string(value)); err != nil {
		return fmt.Errorf("publish region record: %w", err)
	}

	return nil
}
