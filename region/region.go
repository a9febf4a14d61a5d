// Package region defines the region descriptor model and the directory
// interface used to resolve keys to their current owners.
//
// The key space is partitioned into contiguous, non-overlapping regions. Each
// region is served by a leader store; ownership changes over time through
// splits, merges and leader transfers, so resolved descriptors may go stale
// and must be re-fetched through Directory.Invalidate + Directory.Resolve.
package region

import (
	"context"
	"errors"

	"github.com/tarantool/go-rangekv/kv"
)

// ErrUnavailable is returned by a Directory that cannot answer a resolution
// request, for example when contact with the placement service is lost.
// Callers treat it as a transient condition and retry under backoff.
var ErrUnavailable = errors.New("region directory unavailable")

// Descriptor describes a single region: the half-open key range it owns, its
// version and the address of its current leader store.
type Descriptor struct {
	// ID is the opaque region identifier.
	ID uint64
	// StartKey is the inclusive lower bound of the region's range.
	StartKey []byte
	// EndKey is the exclusive upper bound of the region's range.
	// An empty end key means the region extends to the end of the key space.
	EndKey []byte
	// Epoch is a monotonically increasing version, bumped on split and merge.
	Epoch uint64
	// Leader is the address of the store currently leading the region.
	Leader string
}

// Contains reports whether key falls into the region's range.
func (d Descriptor) Contains(key []byte) bool {
	return kv.Contains(d.StartKey, d.EndKey, key)
}

// Routing is the result of resolving a key: the owning region and the store
// address requests for that key should be sent to.
type Routing struct {
	// Region is the descriptor of the owning region.
	Region Descriptor
	// Store is the address of the store to contact.
	Store string
}

// Directory resolves keys to their current owners. Implementations must be
// safe for concurrent use: Resolve and Invalidate are called from every
// operation in flight.
type Directory interface {
	// Resolve returns the region and store currently believed to own key.
	// It returns an error wrapping ErrUnavailable when no answer can be
	// produced.
	Resolve(ctx context.Context, key []byte) (Routing, error)

	// Invalidate discards any cached ownership data for the region with the
	// given id, forcing the next Resolve touching its range to fetch fresh
	// data. Invalidating an unknown id is a no-op.
	Invalidate(id uint64)
}
