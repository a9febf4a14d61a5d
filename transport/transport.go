// Package transport defines the interface to storage nodes and the error
// taxonomy used to classify their failures.
//
// A Transport performs a single blocking call against the store a key was
// routed to. It does not retry and it does not consult the region directory:
// failure recovery is the caller's concern, driven by the classification the
// transport attaches to its errors.
package transport

import (
	"context"

	"github.com/tarantool/go-option"

	"github.com/tarantool/go-rangekv/kv"
	"github.com/tarantool/go-rangekv/region"
)

// Type represents the type of a store operation.
type Type int

const (
	// TypeGet represents a single-key read.
	TypeGet Type = iota
	// TypePut represents a single-key write.
	TypePut
	// TypeDelete represents a single-key delete.
	TypeDelete
	// TypeRange represents a ranged read.
	TypeRange
)

func (t Type) String() string {
	switch t {
	case TypeGet:
		return "Get"
	case TypePut:
		return "Put"
	case TypeDelete:
		return "Delete"
	case TypeRange:
		return "Range"
	default:
		return "Unknown"
	}
}

// Transport is the interface storage node clients must implement.
//
// Every call carries the routing it was issued under; implementations forward
// the region id and epoch so the store can reject requests routed with stale
// ownership data. Errors must be classifiable with ClassOf: stale-routing and
// transient conditions are reported through StaleRoutingError and
// TransientError, anything else is treated as fatal.
type Transport interface {
	// Get reads the value stored under key. A missing key is not an error:
	// the returned option is None.
	Get(ctx context.Context, routing region.Routing, key []byte) (option.Generic[[]byte], error)

	// Put stores value under key.
	Put(ctx context.Context, routing region.Routing, key, value []byte) error

	// Delete removes key. Deleting a missing key succeeds.
	Delete(ctx context.Context, routing region.Routing, key []byte) error

	// Range reads up to limit pairs from the half-open range [start, end) in
	// ascending key order. An empty end reads to the end of the routed
	// region. The range must not extend past the routed region.
	Range(ctx context.Context, routing region.Routing, start, end []byte, limit int) ([]kv.Pair, error)
}
