package transport

import (
	"errors"
	"fmt"

	"github.com/tarantool/go-rangekv/region"
)

// Class is the recovery classification of a failed store call.
type Class int

const (
	// ClassFatal marks errors retrying cannot fix: malformed requests and
	// server-reported hard failures. Surfaced to the caller immediately.
	ClassFatal Class = iota
	// ClassStale marks errors caused by stale routing: the contacted store
	// no longer owns the region, or the region epoch moved on. Recovered by
	// invalidating the cached routing and re-resolving.
	ClassStale
	// ClassTransient marks transport-level failures with no indication of
	// bad routing, such as timeouts. Recovered by retrying the same target
	// after a backoff delay.
	ClassTransient
)

func (c Class) String() string {
	switch c {
	case ClassFatal:
		return "Fatal"
	case ClassStale:
		return "Stale"
	case ClassTransient:
		return "Transient"
	default:
		return "Unknown"
	}
}

// classifier is implemented by errors carrying their own recovery class.
type classifier interface {
	Class() Class
}

// StaleRoutingError reports that a store rejected a call because the routing
// it was issued under is no longer valid.
type StaleRoutingError struct {
	RegionID uint64
	Reason   string
}

// Error returns the error message.
func (e StaleRoutingError) Error() string {
	return fmt.Sprintf("stale routing for region %d: %s", e.RegionID, e.Reason)
}

// Class returns ClassStale.
func (e StaleRoutingError) Class() Class {
	return ClassStale
}

// NewStaleRoutingError returns a new stale-routing error for the given region.
func NewStaleRoutingError(regionID uint64, reason string) error {
	return StaleRoutingError{RegionID: regionID, Reason: reason}
}

// TransientError reports a transport-level failure that may succeed on retry
// against the same target.
type TransientError struct {
	Err error
}

// Error returns the error message.
func (e TransientError) Error() string {
	return fmt.Sprintf("transient store failure: %s", e.Err)
}

func (e TransientError) Unwrap() error {
	return e.Err
}

// Class returns ClassTransient.
func (e TransientError) Class() Class {
	return ClassTransient
}

// NewTransientError wraps err as a transient failure. It returns nil when err
// is nil.
func NewTransientError(err error) error {
	if err == nil {
		return nil
	}

	return TransientError{Err: err}
}

// ClassOf classifies an error from a store call or a routing resolution.
//
// Errors carrying their own class are classified by it. Directory
// unavailability retries as transient: the store may be fine even when the
// placement service is not answering. Everything else is fatal; an unknown
// failure must surface rather than burn the retry budget.
func ClassOf(err error) Class {
	var c classifier
	if errors.As(err, &c) {
		return c.Class()
	}

	if errors.Is(err, region.ErrUnavailable) {
		return ClassTransient
	}

	return ClassFatal
}
