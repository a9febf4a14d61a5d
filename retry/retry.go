// Package retry implements the single retry discipline shared by every
// single-key operation and by each per-region leg of a scan.
//
// The shape is always the same: resolve the key, issue the store call against
// the resolved owner, classify the failure. Stale routing invalidates the
// cached region and re-resolves, transient failures retry the same target,
// fatal failures surface immediately, and an exhausted backoff budget
// surfaces as a TimeoutError distinct from any fatal condition.
package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tarantool/go-rangekv/region"
	"github.com/tarantool/go-rangekv/router"
	"github.com/tarantool/go-rangekv/transport"
)

// TimeoutError reports that the retry budget was exhausted without reaching a
// stable answer. It wraps the last classified failure.
type TimeoutError struct {
	Attempts int
	Last     error
}

// Error returns the error message.
func (e TimeoutError) Error() string {
	return fmt.Sprintf("retry budget exhausted after %d attempts: %s", e.Attempts, e.Last)
}

func (e TimeoutError) Unwrap() error {
	return e.Last
}

// NewTimeoutError returns a new TimeoutError wrapping the last failure.
func NewTimeoutError(attempts int, last error) error {
	return TimeoutError{Attempts: attempts, Last: last}
}

// Op is a single store call issued under a resolved routing.
type Op func(ctx context.Context, routing region.Routing) error

// Executor runs store calls under the retry discipline. It is stateless apart
// from its collaborators and safe for concurrent use.
type Executor struct {
	router  *router.Router
	backoff Backoff
	logger  *zap.Logger
}

// NewExecutor returns an Executor using the given router and backoff. A nil
// logger disables logging.
func NewExecutor(r *router.Router, backoff Backoff, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Executor{router: r, backoff: backoff, logger: logger}
}

// Router returns the router the executor resolves keys through.
func (e *Executor) Router() *router.Router {
	return e.router
}

// resolveFunc produces the routing an attempt runs under.
type resolveFunc func(ctx context.Context) (region.Routing, error)

// Do resolves key and runs op against the resolved owner, retrying under the
// backoff budget. Only fatal errors and post-exhaustion timeouts escape; the
// caller never observes stale-routing or transient conditions.
//
// Cancelling ctx stops retrying between attempts. An in-flight store call is
// not aborted.
func (e *Executor) Do(ctx context.Context, key []byte, op Op) error {
	return e.run(ctx, func(ctx context.Context) (region.Routing, error) {
		return e.router.Resolve(ctx, key)
	}, op)
}

// DoNext runs op against the region that starts at or owns boundary,
// resolving through Router.NextAfter. It is the scan-side counterpart of Do,
// used to step a cursor past an exhausted region, and retries under the same
// discipline.
func (e *Executor) DoNext(ctx context.Context, boundary []byte, op Op) error {
	return e.run(ctx, func(ctx context.Context) (region.Routing, error) {
		return e.router.NextAfter(ctx, boundary)
	}, op)
}

func (e *Executor) run(ctx context.Context, resolve resolveFunc, op Op) error {
	var last error

	for attempt := 0; ; attempt++ {
		routing, err := resolve(ctx)
		if err == nil {
			err = op(ctx, routing)
			if err == nil {
				return nil
			}
		}

		switch transport.ClassOf(err) {
		case transport.ClassFatal:
			return err
		case transport.ClassStale:
			e.router.Invalidate(routing.Region.ID)
			e.logger.Debug("invalidated stale routing",
				zap.Uint64("region", routing.Region.ID),
				zap.Int("attempt", attempt),
				zap.Error(err))
		case transport.ClassTransient:
			e.logger.Debug("transient store failure",
				zap.Int("attempt", attempt),
				zap.Error(err))
		}

		last = err

		delay, ok := e.backoff.NextDelay(attempt)
		if !ok {
			return NewTimeoutError(attempt+1, last)
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
