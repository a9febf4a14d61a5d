// Package router resolves keys to the stores that currently own them.
//
// Router is a thin layer over a region.Directory. It verifies that resolved
// descriptors actually contain the requested key and exposes the scan-side
// operation of stepping to the region that follows a given range boundary.
package router

import (
	"context"
	"fmt"

	"github.com/tarantool/go-rangekv/region"
)

// Router resolves keys and key range boundaries against a region directory.
type Router struct {
	directory region.Directory
}

// New returns a Router backed by the given directory. The directory is
// usually a region.Cache wrapping the authoritative placement service.
func New(directory region.Directory) *Router {
	return &Router{directory: directory}
}

// Resolve returns the routing for the region currently believed to own key.
// A descriptor whose range excludes key is never returned: such an answer
// marks the directory data stale, the entry is invalidated and the resolution
// fails as unavailable so the caller retries against fresh data.
func (r *Router) Resolve(ctx context.Context, key []byte) (region.Routing, error) {
	routing, err := r.directory.Resolve(ctx, key)
	if err != nil {
		return region.Routing{}, fmt.Errorf("resolve key: %w", err)
	}

	if !routing.Region.Contains(key) {
		r.directory.Invalidate(routing.Region.ID)

		return region.Routing{}, fmt.Errorf(
			"%w: region %d does not contain resolved key", region.ErrUnavailable, routing.Region.ID)
	}

	return routing, nil
}

// Invalidate discards cached ownership data for the region with the given id.
func (r *Router) Invalidate(id uint64) {
	r.directory.Invalidate(id)
}

// NextAfter resolves the region that starts at or owns the end key of a
// previous region. Callers must treat an empty boundary as end-of-keyspace
// and not call NextAfter at all; regions are contiguous, so the end key of
// one region is always contained in the next.
func (r *Router) NextAfter(ctx context.Context, boundary []byte) (region.Routing, error) {
	return r.Resolve(ctx, boundary)
}
