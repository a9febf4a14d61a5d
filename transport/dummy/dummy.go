// Package dummy provides an in-memory multi-region implementation of the
// directory and transport interfaces for demonstration and tests.
//
// A Cluster simulates a range-sharded store: the key space is partitioned
// into epoched regions, calls routed with outdated descriptors are rejected
// as stale, and tests can split regions, transfer leadership and inject
// failures to exercise the retry path.
package dummy

import (
	"context"
	"sort"
	"sync"

	"github.com/tarantool/go-option"

	"github.com/tarantool/go-rangekv/kv"
	"github.com/tarantool/go-rangekv/region"
	"github.com/tarantool/go-rangekv/transport"
)

type fault struct {
	op  transport.Type
	err error
}

// Cluster is a thread-safe in-memory cluster. It implements both
// region.Directory (as the authoritative placement service) and
// transport.Transport (as every store at once).
type Cluster struct {
	mu          sync.RWMutex
	data        map[string][]byte
	regions     []region.Descriptor // ordered by start key
	nextID      uint64
	faults      []fault
	unavailable int
}

var (
	_ region.Directory    = &Cluster{}
	_ transport.Transport = &Cluster{}
)

// New returns a Cluster with a single region covering the whole key space,
// split at each of the given keys. Keys must be given in ascending order.
func New(splitKeys ...[]byte) *Cluster {
	c := &Cluster{
		data:    make(map[string][]byte),
		regions: []region.Descriptor{{ID: 1, Epoch: 1, Leader: "store-1"}},
		nextID:  1,
	}

	for _, key := range splitKeys {
		c.Split(key)
	}

	return c
}

// Resolve implements the region.Directory interface.
func (c *Cluster) Resolve(_ context.Context, key []byte) (region.Routing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unavailable > 0 {
		c.unavailable--

		return region.Routing{}, region.ErrUnavailable
	}

	for _, desc := range c.regions {
		if desc.Contains(key) {
			return region.Routing{Region: desc, Store: desc.Leader}, nil
		}
	}

	// Unreachable while the region set partitions the key space.
	return region.Routing{}, region.ErrUnavailable
}

// Invalidate implements the region.Directory interface. The cluster is the
// authoritative directory, so there is nothing to discard.
func (c *Cluster) Invalidate(uint64) {}

// Get implements the transport.Transport interface.
func (c *Cluster) Get(_ context.Context, routing region.Routing, key []byte) (option.Generic[[]byte], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.takeFault(transport.TypeGet); err != nil {
		return option.None[[]byte](), err
	}

	if err := c.checkRouting(routing, key); err != nil {
		return option.None[[]byte](), err
	}

	value, ok := c.data[string(key)]
	if !ok {
		return option.None[[]byte](), nil
	}

	return option.Some(value), nil
}

// Put implements the transport.Transport interface.
func (c *Cluster) Put(_ context.Context, routing region.Routing, key, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.takeFault(transport.TypePut); err != nil {
		return err
	}

	if err := c.checkRouting(routing, key); err != nil {
		return err
	}

	c.data[string(key)] = value

	return nil
}

// Delete implements the transport.Transport interface.
func (c *Cluster) Delete(_ context.Context, routing region.Routing, key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.takeFault(transport.TypeDelete); err != nil {
		return err
	}

	if err := c.checkRouting(routing, key); err != nil {
		return err
	}

	delete(c.data, string(key))

	return nil
}

// Range implements the transport.Transport interface.
func (c *Cluster) Range(
	_ context.Context,
	routing region.Routing,
	start, end []byte,
	limit int,
) ([]kv.Pair, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.takeFault(transport.TypeRange); err != nil {
		return nil, err
	}

	if err := c.checkRouting(routing, start); err != nil {
		return nil, err
	}

	clippedEnd := kv.MinEnd(end, routing.Region.EndKey)

	keys := make([]string, 0, len(c.data))
	for key := range c.data {
		if kv.Contains(start, clippedEnd, []byte(key)) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	pairs := make([]kv.Pair, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, kv.Pair{Key: []byte(key), Value: c.data[key]})
	}

	return pairs, nil
}

// Split splits the region owning key at key, keeping the left half under the
// old region id. Both halves get a bumped epoch, so calls routed with
// pre-split descriptors fail as stale.
func (c *Cluster) Split(key []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, desc := range c.regions {
		if !desc.Contains(key) || kv.Compare(desc.StartKey, key) == 0 {
			continue
		}

		c.nextID++

		left := desc
		left.EndKey = key
		left.Epoch++

		right := region.Descriptor{
			ID:       c.nextID,
			StartKey: key,
			EndKey:   desc.EndKey,
			Epoch:    desc.Epoch + 1,
			Leader:   desc.Leader,
		}

		c.regions = append(c.regions[:i], append([]region.Descriptor{left, right}, c.regions[i+1:]...)...)

		return
	}
}

// TransferLeader moves leadership of the region with the given id to another
// store without any structural change.
func (c *Cluster) TransferLeader(id uint64, store string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.regions {
		if c.regions[i].ID == id {
			c.regions[i].Leader = store

			return
		}
	}
}

// FailNext queues an injected failure for the next call of the given
// operation type. Queued failures are consumed in order, before routing
// checks.
func (c *Cluster) FailNext(op transport.Type, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.faults = append(c.faults, fault{op: op, err: err})
}

// FailResolves makes the next n directory resolutions fail as unavailable.
func (c *Cluster) FailResolves(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.unavailable = n
}

// Regions returns a snapshot of the current region table.
func (c *Cluster) Regions() []region.Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]region.Descriptor, len(c.regions))
	copy(out, c.regions)

	return out
}

func (c *Cluster) takeFault(op transport.Type) error {
	for i, f := range c.faults {
		if f.op == op {
			c.faults = append(c.faults[:i], c.faults[i+1:]...)

			return f.err
		}
	}

	return nil
}

// checkRouting rejects calls issued under routing data the cluster has moved
// past, mirroring the ownership checks a real store performs.
func (c *Cluster) checkRouting(routing region.Routing, key []byte) error {
	for _, desc := range c.regions {
		if desc.ID != routing.Region.ID {
			continue
		}

		if routing.Region.Epoch < desc.Epoch {
			return transport.NewStaleRoutingError(desc.ID, "region epoch mismatch")
		}

		if routing.Store != desc.Leader {
			return transport.NewStaleRoutingError(desc.ID, "store is not the leader")
		}

		if !desc.Contains(key) {
			return transport.NewStaleRoutingError(desc.ID, "key moved out of region")
		}

		return nil
	}

	return transport.NewStaleRoutingError(routing.Region.ID, "region retired")
}
