package router_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarantool/go-rangekv/region"
	"github.com/tarantool/go-rangekv/router"
)

// tableDirectory serves descriptors from a fixed table and records
// invalidations.
type tableDirectory struct {
	mu          sync.Mutex
	regions     []region.Descriptor
	err         error
	invalidated []uint64
}

func (d *tableDirectory) Resolve(_ context.Context, key []byte) (region.Routing, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return region.Routing{}, d.err
	}

	for _, desc := range d.regions {
		if desc.Contains(key) {
			return region.Routing{Region: desc, Store: desc.Leader}, nil
		}
	}

	return region.Routing{}, region.ErrUnavailable
}

func (d *tableDirectory) Invalidate(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.invalidated = append(d.invalidated, id)
}

func TestRouter_Resolve(t *testing.T) {
	t.Parallel()

	directory := &tableDirectory{regions: []region.Descriptor{
		{ID: 1, StartKey: nil, EndKey: []byte("g"), Leader: "store-1"},
		{ID: 2, StartKey: []byte("g"), EndKey: nil, Leader: "store-2"},
	}}
	r := router.New(directory)

	routing, err := r.Resolve(context.Background(), []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), routing.Region.ID)
	assert.Equal(t, "store-1", routing.Store)

	routing, err = r.Resolve(context.Background(), []byte("g"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), routing.Region.ID)
}

func TestRouter_Resolve_Unavailable(t *testing.T) {
	t.Parallel()

	directory := &tableDirectory{err: region.ErrUnavailable}
	r := router.New(directory)

	_, err := r.Resolve(context.Background(), []byte("a"))
	require.ErrorIs(t, err, region.ErrUnavailable)
}

// misroutingDirectory always answers with the same descriptor, containing the
// requested key or not.
type misroutingDirectory struct {
	tableDirectory

	answer region.Descriptor
}

func (d *misroutingDirectory) Resolve(_ context.Context, _ []byte) (region.Routing, error) {
	return region.Routing{Region: d.answer, Store: d.answer.Leader}, nil
}

func TestRouter_Resolve_RejectsNonContainingDescriptor(t *testing.T) {
	t.Parallel()

	// A directory answer that does not contain the key must never be handed
	// to the caller; the bogus entry is invalidated instead.
	directory := &misroutingDirectory{
		answer: region.Descriptor{ID: 5, StartKey: []byte("x"), EndKey: []byte("z"), Leader: "store-5"},
	}
	r := router.New(directory)

	_, err := r.Resolve(context.Background(), []byte("a"))

	require.ErrorIs(t, err, region.ErrUnavailable)
	assert.Equal(t, []uint64{5}, directory.invalidated)
}

func TestRouter_NextAfter(t *testing.T) {
	t.Parallel()

	directory := &tableDirectory{regions: []region.Descriptor{
		{ID: 1, StartKey: nil, EndKey: []byte("g"), Leader: "store-1"},
		{ID: 2, StartKey: []byte("g"), EndKey: []byte("t"), Leader: "store-2"},
		{ID: 3, StartKey: []byte("t"), EndKey: nil, Leader: "store-3"},
	}}
	r := router.New(directory)

	routing, err := r.NextAfter(context.Background(), []byte("g"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), routing.Region.ID)

	routing, err = r.NextAfter(context.Background(), []byte("t"))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), routing.Region.ID)
}

func TestRouter_Invalidate_Forwards(t *testing.T) {
	t.Parallel()

	directory := &tableDirectory{}
	r := router.New(directory)

	r.Invalidate(9)

	assert.Equal(t, []uint64{9}, directory.invalidated)
}
