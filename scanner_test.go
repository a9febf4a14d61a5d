package rangekv_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rangekv "github.com/tarantool/go-rangekv"
	"github.com/tarantool/go-rangekv/kv"
	"github.com/tarantool/go-rangekv/transport"
	"github.com/tarantool/go-rangekv/transport/dummy"
)

func putKeys(t *testing.T, client *rangekv.Client, keys ...string) {
	t.Helper()

	for _, key := range keys {
		require.NoError(t, client.Put(context.Background(), []byte(key), []byte(key)))
	}
}

func keysOf(pairs []kv.Pair) []string {
	keys := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		keys = append(keys, string(pair.Key))
	}

	return keys
}

func TestClient_ScanRange_CrossesRegionBoundaries(t *testing.T) {
	t.Parallel()

	cluster := dummy.New([]byte("g"), []byte("t"))
	client := newTestClient(t, cluster)
	putKeys(t, client, "a", "m", "z")

	pairs, err := client.ScanRange(context.Background(), []byte("a"), []byte("zz"))
	require.NoError(t, err)

	require.Equal(t, []string{"a", "m", "z"}, keysOf(pairs))
	for _, pair := range pairs {
		assert.Equal(t, pair.Key, pair.Value)
	}
}

func TestClient_ScanRange_Bounds(t *testing.T) {
	t.Parallel()

	cluster := dummy.New([]byte("c"))
	client := newTestClient(t, cluster)
	putKeys(t, client, "a", "b", "c", "d")

	// Start is inclusive, end is exclusive.
	pairs, err := client.ScanRange(context.Background(), []byte("b"), []byte("d"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, keysOf(pairs))
}

func TestClient_ScanRange_UnboundedEnd(t *testing.T) {
	t.Parallel()

	cluster := dummy.New([]byte("c"))
	client := newTestClient(t, cluster)
	putKeys(t, client, "a", "b", "c", "d")

	pairs, err := client.ScanRange(context.Background(), []byte("b"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d"}, keysOf(pairs))
}

func TestClient_ScanRange_InvertedRangeIsEmpty(t *testing.T) {
	t.Parallel()

	cluster := dummy.New()
	client := newTestClient(t, cluster)
	putKeys(t, client, "a", "b")

	pairs, err := client.ScanRange(context.Background(), []byte("b"), []byte("a"))
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestClient_ScanRange_NoMatches(t *testing.T) {
	t.Parallel()

	cluster := dummy.New()
	client := newTestClient(t, cluster)
	putKeys(t, client, "a", "z")

	pairs, err := client.ScanRange(context.Background(), []byte("b"), []byte("c"))
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestClient_ScanLimit_SmallestKeys(t *testing.T) {
	t.Parallel()

	cluster := dummy.New([]byte("g"), []byte("t"))
	client := newTestClient(t, cluster)
	putKeys(t, client, "e", "a", "u", "h", "c")

	pairs, err := client.ScanLimit(context.Background(), []byte("b"), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "e", "h"}, keysOf(pairs))
}

func TestClient_ScanLimit_MoreThanAvailable(t *testing.T) {
	t.Parallel()

	cluster := dummy.New([]byte("g"))
	client := newTestClient(t, cluster)
	putKeys(t, client, "a", "m")

	pairs, err := client.ScanLimit(context.Background(), nil, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m"}, keysOf(pairs))
}

func TestClient_ScanLimit_InvalidLimit(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, dummy.New())

	_, err := client.ScanLimit(context.Background(), []byte("a"), 0)
	assert.ErrorIs(t, err, rangekv.ErrInvalidLimit)

	_, err = client.LimitScanner([]byte("a"), -1)
	assert.ErrorIs(t, err, rangekv.ErrInvalidLimit)
}

func TestScanner_SmallBatches(t *testing.T) {
	t.Parallel()

	cluster := dummy.New([]byte("d"), []byte("h"))
	client := newTestClient(t, cluster, rangekv.WithScanBatchSize(2))

	want := make([]string, 0, 10)
	for i := range 10 {
		want = append(want, fmt.Sprintf("key-%c", 'a'+rune(i)))
	}

	putKeys(t, client, want...)

	// Everything lives in the last region ("key-..." sorts after "h"),
	// so the cursor walks two empty regions first, then drains the last
	// one two pairs at a time.
	pairs, err := client.ScanRange(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, want, keysOf(pairs))
}

func TestScanner_ExhaustedStaysExhausted(t *testing.T) {
	t.Parallel()

	cluster := dummy.New()
	client := newTestClient(t, cluster)
	putKeys(t, client, "a")

	scanner := client.RangeScanner(nil, nil)
	ctx := context.Background()

	next, err := scanner.Next(ctx)
	require.NoError(t, err)
	require.True(t, next.IsSome())

	for range 3 {
		next, err = scanner.Next(ctx)
		require.NoError(t, err)
		assert.False(t, next.IsSome())
	}
}

func TestScanner_AbortsOnFatalLegError(t *testing.T) {
	t.Parallel()

	cluster := dummy.New([]byte("g"))
	client := newTestClient(t, cluster, rangekv.WithScanBatchSize(1))
	putKeys(t, client, "a", "b", "z")

	scanner := client.RangeScanner(nil, nil)
	ctx := context.Background()

	next, err := scanner.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), next.UnwrapOr(kv.Pair{}).Key)

	boom := errors.New("range rejected")
	cluster.FailNext(transport.TypeRange, boom)

	_, err = scanner.Next(ctx)
	require.ErrorIs(t, err, boom)

	// The error is terminal, later pulls are empty and clean.
	next, err = scanner.Next(ctx)
	require.NoError(t, err)
	assert.False(t, next.IsSome())
}

func TestScanner_RetriesStaleLegAfterSplit(t *testing.T) {
	t.Parallel()

	cluster := dummy.New()
	client := newTestClient(t, cluster, rangekv.WithScanBatchSize(2))
	putKeys(t, client, "a", "b", "c", "d", "e")

	scanner := client.RangeScanner(nil, nil)
	ctx := context.Background()

	// Pull the first batch under the original layout, then split the
	// region mid-scan. The next leg goes out with the cached pre-split
	// descriptor and recovers through re-resolution.
	var got []string

	for range 2 {
		next, err := scanner.Next(ctx)
		require.NoError(t, err)
		got = append(got, string(next.UnwrapOr(kv.Pair{}).Key))
	}

	cluster.Split([]byte("c"))

	for {
		next, err := scanner.Next(ctx)
		require.NoError(t, err)

		if !next.IsSome() {
			break
		}

		got = append(got, string(next.UnwrapOr(kv.Pair{}).Key))
	}

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
}

func TestScanner_RetriesTransientLeg(t *testing.T) {
	t.Parallel()

	cluster := dummy.New()
	client := newTestClient(t, cluster)
	putKeys(t, client, "a", "b")

	cluster.FailNext(transport.TypeRange, transport.NewTransientError(errors.New("connection reset")))

	pairs, err := client.ScanRange(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keysOf(pairs))
}

func TestScanner_All(t *testing.T) {
	t.Parallel()

	cluster := dummy.New([]byte("c"))
	client := newTestClient(t, cluster)
	putKeys(t, client, "a", "b", "c", "d")

	var got []string
	for pair, err := range client.RangeScanner(nil, nil).All(context.Background()) {
		require.NoError(t, err)
		got = append(got, string(pair.Key))
	}

	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
}

func TestScanner_All_StopsEarly(t *testing.T) {
	t.Parallel()

	cluster := dummy.New()
	client := newTestClient(t, cluster)
	putKeys(t, client, "a", "b", "c")

	var got []string
	for pair, err := range client.RangeScanner(nil, nil).All(context.Background()) {
		require.NoError(t, err)
		got = append(got, string(pair.Key))

		if len(got) == 2 {
			break
		}
	}

	assert.Equal(t, []string{"a", "b"}, got)
}

func TestScanner_All_YieldsError(t *testing.T) {
	t.Parallel()

	cluster := dummy.New()
	client := newTestClient(t, cluster)
	putKeys(t, client, "a")

	boom := errors.New("range rejected")
	cluster.FailNext(transport.TypeRange, boom)

	var errs []error
	for _, err := range client.RangeScanner(nil, nil).All(context.Background()) {
		errs = append(errs, err)
	}

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
}
