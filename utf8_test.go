package rangekv_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rangekv "github.com/tarantool/go-rangekv"
	"github.com/tarantool/go-rangekv/transport/dummy"
)

func TestPrefixedKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte("raw_user"), rangekv.PrefixedKey("user"))
	assert.Equal(t, []byte("raw_"), rangekv.PrefixedKey(""))
	assert.NotEqual(t, rangekv.PrefixedKey("a"), rangekv.PrefixedKey("b"))
}

func TestClient_StringRoundTrip(t *testing.T) {
	t.Parallel()

	cluster := dummy.New()
	client := newTestClient(t, cluster)
	ctx := context.Background()

	require.NoError(t, client.PutString(ctx, "greeting", "привет"))

	value, err := client.GetString(ctx, "greeting")
	require.NoError(t, err)
	require.True(t, value.IsSome())
	assert.Equal(t, "привет", value.UnwrapOr(""))

	// The entry lives under its prefixed binary key.
	raw, err := client.Get(ctx, rangekv.PrefixedKey("greeting"))
	require.NoError(t, err)
	assert.Equal(t, []byte("привет"), raw.UnwrapOr(nil))
}

func TestClient_GetString_Missing(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, dummy.New())

	value, err := client.GetString(context.Background(), "nothing")
	require.NoError(t, err)
	assert.False(t, value.IsSome())
}

func TestClient_DeleteString(t *testing.T) {
	t.Parallel()

	cluster := dummy.New()
	client := newTestClient(t, cluster)
	ctx := context.Background()

	require.NoError(t, client.PutString(ctx, "key", "value"))
	require.NoError(t, client.DeleteString(ctx, "key"))

	value, err := client.GetString(ctx, "key")
	require.NoError(t, err)
	assert.False(t, value.IsSome())
}

func TestClient_ScanStringRange(t *testing.T) {
	t.Parallel()

	cluster := dummy.New([]byte("raw_m"))
	client := newTestClient(t, cluster)
	ctx := context.Background()

	for _, key := range []string{"alpha", "omega", "zulu"} {
		require.NoError(t, client.PutString(ctx, key, key))
	}

	// A raw binary entry outside the string sub-namespace stays out of
	// string scans.
	require.NoError(t, client.Put(ctx, []byte("binary"), []byte{0x01}))

	pairs, err := client.ScanStringRange(ctx, "alpha", "zz")
	require.NoError(t, err)

	assert.Equal(t, []string{"raw_alpha", "raw_omega", "raw_zulu"}, keysOf(pairs))
}
