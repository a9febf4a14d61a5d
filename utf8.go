package rangekv

import (
	"context"

	"github.com/tarantool/go-option"

	"github.com/tarantool/go-rangekv/kv"
)

// textKeyPrefix tags every string-keyed entry. Plain-text use of the store
// occupies a private sub-namespace and never collides with raw binary keys,
// as long as those never begin with the tag.
const textKeyPrefix = "raw_"

// PrefixedKey maps a plain-text key into the string-keyed sub-namespace.
// The mapping is injective: distinct strings map to distinct keys.
func PrefixedKey(key string) []byte {
	return append([]byte(textKeyPrefix), key...)
}

// PutString stores a plain-text pair. The key is placed in the string-keyed
// sub-namespace; the value passes through as its UTF-8 bytes.
func (c *Client) PutString(ctx context.Context, key, value string) error {
	return c.Put(ctx, PrefixedKey(key), []byte(value))
}

// GetString reads a plain-text pair stored with PutString. A missing key is
// not an error: the returned option is None.
func (c *Client) GetString(ctx context.Context, key string) (option.Generic[string], error) {
	value, err := c.Get(ctx, PrefixedKey(key))
	if err != nil {
		return option.None[string](), err
	}

	if !value.IsSome() {
		return option.None[string](), nil
	}

	return option.Some(string(value.UnwrapOr(nil))), nil
}

// DeleteString removes a plain-text pair stored with PutString.
func (c *Client) DeleteString(ctx context.Context, key string) error {
	return c.Delete(ctx, PrefixedKey(key))
}

// ScanStringRange reads all pairs whose prefixed keys fall into
// [PrefixedKey(start), PrefixedKey(end)), in ascending key order. Returned
// pairs carry the prefixed keys.
func (c *Client) ScanStringRange(ctx context.Context, start, end string) ([]kv.Pair, error) {
	return c.ScanRange(ctx, PrefixedKey(start), PrefixedKey(end))
}
