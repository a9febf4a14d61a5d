// Package kv provides the key-value data model and key ordering helpers
// shared by the routing and scan layers.
//
// Keys and values are opaque byte sequences ordered lexicographically. Range
// bounds follow the half-open convention [start, end) where an empty end key
// stands for "no upper bound".
package kv

import (
	"bytes"
)

// Pair represents a single key-value pair. It is immutable once produced.
type Pair struct {
	// Key is the raw key bytes.
	Key []byte
	// Value is the raw value bytes.
	Value []byte
}

// Compare compares two keys lexicographically.
func Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// CompareEnd compares two range end keys, treating an empty key as positive
// infinity. Both arguments must be end keys; start keys compare with Compare.
func CompareEnd(a, b []byte) int {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 0
	case len(a) == 0:
		return 1
	case len(b) == 0:
		return -1
	default:
		return bytes.Compare(a, b)
	}
}

// MinEnd returns the smaller of two range end keys under the CompareEnd
// ordering.
func MinEnd(a, b []byte) []byte {
	if CompareEnd(a, b) <= 0 {
		return a
	}

	return b
}

// Contains reports whether key falls into the half-open range [start, end).
// An empty end key means the range is unbounded above.
func Contains(start, end, key []byte) bool {
	if bytes.Compare(key, start) < 0 {
		return false
	}

	return len(end) == 0 || bytes.Compare(key, end) < 0
}

// Next returns the smallest key strictly greater than k. The result is a
// fresh slice; k is not modified.
func Next(k []byte) []byte {
	next := make([]byte, len(k)+1)
	copy(next, k)

	return next
}
