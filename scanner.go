package rangekv

import (
	"context"
	"fmt"
	"iter"

	"github.com/tarantool/go-option"

	"github.com/tarantool/go-rangekv/kv"
	"github.com/tarantool/go-rangekv/region"
)

// scanState is the cursor's position in its lifecycle.
type scanState int

const (
	// stateReady means the cursor has a resolved current region and can
	// yield or fetch pairs from it.
	stateReady scanState = iota
	// stateAdvancing means the current region is exhausted and the next
	// pull resolves the region that follows it.
	stateAdvancing
	// stateDone is terminal: the end key was reached, the limit was
	// reached, or the key space is exhausted.
	stateDone
)

func (s scanState) String() string {
	switch s {
	case stateReady:
		return "Ready"
	case stateAdvancing:
		return "Advancing"
	case stateDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// Scanner is a lazy forward-only cursor over the stored pairs of a key
// range, in ascending key order. Region boundaries are invisible to the
// consumer: the cursor re-resolves ownership at each boundary and keeps
// yielding a single gap-free sequence.
//
// A Scanner is a single-consumer abstraction: it must not be used from
// multiple goroutines without external synchronization. Once exhausted it
// stays exhausted; further pulls yield empty options, not errors.
type Scanner struct {
	client *Client

	cursor    []byte              // next key to read, inclusive
	endKey    []byte              // global end, exclusive; empty = unbounded
	remaining option.Generic[int] // pairs left to yield when limited

	state     scanState
	buf       []kv.Pair
	exhausted bool // no more legs to fetch; only the buffer is left
}

// RangeScanner returns a cursor over the half-open range [start, end).
// An empty end scans to the end of the key space.
func (c *Client) RangeScanner(start, end []byte) *Scanner {
	s := &Scanner{
		client:    c,
		cursor:    start,
		endKey:    end,
		remaining: option.None[int](),
	}

	// An inverted range is empty, not an error.
	if len(end) != 0 && kv.Compare(start, end) >= 0 {
		s.state = stateDone
	}

	return s
}

// LimitScanner returns a cursor yielding at most limit pairs starting at
// start: the smallest stored keys not less than start, in ascending order.
// There is deliberately no combined range-plus-limit form.
func (c *Client) LimitScanner(start []byte, limit int) (*Scanner, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	return &Scanner{
		client:    c,
		cursor:    start,
		remaining: option.Some(limit),
	}, nil
}

// Next returns the next pair, or an empty option once the scan is complete.
// A failed per-region read aborts the scan: already yielded pairs stay
// valid, the error is returned and every later pull yields an empty option.
func (s *Scanner) Next(ctx context.Context) (option.Generic[kv.Pair], error) {
	for {
		if s.state == stateDone {
			return option.None[kv.Pair](), nil
		}

		if len(s.buf) > 0 {
			pair := s.buf[0]
			s.buf = s.buf[1:]
			s.noteYield()

			return option.Some(pair), nil
		}

		if s.exhausted {
			s.state = stateDone

			return option.None[kv.Pair](), nil
		}

		if err := s.fill(ctx); err != nil {
			s.state = stateDone

			return option.None[kv.Pair](), err
		}
	}
}

// All returns an iterator over the remaining pairs. Iteration stops at the
// end of the scan or at the first error, which is yielded with a zero pair.
func (s *Scanner) All(ctx context.Context) iter.Seq2[kv.Pair, error] {
	return func(yield func(kv.Pair, error) bool) {
		for {
			next, err := s.Next(ctx)
			if err != nil {
				yield(kv.Pair{}, err)

				return
			}

			if !next.IsSome() {
				return
			}

			if !yield(next.UnwrapOr(kv.Pair{}), nil) {
				return
			}
		}
	}
}

// noteYield counts a yielded pair against the limit.
func (s *Scanner) noteYield() {
	if !s.remaining.IsSome() {
		return
	}

	left := s.remaining.UnwrapOr(0) - 1
	s.remaining = option.Some(left)

	if left == 0 {
		s.state = stateDone
	}
}

// fill runs one per-region read leg from the cursor position, going through
// the shared retry discipline. It buffers the fetched pairs and records
// whether more legs follow.
func (s *Scanner) fill(ctx context.Context) error {
	batch := s.client.batchSize
	if s.remaining.IsSome() {
		batch = min(batch, s.remaining.UnwrapOr(0))
	}

	var (
		pairs []kv.Pair
		desc  region.Descriptor
	)

	// An advancing cursor sits on the end key of an exhausted region, so the
	// leg resolves the region that follows it.
	do := s.client.executor.Do
	if s.state == stateAdvancing {
		do = s.client.executor.DoNext
	}

	err := do(ctx, s.cursor, func(ctx context.Context, routing region.Routing) error {
		// Clip the leg to the owning region and the global end.
		legEnd := kv.MinEnd(s.endKey, routing.Region.EndKey)

		got, opErr := s.client.transport.Range(ctx, routing, s.cursor, legEnd, batch)
		if opErr != nil {
			return opErr
		}

		pairs, desc = got, routing.Region

		return nil
	})
	if err != nil {
		return fmt.Errorf("scan leg failed: %w", err)
	}

	s.buf = pairs
	s.state = stateReady

	if len(pairs) == batch {
		// The region may hold more pairs; continue from just past the last
		// one buffered.
		s.cursor = kv.Next(pairs[len(pairs)-1].Key)

		return nil
	}

	// The clipped leg is exhausted. Either the whole scan is complete, or
	// the cursor advances to the region that starts at the boundary.
	switch {
	case len(desc.EndKey) == 0:
		// No region follows: key space exhausted.
		s.exhausted = true
	case len(s.endKey) != 0 && kv.CompareEnd(desc.EndKey, s.endKey) >= 0:
		// The region covers the global end key.
		s.exhausted = true
	default:
		s.cursor = desc.EndKey
		s.state = stateAdvancing
	}

	return nil
}
