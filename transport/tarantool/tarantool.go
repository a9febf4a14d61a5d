// Package tarantool provides a store transport backed by Tarantool
// instances.
//
// Each store address resolved by the region directory is a Tarantool node
// exposing the rangekv server functions (rangekv.get, rangekv.put,
// rangekv.delete, rangekv.range). Every call carries the region id and epoch
// it was routed under; the server answers with a status string that is mapped
// onto the transport error taxonomy, so stale routing is detected on the
// owning side and recovered by the retry layer.
package tarantool

import (
	"context"
	"fmt"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/tarantool/go-option"
	"github.com/tarantool/go-tarantool/v2"

	"github.com/tarantool/go-rangekv/kv"
	"github.com/tarantool/go-rangekv/region"
	"github.com/tarantool/go-rangekv/transport"
)

// Dialer establishes a connection to the store at the given address.
type Dialer func(ctx context.Context, addr string) (tarantool.Doer, error)

// NetDialer returns a Dialer connecting over the network with the given
// credentials.
func NetDialer(user, password string) Dialer {
	return func(ctx context.Context, addr string) (tarantool.Doer, error) {
		conn, err := tarantool.Connect(ctx, &tarantool.NetDialer{
			Address:  addr,
			User:     user,
			Password: password,
		}, tarantool.Opts{})
		if err != nil {
			return nil, transport.NewTransientError(fmt.Errorf("dial store %s: %w", addr, err))
		}

		return conn, nil
	}
}

// Transport is a transport.Transport talking to Tarantool stores. Connections
// are dialed lazily per store address and reused across operations; the
// registry is safe for concurrent use.
type Transport struct {
	dial Dialer

	dialMu sync.Mutex
	conns  *xsync.MapOf[string, tarantool.Doer]
}

var _ transport.Transport = &Transport{}

// New creates a new Tarantool transport using the given dialer.
func New(dial Dialer) *Transport {
	return &Transport{
		dial:  dial,
		conns: xsync.NewMapOf[string, tarantool.Doer](),
	}
}

// Get implements the transport.Transport interface.
func (t *Transport) Get(
	ctx context.Context,
	routing region.Routing,
	key []byte,
) (option.Generic[[]byte], error) {
	resp, err := t.call(ctx, routing, "rangekv.get", []any{
		routing.Region.ID, routing.Region.Epoch, key,
	})
	if err != nil {
		return option.None[[]byte](), err
	}

	if resp.Status == statusNotFound {
		return option.None[[]byte](), nil
	}

	return option.Some(resp.Value), nil
}

// Put implements the transport.Transport interface.
func (t *Transport) Put(ctx context.Context, routing region.Routing, key, value []byte) error {
	_, err := t.call(ctx, routing, "rangekv.put", []any{
		routing.Region.ID, routing.Region.Epoch, key, value,
	})

	return err
}

// Delete implements the transport.Transport interface.
func (t *Transport) Delete(ctx context.Context, routing region.Routing, key []byte) error {
	_, err := t.call(ctx, routing, "rangekv.delete", []any{
		routing.Region.ID, routing.Region.Epoch, key,
	})

	return err
}

// Range implements the transport.Transport interface.
func (t *Transport) Range(
	ctx context.Context,
	routing region.Routing,
	start, end []byte,
	limit int,
) ([]kv.Pair, error) {
	resp, err := t.call(ctx, routing, "rangekv.range", []any{
		routing.Region.ID, routing.Region.Epoch, start, end, limit,
	})
	if err != nil {
		return nil, err
	}

	pairs := make([]kv.Pair, 0, len(resp.Pairs))
	for _, rec := range resp.Pairs {
		pairs = append(pairs, kv.Pair{Key: rec.Key, Value: rec.Value})
	}

	return pairs, nil
}

// call issues a server function call against the routed store and maps both
// connection failures and server statuses onto the error taxonomy.
func (t *Transport) call(
	ctx context.Context,
	routing region.Routing,
	fn string,
	args []any,
) (callResponse, error) {
	conn, err := t.conn(ctx, routing.Store)
	if err != nil {
		return callResponse{}, err
	}

	req := tarantool.NewCallRequest(fn).Args(args).Context(ctx)

	var result []callResponse

	switch err := conn.Do(req).GetTyped(&result); {
	case err != nil:
		return callResponse{}, classifyCallError(err)
	case len(result) != 1:
		return callResponse{}, fmt.Errorf("%w: expected 1 response, got %d",
			ErrUnexpectedResponse, len(result))
	}

	resp := result[0]
	if err := classifyStatus(resp, routing.Region.ID); err != nil {
		return callResponse{}, err
	}

	return resp, nil
}

// conn returns the connection for a store address, dialing it on first use.
func (t *Transport) conn(ctx context.Context, addr string) (tarantool.Doer, error) {
	if conn, ok := t.conns.Load(addr); ok {
		return conn, nil
	}

	t.dialMu.Lock()
	defer t.dialMu.Unlock()

	if conn, ok := t.conns.Load(addr); ok {
		return conn, nil
	}

	conn, err := t.dial(ctx, addr)
	if err != nil {
		return nil, err
	}

	t.conns.Store(addr, conn)

	return conn, nil
}

// Forget drops the cached connection for a store address. The next call
// routed to it dials anew.
func (t *Transport) Forget(addr string) {
	t.conns.Delete(addr)
}

// Close closes every cached connection that supports closing.
func (t *Transport) Close() error {
	var firstErr error

	t.conns.Range(func(addr string, conn tarantool.Doer) bool {
		if closer, ok := conn.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("close connection to %s: %w", addr, err)
			}
		}

		t.conns.Delete(addr)

		return true
	})

	return firstErr
}
