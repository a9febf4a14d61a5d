package tarantool

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/tarantool/go-tarantool/v2"

	"github.com/tarantool/go-rangekv/transport"
)

// ErrUnexpectedResponse is returned when the response from a store function
// has an unexpected format.
var ErrUnexpectedResponse = errors.New("unexpected response from store")

// Server function statuses. Everything not listed here is a fatal
// server-reported failure.
const (
	statusOK          = "ok"
	statusNotFound    = "not_found"
	statusEpochStale  = "epoch_mismatch"
	statusNotLeader   = "not_leader"
	statusOutOfRange  = "key_out_of_range"
	statusNoSuchRange = "region_not_found"
)

// callResponse is the decoded reply of a rangekv server function.
type callResponse struct {
	Status string       `msgpack:"status"`
	Value  []byte       `msgpack:"value"`
	Pairs  []pairRecord `msgpack:"pairs"`
}

// pairRecord is a single key-value pair inside a range reply.
type pairRecord struct {
	Key   []byte `msgpack:"key"`
	Value []byte `msgpack:"value"`
}

// classifyStatus maps a server status onto the transport error taxonomy.
func classifyStatus(resp callResponse, regionID uint64) error {
	switch resp.Status {
	case statusOK, statusNotFound:
		return nil
	case statusEpochStale, statusNotLeader, statusOutOfRange, statusNoSuchRange:
		return transport.NewStaleRoutingError(regionID, resp.Status)
	default:
		return fmt.Errorf("store rejected request: %s", resp.Status)
	}
}

// classifyCallError maps a failed connection call onto the error taxonomy.
// Connection-level failures say nothing about routing validity, so they
// retry as transient against the same target; anything the server decoded
// and rejected is fatal.
func classifyCallError(err error) error {
	var clientErr tarantool.ClientError
	if errors.As(err, &clientErr) {
		return transport.NewTransientError(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return transport.NewTransientError(err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return transport.NewTransientError(err)
	}

	return fmt.Errorf("store call failed: %w", err)
}
