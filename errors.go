package tarantool

import (
	"errors"

	"github.com/mickamy/tarantool-go/response"
	"github.com/mickamy/tarantool-go/transport"
)

// ErrTimeout fires when a per-request timeout (WithRequestTimeout)
// elapses before a reply arrives. Any reply that later shows up anyway is
// discarded rather than delivered.
var ErrTimeout = errors.New("tarantool: request timeout")

// ErrTransactionFinished is returned by Transaction.Commit/Rollback when
// the transaction is no longer InFlight.
var ErrTransactionFinished = errors.New("tarantool: transaction already finished")

// Connection-level sentinels, re-exported so callers never need to import
// the transport package directly to use errors.Is against this client's
// taxonomy (spec §7).
var (
	ErrConnectTimeout   = transport.ErrConnectTimeout
	ErrConnectionClosed = transport.ErrConnectionClosed
	ErrDispatcherClosed = transport.ErrDispatcherClosed
)

// Typed errors that carry data, re-exported the same way.
type (
	// ResponseError is a server-returned error: code, description, and
	// Extras, box.error's structured stacked-error fields decoded
	// generically and surfaced as-is.
	ResponseError = response.ResponseError
	// CallEvalError is the [value, err] Lua convention's err half.
	CallEvalError = response.CallEvalError
	// DecodeError reports a malformed frame: missing key, wrong type, or
	// a raw MessagePack failure, with an optional location.
	DecodeError = response.DecodeError
	// AuthError means the AUTH request itself came back as an error.
	AuthError = transport.AuthError
	// ConnectionError wraps the I/O failure that tore a connection down.
	ConnectionError = transport.ConnectionError
	// ClosedError is delivered to a caller whose request was already on
	// the wire when the connection died.
	ClosedError = transport.ClosedError
	// DuplicatedSyncError reports a sync-space collision.
	DuplicatedSyncError = transport.DuplicatedSyncError
)
