package tarantool

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/mickamy/tarantool-go/iproto"
	"github.com/mickamy/tarantool-go/request"
)

// TxOption overrides the Client's default transaction timeout/isolation
// for a single BEGIN.
type TxOption func(*txConfig)

// WithTxTimeout overrides the server-side auto-abort window for one
// transaction.
func WithTxTimeout(d time.Duration) TxOption {
	return func(c *txConfig) { c.timeoutSeconds = d.Seconds() }
}

// WithTxIsolation overrides the isolation level for one transaction.
func WithTxIsolation(level iproto.TxIsolationLevel) TxOption {
	return func(c *txConfig) { c.isolation = level }
}

// TxState is a Transaction's position in the Fresh -> InFlight ->
// {Committed, RolledBack, DroppedWhileUnfinished} state machine.
type TxState int32

const (
	txFresh TxState = iota
	txInFlight
	txCommitted
	txRolledBack
	txDroppedWhileUnfinished
)

func (s TxState) String() string {
	switch s {
	case txFresh:
		return "fresh"
	case txInFlight:
		return "in_flight"
	case txCommitted:
		return "committed"
	case txRolledBack:
		return "rolled_back"
	case txDroppedWhileUnfinished:
		return "dropped_while_unfinished"
	default:
		return "unknown"
	}
}

// Transaction is a stream-scoped BEGIN/COMMIT/ROLLBACK sequence. The zero
// value is never valid: obtain one from a Client's or Stream's
// Transaction method, which only hands it back once BEGIN has actually
// succeeded (so every live *Transaction starts InFlight, never Fresh).
type Transaction struct {
	conn
	state atomic.Int32
}

// Transaction opens a new transaction on a freshly allocated stream id:
// it sends BEGIN and only returns a handle if BEGIN succeeds.
func (c conn) Transaction(ctx context.Context, opts ...TxOption) (*Transaction, error) {
	cfg := c.cfg.tx
	for _, opt := range opts {
		opt(&cfg)
	}

	txConn := conn{
		dispatcher: c.dispatcher,
		cfg:        c.cfg,
		cache:      c.cache,
		streamSeq:  c.streamSeq,
		streamID:   nextStreamID(c.streamSeq),
	}

	if _, err := txConn.do(ctx, request.Begin{TimeoutSeconds: cfg.timeoutSeconds, IsolationLevel: cfg.isolation}); err != nil {
		return nil, err
	}
	return newTransaction(txConn), nil
}

func newTransaction(c conn) *Transaction {
	tx := &Transaction{conn: c}
	tx.state.Store(int32(txInFlight))
	runtime.SetFinalizer(tx, finalizeTransaction)
	return tx
}

// finalizeTransaction is the garbage-collector-driven safety net for a
// Transaction a caller let go out of scope without Commit, Rollback, or
// Close. It cannot wait on a reply — the caller that would receive it is
// already gone — so it only fires ROLLBACK into the dispatcher and moves
// on, matching DroppedWhileUnfinished. Callers should still call Close
// explicitly; relying on finalization alone defers the rollback to an
// unpredictable point, or never, if the process exits first.
func finalizeTransaction(tx *Transaction) {
	if tx.state.CompareAndSwap(int32(txInFlight), int32(txDroppedWhileUnfinished)) {
		tx.conn.fireAndForgetRollback()
	}
}

// State reports the transaction's current position in its state machine.
func (tx *Transaction) State() TxState { return TxState(tx.state.Load()) }

// StreamID reports the stream id this transaction's requests are tagged
// with.
func (tx *Transaction) StreamID() uint64 { return tx.conn.streamID }

// Commit sends COMMIT and transitions InFlight -> Committed.
func (tx *Transaction) Commit(ctx context.Context) error {
	if !tx.state.CompareAndSwap(int32(txInFlight), int32(txCommitted)) {
		return fmt.Errorf("%w: state=%s", ErrTransactionFinished, tx.State())
	}
	runtime.SetFinalizer(tx, nil)
	_, err := tx.conn.do(ctx, request.Commit{})
	return err
}

// Rollback sends ROLLBACK and transitions InFlight -> RolledBack.
func (tx *Transaction) Rollback(ctx context.Context) error {
	if !tx.state.CompareAndSwap(int32(txInFlight), int32(txRolledBack)) {
		return fmt.Errorf("%w: state=%s", ErrTransactionFinished, tx.State())
	}
	runtime.SetFinalizer(tx, nil)
	_, err := tx.conn.do(ctx, request.Rollback{})
	return err
}

// Close is the explicit, synchronous equivalent of letting the
// Transaction be garbage collected: if still InFlight it fires a
// fire-and-forget ROLLBACK without waiting for the reply and transitions
// to DroppedWhileUnfinished, same as the finalizer. It is a no-op once
// Commit or Rollback has already run.
func (tx *Transaction) Close() {
	if tx.state.CompareAndSwap(int32(txInFlight), int32(txDroppedWhileUnfinished)) {
		runtime.SetFinalizer(tx, nil)
		tx.conn.fireAndForgetRollback()
	}
}
