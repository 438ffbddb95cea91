package tarantool_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mickamy/tarantool-go"
	"github.com/mickamy/tarantool-go/iproto"
	"github.com/mickamy/tarantool-go/transporttest"
)

func TestTransactionCommit(t *testing.T) {
	t.Parallel()

	seen := make(chan iproto.RequestType, 8)
	srv := transporttest.New(t, func(req transporttest.Request) transporttest.Response {
		seen <- req.Type
		return transporttest.OK(nil)
	})
	c := dialClient(t, srv.Addr())
	drainHandshake(seen) // ID negotiation, then Dial's connectivity ping

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	tx, err := c.Transaction(ctx)
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}
	if tx.StreamID() == 0 {
		t.Fatal("Transaction: expected a non-zero stream id")
	}
	if typ := <-seen; typ != iproto.TypeBegin {
		t.Fatalf("first request was %s, want BEGIN", typ)
	}

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if typ := <-seen; typ != iproto.TypeCommit {
		t.Fatalf("second request was %s, want COMMIT", typ)
	}

	if err := tx.Commit(ctx); !errors.Is(err, tarantool.ErrTransactionFinished) {
		t.Fatalf("double Commit: got %v, want ErrTransactionFinished", err)
	}
}

func TestTransactionRollback(t *testing.T) {
	t.Parallel()

	seen := make(chan iproto.RequestType, 8)
	srv := transporttest.New(t, func(req transporttest.Request) transporttest.Response {
		seen <- req.Type
		return transporttest.OK(nil)
	})
	c := dialClient(t, srv.Addr())
	drainHandshake(seen)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	tx, err := c.Transaction(ctx)
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}
	<-seen // BEGIN

	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if typ := <-seen; typ != iproto.TypeRollback {
		t.Fatalf("got %s, want ROLLBACK", typ)
	}
}

func TestTransactionCloseWhileInFlightRollsBack(t *testing.T) {
	t.Parallel()

	seen := make(chan iproto.RequestType, 8)
	srv := transporttest.New(t, func(req transporttest.Request) transporttest.Response {
		seen <- req.Type
		return transporttest.OK(nil)
	})
	c := dialClient(t, srv.Addr())
	drainHandshake(seen)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	tx, err := c.Transaction(ctx)
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}
	<-seen // BEGIN

	tx.Close()

	select {
	case typ := <-seen:
		if typ != iproto.TypeRollback {
			t.Fatalf("got %s, want ROLLBACK", typ)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for background rollback")
	}
	if tx.State().String() != "dropped_while_unfinished" {
		t.Fatalf("State() = %s, want dropped_while_unfinished", tx.State())
	}
}

// drainHandshake consumes the ID negotiation and Dial's own connectivity
// ping, both sent before any test code runs, so assertions on seen start
// clean at the first request the test itself issued.
func drainHandshake(seen <-chan iproto.RequestType) {
	<-seen // ID
	<-seen // Ping
}
