package tarantool

import (
	"context"
	"errors"
	"time"

	"github.com/mickamy/tarantool-go/iproto"
	"github.com/mickamy/tarantool-go/request"
	"github.com/mickamy/tarantool-go/response"
	"github.com/mickamy/tarantool-go/transport"
)

// conn is the machinery Client, Stream, and Transaction all embed. Every
// per-operation method they expose funnels through do; the only thing
// that differs between the three embedding types is the streamID baked
// into this struct (0 for a plain Client, non-zero for a Stream or a
// Transaction, which always owns one of its own).
type conn struct {
	dispatcher *transport.Dispatcher
	cfg        *config
	cache      *preparedCache
	streamSeq  *uint64
	streamID   uint64
}

// do builds, sends, and decodes one request per spec.md's façade: encode
// body -> queue onto the dispatcher tagged with this conn's stream id ->
// await the reply under the configured timeout -> OK value or error.
func (c conn) do(ctx context.Context, body request.Body) (any, error) {
	encoded, err := request.EncodeBody(body)
	if err != nil {
		return nil, &response.DecodeError{Message: "encode request body", Err: err}
	}

	if c.cfg.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.requestTimeout)
		defer cancel()
	}

	typ := body.RequestType()
	q, sink := transport.NewQueuedRequest(ctx, typ, encoded, c.streamID)
	start := time.Now()

	if err := c.dispatcher.Submit(q); err != nil {
		c.recordOutcome(typ, 0, start, err)
		return nil, err
	}

	select {
	case result := <-sink:
		return c.finish(typ, start, result)
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrTimeout
		}
		c.recordOutcome(typ, 0, start, err)
		return nil, err
	}
}

func (c conn) finish(typ iproto.RequestType, start time.Time, result transport.Result) (any, error) {
	if result.Err != nil {
		c.recordOutcome(typ, 0, start, result.Err)
		return nil, result.Err
	}
	if result.Response.Err != nil {
		c.recordOutcome(typ, result.Response.Sync, start, result.Response.Err)
		return nil, result.Response.Err
	}
	c.recordOutcome(typ, result.Response.Sync, start, nil)
	return result.Response.Value, nil
}

func (c conn) recordOutcome(typ iproto.RequestType, sync uint64, start time.Time, err error) {
	if err != nil {
		c.cfg.logf("tarantool: %s failed: %v", typ, err)
	}
	if c.cfg.onEvent != nil {
		c.cfg.onEvent(Event{Sync: sync, StreamID: c.streamID, Type: typ, Duration: time.Since(start), Err: err})
	}
}

func (c *config) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

// fireAndForgetRollback submits a ROLLBACK for this conn's stream without
// waiting for a reply, for the Transaction drop path where the caller is
// already gone.
func (c conn) fireAndForgetRollback() {
	body := request.Rollback{}
	encoded, err := request.EncodeBody(body)
	if err != nil {
		return
	}
	q, _ := transport.NewQueuedRequest(context.Background(), body.RequestType(), encoded, c.streamID)
	_ = c.dispatcher.Submit(q)
}
