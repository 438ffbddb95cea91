// Package transport implements the Connection and Dispatcher: the split
// reader/writer pipeline that multiplexes requests onto one TCP
// connection via IPROTO's sync correlation id, and the supervisor loop
// that reconnects with backoff and resends whatever was never written.
package transport

import (
	"context"

	"github.com/mickamy/tarantool-go/iproto"
	"github.com/mickamy/tarantool-go/response"
)

// Result is what a queued request resolves to.
type Result struct {
	Response response.Response
	Err      error
}

// replySink is sent to exactly once per admitted request.
type replySink chan Result

// QueuedRequest is one caller request waiting to be admitted onto a
// Connection: a pre-serialized body (see request.EncodeBody), stamped
// into a frame once a sync is allocated, plus the channel its result is
// delivered on. Ctx is the caller's request context; the writer consults
// it right before admission so a caller that already gave up (timeout or
// explicit cancellation) never generates wire traffic.
type QueuedRequest struct {
	Ctx      context.Context
	Type     iproto.RequestType
	Body     []byte
	StreamID uint64

	reply replySink
}

// NewQueuedRequest builds a QueuedRequest and the sink its result will
// arrive on. The sink is buffered so the writer/reader never blocks
// delivering a result a caller stopped waiting for.
func NewQueuedRequest(ctx context.Context, typ iproto.RequestType, body []byte, streamID uint64) (QueuedRequest, <-chan Result) {
	sink := make(replySink, 1)
	return QueuedRequest{Ctx: ctx, Type: typ, Body: body, StreamID: streamID, reply: sink}, sink
}

func (q QueuedRequest) cancelled() bool {
	return q.Ctx != nil && q.Ctx.Err() != nil
}
