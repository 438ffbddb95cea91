package tarantool

import "sync/atomic"

// Stream wraps the parent Client's Dispatcher and configuration, tagging
// every frame it sends with a non-zero stream id. The server processes
// requests on the same stream id in strict admission order while still
// interleaving freely with the rest of the Connection's traffic, which is
// how sequential application-level ordering is obtained without blocking
// unrelated requests.
type Stream struct {
	conn
}

// Stream allocates a new Stream sharing c's Dispatcher, prepared-statement
// cache, and configuration.
func (c *Client) Stream() *Stream {
	return &Stream{conn: conn{
		dispatcher: c.dispatcher,
		cfg:        c.cfg,
		cache:      c.cache,
		streamSeq:  c.streamSeq,
		streamID:   nextStreamID(c.streamSeq),
	}}
}

// StreamID reports the stream id every request issued through s is
// tagged with.
func (s *Stream) StreamID() uint64 { return s.streamID }

// nextStreamID atomically allocates the next stream id off seq, skipping
// zero since that value means "no stream" on the wire.
func nextStreamID(seq *uint64) uint64 {
	for {
		id := atomic.AddUint64(seq, 1)
		if id != 0 {
			return id
		}
	}
}
