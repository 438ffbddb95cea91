package transport

import (
	"bytes"
	"errors"
	"io"

	"github.com/mickamy/tarantool-go/codec"
	"github.com/mickamy/tarantool-go/request"
	"github.com/mickamy/tarantool-go/response"
)

// errReaderStopped is writeLoop's own sentinel for "the reader failed
// while I was waiting on the queue"; Run substitutes the reader's actual
// error before reporting a failure, so this value never escapes the
// package.
var errReaderStopped = errors.New("transport: reader stopped")

// Run drives the connection until the queue closes (all callers
// dropped, nil error) or the connection dies (non-nil error). resend, if
// non-nil, is admitted before anything pulled from queue, the same way
// the Dispatcher re-offers a request that a previous Connection accepted
// from the queue but never managed to write.
//
// On return, pending holds at most one request this Connection pulled
// from the queue (or was handed via resend) but did not finish writing;
// the Dispatcher passes it to the next Connection's Run as its resend
// argument.
func (c *Connection) Run(queue <-chan QueuedRequest, resend *QueuedRequest) (pending *QueuedRequest, err error) {
	stopWriting := make(chan struct{})
	readerErrCh := make(chan error, 1)

	go func() {
		readerErrCh <- c.readLoop()
		close(stopWriting)
	}()

	writerErr, leftover := c.writeLoop(queue, resend, stopWriting)

	// Whichever side failed first tears down the socket so the other side
	// unblocks; mirrors proxy/postgres/conn.go's relay(). This also fires
	// when the writer stopped on its own (queue closed): closing here is
	// what makes the reader's blocked Read return.
	c.closeOnce.Do(func() { c.conn.Close() })
	readerErr := <-readerErrCh

	if writerErr == nil {
		// The queue closed cleanly. Whatever error the reader picked up
		// from the Close() above is an artifact of this shutdown, not a
		// real failure: every in-flight entry was already answered or
		// never existed, so there is nothing to drain.
		return nil, nil
	}

	failure := writerErr
	if errors.Is(writerErr, errReaderStopped) {
		failure = readerErr
	}

	c.drainInflight(failure)
	return leftover, failure
}

// writeLoop owns sync allocation and in-flight admission; it is the only
// goroutine that ever assigns a sync or inserts into c.inflight, so sync
// allocation needs no lock; the table itself is shared with the reader,
// which deletes from it, and is guarded by c.mu. stop is closed
// by the reader when it fails, so a writer idling on an empty queue does
// not block forever past the point the connection is already dead.
func (c *Connection) writeLoop(queue <-chan QueuedRequest, resend *QueuedRequest, stop <-chan struct{}) (err error, pending *QueuedRequest) {
	admit := func(q QueuedRequest) (*QueuedRequest, error) {
		if q.cancelled() {
			return nil, nil
		}

		sync := c.nextSync
		c.nextSync++

		c.mu.Lock()
		if _, exists := c.inflight[sync]; exists {
			c.mu.Unlock()
			q.reply <- Result{Err: &DuplicatedSyncError{Sync: sync}}
			return nil, nil
		}
		c.inflight[sync] = q.reply
		c.mu.Unlock()

		var buf bytes.Buffer
		if err := request.FrameBytes(&buf, q.Type, q.Body, sync, q.StreamID); err != nil {
			c.respondTo(sync, Result{Err: err})
			return nil, nil
		}
		if _, werr := c.conn.Write(buf.Bytes()); werr != nil {
			// Not delivered: drop the in-flight entry so drainInflight
			// does not fail a request that is handed back for resend.
			c.mu.Lock()
			delete(c.inflight, sync)
			c.mu.Unlock()
			return &q, &ConnectionError{Err: werr}
		}
		return nil, nil
	}

	if resend != nil {
		if leftover, err := admit(*resend); err != nil {
			return err, leftover
		}
	}

	for {
		select {
		case <-stop:
			return errReaderStopped, nil
		case q, ok := <-queue:
			if !ok {
				return nil, nil
			}
			if leftover, err := admit(q); err != nil {
				return err, leftover
			}
		}
	}
}

func (c *Connection) readLoop() error {
	for {
		frame, err := codec.ReadFrame(c.conn)
		if err != nil {
			if err == io.EOF {
				return &ConnectionError{Err: io.ErrUnexpectedEOF}
			}
			return &ConnectionError{Err: err}
		}
		resp, err := response.Decode(frame)
		if err != nil {
			return &ConnectionError{Err: err}
		}
		c.respondTo(resp.Sync, Result{Response: resp})
	}
}

func (c *Connection) respondTo(sync uint64, result Result) {
	c.mu.Lock()
	sink, ok := c.inflight[sync]
	if ok {
		delete(c.inflight, sync)
	}
	c.mu.Unlock()

	if !ok {
		c.opts.logf("tarantool[%s]: response for unknown sync %d", c.id, sync)
		return
	}
	sink <- result
}

func (c *Connection) drainInflight(cause error) {
	c.failOnce.Do(func() {
		c.mu.Lock()
		sinks := make([]replySink, 0, len(c.inflight))
		for sync, sink := range c.inflight {
			sinks = append(sinks, sink)
			delete(c.inflight, sync)
		}
		c.mu.Unlock()

		closed := &ClosedError{Cause: cause}
		for _, sink := range sinks {
			sink <- Result{Err: closed}
		}
	})
}
