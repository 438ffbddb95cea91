package transport

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/mickamy/tarantool-go/reconnect"
)

// ErrDispatcherClosed is returned by Submit once the Dispatcher has shut
// down, and delivered to every request still waiting in the queue when
// Close is called or Run's context is cancelled. When the Dispatcher gives
// up after a connection failure, queued requests receive that failure
// instead.
var ErrDispatcherClosed = errors.New("tarantool: dispatcher closed")

// DefaultQueueCapacity bounds the Dispatcher's internal request queue when
// the caller does not configure one explicitly.
const DefaultQueueCapacity = 256

// Factory produces a fresh Connection, e.g. by dialing and authenticating
// against a fixed endpoint. The Dispatcher calls it once to get its first
// Connection and again every time the current one dies, if reconnection is
// enabled.
type Factory func(ctx context.Context) (*Connection, error)

// Dispatcher is the supervisor loop: it owns zero-or-one live Connection,
// a bounded queue of QueuedRequest the façade submits into, and a
// reconnect.Policy it consults between connect attempts. Run drives it
// until the queue is closed (Close was called and every request drained)
// or the supplied context is cancelled.
type Dispatcher struct {
	factory Factory
	backoff reconnect.Policy
	logger  *log.Logger

	mu     sync.Mutex
	closed bool
	queue  chan QueuedRequest

	shutdownOnce sync.Once
	done         chan struct{}
}

// NewDispatcher builds a Dispatcher. A nil backoff disables reconnection:
// the Dispatcher attempts factory exactly once per Connection and gives up
// the moment that Connection dies. queueCapacity <= 0 uses
// DefaultQueueCapacity.
func NewDispatcher(factory Factory, backoff reconnect.Policy, queueCapacity int, logger *log.Logger) *Dispatcher {
	if backoff == nil {
		backoff = reconnect.Disabled{}
	}
	if queueCapacity <= 0 {
		queueCapacity = DefaultQueueCapacity
	}
	return &Dispatcher{
		factory: factory,
		backoff: backoff,
		logger:  logger,
		queue:   make(chan QueuedRequest, queueCapacity),
		done:    make(chan struct{}),
	}
}

func (d *Dispatcher) logf(format string, args ...any) {
	if d.logger != nil {
		d.logger.Printf(format, args...)
	}
}

func (d *Dispatcher) reconnectDisabled() bool {
	_, disabled := d.backoff.(reconnect.Disabled)
	return disabled
}

// Submit enqueues a request for the current or next Connection to admit.
// It blocks while the queue is full, providing the backpressure the bounded
// channel is meant to apply; it returns ErrDispatcherClosed immediately
// once Close has been called.
func (d *Dispatcher) Submit(q QueuedRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	d.queue <- q
	return nil
}

// Close stops the Dispatcher from accepting new requests, lets Run observe
// the closed queue and exit, and fails every request still sitting in the
// queue with ErrDispatcherClosed. It blocks until Run has returned.
func (d *Dispatcher) Close() {
	d.shutdown(ErrDispatcherClosed)
	<-d.done
}

// shutdown is the single place the queue is ever closed. Submit and
// shutdown share d.mu, so shutdown cannot close the channel while a Submit
// is mid-send: it blocks on the lock until that send has completed.
func (d *Dispatcher) shutdown(cause error) {
	d.shutdownOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()

		for q := range d.queue {
			if !q.cancelled() {
				q.reply <- Result{Err: cause}
			}
		}
	})
}

// Run is the supervisor loop described by spec.md's Dispatcher: hold a
// Connection and drive it until it reports done or dead; on dead, either
// reconnect (consuming backoff between attempts, resending whatever the
// dying Connection never got to write) or give up, depending on whether
// reconnection is enabled. Run returns once the queue is closed and fully
// drained, or once ctx is cancelled and every waiter has been failed.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	stopOnCancel := context.AfterFunc(ctx, func() { d.shutdown(ErrDispatcherClosed) })
	defer stopOnCancel()

	conn, err := d.connect(ctx)
	if err != nil {
		d.shutdown(err)
		return
	}

	var resend *QueuedRequest
	for {
		pending, runErr := conn.Run(d.queue, resend)
		resend = nil
		if runErr == nil {
			return // queue closed: Close() was called and every caller is gone
		}
		d.logf("tarantool: connection lost: %v", runErr)

		if d.reconnectDisabled() {
			failPending(pending, runErr)
			d.shutdown(runErr)
			return
		}

		conn, err = d.connect(ctx)
		if err != nil {
			failPending(pending, err)
			d.shutdown(err)
			return
		}
		resend = pending
	}
}

// connect calls factory, retrying with backoff until it succeeds or ctx is
// cancelled. A disabled backoff policy makes this a single attempt.
func (d *Dispatcher) connect(ctx context.Context) (*Connection, error) {
	for {
		conn, err := d.factory(ctx)
		if err == nil {
			d.backoff.Reset()
			return conn, nil
		}
		if d.reconnectDisabled() {
			return nil, err
		}
		d.logf("tarantool: connect failed, retrying: %v", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d.backoff.Next()):
		}
	}
}

// failPending reports err to a request a Connection accepted but never
// finished writing, if one exists and its caller hasn't already given up.
func failPending(pending *QueuedRequest, err error) {
	if pending != nil && !pending.cancelled() {
		pending.reply <- Result{Err: err}
	}
}
