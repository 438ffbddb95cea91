package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mickamy/tarantool-go/codec"
	"github.com/mickamy/tarantool-go/iproto"
	"github.com/mickamy/tarantool-go/request"
	"github.com/mickamy/tarantool-go/response"
)

// Sentinel connection-level errors, see spec §7.
var (
	// ErrConnectTimeout means the TCP connect, greeting, or auth
	// handshake did not complete within the configured connect timeout.
	ErrConnectTimeout = errors.New("tarantool: connect timeout")
	// ErrConnectionClosed means a request was written to the wire but
	// the connection failed before its reply arrived; the client does
	// not retry it, since it cannot know whether the server applied it.
	ErrConnectionClosed = errors.New("tarantool: connection closed")
)

// ConnectionError wraps the underlying I/O failure that tore down a
// Connection. It is cloneable in spirit: when a connection dies, every
// in-flight waiter receives the same *ClosedError wrapping it.
type ConnectionError struct{ Err error }

func (e *ConnectionError) Error() string { return fmt.Sprintf("tarantool: connection error: %v", e.Err) }

func (e *ConnectionError) Unwrap() error { return e.Err }

// ClosedError is returned to every caller whose request was already
// written to the wire when the connection died: the client cannot know
// whether the server applied it, so it is reported closed rather than
// silently retried. errors.Is(err, ErrConnectionClosed) matches it.
type ClosedError struct{ Cause error }

func (e *ClosedError) Error() string {
	return fmt.Sprintf("tarantool: connection closed: %v", e.Cause)
}

func (e *ClosedError) Is(target error) bool { return target == ErrConnectionClosed }

func (e *ClosedError) Unwrap() error { return e.Cause }

// DuplicatedSyncError reports a (theoretical) sync wraparound collision:
// an in-flight entry already existed for the sync the allocator handed
// out.
type DuplicatedSyncError struct{ Sync uint64 }

func (e *DuplicatedSyncError) Error() string {
	return fmt.Sprintf("tarantool: duplicated sync %d", e.Sync)
}

// AuthError wraps the ERROR response Tarantool returned for an AUTH
// request.
type AuthError struct{ Err error }

func (e *AuthError) Error() string { return fmt.Sprintf("tarantool: auth failed: %v", e.Err) }

func (e *AuthError) Unwrap() error { return e.Err }

// Credentials authenticates a new Connection via chap-sha1.
type Credentials struct {
	User     string
	Password string
}

// Options configures a single Connection.
type Options struct {
	Auth           *Credentials
	ConnectTimeout time.Duration
	Logger         *log.Logger
}

func (o Options) logf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}

// Connection owns one TCP socket to Tarantool: the handshake, the
// in-flight table keyed by sync, and the reader/writer goroutines that
// drive it. A Connection is used exactly once; when it dies the
// Dispatcher replaces it with a fresh one.
type Connection struct {
	id   string
	conn net.Conn
	opts Options

	mu       sync.Mutex
	inflight map[uint64]replySink
	nextSync uint64

	closeOnce sync.Once
	failOnce  sync.Once
}

// Connect performs the TCP dial, greeting read, optional AUTH, and
// best-effort ID feature negotiation. The returned Connection is ready
// for Run.
func Connect(ctx context.Context, network, address string, opts Options) (*Connection, error) {
	deadline, cancel := withConnectDeadline(ctx, opts.ConnectTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(deadline, network, address)
	if err != nil {
		if deadline.Err() != nil {
			return nil, ErrConnectTimeout
		}
		return nil, &ConnectionError{Err: err}
	}

	c := &Connection{
		id:       uuid.NewString(),
		conn:     conn,
		opts:     opts,
		inflight: make(map[uint64]replySink),
	}

	if dl, ok := deadline.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	if err := c.handshake(); err != nil {
		conn.Close()
		if deadline.Err() != nil {
			return nil, ErrConnectTimeout
		}
		return nil, err
	}

	// Clear the connect-phase deadline; request-level timeouts are the
	// façade's responsibility from here on.
	_ = conn.SetDeadline(time.Time{})

	return c, nil
}

func withConnectDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (c *Connection) handshake() error {
	var greetingBuf [codec.GreetingSize]byte
	if _, err := io.ReadFull(c.conn, greetingBuf[:]); err != nil {
		return &ConnectionError{Err: err}
	}
	greeting, err := codec.DecodeGreeting(greetingBuf)
	if err != nil {
		return err
	}
	c.opts.logf("tarantool[%s]: connected to %s", c.id, greeting.Server)

	if c.opts.Auth != nil {
		if err := c.authenticate(greeting); err != nil {
			return err
		}
	}

	c.negotiateID()
	return nil
}

func (c *Connection) authenticate(greeting codec.Greeting) error {
	auth := request.NewAuth(c.opts.Auth.User, c.opts.Auth.Password, greeting.Salt)
	resp, err := c.roundTripHandshake(auth)
	if err != nil {
		return err
	}
	if resp.Err != nil {
		return &AuthError{Err: resp.Err}
	}
	return nil
}

// negotiateID sends ID best-effort: older Tarantool versions do not
// implement it, so a failure here never fails the connect.
func (c *Connection) negotiateID() {
	resp, err := c.roundTripHandshake(request.DefaultID())
	if err != nil {
		c.opts.logf("tarantool[%s]: ID negotiation failed, continuing: %v", c.id, err)
		return
	}
	if resp.Err != nil {
		c.opts.logf("tarantool[%s]: ID rejected, continuing: %v", c.id, resp.Err)
	}
}

// roundTripHandshake writes a request and blocks for its reply,
// synchronously, before the reader/writer goroutines exist. Only used
// during the handshake, where requests are strictly sequential (sync 0,
// then sync 1).
func (c *Connection) roundTripHandshake(body request.Body) (response.Response, error) {
	sync := c.nextSync
	c.nextSync++

	var buf bytes.Buffer
	if err := request.Frame(&buf, body, sync, 0); err != nil {
		return response.Response{}, err
	}
	if _, err := c.conn.Write(buf.Bytes()); err != nil {
		return response.Response{}, &ConnectionError{Err: err}
	}

	frame, err := codec.ReadFrame(c.conn)
	if err != nil {
		return response.Response{}, &ConnectionError{Err: err}
	}
	return response.Decode(frame)
}
