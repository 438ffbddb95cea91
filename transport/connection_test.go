package transport_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mickamy/tarantool-go/iproto"
	"github.com/mickamy/tarantool-go/request"
	"github.com/mickamy/tarantool-go/transport"
	"github.com/mickamy/tarantool-go/transporttest"
)

func dial(t *testing.T, addr string, opts transport.Options) *transport.Connection {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := transport.Connect(ctx, "tcp", addr, opts)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return conn
}

func TestConnectAndPing(t *testing.T) {
	t.Parallel()

	srv := transporttest.New(t, nil)
	conn := dial(t, srv.Addr(), transport.Options{})

	body, err := request.EncodeBody(request.Ping{})
	if err != nil {
		t.Fatalf("EncodeBody: %v", err)
	}
	q, sink := transport.NewQueuedRequest(context.Background(), iproto.TypePing, body, 0)

	queue := make(chan transport.QueuedRequest, 1)
	queue <- q
	close(queue)

	done := make(chan struct{})
	var pending *transport.QueuedRequest
	var runErr error
	go func() {
		pending, runErr = conn.Run(queue, nil)
		close(done)
	}()

	select {
	case result := <-sink:
		if result.Err != nil {
			t.Fatalf("ping result: unexpected error: %v", result.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ping reply")
	}

	<-done
	if runErr != nil {
		t.Fatalf("Run: unexpected error: %v", runErr)
	}
	if pending != nil {
		t.Fatalf("Run: unexpected pending request: %+v", pending)
	}
}

func TestConnectWithAuth(t *testing.T) {
	t.Parallel()

	srv := transporttest.New(t, nil)
	conn := dial(t, srv.Addr(), transport.Options{
		Auth: &transport.Credentials{User: "test", Password: "secret"},
	})
	if conn == nil {
		t.Fatal("Connect returned nil connection")
	}
}

func TestAuthFailureSurfacesAuthError(t *testing.T) {
	t.Parallel()

	srv := transporttest.New(t, func(req transporttest.Request) transporttest.Response {
		if req.Type == iproto.TypeAuth {
			return transporttest.Error(42, "Incorrect password")
		}
		return transporttest.OK(nil)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := transport.Connect(ctx, "tcp", srv.Addr(), transport.Options{
		Auth: &transport.Credentials{User: "test", Password: "wrong"},
	})
	if err == nil {
		t.Fatal("Connect: expected an error, got nil")
	}
	var authErr *transport.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Connect: error %v is not *AuthError", err)
	}
}

func TestTwoQueuedRequestsBothGetReplies(t *testing.T) {
	t.Parallel()

	srv := transporttest.New(t, nil)
	conn := dial(t, srv.Addr(), transport.Options{})

	bodyA, err := request.EncodeBody(request.Ping{})
	if err != nil {
		t.Fatalf("EncodeBody: %v", err)
	}
	bodyB, err := request.EncodeBody(request.Ping{})
	if err != nil {
		t.Fatalf("EncodeBody: %v", err)
	}

	qA, sinkA := transport.NewQueuedRequest(context.Background(), iproto.TypePing, bodyA, 0)
	qB, sinkB := transport.NewQueuedRequest(context.Background(), iproto.TypePing, bodyB, 0)

	queue := make(chan transport.QueuedRequest, 2)
	queue <- qA
	queue <- qB
	close(queue)

	go conn.Run(queue, nil)

	for _, sink := range []<-chan transport.Result{sinkA, sinkB} {
		select {
		case result := <-sink:
			if result.Err != nil {
				t.Fatalf("unexpected error: %v", result.Err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for reply")
		}
	}
}

func TestRunFailsInFlightRequestsWhenServerCloses(t *testing.T) {
	t.Parallel()

	srv := transporttest.New(t, func(req transporttest.Request) transporttest.Response {
		if req.Type == iproto.TypePing {
			return transporttest.Disconnect()
		}
		return transporttest.OK(nil)
	})
	conn := dial(t, srv.Addr(), transport.Options{})

	body, err := request.EncodeBody(request.Ping{})
	if err != nil {
		t.Fatalf("EncodeBody: %v", err)
	}
	q, sink := transport.NewQueuedRequest(context.Background(), iproto.TypePing, body, 0)

	queue := make(chan transport.QueuedRequest, 1)
	queue <- q

	go conn.Run(queue, nil)

	select {
	case result := <-sink:
		if result.Err == nil {
			t.Fatal("expected an error once the server connection drops")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reply")
	}
}
