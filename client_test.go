package tarantool_test

import (
	"context"
	"testing"
	"time"

	"github.com/mickamy/tarantool-go"
	"github.com/mickamy/tarantool-go/iproto"
	"github.com/mickamy/tarantool-go/response"
	"github.com/mickamy/tarantool-go/transporttest"
)

func dialClient(t *testing.T, addr string, opts ...tarantool.Option) *tarantool.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := tarantool.Dial(ctx, addr, opts...)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestDialPingsBeforeReturning(t *testing.T) {
	t.Parallel()

	srv := transporttest.New(t, nil)
	dialClient(t, srv.Addr())
}

func TestDialFailsOnAuthError(t *testing.T) {
	t.Parallel()

	srv := transporttest.New(t, func(req transporttest.Request) transporttest.Response {
		if req.Type == iproto.TypeAuth {
			return transporttest.Error(42, "Incorrect password")
		}
		return transporttest.OK(nil)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := tarantool.Dial(ctx, srv.Addr(), tarantool.WithAuth("test", "wrong"))
	if err == nil {
		t.Fatal("Dial: expected an error")
	}
	var authErr *tarantool.AuthError
	if !asAuthError(err, &authErr) {
		t.Fatalf("Dial: error %v is not *AuthError", err)
	}
}

func asAuthError(err error, target **tarantool.AuthError) bool {
	for err != nil {
		if ae, ok := err.(*tarantool.AuthError); ok {
			*target = ae
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func TestClientEvalDecodesResult(t *testing.T) {
	t.Parallel()

	srv := transporttest.New(t, func(req transporttest.Request) transporttest.Response {
		switch req.Type {
		case iproto.TypeEval:
			return transporttest.OK(map[uint64]any{uint64(iproto.KeyData): []any{"hello"}})
		default:
			return transporttest.OK(nil)
		}
	})
	c := dialClient(t, srv.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	value, err := c.Eval(ctx, "return 'hello'", nil)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	got, err := response.TupleDecodeFirst[string](value)
	if err != nil {
		t.Fatalf("TupleDecodeFirst: %v", err)
	}
	if got != "hello" {
		t.Fatalf("Eval result = %q, want %q", got, "hello")
	}
}

func TestClientInsertDecodesRow(t *testing.T) {
	t.Parallel()

	srv := transporttest.New(t, func(req transporttest.Request) transporttest.Response {
		switch req.Type {
		case iproto.TypeInsert:
			return transporttest.OK(map[uint64]any{uint64(iproto.KeyData): []any{[]any{int64(1), "x"}}})
		default:
			return transporttest.OK(nil)
		}
	})
	c := dialClient(t, srv.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	value, err := c.Insert(ctx, 512, tarantool.Values(int64(1), "x"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	row, err := response.DMODecode[[]any](value)
	if err != nil {
		t.Fatalf("DMODecode: %v", err)
	}
	if len(row) != 2 {
		t.Fatalf("row = %v, want length 2", row)
	}
}

func TestClientSelectDecodesRows(t *testing.T) {
	t.Parallel()

	srv := transporttest.New(t, func(req transporttest.Request) transporttest.Response {
		switch req.Type {
		case iproto.TypeSelect:
			return transporttest.OK(map[uint64]any{
				uint64(iproto.KeyData): []any{[]any{int64(1)}, []any{int64(2)}},
			})
		default:
			return transporttest.OK(nil)
		}
	})
	c := dialClient(t, srv.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	value, err := c.Select(ctx, 512, 0, tarantool.SelectOptions{}, tarantool.Values())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	rows, err := response.SelectDecodeRows[[]any](value)
	if err != nil {
		t.Fatalf("SelectDecodeRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %v, want length 2", rows)
	}
}

func TestClientRequestTimeoutFiresOnSlowServer(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})

	srv := transporttest.New(t, func(req transporttest.Request) transporttest.Response {
		if req.Type == iproto.TypeEval {
			<-block
		}
		return transporttest.OK(nil)
	})
	c := dialClient(t, srv.Addr(), tarantool.WithRequestTimeout(50*time.Millisecond))
	// Registered after dialClient's own t.Cleanup(c.Close), so it runs
	// first (cleanups are LIFO) and unblocks the handler before Close
	// waits on the Dispatcher to drain a connection with no reply coming.
	t.Cleanup(func() { close(block) })

	_, err := c.Eval(context.Background(), "fiber.sleep(10)", nil)
	if err != tarantool.ErrTimeout {
		t.Fatalf("Eval: got %v, want ErrTimeout", err)
	}
}
