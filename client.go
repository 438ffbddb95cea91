// Package tarantool is a client for Tarantool's IPROTO binary protocol:
// a Dispatcher-managed Connection underneath a façade of per-operation
// methods (ping, eval, call, select, insert, update, upsert, replace,
// delete, execute/prepare SQL, transactions, and streams).
package tarantool

import (
	"context"

	"github.com/mickamy/tarantool-go/transport"
)

// Client is one logical connection to a Tarantool instance: a single
// Dispatcher-managed Connection underneath, shared by every operation
// issued directly on the Client and by every Stream and Transaction
// derived from it.
type Client struct {
	conn
	cancelRun context.CancelFunc
}

// Dial builds a Client against addr ("host:port") and proves connectivity
// with a single Ping before returning, so a bad address or bad
// credentials fails here instead of silently on first use.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	factory := func(ctx context.Context) (*transport.Connection, error) {
		return transport.Connect(ctx, "tcp", addr, transport.Options{
			Auth:           cfg.auth,
			ConnectTimeout: cfg.connectTimeout,
			Logger:         cfg.logger,
		})
	}

	dispatcher := transport.NewDispatcher(factory, cfg.reconnect, cfg.queueCapacity, cfg.logger)

	runCtx, cancel := context.WithCancel(context.Background())
	go dispatcher.Run(runCtx)

	streamSeq := new(uint64)
	c := &Client{
		conn: conn{
			dispatcher: dispatcher,
			cfg:        cfg,
			cache:      newPreparedCache(cfg.statementCacheSize),
			streamSeq:  streamSeq,
		},
		cancelRun: cancel,
	}

	pingCtx := ctx
	if cfg.connectTimeout > 0 {
		var pingCancel context.CancelFunc
		pingCtx, pingCancel = context.WithTimeout(ctx, cfg.connectTimeout)
		defer pingCancel()
	}
	if err := c.Ping(pingCtx); err != nil {
		cancel()
		dispatcher.Close()
		return nil, err
	}

	return c, nil
}

// Close stops the Dispatcher, failing every queued and in-flight request,
// and blocks until its supervisor loop has returned.
func (c *Client) Close() error {
	c.cancelRun()
	c.dispatcher.Close()
	return nil
}
