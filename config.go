package tarantool

import (
	"log"
	"time"

	"github.com/mickamy/tarantool-go/iproto"
	"github.com/mickamy/tarantool-go/reconnect"
	"github.com/mickamy/tarantool-go/transport"
)

// defaultStatementCacheSize bounds the prepared-SQL LRU when the caller
// does not configure one explicitly. 0 disables the cache entirely.
const defaultStatementCacheSize = 128

type txConfig struct {
	timeoutSeconds float64
	isolation      iproto.TxIsolationLevel
}

type config struct {
	auth               *transport.Credentials
	requestTimeout     time.Duration
	connectTimeout     time.Duration
	reconnect          reconnect.Policy
	statementCacheSize int
	queueCapacity      int
	logger             *log.Logger
	onEvent            func(Event)
	tx                 txConfig
}

func defaultConfig() *config {
	return &config{statementCacheSize: defaultStatementCacheSize}
}

// Option configures a Client at Dial time.
type Option func(*config)

// WithAuth authenticates the connection via chap-sha1 using user/password.
func WithAuth(user, password string) Option {
	return func(c *config) { c.auth = &transport.Credentials{User: user, Password: password} }
}

// WithRequestTimeout caps how long any single operation waits for a
// reply. Zero (the default) means no per-request cap.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *config) { c.requestTimeout = d }
}

// WithConnectTimeout caps TCP establishment, greeting, and AUTH.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *config) { c.connectTimeout = d }
}

// WithTransactionTimeout sets the default server-side auto-abort window
// passed to BEGIN. It can be overridden per transaction with WithTxTimeout.
func WithTransactionTimeout(d time.Duration) Option {
	return func(c *config) { c.tx.timeoutSeconds = d.Seconds() }
}

// WithTransactionIsolation sets the default isolation level passed to
// BEGIN. It can be overridden per transaction with WithTxIsolation.
func WithTransactionIsolation(level iproto.TxIsolationLevel) Option {
	return func(c *config) { c.tx.isolation = level }
}

// WithReconnect installs a backoff policy the Dispatcher consults between
// reconnect attempts. Omitting this option disables reconnection: the
// first connection failure ends the Client.
func WithReconnect(policy reconnect.Policy) Option {
	return func(c *config) { c.reconnect = policy }
}

// WithStatementCacheSize bounds the prepared-SQL LRU; 0 disables caching.
func WithStatementCacheSize(n int) Option {
	return func(c *config) { c.statementCacheSize = n }
}

// WithQueueCapacity sizes the Dispatcher's internal request queue, the
// "internal concurrent-request threshold" that bounds how many
// outstanding requests a Client admits before Submit starts blocking.
func WithQueueCapacity(n int) Option {
	return func(c *config) { c.queueCapacity = n }
}

// WithLogger attaches a logger for connect/reconnect/request-failure
// lines. A nil logger (the default) makes every log call a no-op.
func WithLogger(logger *log.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithOnEvent installs a callback invoked once per completed request.
func WithOnEvent(fn func(Event)) Option {
	return func(c *config) { c.onEvent = fn }
}
