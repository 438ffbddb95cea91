package tarantool

import (
	"context"
	"time"

	"github.com/mickamy/tarantool-go/internal/redact"
	"github.com/mickamy/tarantool-go/request"
	"github.com/mickamy/tarantool-go/response"
)

// prepareWarmTimeout bounds the background PREPARE round trip ExecuteSQL
// fires on a cache miss; it runs detached from the caller's own context,
// since the caller's EXECUTE has already completed by the time it fires.
const prepareWarmTimeout = 5 * time.Second

// ExecuteSQL runs text as SQL with binds bound positionally. A cache hit
// sends EXECUTE with SQL_STMT_ID; a miss sends EXECUTE with SQL_TEXT
// (one-shot, no caching side effect on this call) and separately attempts
// to warm the prepared-statement cache in the background, per spec.md
// §4.10. Pair the returned value with response.SQLDecodeRows[T] for
// SELECT/PRAGMA/VALUES or response.SQLRowCount for DML.
func (c conn) ExecuteSQL(ctx context.Context, text string, binds TupleEncoder) (any, error) {
	c.cfg.logf("tarantool: execute sql %s", redact.SQL(text))

	if stmtID, ok := c.cache.lookup(text); ok {
		return c.do(ctx, request.ExecuteStatement(stmtID, binds))
	}

	value, err := c.do(ctx, request.ExecuteText(text, binds))
	if err != nil {
		return value, err
	}

	go c.warmPreparedCache(text)
	return value, nil
}

func (c conn) warmPreparedCache(text string) {
	c.cache.tryFill(text, func() (uint64, error) {
		ctx, cancel := context.WithTimeout(context.Background(), prepareWarmTimeout)
		defer cancel()
		value, err := c.do(ctx, request.Prepare{SQLText: text})
		if err != nil {
			return 0, err
		}
		return response.SQLStmtID(value)
	})
}

// PreparedStatement is a server-side compiled SQL statement that always
// executes by SQL_STMT_ID, bypassing the LRU entirely.
type PreparedStatement struct {
	conn conn
	id   uint64
	text string
}

// PrepareSQL compiles text server-side up front.
func (c conn) PrepareSQL(ctx context.Context, text string) (*PreparedStatement, error) {
	c.cfg.logf("tarantool: prepare sql %s", redact.SQL(text))

	value, err := c.do(ctx, request.Prepare{SQLText: text})
	if err != nil {
		return nil, err
	}
	id, err := response.SQLStmtID(value)
	if err != nil {
		return nil, err
	}
	return &PreparedStatement{conn: c, id: id, text: text}, nil
}

// Execute runs the prepared statement with binds bound positionally.
func (p *PreparedStatement) Execute(ctx context.Context, binds TupleEncoder) (any, error) {
	return p.conn.do(ctx, request.ExecuteStatement(p.id, binds))
}

// Text returns the SQL text this statement was prepared from.
func (p *PreparedStatement) Text() string { return p.text }

// StmtID returns the server-assigned SQL_STMT_ID.
func (p *PreparedStatement) StmtID() uint64 { return p.id }
