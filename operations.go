package tarantool

import (
	"context"

	"github.com/mickamy/tarantool-go/iproto"
	"github.com/mickamy/tarantool-go/request"
)

// SelectOptions controls a Select call. The zero value selects with
// IterEq, no offset, and an unbounded limit.
type SelectOptions struct {
	// Limit of 0 means unbounded: the server sees u32::MAX, matching
	// spec.md's documented boundary behavior for an unset limit.
	Limit    uint32
	Offset   uint32
	Iterator iproto.IteratorType
}

// Ping exercises the round trip without touching any space.
func (c conn) Ping(ctx context.Context) error {
	_, err := c.do(ctx, request.Ping{})
	return err
}

// Eval runs a Lua expression with args spliced in as its argument tuple.
// The OK body's DATA array is returned generically; pair this with
// response.TupleDecodeFirst/Two/Full/Result to pull out typed values.
func (c conn) Eval(ctx context.Context, expr string, args TupleEncoder) (any, error) {
	return c.do(ctx, request.Eval{Expr: expr, Args: args})
}

// Call invokes a registered Lua function with args as its argument tuple.
func (c conn) Call(ctx context.Context, function string, args TupleEncoder) (any, error) {
	return c.do(ctx, request.Call{FunctionName: function, Args: args})
}

// Select reads tuples matching keys from spaceID/indexID. Pair the
// returned value with response.SelectDecodeRows[T] to get typed rows.
func (c conn) Select(ctx context.Context, spaceID, indexID uint32, opts SelectOptions, keys TupleEncoder) (any, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = request.DefaultLimit
	}
	return c.do(ctx, request.Select{
		SpaceID:  spaceID,
		IndexID:  indexID,
		Limit:    limit,
		Offset:   opts.Offset,
		Iterator: opts.Iterator,
		Keys:     keys,
	})
}

// Insert adds a new tuple to spaceID, failing if its primary key already
// exists. Pair the returned value with response.DMODecode[T].
func (c conn) Insert(ctx context.Context, spaceID uint32, tuple TupleEncoder) (any, error) {
	return c.do(ctx, request.Insert{SpaceID: spaceID, Tuple: tuple})
}

// Replace adds or overwrites a tuple by primary key.
func (c conn) Replace(ctx context.Context, spaceID uint32, tuple TupleEncoder) (any, error) {
	return c.do(ctx, request.Replace{SpaceID: spaceID, Tuple: tuple})
}

// Update applies ops to the tuple matching keys in spaceID/indexID.
func (c conn) Update(ctx context.Context, spaceID, indexID uint32, keys, ops TupleEncoder) (any, error) {
	return c.do(ctx, request.Update{SpaceID: spaceID, IndexID: indexID, Keys: keys, Ops: ops})
}

// Upsert inserts tuple, or applies ops to the existing tuple with the
// same primary key if one already exists.
func (c conn) Upsert(ctx context.Context, spaceID uint32, tuple, ops TupleEncoder) (any, error) {
	return c.do(ctx, request.Upsert{SpaceID: spaceID, Tuple: tuple, Ops: ops})
}

// Delete removes the tuple matching keys from spaceID/indexID.
func (c conn) Delete(ctx context.Context, spaceID, indexID uint32, keys TupleEncoder) (any, error) {
	return c.do(ctx, request.Delete{SpaceID: spaceID, IndexID: indexID, Keys: keys})
}
