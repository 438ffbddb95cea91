package tarantool

import "github.com/mickamy/tarantool-go/request"

// TupleEncoder is re-exported at the client surface so callers building
// tuples, keys, ops, or SQL bind parameters never need to import the
// request package directly.
type TupleEncoder = request.TupleEncoder

// Values wraps a list of Go values as a TupleEncoder using the default,
// schema-less MessagePack array encoding.
func Values(values ...any) TupleEncoder { return request.Values(values...) }
