package request

import (
	"math"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/mickamy/tarantool-go/iproto"
)

// DefaultLimit is the limit SELECT uses when the caller does not bound
// the result set: effectively unbounded.
const DefaultLimit = math.MaxUint32

// Select reads tuples matching Keys from space_id/index_id.
type Select struct {
	SpaceID  uint32
	IndexID  uint32
	Limit    uint32
	Offset   uint32
	Iterator iproto.IteratorType
	Keys     TupleEncoder
}

func (Select) RequestType() iproto.RequestType { return iproto.TypeSelect }

func (s Select) Encode(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(6); err != nil {
		return err
	}
	if err := writeKeyUint(enc, iproto.KeySpaceID, uint64(s.SpaceID)); err != nil {
		return err
	}
	if err := writeKeyUint(enc, iproto.KeyIndexID, uint64(s.IndexID)); err != nil {
		return err
	}
	if err := writeKeyUint(enc, iproto.KeyLimit, uint64(s.Limit)); err != nil {
		return err
	}
	if err := writeKeyUint(enc, iproto.KeyOffset, uint64(s.Offset)); err != nil {
		return err
	}
	if err := writeKeyUint(enc, iproto.KeyIterator, uint64(s.Iterator)); err != nil {
		return err
	}
	return writeKeyTuple(enc, iproto.KeyKey, s.Keys)
}
