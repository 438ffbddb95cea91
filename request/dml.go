package request

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mickamy/tarantool-go/iproto"
)

// IndexBase is the 1-based index Tarantool expects for UPDATE/UPSERT
// field positions in ops tuples. The wire protocol allows other bases,
// but every production client hardcodes 1 and so does this one (see
// DESIGN.md: original_source leaves this an open question and always
// sends 1).
const IndexBase = 1

// Insert adds a new tuple to space_id, failing if its primary key
// already exists.
type Insert struct {
	SpaceID uint32
	Tuple   TupleEncoder
}

func (Insert) RequestType() iproto.RequestType { return iproto.TypeInsert }

func (r Insert) Encode(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(2); err != nil {
		return err
	}
	if err := writeKeyUint(enc, iproto.KeySpaceID, uint64(r.SpaceID)); err != nil {
		return err
	}
	return writeKeyTuple(enc, iproto.KeyTuple, r.Tuple)
}

// Replace adds or overwrites a tuple by primary key.
type Replace struct {
	SpaceID uint32
	Tuple   TupleEncoder
}

func (Replace) RequestType() iproto.RequestType { return iproto.TypeReplace }

func (r Replace) Encode(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(2); err != nil {
		return err
	}
	if err := writeKeyUint(enc, iproto.KeySpaceID, uint64(r.SpaceID)); err != nil {
		return err
	}
	return writeKeyTuple(enc, iproto.KeyTuple, r.Tuple)
}

// Delete removes the tuple matching Keys from space_id/index_id.
type Delete struct {
	SpaceID uint32
	IndexID uint32
	Keys    TupleEncoder
}

func (Delete) RequestType() iproto.RequestType { return iproto.TypeDelete }

func (r Delete) Encode(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(3); err != nil {
		return err
	}
	if err := writeKeyUint(enc, iproto.KeySpaceID, uint64(r.SpaceID)); err != nil {
		return err
	}
	if err := writeKeyUint(enc, iproto.KeyIndexID, uint64(r.IndexID)); err != nil {
		return err
	}
	return writeKeyTuple(enc, iproto.KeyKey, r.Keys)
}

// Update applies Ops to the tuple matching Keys in space_id/index_id.
type Update struct {
	SpaceID uint32
	IndexID uint32
	Keys    TupleEncoder
	Ops     TupleEncoder
}

func (Update) RequestType() iproto.RequestType { return iproto.TypeUpdate }

func (r Update) Encode(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(5); err != nil {
		return err
	}
	if err := writeKeyUint(enc, iproto.KeySpaceID, uint64(r.SpaceID)); err != nil {
		return err
	}
	if err := writeKeyUint(enc, iproto.KeyIndexID, uint64(r.IndexID)); err != nil {
		return err
	}
	if err := writeKeyUint(enc, iproto.KeyIndexBase, IndexBase); err != nil {
		return err
	}
	if err := writeKeyTuple(enc, iproto.KeyKey, r.Keys); err != nil {
		return err
	}
	return writeKeyTuple(enc, iproto.KeyTuple, r.Ops)
}

// Upsert inserts Tuple, or applies Ops to the existing tuple with the
// same primary key if one exists. Unlike Update, it never fails when no
// match is found.
type Upsert struct {
	SpaceID uint32
	Tuple   TupleEncoder
	Ops     TupleEncoder
}

func (Upsert) RequestType() iproto.RequestType { return iproto.TypeUpsert }

func (r Upsert) Encode(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(4); err != nil {
		return err
	}
	if err := writeKeyUint(enc, iproto.KeySpaceID, uint64(r.SpaceID)); err != nil {
		return err
	}
	if err := writeKeyUint(enc, iproto.KeyIndexBase, IndexBase); err != nil {
		return err
	}
	if err := writeKeyTuple(enc, iproto.KeyOps, r.Ops); err != nil {
		return err
	}
	return writeKeyTuple(enc, iproto.KeyTuple, r.Tuple)
}
