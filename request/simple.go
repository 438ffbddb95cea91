package request

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mickamy/tarantool-go/iproto"
)

// Ping carries no body; it only exercises the round trip through a live
// connection.
type Ping struct{}

func (Ping) RequestType() iproto.RequestType { return iproto.TypePing }

func (Ping) Encode(enc *msgpack.Encoder) error { return enc.EncodeMapLen(0) }

// Commit finalizes a stream-scoped transaction. Like Ping, it carries no
// body: the stream id on the frame header is what tells the server which
// transaction to commit.
type Commit struct{}

func (Commit) RequestType() iproto.RequestType { return iproto.TypeCommit }

func (Commit) Encode(enc *msgpack.Encoder) error { return enc.EncodeMapLen(0) }

// Rollback aborts a stream-scoped transaction.
type Rollback struct{}

func (Rollback) RequestType() iproto.RequestType { return iproto.TypeRollback }

func (Rollback) Encode(enc *msgpack.Encoder) error { return enc.EncodeMapLen(0) }
