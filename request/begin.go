package request

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mickamy/tarantool-go/iproto"
)

// Begin opens a stream-scoped transaction. TimeoutSeconds of 0 means no
// server-side transaction timeout is requested.
type Begin struct {
	TimeoutSeconds float64
	IsolationLevel iproto.TxIsolationLevel
}

func (Begin) RequestType() iproto.RequestType { return iproto.TypeBegin }

func (b Begin) Encode(enc *msgpack.Encoder) error {
	n := 1
	if b.TimeoutSeconds > 0 {
		n = 2
	}
	if err := enc.EncodeMapLen(n); err != nil {
		return err
	}
	if b.TimeoutSeconds > 0 {
		if err := enc.EncodeInt(iproto.KeyTimeout); err != nil {
			return err
		}
		if err := enc.EncodeFloat64(b.TimeoutSeconds); err != nil {
			return err
		}
	}
	return writeKeyUint(enc, iproto.KeyTxIsolation, uint64(b.IsolationLevel))
}
