package request

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mickamy/tarantool-go/iproto"
)

// ID negotiates the protocol version and feature set at connect time.
// Older Tarantool versions do not implement ID at all; the connection
// treats a failed ID exchange as non-fatal (see transport.Connection).
type ID struct {
	ProtocolVersion uint32
	Features        []uint32
}

// DefaultID declares this client's supported feature set.
func DefaultID() ID {
	return ID{ProtocolVersion: iproto.ProtocolVersion, Features: iproto.SupportedFeatures}
}

func (ID) RequestType() iproto.RequestType { return iproto.TypeID }

func (r ID) Encode(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(2); err != nil {
		return err
	}
	if err := writeKeyUint(enc, iproto.KeyVersion, uint64(r.ProtocolVersion)); err != nil {
		return err
	}
	if err := enc.EncodeInt(iproto.KeyFeatures); err != nil {
		return err
	}
	if err := enc.EncodeArrayLen(len(r.Features)); err != nil {
		return err
	}
	for _, f := range r.Features {
		if err := enc.EncodeUint(uint64(f)); err != nil {
			return err
		}
	}
	return nil
}
