// Package request builds the body of every IPROTO operation this client
// issues and assembles the length-prefixed frame the wire actually sees.
// Each operation type knows how to encode its own body map; sync and
// stream id allocation is the transport's job, since both are only known
// once a request is actually queued for sending.
package request

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/mickamy/tarantool-go/codec"
	"github.com/mickamy/tarantool-go/iproto"
)

// Body is one encodable IPROTO request body: a per-operation MessagePack
// map written directly with a msgpack.Encoder, without an intermediate
// generic value.
type Body interface {
	RequestType() iproto.RequestType
	Encode(enc *msgpack.Encoder) error
}

// TupleEncoder is the boundary capability the request builders consume
// for every caller-supplied tuple of values: space tuples, SELECT/DELETE
// keys, UPDATE/UPSERT operations, CALL/EVAL arguments, and SQL bind
// parameters. A request builder never inspects the bytes a TupleEncoder
// produces; it only splices them, as one complete MessagePack array
// value, into the body map it is assembling.
type TupleEncoder interface {
	EncodeTuple(enc *msgpack.Encoder) error
}

// valueTuple is the default TupleEncoder: a plain slice of Go values
// encoded as a MessagePack array via the generic Encode path. It gives
// callers a convenient way to pass []any{1, "x", true} without writing
// their own TupleEncoder, but it does no schema-aware or custom-type
// encoding beyond what msgpack.Encoder.Encode already does.
type valueTuple struct{ values []any }

// Values wraps a list of Go values as a TupleEncoder using the default,
// schema-less encoding.
func Values(values ...any) TupleEncoder { return valueTuple{values: values} }

func (t valueTuple) EncodeTuple(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(len(t.values)); err != nil {
		return err
	}
	for _, v := range t.values {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}

// EncodeBody serializes body's map into a standalone buffer, for callers
// that need the body bytes before a sync has been assigned (e.g. to size
// a queued request before handing it to the connection).
func EncodeBody(body Body) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := body.Encode(enc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Frame assembles the complete wire frame for body: a header map (request
// type, sync, and an optional stream id), the body map, and the 9-byte
// length prefix codec.Encode always writes. streamID of 0 means "no
// stream" and is omitted from the header, matching Tarantool's
// convention that stream id 0 is not a valid stream.
func Frame(dst *bytes.Buffer, body Body, sync uint64, streamID uint64) error {
	header, err := EncodeHeader(body.RequestType(), sync, streamID)
	if err != nil {
		return err
	}
	bodyBytes, err := EncodeBody(body)
	if err != nil {
		return err
	}
	codec.Encode(dst, header, bodyBytes)
	return nil
}

// FrameBytes assembles a frame from an already-serialized body, letting
// a resend after reconnect reuse the exact bytes produced the first time
// instead of re-encoding from the caller's values.
func FrameBytes(dst *bytes.Buffer, typ iproto.RequestType, bodyBytes []byte, sync uint64, streamID uint64) error {
	header, err := EncodeHeader(typ, sync, streamID)
	if err != nil {
		return err
	}
	codec.Encode(dst, header, bodyBytes)
	return nil
}

// EncodeHeader builds the 2- or 3-key header map every request frame
// starts with: request type, sync, and an optional stream id (omitted
// when streamID is 0, since 0 means "no stream").
func EncodeHeader(typ iproto.RequestType, sync uint64, streamID uint64) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	n := 2
	if streamID != 0 {
		n = 3
	}
	if err := enc.EncodeMapLen(n); err != nil {
		return nil, err
	}
	if err := writeKeyUint(enc, iproto.KeyRequestType, uint64(typ)); err != nil {
		return nil, err
	}
	if err := writeKeyUint(enc, iproto.KeySync, sync); err != nil {
		return nil, err
	}
	if streamID != 0 {
		if err := writeKeyUint(enc, iproto.KeyStreamID, streamID); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// writeKeyUint writes a single-byte integer map key followed by an
// unsigned integer value, mirroring original_source's write_kv_u32.
func writeKeyUint(enc *msgpack.Encoder, key int, value uint64) error {
	if err := enc.EncodeInt(int64(key)); err != nil {
		return err
	}
	return enc.EncodeUint(value)
}

// writeKeyStr writes a single-byte integer map key followed by a string
// value, mirroring original_source's write_kv_str.
func writeKeyStr(enc *msgpack.Encoder, key int, value string) error {
	if err := enc.EncodeInt(int64(key)); err != nil {
		return err
	}
	return enc.EncodeString(value)
}

// writeKeyTuple writes a single-byte integer map key followed by one
// complete array value produced by a TupleEncoder.
func writeKeyTuple(enc *msgpack.Encoder, key int, t TupleEncoder) error {
	if err := enc.EncodeInt(int64(key)); err != nil {
		return err
	}
	if t == nil {
		return enc.EncodeArrayLen(0)
	}
	return t.EncodeTuple(enc)
}