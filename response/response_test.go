package response

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/mickamy/tarantool-go/iproto"
)

func buildFrame(t *testing.T, code uint64, sync uint64, schemaVersion uint64, writeBody func(enc *msgpack.Encoder)) []byte {
	t.Helper()

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	must(t, enc.EncodeMapLen(3))
	must(t, enc.EncodeUint(iproto.KeyResponseCode))
	must(t, enc.EncodeUint(code))
	must(t, enc.EncodeUint(iproto.KeySync))
	must(t, enc.EncodeUint(sync))
	must(t, enc.EncodeUint(iproto.KeySchemaVersion))
	must(t, enc.EncodeUint(schemaVersion))

	writeBody(enc)
	return buf.Bytes()
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestDecodeOKWithData(t *testing.T) {
	t.Parallel()

	frame := buildFrame(t, iproto.ResponseOK, 7, 1, func(enc *msgpack.Encoder) {
		must(t, enc.EncodeMapLen(1))
		must(t, enc.EncodeUint(iproto.KeyData))
		must(t, enc.EncodeArrayLen(1))
		must(t, enc.EncodeBool(true))
	})

	resp, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if resp.Sync != 7 || resp.SchemaVersion != 1 {
		t.Fatalf("Sync/SchemaVersion = %d/%d, want 7/1", resp.Sync, resp.SchemaVersion)
	}
	if resp.Err != nil {
		t.Fatalf("Err = %v, want nil", resp.Err)
	}

	got, err := TupleDecodeFirst[bool](resp.Value)
	if err != nil {
		t.Fatalf("TupleDecodeFirst: %v", err)
	}
	if !got {
		t.Fatal("TupleDecodeFirst: got false, want true")
	}
}

func TestDecodeErrorResponse(t *testing.T) {
	t.Parallel()

	const errorCode = 0 // MP_ERROR stack frame's "code" field id
	const errorMessage = 2

	frame := buildFrame(t, iproto.ErrorRangeStart+10, 1, 1, func(enc *msgpack.Encoder) {
		must(t, enc.EncodeMapLen(2))
		must(t, enc.EncodeUint(iproto.KeyError24))
		must(t, enc.EncodeString("space does not exist"))
		must(t, enc.EncodeUint(iproto.KeyError))
		must(t, enc.EncodeMapLen(1))
		must(t, enc.EncodeUint(0)) // stack[0]: the innermost box.error frame
		must(t, enc.EncodeMapLen(2))
		must(t, enc.EncodeUint(errorCode))
		must(t, enc.EncodeUint(10))
		must(t, enc.EncodeUint(errorMessage))
		must(t, enc.EncodeString("space does not exist"))
	})

	resp, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var respErr *ResponseError
	if !errors.As(resp.Err, &respErr) {
		t.Fatalf("Err = %v, want *ResponseError", resp.Err)
	}
	if respErr.Code != 10 {
		t.Fatalf("Code = %d, want 10", respErr.Code)
	}
	if respErr.Description != "space does not exist" {
		t.Fatalf("Description = %q, want %q", respErr.Description, "space does not exist")
	}

	extras, ok := respErr.Extras.(map[uint64]any)
	if !ok {
		t.Fatalf("Extras = %#v (%T), want map[uint64]any", respErr.Extras, respErr.Extras)
	}
	stack, ok := extras[0].(map[uint64]any)
	if !ok {
		t.Fatalf("Extras[0] = %#v, want a nested map (stacked box.error frame)", extras[0])
	}
	if stack[errorMessage] != "space does not exist" {
		t.Fatalf("Extras[0][%d] = %v, want %q", errorMessage, stack[errorMessage], "space does not exist")
	}
}

func TestDecodeMissingSyncIsError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	must(t, enc.EncodeMapLen(2))
	must(t, enc.EncodeUint(iproto.KeyResponseCode))
	must(t, enc.EncodeUint(iproto.ResponseOK))
	must(t, enc.EncodeUint(iproto.KeySchemaVersion))
	must(t, enc.EncodeUint(1))
	must(t, enc.EncodeMapLen(0))

	if _, err := Decode(buf.Bytes()); err == nil {
		t.Fatal("Decode: expected error for missing SYNC key, got nil")
	}
}

func TestDecodeUnknownResponseCode(t *testing.T) {
	t.Parallel()

	frame := buildFrame(t, 0x9000, 1, 1, func(enc *msgpack.Encoder) {
		must(t, enc.EncodeMapLen(0))
	})
	if _, err := Decode(frame); err == nil {
		t.Fatal("Decode: expected error for unknown response code, got nil")
	}
}

func TestSQLRowCount(t *testing.T) {
	t.Parallel()

	frame := buildFrame(t, iproto.ResponseOK, 1, 1, func(enc *msgpack.Encoder) {
		must(t, enc.EncodeMapLen(1))
		must(t, enc.EncodeUint(iproto.KeySQLInfo))
		must(t, enc.EncodeMapLen(1))
		must(t, enc.EncodeUint(iproto.KeySQLInfoRowCount))
		must(t, enc.EncodeUint(3))
	})

	resp, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	n, err := SQLRowCount(resp.Value)
	if err != nil {
		t.Fatalf("SQLRowCount: %v", err)
	}
	if n != 3 {
		t.Fatalf("SQLRowCount = %d, want 3", n)
	}
}
