package response

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/mickamy/tarantool-go/iproto"
)

// Response is one fully decoded IPROTO reply: the header fields every
// response carries, plus either a decoded OK value or a *ResponseError.
type Response struct {
	Sync          uint64
	SchemaVersion uint64

	// Value holds the OK body, decoded generically (map/array/scalar),
	// when Err is nil. Typed wrappers in this package narrow Value into
	// the shape a particular operation actually returns.
	Value any

	// Err is a *ResponseError when the header's response code fell in
	// the IPROTO error range; nil otherwise.
	Err error
}

// Decode parses one complete frame (header map immediately followed by a
// body value, with the length prefix already stripped) into a Response.
func Decode(frame []byte) (Response, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(frame))

	header, err := decodeHeader(dec)
	if err != nil {
		return Response{}, err
	}

	resp := Response{Sync: header.sync, SchemaVersion: header.schemaVersion}

	switch {
	case header.code == iproto.ResponseOK:
		v, err := decodeValue(dec)
		if err != nil {
			return Response{}, messagePackErr(err, "OK response body")
		}
		resp.Value = v
	case header.code >= iproto.ErrorRangeStart && header.code <= iproto.ErrorRangeEnd:
		respErr, err := decodeError(dec, header.code-iproto.ErrorRangeStart)
		if err != nil {
			return Response{}, err
		}
		resp.Err = respErr
	default:
		return Response{}, unknownResponseCode(header.code)
	}

	return resp, nil
}

type header struct {
	code          uint64
	sync          uint64
	schemaVersion uint64
}

func decodeHeader(dec *msgpack.Decoder) (header, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return header{}, messagePackErr(err, "response header")
	}

	var h header
	var haveCode, haveSync, haveSchema bool

	for i := 0; i < n; i++ {
		key, err := dec.DecodeUint64()
		if err != nil {
			return header{}, messagePackErr(err, "response header key")
		}
		switch key {
		case iproto.KeyResponseCode:
			v, err := dec.DecodeUint64()
			if err != nil {
				return header{}, typeMismatch("uint", "RESPONSE_CODE")
			}
			h.code, haveCode = v, true
		case iproto.KeySync:
			v, err := dec.DecodeUint64()
			if err != nil {
				return header{}, typeMismatch("uint", "SYNC")
			}
			h.sync, haveSync = v, true
		case iproto.KeySchemaVersion:
			v, err := dec.DecodeUint64()
			if err != nil {
				return header{}, typeMismatch("uint", "SCHEMA_VERSION")
			}
			h.schemaVersion, haveSchema = v, true
		default:
			if err := dec.Skip(); err != nil {
				return header{}, messagePackErr(err, "response header")
			}
		}
	}

	if !haveCode {
		return header{}, missingKey("RESPONSE_CODE")
	}
	if !haveSync {
		return header{}, missingKey("SYNC")
	}
	if !haveSchema {
		return header{}, missingKey("SCHEMA_VERSION")
	}
	return h, nil
}

func decodeError(dec *msgpack.Decoder, code uint64) (*ResponseError, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, messagePackErr(err, "error response body")
	}

	var description string
	var haveDescription bool
	var extras any

	for i := 0; i < n; i++ {
		key, err := dec.DecodeUint64()
		if err != nil {
			return nil, messagePackErr(err, "error response body key")
		}
		switch key {
		case iproto.KeyError24:
			s, err := dec.DecodeString()
			if err != nil {
				return nil, typeMismatch("string", "ERROR_24")
			}
			description, haveDescription = s, true
		case iproto.KeyError:
			// Structured extra error data (box.error's stacked-error
			// fields): decoded generically and kept as-is on Extras,
			// same treatment an OK body's value gets.
			v, err := decodeValue(dec)
			if err != nil {
				return nil, messagePackErr(err, "ERROR")
			}
			extras = v
		default:
			if err := dec.Skip(); err != nil {
				return nil, messagePackErr(err, "error response body")
			}
		}
	}

	if !haveDescription {
		return nil, missingKey("ERROR_24")
	}
	return &ResponseError{Code: uint32(code), Description: description, Extras: extras}, nil
}
