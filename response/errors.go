// Package response decodes IPROTO response frames: the header map common
// to every reply, the OK/ERROR body split, and a set of typed wrappers
// higher-level code uses to pull tuples, rows, and SQL results out of a
// decoded body without repeating the same key lookups everywhere.
package response

import "fmt"

// ResponseError is what Tarantool sent back when a request failed:
// box.error's numeric code (with the 0x8000 range offset already removed),
// a human-readable description, and the structured ERROR (0x52) payload,
// decoded generically and handed back as-is (box.error's stacked-error
// fields, left for the caller to interpret).
type ResponseError struct {
	Code        uint32
	Description string
	Extras      any
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("tarantool: error response: %s (code %d)", e.Description, e.Code)
}

// DecodeErrorLocation pinpoints where in a response a DecodeError
// occurred: a specific header/body key, the frame length field, or an
// unnamed location when none is more specific.
type DecodeErrorLocation struct {
	Key   string
	Other string
}

func (l DecodeErrorLocation) String() string {
	switch {
	case l.Key != "":
		return fmt.Sprintf(" (in key %s)", l.Key)
	case l.Other != "":
		return fmt.Sprintf(" (in %s)", l.Other)
	default:
		return ""
	}
}

// DecodeError reports a malformed response: a missing required key, a
// value of the wrong MessagePack type, an unrecognized response code, or
// a MessagePack parse failure.
type DecodeError struct {
	Message  string
	Location DecodeErrorLocation
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tarantool: decode: %s%s: %v", e.Message, e.Location, e.Err)
	}
	return fmt.Sprintf("tarantool: decode: %s%s", e.Message, e.Location)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func missingKey(key string) *DecodeError {
	return &DecodeError{Message: "missing key", Location: DecodeErrorLocation{Key: key}}
}

func typeMismatch(expected, key string) *DecodeError {
	return &DecodeError{Message: fmt.Sprintf("expected %s value", expected), Location: DecodeErrorLocation{Key: key}}
}

func unknownResponseCode(code uint64) *DecodeError {
	return &DecodeError{Message: fmt.Sprintf("unknown response code %d", code)}
}

func messagePackErr(err error, where string) *DecodeError {
	return &DecodeError{Message: "message pack error", Location: DecodeErrorLocation{Other: where}, Err: err}
}
