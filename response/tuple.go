package response

import (
	"fmt"

	"github.com/mickamy/tarantool-go/iproto"
)

// dataArray extracts the IPROTO_DATA array from an OK response body,
// the shape every CALL, EVAL, SELECT, and DML response shares.
func dataArray(value any) ([]any, error) {
	m, ok := value.(map[uint64]any)
	if !ok {
		return nil, typeMismatch("map", "OK response body")
	}
	data, ok := m[uint64(iproto.KeyData)]
	if !ok {
		return nil, missingKey("DATA")
	}
	arr, ok := data.([]any)
	if !ok {
		return nil, typeMismatch("array", "DATA")
	}
	return arr, nil
}

// TupleDecodeFirst decodes the first element of a CALL/EVAL response's
// tuple into T, discarding the rest. Useful when the called function
// does not report errors through a second return value.
func TupleDecodeFirst[T any](value any) (T, error) {
	var zero T
	arr, err := dataArray(value)
	if err != nil {
		return zero, err
	}
	if len(arr) < 1 {
		return zero, invalidTupleLength(1, len(arr))
	}
	var out T
	if err := convert(arr[0], &out); err != nil {
		return zero, err
	}
	return out, nil
}

// TupleDecodeTwo decodes the first two elements of a CALL/EVAL response's
// tuple into T1 and T2, discarding the rest.
func TupleDecodeTwo[T1, T2 any](value any) (T1, T2, error) {
	var z1 T1
	var z2 T2
	arr, err := dataArray(value)
	if err != nil {
		return z1, z2, err
	}
	if len(arr) < 2 {
		return z1, z2, invalidTupleLength(2, len(arr))
	}
	var out1 T1
	var out2 T2
	if err := convert(arr[0], &out1); err != nil {
		return z1, z2, err
	}
	if err := convert(arr[1], &out2); err != nil {
		return z1, z2, err
	}
	return out1, out2, nil
}

// TupleDecodeResult decodes a CALL/EVAL response following the Lua
// convention of returning (result, error): the first tuple element
// decodes into T when the second element is nil or absent, otherwise the
// second element is returned as a *CallEvalError.
func TupleDecodeResult[T any](value any) (T, error) {
	var zero T
	arr, err := dataArray(value)
	if err != nil {
		return zero, err
	}
	if len(arr) < 1 {
		return zero, invalidTupleLength(1, len(arr))
	}
	if len(arr) >= 2 && arr[1] != nil {
		return zero, &CallEvalError{Value: arr[1]}
	}
	var out T
	if err := convert(arr[0], &out); err != nil {
		return zero, err
	}
	return out, nil
}

// TupleDecodeFull decodes the entire DATA array into T.
func TupleDecodeFull[T any](value any) (T, error) {
	var zero T
	arr, err := dataArray(value)
	if err != nil {
		return zero, err
	}
	var out T
	if err := convert(arr, &out); err != nil {
		return zero, err
	}
	return out, nil
}

// CallEvalError is the error a Lua function signaled by returning a
// non-nil second value from CALL or EVAL.
type CallEvalError struct{ Value any }

func (e *CallEvalError) Error() string {
	return fmt.Sprintf("tarantool: call/eval returned an error value: %v", e.Value)
}

func invalidTupleLength(want, got int) *DecodeError {
	return &DecodeError{Message: fmt.Sprintf("expected tuple of length >= %d, got %d", want, got)}
}
