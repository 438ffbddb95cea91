package response

import (
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// decodeValue decodes the next MessagePack value generically, the same
// way dec.DecodeInterface() would, except that every map is decoded with
// uint64 keys rather than whatever scalar type the library's generic
// interface{} decoder happens to pick. Every map IPROTO emits (header,
// body, SQL_INFO) is keyed by small non-negative integers, so this keeps
// key lookups in the rest of this package (KeyData, KeySQLInfo, ...)
// exact instead of guessing at a decoded key's dynamic type.
func decodeValue(dec *msgpack.Decoder) (any, error) {
	code, err := dec.PeekCode()
	if err != nil {
		return nil, err
	}

	switch {
	case msgpcode.IsFixedMap(code) || code == msgpcode.Map16 || code == msgpcode.Map32:
		return decodeMap(dec)
	case msgpcode.IsFixedArray(code) || code == msgpcode.Array16 || code == msgpcode.Array32:
		return decodeArray(dec)
	default:
		return dec.DecodeInterface()
	}
}

// DecodeGenericBody decodes a MessagePack map keyed by uint64 IPROTO field
// ids, the same way every response body is decoded. transporttest's fake
// server uses it to inspect request bodies without a second decoder.
func DecodeGenericBody(dec *msgpack.Decoder) (map[uint64]any, error) {
	return decodeMap(dec)
}

func decodeMap(dec *msgpack.Decoder) (map[uint64]any, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	m := make(map[uint64]any, n)
	for i := 0; i < n; i++ {
		key, err := dec.DecodeUint64()
		if err != nil {
			return nil, err
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		m[key] = val
	}
	return m, nil
}

func decodeArray(dec *msgpack.Decoder) ([]any, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}
	a := make([]any, n)
	for i := 0; i < n; i++ {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		a[i] = v
	}
	return a, nil
}

// convert re-encodes a generically-decoded value and decodes it into dst,
// the same role rmpv::ext::from_value plays in original_source: it lets
// the typed wrappers below turn an `any` leaf (bool, string, int64,
// []any, map[uint64]any, ...) into a caller-specified Go type without
// every decode path needing its own type switch.
func convert(v any, dst any) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return messagePackErr(err, "value conversion")
	}
	return msgpack.Unmarshal(b, dst)
}
