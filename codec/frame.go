// Package codec implements IPROTO's length-prefixed framing: resolving and
// writing the MessagePack length field that precedes every header+body
// pair, and parsing the 128-byte greeting a connection starts with.
package codec

import (
	"bytes"
	"encoding/binary"
)

// lengthMarker is the MessagePack marker for a 9-byte (1 marker + 8
// big-endian) uint64 encoding.
const lengthMarker = 0xcf

// lengthFieldSize is the width of the length prefix this client always
// writes: one marker byte plus eight big-endian value bytes.
const lengthFieldSize = 9

// Encode appends a complete IPROTO frame to dst: a 9-byte uint64 length
// prefix followed by header and body verbatim. header and body must each
// already be one complete, self-delimiting MessagePack value (normally a
// map). The length prefix is always written in the fixed 9-byte form,
// never the shortest encoding of the value, so it can be written as a
// single placeholder and patched in place once the total length is known
// instead of measuring header and body ahead of time.
func Encode(dst *bytes.Buffer, header, body []byte) {
	start := dst.Len()
	dst.Grow(lengthFieldSize + len(header) + len(body))

	var placeholder [lengthFieldSize]byte
	dst.Write(placeholder[:])
	dst.Write(header)
	dst.Write(body)

	n := uint64(len(header) + len(body))
	prefix := dst.Bytes()[start : start+lengthFieldSize]
	prefix[0] = lengthMarker
	binary.BigEndian.PutUint64(prefix[1:], n)
}
