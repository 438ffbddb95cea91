package codec

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameLength caps the body a single frame may declare, guarding the
// reader against allocating on a corrupted or hostile length field.
const MaxFrameLength = 256 << 20 // 256 MiB

type lengthState int

const (
	lengthNoMarker lengthState = iota
	lengthMarkerRead
	lengthResolved
)

// LengthDecoder resolves the MessagePack unsigned-integer length prefix
// IPROTO places at the start of every frame. This client always writes the
// fixed 9-byte uint64 form (see Encode), but a decoder that only accepted
// that form would reject perfectly valid frames from the server or other
// MessagePack writers, so all unsigned-integer encodings are recognized.
//
// Feed is safe to call repeatedly with a growing view of the same
// underlying buffer (e.g. as more bytes arrive on a socket); it keeps
// just enough state between calls to avoid re-parsing the marker byte.
type LengthDecoder struct {
	state  lengthState
	marker byte
}

// Reset returns the decoder to its initial NoMarker state, ready to
// resolve the next frame's length.
func (d *LengthDecoder) Reset() { *d = LengthDecoder{} }

// Feed inspects buf, a byte slice starting at the first undecoded byte of
// the stream. It returns the resolved length and the number of leading
// bytes of buf the length field occupies once resolved. When buf does not
// yet contain the whole length field, consumed is 0 and err is nil: the
// caller should wait for more bytes and call Feed again with a longer buf.
func (d *LengthDecoder) Feed(buf []byte) (length uint64, consumed int, err error) {
	if d.state == lengthNoMarker {
		if len(buf) == 0 {
			return 0, 0, nil
		}
		d.marker = buf[0]
		d.state = lengthMarkerRead
	}

	width, err := markerWidth(d.marker)
	if err != nil {
		return 0, 0, err
	}

	total := 1 + width
	if len(buf) < total {
		return 0, 0, nil
	}

	var value uint64
	switch width {
	case 0:
		value = uint64(d.marker & 0x7f)
	case 1:
		value = uint64(buf[1])
	case 2:
		value = uint64(binary.BigEndian.Uint16(buf[1:3]))
	case 4:
		value = uint64(binary.BigEndian.Uint32(buf[1:5]))
	case 8:
		value = binary.BigEndian.Uint64(buf[1:9])
	}

	d.state = lengthResolved
	return value, total, nil
}

// markerWidth returns the number of bytes following the marker that hold
// the integer value, for the unsigned-integer MessagePack markers a
// length prefix may legally use.
func markerWidth(marker byte) (int, error) {
	switch {
	case marker <= 0x7f:
		return 0, nil
	case marker == 0xcc:
		return 1, nil
	case marker == 0xcd:
		return 2, nil
	case marker == 0xce:
		return 4, nil
	case marker == 0xcf:
		return 8, nil
	default:
		return 0, fmt.Errorf("tarantool: frame length field: marker 0x%02x is not an unsigned integer", marker)
	}
}

// ReadFrame blocks until a full IPROTO frame (length prefix, header, and
// body) is available on r, then returns the header+body bytes with the
// length prefix stripped. It never returns a partial frame: io.ReadFull
// underneath either fills the buffer completely or reports the error that
// prevented it, so there is no way to observe a spurious parse of a frame
// that has not fully arrived yet.
func ReadFrame(r io.Reader) ([]byte, error) {
	var marker [1]byte
	if _, err := io.ReadFull(r, marker[:]); err != nil {
		return nil, err
	}

	width, err := markerWidth(marker[0])
	if err != nil {
		return nil, err
	}

	var length uint64
	switch width {
	case 0:
		length = uint64(marker[0] & 0x7f)
	default:
		rest := make([]byte, width)
		if _, err := io.ReadFull(r, rest); err != nil {
			return nil, err
		}
		switch width {
		case 1:
			length = uint64(rest[0])
		case 2:
			length = uint64(binary.BigEndian.Uint16(rest))
		case 4:
			length = uint64(binary.BigEndian.Uint32(rest))
		case 8:
			length = binary.BigEndian.Uint64(rest)
		}
	}

	if length > MaxFrameLength {
		return nil, fmt.Errorf("tarantool: frame length %d exceeds maximum %d", length, MaxFrameLength)
	}

	frame := make([]byte, length)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, err
	}
	return frame, nil
}
