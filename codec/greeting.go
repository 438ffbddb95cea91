package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
)

// GreetingSize is the fixed size in bytes of the greeting Tarantool sends
// immediately after accepting a TCP connection.
const GreetingSize = 128

// Greeting is the server banner and authentication salt read from the
// first 128 bytes of a freshly opened connection.
type Greeting struct {
	Server string
	Salt   []byte
}

// DecodeGreeting parses a 128-byte greeting buffer: bytes 0..63 hold a
// space-padded UTF-8 server banner, bytes 64..127 hold a space-padded
// 44-character base64 salt followed by reserved padding.
func DecodeGreeting(buf [GreetingSize]byte) (Greeting, error) {
	line1 := bytes.TrimRight(buf[0:64], " ")
	line2 := buf[64:128]

	end := bytes.IndexByte(line2, ' ')
	if end < 0 {
		end = len(line2)
	}
	saltB64 := bytes.TrimRight(line2[:end], " ")
	if len(saltB64) == 0 {
		return Greeting{}, errors.New("tarantool: greeting: empty salt")
	}

	salt, err := base64.StdEncoding.DecodeString(string(saltB64))
	if err != nil {
		return Greeting{}, fmt.Errorf("tarantool: greeting: decode salt: %w", err)
	}

	return Greeting{Server: string(line1), Salt: salt}, nil
}

// EncodeGreeting renders g into the 128-byte wire layout DecodeGreeting
// parses. It exists for transporttest's fake server; a real client never
// needs to produce a greeting.
func EncodeGreeting(g Greeting) [GreetingSize]byte {
	var buf [GreetingSize]byte
	for i := range buf {
		buf[i] = ' '
	}
	copy(buf[0:64], []byte(g.Server))

	line2 := base64.StdEncoding.EncodeToString(g.Salt)
	copy(buf[64:128], []byte(line2))

	return buf
}
