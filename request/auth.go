package request

import (
	"crypto/sha1"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/mickamy/tarantool-go/iproto"
)

// Auth authenticates the connection using Tarantool's chap-sha1 scheme.
type Auth struct {
	UserName string
	Scramble []byte
}

// NewAuth computes the chap-sha1 scramble for user/password against salt,
// the base64-decoded salt returned in the server greeting.
func NewAuth(user, password string, salt []byte) Auth {
	return Auth{UserName: user, Scramble: scramble(password, salt)}
}

func (Auth) RequestType() iproto.RequestType { return iproto.TypeAuth }

func (a Auth) Encode(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(2); err != nil {
		return err
	}
	if err := writeKeyStr(enc, iproto.KeyUserName, a.UserName); err != nil {
		return err
	}
	if err := enc.EncodeInt(iproto.KeyTuple); err != nil {
		return err
	}
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeString("chap-sha1"); err != nil {
		return err
	}
	return enc.EncodeBytes(a.Scramble)
}

// scramble computes SHA1(password) XOR SHA1(salt[:20] || SHA1(SHA1(password))),
// Tarantool's chap-sha1 challenge response.
func scramble(password string, salt []byte) []byte {
	step1 := sha1Sum([]byte(password))
	step2 := sha1Sum(step1[:])

	saltPrefix := salt
	if len(saltPrefix) > 20 {
		saltPrefix = saltPrefix[:20]
	}

	h := sha1.New()
	h.Write(saltPrefix)
	h.Write(step2[:])
	step3 := h.Sum(nil)

	out := make([]byte, len(step1))
	for i := range out {
		out[i] = step1[i] ^ step3[i]
	}
	return out
}

func sha1Sum(b []byte) [sha1.Size]byte { return sha1.Sum(b) }
