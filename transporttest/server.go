// Package transporttest is a fake IPROTO server for exercising codec,
// transport.Connection, and transport.Dispatcher without a real Tarantool
// instance or a container fixture: a plain net.Listen("tcp",
// "127.0.0.1:0") loop, in the same style the teacher's proxy tests spin up
// a local listener rather than a live upstream.
package transporttest

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/mickamy/tarantool-go/codec"
	"github.com/mickamy/tarantool-go/iproto"
	"github.com/mickamy/tarantool-go/response"
)

// Request is one decoded frame the fake server received.
type Request struct {
	Type     iproto.RequestType
	Sync     uint64
	StreamID uint64
	Body     map[uint64]any
}

// Response is what a Handler wants written back for a Request. Err, when
// set, produces an IPROTO error response instead of an OK one; Body is
// ignored in that case.
type Response struct {
	Body map[uint64]any
	Err  *response.ResponseError

	// Disconnect, when true, closes the connection instead of writing any
	// reply at all, simulating a server crash mid-request.
	Disconnect bool
}

// OK builds a successful Response wrapping body.
func OK(body map[uint64]any) Response { return Response{Body: body} }

// Error builds an error Response with the given IPROTO error code.
func Error(code uint32, description string) Response {
	return Response{Err: &response.ResponseError{Code: code, Description: description}}
}

// Disconnect builds a Response that drops the connection instead of
// replying, for simulating the server dying mid-request.
func Disconnect() Response { return Response{Disconnect: true} }

// Handler decides how the fake server replies to one decoded request. With
// a nil Handler, Server answers every request itself, AUTH and ID
// included; a non-nil Handler receives every request, the AUTH and ID
// handshake requests too.
type Handler func(Request) Response

// Server is a minimal fake Tarantool endpoint: it sends a greeting, then
// services one request/response at a time per connection in arrival order
// (no unsolicited pushes, no pipelining reordering), which is all the
// transport package needs to exercise the codec and connection lifecycle.
type Server struct {
	t        *testing.T
	listener net.Listener
	handler  Handler
	salt     []byte

	closeOnce sync.Once
}

// New starts a Server on an ephemeral localhost port, registers t.Cleanup
// to stop it, and begins accepting connections in the background.
func New(t *testing.T, handler Handler) *Server {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("transporttest: listen: %v", err)
	}

	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		t.Fatalf("transporttest: salt: %v", err)
	}

	s := &Server{t: t, listener: lis, handler: handler, salt: salt}
	go s.acceptLoop()
	t.Cleanup(s.Close)
	return s
}

// Addr returns the "host:port" string Connect should dial.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Close stops accepting new connections. It does not forcibly close
// connections already in flight; tests that need a mid-request disconnect
// should have their Handler return Disconnect() instead.
func (s *Server) Close() {
	s.closeOnce.Do(func() { _ = s.listener.Close() })
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer conn.Close()

	greeting := codec.EncodeGreeting(codec.Greeting{
		Server: "Tarantool 2.11.0 (Binary) fake-" + s.listener.Addr().String(),
		Salt:   s.salt,
	})
	if _, err := conn.Write(greeting[:]); err != nil {
		return
	}

	for {
		frame, err := codec.ReadFrame(conn)
		if err != nil {
			return
		}
		req, err := decodeRequest(frame)
		if err != nil {
			s.t.Logf("transporttest: decode request: %v", err)
			return
		}

		resp, ok := s.defaultHandle(req)
		if !ok {
			resp = s.handler(req)
		}
		if resp.Disconnect {
			return
		}

		out, err := encodeResponse(req.Sync, resp)
		if err != nil {
			s.t.Logf("transporttest: encode response: %v", err)
			return
		}
		if _, err := conn.Write(out); err != nil {
			return
		}
	}
}

// defaultHandle answers AUTH and ID itself, unconditionally successfully,
// unless the test supplied its own handler for them (Handler is consulted
// first by callers that need to simulate auth failure; defaultHandle only
// runs when the installed handler is nil).
func (s *Server) defaultHandle(req Request) (Response, bool) {
	if s.handler != nil {
		return Response{}, false
	}
	switch req.Type {
	case iproto.TypeAuth:
		return OK(nil), true
	case iproto.TypeID:
		return OK(map[uint64]any{
			uint64(iproto.KeyVersion):  iproto.ProtocolVersion,
			uint64(iproto.KeyFeatures): iproto.SupportedFeatures,
		}), true
	default:
		return OK(nil), true
	}
}

func decodeRequest(frame []byte) (Request, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(frame))

	header, err := response.DecodeGenericBody(dec)
	if err != nil {
		return Request{}, fmt.Errorf("transporttest: decode header: %w", err)
	}
	body, err := response.DecodeGenericBody(dec)
	if err != nil {
		return Request{}, fmt.Errorf("transporttest: decode body: %w", err)
	}

	typ, ok := header[uint64(iproto.KeyRequestType)]
	if !ok {
		return Request{}, fmt.Errorf("transporttest: request missing type")
	}
	sync, ok := header[uint64(iproto.KeySync)]
	if !ok {
		return Request{}, fmt.Errorf("transporttest: request missing sync")
	}

	req := Request{
		Type: iproto.RequestType(toUint64(typ)),
		Sync: toUint64(sync),
		Body: body,
	}
	if sid, ok := header[uint64(iproto.KeyStreamID)]; ok {
		req.StreamID = toUint64(sid)
	}
	return req, nil
}

func toUint64(v any) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case int64:
		return uint64(n)
	case int8:
		return uint64(n)
	default:
		return 0
	}
}

func encodeResponse(sync uint64, resp Response) ([]byte, error) {
	code := uint64(iproto.ResponseOK)
	var bodyMap map[uint64]any

	if resp.Err != nil {
		code = uint64(iproto.ErrorRangeStart) + uint64(resp.Err.Code)
		bodyMap = map[uint64]any{
			uint64(iproto.KeyError24): resp.Err.Description,
			uint64(iproto.KeyError):   resp.Err.Description,
		}
	} else {
		bodyMap = resp.Body
	}

	var headerBuf bytes.Buffer
	henc := msgpack.NewEncoder(&headerBuf)
	if err := henc.EncodeMapLen(3); err != nil {
		return nil, err
	}
	if err := henc.EncodeUint(uint64(iproto.KeyResponseCode)); err != nil {
		return nil, err
	}
	if err := henc.EncodeUint(code); err != nil {
		return nil, err
	}
	if err := henc.EncodeUint(uint64(iproto.KeySync)); err != nil {
		return nil, err
	}
	if err := henc.EncodeUint(sync); err != nil {
		return nil, err
	}
	if err := henc.EncodeUint(uint64(iproto.KeySchemaVersion)); err != nil {
		return nil, err
	}
	if err := henc.EncodeUint(1); err != nil {
		return nil, err
	}

	bodyBytes, err := msgpack.Marshal(bodyMap)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	codec.Encode(&out, headerBuf.Bytes(), bodyBytes)
	return out.Bytes(), nil
}
