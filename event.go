package tarantool

import (
	"time"

	"github.com/mickamy/tarantool-go/iproto"
)

// Event is reported to an installed WithOnEvent callback once per
// completed request: a client-local observability record, adapted from
// the teacher's proxy.Event/proxy.Op capture, not anything that crosses
// the wire.
type Event struct {
	Sync     uint64
	StreamID uint64
	Type     iproto.RequestType
	Duration time.Duration
	Err      error
}
