// Package iproto holds the wire-level constants of Tarantool's binary
// protocol: header/body map keys, request type codes, response code
// ranges, iterator kinds and transaction isolation levels.
//
// See https://www.tarantool.io/en/doc/latest/dev_guide/internals/box_protocol/
// for the authoritative description; only the keys and codes this client
// touches are declared here.
package iproto

// Header and body map keys.
const (
	KeyRequestType   = 0x00
	KeyResponseCode  = 0x00
	KeySync          = 0x01
	KeySchemaVersion = 0x05
	KeyStreamID      = 0x0a

	KeySpaceID     = 0x10
	KeyIndexID     = 0x11
	KeyLimit       = 0x12
	KeyOffset      = 0x13
	KeyIterator    = 0x14
	KeyIndexBase   = 0x15
	KeyKey         = 0x20
	KeyTuple       = 0x21
	KeyFunction    = 0x22
	KeyUserName    = 0x23
	KeyExpr        = 0x27
	KeyOps         = 0x28
	KeyData        = 0x30
	KeyError24     = 0x31
	KeySQLText     = 0x40
	KeySQLBind     = 0x41
	KeySQLInfo     = 0x42
	KeySQLStmtID   = 0x43
	KeyError       = 0x52
	KeyVersion     = 0x54
	KeyFeatures    = 0x55
	KeyTimeout     = 0x56
	KeyTxIsolation = 0x59
)

// SQL_INFO sub-keys (nested inside the KeySQLInfo map).
const (
	KeySQLInfoRowCount = 0x00
)

// RequestType is the IPROTO request/response type code placed under
// KeyRequestType in the header map.
type RequestType uint32

const (
	TypeOK       RequestType = 0
	TypeSelect   RequestType = 1
	TypeInsert   RequestType = 2
	TypeReplace  RequestType = 3
	TypeUpdate   RequestType = 4
	TypeDelete   RequestType = 5
	TypeAuth     RequestType = 7
	TypeEval     RequestType = 8
	TypeUpsert   RequestType = 9
	TypeCall     RequestType = 10
	TypeExecute  RequestType = 11
	TypePrepare  RequestType = 13
	TypeBegin    RequestType = 14
	TypeCommit   RequestType = 15
	TypeRollback RequestType = 16
	TypePing     RequestType = 64
	TypeID       RequestType = 73
)

func (t RequestType) String() string {
	switch t {
	case TypeOK:
		return "OK"
	case TypeSelect:
		return "SELECT"
	case TypeInsert:
		return "INSERT"
	case TypeReplace:
		return "REPLACE"
	case TypeUpdate:
		return "UPDATE"
	case TypeDelete:
		return "DELETE"
	case TypeAuth:
		return "AUTH"
	case TypeEval:
		return "EVAL"
	case TypeUpsert:
		return "UPSERT"
	case TypeCall:
		return "CALL"
	case TypeExecute:
		return "EXECUTE"
	case TypePrepare:
		return "PREPARE"
	case TypeBegin:
		return "BEGIN"
	case TypeCommit:
		return "COMMIT"
	case TypeRollback:
		return "ROLLBACK"
	case TypePing:
		return "PING"
	case TypeID:
		return "ID"
	}
	return "UNKNOWN"
}

// Response code classification (header KeyResponseCode / KeyRequestType).
const (
	ResponseOK      = 0
	ErrorRangeStart = 0x8000
	ErrorRangeEnd   = 0x8FFF
	ErrorCodeMask   = 0x0FFF
)

// IteratorType selects the ordering/matching mode of a SELECT.
type IteratorType uint32

const (
	IterEq IteratorType = iota
	IterReq
	IterAll
	IterLT
	IterLE
	IterGE
	IterGT
	IterBitsAllSet
	IterBitsAnySet
	IterBitsAllNotSet
	IterOverlaps
	IterNeighbor
)

// TxIsolationLevel mirrors box.cfg's MVCC transaction isolation options.
type TxIsolationLevel uint32

const (
	TxIsolationDefault TxIsolationLevel = iota
	TxIsolationReadCommitted
	TxIsolationReadConfirmed
	TxIsolationBestEffort
)

// ProtocolVersion is the feature-negotiation protocol version this client
// declares in the ID request.
const ProtocolVersion = 3

// Feature ids declared in the ID request's FEATURES array.
const (
	FeatureStreams        = 0
	FeatureTransactions   = 1
	FeatureErrorExtension = 2
	FeatureWatchers       = 3
)

// SupportedFeatures is the set of protocol features this client negotiates
// via ID at connect time.
var SupportedFeatures = []uint32{FeatureStreams, FeatureTransactions, FeatureErrorExtension, FeatureWatchers}
