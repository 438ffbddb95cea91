package request

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mickamy/tarantool-go/iproto"
)

// Execute runs a SQL statement, either by text or by a previously
// prepared statement id, with bound parameters.
type Execute struct {
	Text   string // empty when StmtID is set
	StmtID uint64
	Binds  TupleEncoder
}

// ExecuteText builds an Execute request for raw SQL text.
func ExecuteText(text string, binds TupleEncoder) Execute {
	return Execute{Text: text, Binds: binds}
}

// ExecuteStatement builds an Execute request for a prepared statement id.
func ExecuteStatement(stmtID uint64, binds TupleEncoder) Execute {
	return Execute{StmtID: stmtID, Binds: binds}
}

func (Execute) RequestType() iproto.RequestType { return iproto.TypeExecute }

func (e Execute) Encode(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(2); err != nil {
		return err
	}
	if e.Text != "" || e.StmtID == 0 {
		if err := writeKeyStr(enc, iproto.KeySQLText, e.Text); err != nil {
			return err
		}
	} else {
		if err := writeKeyUint(enc, iproto.KeySQLStmtID, e.StmtID); err != nil {
			return err
		}
	}
	return writeKeyTuple(enc, iproto.KeySQLBind, e.Binds)
}

// Prepare compiles a SQL statement server-side for repeated execution.
type Prepare struct {
	SQLText string
}

func (Prepare) RequestType() iproto.RequestType { return iproto.TypePrepare }

func (p Prepare) Encode(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(1); err != nil {
		return err
	}
	return writeKeyStr(enc, iproto.KeySQLText, p.SQLText)
}
