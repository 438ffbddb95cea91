package request

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mickamy/tarantool-go/iproto"
)

// Call invokes a registered Lua function with the encoded argument tuple.
type Call struct {
	FunctionName string
	Args         TupleEncoder
}

func (Call) RequestType() iproto.RequestType { return iproto.TypeCall }

func (c Call) Encode(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(2); err != nil {
		return err
	}
	if err := writeKeyStr(enc, iproto.KeyFunction, c.FunctionName); err != nil {
		return err
	}
	return writeKeyTuple(enc, iproto.KeyTuple, c.Args)
}

// Eval runs an arbitrary Lua expression with the encoded argument tuple.
type Eval struct {
	Expr string
	Args TupleEncoder
}

func (Eval) RequestType() iproto.RequestType { return iproto.TypeEval }

func (e Eval) Encode(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(2); err != nil {
		return err
	}
	if err := writeKeyStr(enc, iproto.KeyExpr, e.Expr); err != nil {
		return err
	}
	return writeKeyTuple(enc, iproto.KeyTuple, e.Args)
}
