package reader

import (
	"math/big"

	"ionkit/binary"
	"ionkit/decimal"
	"ionkit/ion"
	"ionkit/text"
	"ionkit/timestamp"
)

// raw is what both codec cursors provide: values with symbols as they are
// encoded, no symbol table interpretation.
type raw interface {
	Next() bool
	Err() error
	Type() ion.Type
	IsNull() bool
	IsIVM() bool
	Depth() int
	StepIn() error
	StepOut() error
	FieldName() (ion.SymbolToken, bool)
	Annotations() []ion.SymbolToken
	Position() int64

	BoolValue() (bool, error)
	IntValue() (*big.Int, error)
	FloatValue() (float64, error)
	DecimalValue() (decimal.Decimal, error)
	TimestampValue() (timestamp.Timestamp, error)
	SymbolValue() (ion.SymbolToken, error)
	StringValue() (string, error)
	LobValue() ([]byte, error)

	fork() raw
}

type binaryCursor struct {
	*binary.Cursor
}

func (c binaryCursor) fork() raw {
	return binaryCursor{c.Fork()}
}

type textCursor struct {
	*text.Cursor
}

func (c textCursor) fork() raw {
	return textCursor{c.Fork()}
}
