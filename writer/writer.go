// Package writer implements Ion writers which manage symbol tables: binary
// writer interns symbols into its own local table and emits it in front of
// the values, text writer writes symbol text directly.
package writer

import (
	"math/big"

	"go.uber.org/zap"

	"ionkit/decimal"
	"ionkit/ion"
	"ionkit/symtab"
	"ionkit/timestamp"
)

// Writer is implemented by binary and text writers. Field name and
// annotations apply to the next value written.
type Writer interface {
	FieldName(tok ion.SymbolToken) error
	Annotations(toks ...ion.SymbolToken) error

	WriteNull(t ion.Type) error
	WriteBool(v bool) error
	WriteInt(v int64) error
	WriteBigInt(v *big.Int) error
	WriteFloat(v float64) error
	WriteDecimal(v decimal.Decimal) error
	WriteTimestamp(v timestamp.Timestamp) error
	WriteSymbol(tok ion.SymbolToken) error
	WriteString(v string) error
	WriteBlob(v []byte) error
	WriteClob(v []byte) error

	BeginList() error
	EndList() error
	BeginSexp() error
	EndSexp() error
	BeginStruct() error
	EndStruct() error

	// Depth returns number of open containers.
	Depth() int
	// Finish writes out everything written so far. Writer can be used
	// after Finish, binary writer starts a new symbol table context.
	Finish() error
	// Close finishes and closes underlying sink when it is io.Closer.
	Close() error
}

type options struct {
	imports []*symtab.SharedTable
	log     *zap.Logger
	ivm     bool
	compact bool
	indent  string
}

// Option configures writers.
type Option func(*options)

// WithImports makes local symbol table import shared tables, their symbols
// are referenced instead of being repeated in the stream. Text writer
// declares imports so "$<n>" symbols stay meaningful.
func WithImports(tables ...*symtab.SharedTable) Option {
	return func(o *options) {
		o.imports = append(o.imports, tables...)
	}
}

// WithLogger sets logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithIVM makes text writer start output with version marker.
func WithIVM() Option {
	return func(o *options) {
		o.ivm = true
	}
}

// WithCompactFloats makes binary writer use 4 byte floats when no precision
// is lost.
func WithCompactFloats() Option {
	return func(o *options) {
		o.compact = true
	}
}

// WithIndent makes text writer put list and struct elements on separate
// lines indented with s.
func WithIndent(s string) Option {
	return func(o *options) {
		o.indent = s
	}
}

func newOptions(opts []Option) *options {
	o := &options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Strings turns text into symbol tokens, for Annotations.
func Strings(texts ...string) []ion.SymbolToken {
	return ion.NewSymbolTokens(texts...)
}
