// Package reader implements cursors over Ion streams which interpret symbol
// tables. The user view hides version markers and local symbol tables and
// applies them as they pass, the system view reports them as values.
package reader

import (
	"errors"
	"math"
	"math/big"

	"go.uber.org/zap"

	"ionkit/decimal"
	"ionkit/ion"
	"ionkit/symtab"
	"ionkit/timestamp"
)

// IntSize tells the smallest Go type which can hold current int.
type IntSize int

const (
	Int32 IntSize = iota
	Int64
	BigInt
)

func (s IntSize) String() string {
	switch s {
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	}
	return "big.Int"
}

// Option configures Reader.
type Option func(*Reader)

// WithCatalog sets catalog used to satisfy symbol table imports.
func WithCatalog(cat symtab.Catalog) Option {
	return func(r *Reader) {
		r.cat = cat
	}
}

// WithLogger sets logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Reader) {
		if log != nil {
			r.log = log
		}
	}
}

// WithSystemView makes reader report version markers and local symbol
// tables as ordinary values.
func WithSystemView() Option {
	return func(r *Reader) {
		r.system = true
	}
}

// Reader is a cursor over a stream of Ion values. It is not safe for
// concurrent use.
type Reader struct {
	raw    raw
	cat    symtab.Catalog
	log    *zap.Logger
	system bool
	table  *symtab.LocalTable
	// definition of the table reader is positioned on in system view, it
	// takes effect when reader moves past it
	pending *symtab.Def
	onTable bool
	spans   *Spans
	closers []func() error
	err     error
}

func newReader(c raw, opts ...Option) *Reader {
	r := &Reader{raw: c, log: zap.NewNop(), table: symtab.NewLocalTable(nil, nil)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reader) fail(err error) bool {
	if r.err == nil {
		r.err = err
	}
	return false
}

// Err returns error which stopped the reader.
func (r *Reader) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.raw.Err()
}

// Close releases decompressor attached to the reader, if any.
func (r *Reader) Close() error {
	var err error
	for _, c := range r.closers {
		if e := c(); e != nil && err == nil {
			err = e
		}
	}
	r.closers = nil
	return err
}

// Next positions reader on the next value at current depth. It returns
// false at the end of container or stream and on error, see Err.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	for {
		if r.raw.Depth() == 0 && r.pending != nil {
			if err := r.install(r.pending); err != nil {
				return r.fail(err)
			}
			r.pending = nil
		}
		r.onTable = false
		if !r.raw.Next() {
			if err := r.raw.Err(); err != nil {
				return r.fail(err)
			}
			return false
		}
		if r.raw.Depth() > 0 {
			return true
		}
		if r.raw.IsIVM() {
			r.log.Debug("Version marker, symbol context reset", zap.Int64("position", r.raw.Position()))
			r.table = symtab.NewLocalTable(nil, nil)
			if r.system {
				return true
			}
			continue
		}
		isTable, err := r.isLocalTable()
		if err != nil {
			return r.fail(err)
		}
		if !isTable {
			return true
		}
		sub := &Reader{raw: r.raw.fork(), log: r.log, system: true, table: r.table}
		def, err := ReadDef(sub)
		if err != nil {
			return r.fail(err)
		}
		if r.system {
			r.pending, r.onTable = def, true
			return true
		}
		if err := r.install(def); err != nil {
			return r.fail(err)
		}
	}
}

func (r *Reader) install(def *symtab.Def) error {
	t, err := def.BuildLocal(r.table, r.cat, r.log)
	if err != nil {
		return err
	}
	r.table = t
	return nil
}

// isLocalTable reports top-level struct which first annotation is
// $ion_symbol_table.
func (r *Reader) isLocalTable() (bool, error) {
	if r.raw.Type() != ion.TypeStruct {
		return false, nil
	}
	annots := r.raw.Annotations()
	if len(annots) == 0 {
		return false, nil
	}
	tok, err := r.resolve(annots[0])
	if err != nil {
		return false, err
	}
	return tok.HasText() && *tok.Text == ion.TextSymbolTable, nil
}

// IsSymbolTable reports if system view reader is positioned on a local
// symbol table.
func (r *Reader) IsSymbolTable() bool {
	return r.onTable
}

// IsIVM reports if system view reader is positioned on a version marker.
func (r *Reader) IsIVM() bool {
	return r.raw.IsIVM()
}

// SymbolTable returns local symbol table currently in effect.
func (r *Reader) SymbolTable() *symtab.LocalTable {
	return r.table
}

// resolve fills in text of tokens which only carry IDs.
func (r *Reader) resolve(tok ion.SymbolToken) (ion.SymbolToken, error) {
	if tok.HasText() {
		return tok, nil
	}
	res, err := symtab.Resolve(r.table, tok.SID)
	if err != nil {
		var se *ion.SyntaxError
		if errors.As(err, &se) && se.Offset < 0 {
			se.Offset = r.raw.Position()
		}
		return ion.SymbolToken{}, err
	}
	return res, nil
}

// Type returns type of current value, TypeNone when there is none.
func (r *Reader) Type() ion.Type {
	return r.raw.Type()
}

// IsNull reports typed and untyped nulls.
func (r *Reader) IsNull() bool {
	return r.raw.IsNull()
}

// Depth returns number of containers reader stepped in.
func (r *Reader) Depth() int {
	return r.raw.Depth()
}

// StepIn descends into current container.
func (r *Reader) StepIn() error {
	return r.raw.StepIn()
}

// StepOut skips the rest of current container.
func (r *Reader) StepOut() error {
	return r.raw.StepOut()
}

// FieldNameSymbol returns field name of current value with text when it is
// known. False means current value is not in a struct.
func (r *Reader) FieldNameSymbol() (ion.SymbolToken, bool, error) {
	tok, ok := r.raw.FieldName()
	if !ok {
		return ion.SymbolToken{}, false, nil
	}
	tok, err := r.resolve(tok)
	return tok, err == nil, err
}

// FieldName returns text of current field name.
func (r *Reader) FieldName() (string, error) {
	tok, ok, err := r.FieldNameSymbol()
	switch {
	case err != nil:
		return "", err
	case !ok:
		return "", ion.NewUsageError("FieldName", "current value has no field name")
	}
	return tok.Resolve()
}

// AnnotationSymbols returns annotations of current value with text when it
// is known.
func (r *Reader) AnnotationSymbols() ([]ion.SymbolToken, error) {
	annots := r.raw.Annotations()
	for i := range annots {
		tok, err := r.resolve(annots[i])
		if err != nil {
			return nil, err
		}
		annots[i] = tok
	}
	return annots, nil
}

// Annotations returns text of annotations of current value.
func (r *Reader) Annotations() ([]string, error) {
	annots, err := r.AnnotationSymbols()
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(annots))
	for _, a := range annots {
		text, err := a.Resolve()
		if err != nil {
			return nil, err
		}
		res = append(res, text)
	}
	return res, nil
}

// HasAnnotation reports if current value is annotated with text.
func (r *Reader) HasAnnotation(text string) bool {
	annots, err := r.AnnotationSymbols()
	if err != nil {
		return false
	}
	for _, a := range annots {
		if a.HasText() && *a.Text == text {
			return true
		}
	}
	return false
}

// BoolValue returns current bool.
func (r *Reader) BoolValue() (bool, error) {
	return r.raw.BoolValue()
}

// IntValue returns current int.
func (r *Reader) IntValue() (*big.Int, error) {
	return r.raw.IntValue()
}

// Int64Value returns current int when it fits int64.
func (r *Reader) Int64Value() (int64, error) {
	v, err := r.raw.IntValue()
	if err != nil {
		return 0, err
	}
	if !v.IsInt64() {
		return 0, ion.NewValueError("int", "%v does not fit int64", v)
	}
	return v.Int64(), nil
}

// IntSize reports the smallest type which can hold current int.
func (r *Reader) IntSize() (IntSize, error) {
	v, err := r.raw.IntValue()
	if err != nil {
		return BigInt, err
	}
	switch {
	case !v.IsInt64():
		return BigInt, nil
	case v.Int64() < math.MinInt32 || v.Int64() > math.MaxInt32:
		return Int64, nil
	}
	return Int32, nil
}

// FloatValue returns current float.
func (r *Reader) FloatValue() (float64, error) {
	return r.raw.FloatValue()
}

// DecimalValue returns current decimal.
func (r *Reader) DecimalValue() (decimal.Decimal, error) {
	return r.raw.DecimalValue()
}

// TimestampValue returns current timestamp.
func (r *Reader) TimestampValue() (timestamp.Timestamp, error) {
	return r.raw.TimestampValue()
}

// StringValue returns current string.
func (r *Reader) StringValue() (string, error) {
	return r.raw.StringValue()
}

// SymbolValue returns current symbol with text when it is known. In system
// view version marker is reported as $ion_1_0.
func (r *Reader) SymbolValue() (ion.SymbolToken, error) {
	tok, err := r.raw.SymbolValue()
	if err != nil {
		return ion.SymbolToken{}, err
	}
	return r.resolve(tok)
}

// SymbolText returns text of current symbol.
func (r *Reader) SymbolText() (string, error) {
	tok, err := r.SymbolValue()
	if err != nil {
		return "", err
	}
	return tok.Resolve()
}

// LobValue returns current clob or blob.
func (r *Reader) LobValue() ([]byte, error) {
	return r.raw.LobValue()
}

// Spans returns span facet, nil unless reader works over binary bytes in
// memory.
func (r *Reader) Spans() *Spans {
	return r.spans
}
