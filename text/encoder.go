package text

import (
	"encoding/base64"
	"math/big"
	"strconv"
	"strings"

	"ionkit/decimal"
	"ionkit/ion"
	"ionkit/timestamp"
)

type container struct {
	typ   ion.Type
	count int
}

// Encoder produces text values into memory. Top-level values are each
// followed by a newline, so output can be taken away with Bytes and Reset
// between top-level values.
type Encoder struct {
	stack   []container
	out     []byte
	field   ion.SymbolToken
	hasName bool
	annots  []ion.SymbolToken
	// Indent turns on multi-line output for lists and structs.
	Indent string
}

// NewEncoder returns empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Bytes returns encoded text.
func (e *Encoder) Bytes() []byte {
	return e.out
}

// Len returns number of encoded bytes.
func (e *Encoder) Len() int {
	return len(e.out)
}

// Reset drops encoded output. Open containers stay open.
func (e *Encoder) Reset() {
	e.out = e.out[:0]
}

// Depth returns number of open containers.
func (e *Encoder) Depth() int {
	return len(e.stack)
}

// InStruct reports if values go to a struct and need field names.
func (e *Encoder) InStruct() bool {
	n := len(e.stack)
	return n > 0 && e.stack[n-1].typ == ion.TypeStruct
}

// WriteIVM writes $ion_1_0, only valid at top level.
func (e *Encoder) WriteIVM() error {
	if len(e.stack) > 0 {
		return ion.NewUsageError("WriteIVM", "version marker must be at top level")
	}
	e.out = append(e.out, ion.TextIon10...)
	e.out = append(e.out, '\n')
	return nil
}

// FieldName sets field name for the next value.
func (e *Encoder) FieldName(tok ion.SymbolToken) {
	e.field, e.hasName = tok, true
}

// Annotations sets annotations for the next value.
func (e *Encoder) Annotations(toks ...ion.SymbolToken) {
	e.annots = append(e.annots[:0], toks...)
}

func (e *Encoder) newline(depth int) {
	e.out = append(e.out, '\n')
	e.out = append(e.out, strings.Repeat(e.Indent, depth)...)
}

func (e *Encoder) appendToken(tok ion.SymbolToken) {
	if !tok.HasText() {
		e.out = append(e.out, '$')
		e.out = strconv.AppendInt(e.out, tok.SID, 10)
		return
	}
	if versionSymbol.MatchString(*tok.Text) {
		e.out = append(e.out, '\'')
		e.out = append(e.out, *tok.Text...)
		e.out = append(e.out, '\'')
		return
	}
	e.out = AppendSymbol(e.out, *tok.Text)
}

// begin writes separator, field name and annotations of the next value.
func (e *Encoder) begin(op string) error {
	n := len(e.stack)
	if n > 0 {
		top := &e.stack[n-1]
		if top.typ == ion.TypeStruct && !e.hasName {
			return ion.NewUsageError(op, "value in struct requires field name")
		}
		switch {
		case top.count > 0 && top.typ == ion.TypeSexp:
			e.out = append(e.out, ' ')
		case top.count > 0:
			e.out = append(e.out, ',')
		}
		if e.Indent != "" && top.typ != ion.TypeSexp {
			e.newline(n)
		}
		top.count++
		if top.typ == ion.TypeStruct {
			e.appendToken(e.field)
			e.out = append(e.out, ':')
		}
	}
	for _, a := range e.annots {
		e.appendToken(a)
		e.out = append(e.out, "::"...)
	}
	e.field, e.hasName = ion.SymbolToken{}, false
	e.annots = e.annots[:0]
	return nil
}

func (e *Encoder) end() {
	if len(e.stack) == 0 {
		e.out = append(e.out, '\n')
	}
}

func (e *Encoder) scalar(op string, text string) error {
	if err := e.begin(op); err != nil {
		return err
	}
	e.out = append(e.out, text...)
	e.end()
	return nil
}

// WriteNull writes typed null, TypeNull for null.null.
func (e *Encoder) WriteNull(t ion.Type) error {
	switch {
	case t == ion.TypeNull:
		return e.scalar("WriteNull", "null")
	case t == ion.TypeNone || t == ion.TypeDatagram || !t.IsValid():
		return ion.NewArgumentError("WriteNull", "no null of type %v", t)
	}
	return e.scalar("WriteNull", "null."+t.String())
}

// WriteBool writes bool.
func (e *Encoder) WriteBool(v bool) error {
	return e.scalar("WriteBool", strconv.FormatBool(v))
}

// WriteInt writes int64.
func (e *Encoder) WriteInt(v int64) error {
	return e.scalar("WriteInt", strconv.FormatInt(v, 10))
}

// WriteBigInt writes arbitrary size int.
func (e *Encoder) WriteBigInt(v *big.Int) error {
	return e.scalar("WriteBigInt", v.String())
}

// WriteFloat writes float with exponent.
func (e *Encoder) WriteFloat(v float64) error {
	return e.scalar("WriteFloat", FormatFloat(v))
}

// WriteDecimal writes decimal keeping its scale.
func (e *Encoder) WriteDecimal(d decimal.Decimal) error {
	return e.scalar("WriteDecimal", d.String())
}

// WriteTimestamp writes timestamp in its own precision and offset.
func (e *Encoder) WriteTimestamp(ts timestamp.Timestamp) error {
	return e.scalar("WriteTimestamp", ts.String())
}

// WriteSymbol writes symbol, "$<sid>" when text is unknown.
func (e *Encoder) WriteSymbol(tok ion.SymbolToken) error {
	if !tok.HasText() && tok.SID < 0 {
		return ion.NewArgumentError("WriteSymbol", "symbol has neither text nor ID")
	}
	if err := e.begin("WriteSymbol"); err != nil {
		return err
	}
	e.appendToken(tok)
	e.end()
	return nil
}

// WriteString writes string.
func (e *Encoder) WriteString(s string) error {
	if err := e.begin("WriteString"); err != nil {
		return err
	}
	e.out = AppendString(e.out, s)
	e.end()
	return nil
}

// WriteLob writes clob or blob.
func (e *Encoder) WriteLob(t ion.Type, b []byte) error {
	if t != ion.TypeClob && t != ion.TypeBlob {
		return ion.NewArgumentError("WriteLob", "%v is not a lob", t)
	}
	if err := e.begin("WriteLob"); err != nil {
		return err
	}
	e.out = append(e.out, "{{"...)
	if t == ion.TypeClob {
		e.out = AppendClob(e.out, b)
	} else {
		e.out = base64.StdEncoding.AppendEncode(e.out, b)
	}
	e.out = append(e.out, "}}"...)
	e.end()
	return nil
}

var openChars = map[ion.Type]byte{
	ion.TypeList:   '[',
	ion.TypeSexp:   '(',
	ion.TypeStruct: '{',
}

// BeginContainer opens list, sexp or struct.
func (e *Encoder) BeginContainer(t ion.Type) error {
	open, ok := openChars[t]
	if !ok {
		return ion.NewArgumentError("BeginContainer", "%v is not a container", t)
	}
	if err := e.begin("BeginContainer"); err != nil {
		return err
	}
	e.out = append(e.out, open)
	e.stack = append(e.stack, container{typ: t})
	return nil
}

// EndContainer closes container of type t.
func (e *Encoder) EndContainer(t ion.Type) error {
	n := len(e.stack)
	if n == 0 {
		return ion.NewUsageError("EndContainer", "no container is open")
	}
	top := e.stack[n-1]
	if top.typ != t {
		return ion.NewUsageError("EndContainer", "open container is %v, not %v", top.typ, t)
	}
	if e.Indent != "" && top.typ != ion.TypeSexp && top.count > 0 {
		e.newline(n - 1)
	}
	e.stack = e.stack[:n-1]
	e.out = append(e.out, closeChars[t])
	e.end()
	return nil
}
