package text

import (
	"math/big"
	"regexp"
	"strconv"

	"ionkit/decimal"
	"ionkit/ion"
	"ionkit/timestamp"
)

type cursorState int

const (
	stateBefore cursorState = iota
	stateOnValue
	stateEnd // no more values at current depth
)

type frame struct {
	typ    ion.Type
	closed bool // close token was consumed
	count  int  // values read so far
}

var versionSymbol = regexp.MustCompile(`^\$ion_([0-9]+)_([0-9]+)$`)

var closeChars = map[ion.Type]byte{
	ion.TypeList:   ']',
	ion.TypeSexp:   ')',
	ion.TypeStruct: '}',
}

var closeTokens = map[ion.Type]tokenKind{
	ion.TypeList:   tokCloseList,
	ion.TypeSexp:   tokCloseSexp,
	ion.TypeStruct: tokCloseStruct,
}

// Cursor decodes text values one at a time over complete UTF-8 input. Like
// binary cursor it does not interpret symbol tables: "$<n>" symbols are
// reported as IDs, everything else carries text.
type Cursor struct {
	sc    scanner
	stack []frame
	state cursorState
	err   error

	start   int
	typ     ion.Type
	null    bool
	ivm     bool
	pending bool // positioned on container which was not stepped into
	field   ion.SymbolToken
	hasName bool
	annots  []ion.SymbolToken

	boolVal bool
	intVal  *big.Int
	fltVal  float64
	decVal  decimal.Decimal
	tsVal   timestamp.Timestamp
	symVal  ion.SymbolToken
	strVal  string
	lobVal  []byte
}

// NewCursor returns cursor over text. The input must be UTF-8.
func NewCursor(b []byte) *Cursor {
	return &Cursor{sc: scanner{in: b}}
}

// Err returns error which stopped the cursor.
func (c *Cursor) Err() error {
	return c.err
}

func (c *Cursor) fail(err error) error {
	if c.err == nil {
		c.err = err
	}
	c.state = stateEnd
	return err
}

func (c *Cursor) syntax(at int, format string, args ...any) error {
	return c.fail(ion.NewSyntaxError(int64(at), format, args...))
}

func (c *Cursor) top() *frame {
	if n := len(c.stack); n > 0 {
		return &c.stack[n-1]
	}
	return nil
}

func (c *Cursor) parent() ion.Type {
	if f := c.top(); f != nil {
		return f.typ
	}
	return ion.TypeDatagram
}

func (c *Cursor) resetValue() {
	c.typ, c.null, c.ivm, c.pending = ion.TypeNone, false, false, false
	c.field, c.hasName = ion.SymbolToken{}, false
	c.annots = c.annots[:0]
	c.intVal, c.lobVal, c.strVal = nil, nil, ""
}

// skipPending moves past the container the cursor is positioned on.
func (c *Cursor) skipPending() error {
	if !c.pending {
		return nil
	}
	c.pending = false
	if err := c.sc.skipContainer(closeChars[c.typ]); err != nil {
		return c.fail(err)
	}
	return nil
}

func (c *Cursor) next() (token, error) {
	tok, err := c.sc.next(c.parent() == ion.TypeSexp)
	if err != nil {
		return tok, c.fail(err)
	}
	return tok, nil
}

// peekKind returns kind of the next token without consuming it.
func (c *Cursor) peekKind() (tokenKind, error) {
	save := c.sc.pos
	tok, err := c.next()
	c.sc.pos = save
	return tok.kind, err
}

// Next positions cursor on the next value at current depth, skipping
// whatever is left of the current one. It returns false at the end of
// container or input, and on error.
func (c *Cursor) Next() bool {
	if c.err != nil || c.state == stateEnd {
		return false
	}
	if c.skipPending() != nil {
		return false
	}
	c.resetValue()
	c.state = stateBefore

	f := c.top()
	tok, err := c.next()
	if err != nil {
		return false
	}
	if f != nil && f.count > 0 && f.typ != ion.TypeSexp {
		// list and struct values are separated by commas
		switch {
		case tok.kind == closeTokens[f.typ]:
		case tok.kind != tokComma:
			c.syntax(tok.pos, "expected ',' between %s values", f.typ)
			return false
		default:
			if tok, err = c.next(); err != nil {
				return false
			}
		}
	}
	switch {
	case f == nil && tok.kind == tokEOF:
		c.state = stateEnd
		return false
	case tok.kind == tokEOF:
		c.fail(&ion.SyntaxError{Msg: "unterminated " + f.typ.String(), Offset: int64(tok.pos), Err: ion.ErrUnexpectedEOF})
		return false
	case f != nil && tok.kind == closeTokens[f.typ]:
		f.closed = true
		c.state = stateEnd
		return false
	}

	if f != nil && f.typ == ion.TypeStruct {
		if tok, err = c.fieldName(tok); err != nil {
			return false
		}
	}
	c.start = tok.pos
	if err := c.value(tok); err != nil {
		return false
	}
	if f != nil {
		f.count++
	}
	c.state = stateOnValue
	return true
}

func (c *Cursor) fieldName(tok token) (token, error) {
	switch tok.kind {
	case tokIdentifier:
		if isSIDText(tok.text) {
			c.field = c.sidToken(tok)
		} else {
			c.field = ion.NewSymbolToken(tok.text)
		}
	case tokQuotedSymbol, tokString:
		c.field = ion.NewSymbolToken(tok.text)
	default:
		return tok, c.syntax(tok.pos, "expected field name")
	}
	if c.err != nil {
		return tok, c.err
	}
	c.hasName = true
	colon, err := c.next()
	if err != nil {
		return tok, err
	}
	if colon.kind != tokColon {
		return tok, c.syntax(colon.pos, "expected ':' after field name")
	}
	return c.next()
}

func (c *Cursor) sidToken(tok token) ion.SymbolToken {
	sid, err := strconv.ParseInt(tok.text[1:], 10, 64)
	if err != nil {
		c.syntax(tok.pos, "symbol ID %s out of range", tok.text)
		return ion.SymbolToken{}
	}
	return ion.NewSymbolTokenSID(sid)
}

func isSymbolToken(tok token) bool {
	return (tok.kind == tokIdentifier && !keywords[tok.text] && !isTypedNull(tok.text)) || tok.kind == tokQuotedSymbol
}

func isTypedNull(s string) bool {
	return len(s) > 5 && s[:5] == "null."
}

// value reads annotations and the value which starts with tok.
func (c *Cursor) value(tok token) error {
	for isSymbolToken(tok) {
		k, err := c.peekKind()
		if err != nil {
			return err
		}
		if k != tokDoubleColon {
			break
		}
		annot := ion.NewSymbolToken(tok.text)
		if tok.kind == tokIdentifier && isSIDText(tok.text) {
			annot = c.sidToken(tok)
		}
		if c.err != nil {
			return c.err
		}
		c.annots = append(c.annots, annot)
		c.next() // '::'
		if tok, err = c.next(); err != nil {
			return err
		}
	}
	if len(c.annots) > 0 && !c.canStartValue(tok) {
		return c.syntax(tok.pos, "annotation must be followed by a value")
	}

	var err error
	switch tok.kind {
	case tokIdentifier:
		return c.identifier(tok)
	case tokQuotedSymbol, tokOperator:
		c.typ, c.symVal = ion.TypeSymbol, ion.NewSymbolToken(tok.text)
	case tokString:
		c.typ, c.strVal = ion.TypeString, tok.text
	case tokNumeric:
		switch classifyNumeric(tok.text) {
		case numInt:
			c.typ = ion.TypeInt
			c.intVal, err = parseInt(tok.text, tok.pos)
		case numFloat:
			c.typ = ion.TypeFloat
			c.fltVal, err = parseFloat(tok.text, tok.pos)
		case numDecimal:
			c.typ = ion.TypeDecimal
			c.decVal, err = parseDecimal(tok.text, tok.pos)
		case numTimestamp:
			c.typ = ion.TypeTimestamp
			c.tsVal, err = parseTimestamp(tok.text, tok.pos)
		}
	case tokOpenLob:
		c.typ, c.lobVal, err = c.sc.lob()
	case tokOpenList:
		c.typ, c.pending = ion.TypeList, true
	case tokOpenSexp:
		c.typ, c.pending = ion.TypeSexp, true
	case tokOpenStruct:
		c.typ, c.pending = ion.TypeStruct, true
	default:
		return c.syntax(tok.pos, "unexpected token")
	}
	if err != nil {
		return c.fail(err)
	}
	return nil
}

func (c *Cursor) canStartValue(tok token) bool {
	switch tok.kind {
	case tokEOF, tokCloseList, tokCloseSexp, tokCloseStruct, tokComma, tokColon, tokDoubleColon:
		return false
	}
	return true
}

func (c *Cursor) identifier(tok token) error {
	switch s := tok.text; {
	case s == "null":
		c.typ, c.null = ion.TypeNull, true
	case s == "true" || s == "false":
		c.typ, c.boolVal = ion.TypeBool, s == "true"
	case s == "nan":
		c.typ, c.fltVal = ion.TypeFloat, nan()
	case isTypedNull(s):
		t, err := ion.ParseType(s[5:])
		if err != nil || t == ion.TypeNone || t == ion.TypeDatagram {
			return c.syntax(tok.pos, "invalid typed null %q", s)
		}
		c.typ, c.null = t, true
	case isSIDText(s):
		c.typ, c.symVal = ion.TypeSymbol, c.sidToken(tok)
		return c.err
	default:
		if len(c.stack) == 0 && len(c.annots) == 0 {
			if m := versionSymbol.FindStringSubmatch(s); m != nil {
				if m[1] != "1" || m[2] != "0" {
					return c.syntax(tok.pos, "Unsupported Ion version: %s.%s", m[1], m[2])
				}
				c.typ, c.ivm = ion.TypeSymbol, true
				c.symVal = ion.NewSymbolToken(s)
				return nil
			}
		}
		c.typ, c.symVal = ion.TypeSymbol, ion.NewSymbolToken(s)
	}
	return nil
}

// StepIn descends into current container.
func (c *Cursor) StepIn() error {
	if c.state != stateOnValue {
		return ion.NewUsageError("StepIn", "cursor is not positioned on a value")
	}
	if !c.typ.IsContainer() || c.null {
		return ion.NewUsageError("StepIn", "cannot step into %s", c.describe())
	}
	c.stack = append(c.stack, frame{typ: c.typ})
	c.resetValue()
	c.state = stateBefore
	return nil
}

// StepOut skips the rest of current container and positions cursor right
// after it.
func (c *Cursor) StepOut() error {
	f := c.top()
	if f == nil {
		return ion.NewUsageError("StepOut", "cursor is at top level")
	}
	if c.err == nil && !f.closed {
		if c.skipPending() == nil {
			if err := c.sc.skipContainer(closeChars[f.typ]); err != nil {
				c.fail(err)
			}
		}
	}
	c.stack = c.stack[:len(c.stack)-1]
	c.resetValue()
	if c.err == nil {
		c.state = stateBefore
	}
	return nil
}

// Depth returns number of containers cursor stepped in.
func (c *Cursor) Depth() int {
	return len(c.stack)
}

// Type returns type of current value, TypeNone when not on a value.
func (c *Cursor) Type() ion.Type {
	if c.state != stateOnValue {
		return ion.TypeNone
	}
	return c.typ
}

// IsNull reports typed and untyped nulls.
func (c *Cursor) IsNull() bool {
	return c.state == stateOnValue && c.null
}

// IsIVM reports if current value is a version marker.
func (c *Cursor) IsIVM() bool {
	return c.state == stateOnValue && c.ivm
}

// FieldName returns field name of current value when it is inside struct.
func (c *Cursor) FieldName() (ion.SymbolToken, bool) {
	if c.state != stateOnValue || !c.hasName {
		return ion.SymbolToken{}, false
	}
	return c.field, true
}

// Annotations returns annotations of current value.
func (c *Cursor) Annotations() []ion.SymbolToken {
	if c.state != stateOnValue || len(c.annots) == 0 {
		return nil
	}
	return append([]ion.SymbolToken(nil), c.annots...)
}

// Position returns input offset of the current value, annotations excluded.
func (c *Cursor) Position() int64 {
	return int64(c.start)
}

func (c *Cursor) describe() string {
	if c.null {
		return "null." + c.typ.String()
	}
	return c.typ.String()
}

func (c *Cursor) scalar(op string, t ion.Type) error {
	if c.err != nil {
		return c.err
	}
	if c.state != stateOnValue {
		return ion.NewUsageError(op, "cursor is not positioned on a value")
	}
	if c.typ != t || c.null {
		return ion.NewUsageError(op, "current value is %s", c.describe())
	}
	return nil
}

// BoolValue returns current bool.
func (c *Cursor) BoolValue() (bool, error) {
	if err := c.scalar("BoolValue", ion.TypeBool); err != nil {
		return false, err
	}
	return c.boolVal, nil
}

// IntValue returns current int.
func (c *Cursor) IntValue() (*big.Int, error) {
	if err := c.scalar("IntValue", ion.TypeInt); err != nil {
		return nil, err
	}
	return new(big.Int).Set(c.intVal), nil
}

// FloatValue returns current float.
func (c *Cursor) FloatValue() (float64, error) {
	if err := c.scalar("FloatValue", ion.TypeFloat); err != nil {
		return 0, err
	}
	return c.fltVal, nil
}

// DecimalValue returns current decimal.
func (c *Cursor) DecimalValue() (decimal.Decimal, error) {
	if err := c.scalar("DecimalValue", ion.TypeDecimal); err != nil {
		return decimal.Decimal{}, err
	}
	return c.decVal, nil
}

// TimestampValue returns current timestamp.
func (c *Cursor) TimestampValue() (timestamp.Timestamp, error) {
	if err := c.scalar("TimestampValue", ion.TypeTimestamp); err != nil {
		return timestamp.Timestamp{}, err
	}
	return c.tsVal, nil
}

// SymbolValue returns current symbol.
func (c *Cursor) SymbolValue() (ion.SymbolToken, error) {
	if err := c.scalar("SymbolValue", ion.TypeSymbol); err != nil {
		return ion.SymbolToken{}, err
	}
	return c.symVal, nil
}

// StringValue returns current string.
func (c *Cursor) StringValue() (string, error) {
	if err := c.scalar("StringValue", ion.TypeString); err != nil {
		return "", err
	}
	return c.strVal, nil
}

// LobValue returns copy of current clob or blob.
func (c *Cursor) LobValue() ([]byte, error) {
	t := c.typ
	if t != ion.TypeClob {
		t = ion.TypeBlob
	}
	if err := c.scalar("LobValue", t); err != nil {
		return nil, err
	}
	return append([]byte{}, c.lobVal...), nil
}

// Fork returns independent cursor positioned on the same value. It shares
// input with the original, moving either one does not affect the other.
func (c *Cursor) Fork() *Cursor {
	f := *c
	f.stack = append([]frame(nil), c.stack...)
	f.annots = append([]ion.SymbolToken(nil), c.annots...)
	return &f
}
