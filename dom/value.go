// Package dom materializes Ion values into a tree which can be inspected,
// modified, compared and written back.
package dom

import (
	"math/big"

	"ionkit/decimal"
	"ionkit/ion"
	"ionkit/timestamp"
)

// Value is a node of Ion value tree. A value belongs to at most one
// container at a time. Zero Value is not usable, use constructors.
type Value struct {
	typ      ion.Type
	null     bool
	annots   []ion.SymbolToken
	field    ion.SymbolToken
	parent   *Value
	readOnly bool

	boolVal bool
	intVal  *big.Int
	fltVal  float64
	decVal  decimal.Decimal
	tsVal   timestamp.Timestamp
	symVal  ion.SymbolToken
	strVal  string
	lobVal  []byte

	children []*Value
	// gen changes with every structural modification of children
	gen uint64
}

// NewNull returns typed null, ion.TypeNull for null.null.
func NewNull(t ion.Type) (*Value, error) {
	if t == ion.TypeNone || t == ion.TypeDatagram || !t.IsValid() {
		return nil, ion.NewArgumentError("NewNull", "no null of type %v", t)
	}
	return &Value{typ: t, null: true}, nil
}

func NewBool(v bool) *Value {
	return &Value{typ: ion.TypeBool, boolVal: v}
}

func NewInt(v int64) *Value {
	return &Value{typ: ion.TypeInt, intVal: big.NewInt(v)}
}

func NewBigInt(v *big.Int) *Value {
	return &Value{typ: ion.TypeInt, intVal: new(big.Int).Set(v)}
}

func NewFloat(v float64) *Value {
	return &Value{typ: ion.TypeFloat, fltVal: v}
}

func NewDecimal(v decimal.Decimal) *Value {
	return &Value{typ: ion.TypeDecimal, decVal: v}
}

func NewTimestamp(v timestamp.Timestamp) *Value {
	return &Value{typ: ion.TypeTimestamp, tsVal: v}
}

// NewSymbol returns symbol with text.
func NewSymbol(text string) *Value {
	return &Value{typ: ion.TypeSymbol, symVal: ion.NewSymbolToken(text)}
}

// NewSymbolToken returns symbol which text may be unknown.
func NewSymbolToken(tok ion.SymbolToken) *Value {
	return &Value{typ: ion.TypeSymbol, symVal: tok}
}

func NewString(v string) *Value {
	return &Value{typ: ion.TypeString, strVal: v}
}

func NewBlob(v []byte) *Value {
	return &Value{typ: ion.TypeBlob, lobVal: append([]byte{}, v...)}
}

func NewClob(v []byte) *Value {
	return &Value{typ: ion.TypeClob, lobVal: append([]byte{}, v...)}
}

func NewList() *Value {
	return &Value{typ: ion.TypeList}
}

func NewSexp() *Value {
	return &Value{typ: ion.TypeSexp}
}

func NewStruct() *Value {
	return &Value{typ: ion.TypeStruct}
}

// NewDatagram returns top-level container of a stream.
func NewDatagram() *Value {
	return &Value{typ: ion.TypeDatagram}
}

// Type returns type of the value.
func (v *Value) Type() ion.Type {
	return v.typ
}

// IsNull reports typed and untyped nulls.
func (v *Value) IsNull() bool {
	return v.null
}

// Container returns container holding the value, nil for top-level values.
func (v *Value) Container() *Value {
	return v.parent
}

// FieldName returns name of the value inside struct.
func (v *Value) FieldName() (ion.SymbolToken, bool) {
	if v.parent == nil || v.parent.typ != ion.TypeStruct {
		return ion.SymbolToken{}, false
	}
	return v.field, true
}

// Annotations returns copy of value annotations.
func (v *Value) Annotations() []ion.SymbolToken {
	return append([]ion.SymbolToken(nil), v.annots...)
}

// HasAnnotation reports annotation with given text.
func (v *Value) HasAnnotation(text string) bool {
	for _, a := range v.annots {
		if a.HasText() && *a.Text == text {
			return true
		}
	}
	return false
}

func (v *Value) writable(op string) error {
	if v.readOnly {
		return &ion.UsageError{Op: op, Msg: "value is read-only", Err: ion.ErrReadOnly}
	}
	return nil
}

// SetAnnotations replaces annotations.
func (v *Value) SetAnnotations(toks ...ion.SymbolToken) error {
	if err := v.writable("SetAnnotations"); err != nil {
		return err
	}
	if v.typ == ion.TypeDatagram {
		return ion.NewUsageError("SetAnnotations", "datagram cannot be annotated")
	}
	v.annots = append([]ion.SymbolToken(nil), toks...)
	return nil
}

// AddAnnotation appends annotation text.
func (v *Value) AddAnnotation(text string) error {
	return v.SetAnnotations(append(v.Annotations(), ion.NewSymbolToken(text))...)
}

// MakeReadOnly freezes the value and everything it contains.
func (v *Value) MakeReadOnly() {
	v.readOnly = true
	for _, c := range v.children {
		c.MakeReadOnly()
	}
}

// IsReadOnly reports frozen values.
func (v *Value) IsReadOnly() bool {
	return v.readOnly
}

// Clone returns deep, writable copy which is not contained anywhere.
func (v *Value) Clone() *Value {
	c := *v
	c.parent, c.readOnly, c.gen = nil, false, 0
	c.field = ion.SymbolToken{}
	c.annots = v.Annotations()
	if v.intVal != nil {
		c.intVal = new(big.Int).Set(v.intVal)
	}
	if v.lobVal != nil {
		c.lobVal = append([]byte{}, v.lobVal...)
	}
	c.children = nil
	for _, ch := range v.children {
		cc := ch.Clone()
		cc.field = ch.field
		cc.parent = &c
		c.children = append(c.children, cc)
	}
	return &c
}

func (v *Value) scalar(op string, t ion.Type) error {
	if v.typ != t || v.null {
		what := v.typ.String()
		if v.null {
			what = "null." + what
		}
		return ion.NewUsageError(op, "value is %s", what)
	}
	return nil
}

func (v *Value) BoolValue() (bool, error) {
	return v.boolVal, v.scalar("BoolValue", ion.TypeBool)
}

func (v *Value) IntValue() (*big.Int, error) {
	if err := v.scalar("IntValue", ion.TypeInt); err != nil {
		return nil, err
	}
	return new(big.Int).Set(v.intVal), nil
}

func (v *Value) FloatValue() (float64, error) {
	return v.fltVal, v.scalar("FloatValue", ion.TypeFloat)
}

func (v *Value) DecimalValue() (decimal.Decimal, error) {
	return v.decVal, v.scalar("DecimalValue", ion.TypeDecimal)
}

func (v *Value) TimestampValue() (timestamp.Timestamp, error) {
	return v.tsVal, v.scalar("TimestampValue", ion.TypeTimestamp)
}

func (v *Value) SymbolValue() (ion.SymbolToken, error) {
	return v.symVal, v.scalar("SymbolValue", ion.TypeSymbol)
}

func (v *Value) StringValue() (string, error) {
	return v.strVal, v.scalar("StringValue", ion.TypeString)
}

// LobValue returns copy of clob or blob content.
func (v *Value) LobValue() ([]byte, error) {
	if v.typ != ion.TypeClob {
		if err := v.scalar("LobValue", ion.TypeBlob); err != nil {
			return nil, err
		}
	} else if v.null {
		return nil, v.scalar("LobValue", ion.TypeBlob)
	}
	return append([]byte{}, v.lobVal...), nil
}
