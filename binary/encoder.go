package binary

import (
	"math"
	"math/big"

	"ionkit/decimal"
	"ionkit/ion"
	"ionkit/timestamp"
)

type container struct {
	typ    ion.Type
	field  int64
	annots []int64
	buf    []byte
}

// Encoder produces binary values into memory. Container content is kept in
// its own buffer until the container ends, when its length is known and
// header can be written in front of it.
type Encoder struct {
	stack  []*container
	out    []byte
	field  int64
	annots []int64
	// CompactFloats makes encoder write 4 byte floats when value survives
	// conversion to float32.
	CompactFloats bool
}

// NewEncoder returns empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{field: ion.SIDUnknown}
}

// Bytes returns encoded top-level values.
func (e *Encoder) Bytes() []byte {
	return e.out
}

// Len returns number of encoded top-level bytes.
func (e *Encoder) Len() int {
	return len(e.out)
}

// Reset drops everything encoded so far.
func (e *Encoder) Reset() {
	e.stack = e.stack[:0]
	e.out = e.out[:0]
	e.field = ion.SIDUnknown
	e.annots = e.annots[:0]
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

// WriteIVM appends version marker, only valid at top level.
func (e *Encoder) WriteIVM() error {
	if len(e.stack) > 0 {
		return ion.NewUsageError("WriteIVM", "version marker must be at top level")
	}
	e.out = append(e.out, ion.IVM...)
	return nil
}

// FieldName sets field name ID for the next value.
func (e *Encoder) FieldName(sid int64) {
	e.field = sid
}

// Annotations sets annotation IDs for the next value.
func (e *Encoder) Annotations(sids ...int64) {
	e.annots = append(e.annots[:0], sids...)
}

func (e *Encoder) target() *[]byte {
	if n := len(e.stack); n > 0 {
		return &e.stack[n-1].buf
	}
	return &e.out
}

func (e *Encoder) checkField(op string) error {
	if e.InStruct() && e.field < 0 {
		return ion.NewUsageError(op, "value in struct requires field name")
	}
	return nil
}

// emit writes field name, annotation wrapper, type descriptor, length and
// payload of a value to the current target.
func (e *Encoder) emit(field int64, annots []int64, code byte, payload []byte) {
	dst := e.target()
	if n := len(e.stack); n > 0 && e.stack[n-1].typ == ion.TypeStruct {
		*dst = AppendVarUInt(*dst, uint64(field))
	}
	if len(annots) > 0 {
		var ab []byte
		for _, sid := range annots {
			ab = AppendVarUInt(ab, uint64(sid))
		}
		inner := headerLen(len(payload)) + len(payload)
		wrapLen := VarUIntLen(uint64(len(ab))) + len(ab) + inner
		*dst = appendHeader(*dst, codeAnnotation, wrapLen)
		*dst = AppendVarUInt(*dst, uint64(len(ab)))
		*dst = append(*dst, ab...)
	}
	*dst = appendHeader(*dst, code, len(payload))
	*dst = append(*dst, payload...)
}

func headerLen(n int) int {
	if n < lenVar {
		return 1
	}
	return 1 + VarUIntLen(uint64(n))
}

func appendHeader(b []byte, code byte, n int) []byte {
	if n < lenVar {
		return append(b, code<<4|byte(n))
	}
	b = append(b, code<<4|lenVar)
	return AppendVarUInt(b, uint64(n))
}

// scalar emits scalar value with pending field name and annotations.
func (e *Encoder) scalar(op string, code byte, payload []byte) error {
	if err := e.checkField(op); err != nil {
		return err
	}
	e.emit(e.field, e.annots, code, payload)
	e.field = ion.SIDUnknown
	e.annots = e.annots[:0]
	return nil
}

// typed emits single byte typed value, nulls and bools.
func (e *Encoder) typed(op string, td byte) error {
	if err := e.checkField(op); err != nil {
		return err
	}
	dst := e.target()
	if e.InStruct() {
		*dst = AppendVarUInt(*dst, uint64(e.field))
	}
	if len(e.annots) > 0 {
		var ab []byte
		for _, sid := range e.annots {
			ab = AppendVarUInt(ab, uint64(sid))
		}
		*dst = appendHeader(*dst, codeAnnotation, VarUIntLen(uint64(len(ab)))+len(ab)+1)
		*dst = AppendVarUInt(*dst, uint64(len(ab)))
		*dst = append(*dst, ab...)
	}
	*dst = append(*dst, td)
	e.field = ion.SIDUnknown
	e.annots = e.annots[:0]
	return nil
}

var nullCodes = map[ion.Type]byte{
	ion.TypeNull:      codeNull,
	ion.TypeBool:      codeBool,
	ion.TypeInt:       codePosInt,
	ion.TypeFloat:     codeFloat,
	ion.TypeDecimal:   codeDecimal,
	ion.TypeTimestamp: codeTimestamp,
	ion.TypeSymbol:    codeSymbol,
	ion.TypeString:    codeString,
	ion.TypeClob:      codeClob,
	ion.TypeBlob:      codeBlob,
	ion.TypeList:      codeList,
	ion.TypeSexp:      codeSexp,
	ion.TypeStruct:    codeStruct,
}

// WriteNull writes typed null, TypeNull for null.null.
func (e *Encoder) WriteNull(t ion.Type) error {
	code, ok := nullCodes[t]
	if !ok {
		return ion.NewArgumentError("WriteNull", "no null of type %v", t)
	}
	return e.typed("WriteNull", code<<4|lenNull)
}

// WriteBool writes bool.
func (e *Encoder) WriteBool(v bool) error {
	td := byte(codeBool << 4)
	if v {
		td |= 1
	}
	return e.typed("WriteBool", td)
}

// WriteInt writes int64, math.MinInt64 included.
func (e *Encoder) WriteInt(v int64) error {
	code := byte(codePosInt)
	mag := uint64(v)
	if v < 0 {
		code = codeNegInt
		mag = -mag
	}
	return e.scalar("WriteInt", code, AppendUInt(nil, mag))
}

// WriteBigInt writes arbitrary size int.
func (e *Encoder) WriteBigInt(v *big.Int) error {
	code := byte(codePosInt)
	if v.Sign() < 0 {
		code = codeNegInt
	}
	return e.scalar("WriteBigInt", code, new(big.Int).Abs(v).Bytes())
}

// WriteFloat writes positive zero as empty float, others as 8 bytes or as 4
// when CompactFloats allows.
func (e *Encoder) WriteFloat(v float64) error {
	if v == 0 && !math.Signbit(v) {
		return e.scalar("WriteFloat", codeFloat, nil)
	}
	if e.CompactFloats && !math.IsNaN(v) && float64(float32(v)) == v {
		u := math.Float32bits(float32(v))
		return e.scalar("WriteFloat", codeFloat, []byte{byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)})
	}
	u := math.Float64bits(v)
	b := make([]byte, 8)
	for i := range 8 {
		b[i] = byte(u >> (56 - 8*i))
	}
	return e.scalar("WriteFloat", codeFloat, b)
}

func appendDecimal(b []byte, d decimal.Decimal) []byte {
	b = AppendVarInt(b, int64(d.Exponent()))
	coef := d.Coefficient()
	neg := d.IsNegative()
	return AppendInt(b, neg, coef.Abs(coef))
}

// WriteDecimal writes decimal, 0d0 as empty payload.
func (e *Encoder) WriteDecimal(d decimal.Decimal) error {
	if d.IsZero() && !d.IsNegativeZero() && d.Exponent() == 0 {
		return e.scalar("WriteDecimal", codeDecimal, nil)
	}
	return e.scalar("WriteDecimal", codeDecimal, appendDecimal(nil, d))
}

// WriteTimestamp writes timestamp with UTC fields.
func (e *Encoder) WriteTimestamp(ts timestamp.Timestamp) error {
	var b []byte
	if m, known := ts.Offset().Minutes(); known {
		b = AppendVarInt(b, int64(m))
	} else {
		b = AppendVarIntMagnitude(b, true, 0)
	}
	p := ts.Precision()
	b = AppendVarUInt(b, uint64(ts.ZYear()))
	if p >= timestamp.PrecisionMonth {
		b = AppendVarUInt(b, uint64(ts.ZMonth()))
	}
	if p >= timestamp.PrecisionDay {
		b = AppendVarUInt(b, uint64(ts.ZDay()))
	}
	if p >= timestamp.PrecisionMinute {
		b = AppendVarUInt(b, uint64(ts.ZHour()))
		b = AppendVarUInt(b, uint64(ts.ZMinute()))
	}
	if p >= timestamp.PrecisionSecond {
		b = AppendVarUInt(b, uint64(ts.ZSecond()))
	}
	if p == timestamp.PrecisionFraction {
		b = appendDecimal(b, ts.Fraction())
	}
	return e.scalar("WriteTimestamp", codeTimestamp, b)
}

// WriteSymbol writes symbol ID.
func (e *Encoder) WriteSymbol(sid int64) error {
	if sid < 0 {
		return ion.NewArgumentError("WriteSymbol", "symbol ID %d is negative", sid)
	}
	return e.scalar("WriteSymbol", codeSymbol, AppendUInt(nil, uint64(sid)))
}

// WriteString writes string.
func (e *Encoder) WriteString(s string) error {
	return e.scalar("WriteString", codeString, []byte(s))
}

// WriteLob writes clob or blob.
func (e *Encoder) WriteLob(t ion.Type, b []byte) error {
	switch t {
	case ion.TypeClob:
		return e.scalar("WriteLob", codeClob, b)
	case ion.TypeBlob:
		return e.scalar("WriteLob", codeBlob, b)
	}
	return ion.NewArgumentError("WriteLob", "%v is not a lob", t)
}

// BeginContainer opens list, sexp or struct.
func (e *Encoder) BeginContainer(t ion.Type) error {
	if t != ion.TypeList && t != ion.TypeSexp && t != ion.TypeStruct {
		return ion.NewArgumentError("BeginContainer", "%v is not a container", t)
	}
	if err := e.checkField("BeginContainer"); err != nil {
		return err
	}
	e.stack = append(e.stack, &container{typ: t, field: e.field, annots: append([]int64(nil), e.annots...)})
	e.field = ion.SIDUnknown
	e.annots = e.annots[:0]
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
	e.stack = e.stack[:n-1]
	code := nullCodes[t]
	e.emit(top.field, top.annots, code, top.buf)
	return nil
}
