package binary

import (
	"errors"
	"io"
	"math"
	"math/big"
	"unicode/utf8"

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
	typ ion.Type
	end int
}

const compactThreshold = 64 * 1024

// Cursor decodes binary values one at a time. It knows nothing about symbol
// tables: field names, annotations and symbol values are reported as IDs.
//
// Byte-backed cursor works directly over the slice it was given and can report
// and seek spans. Stream-backed cursor reads one complete top-level value
// into memory at a time.
type Cursor struct {
	buf   []byte
	base  int64 // stream offset of buf[0]
	pos   int
	top   int // limit for top-level values, -1 when unbounded
	stack []frame
	in    io.Reader
	inEOF bool

	state cursorState
	err   error

	start    int // value start including annotation wrapper
	td       byte
	typ      ion.Type
	null     bool
	ivm      bool
	field    int64
	annots   []int64
	valStart int
	valEnd   int

	issued map[int]int // spans returned by Span, start to end
}

// NewCursor returns cursor over encoded bytes.
func NewCursor(b []byte) *Cursor {
	return &Cursor{buf: b, top: -1, field: ion.SIDUnknown}
}

// NewStreamCursor returns cursor reading from r.
func NewStreamCursor(r io.Reader) *Cursor {
	return &Cursor{in: r, top: -1, field: ion.SIDUnknown}
}

// IsByteBacked reports if cursor operates over in-memory slice and supports
// spans.
func (c *Cursor) IsByteBacked() bool {
	return c.in == nil
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
	return c.fail(ion.NewSyntaxError(c.base+int64(at), format, args...))
}

func (c *Cursor) truncated(at int) error {
	return c.fail(&ion.SyntaxError{Msg: "truncated value", Offset: c.base + int64(at), Err: ion.ErrUnexpectedEOF})
}

// fill makes sure buf holds at least upto bytes, false when input ends
// earlier.
func (c *Cursor) fill(upto int) bool {
	for len(c.buf) < upto {
		if c.in == nil || c.inEOF {
			return false
		}
		if cap(c.buf)-len(c.buf) < 4096 || cap(c.buf) < upto {
			nb := make([]byte, len(c.buf), max(2*cap(c.buf), upto, 8192))
			copy(nb, c.buf)
			c.buf = nb
		}
		n, err := c.in.Read(c.buf[len(c.buf):cap(c.buf)])
		c.buf = c.buf[:len(c.buf)+n]
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.fail(err)
			}
			c.inEOF = true
		}
	}
	return true
}

// compact drops consumed bytes of a stream-backed cursor.
func (c *Cursor) compact() {
	if c.in == nil || c.pos < compactThreshold {
		return
	}
	n := copy(c.buf, c.buf[c.pos:])
	c.buf = c.buf[:n]
	c.base += int64(c.pos)
	c.pos = 0
}

func (c *Cursor) byteAt(i int) (byte, error) {
	if !c.fill(i + 1) {
		if c.err != nil {
			return 0, c.err
		}
		return 0, c.truncated(i)
	}
	return c.buf[i], nil
}

func (c *Cursor) varUIntAt(i int) (uint64, int, error) {
	var v uint64
	for j := i; ; j++ {
		b, err := c.byteAt(j)
		if err != nil {
			return 0, 0, err
		}
		if v > math.MaxUint64>>7 {
			return 0, 0, c.syntax(i, "VarUInt overflows 64 bits")
		}
		v = v<<7 | uint64(b&0x7F)
		if b&0x80 != 0 {
			return v, j - i + 1, nil
		}
	}
}

// limit returns end of current container, -1 when unbounded.
func (c *Cursor) limit() int {
	if n := len(c.stack); n > 0 {
		return c.stack[n-1].end
	}
	return c.top
}

func (c *Cursor) inStruct() bool {
	n := len(c.stack)
	return n > 0 && c.stack[n-1].typ == ion.TypeStruct
}

func (c *Cursor) resetValue() {
	c.td, c.typ, c.null, c.ivm = 0, ion.TypeNone, false, false
	c.field = ion.SIDUnknown
	c.annots = c.annots[:0]
	c.start, c.valStart, c.valEnd = 0, 0, 0
}

// Next positions cursor on the next value at current depth, skipping
// whatever is left of the current one. It returns false at the end of
// container or input, and on error.
func (c *Cursor) Next() bool {
	if c.err != nil || c.state == stateEnd {
		return false
	}
	if c.state == stateOnValue {
		c.pos = c.valEnd
	}
	c.resetValue()
	c.state = stateBefore

	for {
		if len(c.stack) == 0 {
			c.compact()
		}
		end := c.limit()
		if end >= 0 && c.pos >= end {
			c.state = stateEnd
			return false
		}
		if end < 0 && !c.fill(c.pos+1) {
			c.state = stateEnd
			return false
		}

		if c.inStruct() {
			sid, n, err := c.varUIntAt(c.pos)
			if err != nil {
				return false
			}
			if sid > math.MaxInt64 {
				c.syntax(c.pos, "field name ID %d out of range", sid)
				return false
			}
			c.field = int64(sid)
			c.pos += n
		}

		c.start = c.pos
		td, err := c.byteAt(c.pos)
		if err != nil {
			return false
		}
		if len(c.stack) == 0 && td == 0xE0 {
			return c.versionMarker()
		}

		var pad bool
		if td>>4 == codeAnnotation {
			err = c.annotationWrapper()
		} else {
			pad, err = c.value(c.pos, false)
		}
		if err != nil {
			return false
		}
		if end >= 0 && c.valEnd > end {
			c.syntax(c.start, "value overflows its container")
			return false
		}
		if end < 0 && !c.fill(c.valEnd) {
			if c.err == nil {
				c.truncated(c.start)
			}
			return false
		}
		if pad {
			c.pos = c.valEnd
			c.resetValue()
			continue
		}
		c.state = stateOnValue
		return true
	}
}

func (c *Cursor) versionMarker() bool {
	for i := 1; i < 4; i++ {
		if _, err := c.byteAt(c.start + i); err != nil {
			return false
		}
	}
	b := c.buf[c.start : c.start+4]
	if b[3] != 0xEA {
		c.syntax(c.start, "invalid binary version marker % X", b)
		return false
	}
	if b[1] != 1 || b[2] != 0 {
		c.syntax(c.start, "Unsupported Ion version: %d.%d", b[1], b[2])
		return false
	}
	c.td, c.typ, c.ivm = 0xE0, ion.TypeSymbol, true
	c.valStart, c.valEnd = c.start+4, c.start+4
	c.state = stateOnValue
	return true
}

// header decodes type descriptor and length at i.
func (c *Cursor) header(i int) (td byte, valStart, valEnd int, err error) {
	if td, err = c.byteAt(i); err != nil {
		return 0, 0, 0, err
	}
	code, low := td>>4, int(td&0x0F)
	i++
	length := low
	switch {
	case low == lenNull:
		length = 0
	case code == codeBool:
		length = 0
	case code == codeStruct && low == 1:
		v, n, err := c.varUIntAt(i)
		if err != nil {
			return 0, 0, 0, err
		}
		if v == 0 {
			return 0, 0, 0, c.syntax(i-1, "sorted struct must not be empty")
		}
		i += n
		length = int(v)
	case low == lenVar:
		v, n, err := c.varUIntAt(i)
		if err != nil {
			return 0, 0, 0, err
		}
		if v > math.MaxInt32 {
			return 0, 0, 0, c.syntax(i-1, "value length %d is too large", v)
		}
		i += n
		length = int(v)
	}
	return td, i, i + length, nil
}

// value decodes header of a non-annotation value at i and classifies it. It
// reports NOP pads instead of failing on them, unless wrapped is set.
func (c *Cursor) value(i int, wrapped bool) (pad bool, err error) {
	td, vs, ve, err := c.header(i)
	if err != nil {
		return false, err
	}
	code, low := td>>4, td&0x0F
	c.td, c.valStart, c.valEnd = td, vs, ve
	c.null = low == lenNull

	switch code {
	case codeNull:
		if !c.null {
			if wrapped {
				return false, c.syntax(i, "NOP padding is not allowed within annotation wrappers.")
			}
			return true, nil
		}
		c.typ = ion.TypeNull
	case codeBool:
		if low > 1 && !c.null {
			return false, c.syntax(i, "invalid bool type descriptor 0x%02X", td)
		}
		c.typ = ion.TypeBool
	case codePosInt:
		c.typ = ion.TypeInt
	case codeNegInt:
		if low == 0 {
			return false, c.syntax(i, "negative zero int is not allowed")
		}
		c.typ = ion.TypeInt
	case codeFloat:
		if low != 0 && low != 4 && low != 8 && !c.null {
			return false, c.syntax(i, "invalid float length %d", low)
		}
		c.typ = ion.TypeFloat
	case codeDecimal:
		c.typ = ion.TypeDecimal
	case codeTimestamp:
		if low == 0 {
			return false, c.syntax(i, "timestamp must not be empty")
		}
		c.typ = ion.TypeTimestamp
	case codeSymbol:
		c.typ = ion.TypeSymbol
	case codeString:
		c.typ = ion.TypeString
	case codeClob:
		c.typ = ion.TypeClob
	case codeBlob:
		c.typ = ion.TypeBlob
	case codeList:
		c.typ = ion.TypeList
	case codeSexp:
		c.typ = ion.TypeSexp
	case codeStruct:
		c.typ = ion.TypeStruct
	case codeAnnotation:
		return false, c.syntax(i, "An annotation wrapper may not contain another annotation wrapper.")
	default:
		return false, c.syntax(i, "invalid type descriptor 0x%02X", td)
	}
	return false, nil
}

func (c *Cursor) annotationWrapper() error {
	td, contentStart, wrapperEnd, err := c.header(c.start)
	if err != nil {
		return err
	}
	if td&0x0F == lenNull {
		return c.syntax(c.start, "annotation wrapper cannot be null")
	}
	if wrapperEnd-contentStart < 3 {
		return c.syntax(c.start, "annotation wrapper length %d is too short", wrapperEnd-contentStart)
	}
	alen, n, err := c.varUIntAt(contentStart)
	if err != nil {
		return err
	}
	if alen == 0 {
		return c.syntax(c.start, "annotation wrapper must have at least one annotation")
	}
	p := contentStart + n
	annotsEnd := p + int(alen)
	if alen > math.MaxInt32 || annotsEnd > wrapperEnd {
		return c.syntax(c.start, "annotations length %d overruns annotation wrapper", alen)
	}
	for p < annotsEnd {
		sid, n, err := c.varUIntAt(p)
		if err != nil {
			return err
		}
		if sid > math.MaxInt64 {
			return c.syntax(p, "annotation ID %d out of range", sid)
		}
		c.annots = append(c.annots, int64(sid))
		p += n
	}
	if p != annotsEnd {
		return c.syntax(c.start, "annotation IDs overrun annotations length")
	}
	if _, err := c.value(p, true); err != nil {
		return err
	}
	if c.valEnd != wrapperEnd {
		return c.syntax(c.start, "Wrapper length mismatch: wrapper %d wrapped value %d", c.base+int64(wrapperEnd), c.base+int64(c.valEnd))
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
	c.stack = append(c.stack, frame{typ: c.typ, end: c.valEnd})
	c.pos = c.valStart
	c.resetValue()
	c.state = stateBefore
	return nil
}

// StepOut skips the rest of current container and positions cursor right
// after it.
func (c *Cursor) StepOut() error {
	n := len(c.stack)
	if n == 0 {
		return ion.NewUsageError("StepOut", "cursor is at top level")
	}
	c.pos = c.stack[n-1].end
	c.stack = c.stack[:n-1]
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

// FieldName returns field name ID of current value when it is inside struct.
func (c *Cursor) FieldName() (ion.SymbolToken, bool) {
	if c.state != stateOnValue || c.field == ion.SIDUnknown {
		return ion.SymbolToken{}, false
	}
	return ion.NewSymbolTokenSID(c.field), true
}

// Annotations returns annotation IDs of current value.
func (c *Cursor) Annotations() []ion.SymbolToken {
	if c.state != stateOnValue || len(c.annots) == 0 {
		return nil
	}
	res := make([]ion.SymbolToken, len(c.annots))
	for i, sid := range c.annots {
		res[i] = ion.NewSymbolTokenSID(sid)
	}
	return res
}

// Position returns stream offset of current value, including its annotation
// wrapper.
func (c *Cursor) Position() int64 {
	return c.base + int64(c.start)
}

func (c *Cursor) describe() string {
	if c.null {
		return "null." + c.typ.String()
	}
	return c.typ.String()
}

// scalar checks cursor is on non-null value of given type.
func (c *Cursor) scalar(op string, t ion.Type) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.state != stateOnValue {
		return nil, ion.NewUsageError(op, "cursor is not positioned on a value")
	}
	if c.typ != t {
		return nil, ion.NewUsageError(op, "current value is %s", c.describe())
	}
	if c.null {
		return nil, ion.NewUsageError(op, "current value is %s", c.describe())
	}
	return c.buf[c.valStart:c.valEnd], nil
}

// BoolValue returns current bool.
func (c *Cursor) BoolValue() (bool, error) {
	if _, err := c.scalar("BoolValue", ion.TypeBool); err != nil {
		return false, err
	}
	return c.td&0x0F == 1, nil
}

// IntValue returns current int.
func (c *Cursor) IntValue() (*big.Int, error) {
	b, err := c.scalar("IntValue", ion.TypeInt)
	if err != nil {
		return nil, err
	}
	v := ReadUInt(b)
	if c.td>>4 == codeNegInt {
		if v.Sign() == 0 {
			return nil, c.syntax(c.start, "negative zero int is not allowed")
		}
		v.Neg(v)
	}
	return v, nil
}

// FloatValue returns current float.
func (c *Cursor) FloatValue() (float64, error) {
	b, err := c.scalar("FloatValue", ion.TypeFloat)
	if err != nil {
		return 0, err
	}
	switch len(b) {
	case 0:
		return 0, nil
	case 4:
		return float64(math.Float32frombits(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))), nil
	}
	var u uint64
	for _, x := range b {
		u = u<<8 | uint64(x)
	}
	return math.Float64frombits(u), nil
}

// DecimalValue returns current decimal.
func (c *Cursor) DecimalValue() (decimal.Decimal, error) {
	b, err := c.scalar("DecimalValue", ion.TypeDecimal)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if len(b) == 0 {
		return decimal.Zero, nil
	}
	d, err := c.decodeDecimal(b, c.valStart)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}

func (c *Cursor) decodeDecimal(b []byte, at int) (decimal.Decimal, error) {
	exp, n, err := readVarInt64(b, 0)
	if err != nil {
		return decimal.Decimal{}, c.fail(err)
	}
	if exp < math.MinInt32 || exp > math.MaxInt32 {
		return decimal.Decimal{}, c.syntax(at, "decimal exponent %d out of range", exp)
	}
	mag, neg := ReadInt(b[n:])
	if neg && mag.Sign() == 0 {
		return decimal.NegativeZero(int32(exp)), nil
	}
	if neg {
		mag.Neg(mag)
	}
	return decimal.NewFromBigInt(mag, int32(exp)), nil
}

// TimestampValue returns current timestamp. Binary stores UTC fields, they
// are converted to local time of the offset.
func (c *Cursor) TimestampValue() (timestamp.Timestamp, error) {
	b, err := c.scalar("TimestampValue", ion.TypeTimestamp)
	if err != nil {
		return timestamp.Timestamp{}, err
	}
	at := c.valStart

	offMag, offNeg, p, err := ReadVarInt(b, 0)
	if err != nil {
		return timestamp.Timestamp{}, c.fail(err)
	}
	offset := timestamp.UnknownOffset
	if !(offNeg && offMag == 0) {
		if offMag >= 24*60 {
			return timestamp.Timestamp{}, c.syntax(at, "timestamp offset %d out of range", offMag)
		}
		m := int(offMag)
		if offNeg {
			m = -m
		}
		offset = timestamp.OffsetMinutes(m)
	}

	var fields [6]int
	count := 0
	for count < len(fields)-1 && p < len(b) {
		v, n, err := ReadVarUInt(b, p)
		if err != nil {
			return timestamp.Timestamp{}, c.fail(err)
		}
		if v > 9999 {
			return timestamp.Timestamp{}, c.syntax(at, "timestamp field %d out of range", v)
		}
		fields[count] = int(v)
		count++
		p += n
	}

	prec := timestamp.PrecisionYear
	switch count {
	case 1:
	case 2:
		prec = timestamp.PrecisionMonth
	case 3:
		prec = timestamp.PrecisionDay
	case 4:
		return timestamp.Timestamp{}, c.syntax(at, "timestamp has hour without minute")
	case 5:
		prec = timestamp.PrecisionMinute
	}
	if count == 5 && p < len(b) {
		v, n, err := ReadVarUInt(b, p)
		if err != nil {
			return timestamp.Timestamp{}, c.fail(err)
		}
		fields[5] = int(min(v, 60))
		p += n
		prec = timestamp.PrecisionSecond
	}

	frac := decimal.Zero
	if p < len(b) {
		if prec != timestamp.PrecisionSecond {
			return timestamp.Timestamp{}, c.syntax(at, "timestamp has fraction without seconds")
		}
		if frac, err = c.decodeDecimal(b[p:], at); err != nil {
			return timestamp.Timestamp{}, err
		}
		switch {
		case frac.Exponent() < 0:
			prec = timestamp.PrecisionFraction
		case !frac.IsZero() || frac.IsNegative():
			return timestamp.Timestamp{}, c.syntax(at, "timestamp fraction %v out of range", frac)
		}
	}

	if prec < timestamp.PrecisionMinute {
		offset = timestamp.UnknownOffset
	}
	utc, err := timestamp.New(prec, fields[0], fields[1], fields[2], fields[3], fields[4], fields[5], frac, timestamp.UTC)
	if err != nil {
		return timestamp.Timestamp{}, err
	}
	if prec < timestamp.PrecisionMinute {
		return utc, nil
	}
	m, _ := offset.Minutes()
	local, err := utc.AddMinutes(m)
	if err != nil {
		return timestamp.Timestamp{}, err
	}
	return timestamp.New(prec, local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), local.Second(), frac, offset)
}

// SymbolValue returns ID of current symbol. Version marker reports $ion_1_0.
func (c *Cursor) SymbolValue() (ion.SymbolToken, error) {
	if c.state == stateOnValue && c.ivm {
		return ion.NewSymbolTokenSID(ion.SIDIon10), nil
	}
	b, err := c.scalar("SymbolValue", ion.TypeSymbol)
	if err != nil {
		return ion.SymbolToken{}, err
	}
	sid, err := readUInt64(b, c.base+int64(c.valStart))
	if err != nil {
		return ion.SymbolToken{}, c.fail(err)
	}
	if sid > math.MaxInt64 {
		return ion.SymbolToken{}, c.syntax(c.start, "symbol ID %d out of range", sid)
	}
	return ion.NewSymbolTokenSID(int64(sid)), nil
}

// StringValue returns current string.
func (c *Cursor) StringValue() (string, error) {
	b, err := c.scalar("StringValue", ion.TypeString)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", c.syntax(c.start, "string is not valid UTF-8")
	}
	return string(b), nil
}

// LobValue returns copy of current clob or blob.
func (c *Cursor) LobValue() ([]byte, error) {
	t := c.typ
	if t != ion.TypeClob {
		t = ion.TypeBlob
	}
	b, err := c.scalar("LobValue", t)
	if err != nil {
		return nil, err
	}
	res := make([]byte, len(b))
	copy(res, b)
	return res, nil
}

// Fork returns independent cursor positioned on the same value. It shares
// input bytes and cannot read past the current top-level value. Fork of a
// stream-backed cursor is valid until the original one moves to the next
// top-level value.
func (c *Cursor) Fork() *Cursor {
	f := *c
	f.stack = append([]frame(nil), c.stack...)
	f.annots = append([]int64(nil), c.annots...)
	f.in = nil
	if len(c.stack) == 0 && c.state == stateOnValue {
		f.top = c.valEnd
	}
	return &f
}

// Span returns offsets of current value, annotation wrapper included and
// field name excluded.
func (c *Cursor) Span() (start, end int64, err error) {
	if c.in != nil {
		return 0, 0, ion.NewUsageError("Span", "spans require byte-backed cursor")
	}
	if c.state != stateOnValue {
		return 0, 0, ion.NewUsageError("Span", "cursor is not positioned on a value")
	}
	if c.issued == nil {
		c.issued = make(map[int]int)
	}
	c.issued[c.start] = c.valEnd
	return int64(c.start), int64(c.valEnd), nil
}

// SeekSpan repositions byte-backed cursor to top level so that the next
// value it returns is the one encoded at [start, end), followed by the end of
// input. Span must start at a value header and cover exactly that value:
// either it was returned by Span or walking value headers from the beginning
// of input reaches it. SeekSpan clears earlier errors, which is how a caller
// resumes after damage.
func (c *Cursor) SeekSpan(start, end int64) error {
	if c.in != nil {
		return ion.NewUsageError("SeekSpan", "spans require byte-backed cursor")
	}
	if start < 0 || end > int64(len(c.buf)) || start >= end {
		return ion.NewArgumentError("SeekSpan", "span [%d, %d) is out of input bounds", start, end)
	}
	if e, ok := c.issued[int(start)]; !ok || e != int(end) {
		if !c.valueAt(int(start), int(end)) {
			return ion.NewArgumentError("SeekSpan", "span [%d, %d) is not aligned with a value header", start, end)
		}
	}
	c.stack = c.stack[:0]
	c.pos, c.top = int(start), int(end)
	c.err = nil
	c.resetValue()
	c.state = stateBefore
	return nil
}

// valueAt walks value headers from the beginning of input, descending only
// into containers enclosing start, and reports if some value occupies exactly
// [start, end).
func (c *Cursor) valueAt(start, end int) bool {
	w := &Cursor{buf: c.buf, top: len(c.buf), field: ion.SIDUnknown}
	for w.Next() {
		switch {
		case w.start == start:
			return w.valEnd == end
		case w.start > start:
			return false
		case start < w.valEnd:
			if w.StepIn() != nil {
				return false
			}
		}
	}
	return false
}
