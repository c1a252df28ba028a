package binary

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math"
	"math/big"
	"strings"
	"testing"

	"ionkit/decimal"
	"ionkit/ion"
	"ionkit/timestamp"
)

func unhex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func TestVarUInt(t *testing.T) {
	for _, v := range []uint64{0, 1, 0x7F, 0x80, 0x3FFF, 0x4000, math.MaxUint32, math.MaxInt64, math.MaxUint64} {
		b := AppendVarUInt(nil, v)
		if len(b) != VarUIntLen(v) {
			t.Fatalf("VarUIntLen(%d): got %d want %d", v, VarUIntLen(v), len(b))
		}
		got, n, err := ReadVarUInt(b, 0)
		if err != nil || got != v || n != len(b) {
			t.Fatalf("VarUInt %d: got %d n=%d err=%v", v, got, n, err)
		}
	}
	// overpadded encodings are legal
	got, n, err := ReadVarUInt([]byte{0x00, 0x00, 0x81}, 0)
	if err != nil || got != 1 || n != 3 {
		t.Fatalf("overpadded VarUInt: got %d n=%d err=%v", got, n, err)
	}
	if _, _, err := ReadVarUInt([]byte{0x01, 0x02}, 0); !errors.Is(err, ion.ErrUnexpectedEOF) {
		t.Fatalf("truncated VarUInt: got %v", err)
	}
}

func TestVarInt(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 63, -63, 64, -64, 8191, -8192, math.MaxInt64, math.MinInt64} {
		b := AppendVarInt(nil, v)
		mag, neg, n, err := ReadVarInt(b, 0)
		if err != nil || n != len(b) {
			t.Fatalf("VarInt %d: n=%d err=%v", v, n, err)
		}
		got := int64(mag)
		if neg {
			got = -got
		}
		if got != v {
			t.Fatalf("VarInt: got %d want %d (% X)", got, v, b)
		}
	}
	if b := AppendVarIntMagnitude(nil, true, 0); !bytes.Equal(b, []byte{0xC0}) {
		t.Fatalf("negative zero VarInt: got % X", b)
	}
}

func TestInt(t *testing.T) {
	mag := new(big.Int).SetUint64(0x80)
	b := AppendInt(nil, true, mag)
	if !bytes.Equal(b, []byte{0x80, 0x80}) {
		t.Fatalf("Int -128: got % X", b)
	}
	got, neg := ReadInt(b)
	if !neg || got.Cmp(mag) != 0 {
		t.Fatalf("ReadInt: got %v neg=%v", got, neg)
	}
	if _, neg := ReadInt([]byte{0x80}); !neg {
		t.Fatalf("negative zero Int must report sign")
	}
}

func TestWrapperLengthMismatch(t *testing.T) {
	c := NewCursor(unhex(t, "E00100EA E6 81 84 71 04"))
	if !c.Next() || !c.IsIVM() {
		t.Fatalf("expected version marker, got %v", c.Err())
	}
	if c.Next() {
		t.Fatalf("expected failure, got %v", c.Type())
	}
	err := c.Err()
	if !ion.IsSyntax(err) {
		t.Fatalf("expected syntax error, got %v", err)
	}
	want := "Wrapper length mismatch: wrapper 11 wrapped value 9 at position 4"
	if err.Error() != want {
		t.Fatalf("got %q want %q", err.Error(), want)
	}
	if c.Next() {
		t.Fatalf("cursor must stay failed")
	}
}

func TestFramingErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		msg  string
	}{
		{"nop in wrapper", "E00100EA E4 81 84 00 00", "NOP padding is not allowed within annotation wrappers."},
		{"nested wrapper", "E00100EA E6 81 84 E3 81 84 20", "An annotation wrapper may not contain another annotation wrapper."},
		{"version 1.1", "E00101EA", "Unsupported Ion version: 1.1"},
		{"bad marker", "E00100EB", "invalid binary version marker"},
		{"negative zero int", "E00100EA 30", "negative zero int is not allowed"},
		{"truncated", "E00100EA 83 61 62", "truncated value"},
		{"overflow container", "E00100EA B2 22 01 02", "value overflows its container"},
		{"bad float", "E00100EA 42 00 00", "invalid float length"},
		{"reserved type", "E00100EA F0", "invalid type descriptor"},
		{"empty annotations", "E00100EA E3 80 21 01", "at least one annotation"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCursor(unhex(t, tc.in))
			for c.Next() {
			}
			err := c.Err()
			if !ion.IsSyntax(err) || !strings.Contains(err.Error(), tc.msg) {
				t.Fatalf("got %v want %q", err, tc.msg)
			}
		})
	}
}

func TestNopPaddingAndOverpadding(t *testing.T) {
	// NOP pads at top level and inside list, overpadded length of a string,
	// NOP pad with field name inside struct
	c := NewCursor(unhex(t, "E00100EA 00 0E 82 00 00 B4 00 21 05 00 8E 00 00 82 68 69 D4 84 02 8A 01"))
	var types []ion.Type
	for c.Next() {
		types = append(types, c.Type())
		if c.Type().IsContainer() {
			must(t, c.StepIn())
			for c.Next() {
				types = append(types, c.Type())
			}
			must(t, c.StepOut())
		}
	}
	if c.Err() != nil {
		t.Fatalf("unexpected error: %v", c.Err())
	}
	want := []ion.Type{ion.TypeSymbol, ion.TypeList, ion.TypeInt, ion.TypeString, ion.TypeStruct}
	if len(types) != len(want) {
		t.Fatalf("got %v want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("got %v want %v", types, want)
		}
	}
}

func TestStepInOut(t *testing.T) {
	enc := NewEncoder()
	must(t, enc.WriteIVM())
	must(t, enc.BeginContainer(ion.TypeStruct))
	enc.FieldName(10)
	must(t, enc.BeginContainer(ion.TypeList))
	for i := range 5 {
		must(t, enc.WriteInt(int64(i)))
	}
	must(t, enc.EndContainer(ion.TypeList))
	enc.FieldName(11)
	enc.Annotations(12, 13)
	must(t, enc.WriteString("after"))
	must(t, enc.EndContainer(ion.TypeStruct))
	must(t, enc.WriteBool(true))

	c := NewCursor(enc.Bytes())
	if err := c.StepIn(); !ion.IsUsage(err) {
		t.Fatalf("StepIn before Next must fail, got %v", err)
	}
	if err := c.StepOut(); !ion.IsUsage(err) {
		t.Fatalf("StepOut at top level must fail, got %v", err)
	}
	c.Next() // IVM
	c.Next()
	must(t, c.StepIn())
	if !c.Next() || c.Type() != ion.TypeList {
		t.Fatalf("expected list, got %v", c.Type())
	}
	if f, _ := c.FieldName(); f.SID != 10 {
		t.Fatalf("field: got %v", f)
	}
	must(t, c.StepIn())
	c.Next()
	c.Next()
	if v, _ := c.IntValue(); v.Int64() != 1 {
		t.Fatalf("int: got %v", v)
	}
	must(t, c.StepOut())
	if !c.Next() || c.Type() != ion.TypeString {
		t.Fatalf("expected string after list, got %v (%v)", c.Type(), c.Err())
	}
	if a := c.Annotations(); len(a) != 2 || a[0].SID != 12 || a[1].SID != 13 {
		t.Fatalf("annotations: got %v", a)
	}
	must(t, c.StepOut())
	if !c.Next() || c.Type() != ion.TypeBool {
		t.Fatalf("expected bool, got %v (%v)", c.Type(), c.Err())
	}
	if c.Next() || c.Err() != nil {
		t.Fatalf("expected clean end, got %v", c.Err())
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestScalarRoundTrip(t *testing.T) {
	big1, _ := new(big.Int).SetString("-123456789012345678901234567890", 10)
	ts := timestamp.MustParse("2008-12-31T23:30:00.120-01:00")

	enc := NewEncoder()
	enc.CompactFloats = true
	must(t, enc.WriteNull(ion.TypeNull))
	must(t, enc.WriteNull(ion.TypeStruct))
	must(t, enc.WriteBool(false))
	must(t, enc.WriteInt(math.MinInt64))
	must(t, enc.WriteBigInt(big1))
	must(t, enc.WriteFloat(0))
	must(t, enc.WriteFloat(1.5))
	must(t, enc.WriteFloat(math.Inf(-1)))
	must(t, enc.WriteFloat(0.1))
	must(t, enc.WriteDecimal(decimal.MustParse("-0.000")))
	must(t, enc.WriteDecimal(decimal.MustParse("123.4500")))
	must(t, enc.WriteDecimal(decimal.Zero))
	must(t, enc.WriteTimestamp(ts))
	must(t, enc.WriteTimestamp(timestamp.MustParse("2008T")))
	enc.Annotations(4)
	must(t, enc.WriteSymbol(7))
	must(t, enc.WriteLob(ion.TypeClob, []byte("clob")))
	must(t, enc.WriteLob(ion.TypeBlob, bytes.Repeat([]byte{1}, 20)))

	c := NewCursor(enc.Bytes())
	next := func(want ion.Type) {
		t.Helper()
		if !c.Next() || c.Type() != want {
			t.Fatalf("expected %v, got %v (%v)", want, c.Type(), c.Err())
		}
	}
	next(ion.TypeNull)
	next(ion.TypeStruct)
	if !c.IsNull() {
		t.Fatalf("expected null.struct")
	}
	next(ion.TypeBool)
	if v, _ := c.BoolValue(); v {
		t.Fatalf("bool: got true")
	}
	next(ion.TypeInt)
	if v, _ := c.IntValue(); !v.IsInt64() || v.Int64() != math.MinInt64 {
		t.Fatalf("MinInt64: got %v", v)
	}
	next(ion.TypeInt)
	if v, _ := c.IntValue(); v.Cmp(big1) != 0 {
		t.Fatalf("big int: got %v", v)
	}
	for _, want := range []float64{0, 1.5, math.Inf(-1), 0.1} {
		next(ion.TypeFloat)
		if v, _ := c.FloatValue(); v != want {
			t.Fatalf("float: got %v want %v", v, want)
		}
	}
	for _, want := range []string{"-0.000", "123.4500", "0."} {
		next(ion.TypeDecimal)
		v, err := c.DecimalValue()
		if err != nil || v.String() != want {
			t.Fatalf("decimal: got %v want %v (%v)", v, want, err)
		}
	}
	next(ion.TypeTimestamp)
	if v, err := c.TimestampValue(); err != nil || !v.Equal(ts) {
		t.Fatalf("timestamp: got %v want %v (%v)", v, ts, err)
	}
	next(ion.TypeTimestamp)
	if v, _ := c.TimestampValue(); v.String() != "2008T" {
		t.Fatalf("timestamp: got %v", v)
	}
	next(ion.TypeSymbol)
	if v, _ := c.SymbolValue(); v.SID != 7 {
		t.Fatalf("symbol: got %v", v)
	}
	if _, err := c.StringValue(); !ion.IsUsage(err) {
		t.Fatalf("StringValue on symbol must be usage error, got %v", err)
	}
	next(ion.TypeClob)
	if v, _ := c.LobValue(); string(v) != "clob" {
		t.Fatalf("clob: got %q", v)
	}
	next(ion.TypeBlob)
	if v, _ := c.LobValue(); len(v) != 20 {
		t.Fatalf("blob: got %d bytes", len(v))
	}
	if c.Next() || c.Err() != nil {
		t.Fatalf("expected clean end, got %v", c.Err())
	}
}

func TestStreamCursor(t *testing.T) {
	enc := NewEncoder()
	must(t, enc.WriteIVM())
	long := strings.Repeat("x", 100000)
	for range 3 {
		must(t, enc.BeginContainer(ion.TypeList))
		must(t, enc.WriteString(long))
		must(t, enc.EndContainer(ion.TypeList))
	}
	c := NewStreamCursor(bytes.NewReader(enc.Bytes()))
	if c.IsByteBacked() {
		t.Fatalf("stream cursor must not be byte-backed")
	}
	count := 0
	for c.Next() {
		if c.IsIVM() {
			continue
		}
		must(t, c.StepIn())
		c.Next()
		if s, _ := c.StringValue(); len(s) != len(long) {
			t.Fatalf("string: got %d bytes", len(s))
		}
		must(t, c.StepOut())
		count++
	}
	if c.Err() != nil || count != 3 {
		t.Fatalf("got %d lists, err %v", count, c.Err())
	}
	if _, _, err := c.Span(); !ion.IsUsage(err) {
		t.Fatalf("stream cursor has no spans, got %v", err)
	}

	truncated := NewStreamCursor(bytes.NewReader(enc.Bytes()[:200]))
	for truncated.Next() {
	}
	if !errors.Is(truncated.Err(), ion.ErrUnexpectedEOF) {
		t.Fatalf("expected unexpected EOF, got %v", truncated.Err())
	}
}

func TestSpanSeek(t *testing.T) {
	enc := NewEncoder()
	must(t, enc.WriteIVM())
	must(t, enc.WriteInt(1))
	must(t, enc.BeginContainer(ion.TypeList))
	enc.Annotations(4)
	must(t, enc.WriteString("inner"))
	must(t, enc.EndContainer(ion.TypeList))
	must(t, enc.WriteInt(3))

	c := NewCursor(enc.Bytes())
	c.Next()
	c.Next()
	c.Next()
	must(t, c.StepIn())
	c.Next()
	start, end, err := c.Span()
	if err != nil {
		t.Fatalf("Span: %v", err)
	}
	for c.Next() {
	}
	must(t, c.StepOut())
	for c.Next() {
	}

	must(t, c.SeekSpan(start, end))
	if !c.Next() || c.Type() != ion.TypeString {
		t.Fatalf("after SeekSpan: got %v (%v)", c.Type(), c.Err())
	}
	if a := c.Annotations(); len(a) != 1 || a[0].SID != 4 {
		t.Fatalf("annotations after SeekSpan: got %v", a)
	}
	if c.Next() {
		t.Fatalf("hoisted span must be followed by end")
	}
	// inside string payload, past its header
	if err := c.SeekSpan(end-2, end); !errors.Is(err, ion.ErrIllegalArgument) {
		t.Fatalf("SeekSpan into value data: got %v", err)
	}
	if err := c.SeekSpan(start, end+1); !errors.Is(err, ion.ErrIllegalArgument) {
		t.Fatalf("SeekSpan with wrong end: got %v", err)
	}
}

func TestSeekSpanAlignment(t *testing.T) {
	enc := NewEncoder()
	must(t, enc.WriteIVM())
	// payload bytes decode as a complete int when read from offset 1
	must(t, enc.WriteString("\x21\x05"))
	must(t, enc.BeginContainer(ion.TypeStruct))
	enc.FieldName(10)
	must(t, enc.WriteInt(7))
	must(t, enc.EndContainer(ion.TypeStruct))
	data := enc.Bytes()

	// string at [4, 7), struct at [7, 11), its field value at [9, 11)
	tests := []struct {
		name       string
		start, end int64
		ok         bool
		want       ion.Type
	}{
		{"string", 4, 7, true, ion.TypeString},
		{"string payload", 5, 7, false, ion.TypeNone},
		{"struct", 7, 11, true, ion.TypeStruct},
		{"struct field value", 9, 11, true, ion.TypeInt},
		{"struct field name", 8, 11, false, ion.TypeNone},
		{"ivm", 0, 4, true, ion.TypeSymbol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCursor(data)
			err := c.SeekSpan(tt.start, tt.end)
			if !tt.ok {
				if !errors.Is(err, ion.ErrIllegalArgument) {
					t.Fatalf("SeekSpan: got %v want illegal argument", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SeekSpan: %v", err)
			}
			if !c.Next() || c.Type() != tt.want {
				t.Fatalf("value after SeekSpan: got %v want %v (%v)", c.Type(), tt.want, c.Err())
			}
		})
	}
}

func TestFork(t *testing.T) {
	enc := NewEncoder()
	must(t, enc.BeginContainer(ion.TypeList))
	must(t, enc.WriteInt(1))
	must(t, enc.WriteInt(2))
	must(t, enc.EndContainer(ion.TypeList))
	must(t, enc.WriteInt(3))

	c := NewCursor(enc.Bytes())
	c.Next()
	f := c.Fork()
	must(t, f.StepIn())
	n := 0
	for f.Next() {
		n++
	}
	must(t, f.StepOut())
	if n != 2 || f.Next() {
		t.Fatalf("fork must be limited to current value, read %d", n)
	}
	if !c.Next() || c.Type() != ion.TypeInt {
		t.Fatalf("original cursor moved: %v", c.Type())
	}
}

func TestEncoderMisuse(t *testing.T) {
	enc := NewEncoder()
	must(t, enc.BeginContainer(ion.TypeStruct))
	if err := enc.WriteInt(1); !ion.IsUsage(err) {
		t.Fatalf("value without field name in struct: got %v", err)
	}
	if err := enc.EndContainer(ion.TypeList); !ion.IsUsage(err) {
		t.Fatalf("mismatched end: got %v", err)
	}
	if err := enc.WriteIVM(); !ion.IsUsage(err) {
		t.Fatalf("nested IVM: got %v", err)
	}
	if err := enc.WriteNull(ion.TypeDatagram); !errors.Is(err, ion.ErrIllegalArgument) {
		t.Fatalf("null.datagram: got %v", err)
	}
}
