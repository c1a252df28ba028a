package text

import (
	"errors"
	"math"
	"strings"
	"testing"

	"ionkit/ion"
)

// recode copies values at the current depth of c into e.
func recode(t *testing.T, c *Cursor, e *Encoder) {
	t.Helper()
	for c.Next() {
		if name, ok := c.FieldName(); ok {
			e.FieldName(name)
		}
		e.Annotations(c.Annotations()...)
		if c.IsIVM() {
			if err := e.WriteIVM(); err != nil {
				t.Fatalf("WriteIVM: %v", err)
			}
			continue
		}
		var err error
		switch typ := c.Type(); {
		case c.IsNull():
			err = e.WriteNull(typ)
		case typ.IsContainer():
			if err = c.StepIn(); err != nil {
				break
			}
			if err = e.BeginContainer(typ); err != nil {
				break
			}
			recode(t, c, e)
			if err = c.StepOut(); err != nil {
				break
			}
			err = e.EndContainer(typ)
		case typ == ion.TypeBool:
			v, _ := c.BoolValue()
			err = e.WriteBool(v)
		case typ == ion.TypeInt:
			v, _ := c.IntValue()
			err = e.WriteBigInt(v)
		case typ == ion.TypeFloat:
			v, _ := c.FloatValue()
			err = e.WriteFloat(v)
		case typ == ion.TypeDecimal:
			v, _ := c.DecimalValue()
			err = e.WriteDecimal(v)
		case typ == ion.TypeTimestamp:
			v, _ := c.TimestampValue()
			err = e.WriteTimestamp(v)
		case typ == ion.TypeSymbol:
			v, _ := c.SymbolValue()
			err = e.WriteSymbol(v)
		case typ == ion.TypeString:
			v, _ := c.StringValue()
			err = e.WriteString(v)
		case typ.IsLob():
			v, _ := c.LobValue()
			err = e.WriteLob(typ, v)
		}
		if err != nil {
			t.Fatalf("copy %v: %v", c.Type(), err)
		}
	}
	if err := c.Err(); err != nil {
		t.Fatalf("cursor: %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"int", "1", "1"},
		{"negative hex", "-0x10", "-16"},
		{"binary", "0b101", "5"},
		{"underscores", "1_000_000", "1000000"},
		{"big int", "123456789012345678901234567890", "123456789012345678901234567890"},
		{"decimal scale", "1.50", "1.50"},
		{"decimal exponent", "1d3", "1d3"},
		{"negative zero decimal", "-0.", "-0."},
		{"float", "1.5e0", "1.5e0"},
		{"nan", "nan", "nan"},
		{"infinity", "-inf", "-inf"},
		{"timestamp day", "2007-02-23T", "2007-02-23"},
		{"timestamp year", "2007T", "2007T"},
		{"timestamp offset", "2007-02-23T12:14:33.079+01:00", "2007-02-23T12:14:33.079+01:00"},
		{"timestamp unknown offset", "2007-02-23T12:14-00:00", "2007-02-23T12:14-00:00"},
		{"string escapes", `"a\nbé"`, `"a\nbé"`},
		{"long strings", "'''ab''' /* c */ '''cd'''", `"abcd"`},
		{"quoted symbol", "'hello world'", "'hello world'"},
		{"symbol id", "$10", "$10"},
		{"quoted sid text", "'$10'", "'$10'"},
		{"keyword symbol", "'null'", "'null'"},
		{"annotations", "foo::'b c'::1", "foo::'b c'::1"},
		{"typed null", "null.string", "null.string"},
		{"null", "null", "null"},
		{"bools", "true false", "true\nfalse"},
		{"struct", "{a:1, 'b c':\"x\", \"s\":2}", `{a:1,'b c':"x",s:2}`},
		{"trailing comma", "[1, 2, ]", "[1,2]"},
		{"empty containers", "[] () {}", "[]\n()\n{}"},
		{"sexp operators", "(+ 1 a)", "('+' 1 a)"},
		{"nested", "{a:[1,(b c)],d:{e:null.int}}", "{a:[1,(b c)],d:{e:null.int}}"},
		{"blob", "{{ aGVs bG8= }}", "{{aGVsbG8=}}"},
		{"clob", `{{"hi\x00"}}`, `{{"hi\0"}}`},
		{"long clob", "{{'''a''' '''b'''}}", `{{"ab"}}`},
		{"comments", "/* c */ 1 // x\n 2", "1\n2"},
		{"version marker", "$ion_1_0 a", "$ion_1_0\na"},
		{"quoted version text", "'$ion_1_0'", "'$ion_1_0'"},
		{"annotated version text", "a::$ion_1_0", "a::'$ion_1_0'"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEncoder()
			recode(t, NewCursor([]byte(tc.in)), e)
			got := strings.TrimSuffix(string(e.Bytes()), "\n")
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
			// canonical output reads back to itself
			e2 := NewEncoder()
			recode(t, NewCursor(e.Bytes()), e2)
			if string(e2.Bytes()) != string(e.Bytes()) {
				t.Fatalf("second round: got %q want %q", e2.Bytes(), e.Bytes())
			}
		})
	}
}

func TestSyntaxErrors(t *testing.T) {
	cases := []struct {
		name, in string
	}{
		{"leading zero", "01"},
		{"bad underscore", "1__0"},
		{"trailing underscore", "1_"},
		{"missing comma", "[1 2]"},
		{"missing colon", "{a 1}"},
		{"unterminated string", `"abc`},
		{"unterminated list", "[1, 2"},
		{"newline in string", "\"a\nb\""},
		{"bad escape", `"\q"`},
		{"mismatched close", "[1)"},
		{"bad typed null", "null.foo"},
		{"dangling annotation", "a::"},
		{"numeric stop", "123abc"},
		{"bad timestamp", "2007-13-01"},
		{"unsupported version", "$ion_2_0"},
		{"bad base64", "{{a}}"},
		{"unicode in clob", `{{"é"}}`},
		{"comma at top", "1, 2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCursor([]byte(tc.in))
			var walk func() error
			walk = func() error {
				for c.Next() {
					if c.Type().IsContainer() && !c.IsNull() {
						if err := c.StepIn(); err != nil {
							return err
						}
						if err := walk(); err != nil {
							return err
						}
						if err := c.StepOut(); err != nil {
							return err
						}
					}
				}
				return c.Err()
			}
			err := walk()
			if err == nil {
				t.Fatalf("expected error for %q", tc.in)
			}
			if !ion.IsSyntax(err) && !ion.IsValue(err) {
				t.Fatalf("unexpected error kind %T: %v", err, err)
			}
		})
	}
}

func TestUnsupportedVersionMessage(t *testing.T) {
	c := NewCursor([]byte("$ion_1_1"))
	if c.Next() {
		t.Fatalf("expected failure")
	}
	if err := c.Err(); err == nil || !strings.Contains(err.Error(), "Unsupported Ion version: 1.1") {
		t.Fatalf("got %v", err)
	}
}

func TestBadLiteralMessage(t *testing.T) {
	cases := []struct {
		in, prefix, want string
	}{
		{"2007-02-30T", "invalid timestamp", "day 30 out of range"},
		{"2007-13-01", "invalid timestamp", ""},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			c := NewCursor([]byte(tc.in))
			for c.Next() {
			}
			err := c.Err()
			if !ion.IsSyntax(err) {
				t.Fatalf("got %v want syntax error", err)
			}
			msg := err.Error()
			if n := strings.Count(msg, tc.prefix); n != 1 {
				t.Fatalf("%q repeated in %q: got %d want 1", tc.prefix, msg, n)
			}
			if !strings.Contains(msg, tc.want) || !strings.HasSuffix(msg, "at position 0") {
				t.Fatalf("message: got %q want it to mention %q and position", msg, tc.want)
			}
		})
	}
}

func TestSkipAndStepOut(t *testing.T) {
	c := NewCursor([]byte(`{a:[1, "]", {{"}}"}}, '['], b:(x ')'), c:3} last`))
	if !c.Next() || c.Type() != ion.TypeStruct {
		t.Fatalf("expected struct")
	}
	if err := c.StepIn(); err != nil {
		t.Fatalf("StepIn: %v", err)
	}
	// skip list without stepping in
	if !c.Next() || c.Type() != ion.TypeList {
		t.Fatalf("expected list, got %v", c.Type())
	}
	if !c.Next() || c.Type() != ion.TypeSexp {
		t.Fatalf("expected sexp, got %v err=%v", c.Type(), c.Err())
	}
	if err := c.StepIn(); err != nil {
		t.Fatalf("StepIn: %v", err)
	}
	if !c.Next() || c.Type() != ion.TypeSymbol {
		t.Fatalf("expected symbol")
	}
	if err := c.StepOut(); err != nil {
		t.Fatalf("StepOut: %v", err)
	}
	if !c.Next() {
		t.Fatalf("expected field c: %v", c.Err())
	}
	if name, _ := c.FieldName(); name.Text == nil || *name.Text != "c" {
		t.Fatalf("field name: got %v want c", name)
	}
	if err := c.StepOut(); err != nil {
		t.Fatalf("StepOut: %v", err)
	}
	if !c.Next() || c.Type() != ion.TypeSymbol {
		t.Fatalf("expected symbol after struct, got %v err=%v", c.Type(), c.Err())
	}
	if c.Next() {
		t.Fatalf("expected end of input")
	}
	if c.Err() != nil {
		t.Fatalf("unexpected error: %v", c.Err())
	}
}

func TestCursorMisuse(t *testing.T) {
	c := NewCursor([]byte("1 [2]"))
	if err := c.StepOut(); !errors.Is(err, ion.ErrIllegalState) {
		t.Fatalf("StepOut at top: got %v", err)
	}
	c.Next()
	if err := c.StepIn(); !errors.Is(err, ion.ErrIllegalState) {
		t.Fatalf("StepIn on int: got %v", err)
	}
	if _, err := c.StringValue(); !ion.IsUsage(err) {
		t.Fatalf("StringValue on int: got %v", err)
	}
	if v, err := c.IntValue(); err != nil || v.Int64() != 1 {
		t.Fatalf("IntValue: got %v err=%v", v, err)
	}
}

func TestFork(t *testing.T) {
	c := NewCursor([]byte("{a:1,b:2} 3"))
	c.Next()
	f := c.Fork()
	if err := f.StepIn(); err != nil {
		t.Fatalf("StepIn: %v", err)
	}
	n := 0
	for f.Next() {
		n++
	}
	if n != 2 {
		t.Fatalf("fork fields: got %d want 2", n)
	}
	if !c.Next() || c.Type() != ion.TypeInt {
		t.Fatalf("original cursor moved: got %v", c.Type())
	}
}

func TestSurrogates(t *testing.T) {
	c := NewCursor([]byte(`"\ud83d\ude00 \U0001F600"`))
	c.Next()
	if s, err := c.StringValue(); err != nil || s != "\U0001F600 \U0001F600" {
		t.Fatalf("got %q err=%v", s, err)
	}
	c = NewCursor([]byte(`"\ud83d"`))
	if c.Next() || !ion.IsValue(c.Err()) {
		t.Fatalf("lone surrogate: got %v", c.Err())
	}
}

func TestFloats(t *testing.T) {
	for _, tc := range []struct {
		in   float64
		want string
	}{
		{0, "0e0"},
		{1.5, "1.5e0"},
		{-2.5e-10, "-2.5e-10"},
		{1e300, "1e300"},
		{math.Inf(1), "+inf"},
	} {
		if got := FormatFloat(tc.in); got != tc.want {
			t.Fatalf("FormatFloat(%v): got %q want %q", tc.in, got, tc.want)
		}
	}
	if got := FormatFloat(math.Copysign(0, -1)); got != "-0e0" {
		t.Fatalf("negative zero: got %q", got)
	}
}

func TestEncoderIndent(t *testing.T) {
	e := NewEncoder()
	e.Indent = "  "
	e.BeginContainer(ion.TypeStruct)
	e.FieldName(ion.NewSymbolToken("a"))
	e.BeginContainer(ion.TypeList)
	e.WriteInt(1)
	e.WriteInt(2)
	e.EndContainer(ion.TypeList)
	e.FieldName(ion.NewSymbolTokenSID(12))
	e.WriteString("x")
	e.EndContainer(ion.TypeStruct)
	want := "{\n  a:[\n    1,\n    2\n  ],\n  $12:\"x\"\n}\n"
	if got := string(e.Bytes()); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestEncoderMisuse(t *testing.T) {
	e := NewEncoder()
	e.BeginContainer(ion.TypeStruct)
	if err := e.WriteInt(1); !errors.Is(err, ion.ErrIllegalState) {
		t.Fatalf("value without field name: got %v", err)
	}
	if err := e.EndContainer(ion.TypeList); !errors.Is(err, ion.ErrIllegalState) {
		t.Fatalf("mismatched end: got %v", err)
	}
	if err := e.WriteIVM(); !errors.Is(err, ion.ErrIllegalState) {
		t.Fatalf("nested IVM: got %v", err)
	}
	if err := e.WriteNull(ion.TypeDatagram); !errors.Is(err, ion.ErrIllegalArgument) {
		t.Fatalf("null datagram: got %v", err)
	}
}
