package inspect

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"ionkit/dom"
	"ionkit/symtab"
	"ionkit/writer"
)

func toBinary(t *testing.T, text string) []byte {
	t.Helper()
	dg, err := dom.Parse([]byte(text))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var buf bytes.Buffer
	w := writer.NewBinary(&buf)
	if err := dg.WriteTo(w); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if err := w.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return buf.Bytes()
}

func TestDump(t *testing.T) {
	cases := []struct {
		name string
		data func(t *testing.T) []byte
		opts DumpOptions
		want string
	}{
		{
			name: "text",
			data: func(*testing.T) []byte { return []byte(`a::1 {b:2}`) },
			want: "a::1\n{b:2}\n",
		},
		{
			name: "binary",
			data: func(t *testing.T) []byte { return toBinary(t, `a::1 {b:2}`) },
			want: "a::1\n{b:2}\n",
		},
		{
			name: "binary system",
			data: func(t *testing.T) []byte { return toBinary(t, `{b:2}`) },
			opts: DumpOptions{System: true},
			want: "$ion_1_0\n$ion_symbol_table::{symbols:[\"b\"]}\n{b:2}\n",
		},
		{
			name: "text system",
			data: func(*testing.T) []byte { return []byte(`$ion_1_0 $ion_symbol_table::{symbols:["s"]} $10`) },
			opts: DumpOptions{System: true},
			want: "$ion_1_0\n$ion_symbol_table::{symbols:[\"s\"]}\ns\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			if _, err := Dump(tc.data(t), &out, tc.opts, zaptest.NewLogger(t)); err != nil {
				t.Fatalf("Dump: %v", err)
			}
			if got := out.String(); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestDumpPositions(t *testing.T) {
	var out bytes.Buffer
	n, err := Dump(toBinary(t, `1 {b:2}`), &out, DumpOptions{Positions: true}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if n != 2 {
		t.Fatalf("values: got %d want 2", n)
	}
	re := regexp.MustCompile(`^ *\d+  (1|\{b:2\})$`)
	for _, line := range strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n") {
		if !re.MatchString(line) {
			t.Fatalf("unexpected line %q", line)
		}
	}

	// text input has no positions
	out.Reset()
	if _, err := Dump([]byte(`1`), &out, DumpOptions{Positions: true}, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if got := out.String(); got != "1\n" {
		t.Fatalf("got %q want %q", got, "1\n")
	}
}

func TestDumpError(t *testing.T) {
	var out bytes.Buffer
	n, err := Dump([]byte(`1 2 [3`), &out, DumpOptions{}, zaptest.NewLogger(t))
	if err == nil {
		t.Fatalf("expected error")
	}
	if n != 2 || out.String() != "1\n2\n" {
		t.Fatalf("got %d values %q before error", n, out.String())
	}
}

func TestSymbols(t *testing.T) {
	in := `$ion_symbol_table::{symbols:["x","y"]} x ` +
		`$ion_symbol_table::{imports:$ion_symbol_table, symbols:["z"]} z`
	want := strings.Join([]string{
		"# symbol table 1",
		`$10 "x"`,
		`$11 "y"`,
		"# symbol table 2",
		`$10 "x"`,
		`$11 "y"`,
		`$12 "z"`,
	}, "\n") + "\n"

	var out bytes.Buffer
	n, err := Symbols([]byte(in), &out, nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	if n != 2 {
		t.Fatalf("tables: got %d want 2", n)
	}
	if got := out.String(); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestSymbolsImports(t *testing.T) {
	cat := symtab.NewMemoryCatalog(symtab.NewSharedTable("s", 1, []string{"a", "b"}))
	in := `$ion_symbol_table::{imports:[{name:"s", version:1, max_id:2}, {name:"missing", version:2, max_id:1}], symbols:[null, "c"]} 1`

	var out bytes.Buffer
	if _, err := Symbols([]byte(in), &out, cat, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	want := strings.Join([]string{
		"# symbol table 1",
		"import s@1 max_id 2",
		"import missing@2 max_id 1 (substitute)",
		"$13 <unknown>",
		`$14 "c"`,
	}, "\n") + "\n"
	if got := out.String(); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestListCatalog(t *testing.T) {
	cat := symtab.NewMemoryCatalog(
		symtab.NewSharedTable("t", 10, []string{"x"}),
		symtab.NewSharedTable("t", 2, []string{"x", "y"}),
		symtab.NewSharedTable("s", 1, nil),
	)
	var out bytes.Buffer
	if err := ListCatalog(&out, cat, false); err != nil {
		t.Fatalf("ListCatalog: %v", err)
	}
	if got, want := out.String(), "s@1 max_id 0\nt@2 max_id 2\nt@10 max_id 1\n"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}

	out.Reset()
	if err := ListCatalog(&out, cat, true); err != nil {
		t.Fatalf("ListCatalog: %v", err)
	}
	if got, want := out.String(), "s@1 max_id 0\nt@2 max_id 2\n  1 \"x\"\n  2 \"y\"\nt@10 max_id 1\n  1 \"x\"\n"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestTree(t *testing.T) {
	dg, err := dom.Parse([]byte(`a::{b:[1, null.string], c:x::"s", d:null.list}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got, err := Tree(dg.At(0))
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	want := strings.Join([]string{
		"a::struct (3)",
		"  b: list (2)",
		"    int 1",
		"    string null.string",
		`  c: x::string "s"`,
		"  d: list null.list",
	}, "\n") + "\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestDumpTree(t *testing.T) {
	var out bytes.Buffer
	if _, err := Dump(toBinary(t, `(x 1)`), &out, DumpOptions{Tree: true, Positions: true}, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	lines := strings.Split(out.String(), "\n")
	if len(lines) != 5 || !strings.HasPrefix(lines[0], "# ") || lines[1] != "sexp (2)" || lines[2] != "  symbol x" || lines[3] != "  int 1" {
		t.Fatalf("unexpected tree dump %q", out.String())
	}
}
