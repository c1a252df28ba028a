package catalog

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"ionkit/reader"
)

const tables = `
$ion_shared_symbol_table::{name:"a", version:1, symbols:["x", "y"]}
"not a table"
other::{name:"b"}
$ion_shared_symbol_table::{
  name:"a", version:2,
  imports:[{name:"a", version:1, max_id:2}],
  symbols:["z"],
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestLoad(t *testing.T) {
	l := NewLoader(nil, zaptest.NewLogger(t))
	got, err := l.Load(strings.NewReader(tables), "inline")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("tables: got %d want 2", len(got))
	}
	a2 := l.Catalog().Find("a", 2)
	if a2 == nil || a2.MaxID() != 3 {
		t.Fatalf("a@2: got %v", a2)
	}
	if text, ok := a2.FindByID(3); !ok || text != "z" {
		t.Fatalf("a@2 $3: got %q, %v want z", text, ok)
	}
	if text, ok := a2.FindByID(1); !ok || text != "x" {
		t.Fatalf("a@2 $1: got %q, %v want x", text, ok)
	}

	r, err := reader.NewBytes([]byte(`$ion_symbol_table::{imports:[{name:"a", version:2, max_id:3}]} $12`),
		reader.WithCatalog(l.Catalog()))
	if err != nil {
		t.Fatalf("NewBytes: %v", err)
	}
	if !r.Next() {
		t.Fatalf("Next: %v", r.Err())
	}
	if text, err := r.SymbolText(); err != nil || text != "z" {
		t.Fatalf("SymbolText: got %q, %v want z", text, err)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"syntax", `$ion_shared_symbol_table::{name:"a", symbols:["x"`},
		{"no name", `$ion_shared_symbol_table::{symbols:["x"]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLoader(nil, zaptest.NewLogger(t))
			if _, err := l.Load(strings.NewReader(tc.in), "broken.ion"); err == nil || !strings.Contains(err.Error(), "broken.ion") {
				t.Fatalf("got %v want error naming the source", err)
			}
		})
	}
}

func TestLoadPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "t2.ion", `$ion_shared_symbol_table::{name:"t", version:2, symbols:["b"]}`)
	writeFile(t, dir, "t10.ion", `$ion_shared_symbol_table::{name:"t", version:10, symbols:["c"]}`)
	single := writeFile(t, t.TempDir(), "one.ion", `$ion_shared_symbol_table::{name:"s", version:1, symbols:["a"]}`)

	l := NewLoader(nil, zaptest.NewLogger(t))
	err := l.LoadPaths(dir, single, filepath.Join(dir, "missing.ion"))
	if err == nil || !strings.Contains(err.Error(), "missing.ion") {
		t.Fatalf("got %v want error about missing file", err)
	}
	want := []string{"s@1", "t@2", "t@10"}
	if got := List(l.Catalog()); !slices.Equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if best := l.Catalog().Find("t", 3); best == nil || best.Version() != 10 {
		t.Fatalf("best match: got %v want t@10", best)
	}
}
