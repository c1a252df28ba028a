package symtab

import (
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"ionkit/ion"
)

func strp(s string) *string { return &s }

func testLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
}

func TestSystemTable(t *testing.T) {
	if System.Kind() != KindSystem || System.MaxID() != 9 {
		t.Fatalf("system table: got %v max %d", System.Kind(), System.MaxID())
	}
	if sid, ok := System.FindByName("$ion_symbol_table"); !ok || sid != ion.SIDSymbolTable {
		t.Fatalf("$ion_symbol_table: got %d", sid)
	}
	if text, ok := System.FindByID(ion.SIDMaxID); !ok || text != "max_id" {
		t.Fatalf("$8: got %q", text)
	}
}

func TestLocalResolution(t *testing.T) {
	shared := NewSharedTableWithGaps("s", 1, []*string{strp("a"), nil, strp("c")})
	local := NewLocalTable([]SymbolTable{shared}, []string{"x", "a"})

	tests := []struct {
		sid  int64
		text string
		ok   bool
	}{
		{1, "$ion", true},
		{10, "a", true},
		{11, "", false},
		{12, "c", true},
		{13, "x", true},
		{14, "a", true},
	}
	for _, tc := range tests {
		text, ok := local.FindByID(tc.sid)
		if ok != tc.ok || text != tc.text {
			t.Fatalf("FindByID(%d): got %q %v want %q %v", tc.sid, text, ok, tc.text, tc.ok)
		}
	}
	if sid, _ := local.FindByName("a"); sid != 10 {
		t.Fatalf("FindByName(a): lowest ID must win, got %d", sid)
	}
	if _, err := Resolve(local, 15); !ion.IsSyntax(err) {
		t.Fatalf("ID past max must be syntax error, got %v", err)
	}
	tok, err := Resolve(local, 11)
	if err != nil || tok.HasText() || tok.SID != 11 {
		t.Fatalf("gap must resolve to token without text, got %+v %v", tok, err)
	}
	if tok, _ := Resolve(local, 0); tok.HasText() || tok.SID != 0 {
		t.Fatalf("$0 must have no text")
	}
}

func TestInternAppendOnly(t *testing.T) {
	local := NewLocalTable(nil, nil)
	a := local.Intern("a")
	b := local.Intern("b")
	if a != 10 || b != 11 || local.Intern("a") != a {
		t.Fatalf("Intern: got %d %d", a, b)
	}
	// imports are not searched when interning
	if sid := local.Intern("name"); sid != 12 {
		t.Fatalf("Intern(name): got %d want 12", sid)
	}
	if sid, _ := local.FindByName("name"); sid != ion.SIDName {
		t.Fatalf("FindByName(name): got %d want %d", sid, ion.SIDName)
	}

	clone := local.Clone()
	clone.Intern("only-in-clone")
	if local.MaxID() != 12 || clone.MaxID() != 13 {
		t.Fatalf("clone is not independent: %d %d", local.MaxID(), clone.MaxID())
	}
	if _, ok := local.FindByName("only-in-clone"); ok {
		t.Fatalf("clone leaked into original")
	}
}

func TestResolutionDeterminism(t *testing.T) {
	build := func() *LocalTable {
		return NewLocalTable([]SymbolTable{NewSubstituteTable("gone", 2, 3, nil)}, []string{"p", "q"})
	}
	first, second := build(), build()
	for sid := first.MaxID(); sid >= 1; sid-- {
		a, _ := Resolve(first, sid)
		_, _ = Resolve(second, first.MaxID()-sid+1)
		b, _ := Resolve(second, sid)
		if !a.Equal(b) {
			t.Fatalf("sid %d resolved differently: %v vs %v", sid, a, b)
		}
	}
}

func TestCatalogBestMatch(t *testing.T) {
	v1 := NewSharedTable("t", 1, []string{"a"})
	v3 := NewSharedTable("t", 3, []string{"a", "b", "c"})
	cat := NewMemoryCatalog(v1, v3, NewSharedTable("u", 1, nil))

	if got := cat.Find("t", 1); got != v1 {
		t.Fatalf("exact: got %v", got)
	}
	if got := cat.Find("t", 2); got != v3 {
		t.Fatalf("best match: got %v want %v", got, v3)
	}
	if got := cat.Find("missing", 1); got != nil {
		t.Fatalf("missing: got %v", got)
	}
	tables := cat.Tables()
	if len(tables) != 3 || Key(tables[0]) != "t@1" || Key(tables[2]) != "u@1" {
		t.Fatalf("Tables order: got %v", tables)
	}

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cat.Register(NewSharedTable("c", i+1, nil))
			_ = cat.Find("t", 1)
		}()
	}
	wg.Wait()
	if cat.Len() != 11 {
		t.Fatalf("Len: got %d want 11", cat.Len())
	}
}

func TestImportSubstitution(t *testing.T) {
	log := testLogger(t)
	cat := NewMemoryCatalog(NewSharedTable("known", 2, []string{"k1", "k2", "k3"}))

	def := &Def{
		Imports: []ImportDef{
			{Name: "absent", Version: 1, MaxID: 2},
			{Name: "known", Version: 1, MaxID: 5},
			{Name: "$ion", Version: 1, MaxID: 9},
			{Name: "", Version: 1, MaxID: 3},
		},
		Symbols: []*string{strp("own"), nil},
	}
	local, err := def.BuildLocal(nil, cat, log)
	if err != nil {
		t.Fatalf("BuildLocal: %v", err)
	}
	// 9 system + 2 absent + 5 declared for known + 2 own
	if local.MaxID() != 18 {
		t.Fatalf("MaxID: got %d want 18", local.MaxID())
	}
	for _, sid := range []int64{10, 11, 15, 16, 18} {
		if tok, err := Resolve(local, sid); err != nil || tok.HasText() {
			t.Fatalf("$%d must be unknown, got %v %v", sid, tok, err)
		}
	}
	if tok, _ := Resolve(local, 13); tok.String() != "k2" {
		t.Fatalf("$13: got %v want k2", tok)
	}
	if tok, _ := Resolve(local, 17); tok.String() != "own" {
		t.Fatalf("$17: got %v want own", tok)
	}
	if _, ok := local.FindByName("k3"); !ok {
		t.Fatalf("k3 inside declared span must be found")
	}

	short := &Def{Imports: []ImportDef{{Name: "known", Version: 2, MaxID: 1}}}
	local, err = short.BuildLocal(nil, cat, log)
	if err != nil {
		t.Fatalf("BuildLocal: %v", err)
	}
	if _, ok := local.FindByName("k2"); ok {
		t.Fatalf("k2 is outside declared span")
	}
}

func TestImportWithoutMaxID(t *testing.T) {
	log := testLogger(t)
	cat := NewMemoryCatalog(NewSharedTable("known", 2, []string{"k1", "k2"}))

	local, err := (&Def{Imports: []ImportDef{{Name: "known", Version: 2, MaxID: -1}}}).BuildLocal(nil, cat, log)
	if err != nil || local.MaxID() != 11 {
		t.Fatalf("exact match without max_id: got %v %v", local, err)
	}
	_, err = (&Def{Imports: []ImportDef{{Name: "known", Version: 1, MaxID: -1}}}).BuildLocal(nil, cat, log)
	if !ion.IsSyntax(err) {
		t.Fatalf("inexact match without max_id must fail, got %v", err)
	}
	want := `Import of shared table "known" lacks a valid max_id field, but an exact match was not found in the catalog (found version 2)`
	if err.Error() != want {
		t.Fatalf("message: got %q want %q", err.Error(), want)
	}
}

func TestAppendAndShared(t *testing.T) {
	log := testLogger(t)
	current := NewLocalTable(nil, []string{"a"})
	next, err := (&Def{AppendCurrent: true, Symbols: []*string{strp("b")}}).BuildLocal(current, nil, log)
	if err != nil {
		t.Fatalf("BuildLocal: %v", err)
	}
	if sid, _ := next.FindByName("b"); sid != 11 || current.MaxID() != 10 {
		t.Fatalf("append: got b=%d, current max %d", sid, current.MaxID())
	}

	cat := NewMemoryCatalog(NewSharedTable("base", 1, []string{"x", "y"}))
	shared, err := (&Def{
		Name:    "derived",
		Version: 4,
		Imports: []ImportDef{{Name: "base", Version: 1, MaxID: 2}},
		Symbols: []*string{strp("z"), nil},
	}).BuildShared(cat, log)
	if err != nil {
		t.Fatalf("BuildShared: %v", err)
	}
	if shared.MaxID() != 4 || Key(shared) != "derived@4" {
		t.Fatalf("shared: got %v", shared)
	}
	if text, _ := shared.FindByID(3); text != "z" {
		t.Fatalf("$3: got %q", text)
	}
	if _, err := (&Def{}).BuildShared(cat, log); !ion.IsSyntax(err) {
		t.Fatalf("unnamed shared table must fail, got %v", err)
	}
}
