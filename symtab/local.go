package symtab

import (
	"fmt"
	"slices"
)

// LocalTable is the table a stream uses: system symbols, then each import
// occupying exactly its declared MaxID, then symbols defined by the stream.
// It only grows. A local table belongs to a single reader or writer, use
// Clone to hand it over.
type LocalTable struct {
	imports []SymbolTable
	bases   []int64 // first ID of each import minus one
	ownBase int64   // last ID before own symbols
	own     []slot
	index   map[string]int64
}

// NewLocalTable creates table with given imports and own symbols. System
// table must not be listed in imports.
func NewLocalTable(imports []SymbolTable, symbols []string) *LocalTable {
	t := newLocal(imports)
	for _, s := range symbols {
		t.appendSlot(slot{text: s, known: true})
	}
	return t
}

func newLocal(imports []SymbolTable) *LocalTable {
	t := &LocalTable{
		imports: slices.Clone(imports),
		bases:   make([]int64, len(imports)),
		index:   make(map[string]int64),
	}
	base := System.MaxID()
	for i, imp := range t.imports {
		t.bases[i] = base
		base += imp.MaxID()
	}
	t.ownBase = base
	return t
}

func (t *LocalTable) appendSlot(s slot) int64 {
	t.own = append(t.own, s)
	sid := t.ownBase + int64(len(t.own))
	if s.known {
		if _, exists := t.index[s.text]; !exists {
			t.index[s.text] = sid
		}
	}
	return sid
}

func (t *LocalTable) Kind() Kind   { return KindLocal }
func (t *LocalTable) Name() string { return "" }
func (t *LocalTable) Version() int { return 0 }
func (t *LocalTable) MaxID() int64 { return t.ownBase + int64(len(t.own)) }

// Imports returns imported tables, system table excluded.
func (t *LocalTable) Imports() []SymbolTable {
	return slices.Clone(t.imports)
}

// ImportsMaxID is the last ID covered by system table and imports.
func (t *LocalTable) ImportsMaxID() int64 {
	return t.ownBase
}

// OwnSymbols returns symbols defined by the stream in ID order, nil for
// slots without text.
func (t *LocalTable) OwnSymbols() []*string {
	res := make([]*string, len(t.own))
	for i := range t.own {
		if t.own[i].known {
			res[i] = &t.own[i].text
		}
	}
	return res
}

func (t *LocalTable) FindByID(sid int64) (string, bool) {
	switch {
	case sid < 1:
		return "", false
	case sid <= System.MaxID():
		return System.FindByID(sid)
	case sid <= t.ownBase:
		// imports are few, linear scan from the end finds the owner
		for i := len(t.imports) - 1; i >= 0; i-- {
			if sid > t.bases[i] {
				return t.imports[i].FindByID(sid - t.bases[i])
			}
		}
		return "", false
	case sid <= t.MaxID():
		s := t.own[sid-t.ownBase-1]
		return s.text, s.known
	}
	return "", false
}

// FindByName looks in system table, imports and own symbols in this order,
// so the lowest ID wins.
func (t *LocalTable) FindByName(text string) (int64, bool) {
	if sid, ok := System.FindByName(text); ok {
		return sid, true
	}
	for i, imp := range t.imports {
		if sid, ok := imp.FindByName(text); ok {
			return t.bases[i] + sid, true
		}
	}
	sid, ok := t.index[text]
	return sid, ok
}

// Intern returns ID of text among own symbols, adding it when missing.
// Imports are not consulted.
func (t *LocalTable) Intern(text string) int64 {
	if sid, ok := t.index[text]; ok {
		return sid
	}
	return t.appendSlot(slot{text: text, known: true})
}

// Clone returns deep independent copy. Imported tables are immutable and
// shared.
func (t *LocalTable) Clone() *LocalTable {
	c := &LocalTable{
		imports: slices.Clone(t.imports),
		bases:   slices.Clone(t.bases),
		ownBase: t.ownBase,
		own:     slices.Clone(t.own),
		index:   make(map[string]int64, len(t.index)),
	}
	for k, v := range t.index {
		c.index[k] = v
	}
	return c
}

func (t *LocalTable) String() string {
	return fmt.Sprintf("local[imports %d, max id %d]", len(t.imports), t.MaxID())
}
