// Package symtab implements Ion symbol tables: the system table, named shared
// tables, substitutes for imports that could not be satisfied exactly and
// per-stream local tables. It also defines catalog of shared tables.
package symtab

import (
	"fmt"

	"ionkit/ion"
)

// Kind of a symbol table.
type Kind int

const (
	KindSystem Kind = iota
	KindShared
	KindSubstitute
	KindLocal
)

func (k Kind) String() string {
	switch k {
	case KindSystem:
		return "system"
	case KindShared:
		return "shared"
	case KindSubstitute:
		return "substitute"
	case KindLocal:
		return "local"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// SymbolTable maps symbol IDs to text and back. Tables other than local ones
// are immutable and safe for concurrent use.
type SymbolTable interface {
	Kind() Kind
	// Name and Version identify shared tables, local tables have no name.
	Name() string
	Version() int
	// MaxID is the largest symbol ID the table defines.
	MaxID() int64
	// FindByID returns text for ID, false when ID is out of range or its
	// text is not known.
	FindByID(sid int64) (string, bool)
	// FindByName returns the lowest ID with given text.
	FindByName(text string) (int64, bool)
}

// Resolve returns token for ID. ID 0 and IDs which have no known text produce
// tokens without text. ID beyond MaxID is a syntax error.
func Resolve(t SymbolTable, sid int64) (ion.SymbolToken, error) {
	switch {
	case sid == ion.SIDZero:
		return ion.NewSymbolTokenSID(sid), nil
	case sid < 0 || sid > t.MaxID():
		return ion.SymbolToken{}, ion.NewSyntaxError(-1, "symbol ID $%d is out of range, max ID is %d", sid, t.MaxID())
	}
	if text, ok := t.FindByID(sid); ok {
		return ion.SymbolToken{Text: &text, SID: sid}, nil
	}
	return ion.NewSymbolTokenSID(sid), nil
}

type slot struct {
	text  string
	known bool
}

// SharedTable is a named, versioned immutable table. Slots may be empty:
// such IDs are allocated but their text is not known.
type SharedTable struct {
	name    string
	version int
	slots   []slot
	index   map[string]int64
	system  bool
}

// NewSharedTable creates shared table with all symbol text known.
func NewSharedTable(name string, version int, symbols []string) *SharedTable {
	slots := make([]slot, len(symbols))
	for i, s := range symbols {
		slots[i] = slot{text: s, known: true}
	}
	return newShared(name, version, slots)
}

// NewSharedTableWithGaps creates shared table where nil entries occupy IDs
// without text.
func NewSharedTableWithGaps(name string, version int, symbols []*string) *SharedTable {
	slots := make([]slot, len(symbols))
	for i, s := range symbols {
		if s != nil {
			slots[i] = slot{text: *s, known: true}
		}
	}
	return newShared(name, version, slots)
}

func newShared(name string, version int, slots []slot) *SharedTable {
	if version < 1 {
		version = 1
	}
	t := &SharedTable{name: name, version: version, slots: slots, index: make(map[string]int64, len(slots))}
	for i, s := range slots {
		if !s.known {
			continue
		}
		if _, exists := t.index[s.text]; !exists {
			t.index[s.text] = int64(i + 1)
		}
	}
	return t
}

// System is the Ion 1.0 system symbol table.
var System = func() *SharedTable {
	t := NewSharedTable(ion.SystemSymbolTableName, ion.SystemSymbolTableVersion, ion.SystemSymbols)
	t.system = true
	return t
}()

func (t *SharedTable) Kind() Kind {
	if t.system {
		return KindSystem
	}
	return KindShared
}

func (t *SharedTable) Name() string { return t.name }
func (t *SharedTable) Version() int { return t.version }
func (t *SharedTable) MaxID() int64 { return int64(len(t.slots)) }

func (t *SharedTable) FindByID(sid int64) (string, bool) {
	if sid < 1 || sid > int64(len(t.slots)) {
		return "", false
	}
	s := t.slots[sid-1]
	return s.text, s.known
}

func (t *SharedTable) FindByName(text string) (int64, bool) {
	sid, ok := t.index[text]
	return sid, ok
}

// Symbols returns table content in ID order, nil for unknown slots.
func (t *SharedTable) Symbols() []*string {
	res := make([]*string, len(t.slots))
	for i := range t.slots {
		if t.slots[i].known {
			res[i] = &t.slots[i].text
		}
	}
	return res
}

func (t *SharedTable) String() string {
	return fmt.Sprintf("%s@%d[%d]", t.name, t.version, len(t.slots))
}

// SubstituteTable stands in for an import which catalog could not satisfy
// exactly. It always spans declared MaxID, text comes from the best available
// table (if any) and IDs beyond it have no text.
type SubstituteTable struct {
	name     string
	version  int
	maxID    int64
	original *SharedTable
}

// NewSubstituteTable creates substitute, original may be nil.
func NewSubstituteTable(name string, version int, maxID int64, original *SharedTable) *SubstituteTable {
	return &SubstituteTable{name: name, version: version, maxID: maxID, original: original}
}

func (t *SubstituteTable) Kind() Kind   { return KindSubstitute }
func (t *SubstituteTable) Name() string { return t.name }
func (t *SubstituteTable) Version() int { return t.version }
func (t *SubstituteTable) MaxID() int64 { return t.maxID }

// Original returns table used as a source of text, nil when none was found.
func (t *SubstituteTable) Original() *SharedTable { return t.original }

func (t *SubstituteTable) FindByID(sid int64) (string, bool) {
	if t.original == nil || sid > t.maxID {
		return "", false
	}
	return t.original.FindByID(sid)
}

func (t *SubstituteTable) FindByName(text string) (int64, bool) {
	if t.original == nil {
		return 0, false
	}
	sid, ok := t.original.FindByName(text)
	if !ok || sid > t.maxID {
		return 0, false
	}
	return sid, true
}

func (t *SubstituteTable) String() string {
	return fmt.Sprintf("%s@%d[%d] (substitute)", t.name, t.version, t.maxID)
}
