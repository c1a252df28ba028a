package symtab

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"ionkit/ion"
)

// ImportDef is a single element of "imports" list of a symbol table struct.
type ImportDef struct {
	Name    string
	Version int
	MaxID   int64 // negative when absent
}

// Def is decoded content of "$ion_symbol_table" or
// "$ion_shared_symbol_table" struct. Codecs fill it, symtab interprets it.
type Def struct {
	// Name and Version are only meaningful for shared tables.
	Name    string
	Version int
	// AppendCurrent is set by "imports: $ion_symbol_table", new symbols
	// extend the table currently in effect.
	AppendCurrent bool
	Imports       []ImportDef
	// Symbols has nil for entries which were not strings.
	Symbols []*string
}

// resolveImports turns import declarations into tables, substituting where
// catalog cannot provide exact match.
func (d *Def) resolveImports(cat Catalog, log *zap.Logger) ([]SymbolTable, error) {
	res := make([]SymbolTable, 0, len(d.Imports))
	for _, imp := range d.Imports {
		if imp.Name == "" || imp.Name == ion.SystemSymbolTableName {
			log.Debug("Ignoring malformed import", zap.String("name", imp.Name))
			continue
		}
		version := max(imp.Version, 1)

		var found *SharedTable
		if cat != nil {
			found = cat.Find(imp.Name, version)
		}

		maxID := imp.MaxID
		if maxID < 0 {
			if found == nil || found.Version() != version {
				msg := "Import of shared table " + strconv.Quote(imp.Name) + " lacks a valid max_id field, but an exact match was not found in the catalog"
				if found != nil {
					msg += fmt.Sprintf(" (found version %d)", found.Version())
				}
				return nil, &ion.SyntaxError{Msg: msg, Offset: -1}
			}
			maxID = found.MaxID()
		}

		switch {
		case found == nil:
			log.Warn("Shared symbol table not found, all its symbols will have unknown text",
				zap.String("name", imp.Name), zap.Int("version", version), zap.Int64("max_id", maxID))
			res = append(res, NewSubstituteTable(imp.Name, version, maxID, nil))
		case found.Version() != version || found.MaxID() != maxID:
			log.Warn("Shared symbol table does not match import exactly, substituting",
				zap.String("name", imp.Name), zap.Int("version", version), zap.Int64("max_id", maxID),
				zap.Int("found_version", found.Version()), zap.Int64("found_max_id", found.MaxID()))
			res = append(res, NewSubstituteTable(imp.Name, version, maxID, found))
		default:
			res = append(res, found)
		}
	}
	return res, nil
}

// BuildLocal creates local table the definition describes. Current is the
// table in effect before the definition, it is not modified.
func (d *Def) BuildLocal(current *LocalTable, cat Catalog, log *zap.Logger) (*LocalTable, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var t *LocalTable
	if d.AppendCurrent && current != nil {
		t = current.Clone()
	} else {
		imports, err := d.resolveImports(cat, log)
		if err != nil {
			return nil, err
		}
		t = newLocal(imports)
	}
	for _, s := range d.Symbols {
		if s == nil {
			t.appendSlot(slot{})
			continue
		}
		t.appendSlot(slot{text: *s, known: true})
	}
	log.Debug("Local symbol table installed",
		zap.Bool("append", d.AppendCurrent), zap.Int("imports", len(t.imports)), zap.Int64("max_id", t.MaxID()))
	return t, nil
}

// BuildShared creates shared table the definition describes. Symbols of
// imports are copied in front of its own symbols, so resulting table has no
// imports of its own.
func (d *Def) BuildShared(cat Catalog, log *zap.Logger) (*SharedTable, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if d.Name == "" {
		return nil, ion.NewSyntaxError(-1, "shared symbol table has no name")
	}
	imports, err := d.resolveImports(cat, log)
	if err != nil {
		return nil, err
	}
	var slots []slot
	for _, imp := range imports {
		for sid := int64(1); sid <= imp.MaxID(); sid++ {
			text, ok := imp.FindByID(sid)
			slots = append(slots, slot{text: text, known: ok})
		}
	}
	for _, s := range d.Symbols {
		if s == nil {
			slots = append(slots, slot{})
			continue
		}
		slots = append(slots, slot{text: *s, known: true})
	}
	return newShared(d.Name, d.Version, slots), nil
}

// LocalDef describes table as it would be written to a stream.
func LocalDef(t *LocalTable) *Def {
	d := &Def{Symbols: t.OwnSymbols()}
	for _, imp := range t.imports {
		d.Imports = append(d.Imports, ImportDef{Name: imp.Name(), Version: imp.Version(), MaxID: imp.MaxID()})
	}
	return d
}
