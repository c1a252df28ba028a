package reader

import (
	"go.uber.org/multierr"

	"ionkit/ion"
	"ionkit/symtab"
)

// ReadDef decodes symbol table struct reader is positioned on, local or
// shared. Fields it does not know and fields of wrong types are ignored.
// Reader is left positioned after the struct.
func ReadDef(r *Reader) (*symtab.Def, error) {
	if r.Type() != ion.TypeStruct {
		return nil, ion.NewUsageError("ReadDef", "reader is not positioned on a struct")
	}
	def := &symtab.Def{Version: 1}
	if r.IsNull() {
		return def, nil
	}
	if err := r.StepIn(); err != nil {
		return nil, err
	}
	var seenImports, seenSymbols bool
	err := func() error {
		for r.Next() {
			name, err := r.FieldName()
			if err != nil {
				if ion.IsUnknownSymbol(err) {
					continue
				}
				return err
			}
			switch name {
			case ion.TextName:
				if r.Type() == ion.TypeString && !r.IsNull() {
					def.Name, _ = r.StringValue()
				}
			case ion.TextVersion:
				if v, ok := intField(r); ok {
					def.Version = int(v)
				}
			case ion.TextImports:
				if seenImports {
					return ion.NewSyntaxError(r.raw.Position(), "symbol table has more than one imports field")
				}
				seenImports = true
				if err := readImports(r, def); err != nil {
					return err
				}
			case ion.TextSymbols:
				if seenSymbols {
					return ion.NewSyntaxError(r.raw.Position(), "symbol table has more than one symbols field")
				}
				seenSymbols = true
				if err := readSymbols(r, def); err != nil {
					return err
				}
			}
		}
		return r.Err()
	}()
	return def, multierr.Append(err, r.StepOut())
}

// intField returns current non-null int which fits int32 range and is not
// negative.
func intField(r *Reader) (int64, bool) {
	if r.Type() != ion.TypeInt || r.IsNull() {
		return 0, false
	}
	v, err := r.Int64Value()
	if err != nil || v < 0 || v > 1<<31-1 {
		return 0, false
	}
	return v, true
}

func readImports(r *Reader, def *symtab.Def) error {
	switch {
	case r.Type() == ion.TypeSymbol && !r.IsNull():
		tok, err := r.SymbolValue()
		if err != nil {
			return err
		}
		def.AppendCurrent = tok.HasText() && *tok.Text == ion.TextSymbolTable
		return nil
	case r.Type() != ion.TypeList || r.IsNull():
		return nil
	}
	if err := r.StepIn(); err != nil {
		return err
	}
	for r.Next() {
		if r.Type() != ion.TypeStruct || r.IsNull() {
			continue
		}
		imp, err := readImport(r)
		if err != nil {
			return err
		}
		def.Imports = append(def.Imports, imp)
	}
	if err := r.Err(); err != nil {
		return err
	}
	return r.StepOut()
}

func readImport(r *Reader) (symtab.ImportDef, error) {
	imp := symtab.ImportDef{Version: 1, MaxID: -1}
	if err := r.StepIn(); err != nil {
		return imp, err
	}
	for r.Next() {
		name, err := r.FieldName()
		if err != nil {
			if ion.IsUnknownSymbol(err) {
				continue
			}
			return imp, err
		}
		switch name {
		case ion.TextName:
			if r.Type() == ion.TypeString && !r.IsNull() {
				imp.Name, _ = r.StringValue()
			}
		case ion.TextVersion:
			if v, ok := intField(r); ok {
				imp.Version = int(v)
			}
		case ion.TextMaxID:
			if v, ok := intField(r); ok {
				imp.MaxID = v
			}
		}
	}
	if err := r.Err(); err != nil {
		return imp, err
	}
	return imp, r.StepOut()
}

func readSymbols(r *Reader, def *symtab.Def) error {
	if r.Type() != ion.TypeList || r.IsNull() {
		return nil
	}
	if err := r.StepIn(); err != nil {
		return err
	}
	for r.Next() {
		if r.Type() != ion.TypeString || r.IsNull() {
			def.Symbols = append(def.Symbols, nil)
			continue
		}
		s, err := r.StringValue()
		if err != nil {
			return err
		}
		def.Symbols = append(def.Symbols, &s)
	}
	if err := r.Err(); err != nil {
		return err
	}
	return r.StepOut()
}
