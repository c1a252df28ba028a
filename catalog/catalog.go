// Package catalog fills symbol table catalogs from files holding shared
// symbol tables.
package catalog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/maruel/natural"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"ionkit/ion"
	"ionkit/reader"
	"ionkit/symtab"
)

// Loader reads $ion_shared_symbol_table values and registers resulting
// tables. Tables may import tables loaded before them.
type Loader struct {
	cat *symtab.MemoryCatalog
	log *zap.Logger
}

// NewLoader returns loader registering into cat, new catalog is created when
// cat is nil.
func NewLoader(cat *symtab.MemoryCatalog, log *zap.Logger) *Loader {
	if cat == nil {
		cat = symtab.NewMemoryCatalog()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{cat: cat, log: log}
}

// Catalog returns catalog loader registers into.
func (l *Loader) Catalog() *symtab.MemoryCatalog {
	return l.cat
}

// Load reads every top-level value of text or binary stream and registers
// shared tables found there. Other values are skipped.
func (l *Loader) Load(in io.Reader, source string) ([]*symtab.SharedTable, error) {
	r, err := reader.New(in, reader.WithCatalog(l.cat), reader.WithLogger(l.log))
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", source, err)
	}
	tables, err := l.load(r, source)
	return tables, multierr.Append(err, r.Close())
}

func (l *Loader) load(r *reader.Reader, source string) ([]*symtab.SharedTable, error) {
	var tables []*symtab.SharedTable
	for r.Next() {
		if r.Type() != ion.TypeStruct || r.IsNull() {
			continue
		}
		annots, err := r.AnnotationSymbols()
		if err != nil {
			return tables, fmt.Errorf("%s: %w", source, err)
		}
		if len(annots) == 0 || !annots[0].HasText() || *annots[0].Text != ion.TextSharedSymbolTable {
			continue
		}
		def, err := reader.ReadDef(r)
		if err != nil {
			return tables, fmt.Errorf("%s: bad shared symbol table: %w", source, err)
		}
		t, err := def.BuildShared(l.cat, l.log)
		if err != nil {
			return tables, fmt.Errorf("%s: bad shared symbol table: %w", source, err)
		}
		l.cat.Register(t)
		l.log.Debug("Shared symbol table registered",
			zap.String("table", symtab.Key(t)), zap.Int64("max_id", t.MaxID()), zap.String("source", source))
		tables = append(tables, t)
	}
	if err := r.Err(); err != nil {
		return tables, fmt.Errorf("%s: %w", source, err)
	}
	return tables, nil
}

// LoadFile registers tables from a single file.
func (l *Loader) LoadFile(path string) ([]*symtab.SharedTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open catalog file: %w", err)
	}
	defer f.Close()
	return l.Load(f, path)
}

// LoadPaths registers tables from files and directories. Directory entries
// are loaded in natural order, not recursively. All paths are tried, errors
// are combined.
func (l *Loader) LoadPaths(paths ...string) error {
	var errs error
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("unable to access catalog path: %w", err))
			continue
		}
		files := []string{p}
		if fi.IsDir() {
			if files, err = dirFiles(p); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
		}
		for _, f := range files {
			if _, err := l.LoadFile(f); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
	}
	return errs
}

func dirFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to read catalog directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Sort(natural.StringSlice(names))
	for i, n := range names {
		names[i] = filepath.Join(dir, n)
	}
	return names, nil
}

// List returns "name@version" of every table in the catalog in natural
// order, so "t@2" goes before "t@10".
func List(cat *symtab.MemoryCatalog) []string {
	var keys []string
	for _, t := range cat.Tables() {
		keys = append(keys, symtab.Key(t))
	}
	sort.Sort(natural.StringSlice(keys))
	return keys
}
