package inspect

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"ionkit/reader"
	"ionkit/symtab"
)

// WriteTable prints imports and own symbols of a local table with their IDs.
func WriteTable(out io.Writer, t *symtab.LocalTable) error {
	bw := bufio.NewWriter(out)
	for _, imp := range t.Imports() {
		kind := ""
		if imp.Kind() == symtab.KindSubstitute {
			kind = " (substitute)"
		}
		fmt.Fprintf(bw, "import %s max_id %d%s\n", symtab.Key(imp), imp.MaxID(), kind)
	}
	sid := t.ImportsMaxID()
	for _, s := range t.OwnSymbols() {
		sid++
		text := "<unknown>"
		if s != nil {
			text = strconv.Quote(*s)
		}
		fmt.Fprintf(bw, "$%d %s\n", sid, text)
	}
	return bw.Flush()
}

// Symbols prints every local symbol table data defines, in stream order, and
// returns their number.
func Symbols(data []byte, out io.Writer, cat symtab.Catalog, log *zap.Logger) (n int, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	r, err := reader.NewBytes(data, append(readerOptions(cat, log), reader.WithSystemView())...)
	if err != nil {
		return 0, err
	}
	defer func() { err = multierr.Append(err, r.Close()) }()

	// table takes effect when reader moves past its definition
	pending := false
	emit := func() error {
		n++
		if _, err := fmt.Fprintf(out, "# symbol table %d\n", n); err != nil {
			return err
		}
		return WriteTable(out, r.SymbolTable())
	}
	for r.Next() {
		if pending {
			if err := emit(); err != nil {
				return n, err
			}
		}
		pending = r.IsSymbolTable()
	}
	if err := r.Err(); err != nil {
		return n, err
	}
	if pending {
		err = emit()
	}
	return n, err
}
