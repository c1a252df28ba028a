package inspect

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"ionkit/catalog"
	"ionkit/symtab"
)

// ListCatalog prints registered shared tables in natural name order,
// optionally with their symbols.
func ListCatalog(out io.Writer, cat *symtab.MemoryCatalog, withSymbols bool) error {
	byKey := make(map[string]*symtab.SharedTable, cat.Len())
	for _, t := range cat.Tables() {
		byKey[symtab.Key(t)] = t
	}
	bw := bufio.NewWriter(out)
	for _, key := range catalog.List(cat) {
		t := byKey[key]
		fmt.Fprintf(bw, "%s max_id %d\n", key, t.MaxID())
		if !withSymbols {
			continue
		}
		for i, s := range t.Symbols() {
			text := "<unknown>"
			if s != nil {
				text = strconv.Quote(*s)
			}
			fmt.Fprintf(bw, "  %d %s\n", i+1, text)
		}
	}
	return bw.Flush()
}
