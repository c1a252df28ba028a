package symtab

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/puzpuzpuz/xsync/v4"
)

// Catalog supplies shared tables for imports.
type Catalog interface {
	// Find returns table with exactly requested version if available,
	// otherwise the best match with the same name, nil if none.
	Find(name string, version int) *SharedTable
}

type catalogKey struct {
	name    string
	version int
}

// MemoryCatalog is a Catalog safe for concurrent registration and lookup.
type MemoryCatalog struct {
	tables *xsync.Map[catalogKey, *SharedTable]
}

// NewMemoryCatalog creates catalog holding given tables.
func NewMemoryCatalog(tables ...*SharedTable) *MemoryCatalog {
	c := &MemoryCatalog{tables: xsync.NewMap[catalogKey, *SharedTable]()}
	for _, t := range tables {
		c.Register(t)
	}
	return c
}

// Register adds table replacing one with the same name and version.
func (c *MemoryCatalog) Register(t *SharedTable) {
	c.tables.Store(catalogKey{name: t.Name(), version: t.Version()}, t)
}

// Find returns exact match or the highest registered version with the same
// name.
func (c *MemoryCatalog) Find(name string, version int) *SharedTable {
	if t, ok := c.tables.Load(catalogKey{name: name, version: version}); ok {
		return t
	}
	var best *SharedTable
	c.tables.Range(func(k catalogKey, t *SharedTable) bool {
		if k.name == name && (best == nil || t.Version() > best.Version()) {
			best = t
		}
		return true
	})
	return best
}

// Len returns number of registered tables.
func (c *MemoryCatalog) Len() int {
	return c.tables.Size()
}

// Tables returns registered tables ordered by name and version.
func (c *MemoryCatalog) Tables() []*SharedTable {
	res := make([]*SharedTable, 0, c.tables.Size())
	c.tables.Range(func(_ catalogKey, t *SharedTable) bool {
		res = append(res, t)
		return true
	})
	slices.SortFunc(res, func(a, b *SharedTable) int {
		return cmp.Or(cmp.Compare(a.Name(), b.Name()), cmp.Compare(a.Version(), b.Version()))
	})
	return res
}

// Key returns "name@version" identifying shared table.
func Key(t SymbolTable) string {
	return t.Name() + "@" + strconv.Itoa(t.Version())
}
