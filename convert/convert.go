// Package convert re-encodes Ion streams between text and binary forms.
package convert

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"ionkit/common"
	"ionkit/reader"
	"ionkit/symtab"
	"ionkit/writer"
)

// Options of a single stream conversion.
type Options struct {
	Format        common.OutputFormat
	Gzip          bool
	Indent        string
	IVM           bool
	CompactFloats bool
	Catalog       symtab.Catalog
}

func (o Options) newWriter(out io.Writer, imports []*symtab.SharedTable, log *zap.Logger) writer.Writer {
	wopts := []writer.Option{writer.WithLogger(log), writer.WithImports(imports...)}
	if o.Format.IsBinary() {
		if o.CompactFloats {
			wopts = append(wopts, writer.WithCompactFloats())
		}
		return writer.NewBinary(out, wopts...)
	}
	if o.IVM {
		wopts = append(wopts, writer.WithIVM())
	}
	if o.Format == common.OutputFormatPretty {
		indent := o.Indent
		if indent == "" {
			indent = "  "
		}
		wopts = append(wopts, writer.WithIndent(indent))
	}
	return writer.NewText(out, wopts...)
}

// sharedImports returns imports of t as shared tables, so a writer can
// declare them and keep IDs without text meaningful. Substitutes become
// tables of declared size with gaps where no text is known.
func sharedImports(t *symtab.LocalTable) []*symtab.SharedTable {
	if t == nil {
		return nil
	}
	var res []*symtab.SharedTable
	for _, imp := range t.Imports() {
		switch imp := imp.(type) {
		case *symtab.SharedTable:
			res = append(res, imp)
		default:
			slots := make([]*string, imp.MaxID())
			for i := range slots {
				if text, ok := imp.FindByID(int64(i) + 1); ok {
					slots[i] = &text
				}
			}
			res = append(res, symtab.NewSharedTableWithGaps(imp.Name(), imp.Version(), slots))
		}
	}
	return res
}

func sameImports(a, b []*symtab.SharedTable) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name() != b[i].Name() || a[i].Version() != b[i].Version() || a[i].MaxID() != b[i].MaxID() {
			return false
		}
	}
	return true
}

// countingWriter tracks number of bytes passed through.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Stream reads every value of in, text or binary, possibly gzipped, and
// writes it to out in requested form. It returns number of bytes written to
// out.
func Stream(in io.Reader, out io.Writer, opts Options, log *zap.Logger) (written int64, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	r, err := reader.New(in, reader.WithCatalog(opts.Catalog), reader.WithLogger(log))
	if err != nil {
		return 0, fmt.Errorf("unable to open stream: %w", err)
	}
	defer func() { err = multierr.Append(err, r.Close()) }()

	cw := &countingWriter{w: out}
	sink := io.Writer(cw)
	var gz *gzip.Writer
	if opts.Gzip {
		gz = gzip.NewWriter(cw)
		sink = gz
	}

	// writer declares imports of the input segment it copies, a new
	// writer starts whenever they change
	var (
		w       writer.Writer
		imports []*symtab.SharedTable
	)
	for r.Next() {
		if cur := sharedImports(r.SymbolTable()); w == nil || !sameImports(cur, imports) {
			if w != nil {
				if err := w.Finish(); err != nil {
					return cw.n, err
				}
			}
			imports = cur
			w = opts.newWriter(sink, imports, log)
		}
		if err := writer.CopyValue(w, r); err != nil {
			return cw.n, fmt.Errorf("unable to convert stream: %w", err)
		}
	}
	if err := r.Err(); err != nil {
		return cw.n, fmt.Errorf("unable to convert stream: %w", err)
	}
	if w == nil {
		w = opts.newWriter(sink, nil, log)
	}
	if err := w.Finish(); err != nil {
		return cw.n, err
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return cw.n, fmt.Errorf("unable to compress stream: %w", err)
		}
	}
	return cw.n, nil
}
