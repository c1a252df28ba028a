// Package inspect implements commands which look inside Ion streams without
// converting them: value dumps, local symbol tables and catalog listing.
package inspect

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"ionkit/dom"
	"ionkit/ion"
	"ionkit/reader"
	"ionkit/symtab"
)

// DumpOptions controls Dump output.
type DumpOptions struct {
	// System shows version markers and local symbol tables.
	System bool
	// Positions prefixes top-level values with their offsets, binary input
	// only.
	Positions bool
	// Tree renders values as indented trees instead of single lines.
	Tree    bool
	Catalog symtab.Catalog
}

func readerOptions(cat symtab.Catalog, log *zap.Logger) []reader.Option {
	opts := []reader.Option{reader.WithLogger(log)}
	if cat != nil {
		opts = append(opts, reader.WithCatalog(cat))
	}
	return opts
}

// Dump writes every top-level value of data to out as a line of text Ion, or
// as a tree, and returns number of values written.
func Dump(data []byte, out io.Writer, opts DumpOptions, log *zap.Logger) (n int, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	ropts := readerOptions(opts.Catalog, log)
	if opts.System {
		ropts = append(ropts, reader.WithSystemView())
	}
	r, err := reader.NewBytes(data, ropts...)
	if err != nil {
		return 0, err
	}
	defer func() { err = multierr.Append(err, r.Close()) }()

	spans := r.Spans()
	if opts.Positions && spans == nil {
		log.Warn("Value positions are only available for binary input")
	}

	bw := bufio.NewWriter(out)
	for r.Next() {
		pos := int64(-1)
		if opts.Positions && spans != nil {
			if p, err := spans.Position(); err == nil {
				pos = p
			}
		}
		var line string
		switch {
		case r.IsIVM():
			line = ion.TextIon10
		case opts.Tree:
			v, err := dom.LoadValue(r)
			if err != nil {
				return n, err
			}
			if line, err = Tree(v); err != nil {
				return n, err
			}
			line = strings.TrimSuffix(line, "\n")
			if pos >= 0 {
				line = fmt.Sprintf("# %d\n%s", pos, line)
				pos = -1
			}
		default:
			v, err := dom.LoadValue(r)
			if err != nil {
				return n, err
			}
			text, err := v.MarshalText()
			if err != nil {
				return n, err
			}
			line = string(text)
		}
		if pos >= 0 {
			line = fmt.Sprintf("%10d  %s", pos, line)
		}
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return n, err
		}
		n++
	}
	if err := r.Err(); err != nil {
		return n, multierr.Append(err, bw.Flush())
	}
	return n, bw.Flush()
}
