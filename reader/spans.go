package reader

import (
	"ionkit/binary"
	"ionkit/ion"
	"ionkit/symtab"
)

// Span locates a top-level or nested value in binary input: [Start, End)
// covers type descriptor, length and annotation wrapper. It remembers
// symbol table in effect, so hoisted value resolves the same way.
type Span struct {
	Start, End int64
	table      *symtab.LocalTable
}

// Spans is available for readers over binary bytes in memory.
type Spans struct {
	r *Reader
	c *binary.Cursor
}

// Current returns span of the value reader is positioned on.
func (s *Spans) Current() (Span, error) {
	start, end, err := s.c.Span()
	if err != nil {
		return Span{}, err
	}
	return Span{Start: start, End: end, table: s.r.table}, nil
}

// Hoist repositions reader at top level so that the next value is the one
// span covers, followed by the end of input. Span must come from the same
// input. Hoist also clears an earlier reader error.
func (s *Spans) Hoist(sp Span) error {
	if err := s.c.SeekSpan(sp.Start, sp.End); err != nil {
		return err
	}
	s.r.err = nil
	s.r.pending, s.r.onTable = nil, false
	if sp.table != nil {
		s.r.table = sp.table
	} else {
		s.r.table = symtab.NewLocalTable(nil, nil)
	}
	return nil
}

// Position returns offset of the current value, or a usage error when
// reader is not on a value.
func (s *Spans) Position() (int64, error) {
	if s.r.Type() == ion.TypeNone {
		return 0, ion.NewUsageError("Position", "reader is not positioned on a value")
	}
	return s.c.Position(), nil
}
