package writer

import (
	"fmt"
	"io"
	"math/big"

	"go.uber.org/multierr"

	"ionkit/decimal"
	"ionkit/ion"
	"ionkit/text"
	"ionkit/timestamp"
)

// TextWriter writes values as Ion text. Every top-level value goes to the
// sink as soon as it is complete.
type TextWriter struct {
	out     io.Writer
	opts    *options
	enc     *text.Encoder
	started bool
	err     error
	maxID   int64 // highest ID with meaning fixed by system table and imports
}

// NewText returns text writer which writes to out.
func NewText(out io.Writer, opts ...Option) *TextWriter {
	w := &TextWriter{out: out, opts: newOptions(opts), enc: text.NewEncoder()}
	w.enc.Indent = w.opts.indent
	w.maxID = ion.SystemMaxID
	for _, t := range w.opts.imports {
		w.maxID += t.MaxID()
	}
	return w
}

// check accepts tokens without text only when ID is 0 or resolves through
// system table and declared imports, so that "$<n>" reads back the same.
func (w *TextWriter) check(op string, tok ion.SymbolToken) error {
	switch {
	case tok.HasText() || tok.SID == ion.SIDZero:
		return nil
	case tok.SID < 0:
		return ion.NewArgumentError(op, "symbol has neither text nor ID")
	case tok.SID > w.maxID:
		return &ion.UnknownSymbolError{SID: tok.SID}
	}
	return nil
}

// start writes version marker and imports declaration before the first
// value.
func (w *TextWriter) start() error {
	if w.started {
		return nil
	}
	w.started = true
	if w.opts.ivm || len(w.opts.imports) > 0 {
		if err := w.enc.WriteIVM(); err != nil {
			return err
		}
	}
	if len(w.opts.imports) == 0 {
		return nil
	}
	e := w.enc
	e.Annotations(ion.NewSymbolToken(ion.TextSymbolTable))
	if err := e.BeginContainer(ion.TypeStruct); err != nil {
		return err
	}
	e.FieldName(ion.NewSymbolToken(ion.TextImports))
	if err := e.BeginContainer(ion.TypeList); err != nil {
		return err
	}
	for _, t := range w.opts.imports {
		err := multierr.Combine(
			e.BeginContainer(ion.TypeStruct),
			writeField(e, ion.TextName, func() error { return e.WriteString(t.Name()) }),
			writeField(e, ion.TextVersion, func() error { return e.WriteInt(int64(t.Version())) }),
			writeField(e, ion.TextMaxID, func() error { return e.WriteInt(t.MaxID()) }),
			e.EndContainer(ion.TypeStruct),
		)
		if err != nil {
			return err
		}
	}
	if err := e.EndContainer(ion.TypeList); err != nil {
		return err
	}
	return e.EndContainer(ion.TypeStruct)
}

func writeField(e *text.Encoder, name string, write func() error) error {
	e.FieldName(ion.NewSymbolToken(name))
	return write()
}

// flush sends complete top-level values to the sink.
func (w *TextWriter) flush() error {
	if w.err != nil {
		return w.err
	}
	if w.enc.Depth() > 0 || w.enc.Len() == 0 {
		return nil
	}
	if _, err := w.out.Write(w.enc.Bytes()); err != nil {
		w.err = fmt.Errorf("unable to write text: %w", err)
		return w.err
	}
	w.enc.Reset()
	return nil
}

// value runs write after the header is out and flushes the result.
func (w *TextWriter) value(write func() error) error {
	if w.err != nil {
		return w.err
	}
	if err := w.start(); err != nil {
		return err
	}
	if err := write(); err != nil {
		return err
	}
	return w.flush()
}

// FieldName sets field name of the next value.
func (w *TextWriter) FieldName(tok ion.SymbolToken) error {
	if err := w.check("FieldName", tok); err != nil {
		return err
	}
	if err := w.start(); err != nil {
		return err
	}
	w.enc.FieldName(tok)
	return nil
}

// Annotations sets annotations of the next value.
func (w *TextWriter) Annotations(toks ...ion.SymbolToken) error {
	for _, tok := range toks {
		if err := w.check("Annotations", tok); err != nil {
			return err
		}
	}
	if err := w.start(); err != nil {
		return err
	}
	w.enc.Annotations(toks...)
	return nil
}

func (w *TextWriter) WriteNull(t ion.Type) error {
	return w.value(func() error { return w.enc.WriteNull(t) })
}

func (w *TextWriter) WriteBool(v bool) error {
	return w.value(func() error { return w.enc.WriteBool(v) })
}

func (w *TextWriter) WriteInt(v int64) error {
	return w.value(func() error { return w.enc.WriteInt(v) })
}

func (w *TextWriter) WriteBigInt(v *big.Int) error {
	return w.value(func() error { return w.enc.WriteBigInt(v) })
}

func (w *TextWriter) WriteFloat(v float64) error {
	return w.value(func() error { return w.enc.WriteFloat(v) })
}

func (w *TextWriter) WriteDecimal(v decimal.Decimal) error {
	return w.value(func() error { return w.enc.WriteDecimal(v) })
}

func (w *TextWriter) WriteTimestamp(v timestamp.Timestamp) error {
	return w.value(func() error { return w.enc.WriteTimestamp(v) })
}

func (w *TextWriter) WriteSymbol(tok ion.SymbolToken) error {
	if err := w.check("WriteSymbol", tok); err != nil {
		return err
	}
	return w.value(func() error { return w.enc.WriteSymbol(tok) })
}

func (w *TextWriter) WriteString(v string) error {
	return w.value(func() error { return w.enc.WriteString(v) })
}

func (w *TextWriter) WriteBlob(v []byte) error {
	return w.value(func() error { return w.enc.WriteLob(ion.TypeBlob, v) })
}

func (w *TextWriter) WriteClob(v []byte) error {
	return w.value(func() error { return w.enc.WriteLob(ion.TypeClob, v) })
}

func (w *TextWriter) begin(t ion.Type) error {
	return w.value(func() error { return w.enc.BeginContainer(t) })
}

func (w *TextWriter) end(t ion.Type) error {
	return w.value(func() error { return w.enc.EndContainer(t) })
}

func (w *TextWriter) BeginList() error   { return w.begin(ion.TypeList) }
func (w *TextWriter) EndList() error     { return w.end(ion.TypeList) }
func (w *TextWriter) BeginSexp() error   { return w.begin(ion.TypeSexp) }
func (w *TextWriter) EndSexp() error     { return w.end(ion.TypeSexp) }
func (w *TextWriter) BeginStruct() error { return w.begin(ion.TypeStruct) }
func (w *TextWriter) EndStruct() error   { return w.end(ion.TypeStruct) }

// Depth returns number of open containers.
func (w *TextWriter) Depth() int {
	return w.enc.Depth()
}

// Finish writes out pending header, it is an error to finish with open
// containers.
func (w *TextWriter) Finish() error {
	if w.enc.Depth() > 0 {
		return ion.NewUsageError("Finish", "%d containers are still open", w.enc.Depth())
	}
	if err := w.start(); err != nil {
		return err
	}
	return w.flush()
}

// Close finishes and closes sink when it is io.Closer.
func (w *TextWriter) Close() error {
	err := w.Finish()
	if c, ok := w.out.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	return err
}
