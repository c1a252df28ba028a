package writer

import (
	"fmt"
	"io"
	"math/big"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"ionkit/binary"
	"ionkit/decimal"
	"ionkit/ion"
	"ionkit/symtab"
	"ionkit/timestamp"
)

// BinaryWriter encodes values into a buffer interning symbols into its local
// table. Finish writes version marker, local symbol table and the buffered
// values to the sink.
type BinaryWriter struct {
	out     io.Writer
	opts    *options
	imports []symtab.SymbolTable
	table   *symtab.LocalTable
	enc     *binary.Encoder
	values  int
	err     error
}

// NewBinary returns binary writer which writes to out.
func NewBinary(out io.Writer, opts ...Option) *BinaryWriter {
	w := &BinaryWriter{out: out, opts: newOptions(opts), enc: binary.NewEncoder()}
	for _, t := range w.opts.imports {
		w.imports = append(w.imports, t)
	}
	w.enc.CompactFloats = w.opts.compact
	w.table = symtab.NewLocalTable(w.imports, nil)
	return w
}

// SymbolTable returns local table of the current segment.
func (w *BinaryWriter) SymbolTable() *symtab.LocalTable {
	return w.table
}

// sid returns ID for token. Text is looked up in the whole table and
// interned when missing. Tokens without text are accepted only when ID
// refers to imported range, where its meaning does not depend on this
// writer.
func (w *BinaryWriter) sid(tok ion.SymbolToken) (int64, error) {
	if tok.HasText() {
		if sid, ok := w.table.FindByName(*tok.Text); ok {
			return sid, nil
		}
		return w.table.Intern(*tok.Text), nil
	}
	if tok.SID == ion.SIDZero || (tok.SID > 0 && tok.SID <= w.table.ImportsMaxID()) {
		return tok.SID, nil
	}
	return 0, &ion.UnknownSymbolError{SID: tok.SID}
}

// FieldName sets field name of the next value.
func (w *BinaryWriter) FieldName(tok ion.SymbolToken) error {
	sid, err := w.sid(tok)
	if err != nil {
		return err
	}
	w.enc.FieldName(sid)
	return nil
}

// Annotations sets annotations of the next value.
func (w *BinaryWriter) Annotations(toks ...ion.SymbolToken) error {
	sids := make([]int64, 0, len(toks))
	for _, tok := range toks {
		sid, err := w.sid(tok)
		if err != nil {
			return err
		}
		sids = append(sids, sid)
	}
	w.enc.Annotations(sids...)
	return nil
}

func (w *BinaryWriter) done(err error) error {
	if err == nil && w.enc.Depth() == 0 {
		w.values++
	}
	return err
}

func (w *BinaryWriter) WriteNull(t ion.Type) error   { return w.done(w.enc.WriteNull(t)) }
func (w *BinaryWriter) WriteBool(v bool) error       { return w.done(w.enc.WriteBool(v)) }
func (w *BinaryWriter) WriteInt(v int64) error       { return w.done(w.enc.WriteInt(v)) }
func (w *BinaryWriter) WriteBigInt(v *big.Int) error { return w.done(w.enc.WriteBigInt(v)) }
func (w *BinaryWriter) WriteFloat(v float64) error   { return w.done(w.enc.WriteFloat(v)) }
func (w *BinaryWriter) WriteString(v string) error   { return w.done(w.enc.WriteString(v)) }
func (w *BinaryWriter) WriteBlob(v []byte) error     { return w.done(w.enc.WriteLob(ion.TypeBlob, v)) }
func (w *BinaryWriter) WriteClob(v []byte) error     { return w.done(w.enc.WriteLob(ion.TypeClob, v)) }

func (w *BinaryWriter) WriteDecimal(v decimal.Decimal) error {
	return w.done(w.enc.WriteDecimal(v))
}

func (w *BinaryWriter) WriteTimestamp(v timestamp.Timestamp) error {
	return w.done(w.enc.WriteTimestamp(v))
}

// WriteSymbol writes symbol value.
func (w *BinaryWriter) WriteSymbol(tok ion.SymbolToken) error {
	sid, err := w.sid(tok)
	if err != nil {
		return err
	}
	return w.done(w.enc.WriteSymbol(sid))
}

func (w *BinaryWriter) BeginList() error   { return w.enc.BeginContainer(ion.TypeList) }
func (w *BinaryWriter) EndList() error     { return w.done(w.enc.EndContainer(ion.TypeList)) }
func (w *BinaryWriter) BeginSexp() error   { return w.enc.BeginContainer(ion.TypeSexp) }
func (w *BinaryWriter) EndSexp() error     { return w.done(w.enc.EndContainer(ion.TypeSexp)) }
func (w *BinaryWriter) BeginStruct() error { return w.enc.BeginContainer(ion.TypeStruct) }
func (w *BinaryWriter) EndStruct() error   { return w.done(w.enc.EndContainer(ion.TypeStruct)) }

// Depth returns number of open containers.
func (w *BinaryWriter) Depth() int {
	return w.enc.Depth()
}

// encodeTable encodes local symbol table struct, nothing when table adds
// nothing to the system table.
func encodeTable(t *symtab.LocalTable) ([]byte, error) {
	def := symtab.LocalDef(t)
	if len(def.Imports) == 0 && len(def.Symbols) == 0 {
		return nil, nil
	}
	e := binary.NewEncoder()
	e.Annotations(ion.SIDSymbolTable)
	if err := e.BeginContainer(ion.TypeStruct); err != nil {
		return nil, err
	}
	if len(def.Imports) > 0 {
		e.FieldName(ion.SIDImports)
		if err := e.BeginContainer(ion.TypeList); err != nil {
			return nil, err
		}
		for _, imp := range def.Imports {
			err := multierr.Combine(
				e.BeginContainer(ion.TypeStruct),
				field(e, ion.SIDName, func() error { return e.WriteString(imp.Name) }),
				field(e, ion.SIDVersion, func() error { return e.WriteInt(int64(imp.Version)) }),
				field(e, ion.SIDMaxID, func() error { return e.WriteInt(imp.MaxID) }),
				e.EndContainer(ion.TypeStruct),
			)
			if err != nil {
				return nil, err
			}
		}
		if err := e.EndContainer(ion.TypeList); err != nil {
			return nil, err
		}
	}
	if len(def.Symbols) > 0 {
		e.FieldName(ion.SIDSymbols)
		if err := e.BeginContainer(ion.TypeList); err != nil {
			return nil, err
		}
		for _, s := range def.Symbols {
			var err error
			if s == nil {
				err = e.WriteNull(ion.TypeString)
			} else {
				err = e.WriteString(*s)
			}
			if err != nil {
				return nil, err
			}
		}
		if err := e.EndContainer(ion.TypeList); err != nil {
			return nil, err
		}
	}
	if err := e.EndContainer(ion.TypeStruct); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

func field(e *binary.Encoder, sid int64, write func() error) error {
	e.FieldName(sid)
	return write()
}

// Finish writes segment: version marker, local symbol table and values
// written since the previous Finish. It is an error to finish with open
// containers. Nothing is written when there are no values.
func (w *BinaryWriter) Finish() error {
	if w.err != nil {
		return w.err
	}
	if w.enc.Depth() > 0 {
		return ion.NewUsageError("Finish", "%d containers are still open", w.enc.Depth())
	}
	if w.values == 0 {
		return nil
	}
	lst, err := encodeTable(w.table)
	if err != nil {
		return err
	}
	for _, chunk := range [][]byte{ion.IVM, lst, w.enc.Bytes()} {
		if _, err := w.out.Write(chunk); err != nil {
			w.err = fmt.Errorf("unable to write binary segment: %w", err)
			return w.err
		}
	}
	w.opts.log.Debug("Binary segment flushed",
		zap.Int("values", w.values), zap.Int("table_bytes", len(lst)),
		zap.Int("value_bytes", w.enc.Len()), zap.Int64("max_id", w.table.MaxID()))
	w.enc.Reset()
	w.values = 0
	w.table = symtab.NewLocalTable(w.imports, nil)
	return nil
}

// Close finishes and closes sink when it is io.Closer.
func (w *BinaryWriter) Close() error {
	err := w.Finish()
	if c, ok := w.out.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	return err
}
