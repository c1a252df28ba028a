package writer

import (
	"fmt"

	"ionkit/ion"
	"ionkit/reader"
)

// Copy writes values from the current position of r to the end of its
// current container. Field names and annotations are copied too, symbols
// with unknown text keep their IDs where the writer accepts them.
func Copy(w Writer, r *reader.Reader) error {
	for r.Next() {
		if err := CopyValue(w, r); err != nil {
			return err
		}
	}
	return r.Err()
}

// CopyValue writes the value r is positioned on.
func CopyValue(w Writer, r *reader.Reader) error {
	typ := r.Type()
	if typ == ion.TypeNone {
		return ion.NewUsageError("CopyValue", "reader is not positioned on a value")
	}
	name, ok, err := r.FieldNameSymbol()
	if err != nil {
		return err
	}
	if ok && w.Depth() > 0 {
		if err := w.FieldName(name); err != nil {
			return err
		}
	}
	annots, err := r.AnnotationSymbols()
	if err != nil {
		return err
	}
	if len(annots) > 0 {
		if err := w.Annotations(annots...); err != nil {
			return err
		}
	}
	if r.IsNull() {
		return w.WriteNull(typ)
	}

	switch typ {
	case ion.TypeBool:
		v, err := r.BoolValue()
		if err != nil {
			return err
		}
		return w.WriteBool(v)
	case ion.TypeInt:
		v, err := r.IntValue()
		if err != nil {
			return err
		}
		return w.WriteBigInt(v)
	case ion.TypeFloat:
		v, err := r.FloatValue()
		if err != nil {
			return err
		}
		return w.WriteFloat(v)
	case ion.TypeDecimal:
		v, err := r.DecimalValue()
		if err != nil {
			return err
		}
		return w.WriteDecimal(v)
	case ion.TypeTimestamp:
		v, err := r.TimestampValue()
		if err != nil {
			return err
		}
		return w.WriteTimestamp(v)
	case ion.TypeSymbol:
		v, err := r.SymbolValue()
		if err != nil {
			return err
		}
		return w.WriteSymbol(v)
	case ion.TypeString:
		v, err := r.StringValue()
		if err != nil {
			return err
		}
		return w.WriteString(v)
	case ion.TypeClob, ion.TypeBlob:
		v, err := r.LobValue()
		if err != nil {
			return err
		}
		if typ == ion.TypeClob {
			return w.WriteClob(v)
		}
		return w.WriteBlob(v)
	case ion.TypeList, ion.TypeSexp, ion.TypeStruct:
		return copyContainer(w, r, typ)
	}
	return fmt.Errorf("unable to copy value of type %v", typ)
}

func copyContainer(w Writer, r *reader.Reader, typ ion.Type) error {
	begin, end := w.BeginList, w.EndList
	switch typ {
	case ion.TypeSexp:
		begin, end = w.BeginSexp, w.EndSexp
	case ion.TypeStruct:
		begin, end = w.BeginStruct, w.EndStruct
	}
	if err := r.StepIn(); err != nil {
		return err
	}
	if err := begin(); err != nil {
		return err
	}
	if err := Copy(w, r); err != nil {
		return err
	}
	if err := r.StepOut(); err != nil {
		return err
	}
	return end()
}
