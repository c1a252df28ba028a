package dom

import (
	"bytes"
	"fmt"

	"ionkit/ion"
	"ionkit/reader"
	"ionkit/writer"
)

// Parse materializes every top-level value of text or binary data into a
// datagram.
func Parse(data []byte, opts ...reader.Option) (*Value, error) {
	r, err := reader.NewBytes(data, opts...)
	if err != nil {
		return nil, err
	}
	dg, err := Load(r)
	if err != nil {
		return nil, err
	}
	return dg, r.Close()
}

// Load reads values from the current position of r to the end of its current
// container into a datagram.
func Load(r *reader.Reader) (*Value, error) {
	dg := NewDatagram()
	for r.Next() {
		v, err := LoadValue(r)
		if err != nil {
			return nil, err
		}
		dg.children = append(dg.children, v)
		v.parent = dg
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return dg, nil
}

// LoadValue materializes the value r is positioned on. Field name is not part
// of the result, containers set it for their children.
func LoadValue(r *reader.Reader) (*Value, error) {
	typ := r.Type()
	if typ == ion.TypeNone {
		return nil, ion.NewUsageError("LoadValue", "reader is not positioned on a value")
	}
	annots, err := r.AnnotationSymbols()
	if err != nil {
		return nil, err
	}
	v := &Value{typ: typ, annots: annots, null: r.IsNull()}
	if v.null {
		return v, nil
	}

	switch typ {
	case ion.TypeNull:
	case ion.TypeBool:
		v.boolVal, err = r.BoolValue()
	case ion.TypeInt:
		v.intVal, err = r.IntValue()
	case ion.TypeFloat:
		v.fltVal, err = r.FloatValue()
	case ion.TypeDecimal:
		v.decVal, err = r.DecimalValue()
	case ion.TypeTimestamp:
		v.tsVal, err = r.TimestampValue()
	case ion.TypeSymbol:
		v.symVal, err = r.SymbolValue()
	case ion.TypeString:
		v.strVal, err = r.StringValue()
	case ion.TypeClob, ion.TypeBlob:
		v.lobVal, err = r.LobValue()
	case ion.TypeList, ion.TypeSexp, ion.TypeStruct:
		err = loadChildren(r, v)
	default:
		err = fmt.Errorf("unable to load value of type %v", typ)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func loadChildren(r *reader.Reader, v *Value) error {
	if err := r.StepIn(); err != nil {
		return err
	}
	for r.Next() {
		c, err := LoadValue(r)
		if err != nil {
			return err
		}
		if v.typ == ion.TypeStruct {
			name, _, err := r.FieldNameSymbol()
			if err != nil {
				return err
			}
			c.field = name
		}
		c.parent = v
		v.children = append(v.children, c)
	}
	if err := r.Err(); err != nil {
		return err
	}
	return r.StepOut()
}

// WriteTo writes the value, for datagram every value it holds. Writer is not
// finished.
func (v *Value) WriteTo(w writer.Writer) error {
	if v.typ == ion.TypeDatagram {
		for _, c := range v.children {
			if err := c.WriteTo(w); err != nil {
				return err
			}
		}
		return nil
	}
	if len(v.annots) > 0 {
		if err := w.Annotations(v.annots...); err != nil {
			return err
		}
	}
	if v.null {
		return w.WriteNull(v.typ)
	}

	switch v.typ {
	case ion.TypeNull:
		return w.WriteNull(ion.TypeNull)
	case ion.TypeBool:
		return w.WriteBool(v.boolVal)
	case ion.TypeInt:
		return w.WriteBigInt(v.intVal)
	case ion.TypeFloat:
		return w.WriteFloat(v.fltVal)
	case ion.TypeDecimal:
		return w.WriteDecimal(v.decVal)
	case ion.TypeTimestamp:
		return w.WriteTimestamp(v.tsVal)
	case ion.TypeSymbol:
		return w.WriteSymbol(v.symVal)
	case ion.TypeString:
		return w.WriteString(v.strVal)
	case ion.TypeClob:
		return w.WriteClob(v.lobVal)
	case ion.TypeBlob:
		return w.WriteBlob(v.lobVal)
	}

	begin, end := w.BeginList, w.EndList
	switch v.typ {
	case ion.TypeSexp:
		begin, end = w.BeginSexp, w.EndSexp
	case ion.TypeStruct:
		begin, end = w.BeginStruct, w.EndStruct
	}
	if err := begin(); err != nil {
		return err
	}
	for _, c := range v.children {
		if v.typ == ion.TypeStruct {
			if err := w.FieldName(c.field); err != nil {
				return err
			}
		}
		if err := c.WriteTo(w); err != nil {
			return err
		}
	}
	return end()
}

// MarshalText renders the value in compact Ion text.
func (v *Value) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	w := writer.NewText(&buf)
	if err := v.WriteTo(w); err != nil {
		return nil, err
	}
	if err := w.Finish(); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (v *Value) String() string {
	b, err := v.MarshalText()
	if err != nil {
		return fmt.Sprintf("<%v: %v>", v.typ, err)
	}
	return string(b)
}
