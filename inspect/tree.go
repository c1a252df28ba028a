package inspect

import (
	"fmt"
	"strings"

	"ionkit/dom"
)

// treeWriter renders indented lines, two spaces per level.
type treeWriter struct {
	w *strings.Builder
}

func newTreeWriter() treeWriter {
	return treeWriter{w: &strings.Builder{}}
}

func (tw treeWriter) String() string {
	return tw.w.String()
}

func (tw treeWriter) line(depth int, format string, args ...any) {
	for range depth {
		tw.w.WriteString("  ")
	}
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// value writes v with its children, one line each: field name, annotations,
// type and, for scalars, text form.
func (tw treeWriter) value(depth int, v *dom.Value) error {
	var label strings.Builder
	if name, ok := v.FieldName(); ok {
		label.WriteString(name.String())
		label.WriteString(": ")
	}
	for _, a := range v.Annotations() {
		label.WriteString(a.String())
		label.WriteString("::")
	}
	label.WriteString(v.Type().String())

	if !v.Type().IsContainer() || v.IsNull() {
		// annotations are already in the label
		c := v.Clone()
		if err := c.SetAnnotations(); err != nil {
			return err
		}
		text, err := c.MarshalText()
		if err != nil {
			return err
		}
		tw.line(depth, "%s %s", label.String(), text)
		return nil
	}
	tw.line(depth, "%s (%d)", label.String(), v.Len())
	for i := range v.Len() {
		if err := tw.value(depth+1, v.At(i)); err != nil {
			return err
		}
	}
	return nil
}

// Tree renders v as indented tree.
func Tree(v *dom.Value) (string, error) {
	tw := newTreeWriter()
	if err := tw.value(0, v); err != nil {
		return "", err
	}
	return tw.String(), nil
}
