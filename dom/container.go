package dom

import (
	"ionkit/ion"
)

func (v *Value) container(op string) error {
	if !v.typ.IsContainer() {
		return ion.NewUsageError(op, "%v is not a container", v.typ)
	}
	return nil
}

func (v *Value) mutable(op string) error {
	if err := v.container(op); err != nil {
		return err
	}
	if err := v.writable(op); err != nil {
		return err
	}
	if v.null {
		return ion.NewUsageError(op, "container is null.%v", v.typ)
	}
	return nil
}

func (v *Value) adopt(op string, c *Value) error {
	switch {
	case c == nil:
		return ion.NewArgumentError(op, "nil value")
	case c.parent != nil:
		return &ion.UsageError{Op: op, Msg: "remove it from its container first", Err: ion.ErrContained}
	case c.typ == ion.TypeDatagram:
		return ion.NewArgumentError(op, "datagram cannot be contained")
	case c == v:
		return ion.NewArgumentError(op, "value cannot contain itself")
	}
	for p := v.parent; p != nil; p = p.parent {
		if p == c {
			return ion.NewArgumentError(op, "value cannot contain its ancestor")
		}
	}
	c.parent = v
	return nil
}

func (v *Value) modified() {
	v.gen++
}

// Len returns number of children, 0 for scalars and null containers.
func (v *Value) Len() int {
	return len(v.children)
}

// At returns child at index or nil when index is out of range.
func (v *Value) At(i int) *Value {
	if i < 0 || i >= len(v.children) {
		return nil
	}
	return v.children[i]
}

// Append adds value to the end of list, sexp or datagram.
func (v *Value) Append(c *Value) error {
	return v.Insert(len(v.children), c)
}

// Insert puts value into sequence at index.
func (v *Value) Insert(i int, c *Value) error {
	const op = "Insert"
	if err := v.mutable(op); err != nil {
		return err
	}
	if v.typ == ion.TypeStruct {
		return ion.NewUsageError(op, "struct fields require names, use Put")
	}
	if i < 0 || i > len(v.children) {
		return ion.NewArgumentError(op, "index %d out of range [0,%d]", i, len(v.children))
	}
	if err := v.adopt(op, c); err != nil {
		return err
	}
	v.children = append(v.children, nil)
	copy(v.children[i+1:], v.children[i:])
	v.children[i] = c
	v.modified()
	return nil
}

// Put adds field to the struct. Repeated names are kept, struct is a
// multiset of fields.
func (v *Value) Put(name string, c *Value) error {
	return v.PutSymbol(ion.NewSymbolToken(name), c)
}

// PutSymbol adds field which name may have unknown text.
func (v *Value) PutSymbol(name ion.SymbolToken, c *Value) error {
	const op = "Put"
	if err := v.mutable(op); err != nil {
		return err
	}
	if v.typ != ion.TypeStruct {
		return ion.NewUsageError(op, "%v has no fields", v.typ)
	}
	if err := v.adopt(op, c); err != nil {
		return err
	}
	c.field = name
	v.children = append(v.children, c)
	v.modified()
	return nil
}

func fieldIs(c *Value, name string) bool {
	return c.field.HasText() && *c.field.Text == name
}

// Get returns first field with the name.
func (v *Value) Get(name string) *Value {
	if v.typ != ion.TypeStruct {
		return nil
	}
	for _, c := range v.children {
		if fieldIs(c, name) {
			return c
		}
	}
	return nil
}

// GetAll returns every field with the name in insertion order.
func (v *Value) GetAll(name string) []*Value {
	if v.typ != ion.TypeStruct {
		return nil
	}
	var res []*Value
	for _, c := range v.children {
		if fieldIs(c, name) {
			res = append(res, c)
		}
	}
	return res
}

// RemoveField removes exactly one field with the name and returns it, nil if
// there was none.
func (v *Value) RemoveField(name string) (*Value, error) {
	const op = "RemoveField"
	if err := v.mutable(op); err != nil {
		return nil, err
	}
	if v.typ != ion.TypeStruct {
		return nil, ion.NewUsageError(op, "%v has no fields", v.typ)
	}
	for i, c := range v.children {
		if fieldIs(c, name) {
			return v.removeAt(i), nil
		}
	}
	return nil, nil
}

// RemoveAt removes child at index.
func (v *Value) RemoveAt(i int) (*Value, error) {
	const op = "RemoveAt"
	if err := v.mutable(op); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(v.children) {
		return nil, ion.NewArgumentError(op, "index %d out of range [0,%d)", i, len(v.children))
	}
	return v.removeAt(i), nil
}

// Remove detaches child from the container, false when it is not there.
func (v *Value) Remove(c *Value) (bool, error) {
	const op = "Remove"
	if err := v.mutable(op); err != nil {
		return false, err
	}
	for i, ch := range v.children {
		if ch == c {
			v.removeAt(i)
			return true, nil
		}
	}
	return false, nil
}

func (v *Value) removeAt(i int) *Value {
	c := v.children[i]
	v.children = append(v.children[:i], v.children[i+1:]...)
	c.parent = nil
	c.field = ion.SymbolToken{}
	v.modified()
	return c
}

// Clear removes all children. Null container becomes empty.
func (v *Value) Clear() error {
	const op = "Clear"
	if err := v.container(op); err != nil {
		return err
	}
	if err := v.writable(op); err != nil {
		return err
	}
	for _, c := range v.children {
		c.parent = nil
		c.field = ion.SymbolToken{}
	}
	v.children = nil
	v.null = false
	v.modified()
	return nil
}

// Iterator walks container children. Any structural modification of the
// container not made through the iterator invalidates it.
type Iterator struct {
	v   *Value
	gen uint64
	pos int
	cur *Value
	err error
}

// Iter returns iterator positioned before the first child.
func (v *Value) Iter() *Iterator {
	return &Iterator{v: v, gen: v.gen, pos: -1}
}

func (it *Iterator) check(op string) bool {
	if it.err != nil {
		return false
	}
	if it.gen != it.v.gen {
		it.err = &ion.UsageError{Op: op, Err: ion.ErrConcurrentModification}
		return false
	}
	return true
}

// Next advances to the following child.
func (it *Iterator) Next() bool {
	if !it.check("Next") {
		return false
	}
	it.cur = nil
	if it.pos+1 >= len(it.v.children) {
		it.pos = len(it.v.children)
		return false
	}
	it.pos++
	it.cur = it.v.children[it.pos]
	return true
}

// Value returns current child.
func (it *Iterator) Value() *Value {
	return it.cur
}

// Remove detaches current child, iteration continues with the next one.
func (it *Iterator) Remove() error {
	if !it.check("Remove") {
		return it.err
	}
	if it.cur == nil {
		return ion.NewUsageError("Remove", "iterator is not on a value")
	}
	if err := it.v.writable("Remove"); err != nil {
		return err
	}
	it.v.removeAt(it.pos)
	it.gen = it.v.gen
	it.pos--
	it.cur = nil
	return nil
}

// Err returns ErrConcurrentModification wrapped in UsageError when container
// was changed behind iterator back.
func (it *Iterator) Err() error {
	return it.err
}
