package dom

import (
	"bytes"
	"encoding/binary"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"ionkit/ion"
)

// Equal reports Ion data model equivalence. Field names of a and b
// themselves are ignored, annotations are ordered, struct fields are compared
// as a multiset.
func Equal(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.typ != b.typ || a.null != b.null || len(a.annots) != len(b.annots) {
		return false
	}
	for i := range a.annots {
		if !a.annots[i].Equal(b.annots[i]) {
			return false
		}
	}
	if a.null {
		return true
	}
	switch a.typ {
	case ion.TypeNull:
		return true
	case ion.TypeBool:
		return a.boolVal == b.boolVal
	case ion.TypeInt:
		return a.intVal.Cmp(b.intVal) == 0
	case ion.TypeFloat:
		return floatBits(a.fltVal) == floatBits(b.fltVal)
	case ion.TypeDecimal:
		return a.decVal.Equal(b.decVal)
	case ion.TypeTimestamp:
		return a.tsVal.Equal(b.tsVal)
	case ion.TypeSymbol:
		return a.symVal.Equal(b.symVal)
	case ion.TypeString:
		return a.strVal == b.strVal
	case ion.TypeClob, ion.TypeBlob:
		return bytes.Equal(a.lobVal, b.lobVal)
	case ion.TypeStruct:
		return equalFields(a.children, b.children)
	}
	if len(a.children) != len(b.children) {
		return false
	}
	for i := range a.children {
		if !Equal(a.children[i], b.children[i]) {
			return false
		}
	}
	return true
}

// floatBits makes every NaN equal to any other while keeping 0 and -0 apart.
func floatBits(f float64) uint64 {
	if math.IsNaN(f) {
		return 0x7ff8000000000001
	}
	return math.Float64bits(f)
}

func equalFields(a, b []*Value) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
next:
	for _, fa := range a {
		for j, fb := range b {
			if !used[j] && fa.field.Equal(fb.field) && Equal(fa, fb) {
				used[j] = true
				continue next
			}
		}
		return false
	}
	return true
}

// Hash is consistent with Equal.
func Hash(v *Value) uint64 {
	d := xxhash.New()
	hashInto(d, v)
	return d.Sum64()
}

func hashToken(d *xxhash.Digest, t ion.SymbolToken) {
	if t.HasText() {
		_, _ = d.WriteString("t")
		_, _ = d.WriteString(*t.Text)
		_, _ = d.Write([]byte{0})
		return
	}
	_, _ = d.WriteString("s" + strconv.FormatInt(t.SID, 10))
	_, _ = d.Write([]byte{0})
}

func hashInto(d *xxhash.Digest, v *Value) {
	var tag [2]byte
	tag[0] = byte(v.typ)
	if v.null {
		tag[1] = 1
	}
	_, _ = d.Write(tag[:])
	for _, a := range v.annots {
		hashToken(d, a)
	}
	if v.null {
		return
	}
	var buf [8]byte
	switch v.typ {
	case ion.TypeBool:
		if v.boolVal {
			_, _ = d.Write([]byte{1})
		} else {
			_, _ = d.Write([]byte{0})
		}
	case ion.TypeInt:
		_, _ = d.WriteString(v.intVal.String())
	case ion.TypeFloat:
		binary.BigEndian.PutUint64(buf[:], floatBits(v.fltVal))
		_, _ = d.Write(buf[:])
	case ion.TypeDecimal:
		_, _ = d.WriteString(v.decVal.String())
	case ion.TypeTimestamp:
		_, _ = d.WriteString(v.tsVal.String())
	case ion.TypeSymbol:
		hashToken(d, v.symVal)
	case ion.TypeString:
		_, _ = d.WriteString(v.strVal)
	case ion.TypeClob, ion.TypeBlob:
		_, _ = d.Write(v.lobVal)
	case ion.TypeStruct:
		// order independent
		var sum uint64
		for _, c := range v.children {
			fd := xxhash.New()
			hashToken(fd, c.field)
			hashInto(fd, c)
			sum += fd.Sum64()
		}
		binary.BigEndian.PutUint64(buf[:], sum)
		_, _ = d.Write(buf[:])
	case ion.TypeList, ion.TypeSexp, ion.TypeDatagram:
		for _, c := range v.children {
			binary.BigEndian.PutUint64(buf[:], Hash(c))
			_, _ = d.Write(buf[:])
		}
	}
}
