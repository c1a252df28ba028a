// Package ion holds the pieces of the Ion data model that every codec in this
// module agrees on: value types, symbol tokens, well known symbol IDs and the
// error taxonomy.
package ion

//go:generate go tool go-enum --marshal --names

// Type of an Ion value. TypeNone is reported when a cursor is not positioned
// on a value.
// ENUM(none, null, bool, int, float, decimal, timestamp, symbol, string, clob, blob, list, sexp, struct, datagram)
type Type int

// IsContainer reports whether values of the type hold children.
func (x Type) IsContainer() bool {
	switch x {
	case TypeList, TypeSexp, TypeStruct, TypeDatagram:
		return true
	}
	return false
}

// IsLob reports clob and blob.
func (x Type) IsLob() bool {
	return x == TypeClob || x == TypeBlob
}

// IsText reports string and symbol.
func (x Type) IsText() bool {
	return x == TypeString || x == TypeSymbol
}

// IsScalar is the complement of IsContainer for real value types.
func (x Type) IsScalar() bool {
	return x.IsValid() && x != TypeNone && !x.IsContainer()
}
