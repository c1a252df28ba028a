package ion

import (
	"strconv"
)

// Binary version marker for Ion 1.0.
var IVM = []byte{0xE0, 0x01, 0x00, 0xEA}

// System symbol table content, names are positional: SID = index + 1.
const (
	SIDUnknown int64 = -1 // token was never resolved to an ID
	SIDZero    int64 = 0  // "$0", symbol with no text in any context

	SIDIon                  int64 = 1
	SIDIon10                int64 = 2
	SIDSymbolTable          int64 = 3
	SIDName                 int64 = 4
	SIDVersion              int64 = 5
	SIDImports              int64 = 6
	SIDSymbols              int64 = 7
	SIDMaxID                int64 = 8
	SIDSharedSymbolTable    int64 = 9
	SystemMaxID                   = SIDSharedSymbolTable
	SystemSymbolTableName         = "$ion"
	SystemSymbolTableVersion      = 1
)

// Text of the system symbols.
const (
	TextIon               = "$ion"
	TextIon10             = "$ion_1_0"
	TextSymbolTable       = "$ion_symbol_table"
	TextName              = "name"
	TextVersion           = "version"
	TextImports           = "imports"
	TextSymbols           = "symbols"
	TextMaxID             = "max_id"
	TextSharedSymbolTable = "$ion_shared_symbol_table"
)

// SystemSymbols lists system symbol text in SID order starting with SID 1.
var SystemSymbols = []string{
	TextIon,
	TextIon10,
	TextSymbolTable,
	TextName,
	TextVersion,
	TextImports,
	TextSymbols,
	TextMaxID,
	TextSharedSymbolTable,
}

// SymbolToken is a reference to a symbol. Either Text is known, or SID is a
// resolved symbol ID (or both). A token without text can only be interpreted
// against the symbol table it was read with.
type SymbolToken struct {
	Text *string
	SID  int64
}

// NewSymbolToken returns token with known text and unresolved ID.
func NewSymbolToken(text string) SymbolToken {
	return SymbolToken{Text: &text, SID: SIDUnknown}
}

// NewSymbolTokenSID returns token with unknown text.
func NewSymbolTokenSID(sid int64) SymbolToken {
	return SymbolToken{SID: sid}
}

// NewSymbolTokens is a convenience for annotation lists.
func NewSymbolTokens(texts ...string) []SymbolToken {
	res := make([]SymbolToken, len(texts))
	for i, s := range texts {
		res[i] = NewSymbolToken(s)
	}
	return res
}

// HasText reports if text of the symbol is known.
func (t SymbolToken) HasText() bool {
	return t.Text != nil
}

// Resolve returns text of the symbol or UnknownSymbolError carrying its ID.
func (t SymbolToken) Resolve() (string, error) {
	if t.Text == nil {
		return "", &UnknownSymbolError{SID: t.SID}
	}
	return *t.Text, nil
}

// Equal compares tokens the way Ion data model does: tokens with text are
// equal when text is, tokens without text are equal when IDs are.
func (t SymbolToken) Equal(o SymbolToken) bool {
	switch {
	case t.Text != nil && o.Text != nil:
		return *t.Text == *o.Text
	case t.Text == nil && o.Text == nil:
		return t.SID == o.SID
	}
	return false
}

// String returns symbol text or "$<sid>" when text is not known.
func (t SymbolToken) String() string {
	if t.Text != nil {
		return *t.Text
	}
	return "$" + strconv.FormatInt(t.SID, 10)
}
