// Package text implements Ion text encoding: tokenizer, raw cursor over text
// values and raw text encoder. Like its binary sibling it does not interpret
// symbol tables, "$<n>" symbols are reported as IDs.
package text

import (
	"math"
	"strconv"
	"unicode/utf8"
)

var keywords = map[string]bool{
	"null":  true,
	"true":  true,
	"false": true,
	"nan":   true,
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isOperatorChar(c byte) bool {
	switch c {
	case '!', '#', '%', '&', '*', '+', '-', '.', '/', ';', '<', '=', '>', '?', '@', '^', '`', '|', '~':
		return true
	}
	return false
}

// isSIDText reports "$<digits>" which denotes symbol ID rather than text.
func isSIDText(s string) bool {
	if len(s) < 2 || s[0] != '$' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// NeedsQuotes reports if symbol text cannot be written as identifier.
func NeedsQuotes(s string) bool {
	if s == "" || keywords[s] || isSIDText(s) || !isIdentStart(s[0]) {
		return true
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return true
		}
	}
	return false
}

// AppendSymbol appends symbol text, quoted when needed.
func AppendSymbol(b []byte, s string) []byte {
	if !NeedsQuotes(s) {
		return append(b, s...)
	}
	b = append(b, '\'')
	b = appendEscaped(b, s, '\'')
	return append(b, '\'')
}

// AppendString appends double quoted string.
func AppendString(b []byte, s string) []byte {
	b = append(b, '"')
	b = appendEscaped(b, s, '"')
	return append(b, '"')
}

func appendEscaped(b []byte, s string, quote byte) []byte {
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				b = appendHexEscape(b, c)
			} else {
				b = append(b, s[i:i+size]...)
			}
			i += size
			continue
		}
		b = appendASCII(b, c, quote)
		i++
	}
	return b
}

// AppendClob appends clob content as double quoted ASCII string.
func AppendClob(b []byte, v []byte) []byte {
	b = append(b, '"')
	for _, c := range v {
		if c >= utf8.RuneSelf {
			b = appendHexEscape(b, c)
			continue
		}
		b = appendASCII(b, c, '"')
	}
	return append(b, '"')
}

func appendASCII(b []byte, c, quote byte) []byte {
	switch c {
	case quote, '\\':
		return append(b, '\\', c)
	case '\n':
		return append(b, '\\', 'n')
	case '\t':
		return append(b, '\\', 't')
	case '\r':
		return append(b, '\\', 'r')
	case 0:
		return append(b, '\\', '0')
	}
	if c < 0x20 || c == 0x7F {
		return appendHexEscape(b, c)
	}
	return append(b, c)
}

func appendHexEscape(b []byte, c byte) []byte {
	const hexDigits = "0123456789abcdef"
	return append(b, '\\', 'x', hexDigits[c>>4], hexDigits[c&0x0F])
}

// FormatFloat returns Ion text of a float, always with exponent so it
// is not mistaken for decimal.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "+inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	// "1.5e+00" -> "1.5e0"
	mant, exp := s, "0"
	for i := 0; i < len(s); i++ {
		if s[i] == 'e' {
			mant = s[:i]
			e, _ := strconv.Atoi(s[i+1:])
			exp = strconv.Itoa(e)
			break
		}
	}
	return mant + "e" + exp
}
