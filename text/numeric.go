package text

import (
	"errors"
	"math/big"
	"strconv"
	"strings"

	"ionkit/decimal"
	"ionkit/ion"
	"ionkit/timestamp"
)

type numericKind int

const (
	numInt numericKind = iota
	numFloat
	numDecimal
	numTimestamp
)

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func classifyNumeric(s string) numericKind {
	if s == "+inf" || s == "-inf" {
		return numFloat
	}
	if len(s) >= 5 && isDigit(s[0]) && isDigit(s[1]) && isDigit(s[2]) && isDigit(s[3]) && (s[4] == '-' || s[4] == 'T') {
		return numTimestamp
	}
	body := strings.TrimPrefix(s, "-")
	if len(body) > 1 && body[0] == '0' && strings.ContainsRune("xXbB", rune(body[1])) {
		return numInt
	}
	switch {
	case strings.ContainsAny(s, "eE"):
		return numFloat
	case strings.ContainsAny(s, "dD."):
		return numDecimal
	}
	return numInt
}

// stripUnderscores removes digit separators, each one must sit between two
// digits.
func stripUnderscores(s string, digit func(byte) bool) (string, bool) {
	if !strings.Contains(s, "_") {
		return s, true
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			if i == 0 || i == len(s)-1 || !digit(s[i-1]) || !digit(s[i+1]) {
				return "", false
			}
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String(), true
}

// leadingZeroOK checks integer part of decimal notation.
func leadingZeroOK(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return len(s) < 2 || s[0] != '0' || !isDigit(s[1])
}

func parseInt(s string, at int) (*big.Int, error) {
	bad := func() error { return ion.NewSyntaxError(int64(at), "invalid int %q", s) }
	neg := strings.HasPrefix(s, "-")
	body := strings.TrimPrefix(s, "-")
	base, digit := 10, isDigit
	if len(body) > 1 && body[0] == '0' {
		switch body[1] {
		case 'x', 'X':
			base, digit, body = 16, isHexDigit, body[2:]
		case 'b', 'B':
			base, digit, body = 2, func(c byte) bool { return c == '0' || c == '1' }, body[2:]
		}
	}
	if base == 10 && !leadingZeroOK(body) {
		return nil, bad()
	}
	body, ok := stripUnderscores(body, digit)
	if !ok || body == "" {
		return nil, bad()
	}
	for i := 0; i < len(body); i++ {
		if !digit(body[i]) {
			return nil, bad()
		}
	}
	v, ok := new(big.Int).SetString(body, base)
	if !ok {
		return nil, bad()
	}
	if neg {
		v.Neg(v)
	}
	return v, nil
}

func parseFloat(s string, at int) (float64, error) {
	switch s {
	case "+inf", "-inf":
		f, _ := strconv.ParseFloat(s, 64)
		return f, nil
	}
	clean, ok := stripUnderscores(s, isDigit)
	if !ok || !leadingZeroOK(clean) || !isDigit(strings.TrimPrefix(clean, "-")[0]) {
		return 0, ion.NewSyntaxError(int64(at), "invalid float %q", s)
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		var ne *strconv.NumError
		if errors.As(err, &ne) && errors.Is(ne.Err, strconv.ErrRange) {
			// out of range values round to infinity or zero
			return f, nil
		}
		return 0, ion.NewSyntaxError(int64(at), "invalid float %q", s)
	}
	return f, nil
}

func parseDecimal(s string, at int) (decimal.Decimal, error) {
	clean, ok := stripUnderscores(s, isDigit)
	if !ok || !leadingZeroOK(clean) || strings.HasPrefix(clean, "+") {
		return decimal.Decimal{}, ion.NewSyntaxError(int64(at), "invalid decimal %q", s)
	}
	d, err := decimal.Parse(clean)
	if err != nil {
		return decimal.Decimal{}, &ion.SyntaxError{Offset: int64(at), Err: err}
	}
	return d, nil
}

func parseTimestamp(s string, at int) (timestamp.Timestamp, error) {
	ts, err := timestamp.Parse(s)
	if err != nil {
		return timestamp.Timestamp{}, &ion.SyntaxError{Offset: int64(at), Err: err}
	}
	return ts, nil
}

func nan() float64 {
	f, _ := strconv.ParseFloat("nan", 64)
	return f
}
