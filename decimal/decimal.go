// Package decimal implements arbitrary precision decimal numbers with Ion
// semantics: the exponent (scale) is part of the value and negative zero is
// distinct from zero.
package decimal

import (
	"math/big"
	"strconv"
	"strings"

	sd "github.com/shopspring/decimal"

	"ionkit/ion"
)

// Decimal is coefficient * 10^exponent. Zero value is 0d0.
type Decimal struct {
	d       sd.Decimal
	negZero bool
}

// New returns decimal from coefficient and exponent.
func New(coefficient int64, exponent int32) Decimal {
	return Decimal{d: sd.New(coefficient, exponent)}
}

// NewFromBigInt returns decimal from coefficient and exponent. Coefficient is
// copied.
func NewFromBigInt(coefficient *big.Int, exponent int32) Decimal {
	return Decimal{d: sd.NewFromBigInt(new(big.Int).Set(coefficient), exponent)}
}

// NegativeZero returns -0 with the given exponent.
func NegativeZero(exponent int32) Decimal {
	return Decimal{d: sd.New(0, exponent), negZero: true}
}

// Zero is 0d0.
var Zero = New(0, 0)

// Parse accepts decimal text: optional sign, digits with optional decimal
// point and optional exponent introduced by one of d, D, e or E. Underscores
// are not accepted here, text codec removes them before calling Parse.
func Parse(s string) (Decimal, error) {
	if !validDecimalText(s) {
		return Decimal{}, ion.NewValueError("decimal", "malformed decimal %q", s)
	}
	norm := strings.Map(func(r rune) rune {
		if r == 'd' || r == 'D' {
			return 'e'
		}
		return r
	}, s)
	v, err := sd.NewFromString(norm)
	if err != nil {
		return Decimal{}, ion.NewValueError("decimal", "malformed decimal %q: %v", s, err)
	}
	return Decimal{d: v, negZero: s[0] == '-' && v.Sign() == 0}, nil
}

// MustParse is Parse which panics, for constants and tests.
func MustParse(s string) Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func validDecimalText(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	digits := 0
	for ; i < len(s) && isDigit(s[i]); i++ {
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for ; i < len(s) && isDigit(s[i]); i++ {
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(s) {
		switch s[i] {
		case 'd', 'D', 'e', 'E':
		default:
			return false
		}
		i++
		if i < len(s) && (s[i] == '-' || s[i] == '+') {
			i++
		}
		exp := 0
		for ; i < len(s) && isDigit(s[i]); i++ {
			exp++
		}
		if exp == 0 || exp > 10 {
			return false
		}
	}
	return i == len(s)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Coefficient returns a copy of unscaled value. For negative zero it is 0,
// check IsNegativeZero separately.
func (d Decimal) Coefficient() *big.Int {
	return d.d.Coefficient()
}

// Exponent returns power of ten the coefficient is multiplied by.
func (d Decimal) Exponent() int32 {
	return d.d.Exponent()
}

// Scale is negated exponent: number of digits after decimal point.
func (d Decimal) Scale() int32 {
	return -d.d.Exponent()
}

// Sign returns -1, 0 or 1. Negative zero has sign 0.
func (d Decimal) Sign() int {
	return d.d.Sign()
}

// IsZero reports both zeros.
func (d Decimal) IsZero() bool {
	return d.d.IsZero()
}

// IsNegativeZero reports -0 of any scale.
func (d Decimal) IsNegativeZero() bool {
	return d.negZero
}

// IsNegative reports negative numbers and negative zero.
func (d Decimal) IsNegative() bool {
	return d.negZero || d.d.Sign() < 0
}

// Cmp compares numeric values ignoring scale and sign of zero.
func (d Decimal) Cmp(o Decimal) int {
	return d.d.Cmp(o.d)
}

// Equal compares identity: coefficient, exponent and sign of zero must all
// match, so 1.0 is not equal to 1.00.
func (d Decimal) Equal(o Decimal) bool {
	return d.negZero == o.negZero &&
		d.d.Exponent() == o.d.Exponent() &&
		d.d.Coefficient().Cmp(o.d.Coefficient()) == 0
}

// Abs keeps exponent, |-0.000| is 0.000.
func (d Decimal) Abs() Decimal {
	return Decimal{d: d.d.Abs()}
}

// Neg flips the sign, zero becomes negative zero and back.
func (d Decimal) Neg() Decimal {
	if d.d.IsZero() {
		return Decimal{d: d.d, negZero: !d.negZero}
	}
	return Decimal{d: d.d.Neg()}
}

// Add returns d + o with exponent of the more precise operand. Sum of two
// negative zeros is negative zero.
func (d Decimal) Add(o Decimal) Decimal {
	r := Decimal{d: d.d.Add(o.d)}
	if r.d.IsZero() && d.IsNegative() && o.IsNegative() && d.d.IsZero() && o.d.IsZero() {
		r.negZero = true
	}
	return r
}

// Sub returns d - o.
func (d Decimal) Sub(o Decimal) Decimal {
	return d.Add(o.Neg())
}

// Mul returns d * o, exponents add up. Zero result carries the sign
// of the product.
func (d Decimal) Mul(o Decimal) Decimal {
	r := Decimal{d: d.d.Mul(o.d)}
	if r.d.IsZero() {
		r.negZero = d.IsNegative() != o.IsNegative()
	}
	return r
}

// Float64 returns nearest float value.
func (d Decimal) Float64() float64 {
	if d.negZero {
		return negZeroFloat
	}
	f, _ := d.d.Float64()
	return f
}

var negZeroFloat = func() float64 {
	z := 0.0
	return -z
}()

// String returns Ion text form: "1.", "1.50", "0.001", "1d3", "-0.".
func (d Decimal) String() string {
	var sb strings.Builder
	coef := d.d.Coefficient()
	if d.IsNegative() {
		sb.WriteByte('-')
		coef.Neg(coef)
	}
	digits := coef.String()
	exp := int(d.d.Exponent())
	switch {
	case exp == 0:
		sb.WriteString(digits)
		sb.WriteByte('.')
	case exp > 0:
		sb.WriteString(digits)
		sb.WriteByte('d')
		sb.WriteString(strconv.Itoa(exp))
	default:
		point := len(digits) + exp
		switch {
		case point > 0:
			sb.WriteString(digits[:point])
			sb.WriteByte('.')
			sb.WriteString(digits[point:])
		case point > -6:
			sb.WriteString("0.")
			sb.WriteString(strings.Repeat("0", -point))
			sb.WriteString(digits)
		default:
			sb.WriteString(digits)
			sb.WriteByte('d')
			sb.WriteString(strconv.Itoa(exp))
		}
	}
	return sb.String()
}
