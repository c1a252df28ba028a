package timestamp

import (
	"strconv"
	"strings"

	"ionkit/decimal"
	"ionkit/ion"
)

// Parse reads Ion text timestamp:
//
//	2007T  2007-02T  2007-02-23  2007-02-23T  2007-02-23T12:14Z
//	2007-02-23T12:14:33+01:00  2007-02-23T12:14:33.079-00:00
func Parse(s string) (Timestamp, error) {
	p := &tsParser{s: s}
	ts, err := p.parse()
	if err != nil {
		return Timestamp{}, err
	}
	return ts, nil
}

type tsParser struct {
	s   string
	pos int
}

func (p *tsParser) fail(what string) error {
	return ion.NewValueError("timestamp", "malformed timestamp %q: %s", p.s, what)
}

func (p *tsParser) digits(n int) (int, bool) {
	if p.pos+n > len(p.s) {
		return 0, false
	}
	v := 0
	for i := 0; i < n; i++ {
		c := p.s[p.pos+i]
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int(c-'0')
	}
	p.pos += n
	return v, true
}

func (p *tsParser) accept(c byte) bool {
	if p.pos < len(p.s) && p.s[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *tsParser) end() bool {
	return p.pos == len(p.s)
}

func (p *tsParser) parse() (Timestamp, error) {
	year, ok := p.digits(4)
	if !ok {
		return Timestamp{}, p.fail("expected 4 digit year")
	}
	if p.accept('T') {
		if !p.end() {
			return Timestamp{}, p.fail("unexpected characters after year")
		}
		return ForYear(year)
	}
	if !p.accept('-') {
		return Timestamp{}, p.fail("expected '-' or 'T' after year")
	}
	month, ok := p.digits(2)
	if !ok {
		return Timestamp{}, p.fail("expected 2 digit month")
	}
	if p.accept('T') {
		if !p.end() {
			return Timestamp{}, p.fail("unexpected characters after month")
		}
		return ForMonth(year, month)
	}
	if !p.accept('-') {
		return Timestamp{}, p.fail("expected '-' or 'T' after month")
	}
	day, ok := p.digits(2)
	if !ok {
		return Timestamp{}, p.fail("expected 2 digit day")
	}
	if p.end() || (p.accept('T') && p.end()) {
		return ForDay(year, month, day)
	}
	hour, ok := p.digits(2)
	if !ok || !p.accept(':') {
		return Timestamp{}, p.fail("expected hh:mm")
	}
	minute, ok := p.digits(2)
	if !ok {
		return Timestamp{}, p.fail("expected 2 digit minute")
	}
	prec, second, frac := PrecisionMinute, 0, decimal.Zero
	if p.accept(':') {
		prec = PrecisionSecond
		if second, ok = p.digits(2); !ok {
			return Timestamp{}, p.fail("expected 2 digit second")
		}
		if p.accept('.') {
			start := p.pos
			for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
				p.pos++
			}
			if p.pos == start {
				return Timestamp{}, p.fail("expected fraction digits")
			}
			var err error
			if frac, err = decimal.Parse("0." + p.s[start:p.pos]); err != nil {
				return Timestamp{}, p.fail("bad fraction")
			}
			prec = PrecisionFraction
		}
	}
	offset, err := p.offset()
	if err != nil {
		return Timestamp{}, err
	}
	if !p.end() {
		return Timestamp{}, p.fail("unexpected characters after offset")
	}
	return New(prec, year, month, day, hour, minute, second, frac, offset)
}

func (p *tsParser) offset() (Offset, error) {
	if p.accept('Z') || p.accept('z') {
		return UTC, nil
	}
	sign := 1
	switch {
	case p.accept('+'):
	case p.accept('-'):
		sign = -1
	default:
		return Offset{}, p.fail("expected offset")
	}
	hh, ok := p.digits(2)
	if !ok || !p.accept(':') {
		return Offset{}, p.fail("expected offset hh:mm")
	}
	mm, ok := p.digits(2)
	if !ok || hh > 23 || mm > 59 {
		return Offset{}, p.fail("bad offset minutes")
	}
	if sign < 0 && hh == 0 && mm == 0 {
		return UnknownOffset, nil
	}
	return OffsetMinutes(sign * (hh*60 + mm)), nil
}

// String returns canonical Ion text of the timestamp.
func (ts Timestamp) String() string {
	var sb strings.Builder
	pad(&sb, ts.year, 4)
	switch ts.precision {
	case PrecisionYear:
		sb.WriteByte('T')
		return sb.String()
	case PrecisionMonth:
		sb.WriteByte('-')
		pad(&sb, ts.month, 2)
		sb.WriteByte('T')
		return sb.String()
	}
	sb.WriteByte('-')
	pad(&sb, ts.month, 2)
	sb.WriteByte('-')
	pad(&sb, ts.day, 2)
	if ts.precision == PrecisionDay {
		return sb.String()
	}
	sb.WriteByte('T')
	pad(&sb, ts.hour, 2)
	sb.WriteByte(':')
	pad(&sb, ts.minute, 2)
	if ts.precision >= PrecisionSecond {
		sb.WriteByte(':')
		pad(&sb, ts.second, 2)
	}
	if ts.precision == PrecisionFraction {
		sb.WriteByte('.')
		digits := ts.fraction.Coefficient().String()
		if n := int(ts.fraction.Scale()) - len(digits); n > 0 {
			sb.WriteString(strings.Repeat("0", n))
		}
		sb.WriteString(digits)
	}
	switch m, known := ts.offset.Minutes(); {
	case !known:
		sb.WriteString("-00:00")
	case m == 0:
		sb.WriteByte('Z')
	default:
		if m < 0 {
			sb.WriteByte('-')
			m = -m
		} else {
			sb.WriteByte('+')
		}
		pad(&sb, m/60, 2)
		sb.WriteByte(':')
		pad(&sb, m%60, 2)
	}
	return sb.String()
}

func pad(sb *strings.Builder, v, width int) {
	s := strconv.Itoa(v)
	for i := len(s); i < width; i++ {
		sb.WriteByte('0')
	}
	sb.WriteString(s)
}
