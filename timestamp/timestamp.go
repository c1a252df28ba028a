// Package timestamp implements Ion timestamps: calendar date-time with
// explicit precision, optional local offset and arbitrary precision fraction
// of a second.
package timestamp

import (
	"fmt"
	"math/big"
	"time"

	"ionkit/decimal"
	"ionkit/ion"
)

// Precision is the last field a timestamp carries.
type Precision uint8

const (
	PrecisionYear Precision = iota + 1
	PrecisionMonth
	PrecisionDay
	PrecisionMinute
	PrecisionSecond
	PrecisionFraction
)

func (p Precision) String() string {
	switch p {
	case PrecisionYear:
		return "year"
	case PrecisionMonth:
		return "month"
	case PrecisionDay:
		return "day"
	case PrecisionMinute:
		return "minute"
	case PrecisionSecond:
		return "second"
	case PrecisionFraction:
		return "fraction"
	}
	return fmt.Sprintf("Precision(%d)", p)
}

// Offset is local offset from UTC in minutes. Zero value is unknown offset,
// written as "-00:00".
type Offset struct {
	minutes int
	known   bool
}

var (
	UnknownOffset = Offset{}
	UTC           = Offset{known: true}
)

// OffsetMinutes returns known offset.
func OffsetMinutes(m int) Offset {
	return Offset{minutes: m, known: true}
}

// Minutes returns offset and whether it is known.
func (o Offset) Minutes() (int, bool) {
	return o.minutes, o.known
}

// IsKnown is false for "-00:00".
func (o Offset) IsKnown() bool {
	return o.known
}

const maxOffset = 24 * 60

// Timestamp fields are kept in local time, as they are written in text.
// Fields past precision are zero (day and month are 1).
type Timestamp struct {
	year, month, day     int
	hour, minute, second int
	fraction             decimal.Decimal
	offset               Offset
	precision            Precision
}

// New validates fields and returns timestamp. Fields beyond precision are
// ignored, offset is ignored for precisions coarser than minute.
func New(p Precision, year, month, day, hour, minute, second int, fraction decimal.Decimal, offset Offset) (Timestamp, error) {
	ts := Timestamp{year: year, month: 1, day: 1, precision: p}
	if p < PrecisionYear || p > PrecisionFraction {
		return Timestamp{}, ion.NewValueError("timestamp", "unknown precision %d", p)
	}
	if p >= PrecisionMonth {
		ts.month = month
	}
	if p >= PrecisionDay {
		ts.day = day
	}
	if p >= PrecisionMinute {
		ts.hour, ts.minute, ts.offset = hour, minute, offset
	}
	if p >= PrecisionSecond {
		ts.second = second
	}
	if p == PrecisionFraction {
		ts.fraction = fraction
	}
	if err := ts.validate(); err != nil {
		return Timestamp{}, err
	}
	return ts, nil
}

// ForYear is New with PrecisionYear.
func ForYear(year int) (Timestamp, error) {
	return New(PrecisionYear, year, 0, 0, 0, 0, 0, decimal.Zero, UnknownOffset)
}

// ForMonth is New with PrecisionMonth.
func ForMonth(year, month int) (Timestamp, error) {
	return New(PrecisionMonth, year, month, 0, 0, 0, 0, decimal.Zero, UnknownOffset)
}

// ForDay is New with PrecisionDay.
func ForDay(year, month, day int) (Timestamp, error) {
	return New(PrecisionDay, year, month, day, 0, 0, 0, decimal.Zero, UnknownOffset)
}

// ForMinute is New with PrecisionMinute.
func ForMinute(year, month, day, hour, minute int, offset Offset) (Timestamp, error) {
	return New(PrecisionMinute, year, month, day, hour, minute, 0, decimal.Zero, offset)
}

// ForSecond is New with PrecisionSecond.
func ForSecond(year, month, day, hour, minute, second int, offset Offset) (Timestamp, error) {
	return New(PrecisionSecond, year, month, day, hour, minute, second, decimal.Zero, offset)
}

// ForFraction is New with PrecisionFraction. Fraction must be in [0, 1) and
// have negative exponent.
func ForFraction(year, month, day, hour, minute, second int, fraction decimal.Decimal, offset Offset) (Timestamp, error) {
	return New(PrecisionFraction, year, month, day, hour, minute, second, fraction, offset)
}

// FromTime converts time.Time keeping its zone offset. Nanoseconds are kept
// when precision is PrecisionFraction, trailing zeros are not trimmed.
func FromTime(t time.Time, p Precision) (Timestamp, error) {
	_, off := t.Zone()
	frac := decimal.Zero
	if p == PrecisionFraction {
		frac = decimal.New(int64(t.Nanosecond()), -9)
	}
	return New(p, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(), frac, OffsetMinutes(off/60))
}

// MustParse is Parse which panics, for constants and tests.
func MustParse(s string) Timestamp {
	ts, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return ts
}

func daysIn(year, month int) int {
	switch month {
	case 2:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	}
	return 31
}

func (ts Timestamp) validate() error {
	switch {
	case ts.year < 1 || ts.year > 9999:
		return ion.NewValueError("timestamp", "year %d out of range", ts.year)
	case ts.month < 1 || ts.month > 12:
		return ion.NewValueError("timestamp", "month %d out of range", ts.month)
	case ts.day < 1 || ts.day > daysIn(ts.year, ts.month):
		return ion.NewValueError("timestamp", "day %d out of range for %04d-%02d", ts.day, ts.year, ts.month)
	case ts.hour < 0 || ts.hour > 23:
		return ion.NewValueError("timestamp", "hour %d out of range", ts.hour)
	case ts.minute < 0 || ts.minute > 59:
		return ion.NewValueError("timestamp", "minute %d out of range", ts.minute)
	case ts.second < 0 || ts.second > 59:
		return ion.NewValueError("timestamp", "second %d out of range", ts.second)
	case ts.offset.minutes <= -maxOffset || ts.offset.minutes >= maxOffset:
		return ion.NewValueError("timestamp", "offset %d minutes out of range", ts.offset.minutes)
	}
	if ts.precision == PrecisionFraction {
		f := ts.fraction
		if f.IsNegative() {
			return ion.NewValueError("timestamp", "negative fraction of second %v", f)
		}
		if f.Exponent() >= 0 {
			return ion.NewValueError("timestamp", "fraction of second %v must have digits after decimal point", f)
		}
		if f.Cmp(decimal.New(1, 0)) >= 0 {
			return ion.NewValueError("timestamp", "fraction of second %v is not less than 1", f)
		}
	}
	if ts.offset.known && ts.offset.minutes != 0 {
		if y := ts.utc().Year(); y < 1 || y > 9999 {
			return ion.NewValueError("timestamp", "UTC year %d out of range", y)
		}
	}
	return nil
}

// Precision returns declared precision.
func (ts Timestamp) Precision() Precision { return ts.precision }

// Offset returns local offset, unknown for date only timestamps.
func (ts Timestamp) Offset() Offset { return ts.offset }

// Local fields.
func (ts Timestamp) Year() int   { return ts.year }
func (ts Timestamp) Month() int  { return ts.month }
func (ts Timestamp) Day() int    { return ts.day }
func (ts Timestamp) Hour() int   { return ts.hour }
func (ts Timestamp) Minute() int { return ts.minute }
func (ts Timestamp) Second() int { return ts.second }

// Fraction returns fraction of a second, zero unless precision is
// PrecisionFraction.
func (ts Timestamp) Fraction() decimal.Decimal { return ts.fraction }

// utc converts local fields to UTC wall clock, normalizing day, month and
// year rollover.
func (ts Timestamp) utc() time.Time {
	return time.Date(ts.year, time.Month(ts.month), ts.day, ts.hour, ts.minute-ts.offset.minutes, ts.second, 0, time.UTC)
}

// UTC fields, offset applied.
func (ts Timestamp) ZYear() int   { return ts.utc().Year() }
func (ts Timestamp) ZMonth() int  { return int(ts.utc().Month()) }
func (ts Timestamp) ZDay() int    { return ts.utc().Day() }
func (ts Timestamp) ZHour() int   { return ts.utc().Hour() }
func (ts Timestamp) ZMinute() int { return ts.utc().Minute() }
func (ts Timestamp) ZSecond() int { return ts.second }

// AddMinutes shifts the instant keeping offset and precision. Timestamps
// coarser than minute precision are first extended to it.
func (ts Timestamp) AddMinutes(n int) (Timestamp, error) {
	p := max(ts.precision, PrecisionMinute)
	t := time.Date(ts.year, time.Month(ts.month), ts.day, ts.hour, ts.minute+n, ts.second, 0, time.UTC)
	return New(p, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(), ts.fraction, ts.offset)
}

// Time converts to time.Time in fixed zone of the offset, unknown offset is
// UTC. Fraction is truncated to nanoseconds.
func (ts Timestamp) Time() time.Time {
	loc := time.UTC
	if ts.offset.known && ts.offset.minutes != 0 {
		loc = time.FixedZone("", ts.offset.minutes*60)
	}
	var nsec int
	if ts.precision == PrecisionFraction {
		c := ts.fraction.Coefficient()
		e := int64(ts.fraction.Exponent()) + 9
		if e >= 0 {
			c.Mul(c, new(big.Int).Exp(big.NewInt(10), big.NewInt(e), nil))
		} else {
			c.Quo(c, new(big.Int).Exp(big.NewInt(10), big.NewInt(-e), nil))
		}
		nsec = int(c.Int64())
	}
	return time.Date(ts.year, time.Month(ts.month), ts.day, ts.hour, ts.minute, ts.second, nsec, loc)
}

// Compare orders timestamps by the instant they denote, precision, offset and
// fraction scale do not matter.
func (ts Timestamp) Compare(o Timestamp) int {
	a, b := ts.utc().Unix(), o.utc().Unix()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return ts.fraction.Cmp(o.fraction)
}

// Equal is identity: same instant with the same precision, offset and
// fraction scale.
func (ts Timestamp) Equal(o Timestamp) bool {
	return ts.precision == o.precision &&
		ts.offset == o.offset &&
		ts.year == o.year && ts.month == o.month && ts.day == o.day &&
		ts.hour == o.hour && ts.minute == o.minute && ts.second == o.second &&
		ts.fraction.Equal(o.fraction)
}
