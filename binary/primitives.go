// Package binary implements Ion 1.0 binary encoding: variable length integer
// primitives, a raw cursor over encoded values and a raw encoder. Neither
// knows about symbol tables, symbols are plain IDs at this level.
package binary

import (
	"math"
	"math/big"
	"math/bits"

	"ionkit/ion"
)

// Type codes, high nibble of a type descriptor.
const (
	codeNull       = 0x0
	codeBool       = 0x1
	codePosInt     = 0x2
	codeNegInt     = 0x3
	codeFloat      = 0x4
	codeDecimal    = 0x5
	codeTimestamp  = 0x6
	codeSymbol     = 0x7
	codeString     = 0x8
	codeClob       = 0x9
	codeBlob       = 0xA
	codeList       = 0xB
	codeSexp       = 0xC
	codeStruct     = 0xD
	codeAnnotation = 0xE

	lenVar  = 0xE
	lenNull = 0xF
)

// AppendVarUInt appends v as VarUInt: 7 bits per byte, end bit set on the
// last byte.
func AppendVarUInt(b []byte, v uint64) []byte {
	n := VarUIntLen(v)
	for i := n - 1; i > 0; i-- {
		b = append(b, byte(v>>(7*uint(i)))&0x7F)
	}
	return append(b, byte(v&0x7F)|0x80)
}

// VarUIntLen returns number of bytes VarUInt encoding of v takes.
func VarUIntLen(v uint64) int {
	if v == 0 {
		return 1
	}
	return (bits.Len64(v) + 6) / 7
}

// AppendVarInt appends signed VarInt. Sign bit lives in the first byte, so
// the first byte carries 6 bits of magnitude.
func AppendVarInt(b []byte, v int64) []byte {
	neg := v < 0
	mag := uint64(v)
	if neg {
		// two's complement negation is correct for math.MinInt64 too
		mag = -mag
	}
	return AppendVarIntMagnitude(b, neg, mag)
}

// AppendVarIntMagnitude appends VarInt from sign and magnitude, which allows
// to write negative zero.
func AppendVarIntMagnitude(b []byte, neg bool, mag uint64) []byte {
	n := varIntLen(mag)
	for i := n - 1; i >= 0; i-- {
		c := byte(mag>>(7*uint(i))) & 0x7F
		if i == n-1 && neg {
			c |= 0x40
		}
		if i == 0 {
			c |= 0x80
		}
		b = append(b, c)
	}
	return b
}

func varIntLen(mag uint64) int {
	return (bits.Len64(mag) + 7) / 7
}

// AppendUInt appends minimal big-endian bytes of v, nothing for zero.
func AppendUInt(b []byte, v uint64) []byte {
	n := UIntLen(v)
	for i := n - 1; i >= 0; i-- {
		b = append(b, byte(v>>(8*uint(i))))
	}
	return b
}

// UIntLen returns number of bytes UInt encoding of v takes.
func UIntLen(v uint64) int {
	return (bits.Len64(v) + 7) / 8
}

// AppendInt appends signed-magnitude Int: big-endian magnitude with the sign
// in the high bit of the first byte. Zero magnitude produces no bytes unless
// negative.
func AppendInt(b []byte, neg bool, mag *big.Int) []byte {
	mb := mag.Bytes()
	if len(mb) == 0 {
		if neg {
			return append(b, 0x80)
		}
		return b
	}
	if mb[0]&0x80 != 0 {
		b = append(b, 0)
	}
	start := len(b)
	b = append(b, mb...)
	if neg {
		b[start] |= 0x80
	}
	return b
}

// ReadVarUInt decodes VarUInt at pos. Leading zero groups are accepted,
// values which do not fit 64 bits are not.
func ReadVarUInt(b []byte, pos int) (uint64, int, error) {
	var v uint64
	for i := pos; i < len(b); i++ {
		c := b[i]
		if v > math.MaxUint64>>7 {
			return 0, 0, ion.NewSyntaxError(int64(pos), "VarUInt overflows 64 bits")
		}
		v = v<<7 | uint64(c&0x7F)
		if c&0x80 != 0 {
			return v, i - pos + 1, nil
		}
	}
	return 0, 0, &ion.SyntaxError{Msg: "truncated VarUInt", Offset: int64(pos), Err: ion.ErrUnexpectedEOF}
}

// ReadVarInt decodes VarInt at pos returning magnitude and sign separately,
// so negative zero is observable.
func ReadVarInt(b []byte, pos int) (mag uint64, neg bool, n int, err error) {
	if pos >= len(b) {
		return 0, false, 0, &ion.SyntaxError{Msg: "truncated VarInt", Offset: int64(pos), Err: ion.ErrUnexpectedEOF}
	}
	first := b[pos]
	neg = first&0x40 != 0
	mag = uint64(first & 0x3F)
	if first&0x80 != 0 {
		return mag, neg, 1, nil
	}
	for i := pos + 1; i < len(b); i++ {
		c := b[i]
		if mag > math.MaxUint64>>7 {
			return 0, false, 0, ion.NewSyntaxError(int64(pos), "VarInt overflows 64 bits")
		}
		mag = mag<<7 | uint64(c&0x7F)
		if c&0x80 != 0 {
			return mag, neg, i - pos + 1, nil
		}
	}
	return 0, false, 0, &ion.SyntaxError{Msg: "truncated VarInt", Offset: int64(pos), Err: ion.ErrUnexpectedEOF}
}

// readVarInt64 is ReadVarInt for values which must fit int64.
func readVarInt64(b []byte, pos int) (int64, int, error) {
	mag, neg, n, err := ReadVarInt(b, pos)
	if err != nil {
		return 0, 0, err
	}
	if mag > math.MaxInt64 {
		return 0, 0, ion.NewSyntaxError(int64(pos), "VarInt overflows int64")
	}
	if neg {
		return -int64(mag), n, nil
	}
	return int64(mag), n, nil
}

// ReadUInt decodes big-endian unsigned bytes.
func ReadUInt(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// readUInt64 decodes at most 8 big-endian bytes.
func readUInt64(b []byte, at int64) (uint64, error) {
	// leading zero bytes do not count
	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}
	if len(b) > 8 {
		return 0, ion.NewSyntaxError(at, "UInt of %d bytes overflows 64 bits", len(b))
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, nil
}

// ReadInt decodes signed-magnitude Int. Empty input is zero.
func ReadInt(b []byte) (mag *big.Int, neg bool) {
	if len(b) == 0 {
		return new(big.Int), false
	}
	neg = b[0]&0x80 != 0
	mb := make([]byte, len(b))
	copy(mb, b)
	mb[0] &= 0x7F
	return new(big.Int).SetBytes(mb), neg
}
