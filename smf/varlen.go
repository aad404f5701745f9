package smf

import "github.com/pkg/errors"

// MaxVarLen is the largest value a 4-byte variable-length quantity holds.
const MaxVarLen = 0x0FFFFFFF

// VarLenSize returns the number of bytes v takes as a variable-length quantity.
func VarLenSize(v uint32) int {
	n := 1
	for v >>= 7; v > 0; v >>= 7 {
		n++
	}
	return n
}

// AppendVarLen appends v as a variable-length quantity: 7 bits per byte,
// most significant group first, high bit set on every byte but the last.
func AppendVarLen(dst []byte, v uint32) ([]byte, error) {
	if v > MaxVarLen {
		return dst, errors.Wrapf(ErrVarLenOverflow, "%d", v)
	}
	var buf [4]byte
	i := len(buf) - 1
	buf[i] = byte(v & 0x7F)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		buf[i] = byte(v&0x7F) | 0x80
	}
	return append(dst, buf[i:]...), nil
}

// appendUint16 and friends write big-endian fixed-width integers.
func appendUint16(dst []byte, v uint16) []byte {
	return append(dst, byte(v>>8), byte(v))
}

func appendUint24(dst []byte, v uint32) []byte {
	return append(dst, byte(v>>16), byte(v>>8), byte(v))
}

func appendUint32(dst []byte, v uint32) []byte {
	return append(dst, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func uint16At(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

func uint24At(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func uint32At(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// SevenBit clamps v to the 0..127 range of a MIDI data byte.
func SevenBit(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 0x7F {
		return 0x7F
	}
	return uint8(v)
}
