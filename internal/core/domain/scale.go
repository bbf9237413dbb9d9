package domain

import (
	"encoding/binary"
	"math/bits"
)

// appendCompact appends n in SCALE compact form: single-byte, two-byte and
// four-byte modes carry the value shifted left by two with the mode in the
// low bits; larger values use big-integer mode.
func appendCompact(b []byte, n uint64) []byte {
	switch {
	case n < 1<<6:
		return append(b, byte(n<<2))
	case n < 1<<14:
		return binary.LittleEndian.AppendUint16(b, uint16(n<<2|0b01))
	case n < 1<<30:
		return binary.LittleEndian.AppendUint32(b, uint32(n<<2|0b10))
	default:
		size := (bits.Len64(n) + 7) / 8
		b = append(b, byte((size-4)<<2|0b11))
		for i := 0; i < size; i++ {
			b = append(b, byte(n>>(8*i)))
		}
		return b
	}
}
