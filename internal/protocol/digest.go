package protocol

import (
	"encoding/binary"
	"math/bits"
)

// Digest is a weak, non-cryptographic integrity value over the header
// fields and payload. The payload is zero-padded to a multiple of four and
// each little-endian word is folded in with rotate-right-one then
// xor-shift-left-one. It detects injected bit errors; it does not
// authenticate anything.
func Digest(seq, ack int32, payload []byte) int32 {
	acc := uint32(seq) ^ (uint32(ack) << 1)

	full := len(payload) &^ 3
	for i := 0; i < full; i += 4 {
		acc = fold(acc, binary.LittleEndian.Uint32(payload[i:]))
	}
	if tail := payload[full:]; len(tail) > 0 {
		var word [4]byte
		copy(word[:], tail)
		acc = fold(acc, binary.LittleEndian.Uint32(word[:]))
	}
	return int32(acc)
}

func fold(acc, word uint32) uint32 {
	return bits.RotateLeft32(acc, -1) ^ (word << 1)
}
