package materializer

import "encoding/binary"

// decodePointer reads an inferior address out of a variable's raw data
// bytes, honoring the memory map's byte order and pointer width.
func decodePointer(data []byte, order ByteOrder, addrSize int) uint64 {
	if len(data) < addrSize {
		padded := make([]byte, addrSize)
		copy(padded, data)
		data = padded
	}
	if order == BigEndian {
		if addrSize == 4 {
			return uint64(binary.BigEndian.Uint32(data))
		}
		return binary.BigEndian.Uint64(data)
	}
	if addrSize == 4 {
		return uint64(binary.LittleEndian.Uint32(data))
	}
	return binary.LittleEndian.Uint64(data)
}

// bitAlignToByteAlign reproduces SetSizeAndAlignmentFromType's conversion
// from a type's bit alignment to a byte alignment. The mask below is almost
// certainly a typo for 0x7, but the behavior is preserved bit-for-bit rather
// than "fixed" — see DESIGN.md's Open Questions. SetSizeAndAlignmentFromType
// itself is never called by any concrete entity in the original; every
// entity that needs a byte alignment computes it inline with plain ceiling
// division instead (LocalEntity, ResultEntity), so this function stays
// unreferenced by entity.go's implementations on purpose, kept only as the
// vestigial function it was in the source.
func bitAlignToByteAlign(bitAlign uint32) uint64 {
	if bitAlign%8 != 0 {
		bitAlign += 8
		bitAlign &^= 0x111
	}
	return uint64(bitAlign / 8)
}
