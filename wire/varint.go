package wire

import (
	"errors"

	"mcproxy/buffer"
)

// ErrVarIntTooLong is returned when a VarInt/VarLong decode exceeds its byte
// budget (5 bytes for a 32-bit value, 10 for a 64-bit value) without seeing a
// continuation-clear terminator byte.
var ErrVarIntTooLong = errors.New("wire: varint too long")

const (
	// segmentBits masks the 7 data bits carried by each VarInt/VarLong byte.
	segmentBits = 0x7F
	// continueBit marks "another byte follows" when set.
	continueBit = 0x80
)

// SizeVarInt returns the number of bytes AppendVarInt would write for v.
func SizeVarInt(v int32) int {
	u := uint32(v)
	n := 1
	for u >= continueBit {
		u >>= 7
		n++
	}
	return n
}

// AppendVarInt encodes v (7 data bits + 1 continuation bit per byte,
// little-endian groups) and appends it to dst.
func AppendVarInt(dst []byte, v int32) []byte {
	u := uint32(v)
	for {
		if u&^uint32(segmentBits) == 0 {
			return append(dst, byte(u))
		}
		dst = append(dst, byte(u&segmentBits)|continueBit)
		u >>= 7
	}
}

// WriteVarInt appends the VarInt encoding of v to b.
func WriteVarInt(b *buffer.Buffer, v int32) {
	u := uint32(v)
	for {
		if u&^uint32(segmentBits) == 0 {
			_ = b.WriteByte(byte(u))
			return
		}
		_ = b.WriteByte(byte(u&segmentBits) | continueBit)
		u >>= 7
	}
}

// ReadVarInt decodes a VarInt from b, bounded to 5 bytes (the natural budget
// for a 32-bit value). It uses a wrapping shift so that a malformed but
// in-range byte sequence never panics from overflow.
func ReadVarInt(b *buffer.Buffer) (int32, error) {
	v, _, err := ReadVarIntBounded(b, 5)
	return v, err
}

// ReadVarIntBounded decodes a VarInt from the unread bytes of b, failing if
// more than maxBytes bytes would be needed without encountering a
// continuation-clear terminator, or if b does not yet hold a terminated
// sequence within maxBytes. It returns the decoded value and the number of
// bytes the encoding occupies. The read cursor only advances on success: a
// buffer.ErrShortBuffer result leaves b untouched so the caller can buffer the
// partial frame and retry once more bytes arrive. This is used both for the
// 5-byte id/int-field budget and the 3-byte outer frame-length budget (spec:
// frames are capped at 2^21-1 bytes, which fits in 3 VarInt bytes).
func ReadVarIntBounded(b *buffer.Buffer, maxBytes int) (int32, int, error) {
	avail := b.Unread()
	limit := maxBytes
	if len(avail) < limit {
		limit = len(avail)
	}

	var result uint32
	for i := 0; i < limit; i++ {
		by := avail[i]
		result |= uint32(by&segmentBits) << (7 * uint(i))
		if by&continueBit == 0 {
			b.Discard(i + 1)
			return int32(result), i + 1, nil
		}
	}
	if len(avail) < maxBytes {
		// Ran out of buffered bytes before seeing a terminator; may still be
		// a valid, merely-incomplete VarInt.
		return 0, 0, buffer.ErrShortBuffer
	}
	return 0, 0, ErrVarIntTooLong
}

// SizeVarLong returns the number of bytes AppendVarLong would write for v.
func SizeVarLong(v int64) int {
	u := uint64(v)
	n := 1
	for u >= continueBit {
		u >>= 7
		n++
	}
	return n
}

// AppendVarLong encodes a 64-bit VarLong and appends it to dst.
func AppendVarLong(dst []byte, v int64) []byte {
	u := uint64(v)
	for {
		if u&^uint64(segmentBits) == 0 {
			return append(dst, byte(u))
		}
		dst = append(dst, byte(u&segmentBits)|continueBit)
		u >>= 7
	}
}

// WriteVarLong appends the VarLong encoding of v to b.
func WriteVarLong(b *buffer.Buffer, v int64) {
	u := uint64(v)
	for {
		if u&^uint64(segmentBits) == 0 {
			_ = b.WriteByte(byte(u))
			return
		}
		_ = b.WriteByte(byte(u&segmentBits) | continueBit)
		u >>= 7
	}
}

// ReadVarLong decodes a VarLong from b, bounded to 10 bytes (the natural
// budget for a 64-bit value).
func ReadVarLong(b *buffer.Buffer) (int64, error) {
	var result uint64
	for i := 0; i < 10; i++ {
		by, err := b.ReadByte()
		if err != nil {
			return 0, buffer.ErrShortBuffer
		}
		result |= uint64(by&segmentBits) << (7 * uint(i))
		if by&continueBit == 0 {
			return int64(result), nil
		}
	}
	return 0, ErrVarIntTooLong
}
