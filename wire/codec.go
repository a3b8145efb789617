// Package wire implements the Minecraft Java Edition wire codec: VarInt and
// VarLong variable-length integers (see varint.go) plus fixed-width numeric
// primitives, length-prefixed strings and byte arrays, and a 128-bit UUID
// type, all operating on a buffer.Buffer.
package wire

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"mcproxy/buffer"
)

// UUID is a 128-bit value, written and read big-endian as two 64-bit halves
// (the wire format's "u128").
type UUID [16]byte

// WriteBool appends a single-byte boolean.
func WriteBool(b *buffer.Buffer, v bool) {
	if v {
		_ = b.WriteByte(1)
		return
	}
	_ = b.WriteByte(0)
}

// ReadBool consumes a single-byte boolean.
func ReadBool(b *buffer.Buffer) (bool, error) {
	v, err := b.ReadByte()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// WriteInt16 appends a big-endian signed 16-bit integer.
func WriteInt16(b *buffer.Buffer, v int16) { WriteUint16(b, uint16(v)) }

// ReadInt16 consumes a big-endian signed 16-bit integer.
func ReadInt16(b *buffer.Buffer) (int16, error) {
	v, err := ReadUint16(b)
	return int16(v), err
}

// WriteUint16 appends a big-endian unsigned 16-bit integer.
func WriteUint16(b *buffer.Buffer, v uint16) {
	b.EnsureWritable(2)
	binary.BigEndian.PutUint16(b.Writable()[:2], v)
	b.Advance(2)
}

// ReadUint16 consumes a big-endian unsigned 16-bit integer.
func ReadUint16(b *buffer.Buffer) (uint16, error) {
	p, err := b.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(p), nil
}

// WriteInt32 appends a big-endian signed 32-bit integer (fixed width, not a
// VarInt — used for fields the protocol specifies as plain ints).
func WriteInt32(b *buffer.Buffer, v int32) { WriteUint32(b, uint32(v)) }

// ReadInt32 consumes a big-endian signed 32-bit integer.
func ReadInt32(b *buffer.Buffer) (int32, error) {
	v, err := ReadUint32(b)
	return int32(v), err
}

// WriteUint32 appends a big-endian unsigned 32-bit integer.
func WriteUint32(b *buffer.Buffer, v uint32) {
	b.EnsureWritable(4)
	binary.BigEndian.PutUint32(b.Writable()[:4], v)
	b.Advance(4)
}

// ReadUint32 consumes a big-endian unsigned 32-bit integer.
func ReadUint32(b *buffer.Buffer) (uint32, error) {
	p, err := b.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(p), nil
}

// WriteInt64 appends a big-endian signed 64-bit integer.
func WriteInt64(b *buffer.Buffer, v int64) { WriteUint64(b, uint64(v)) }

// ReadInt64 consumes a big-endian signed 64-bit integer.
func ReadInt64(b *buffer.Buffer) (int64, error) {
	v, err := ReadUint64(b)
	return int64(v), err
}

// WriteUint64 appends a big-endian unsigned 64-bit integer.
func WriteUint64(b *buffer.Buffer, v uint64) {
	b.EnsureWritable(8)
	binary.BigEndian.PutUint64(b.Writable()[:8], v)
	b.Advance(8)
}

// ReadUint64 consumes a big-endian unsigned 64-bit integer.
func ReadUint64(b *buffer.Buffer) (uint64, error) {
	p, err := b.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(p), nil
}

// WriteFloat64 appends a big-endian IEEE-754 double.
func WriteFloat64(b *buffer.Buffer, v float64) {
	WriteUint64(b, math.Float64bits(v))
}

// ReadFloat64 consumes a big-endian IEEE-754 double.
func ReadFloat64(b *buffer.Buffer) (float64, error) {
	v, err := ReadUint64(b)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// WriteUUID appends a big-endian 128-bit value as two 64-bit halves.
func WriteUUID(b *buffer.Buffer, v UUID) {
	b.WriteBytes(v[:])
}

// ReadUUID consumes a big-endian 128-bit value.
func ReadUUID(b *buffer.Buffer) (UUID, error) {
	p, err := b.ReadBytes(16)
	if err != nil {
		return UUID{}, err
	}
	var u UUID
	copy(u[:], p)
	return u, nil
}

// WriteString appends a VarInt length prefix followed by the UTF-8 bytes of
// s. The caller is expected to pass valid UTF-8; unlike ReadString, this is
// not lenient: it panics if s is not valid UTF-8.
func WriteString(b *buffer.Buffer, s string) {
	if !utf8.ValidString(s) {
		panic("wire: WriteString called with invalid UTF-8")
	}
	WriteVarInt(b, int32(len(s)))
	b.WriteBytes([]byte(s))
}

// ReadString consumes a VarInt-length-prefixed UTF-8 string. Decoding is
// lenient: invalid byte sequences are replaced with the Unicode replacement
// character rather than failing the read.
func ReadString(b *buffer.Buffer) (string, error) {
	n, err := ReadVarInt(b)
	if err != nil {
		return "", err
	}
	p, err := b.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	if utf8.Valid(p) {
		return string(p), nil
	}
	return utf8ToValidString(p), nil
}

// WriteByteArray appends a VarInt length prefix followed by p.
func WriteByteArray(b *buffer.Buffer, p []byte) {
	WriteVarInt(b, int32(len(p)))
	b.WriteBytes(p)
}

// ReadByteArray consumes a VarInt-length-prefixed byte array.
func ReadByteArray(b *buffer.Buffer) ([]byte, error) {
	n, err := ReadVarInt(b)
	if err != nil {
		return nil, err
	}
	p, err := b.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(p))
	copy(out, p)
	return out, nil
}

// ReadRest consumes and returns every remaining unread byte, for
// "rest-of-frame" fields that carry no length prefix of their own.
func ReadRest(b *buffer.Buffer) []byte {
	p := b.Unread()
	out := make([]byte, len(p))
	copy(out, p)
	b.Discard(len(p))
	return out
}

func utf8ToValidString(p []byte) string {
	buf := make([]rune, 0, len(p))
	for len(p) > 0 {
		r, size := utf8.DecodeRune(p)
		buf = append(buf, r)
		p = p[size:]
	}
	return string(buf)
}
