package wire

import (
	"testing"

	"mcproxy/buffer"
)

func TestVarIntRoundTrip(t *testing.T) {
	cases := []struct {
		v    int32
		size int
	}{
		{0, 1},
		{1, 1},
		{127, 1},
		{128, 2},
		{25565, 3},
		{2097151, 3},
		{2147483647, 5},
		{-1, 5},
		{-2147483648, 5},
	}
	for _, c := range cases {
		if got := SizeVarInt(c.v); got != c.size {
			t.Errorf("SizeVarInt(%d) = %d, want %d", c.v, got, c.size)
		}
		b := buffer.New(8)
		WriteVarInt(b, c.v)
		if b.Len() != c.size {
			t.Errorf("encoded length of %d = %d, want %d", c.v, b.Len(), c.size)
		}
		got, err := ReadVarInt(b)
		if err != nil {
			t.Fatalf("ReadVarInt(%d): %v", c.v, err)
		}
		if got != c.v {
			t.Errorf("ReadVarInt round trip = %d, want %d", got, c.v)
		}
	}
}

func TestReadVarIntBoundedShortBufferDoesNotConsume(t *testing.T) {
	b := buffer.New(8)
	_ = b.WriteByte(0x80) // continuation bit set, no terminator yet
	_, _, err := ReadVarIntBounded(b, 3)
	if err != buffer.ErrShortBuffer {
		t.Fatalf("err = %v, want ErrShortBuffer", err)
	}
	if b.ReaderIndex() != 0 {
		t.Fatalf("ReaderIndex() = %d, want 0 (short read must not consume)", b.ReaderIndex())
	}
}

func TestReadVarIntBoundedTooLong(t *testing.T) {
	b := buffer.New(8)
	// Three continuation bytes with no terminator, bounded to 3.
	_ = b.WriteByte(0x80)
	_ = b.WriteByte(0x80)
	_ = b.WriteByte(0x80)
	_, _, err := ReadVarIntBounded(b, 3)
	if err != ErrVarIntTooLong {
		t.Fatalf("err = %v, want ErrVarIntTooLong", err)
	}
}

func TestReadVarIntBoundedTerminatesBeforeMax(t *testing.T) {
	b := buffer.New(8)
	_ = b.WriteByte(0x01) // terminated on the first byte
	v, n, err := ReadVarIntBounded(b, 3)
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if v != 1 || n != 1 {
		t.Fatalf("got v=%d n=%d, want v=1 n=1", v, n)
	}
}

func TestVarLongRoundTrip(t *testing.T) {
	cases := []int64{0, 1, 127, 128, 1 << 40, -1, -9223372036854775808}
	for _, v := range cases {
		b := buffer.New(16)
		WriteVarLong(b, v)
		got, err := ReadVarLong(b)
		if err != nil {
			t.Fatalf("ReadVarLong(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("VarLong round trip = %d, want %d", got, v)
		}
	}
}
