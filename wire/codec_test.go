package wire

import (
	"testing"

	"mcproxy/buffer"
)

func TestStringRoundTrip(t *testing.T) {
	b := buffer.New(16)
	WriteString(b, "localhost")
	got, err := ReadString(b)
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if got != "localhost" {
		t.Fatalf("ReadString() = %q, want %q", got, "localhost")
	}
}

func TestByteArrayRoundTrip(t *testing.T) {
	b := buffer.New(16)
	WriteByteArray(b, []byte{1, 2, 3, 4})
	got, err := ReadByteArray(b)
	if err != nil {
		t.Fatalf("ReadByteArray: %v", err)
	}
	if len(got) != 4 || got[3] != 4 {
		t.Fatalf("ReadByteArray() = %v", got)
	}
}

func TestReadRestConsumesRemainder(t *testing.T) {
	b := buffer.New(16)
	b.WriteBytes([]byte{9, 8, 7})
	got := ReadRest(b)
	if len(got) != 3 || b.Len() != 0 {
		t.Fatalf("ReadRest() = %v, remaining Len() = %d", got, b.Len())
	}
}

func TestFixedWidthPrimitives(t *testing.T) {
	b := buffer.New(64)
	WriteBool(b, true)
	WriteInt16(b, -1)
	WriteUint16(b, 25565)
	WriteInt64(b, -9001)
	WriteUint64(b, 12345)
	WriteFloat64(b, 3.5)
	u := UUID{0x01, 0x02}
	WriteUUID(b, u)

	if v, err := ReadBool(b); err != nil || v != true {
		t.Fatalf("ReadBool() = %v, %v", v, err)
	}
	if v, err := ReadInt16(b); err != nil || v != -1 {
		t.Fatalf("ReadInt16() = %v, %v", v, err)
	}
	if v, err := ReadUint16(b); err != nil || v != 25565 {
		t.Fatalf("ReadUint16() = %v, %v", v, err)
	}
	if v, err := ReadInt64(b); err != nil || v != -9001 {
		t.Fatalf("ReadInt64() = %v, %v", v, err)
	}
	if v, err := ReadUint64(b); err != nil || v != 12345 {
		t.Fatalf("ReadUint64() = %v, %v", v, err)
	}
	if v, err := ReadFloat64(b); err != nil || v != 3.5 {
		t.Fatalf("ReadFloat64() = %v, %v", v, err)
	}
	if got, err := ReadUUID(b); err != nil || got != u {
		t.Fatalf("ReadUUID() = %v, %v", got, err)
	}
}

func TestReadStringLenientOnInvalidUTF8(t *testing.T) {
	b := buffer.New(16)
	WriteVarInt(b, 1)
	b.WriteBytes([]byte{0xFF})
	if _, err := ReadString(b); err != nil {
		t.Fatalf("ReadString on invalid UTF-8 should not error, got %v", err)
	}
}
