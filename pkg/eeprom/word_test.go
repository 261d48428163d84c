package eeprom

import (
	"bytes"
	"testing"
)

func TestWord32_RoundTrip(t *testing.T) {
	values := []uint32{0, 1, 0xFF, 0x100, 0x12345678, 0x7FFFFFFF, 0x80000000, 0xFFFFFFFE, 0xFFFFFFFF}
	for _, v := range values {
		var b [4]byte
		PutWord32(b[:], v)
		if got := Word32(b[:]); got != v {
			t.Errorf("Word32(PutWord32(%#x)) = %#x", v, got)
		}
	}
}

func TestPutWord32_LeastSignificantByteFirst(t *testing.T) {
	var b [4]byte
	PutWord32(b[:], 0x0A0B0C0D)
	want := []byte{0x0D, 0x0C, 0x0B, 0x0A}
	if !bytes.Equal(b[:], want) {
		t.Fatalf("PutWord32 = % x, want % x", b[:], want)
	}
}

func TestStoreWord32_RoundTrip(t *testing.T) {
	s := NewMemStore(16)
	for _, v := range []uint32{0, 0xFFFFFFFF, 1709287200} {
		WriteWord32(s, 2, v)
		if got := ReadWord32(s, 2); got != v {
			t.Errorf("ReadWord32 after WriteWord32(%#x) = %#x", v, got)
		}
	}
	// neighbours untouched
	if s.ByteAt(1) != Blank || s.ByteAt(6) != Blank {
		t.Fatalf("WriteWord32 touched cells outside addr..addr+3: % x", s.Bytes())
	}
}

func TestReadWord32_BlankStore(t *testing.T) {
	s := NewMemStore(8)
	if got := ReadWord32(s, 0); got != 0xFFFFFFFF {
		t.Fatalf("blank word = %#x, want 0xFFFFFFFF", got)
	}
}
