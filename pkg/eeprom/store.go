package eeprom

import "errors"

// Blank is the value of an erased cell.
const Blank byte = 0xFF

var (
	// ErrOutOfRange is recorded when an address falls outside the store.
	ErrOutOfRange = errors.New("eeprom: address out of range")
	// ErrLocked is returned when another process holds the image file.
	ErrLocked = errors.New("eeprom: image file is locked by another process")
	// ErrClosed is recorded when a closed store is written.
	ErrClosed = errors.New("eeprom: store is closed")
)

// Store is a byte-addressable durable memory.
type Store interface {
	// ByteAt returns the byte at addr. Out-of-range reads return Blank.
	ByteAt(addr int) byte
	// SetByte stores v at addr. It is not buffered.
	SetByte(addr int, v byte)
	// Size is the number of addressable bytes.
	Size() int
}

// ReadWord32 reads the 32-bit word stored at addr..addr+3.
func ReadWord32(s Store, addr int) uint32 {
	var b [4]byte
	for i := range b {
		b[i] = s.ByteAt(addr + i)
	}
	return Word32(b[:])
}

// WriteWord32 writes v at addr..addr+3, least-significant byte first.
func WriteWord32(s Store, addr int, v uint32) {
	var b [4]byte
	PutWord32(b[:], v)
	for i := range b {
		s.SetByte(addr+i, b[i])
	}
}
