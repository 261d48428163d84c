package eeprom

// The word layout is part of the persisted format: byte 0 holds bits 0-7,
// byte 3 holds bits 24-31. Changing it makes existing images unreadable.

// PutWord32 encodes v into b[0:4]. It panics if len(b) < 4.
func PutWord32(b []byte, v uint32) {
	_ = b[3]
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// Word32 decodes the word held in b[0:4]. It panics if len(b) < 4.
func Word32(b []byte) uint32 {
	_ = b[3]
	return uint32(b[0]) |
		uint32(b[1])<<8 |
		uint32(b[2])<<16 |
		uint32(b[3])<<24
}
