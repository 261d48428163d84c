package eeprom

// MemStore is an in-memory Store. The zero value is not usable; use NewMemStore.
// It is not safe for concurrent use.
type MemStore struct {
	cells []byte
}

// NewMemStore returns a blank store of the given size.
func NewMemStore(size int) *MemStore {
	cells := make([]byte, size)
	for i := range cells {
		cells[i] = Blank
	}
	return &MemStore{cells: cells}
}

// ByteAt implements Store.
func (m *MemStore) ByteAt(addr int) byte {
	if addr < 0 || addr >= len(m.cells) {
		return Blank
	}
	return m.cells[addr]
}

// SetByte implements Store. Out-of-range writes are dropped.
func (m *MemStore) SetByte(addr int, v byte) {
	if addr < 0 || addr >= len(m.cells) {
		return
	}
	m.cells[addr] = v
}

// Size implements Store.
func (m *MemStore) Size() int {
	return len(m.cells)
}

// Bytes returns a copy of the current contents.
func (m *MemStore) Bytes() []byte {
	out := make([]byte, len(m.cells))
	copy(out, m.cells)
	return out
}

var _ Store = (*MemStore)(nil)
