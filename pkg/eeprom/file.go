package eeprom

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// DefaultImageSize matches the EEPROM of the ATmega328 the format was laid
// out for.
const DefaultImageSize = 1024

// FileOptions tunes a FileStore.
type FileOptions struct {
	// Size is the number of addressable bytes. Zero means DefaultImageSize.
	Size int
	// NoSync skips the fsync after every write. Only tests should set it.
	NoSync bool
}

// FileStore is a Store backed by an image file. Every write goes straight to
// the file at the cell's offset; the image is read once at open.
//
// I/O errors do not surface from SetByte. The first one is kept and returned
// by Err until the store is closed. FileStore is not safe for concurrent use.
type FileStore struct {
	f      afero.File
	cells  []byte
	opts   FileOptions
	unlock func() error
	err    error
	closed bool
}

// OpenFile opens or creates the image at path on fsys. A missing or short
// image is padded with Blank cells. On unix the file is locked exclusively
// and ErrLocked is returned if another process already holds it.
func OpenFile(fsys afero.Fs, path string, opts *FileOptions) (*FileStore, error) {
	var o FileOptions
	if opts != nil {
		o = *opts
	}
	if o.Size <= 0 {
		o.Size = DefaultImageSize
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("eeprom: create image dir: %w", err)
	}
	f, err := fsys.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("eeprom: open image: %w", err)
	}
	unlock, err := lockFile(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	s := &FileStore{
		f:      f,
		cells:  make([]byte, o.Size),
		opts:   o,
		unlock: unlock,
	}
	if err := s.load(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	n, err := s.f.ReadAt(s.cells, 0)
	if err != nil && err != io.EOF {
		return fmt.Errorf("eeprom: read image: %w", err)
	}
	if n == len(s.cells) {
		return nil
	}
	for i := n; i < len(s.cells); i++ {
		s.cells[i] = Blank
	}
	if _, err := s.f.WriteAt(s.cells[n:], int64(n)); err != nil {
		return fmt.Errorf("eeprom: pad image: %w", err)
	}
	return s.sync()
}

func (s *FileStore) sync() error {
	if s.opts.NoSync {
		return nil
	}
	return s.f.Sync()
}

func (s *FileStore) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// ByteAt implements Store.
func (s *FileStore) ByteAt(addr int) byte {
	if addr < 0 || addr >= len(s.cells) {
		return Blank
	}
	return s.cells[addr]
}

// SetByte implements Store. Cells that already hold v are not rewritten.
func (s *FileStore) SetByte(addr int, v byte) {
	if s.closed {
		s.fail(ErrClosed)
		return
	}
	if addr < 0 || addr >= len(s.cells) {
		s.fail(fmt.Errorf("%w: %d", ErrOutOfRange, addr))
		return
	}
	if s.cells[addr] == v {
		return
	}
	s.cells[addr] = v
	if _, err := s.f.WriteAt([]byte{v}, int64(addr)); err != nil {
		s.fail(fmt.Errorf("eeprom: write cell %d: %w", addr, err))
		return
	}
	if err := s.sync(); err != nil {
		s.fail(fmt.Errorf("eeprom: sync: %w", err))
	}
}

// Size implements Store.
func (s *FileStore) Size() int {
	return len(s.cells)
}

// Err returns the first I/O error seen by SetByte, if any.
func (s *FileStore) Err() error {
	return s.err
}

// Close releases the lock and the file. It is safe to call more than once.
func (s *FileStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var err error
	if s.unlock != nil {
		err = s.unlock()
	}
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

var _ Store = (*FileStore)(nil)
