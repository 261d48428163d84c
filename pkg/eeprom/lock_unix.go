//go:build unix

package eeprom

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// lockFile takes a non-blocking exclusive flock on files backed by a real
// descriptor. In-memory files are not locked.
func lockFile(f afero.File) (func() error, error) {
	fd, ok := f.(interface{ Fd() uintptr })
	if !ok {
		return func() error { return nil }, nil
	}
	if err := unix.Flock(int(fd.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("eeprom: lock image: %w", err)
	}
	return func() error {
		return unix.Flock(int(fd.Fd()), unix.LOCK_UN)
	}, nil
}
