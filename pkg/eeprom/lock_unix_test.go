//go:build unix

package eeprom

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func TestFileStore_ExclusiveLock(t *testing.T) {
	fsys := afero.NewOsFs()
	path := filepath.Join(t.TempDir(), "eeprom.img")

	first, err := OpenFile(fsys, path, &FileOptions{Size: 8})
	if err != nil {
		t.Fatalf("first OpenFile: %v", err)
	}

	if _, err := OpenFile(fsys, path, &FileOptions{Size: 8}); !errors.Is(err, ErrLocked) {
		t.Fatalf("second OpenFile err = %v, want ErrLocked", err)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	again, err := OpenFile(fsys, path, &FileOptions{Size: 8})
	if err != nil {
		t.Fatalf("OpenFile after Close: %v", err)
	}
	again.Close()
}
