package offload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// DirTarget writes into a directory of an afero filesystem.
type DirTarget struct {
	fs  afero.Fs
	dir string
}

// OpenDir creates dir if needed.
func OpenDir(fsys afero.Fs, dir string) (*DirTarget, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("offload: %w", err)
	}
	return &DirTarget{fs: fsys, dir: dir}, nil
}

func (d *DirTarget) Exists(name string) (bool, error) {
	return afero.Exists(d.fs, filepath.Join(d.dir, name))
}

func (d *DirTarget) Put(name string, r io.Reader) error {
	p := filepath.Join(d.dir, name)
	f, err := d.fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		d.fs.Remove(p)
		return err
	}
	return f.Close()
}

func (d *DirTarget) Close() error { return nil }

func (d *DirTarget) String() string { return d.dir }
