// Package flatten copies the photos a camera spread over per-power-cycle
// folders into one directory, renumbered in capture order.
//
// A camera whose power is cycled for every capture starts a new folder each
// time and restarts its sequence numbers:
//
//	DCIM/100NIKON/DSC_0001.NEF
//	DCIM/101NIKON/DSC_0001.NEF
//
// Flatten turns that into
//
//	out/00000.NEF
//	out/00001.NEF
package flatten

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/shutterloop/shutterloop/pkg/logger"
)

// Destination receives the renumbered files. Put must not replace an
// existing name.
type Destination interface {
	Exists(name string) (bool, error)
	Put(name string, r io.Reader) error
	String() string
}

// Result lists what a run did.
type Result struct {
	Copied int
	// Skipped holds source files whose destination already existed.
	Skipped []string
}

// Flatten copies every regular file under src, walked in lexical order, to
// dst as NNNNN.ext. A name that already exists in dst is never overwritten;
// its source is skipped but still consumes its sequence number so reruns
// keep numbering stable.
func Flatten(fsys afero.Fs, src string, dst Destination, log logger.Logger) (*Result, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if ok, err := afero.DirExists(fsys, src); err != nil || !ok {
		return nil, fmt.Errorf("flatten: %s is not a directory", src)
	}

	res := &Result{}
	n := 0
	err := afero.Walk(fsys, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		name := fmt.Sprintf("%05d%s", n, filepath.Ext(path))
		n++
		if exists, err := dst.Exists(name); err != nil {
			return err
		} else if exists {
			log.Error("%s already exists in %s, skipping %s", name, dst, path)
			res.Skipped = append(res.Skipped, path)
			return nil
		}
		log.Info("cp %s %s", path, name)
		if err := copyFile(fsys, path, dst, name); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		res.Copied++
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("flatten: %w", err)
	}
	log.Info("copied %d files to %s", res.Copied, dst)
	if len(res.Skipped) > 0 {
		log.Warning("did not copy %d files", len(res.Skipped))
	}
	return res, nil
}

func copyFile(fsys afero.Fs, src string, dst Destination, name string) error {
	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return dst.Put(name, in)
}
