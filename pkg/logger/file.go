package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// FileLogger is a StandardLogger appending to a log file it owns.
type FileLogger struct {
	*StandardLogger
	f    afero.File
	once sync.Once
	err  error
}

// OpenFile opens path on fsys for appending, creating it and its directory
// when missing.
func OpenFile(fsys afero.Fs, path string) (*FileLogger, error) {
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}
	return &FileLogger{
		StandardLogger: NewStandardLogger(log.New(f, "", log.LstdFlags)),
		f:              f,
	}, nil
}

// Close closes the log file. Later calls return the first result.
func (l *FileLogger) Close() error {
	l.once.Do(func() { l.err = l.f.Close() })
	return l.err
}
