package logger

// MultiLogger writes every message to each of its backends, typically
// stderr and the log file on the data partition.
type MultiLogger []Logger

// NewMultiLogger drops nil backends, so an optional file logger can be
// passed unconditionally.
func NewMultiLogger(backends ...Logger) MultiLogger {
	m := make(MultiLogger, 0, len(backends))
	for _, l := range backends {
		if l != nil {
			m = append(m, l)
		}
	}
	return m
}

func (m MultiLogger) Info(format string, args ...interface{}) {
	for _, l := range m {
		l.Info(format, args...)
	}
}

func (m MultiLogger) Warning(format string, args ...interface{}) {
	for _, l := range m {
		l.Warning(format, args...)
	}
}

func (m MultiLogger) Error(format string, args ...interface{}) {
	for _, l := range m {
		l.Error(format, args...)
	}
}

// Close closes every backend and returns the first error.
func (m MultiLogger) Close() (err error) {
	for _, l := range m {
		if cerr := l.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
