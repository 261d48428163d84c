// Package offload opens the places flattened frames are written to: a
// local directory, or a directory on an SFTP or FTP server.
package offload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/shutterloop/shutterloop/pkg/logger"
)

// DefaultTimeout bounds connecting to a remote target.
const DefaultTimeout = 30 * time.Second

var ErrUnsupportedScheme = errors.New("offload: unsupported scheme")

// Target receives files by name.
type Target interface {
	// Exists reports whether name is already present.
	Exists(name string) (bool, error)
	// Put writes name from r. It never replaces an existing file.
	Put(name string, r io.Reader) error
	Close() error
	// String names the target with any password removed.
	String() string
}

type Options struct {
	// Fs holds local targets. Nil means the OS filesystem.
	Fs afero.Fs
	// SSHKeyPath is the private key used for sftp targets whose URL has no
	// password. Empty tries ~/.ssh/id_ed25519 and then ~/.ssh/id_rsa.
	SSHKeyPath string
	// KnownHosts is the file sftp host keys are pinned in on first use.
	// Empty means known_hosts in the user config directory.
	KnownHosts string
	// Timeout bounds connecting. Zero means DefaultTimeout.
	Timeout time.Duration
	Log     logger.Logger
}

func (o *Options) withDefaults() *Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.Fs == nil {
		out.Fs = afero.NewOsFs()
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.Log == nil {
		out.Log = logger.NewNopLogger()
	}
	return &out
}

// Open returns the target named by dst: an sftp://, ftp:// or ftps:// URL,
// a file:// URL or a plain directory path.
func Open(ctx context.Context, dst string, opts *Options) (Target, error) {
	opts = opts.withDefaults()
	u, err := url.Parse(dst)
	// a one-letter scheme is a Windows drive
	if err != nil || len(u.Scheme) <= 1 {
		return OpenDir(opts.Fs, dst)
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		return OpenDir(opts.Fs, u.Path)
	case "sftp":
		return DialSFTP(ctx, u, opts)
	case "ftp", "ftps":
		return DialFTP(ctx, u, opts)
	}
	return nil, fmt.Errorf("%w %q", ErrUnsupportedScheme, u.Scheme)
}

// redact drops the password from u.
func redact(u *url.URL) string {
	c := *u
	if c.User != nil {
		c.User = url.User(c.User.Username())
	}
	return c.String()
}
