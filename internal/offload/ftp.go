package offload

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"path"
	"strings"

	"github.com/jlaffaye/ftp"
)

// FTPTarget writes into a directory over FTP.
type FTPTarget struct {
	conn    *ftp.ServerConn
	dir     string
	display string
}

// DialFTP connects to ftp://[user[:password]@]host[:port]/dir, anonymously
// when the URL has no user. ftps:// upgrades the control connection with
// AUTH TLS.
func DialFTP(ctx context.Context, u *url.URL, opts *Options) (*FTPTarget, error) {
	opts = opts.withDefaults()
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "21")
	}
	dialOpts := []ftp.DialOption{
		ftp.DialWithTimeout(opts.Timeout),
		ftp.DialWithContext(ctx),
	}
	if strings.EqualFold(u.Scheme, "ftps") {
		dialOpts = append(dialOpts, ftp.DialWithExplicitTLS(&tls.Config{
			ServerName: u.Hostname(),
			MinVersion: tls.VersionTLS12,
		}))
	}
	conn, err := ftp.Dial(host, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("offload: %w", err)
	}
	user, password := "anonymous", "anonymous"
	if u.User != nil {
		user = u.User.Username()
		password, _ = u.User.Password()
	}
	if err := conn.Login(user, password); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("offload: login: %w", err)
	}
	dir := u.Path
	if dir == "" {
		dir = "/"
	}
	makeDirs(conn, dir)
	return &FTPTarget{conn: conn, dir: dir, display: redact(u)}, nil
}

// makeDirs creates every element of dir. Existing directories make MKD fail,
// so errors are ignored and surface on the first upload instead.
func makeDirs(conn *ftp.ServerConn, dir string) {
	p := ""
	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		if part == "" {
			continue
		}
		p += "/" + part
		_ = conn.MakeDir(p)
	}
}

func (f *FTPTarget) Exists(name string) (bool, error) {
	_, err := f.conn.FileSize(path.Join(f.dir, name))
	if err == nil {
		return true, nil
	}
	var te *textproto.Error
	if errors.As(err, &te) && te.Code == ftp.StatusFileUnavailable {
		return false, nil
	}
	return false, err
}

// Put checks for name first since STOR replaces existing files.
func (f *FTPTarget) Put(name string, r io.Reader) error {
	ok, err := f.Exists(name)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("offload: %s already exists", name)
	}
	return f.conn.Stor(path.Join(f.dir, name), r)
}

func (f *FTPTarget) Close() error {
	return f.conn.Quit()
}

func (f *FTPTarget) String() string { return f.display }
