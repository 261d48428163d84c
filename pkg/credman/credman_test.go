package credman

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/zalando/go-keyring"
)

const tokenPath = "/home/op/.config/shutterloop/token"

func TestKeyring(t *testing.T) {
	keyring.MockInit()
	k := NewKeyring()
	if _, err := k.Get(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("empty Get: %v", err)
	}
	if err := k.Set("abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, err := k.Get(); err != nil || got != "abc" {
		t.Errorf("Get = %q, %v", got, err)
	}
	if err := k.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := k.Delete(); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestKeyring_Injected(t *testing.T) {
	origSet := keyringSet
	defer func() { keyringSet = origSet }()
	var service, user, value string
	keyringSet = func(s, u, v string) error {
		service, user, value = s, u, v
		return nil
	}
	if err := NewKeyring().Set("tok"); err != nil {
		t.Fatal(err)
	}
	if service != "shutterloop" || user != "rpc" || value != "tok" {
		t.Errorf("set %q %q %q", service, user, value)
	}
}

func TestFileStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := NewFileStore(fs, tokenPath)
	if _, err := f.Get(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("empty Get: %v", err)
	}
	if err := f.Set("s3cret"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	info, err := fs.Stat(tokenPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != tokenFileMode {
		t.Errorf("mode = %v", info.Mode().Perm())
	}
	if got, err := f.Get(); err != nil || got != "s3cret" {
		t.Errorf("Get = %q, %v", got, err)
	}
	if err := f.Set("rotated"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, _ := f.Get(); got != "rotated" {
		t.Errorf("after overwrite Get = %q", got)
	}
	if err := f.Delete(); err != nil {
		t.Fatal(err)
	}
	if err := f.Delete(); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestFileStore_Blank(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, tokenPath, []byte(" \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(fs, tokenPath).Get(); !errors.Is(err, ErrNoToken) {
		t.Errorf("blank file: %v", err)
	}
}

func TestManager_PrefersKeyring(t *testing.T) {
	keyring.MockInit()
	fs := afero.NewMemMapFs()
	file := NewFileStore(fs, tokenPath)
	if err := file.Set("old"); err != nil {
		t.Fatal(err)
	}
	m := NewManager(NewKeyring(), file)
	where, err := m.Set(" new\n")
	if err != nil || where != "keyring" {
		t.Fatalf("Set = %q, %v", where, err)
	}
	if got, err := m.Get(); err != nil || got != "new" {
		t.Errorf("Get = %q, %v", got, err)
	}
	if ok, _ := afero.Exists(fs, tokenPath); ok {
		t.Error("fallback copy should be removed")
	}
	if err := m.Delete(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(); !errors.Is(err, ErrNoToken) {
		t.Errorf("after Delete: %v", err)
	}
}

func TestManager_FallsBack(t *testing.T) {
	keyring.MockInitWithError(errors.New("no dbus session"))
	defer keyring.MockInit()
	fs := afero.NewMemMapFs()
	m := NewManager(NewKeyring(), NewFileStore(fs, tokenPath))
	where, err := m.Set("tok")
	if err != nil || where != "file" {
		t.Fatalf("Set = %q, %v", where, err)
	}
	if got, err := m.Get(); err != nil || got != "tok" {
		t.Errorf("Get = %q, %v", got, err)
	}
	if _, err := m.Set(""); err == nil {
		t.Error("expected error for empty token")
	}
	if err := m.Delete(); err != nil {
		t.Errorf("Delete with no keyring: %v", err)
	}
	if _, err := m.Get(); err == nil {
		t.Error("token survived Delete")
	}
}
