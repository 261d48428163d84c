package eeprom

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
)

func openMem(t *testing.T, fsys afero.Fs, size int) *FileStore {
	t.Helper()
	s, err := OpenFile(fsys, "/var/lib/shutterloop/eeprom.img", &FileOptions{Size: size, NoSync: true})
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	return s
}

func TestFileStore_CreatesBlankImage(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s := openMem(t, fsys, 32)
	defer s.Close()

	data, err := afero.ReadFile(fsys, "/var/lib/shutterloop/eeprom.img")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) != 32 {
		t.Fatalf("image size = %d, want 32", len(data))
	}
	for i, b := range data {
		if b != Blank {
			t.Fatalf("image[%d] = %#x, want blank", i, b)
		}
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s := openMem(t, fsys, 16)
	s.SetByte(0, 0x5A)
	WriteWord32(s, 2, 0xDEADBEEF)
	if err := s.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s = openMem(t, fsys, 16)
	defer s.Close()
	if s.ByteAt(0) != 0x5A {
		t.Errorf("ByteAt(0) = %#x, want 0x5a", s.ByteAt(0))
	}
	if got := ReadWord32(s, 2); got != 0xDEADBEEF {
		t.Errorf("ReadWord32(2) = %#x, want 0xdeadbeef", got)
	}
}

func TestFileStore_PadsShortImage(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/var/lib/shutterloop/eeprom.img", []byte{1, 2}, 0o644); err != nil {
		t.Fatal(err)
	}
	s := openMem(t, fsys, 8)
	defer s.Close()
	if s.ByteAt(0) != 1 || s.ByteAt(1) != 2 {
		t.Fatalf("existing cells lost: %#x %#x", s.ByteAt(0), s.ByteAt(1))
	}
	for i := 2; i < 8; i++ {
		if s.ByteAt(i) != Blank {
			t.Errorf("padded cell %d = %#x, want blank", i, s.ByteAt(i))
		}
	}
	data, _ := afero.ReadFile(fsys, "/var/lib/shutterloop/eeprom.img")
	if len(data) != 8 {
		t.Fatalf("image size after pad = %d, want 8", len(data))
	}
}

func TestFileStore_StickyErrors(t *testing.T) {
	tests := []struct {
		name string
		act  func(s *FileStore)
		want error
	}{
		{
			name: "out of range",
			act:  func(s *FileStore) { s.SetByte(100, 1) },
			want: ErrOutOfRange,
		},
		{
			name: "write after close",
			act: func(s *FileStore) {
				_ = s.Close()
				s.SetByte(0, 1)
			},
			want: ErrClosed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openMem(t, afero.NewMemMapFs(), 8)
			defer s.Close()
			tt.act(s)
			if !errors.Is(s.Err(), tt.want) {
				t.Fatalf("Err() = %v, want %v", s.Err(), tt.want)
			}
			// later successful operations keep the first error
			s.SetByte(-5, 0)
			if !errors.Is(s.Err(), tt.want) {
				t.Fatalf("sticky error replaced: %v", s.Err())
			}
		})
	}
}

func TestFileStore_CloseTwice(t *testing.T) {
	s := openMem(t, afero.NewMemMapFs(), 8)
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
