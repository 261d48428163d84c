package schedule

import (
	"time"

	"github.com/shutterloop/shutterloop/pkg/eeprom"
)

// DefaultMagic marks a store written with the current record layout. Bumping
// it invalidates every record written under the old value.
const DefaultMagic byte = 0x5A

// Offsets of the record fields relative to Layout.Base.
const (
	offMagic     = 0
	offPeriod    = 1
	offLastPhoto = 2

	// RecordSize is the number of bytes the record occupies.
	RecordSize = 6
)

// Layout places the record in a store.
type Layout struct {
	// Base is the address of the magic byte.
	Base int
	// Magic is the expected schema sentinel.
	Magic byte
}

// DefaultLayout returns the layout at address zero with DefaultMagic.
func DefaultLayout() Layout {
	return Layout{Base: 0, Magic: DefaultMagic}
}

// Record is the persisted schedule state.
type Record struct {
	Period Period
	// LastPhoto is the epoch-seconds time of the last successful capture,
	// zero when none was recorded.
	LastPhoto uint32
}

// DefaultRecord is what a blank or incompatible store is initialized to.
func DefaultRecord() Record {
	return Record{Period: DefaultPeriod}
}

// LastPhotoTime returns LastPhoto as a UTC time.
func (r Record) LastPhotoTime() time.Time {
	return time.Unix(int64(r.LastPhoto), 0).UTC()
}

// Load reads the record at l. It reports false when the magic byte does not
// match, in which case nothing in the store should be trusted. A period byte
// outside the defined set is read as DefaultPeriod.
func Load(s eeprom.Store, l Layout) (Record, bool) {
	if s.ByteAt(l.Base+offMagic) != l.Magic {
		return Record{}, false
	}
	return Record{
		Period:    Period(s.ByteAt(l.Base + offPeriod)).normalize(),
		LastPhoto: eeprom.ReadWord32(s, l.Base+offLastPhoto),
	}, true
}

// Initialize returns the record at l, writing defaults first if the store is
// not initialized. It is idempotent.
func Initialize(s eeprom.Store, l Layout) Record {
	if r, ok := Load(s, l); ok {
		return r
	}
	return Reset(s, l)
}

// Reset unconditionally writes the default record. The magic byte is written
// last so that an interrupted reset is still seen as uninitialized.
func Reset(s eeprom.Store, l Layout) Record {
	r := DefaultRecord()
	s.SetByte(l.Base+offPeriod, byte(r.Period))
	eeprom.WriteWord32(s, l.Base+offLastPhoto, r.LastPhoto)
	s.SetByte(l.Base+offMagic, l.Magic)
	return r
}

func storePeriod(s eeprom.Store, l Layout, p Period) {
	s.SetByte(l.Base+offPeriod, byte(p))
}

func storeLastPhoto(s eeprom.Store, l Layout, t time.Time) {
	eeprom.WriteWord32(s, l.Base+offLastPhoto, epochSeconds(t))
}

// epochSeconds clamps t into the unsigned 32-bit range of the record.
func epochSeconds(t time.Time) uint32 {
	sec := t.Unix()
	switch {
	case sec < 0:
		return 0
	case sec > 1<<32-1:
		return 1<<32 - 1
	}
	return uint32(sec)
}
