// Package journal records what the capture loop did in a SQLite database
// and exports it as CSV.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Kind classifies a journal entry.
type Kind string

const (
	KindStarted        Kind = "started"
	KindCaptured       Kind = "captured"
	KindFailed         Kind = "failed"
	KindSkippedBattery Kind = "skipped_battery"
	KindSkippedDark    Kind = "skipped_dark"
	KindSkippedPolicy  Kind = "skipped_policy"
	KindPeriodChanged  Kind = "period_changed"
)

// Entry is one journal row. Light and BatteryV are nil when the sensor
// could not be read or was not consulted.
type Entry struct {
	ID       string    `json:"id"`
	At       time.Time `json:"at"`
	Kind     Kind      `json:"kind"`
	Period   string    `json:"period"`
	Light    *int      `json:"light,omitempty"`
	BatteryV *float64  `json:"battery_v,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}

var ErrClosed = errors.New("journal: not open")

// Journal is a SQLite-backed capture journal. It is safe for concurrent use.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal database at path. ":memory:" gives a
// private in-memory journal.
func Open(path string) (*Journal, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("journal: create dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	// Each pooled connection to :memory: would be a separate database.
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Append stores e, assigning an ID when it has none, and returns the
// stored entry.
func (j *Journal) Append(ctx context.Context, e Entry) (Entry, error) {
	if j == nil || j.db == nil {
		return Entry{}, ErrClosed
	}
	if e.Kind == "" {
		return Entry{}, errors.New("journal: append: kind is empty")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	e.At = e.At.UTC().Truncate(time.Second)

	var light, battery any
	if e.Light != nil {
		light = *e.Light
	}
	if e.BatteryV != nil {
		battery = *e.BatteryV
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO captures (id, at, kind, period, light, battery_v, detail) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.At.Unix(), string(e.Kind), e.Period, light, battery, e.Detail)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: append: %w", err)
	}
	return e, nil
}

// Recent returns up to n entries, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, ErrClosed
	}
	if n <= 0 {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, at, kind, period, light, battery_v, detail FROM captures ORDER BY at DESC, seq DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Each calls fn for every entry, oldest first, and stops at the first error.
func (j *Journal) Each(ctx context.Context, fn func(Entry) error) error {
	if j == nil || j.db == nil {
		return ErrClosed
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, at, kind, period, light, battery_v, detail FROM captures ORDER BY at ASC, seq ASC`)
	if err != nil {
		return fmt.Errorf("journal: scan: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close closes the database. It is safe to call more than once.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e       Entry
		at      int64
		kind    string
		light   sql.NullInt64
		battery sql.NullFloat64
	)
	if err := s.Scan(&e.ID, &at, &kind, &e.Period, &light, &battery, &e.Detail); err != nil {
		return Entry{}, fmt.Errorf("journal: scan: %w", err)
	}
	e.At = time.Unix(at, 0).UTC()
	e.Kind = Kind(kind)
	if light.Valid {
		v := int(light.Int64)
		e.Light = &v
	}
	if battery.Valid {
		v := battery.Float64
		e.BatteryV = &v
	}
	return e, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: scan: %w", err)
	}
	return out, nil
}
