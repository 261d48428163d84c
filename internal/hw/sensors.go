package hw

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// ADCMax is the largest reading of the 10-bit converters the sensors sit on.
const ADCMax = 1023

var (
	ErrNoSensor = errors.New("hw: sensor not configured")
	ErrADCRange = errors.New("hw: reading outside ADC range")
)

// FileSensors reads raw ADC values from files holding a single integer,
// the layout of Linux IIO in_voltageN_raw attributes.
type FileSensors struct {
	fs          afero.Fs
	lightPath   string
	batteryPath string
}

// NewFileSensors returns sensors reading from fsys. An empty path leaves
// that sensor unconfigured.
func NewFileSensors(fsys afero.Fs, lightPath, batteryPath string) *FileSensors {
	return &FileSensors{fs: fsys, lightPath: lightPath, batteryPath: batteryPath}
}

// Light returns the ambient light reading. Higher is darker.
func (s *FileSensors) Light() (int, error) {
	return s.read(s.lightPath)
}

// Battery returns the raw reading of the battery voltage divider.
func (s *FileSensors) Battery() (int, error) {
	return s.read(s.batteryPath)
}

func (s *FileSensors) read(path string) (int, error) {
	if path == "" {
		return 0, ErrNoSensor
	}
	b, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return 0, fmt.Errorf("hw: read %s: %w", path, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("hw: parse %s: %w", path, err)
	}
	if v < 0 || v > ADCMax {
		return 0, fmt.Errorf("%w: %s: %d", ErrADCRange, path, v)
	}
	return v, nil
}

// Divider converts a raw battery reading taken across a resistor divider
// into volts at the battery.
type Divider struct {
	ARef   float64
	Source float64
	Ground float64
	// Adjust scales the divider ratio to match observed voltages.
	Adjust float64
}

func (d Divider) Volts(raw int) float64 {
	return d.ARef * float64(raw) * (d.Source + d.Ground) / (ADCMax * d.Ground) * d.Adjust
}

// MaxVolts is the highest battery voltage the divider can measure.
func (d Divider) MaxVolts() float64 {
	return d.Volts(ADCMax)
}
