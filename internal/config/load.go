package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shutterloop/shutterloop/internal/schedule"
)

// ErrNotFound is returned when a required config file does not exist.
var ErrNotFound = errors.New("config file not found")

// Error reports a configuration problem. Field is empty for problems that
// are not tied to a single setting.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return "config: " + e.Err.Error()
	}
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// Path is the TOML file. Empty skips the file.
	Path string
	// Optional makes a missing Path equivalent to an empty one.
	Optional bool
	// EnvFile is a dotenv file loaded into the process environment before
	// overrides are applied. Variables already set are not replaced.
	EnvFile string
}

// Load builds the configuration from Default and the sources in opts.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()
	if opts.Path != "" {
		if err := decodeFile(opts.Path, cfg); err != nil {
			if !(opts.Optional && errors.Is(err, ErrNotFound)) {
				return nil, err
			}
		}
	}
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return nil, &Error{Err: fmt.Errorf("env file %s: %w", opts.EnvFile, err)}
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, &Error{Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Error{Err: fmt.Errorf("%w: %s", ErrNotFound, path)}
		}
		return &Error{Err: err}
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return &Error{Err: fmt.Errorf("%s: %w", path, err)}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return &Error{Err: fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))}
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every setting against its constraints and reports the
// first violation.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		if c.Store.Base+schedule.RecordSize > c.Store.Size {
			return &Error{
				Field: "Store.Base",
				Err:   fmt.Errorf("record at %d does not fit a %d byte store", c.Store.Base, c.Store.Size),
			}
		}
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &Error{
			Field: strings.TrimPrefix(fe.Namespace(), "Config."),
			Err:   fmt.Errorf("failed %q check (value %v)", fe.Tag(), fe.Value()),
		}
	}
	return &Error{Err: err}
}
