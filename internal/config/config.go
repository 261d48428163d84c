// Package config holds the shutterloop daemon configuration.
//
// Values are resolved in this order, later sources overriding earlier ones:
//
//	Default() -> TOML file -> env file (godotenv) -> SHUTTERLOOP_* environment
//
// The result is validated before it is returned.
package config

import (
	"time"

	"github.com/shutterloop/shutterloop/internal/button"
	"github.com/shutterloop/shutterloop/internal/schedule"
)

// EnvPrefix is the prefix of every environment override,
// e.g. SHUTTERLOOP_SCHEDULE_DAILY_HOUR.
const EnvPrefix = "SHUTTERLOOP"

// Config is the full daemon configuration.
type Config struct {
	Schedule ScheduleConfig `toml:"schedule"`
	Buttons  ButtonConfig   `toml:"buttons"`
	Sensors  SensorConfig   `toml:"sensors"`
	Camera   CameraConfig   `toml:"camera"`
	Store    StoreConfig    `toml:"store"`
	Journal  JournalConfig  `toml:"journal"`
	RPC      RPCConfig      `toml:"rpc"`
	Policy   PolicyConfig   `toml:"policy"`
	Log      LogConfig      `toml:"log"`
}

// ScheduleConfig configures the capture schedule and the main loop.
type ScheduleConfig struct {
	DailyHourUTC   int           `toml:"daily_hour_utc" envconfig:"DAILY_HOUR" validate:"min=0,max=23"`
	TrackLastPhoto bool          `toml:"track_last_photo" envconfig:"TRACK_LAST_PHOTO"`
	Interval       time.Duration `toml:"interval" envconfig:"INTERVAL" validate:"gt=0"`
}

// ButtonConfig configures the button service.
type ButtonConfig struct {
	Debounce time.Duration `toml:"debounce" envconfig:"DEBOUNCE" validate:"gt=0"`
}

// SensorConfig locates the ADC inputs and holds the thresholds applied to
// them. An empty path disables that sensor.
type SensorConfig struct {
	LightFile     string  `toml:"light_file" envconfig:"LIGHT_FILE"`
	BatteryFile   string  `toml:"battery_file" envconfig:"BATTERY_FILE"`
	DarkThreshold int     `toml:"dark_threshold" envconfig:"DARK_THRESHOLD" validate:"min=0,max=1023"`
	LowVolts      float64 `toml:"low_volts" envconfig:"LOW_VOLTS" validate:"gte=0"`
	ARef          float64 `toml:"aref" envconfig:"AREF" validate:"gt=0"`
	DividerSource float64 `toml:"divider_source" envconfig:"DIVIDER_SOURCE" validate:"gt=0"`
	DividerGround float64 `toml:"divider_ground" envconfig:"DIVIDER_GROUND" validate:"gt=0"`
	Adjust        float64 `toml:"adjust" envconfig:"ADJUST" validate:"gt=0"`
}

// CameraConfig configures the capture command.
type CameraConfig struct {
	Command  []string      `toml:"command" envconfig:"COMMAND"`
	Failsafe time.Duration `toml:"failsafe" envconfig:"FAILSAFE" validate:"gt=0"`
	Expose   time.Duration `toml:"expose" envconfig:"EXPOSE" validate:"gte=0"`
}

// StoreConfig locates the persistent schedule record.
type StoreConfig struct {
	Image string `toml:"image" envconfig:"IMAGE" validate:"required"`
	Size  int    `toml:"size" envconfig:"SIZE" validate:"min=16"`
	Base  int    `toml:"base" envconfig:"BASE" validate:"min=0"`
	// Magic must differ from an erased cell so a blank store is never
	// mistaken for an initialized one.
	Magic uint8  `toml:"magic" envconfig:"MAGIC" validate:"ne=255"`
}

// JournalConfig locates the capture journal. An empty file disables it.
type JournalConfig struct {
	File string `toml:"file" envconfig:"FILE"`
}

// RPCConfig configures the control API. An empty secret disables it.
type RPCConfig struct {
	Listen string `toml:"listen" envconfig:"LISTEN" validate:"required,hostname_port"`
	Secret string `toml:"secret" envconfig:"SECRET"`
}

// PolicyConfig locates the optional capture policy script.
type PolicyConfig struct {
	Script  string        `toml:"script" envconfig:"SCRIPT"`
	Timeout time.Duration `toml:"timeout" envconfig:"TIMEOUT" validate:"gte=0"`
}

// LogConfig configures the log sinks in addition to stderr.
type LogConfig struct {
	File string `toml:"file" envconfig:"FILE"`
}

// Default returns the configuration the device ships with.
func Default() *Config {
	return &Config{
		Schedule: ScheduleConfig{
			DailyHourUTC:   schedule.DefaultDailyHourUTC,
			TrackLastPhoto: true,
			Interval:       10 * time.Second,
		},
		Buttons: ButtonConfig{
			Debounce: button.DefaultDebounce,
		},
		Sensors: SensorConfig{
			DarkThreshold: 950,
			LowVolts:      11.8,
			ARef:          4.984,
			DividerSource: 838,
			DividerGround: 332,
			Adjust:        1.026,
		},
		Camera: CameraConfig{
			Command:  []string{"gphoto2", "--capture-image"},
			Failsafe: 60 * time.Second,
			Expose:   100 * time.Millisecond,
		},
		Store: StoreConfig{
			Image: "/var/lib/shutterloop/eeprom.img",
			Size:  1024,
			Magic: schedule.DefaultMagic,
		},
		Journal: JournalConfig{
			File: "/var/lib/shutterloop/journal.db",
		},
		RPC: RPCConfig{
			Listen: "127.0.0.1:8637",
		},
		Policy: PolicyConfig{
			Timeout: time.Second,
		},
	}
}

// ScheduleOptions maps the configuration onto schedule.Options.
func (c *Config) ScheduleOptions() schedule.Options {
	return schedule.Options{
		Layout: schedule.Layout{
			Base:  c.Store.Base,
			Magic: c.Store.Magic,
		},
		DailyHourUTC:   c.Schedule.DailyHourUTC,
		TrackLastPhoto: c.Schedule.TrackLastPhoto,
	}
}

// ButtonOptions maps the configuration onto button.Options.
func (c *Config) ButtonOptions() *button.Options {
	return &button.Options{Debounce: c.Buttons.Debounce}
}
