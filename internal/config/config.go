package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	appDirName = "leslieleds-controller"
	envPrefix  = "LESLIELEDS"

	// DefaultVirtualPortName is the inbound port other software connects to
	DefaultVirtualPortName = "LeslieLEDs Controller"
	// DefaultPrimaryMarker is the USB MIDI name of the LED engine
	DefaultPrimaryMarker = "LeslieLEDs"
	// DefaultSecondaryMarker is the USB MIDI name of the DMX bridge
	DefaultSecondaryMarker = "Midi2DMXnow"

	maxReadTimeout = 10 * time.Millisecond
)

// Config holds application configuration
type Config struct {
	FirstLaunchCompleted bool          `json:"first_launch_completed" mapstructure:"first_launch_completed"`
	MIDIChannel          int           `json:"midi_channel" mapstructure:"midi_channel"`           // 0-15, stamped on all outbound traffic
	VirtualPortName      string        `json:"virtual_port_name" mapstructure:"virtual_port_name"` // must stay stable for DAW routings
	PrimaryMarker        string        `json:"primary_marker" mapstructure:"primary_marker"`
	SecondaryMarker      string        `json:"secondary_marker" mapstructure:"secondary_marker"`
	BaudRate             int           `json:"baud_rate" mapstructure:"baud_rate"`
	ReadTimeout          time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	PollInterval         time.Duration `json:"poll_interval" mapstructure:"poll_interval"`
	ShutdownTimeout      time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	LogLevel             string        `json:"log_level" mapstructure:"log_level"`

	path string
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		MIDIChannel:     0,
		VirtualPortName: DefaultVirtualPortName,
		PrimaryMarker:   DefaultPrimaryMarker,
		SecondaryMarker: DefaultSecondaryMarker,
		BaudRate:        115200,
		ReadTimeout:     10 * time.Millisecond,
		PollInterval:    time.Millisecond,
		ShutdownTimeout: time.Second,
		LogLevel:        "info",
	}
}

// configDir returns the platform-appropriate config directory
func configDir() (string, error) {
	configHome, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configHome, appDirName), nil
}

// ConfigPath returns the full path to the config file. LESLIELEDS_CONFIG
// overrides the default location.
func ConfigPath() (string, error) {
	if p := os.Getenv(envPrefix + "_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, returning defaults if not found.
// Every key can be overridden with a LESLIELEDS_<KEY> environment variable.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path with defaults and env overrides applied
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigType("json")
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("first_launch_completed", d.FirstLaunchCompleted)
	v.SetDefault("midi_channel", d.MIDIChannel)
	v.SetDefault("virtual_port_name", d.VirtualPortName)
	v.SetDefault("primary_marker", d.PrimaryMarker)
	v.SetDefault("secondary_marker", d.SecondaryMarker)
	v.SetDefault("baud_rate", d.BaudRate)
	v.SetDefault("read_timeout", d.ReadTimeout)
	v.SetDefault("poll_interval", d.PollInterval)
	v.SetDefault("shutdown_timeout", d.ShutdownTimeout)
	v.SetDefault("log_level", d.LogLevel)
}

// Validate rejects values the transports cannot honour
func (c *Config) Validate() error {
	switch {
	case c.MIDIChannel < 0 || c.MIDIChannel > 15:
		return fmt.Errorf("invalid config: midi_channel %d out of range 0-15", c.MIDIChannel)
	case strings.TrimSpace(c.VirtualPortName) == "":
		return errors.New("invalid config: virtual_port_name is empty")
	case c.BaudRate <= 0:
		return fmt.Errorf("invalid config: baud_rate %d", c.BaudRate)
	case c.ReadTimeout <= 0 || c.ReadTimeout > maxReadTimeout:
		return fmt.Errorf("invalid config: read_timeout %s must be in (0, %s]", c.ReadTimeout, maxReadTimeout)
	case c.PollInterval <= 0:
		return fmt.Errorf("invalid config: poll_interval %s", c.PollInterval)
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("invalid config: shutdown_timeout %s", c.ShutdownTimeout)
	}
	return nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
