package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"go-smf/repeater"
	"go-smf/smf"
	"go-smf/tempo"
)

// RepeatConfig stores repeater settings with spans written as strings
// ("480", "1/4", "2.0.0", "1500ms").
type RepeatConfig struct {
	ShiftPolicy  repeater.ShiftPolicy `json:"shiftPolicy"`
	Shift        string               `json:"shift,omitempty"`
	ShiftStep    string               `json:"shiftStep,omitempty"`
	SaveTempoMap bool                 `json:"saveTempoMap"`
}

// Settings parses the spans and returns repeater settings.
func (r RepeatConfig) Settings() (repeater.Settings, error) {
	s := repeater.Settings{
		ShiftPolicy:  r.ShiftPolicy,
		SaveTempoMap: r.SaveTempoMap,
	}
	var err error
	if r.Shift != "" {
		if s.Shift, err = tempo.ParseSpan(r.Shift); err != nil {
			return s, errors.Wrap(err, "shift")
		}
	}
	if r.ShiftStep != "" {
		if s.ShiftStep, err = tempo.ParseSpan(r.ShiftStep); err != nil {
			return s, errors.Wrap(err, "shift step")
		}
	}
	return s, nil
}

// UIConfig stores display preferences
type UIConfig struct {
	Palette    string         `json:"palette,omitempty"` // GIMP .gpl file, built-in palette if empty
	TimeFormat tempo.SpanKind `json:"timeFormat"`        // how event times are shown
}

// Config is the main configuration structure
type Config struct {
	Reading smf.ReadSettings  `json:"reading"`
	Writing smf.WriteSettings `json:"writing"`
	Repeat  RepeatConfig      `json:"repeat"`
	UI      UIConfig          `json:"ui"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	rs := repeater.DefaultSettings()
	return &Config{
		Reading: smf.DefaultReadSettings(),
		Writing: smf.DefaultWriteSettings(),
		Repeat: RepeatConfig{
			ShiftPolicy:  rs.ShiftPolicy,
			SaveTempoMap: rs.SaveTempoMap,
		},
		UI: UIConfig{
			TimeFormat: tempo.KindBarBeatTicks,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-smf"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. Missing fields keep their defaults and
// a missing file yields DefaultConfig.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if err := cfg.Reading.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	if _, err := cfg.Repeat.Settings(); err != nil {
		return nil, errors.Wrapf(err, "%s: repeat", path)
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating its directory.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
