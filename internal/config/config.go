// Package config handles reading and writing .semgcal/config.yaml and
// resolving the device target from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/semg-lab/semgcal/internal/device"
	"github.com/semg-lab/semgcal/internal/export"
	"github.com/semg-lab/semgcal/internal/phase"
)

// Config is the top-level structure for .semgcal/config.yaml.
type Config struct {
	Version  int            `yaml:"version"`
	Device   DeviceConfig   `yaml:"device"`
	Protocol ProtocolConfig `yaml:"protocol"`
	Display  DisplayConfig  `yaml:"display"`
	Export   ExportConfig   `yaml:"export"`
	History  HistoryConfig  `yaml:"history"`
	Record   RecordConfig   `yaml:"record"`
}

// DeviceConfig selects the serial device. Leaving Port or BaudRate empty
// runs the session in display-only mode.
type DeviceConfig struct {
	Port          string `yaml:"port"`
	BaudRate      int    `yaml:"baud_rate"`
	SettleMS      int    `yaml:"settle_ms"`       // wait after open before data is trusted
	PollTimeoutMS int    `yaml:"poll_timeout_ms"` // 0 polls without waiting
}

// StimulusConfig controls one kind of stimulus screen.
type StimulusConfig struct {
	DurationMS    int    `yaml:"duration_ms"`
	ProgressUnits int    `yaml:"progress_units"`
	Text          string `yaml:"text"`
}

// ProtocolConfig controls the timing of a session.
type ProtocolConfig struct {
	CountdownSeconds   int            `yaml:"countdown_seconds"`
	Cycles             int            `yaml:"cycles"`
	ProgressIntervalMS int            `yaml:"progress_interval_ms"`
	Rest               StimulusConfig `yaml:"rest"`
	Flex               StimulusConfig `yaml:"flex"`
}

// DisplayConfig controls frame pacing.
type DisplayConfig struct {
	FPS int `yaml:"fps"`
}

// ExportConfig controls where samples are written.
type ExportConfig struct {
	Path string `yaml:"path"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// RecordConfig controls raw line recordings made by the record command.
type RecordConfig struct {
	Dir        string `yaml:"dir"`          // relative to the project directory
	MaxAgeDays int    `yaml:"max_age_days"` // recordings older than this are pruned
}

// Environment variables consulted by ApplyEnv.
const (
	EnvPort       = "SEMGCAL_PORT"
	EnvBaudRate   = "SEMGCAL_BAUD_RATE"
	EnvExportPath = "SEMGCAL_EXPORT_PATH"
)

const (
	configDir   = ".semgcal"
	configFile  = "config.yaml"
	envFile     = ".env"
	historyFile = "history.db"
)

// Dir returns the .semgcal/ directory inside project directory dir.
func Dir(dir string) string {
	return filepath.Join(dir, configDir)
}

// HistoryPath returns the run history database path inside dir.
func HistoryPath(dir string) string {
	return filepath.Join(dir, configDir, historyFile)
}

// ReadConfig reads .semgcal/config.yaml from the given project directory.
// dir is the project root (not .semgcal/ itself). Keys missing from the
// file keep their DefaultConfig values.
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, configDir, configFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Load reads the project config, falling back to DefaultConfig when the
// project has no config file yet.
func Load(dir string) (*Config, error) {
	cfg, err := ReadConfig(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

// WriteConfig writes cfg to .semgcal/config.yaml in the given project directory.
// Creates the .semgcal/ directory if it does not exist.
func WriteConfig(dir string, cfg *Config) error {
	dirPath := filepath.Join(dir, configDir)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	path := filepath.Join(dirPath, configFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Device: DeviceConfig{
			SettleMS: 2000,
		},
		Protocol: ProtocolConfig{
			CountdownSeconds:   3,
			Cycles:             2,
			ProgressIntervalMS: 1000,
			Rest: StimulusConfig{
				DurationMS:    4000,
				ProgressUnits: 3,
				Text:          "REST",
			},
			Flex: StimulusConfig{
				DurationMS:    6000,
				ProgressUnits: 5,
				Text:          "FLEX",
			},
		},
		Display: DisplayConfig{
			FPS: 60,
		},
		Export: ExportConfig{
			Path: export.DefaultPath,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Record: RecordConfig{
			Dir:        filepath.Join(configDir, "recordings"),
			MaxAgeDays: 30,
		},
	}
}

// ApplyEnv overrides device and export settings from the process
// environment and from a .env file in dir. Process variables win over the
// file; a missing .env file is not an error.
func (c *Config) ApplyEnv(dir string) error {
	fileEnv, err := godotenv.Read(filepath.Join(dir, envFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", envFile, err)
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	}

	if v, ok := lookup(EnvPort); ok {
		c.Device.Port = v
	}
	if v, ok := lookup(EnvBaudRate); ok && v != "" {
		baud, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBaudRate, err)
		}
		c.Device.BaudRate = baud
	}
	if v, ok := lookup(EnvExportPath); ok && v != "" {
		c.Export.Path = v
	}
	return nil
}

// Validate rejects settings the session cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Device.BaudRate < 0 {
		errs = append(errs, fmt.Errorf("device.baud_rate must not be negative"))
	}
	if c.Device.SettleMS < 0 || c.Device.PollTimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("device timings must not be negative"))
	}
	if c.Protocol.CountdownSeconds < 0 || c.Protocol.Cycles < 0 {
		errs = append(errs, fmt.Errorf("protocol.countdown_seconds and protocol.cycles must not be negative"))
	}
	if c.Protocol.ProgressIntervalMS <= 0 {
		errs = append(errs, fmt.Errorf("protocol.progress_interval_ms must be positive"))
	}
	for name, s := range map[string]StimulusConfig{"rest": c.Protocol.Rest, "flex": c.Protocol.Flex} {
		if s.DurationMS <= 0 {
			errs = append(errs, fmt.Errorf("protocol.%s.duration_ms must be positive", name))
		}
		if s.ProgressUnits < 0 {
			errs = append(errs, fmt.Errorf("protocol.%s.progress_units must not be negative", name))
		}
	}
	if c.Display.FPS <= 0 {
		errs = append(errs, fmt.Errorf("display.fps must be positive"))
	}
	if c.Export.Path == "" {
		errs = append(errs, fmt.Errorf("export.path must not be empty"))
	}
	if c.Record.MaxAgeDays < 0 {
		errs = append(errs, fmt.Errorf("record.max_age_days must not be negative"))
	}
	return errors.Join(errs...)
}

// Target returns the device target described by the config.
func (c *Config) Target() device.Target {
	return device.Target{Path: c.Device.Port, BaudRate: c.Device.BaudRate}
}

// RecordingsDir returns the recordings directory for project directory dir.
func (c *Config) RecordingsDir(dir string) string {
	if filepath.IsAbs(c.Record.Dir) {
		return c.Record.Dir
	}
	return filepath.Join(dir, c.Record.Dir)
}

// Settle returns the post-open settle delay.
func (c *Config) Settle() time.Duration {
	return time.Duration(c.Device.SettleMS) * time.Millisecond
}

// PollTimeout returns the serial read timeout.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Device.PollTimeoutMS) * time.Millisecond
}

// FrameInterval returns the time between display frames.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Display.FPS)
}

// PhaseProtocol converts the protocol settings for the session.
func (c *Config) PhaseProtocol() phase.Protocol {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return phase.Protocol{
		Countdown:        time.Duration(c.Protocol.CountdownSeconds) * time.Second,
		Cycles:           c.Protocol.Cycles,
		ProgressInterval: ms(c.Protocol.ProgressIntervalMS),
		Rest: phase.Stimulus{
			Duration:      ms(c.Protocol.Rest.DurationMS),
			ProgressUnits: c.Protocol.Rest.ProgressUnits,
			Text:          c.Protocol.Rest.Text,
		},
		Flex: phase.Stimulus{
			Duration:      ms(c.Protocol.Flex.DurationMS),
			ProgressUnits: c.Protocol.Flex.ProgressUnits,
			Text:          c.Protocol.Flex.Text,
		},
	}
}
