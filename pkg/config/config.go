package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvPort     = "SENSORD_PORT"
	EnvListen   = "SENSORD_LISTEN"
	EnvLogLevel = "SENSORD_LOG_LEVEL"
)

// Config represents the application configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	Poll     PollConfig     `yaml:"poll"`
	Capacity CapacityConfig `yaml:"capacity"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Mock     MockConfig     `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`
}

// PollConfig controls how often the serial link is checked for a full frame.
type PollConfig struct {
	Interval   time.Duration `yaml:"interval"`
	BufferSize int           `yaml:"buffer_size"` // Frames queued between reader and store
}

// CapacityConfig fixes the size of each history buffer. Read once at start-up.
type CapacityConfig struct {
	Readings     int `yaml:"readings"`
	SensorErrors int `yaml:"sensor_errors"`
	ParseErrors  int `yaml:"parse_errors"`
	Frames       int `yaml:"frames"`
}

// HTTPConfig contains the export server configuration.
type HTTPConfig struct {
	Listen string `yaml:"listen"` // Empty disables the export server
}

// LogConfig selects log verbosity and handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// MockConfig contains simulated sensor configuration.
type MockConfig struct {
	Interval    time.Duration `yaml:"interval"`     // Time between frames
	HoldFrames  int           `yaml:"hold_frames"`  // Frames repeating the same value before it changes
	Base        uint16        `yaml:"base"`         // Starting raw value
	Step        uint16        `yaml:"step"`         // Maximum raw change per new value
	Decimals    uint8         `yaml:"decimals"`     // Fixed-point decimals of emitted readings
	CorruptRate float64       `yaml:"corrupt_rate"` // Probability of a checksum error per frame
	FaultRate   float64       `yaml:"fault_rate"`   // Probability of a sensor fault per frame
	Seed        uint64        `yaml:"seed"`         // 0 picks a random seed
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 1200,
			DataBits: 8,
			StopBits: 1,
			Parity:   "N",
		},
		Poll: PollConfig{
			Interval:   100 * time.Millisecond,
			BufferSize: 16,
		},
		Capacity: CapacityConfig{
			Readings:     32,
			SensorErrors: 32,
			ParseErrors:  32,
			Frames:       32,
		},
		HTTP: HTTPConfig{
			Listen: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Mock: MockConfig{
			Interval:    500 * time.Millisecond,
			HoldFrames:  4,
			Base:        250,
			Step:        20,
			Decimals:    1,
			CorruptRate: 0.05,
			FaultRate:   0.02,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides settings from environment variables. lookup is normally
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPort); ok && strings.TrimSpace(v) != "" {
		c.Serial.Port = strings.TrimSpace(v)
	}
	// An empty listen address is meaningful: it disables the server.
	if v, ok := lookup(EnvListen); ok {
		c.HTTP.Listen = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		c.Log.Level = strings.TrimSpace(v)
	}
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.DataBits == 0 {
		c.Serial.DataBits = def.Serial.DataBits
	}
	if c.Serial.StopBits == 0 {
		c.Serial.StopBits = def.Serial.StopBits
	}
	if c.Serial.Parity == "" {
		c.Serial.Parity = def.Serial.Parity
	}

	if c.Poll.Interval <= 0 {
		c.Poll.Interval = def.Poll.Interval
	}
	if c.Poll.BufferSize <= 0 {
		c.Poll.BufferSize = def.Poll.BufferSize
	}

	if c.Capacity.Readings <= 0 {
		c.Capacity.Readings = def.Capacity.Readings
	}
	if c.Capacity.SensorErrors <= 0 {
		c.Capacity.SensorErrors = def.Capacity.SensorErrors
	}
	if c.Capacity.ParseErrors <= 0 {
		c.Capacity.ParseErrors = def.Capacity.ParseErrors
	}
	if c.Capacity.Frames <= 0 {
		c.Capacity.Frames = def.Capacity.Frames
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}

	if c.Mock.Interval <= 0 {
		c.Mock.Interval = def.Mock.Interval
	}
	if c.Mock.HoldFrames <= 0 {
		c.Mock.HoldFrames = def.Mock.HoldFrames
	}
	if c.Mock.Step == 0 {
		c.Mock.Step = def.Mock.Step
	}
}
