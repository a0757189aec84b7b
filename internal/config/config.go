package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Backend    BackendConfig    `yaml:"backend"`
	Reconnect  ReconnectConfig  `yaml:"reconnect"`
	Connection ConnectionConfig `yaml:"connection"`
	Browser    BrowserConfig    `yaml:"browser"`
	Log        LogConfig        `yaml:"log"`
	MockServer MockServerConfig `yaml:"mock_server"`
}

// BackendConfig locates the browser-automation service.
type BackendConfig struct {
	WSBase         string        `yaml:"ws_base"`
	APIBase        string        `yaml:"api_base"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type ReconnectConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
}

type ConnectionConfig struct {
	PingInterval time.Duration `yaml:"ping_interval"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type BrowserConfig struct {
	StartURL string `yaml:"start_url"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	File        string `yaml:"file"`
}

// MockServerConfig configures the development backend.
type MockServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	ViewportWidth   int    `yaml:"viewport_width"`
	ViewportHeight  int    `yaml:"viewport_height"`
	JPEGQuality     int    `yaml:"jpeg_quality"`
	FramesPerSecond int    `yaml:"frames_per_second"`

	// SessionGrace keeps a page alive after its socket drops so a
	// reconnect can resume it. Zero removes it immediately.
	SessionGrace time.Duration `yaml:"session_grace"`
}

// envOverrides are read after the file. Empty values leave the file or
// default value in place.
type envOverrides struct {
	WSBase   string `envconfig:"WS_URL"`
	APIBase  string `envconfig:"API_BASE_URL"`
	LogLevel string `envconfig:"LOG_LEVEL"`
	LogFile  string `envconfig:"LOG_FILE"`
}

func defaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			WSBase:         "ws://localhost:8000",
			APIBase:        "http://localhost:8000",
			RequestTimeout: 10 * time.Second,
		},
		Reconnect: ReconnectConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
		},
		Connection: ConnectionConfig{
			PingInterval: 30 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Browser: BrowserConfig{
			StartURL: "https://google.com",
		},
		Log: LogConfig{
			Level: "info",
			File:  "remote-browser.log",
		},
		MockServer: MockServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ViewportWidth:   1280,
			ViewportHeight:  720,
			JPEGQuality:     70,
			FramesPerSecond: 10,
			SessionGrace:    30 * time.Second,
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config { return defaultConfig() }

// Load reads defaults, then the YAML file at path (skipped when path is
// empty, or when it does not exist and optional is set), then environment
// overrides. The result is validated.
func Load(path string, optional bool) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case optional && errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	cfg.applyEnv(env)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(env envOverrides) {
	if env.WSBase != "" {
		c.Backend.WSBase = env.WSBase
	}
	if env.APIBase != "" {
		c.Backend.APIBase = env.APIBase
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.LogFile != "" {
		c.Log.File = env.LogFile
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := checkURL("backend.ws_base", c.Backend.WSBase, "ws", "wss"); err != nil {
		return err
	}
	if err := checkURL("backend.api_base", c.Backend.APIBase, "http", "https"); err != nil {
		return err
	}
	if c.Reconnect.MaxAttempts < 0 {
		return fmt.Errorf("reconnect.max_attempts must be >= 0, got %d", c.Reconnect.MaxAttempts)
	}
	if c.Reconnect.BaseDelay <= 0 {
		return fmt.Errorf("reconnect.base_delay must be positive, got %s", c.Reconnect.BaseDelay)
	}
	if c.Connection.PingInterval < 0 {
		return fmt.Errorf("connection.ping_interval must be >= 0, got %s", c.Connection.PingInterval)
	}
	if c.Connection.WriteTimeout <= 0 {
		return fmt.Errorf("connection.write_timeout must be positive, got %s", c.Connection.WriteTimeout)
	}
	m := c.MockServer
	if m.ViewportWidth < 16 || m.ViewportHeight < 16 {
		return fmt.Errorf("mock_server viewport %dx%d is too small", m.ViewportWidth, m.ViewportHeight)
	}
	if m.JPEGQuality < 1 || m.JPEGQuality > 100 {
		return fmt.Errorf("mock_server.jpeg_quality must be 1-100, got %d", m.JPEGQuality)
	}
	if m.FramesPerSecond <= 0 {
		return fmt.Errorf("mock_server.frames_per_second must be positive, got %d", m.FramesPerSecond)
	}
	if m.SessionGrace < 0 {
		return fmt.Errorf("mock_server.session_grace must be >= 0, got %s", m.SessionGrace)
	}
	return nil
}

func checkURL(key, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s %q: want %v://host[:port]", key, raw, schemes)
}
