package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Hue             HueConfig      `yaml:"hue"`
	Stream          StreamConfig   `yaml:"stream"`
	Fallback        FallbackConfig `yaml:"fallback"`
	Log             LogConfig      `yaml:"log"`
	Scenes          []SceneConfig  `yaml:"scenes"`
	ShutdownTimeout Duration       `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// HueConfig contains Hue bridge connection and streaming credentials
type HueConfig struct {
	Bridge    string   `yaml:"bridge"`     // bridge address (host or host:port)
	AppKey    string   `yaml:"app_key"`    // application key, doubles as the PSK identity
	ClientKey string   `yaml:"client_key"` // 32-hex-char client key issued at pairing
	Zone      string   `yaml:"zone"`       // entertainment zone id; empty = first available
	Timeout   Duration `yaml:"timeout"`    // HTTP timeout for bridge API requests
}

// StreamConfig contains render scheduler and transport settings
type StreamConfig struct {
	ColorSpace       string   `yaml:"color_space"`       // "rgb" or "xy"
	Interval         Duration `yaml:"interval"`          // render tick period (default: 20ms)
	Keepalive        Duration `yaml:"keepalive"`         // idle resend period (default: 1s)
	HandshakeTimeout Duration `yaml:"handshake_timeout"` // DTLS handshake bound (default: 5s)
	ReconnectDelay   Duration `yaml:"reconnect_delay"`   // base reconnect delay (default: 1s)
	MaxReconnects    int      `yaml:"max_reconnects"`    // reconnect attempt cap (default: 3)
}

// FallbackConfig contains REST fallback settings
type FallbackConfig struct {
	RateLimitRPS float64 `yaml:"rate_limit_rps"` // REST write budget (default: 10)
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	UseJSON bool   `yaml:"json"`
	Colors  bool   `yaml:"colors"`
}

// SceneConfig declares an effect to start on a light at boot
type SceneConfig struct {
	Light      string   `yaml:"light"`
	Effect     string   `yaml:"effect"`
	Speed      float64  `yaml:"speed"`
	Colors     []string `yaml:"colors"` // hex, up to two
	Brightness float64  `yaml:"brightness"`
	Intensity  float64  `yaml:"intensity"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	if cfg.Hue.Bridge == "" {
		return nil, fmt.Errorf("hue.bridge is required")
	}
	if cfg.Hue.AppKey == "" {
		return nil, fmt.Errorf("hue.app_key is required")
	}
	if cfg.Hue.ClientKey == "" {
		return nil, fmt.Errorf("hue.client_key is required")
	}

	// Set defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Hue.Timeout == 0 {
		cfg.Hue.Timeout = Duration(10 * time.Second)
	}

	// Stream defaults
	if cfg.Stream.ColorSpace == "" {
		cfg.Stream.ColorSpace = "rgb"
	}
	switch strings.ToLower(cfg.Stream.ColorSpace) {
	case "rgb", "xy":
	default:
		return nil, fmt.Errorf("stream.color_space must be \"rgb\" or \"xy\", got %q", cfg.Stream.ColorSpace)
	}
	if cfg.Stream.Interval == 0 {
		cfg.Stream.Interval = Duration(20 * time.Millisecond)
	}
	if cfg.Stream.Keepalive == 0 {
		cfg.Stream.Keepalive = Duration(1 * time.Second)
	}
	if cfg.Stream.HandshakeTimeout == 0 {
		cfg.Stream.HandshakeTimeout = Duration(5 * time.Second)
	}
	if cfg.Stream.ReconnectDelay == 0 {
		cfg.Stream.ReconnectDelay = Duration(1 * time.Second)
	}
	if cfg.Stream.MaxReconnects == 0 {
		cfg.Stream.MaxReconnects = 3
	}

	// Fallback defaults
	if cfg.Fallback.RateLimitRPS == 0 {
		cfg.Fallback.RateLimitRPS = 10.0
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}

	return &cfg, nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
