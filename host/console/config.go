package console

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can say "10ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds the host daemon configuration.
type Config struct {
	// Serial device of the encoder board
	Serial string `yaml:"serial"`
	// Baud rate (USB CDC ports ignore this)
	Baud int `yaml:"baud"`

	// evdev node of the physical mouse, empty to disable the bridge
	InputDevice string `yaml:"input_device"`
	// Grab the input device exclusively
	Grab bool `yaml:"grab"`
	// Encoder port the bridge feeds
	Port int `yaml:"port"`
	// How often batched motion is flushed to the board
	FlushInterval Duration `yaml:"flush_interval"`

	// Address of the websocket control endpoint, empty to disable
	Listen string `yaml:"listen"`

	// Log verbosity: error, warn, info or debug
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Serial:        "/dev/ttyACM0",
		Baud:          115200,
		Port:          0,
		FlushInterval: Duration(10 * time.Millisecond),
		Listen:        "localhost:8873",
		LogLevel:      "info",
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("console: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("console: parse config %s: %w", path, err)
	}

	if cfg.FlushInterval <= 0 {
		return cfg, fmt.Errorf("console: flush_interval must be positive")
	}
	if cfg.Port < 0 {
		return cfg, fmt.Errorf("console: port must not be negative")
	}
	return cfg, nil
}
