// Package config loads and watches the procwatch configuration document.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file read when none is given.
const DefaultFile = "procwatch.yaml"

// DefaultLogBufferSize bounds the in-memory log ring when the document does
// not set log_buffer_size.
const DefaultLogBufferSize = 10_000

// EnvPrefix namespaces environment variable overrides, e.g.
// PROCWATCH_LOG_BUFFER_SIZE.
const EnvPrefix = "PROCWATCH"

// RestartPolicy controls automatic respawn after a process exits.
// When disabled no restart is ever scheduled, regardless of counts.
type RestartPolicy struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	Cooloff     time.Duration `mapstructure:"cooloff" yaml:"cooloff"`
	MaxRestarts int           `mapstructure:"max_restarts" yaml:"max_restarts"`
}

// UnmarshalYAML accepts cooloff as a duration string ("5s", "2m30s"), the
// same form viper's duration hook accepts, since plain YAML decoding cannot
// read strings into time.Duration.
func (p *RestartPolicy) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Enabled     bool   `yaml:"enabled"`
		Cooloff     string `yaml:"cooloff"`
		MaxRestarts int    `yaml:"max_restarts"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	p.Enabled = raw.Enabled
	p.MaxRestarts = raw.MaxRestarts
	if raw.Cooloff != "" {
		d, err := time.ParseDuration(raw.Cooloff)
		if err != nil {
			return fmt.Errorf("invalid cooloff %q: %w", raw.Cooloff, err)
		}
		p.Cooloff = d
	}
	return nil
}

// Service is a supervised long-running process definition.
type Service struct {
	Name         string            `mapstructure:"name" yaml:"name"`
	Display      string            `mapstructure:"display" yaml:"display"`
	Image        string            `mapstructure:"image" yaml:"image"`
	Command      string            `mapstructure:"command" yaml:"command"`
	Directory    string            `mapstructure:"directory" yaml:"directory"`
	Environment  map[string]string `mapstructure:"environment" yaml:"environment"`
	Dependencies []string          `mapstructure:"dependencies" yaml:"dependencies"`
	Restart      RestartPolicy     `mapstructure:"restart" yaml:"restart"`
}

// Stub is a lightweight placeholder process. Same shape as a Service minus
// restart policy and dependencies; stubs never restart automatically.
type Stub struct {
	Name        string            `mapstructure:"name" yaml:"name"`
	Display     string            `mapstructure:"display" yaml:"display"`
	Image       string            `mapstructure:"image" yaml:"image"`
	Command     string            `mapstructure:"command" yaml:"command"`
	Directory   string            `mapstructure:"directory" yaml:"directory"`
	Environment map[string]string `mapstructure:"environment" yaml:"environment"`
}

// Agent is a declared scenario placeholder. Currently inert: agents are
// parsed and listed but never spawned.
type Agent struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Display  string `mapstructure:"display" yaml:"display"`
	Scenario string `mapstructure:"scenario" yaml:"scenario"`
}

// Config is the full configuration document.
type Config struct {
	Services      []Service `mapstructure:"services" yaml:"services"`
	Stubs         []Stub    `mapstructure:"stubs" yaml:"stubs"`
	Agents        []Agent   `mapstructure:"agents" yaml:"agents"`
	LogBufferSize int       `mapstructure:"log_buffer_size" yaml:"log_buffer_size"`

	// Optional listen address for the HTTP status/metrics surface.
	// Empty disables the listener.
	HTTPAddr string `mapstructure:"http_addr" yaml:"http_addr"`
}

// Contains reports whether a service or stub with the given name is declared.
func (c *Config) Contains(name string) bool {
	for _, s := range c.Services {
		if s.Name == name {
			return true
		}
	}
	for _, s := range c.Stubs {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Load reads the document at path via viper, applying PROCWATCH_ environment
// overrides and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("log_buffer_size", DefaultLogBufferSize)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if cfg.LogBufferSize <= 0 {
		cfg.LogBufferSize = DefaultLogBufferSize
	}
	return &cfg, nil
}

// LoadStrict decodes the document with unknown keys rejected. Used by the
// validate command to catch typos that viper would silently ignore.
func LoadStrict(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if cfg.LogBufferSize <= 0 {
		cfg.LogBufferSize = DefaultLogBufferSize
	}
	return &cfg, nil
}

// Validate checks the document for problems a spawn would hit later:
// missing names, duplicate names across services and stubs, and specs with
// neither an image nor a command.
func (c *Config) Validate() []error {
	var errs []error
	seen := make(map[string]bool)

	check := func(kind, name, image, command string) {
		if name == "" {
			errs = append(errs, fmt.Errorf("%s with empty name", kind))
			return
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("duplicate name %q", name))
		}
		seen[name] = true
		if image == "" && command == "" {
			errs = append(errs, fmt.Errorf("%s %q: must specify a command or an image", kind, name))
		}
	}

	for _, s := range c.Services {
		check("service", s.Name, s.Image, s.Command)
	}
	for _, s := range c.Stubs {
		check("stub", s.Name, s.Image, s.Command)
	}
	for _, a := range c.Agents {
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("agent with empty name"))
		}
	}
	return errs
}
