package config

import (
	"fmt"
	"os"
	"time"

	"emperror.dev/errors"
	"gopkg.in/yaml.v3"
	"k8s.io/kube-openapi/pkg/validation/strfmt"

	"github.com/voluzi/procscope/pkg/monitor"
	"github.com/voluzi/procscope/pkg/store"
)

const DefaultShutdownTimeout = 3 * time.Second

// Duration is a time.Duration read from strings such as "500ms" or "1d".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := strfmt.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Record is a reusable profile for the record command.
type Record struct {
	Pids            []int32  `yaml:"pids"`
	Names           []string `yaml:"names"`
	Frequency       Duration `yaml:"frequency"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	OutDir          string   `yaml:"out_dir"`
	Compression     string   `yaml:"compression"`
	BufferSize      string   `yaml:"buffer_size"`
}

// Default returns the profile used when no file is given.
func Default() *Record {
	r := &Record{}
	r.applyDefaults()
	return r
}

// LoadRecord reads, completes and validates a record profile.
func LoadRecord(path string) (*Record, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Record
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Record) applyDefaults() {
	if c.Frequency <= 0 {
		c.Frequency = Duration(monitor.DefaultFrequency)
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	if c.OutDir == "" {
		c.OutDir = monitor.DefaultOutDir
	}
	if c.Compression == "" {
		c.Compression = string(store.DefaultCompression)
	}
	if c.BufferSize == "" {
		c.BufferSize = store.DefaultBufferSize
	}
}

// Validate checks the profile after defaults and flag overrides are applied.
func (c *Record) Validate() error {
	if c.Frequency <= 0 {
		return errors.New("frequency must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown_timeout must be positive")
	}
	for _, pid := range c.Pids {
		if pid <= 0 {
			return fmt.Errorf("invalid pid %d", pid)
		}
	}
	for _, name := range c.Names {
		if name == "" {
			return errors.New("names cannot contain an empty name")
		}
	}
	if _, err := c.StoreOptions(); err != nil {
		return err
	}
	return nil
}

// StoreOptions translates the store settings into store options.
func (c *Record) StoreOptions() ([]store.Option, error) {
	compression, err := store.ParseCompression(c.Compression)
	if err != nil {
		return nil, err
	}
	opts := []store.Option{store.WithCompression(compression), store.WithBufferSize(c.BufferSize)}
	if _, err := store.NewFormat(opts...); err != nil {
		return nil, err
	}
	return opts, nil
}
