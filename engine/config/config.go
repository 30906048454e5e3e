// Package config loads engine settings from YAML.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultTickRate is the engine loop rate in ticks per second.
	DefaultTickRate = 20.0
	// DefaultResetDuration is how many ticks an abandoned bone takes to relax to rest.
	DefaultResetDuration = 1.0
	// DefaultTicksPerSecond converts authored clip seconds into ticks.
	DefaultTicksPerSecond = 20.0
)

// Config holds every setting a host reads at startup.
// Paths in Clips and Skeleton are relative to the config file.
type Config struct {
	TickRate           float64  `yaml:"tick_rate"`
	ResetDuration      float64  `yaml:"reset_duration"`
	CrashOnMissingBone bool     `yaml:"crash_on_missing_bone"`
	Workers            int      `yaml:"workers"`
	TicksPerSecond     float64  `yaml:"ticks_per_second"`
	TransitionLength   float64  `yaml:"transition_length"`
	Clips              []string `yaml:"clips"`
	Skeleton           string   `yaml:"skeleton"`
	Watch              bool     `yaml:"watch"`
	InspectAddr        string   `yaml:"inspect_addr"`
}

// Default returns a Config with every default applied.
//
// Returns:
//   - *Config: the default config
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads a YAML config file. Relative asset paths are resolved against the file's directory.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - *Config: the loaded config with defaults applied
//   - error: error if the file cannot be read, decoded or validated
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: load %s", path)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config: %s", path)
	}
	c.resolve(filepath.Dir(path))
	return c, nil
}

// Parse decodes YAML config content.
//
// Parameters:
//   - data: the YAML content
//
// Returns:
//   - *Config: the decoded config with defaults applied
//   - error: error if the content cannot be decoded or holds invalid values
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "unmarshal")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

// Validate rejects negative rates and durations.
//
// Returns:
//   - error: the first invalid field, or nil
func (c *Config) Validate() error {
	switch {
	case c.TickRate < 0:
		return errors.Errorf("tick_rate must not be negative, got %v", c.TickRate)
	case c.ResetDuration < 0:
		return errors.Errorf("reset_duration must not be negative, got %v", c.ResetDuration)
	case c.Workers < 0:
		return errors.Errorf("workers must not be negative, got %d", c.Workers)
	case c.TicksPerSecond < 0:
		return errors.Errorf("ticks_per_second must not be negative, got %v", c.TicksPerSecond)
	case c.TransitionLength < 0:
		return errors.Errorf("transition_length must not be negative, got %v", c.TransitionLength)
	}
	return nil
}

// WatchDirs returns the distinct directories holding clip and skeleton files, sorted.
//
// Returns:
//   - []string: the directories to watch
func (c *Config) WatchDirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	paths := append([]string(nil), c.Clips...)
	if c.Skeleton != "" {
		paths = append(paths, c.Skeleton)
	}
	for _, p := range paths {
		d := filepath.Dir(p)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	sort.Strings(dirs)
	return dirs
}

func (c *Config) applyDefaults() {
	c.TickRate = common.Coalesce(c.TickRate, DefaultTickRate)
	c.ResetDuration = common.Coalesce(c.ResetDuration, DefaultResetDuration)
	c.TicksPerSecond = common.Coalesce(c.TicksPerSecond, DefaultTicksPerSecond)
	c.Workers = common.Coalesce(c.Workers, runtime.NumCPU())
}

func (c *Config) resolve(base string) {
	for i, p := range c.Clips {
		c.Clips[i] = join(base, p)
	}
	if c.Skeleton != "" {
		c.Skeleton = join(base, c.Skeleton)
	}
}

func join(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
