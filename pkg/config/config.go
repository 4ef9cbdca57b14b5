// Package config holds the build configuration for stepcache.
//
// Everything the build needs is carried in an explicit Config value; there
// is no ambient, process-wide configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the optional per-project configuration file, looked up in
// the build context directory.
const DefaultFile = ".stepcache.yaml"

// DefaultCacheRepository is the image repository intermediate cache images
// are tagged under.
const DefaultCacheRepository = "stepcache/cache"

// Config controls how a build run treats the descriptor and the cache.
// Dockerfile and Backup are relative to the build context directory.
type Config struct {
	// Dockerfile is the build descriptor filename (default "Dockerfile").
	Dockerfile string `yaml:"dockerfile"`
	// Backup is where the original descriptor is stashed during a run
	// (default "<Dockerfile>.orig"). A run refuses to start when this
	// path is already occupied.
	Backup string `yaml:"backup"`
	// CacheRepo is the repository cache images are tagged under.
	CacheRepo string `yaml:"cache-repo"`
	// Excludes are extra patterns dropped from the build context, on top
	// of .dockerignore.
	Excludes []string `yaml:"excludes"`
}

// SetDefaults fills unset fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Dockerfile == "" {
		c.Dockerfile = "Dockerfile"
	}
	if c.Backup == "" {
		c.Backup = c.Dockerfile + ".orig"
	}
	if c.CacheRepo == "" {
		c.CacheRepo = DefaultCacheRepository
	}
}

// Validate rejects configurations that would corrupt the descriptor dance.
func (c *Config) Validate() error {
	if c.Dockerfile == "" {
		return fmt.Errorf("dockerfile must not be empty")
	}
	if c.Backup == c.Dockerfile {
		return fmt.Errorf("backup path %q must differ from the dockerfile", c.Backup)
	}
	if filepath.IsAbs(c.Dockerfile) {
		return fmt.Errorf("dockerfile %q must be relative to the build context", c.Dockerfile)
	}
	return nil
}

// Load reads the optional configuration file from the build context
// directory, expands environment variables, and applies defaults. A missing
// file yields the default configuration.
func Load(dir string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(filepath.Join(dir, DefaultFile))
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("reading %s: %w", DefaultFile, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", DefaultFile, err)
		}
		expandEnvVars(&cfg)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandEnvVars expands environment variables in string fields.
func expandEnvVars(c *Config) {
	c.Dockerfile = os.ExpandEnv(c.Dockerfile)
	c.Backup = os.ExpandEnv(c.Backup)
	c.CacheRepo = os.ExpandEnv(c.CacheRepo)
	for i := range c.Excludes {
		c.Excludes[i] = os.ExpandEnv(c.Excludes[i])
	}
}
