// Package config provides layered configuration for debchangelog using koanf.
//
// Configuration sources, lowest priority first:
//   - built-in defaults
//   - the YAML config file (debchangelog.yaml in the working directory, or
//     the path given with --config)
//   - environment variables prefixed with DEBCHANGELOG_, e.g.
//     DEBCHANGELOG_ENCODING=latin1 or DEBCHANGELOG_MAX_BLOCKS=1
//
// Command line flags override all of them.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/etnz/debchangelog/changelog"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "debchangelog.yaml"

// EnvPrefix prefixes the environment variables overriding the config file.
const EnvPrefix = "DEBCHANGELOG_"

// Config holds the settings of the command line tool.
type Config struct {
	// Encoding of changelog files.
	Encoding string `koanf:"encoding"`
	// AllowEmptyAuthor accepts trailers without author and date.
	AllowEmptyAuthor bool `koanf:"allow_empty_author"`
	// StrictDistributions rejects full stops in distribution names.
	StrictDistributions bool `koanf:"strict_distributions"`
	// MaxBlocks limits the number of parsed blocks; 0 parses them all.
	MaxBlocks int `koanf:"max_blocks"`
	// Maintainer is the "Name <email>" used for new entries.
	Maintainer string `koanf:"maintainer"`
	// Distribution is the target of new entries.
	Distribution string `koanf:"distribution"`
	// Urgency is the urgency of new entries.
	Urgency string `koanf:"urgency"`
	// SigningKey is the path of an ASCII-armored private key.
	SigningKey string `koanf:"signing_key"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `koanf:"log_level"`
}

// LogLevels lists the accepted values of log_level.
var LogLevels = []string{"debug", "info", "warn", "error"}

// GetDefaults returns the default configuration values.
func GetDefaults() map[string]any {
	return map[string]any{
		"encoding":             changelog.DefaultEncoding,
		"allow_empty_author":   false,
		"strict_distributions": false,
		"max_blocks":           0,
		"maintainer":           "",
		"distribution":         "UNRELEASED",
		"urgency":              "medium",
		"signing_key":          "",
		"log_level":            "info",
	}
}

// LoadOptions configures Load.
type LoadOptions struct {
	// Path is the config file to read. When empty, DefaultPath is read if
	// it exists.
	Path string
	// Getenv looks up environment variables; os.Getenv when nil.
	Getenv func(string) string
}

// Load reads the configuration.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")
	for key, value := range GetDefaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("setting default %s: %w", key, err)
		}
	}

	path := opts.Path
	if path == "" && fileExists(DefaultPath) {
		path = DefaultPath
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if cfg.Maintainer == "" {
		cfg.Maintainer = maintainerFromEnv(getenv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.MaxBlocks < 0 {
		return fmt.Errorf("max_blocks must not be negative, got %d", c.MaxBlocks)
	}
	if !slices.Contains(LogLevels, c.LogLevel) {
		return fmt.Errorf("log_level must be one of %s, got %q", strings.Join(LogLevels, ", "), c.LogLevel)
	}
	if _, err := changelog.Encode("", c.Encoding); err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	return nil
}

// ParseOptions returns the changelog options matching the configuration.
func (c *Config) ParseOptions() []changelog.Option {
	opts := []changelog.Option{changelog.WithEncoding(c.Encoding)}
	if c.MaxBlocks > 0 {
		opts = append(opts, changelog.WithMaxBlocks(c.MaxBlocks))
	}
	if c.AllowEmptyAuthor {
		opts = append(opts, changelog.WithAllowEmptyAuthor())
	}
	if c.StrictDistributions {
		opts = append(opts, changelog.WithStrictDistributions())
	}
	return opts
}

// maintainerFromEnv builds "Name <email>" from the DEBFULLNAME and DEBEMAIL
// variables used by Debian packaging tools. DEBEMAIL may already hold the
// full "Name <email>" form.
func maintainerFromEnv(getenv func(string) string) string {
	name := strings.TrimSpace(getenv("DEBFULLNAME"))
	email := strings.TrimSpace(getenv("DEBEMAIL"))
	switch {
	case email == "":
		return ""
	case strings.Contains(email, "<"):
		return email
	case name == "":
		return ""
	}
	return name + " <" + email + ">"
}

// envTransform converts environment variable names to config keys.
// Example: DEBCHANGELOG_MAX_BLOCKS -> max_blocks
func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
