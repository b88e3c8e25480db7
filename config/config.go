// Package config loads the YAML settings shared by the envelope CLI and envelope-casd.
//
// Example:
//
//	salt:
//	  size: 16
//	signing:
//	  scheme: ed25519
//	keys:
//	  dir: ~/.xdao/envelope/keys
//	store:
//	  write_policy: first
//	  backends:
//	    - name: localfs
//	      options: {dir: /var/lib/envelope/blocks}
//	    - name: redis
//	      options: {addr: "localhost:6379"}
//	logging:
//	  level: info
//	  format: console
//
// Environment overrides applied after the file: ENVELOPE_KEYS_DIR, ENVELOPE_LOG_LEVEL,
// ENVELOPE_SIGNING_SCHEME.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"xdao.co/envelope/envelope"
	"xdao.co/envelope/signing"
)

const (
	EnvKeysDir       = "ENVELOPE_KEYS_DIR"
	EnvLogLevel      = "ENVELOPE_LOG_LEVEL"
	EnvSigningScheme = "ENVELOPE_SIGNING_SCHEME"
)

// Config is the top-level configuration file.
type Config struct {
	Salt    SaltConfig    `yaml:"salt"`
	Signing SigningConfig `yaml:"signing"`
	Keys    KeysConfig    `yaml:"keys"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

type SaltConfig struct {
	// Size is the salt length in bytes used by "envelope salt" when no size is given.
	Size int `yaml:"size"`
}

type SigningConfig struct {
	// Scheme is the default for "generate signer" and "key init".
	Scheme string `yaml:"scheme"`
}

type KeysConfig struct {
	// Dir is the key store directory. Empty means keys.GetDefaultDirectory.
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults("")
	return c
}

// Load parses the YAML file at path, fills defaults, applies environment overrides, and
// validates the result. Relative paths in the file are resolved against its directory.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: empty path")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults(filepath.Dir(path))
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path, or returns Default with environment overrides when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	cfg := Default()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults(baseDir string) {
	if c.Salt.Size == 0 {
		c.Salt.Size = envelope.DefaultSaltSize
	}
	if c.Signing.Scheme == "" {
		c.Signing.Scheme = string(signing.Ed25519)
	}
	c.Keys.Dir = resolvePath(baseDir, c.Keys.Dir)
	if c.Store.WritePolicy == "" {
		c.Store.WritePolicy = WriteFirst
	}
	for i := range c.Store.Backends {
		b := &c.Store.Backends[i]
		if dir, ok := b.Options["dir"]; ok {
			b.Options["dir"] = resolvePath(baseDir, dir)
		}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvKeysDir)); v != "" {
		c.Keys.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSigningScheme)); v != "" {
		c.Signing.Scheme = v
	}
}

// resolvePath expands a leading "~/" and anchors relative paths at baseDir.
func resolvePath(baseDir, p string) string {
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	if filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Salt.Size < envelope.MinSaltSize {
		return fmt.Errorf("config: salt.size %d is below the minimum of %d", c.Salt.Size, envelope.MinSaltSize)
	}
	if _, err := signing.ParseScheme(c.Signing.Scheme); err != nil {
		return fmt.Errorf("config: signing.scheme: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}

// SigningScheme returns the validated default scheme.
func (c *Config) SigningScheme() signing.Scheme {
	s, err := signing.ParseScheme(c.Signing.Scheme)
	if err != nil {
		return signing.Ed25519
	}
	return s
}
