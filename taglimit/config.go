/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package taglimit

import (
	"fmt"

	"github.com/acronis/go-taglimit/config"
)

const cfgDefaultKeyPrefix = "tagLimit"

const (
	cfgKeyLimitPerTag = "limitPerTag"
)

// DefaultLimitPerTag is a default maximum number of concurrently running tasks per tag.
const DefaultLimitPerTag = 1

// Config represents a set of configuration parameters for TaggedLimiter.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// LimitPerTag is the maximum number of concurrently running tasks allowed for each tag.
	// Zero is a legal degenerate value under which no task ever runs.
	LimitPerTag int `mapstructure:"limitPerTag" yaml:"limitPerTag" json:"limitPerTag"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	var opts = configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{
		keyPrefix:   opts.keyPrefix,
		LimitPerTag: DefaultLimitPerTag,
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for TaggedLimiter in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyLimitPerTag, DefaultLimitPerTag)
}

// Set sets TaggedLimiter configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.LimitPerTag, err = dp.GetInt(cfgKeyLimitPerTag); err != nil {
		return err
	}
	if c.LimitPerTag < 0 {
		return dp.WrapKeyErr(cfgKeyLimitPerTag, fmt.Errorf("should not be negative, got %d", c.LimitPerTag))
	}

	return nil
}
