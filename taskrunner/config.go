/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package taskrunner

import (
	"fmt"

	"github.com/acronis/go-taglimit/config"
)

const cfgDefaultKeyPrefix = "taskRunner"

const (
	cfgKeyWorkersNum = "workersNum"
	cfgKeyQueueSize  = "queueSize"
)

// Default values.
const (
	DefaultWorkersNum = 4
	DefaultQueueSize  = 128
)

// Config represents a set of configuration parameters for Pool.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// WorkersNum is the number of worker goroutines executing tasks.
	WorkersNum int `mapstructure:"workersNum" yaml:"workersNum" json:"workersNum"`

	// QueueSize is the capacity of the queue through which tasks are passed to the workers.
	// Execute blocks while the queue is full.
	QueueSize int `mapstructure:"queueSize" yaml:"queueSize" json:"queueSize"`

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
		keyPrefix:  opts.keyPrefix,
		WorkersNum: DefaultWorkersNum,
		QueueSize:  DefaultQueueSize,
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

// SetProviderDefaults sets default configuration values for Pool in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyWorkersNum, DefaultWorkersNum)
	dp.SetDefault(cfgKeyQueueSize, DefaultQueueSize)
}

// Set sets Pool configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.WorkersNum, err = dp.GetInt(cfgKeyWorkersNum); err != nil {
		return err
	}
	if c.WorkersNum <= 0 {
		return dp.WrapKeyErr(cfgKeyWorkersNum, fmt.Errorf("should be positive, got %d", c.WorkersNum))
	}

	if c.QueueSize, err = dp.GetInt(cfgKeyQueueSize); err != nil {
		return err
	}
	if c.QueueSize < 0 {
		return dp.WrapKeyErr(cfgKeyQueueSize, fmt.Errorf("should not be negative, got %d", c.QueueSize))
	}

	return nil
}
