/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package taskrunner

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-taglimit/config"
)

func TestConfig(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		cfg := NewConfig()
		err := config.NewDefaultLoader("").LoadFromReader(
			bytes.NewBufferString("{}"), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, DefaultWorkersNum, cfg.WorkersNum)
		require.Equal(t, DefaultQueueSize, cfg.QueueSize)
	})

	t.Run("yaml config", func(t *testing.T) {
		cfgData := `
taskRunner:
  workersNum: 8
  queueSize: 1024
`
		cfg := NewConfig()
		err := config.NewDefaultLoader("").LoadFromReader(
			bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, 8, cfg.WorkersNum)
		require.Equal(t, 1024, cfg.QueueSize)
	})

	t.Run("zero queue size is accepted", func(t *testing.T) {
		cfgData := `
taskRunner:
  workersNum: 1
  queueSize: 0
`
		cfg := NewConfig()
		err := config.NewDefaultLoader("").LoadFromReader(
			bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, 0, cfg.QueueSize)
	})

	t.Run("non-positive workers number", func(t *testing.T) {
		cfgData := `
taskRunner:
  workersNum: 0
`
		cfg := NewConfig()
		err := config.NewDefaultLoader("").LoadFromReader(
			bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg)
		require.EqualError(t, err, "taskRunner.workersNum: should be positive, got 0")
	})

	t.Run("negative queue size", func(t *testing.T) {
		cfgData := `
taskRunner:
  queueSize: -1
`
		cfg := NewConfig()
		err := config.NewDefaultLoader("").LoadFromReader(
			bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg)
		require.EqualError(t, err, "taskRunner.queueSize: should not be negative, got -1")
	})

	t.Run("custom key prefix", func(t *testing.T) {
		cfgData := `
workerPool:
  workersNum: 2
  queueSize: 16
`
		cfg := NewConfig(WithKeyPrefix("workerPool"))
		err := config.NewDefaultLoader("").LoadFromReader(
			bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, 2, cfg.WorkersNum)
		require.Equal(t, 16, cfg.QueueSize)
	})
}
