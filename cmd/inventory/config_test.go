package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Apply defaults", func(t *testing.T) {
		cfg, err := loadConfig()

		require.NoError(t, err)
		assert.Equal(t, ":8000", cfg.HTTPAddr)
		assert.Equal(t, storageMySQL, cfg.Storage)
		assert.Equal(t, 5*time.Second, cfg.LockTimeout)
		assert.Equal(t, 16, cfg.CommitWorkers)
		assert.Zero(t, cfg.SyncInterval)
	})

	t.Run("Read prefixed environment", func(t *testing.T) {
		t.Setenv("INVENTORY_STORAGE", "memory")
		t.Setenv("INVENTORY_LOCK_TIMEOUT", "750ms")
		t.Setenv("INVENTORY_SYNC_INTERVAL", "1m")
		t.Setenv("INVENTORY_KAFKA_BROKER", "localhost:9092")

		cfg, err := loadConfig()

		require.NoError(t, err)
		assert.Equal(t, storageMemory, cfg.Storage)
		assert.Equal(t, 750*time.Millisecond, cfg.LockTimeout)
		assert.Equal(t, time.Minute, cfg.SyncInterval)
		assert.Equal(t, "localhost:9092", cfg.KafkaBroker)
	})

	t.Run("Fail on unknown storage", func(t *testing.T) {
		t.Setenv("INVENTORY_STORAGE", "sqlite")
		_, err := loadConfig()
		assert.Error(t, err)
	})

	t.Run("Fail on non-positive lock timeout", func(t *testing.T) {
		t.Setenv("INVENTORY_LOCK_TIMEOUT", "0s")
		_, err := loadConfig()
		assert.Error(t, err)
	})

	t.Run("Fail on invalid log level", func(t *testing.T) {
		assert.Error(t, setupLogging("loud"))
		assert.NoError(t, setupLogging("debug"))
	})
}
