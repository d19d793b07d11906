package config

import (
	"github.com/andrew-solarstorm/go-packages/common"
)

type PersistenceConfig struct {
	// DBPath is the path to the BoltDB file for pool persistence.
	// Default: "./data/quote-engine.db"
	DBPath string

	// PersistenceEnabled controls whether pools are persisted to disk.
	// Default: true
	PersistenceEnabled bool

	// PersistInterval is how often pools are batch-saved to disk (in seconds).
	// Default: 30
	PersistInterval int
}

func (c *PersistenceConfig) Key() string {
	return PERSISTENCE_CONFIG_KEY
}

func (c *PersistenceConfig) Load() error {
	c.DBPath = common.GetEnvOrDefault("DB_PATH", "./data/quote-engine.db")
	c.PersistenceEnabled = common.GetEnvOrDefault("PERSISTENCE_ENABLED", "true") == "true"
	c.PersistInterval = common.GetEnvOrDefaultInt("PERSIST_INTERVAL", 30)
	return nil
}

func (c *PersistenceConfig) Validate() error {
	return nil
}
