package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backend selectors.
const (
	StorageFile = "file"
	StorageDB   = "db"
)

// Config holds the application configuration.
type Config struct {
	Host string `env:"HBNB_API_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"HBNB_API_PORT" envDefault:"5000"`

	StorageType string `env:"HBNB_TYPE_STORAGE" envDefault:"file"`
	FilePath    string `env:"HBNB_FILE_PATH" envDefault:"file.json"`
	DBDriver    string `env:"HBNB_DB_DRIVER" envDefault:"sqlite"`
	DBDSN       string `env:"HBNB_DB_DSN" envDefault:"./hbnb.db"`

	CORSOrigins []string `env:"HBNB_CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	JWTSecret   string   `env:"JWT_SECRET"`

	SnapshotDir   string        `env:"HBNB_SNAPSHOT_DIR" envDefault:"./snapshots"`
	SnapshotCron  string        `env:"HBNB_SNAPSHOT_CRON"` // empty disables scheduled snapshots
	StatsInterval time.Duration `env:"HBNB_STATS_INTERVAL" envDefault:"15s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Addr returns the bind address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.StorageType {
	case StorageFile, StorageDB:
	default:
		return nil, fmt.Errorf("unknown storage type %q (want %q or %q)", cfg.StorageType, StorageFile, StorageDB)
	}
	return &cfg, nil
}
