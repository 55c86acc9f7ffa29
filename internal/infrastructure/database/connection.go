package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/andrescamacho/pharmasim-go/internal/adapters/persistence"
	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/config"
)

const memoryPath = ":memory:"

// NewConnection opens the snapshot store described by cfg. Timestamps are
// written in UTC so sessions saved on different hosts sort correctly.
func NewConnection(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s snapshot store: %w", cfg.Type, err)
	}

	if err := configurePool(db, cfg); err != nil {
		return nil, err
	}
	return db, nil
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Type {
	case "postgres":
		dsn := cfg.URL
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
				cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
		}
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(sqliteDSN(cfg)), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

// sqliteDSN adds a busy timeout to file databases so a CLI reader waits for
// the daemon's snapshot transaction instead of failing
func sqliteDSN(cfg *config.DatabaseConfig) string {
	if cfg.Path == "" || cfg.Path == memoryPath {
		return memoryPath
	}
	if cfg.BusyTimeout <= 0 {
		return cfg.Path
	}
	return fmt.Sprintf("file:%s?_busy_timeout=%d", cfg.Path, cfg.BusyTimeout.Milliseconds())
}

func configurePool(db *gorm.DB, cfg *config.DatabaseConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying db: %w", err)
	}
	if cfg.Type != "postgres" {
		// every sqlite connection to :memory: is a separate database and the
		// daemon is the only writer of a file database
		sqlDB.SetMaxOpenConns(1)
		return nil
	}
	sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpen)
	sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdle)
	sqlDB.SetConnMaxLifetime(cfg.Pool.MaxLifetime)
	return nil
}

// NewTestConnection opens a migrated in-memory store
func NewTestConnection() (*gorm.DB, error) {
	db, err := NewConnection(&config.DatabaseConfig{Type: "sqlite", Path: memoryPath})
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate test store: %w", err)
	}
	return db, nil
}

// AutoMigrate creates or updates the snapshot and incident log tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(persistence.AllModels()...)
}

// Close releases the connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
