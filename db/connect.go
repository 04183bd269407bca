package db

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/plantCo2/water-device/confs"
	"github.com/plantCo2/water-device/entities"
	"github.com/plantCo2/water-device/logging"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// PoolConfig bounds the connection pool of a Database.
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// Connect opens the store described by cfg: Postgres when DB_URL or the
// DB_* parameters are set, a local SQLite file otherwise.
func Connect(cfg *confs.Config) (Database, error) {
	log := logging.Component("db")

	var dialector gorm.Dialector
	switch {
	case cfg.DatabaseURL != "":
		dsn := cfg.DatabaseURL
		// Hosted databases require SSL unless the URL says otherwise
		if !strings.Contains(dsn, "sslmode=") {
			if strings.Contains(dsn, "?") {
				dsn += "&sslmode=require"
			} else {
				dsn += "?sslmode=require"
			}
		}
		log.Info("connecting to postgres using DB_URL")
		dialector = postgres.Open(dsn)

	case cfg.HasPostgresParams():
		sslMode := "require"
		if cfg.DBHost == "localhost" || cfg.DBHost == "127.0.0.1" {
			sslMode = "disable"
		}
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, sslMode)
		log.Info("connecting to postgres using individual parameters", "host", cfg.DBHost, "sslmode", sslMode)
		dialector = postgres.Open(dsn)

	default:
		log.Info("no postgres configuration, using sqlite", "path", cfg.SQLitePath)
		dialector = sqlite.Open(SQLiteDSN(cfg.SQLitePath))
	}

	return Open(dialector, PoolConfig{
		MaxIdleConns:    cfg.MaxIdleConns,
		MaxOpenConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logging.ParseLevel(cfg.LogLevel))
}

// SQLiteDSN adds the pragmas the server relies on: writers take the lock
// when the transaction begins and wait for each other instead of failing.
func SQLiteDSN(path string) string {
	return path + "?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
}

// Open connects with an explicit dialector, configures the pool and
// migrates the schema.
func Open(dialector gorm.Dialector, pool PoolConfig, level slog.Level) (Database, error) {
	log := logging.Component("db")

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logging.GormLogger(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if dialector.Name() == "sqlite" {
		// SQLite has a single writer; one connection keeps transactions serialized
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)

	log.Info("database connection established", "dialect", dialector.Name(),
		"max_open_conns", pool.MaxOpenConns, "max_idle_conns", pool.MaxIdleConns)

	if err := Migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	log.Info("database migrations completed")

	return &GormDatabase{DB: db}, nil
}

// Migrate creates or updates the readings, settings and commands tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&entities.Reading{}, &entities.Settings{}, &entities.Command{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
