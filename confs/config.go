package confs

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting of the irrigation server.
type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	// DatabaseURL takes precedence over the individual DB_* parameters.
	DatabaseURL string `yaml:"database_url"`
	DBHost      string `yaml:"db_host"`
	DBPort      string `yaml:"db_port"`
	DBUser      string `yaml:"db_user"`
	DBPassword  string `yaml:"db_password"`
	DBName      string `yaml:"db_name"`
	// SQLitePath is used when no Postgres settings are present.
	SQLitePath string `yaml:"sqlite_path"`

	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`

	RetentionWindow time.Duration `yaml:"retention_window"`
	HistoryWindow   time.Duration `yaml:"history_window"`

	LogLevel    string   `yaml:"log_level"`
	LogJSON     bool     `yaml:"log_json"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		HTTPAddr:        "0.0.0.0:3536",
		SQLitePath:      "garden.db",
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		RetentionWindow: 24 * time.Hour,
		HistoryWindow:   time.Hour,
		LogLevel:        "info",
		CORSOrigins:     []string{"*"},
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// named by GARDEN_CONFIG, a .env file if present, and the environment.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("GARDEN_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// Load .env if it exists; ignore error if file not found
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("warning: could not load .env: %v", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.DatabaseURL, "DB_URL")
	setString(&c.DBHost, "DB_HOST")
	setString(&c.DBPort, "DB_PORT")
	setString(&c.DBUser, "DB_USER")
	setString(&c.DBPassword, "DB_PASSWORD")
	setString(&c.DBName, "DB_NAME")
	setString(&c.SQLitePath, "SQLITE_PATH")
	setString(&c.LogLevel, "LOG_LEVEL")

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}

	for _, f := range []func() error{
		func() error { return setInt(&c.MaxIdleConns, "DB_MAX_IDLE_CONNS") },
		func() error { return setInt(&c.MaxOpenConns, "DB_MAX_OPEN_CONNS") },
		func() error { return setDuration(&c.ConnMaxLifetime, "DB_CONN_MAX_LIFETIME") },
		func() error { return setDuration(&c.RetentionWindow, "RETENTION_WINDOW") },
		func() error { return setDuration(&c.HistoryWindow, "HISTORY_WINDOW") },
		func() error { return setBool(&c.LogJSON, "LOG_JSON") },
	} {
		if err := f(); err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr is required")
	}
	if c.RetentionWindow <= 0 {
		return fmt.Errorf("retention_window must be positive, got %s", c.RetentionWindow)
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("history_window must be positive, got %s", c.HistoryWindow)
	}
	if c.HistoryWindow > c.RetentionWindow {
		return fmt.Errorf("history_window %s exceeds retention_window %s", c.HistoryWindow, c.RetentionWindow)
	}
	if c.MaxIdleConns < 0 || c.MaxOpenConns < 0 || c.ConnMaxLifetime < 0 {
		return fmt.Errorf("connection pool settings must not be negative")
	}
	if c.DatabaseURL == "" && !c.HasPostgresParams() && c.SQLitePath == "" {
		return fmt.Errorf("missing database configuration: DB_URL, DB_HOST... or SQLITE_PATH")
	}
	return nil
}

// HasPostgresParams reports whether all individual Postgres parameters are set.
func (c *Config) HasPostgresParams() bool {
	return c.DBHost != "" && c.DBPort != "" && c.DBUser != "" && c.DBPassword != "" && c.DBName != ""
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
