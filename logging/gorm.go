package logging

import (
	"log/slog"
	"time"

	"gorm.io/gorm/logger"
)

// GormLogger routes gorm's SQL logging through slog. Only slow queries and
// errors are reported unless the global level is debug.
func GormLogger(level slog.Level) logger.Interface {
	gormLevel := logger.Warn
	if level <= slog.LevelDebug {
		gormLevel = logger.Info
	}
	return logger.New(StdLogger("gorm", slog.LevelInfo), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLevel,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
