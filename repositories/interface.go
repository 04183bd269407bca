package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/plantCo2/water-device/db"
	"github.com/plantCo2/water-device/entities"
)

// ErrConflict is returned when a concurrent drain marked some of the
// selected commands first. Nothing was changed; the caller may retry.
var ErrConflict = errors.New("pending commands changed during drain")

type ReadingRepository interface {
	Create(ctx context.Context, reading *entities.Reading) error
	// Latest returns nil when there are no readings.
	Latest(ctx context.Context) (*entities.Reading, error)
	// Since returns readings at or after cutoff, newest first.
	Since(ctx context.Context, cutoff time.Time) ([]entities.Reading, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type SettingsRepository interface {
	GetOrCreate(ctx context.Context) (*entities.Settings, error)
	Replace(ctx context.Context, settings *entities.Settings) error
}

type CommandRepository interface {
	Enqueue(ctx context.Context, cmd *entities.Command) error
	// DrainPending marks every pending command executed and returns the
	// newest one with the number of commands marked.
	DrainPending(ctx context.Context) (*entities.Command, int, error)
	Pending(ctx context.Context) ([]entities.Command, error)
	Recent(ctx context.Context, limit int) ([]entities.Command, error)
}

// Repositories groups the repositories that share one Database handle.
type Repositories struct {
	Readings ReadingRepository
	Settings SettingsRepository
	Commands CommandRepository
}

func New(database db.Database) *Repositories {
	return &Repositories{
		Readings: NewReadingRepository(database),
		Settings: NewSettingsRepository(database),
		Commands: NewCommandRepository(database),
	}
}
