package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plantCo2/water-device/db"
	"github.com/plantCo2/water-device/db/dbtest"
	"github.com/plantCo2/water-device/entities"
	"github.com/plantCo2/water-device/repositories"
)

type fixture struct {
	db       db.Database
	readings *ReadingsUseCase
	settings *SettingsUseCase
	commands *CommandsUseCase
	sync     *SyncUseCase
}

func setup(t *testing.T) *fixture {
	t.Helper()
	database := dbtest.New(t)
	repos := repositories.New(database)
	return &fixture{
		db:       database,
		readings: NewReadingsUseCase(repos.Readings),
		settings: NewSettingsUseCase(repos.Settings),
		commands: NewCommandsUseCase(repos.Commands),
		sync:     NewSyncUseCase(database),
	}
}

func ptr[T any](v T) *T { return &v }

var errDown = errors.New("connection refused")

// brokenStore fails every call, standing in for an unreachable database.
type brokenStore struct{}

func (brokenStore) Create(context.Context, *entities.Reading) error { return errDown }
func (brokenStore) Latest(context.Context) (*entities.Reading, error) {
	return nil, errDown
}
func (brokenStore) Since(context.Context, time.Time) ([]entities.Reading, error) {
	return nil, errDown
}
func (brokenStore) DeleteBefore(context.Context, time.Time) (int64, error) { return 0, errDown }
func (brokenStore) GetOrCreate(context.Context) (*entities.Settings, error) {
	return nil, errDown
}
func (brokenStore) Replace(context.Context, *entities.Settings) error { return errDown }
func (brokenStore) Enqueue(context.Context, *entities.Command) error  { return errDown }
func (brokenStore) DrainPending(context.Context) (*entities.Command, int, error) {
	return nil, 0, errDown
}
func (brokenStore) Pending(context.Context) ([]entities.Command, error) { return nil, errDown }
func (brokenStore) Recent(context.Context, int) ([]entities.Command, error) {
	return nil, errDown
}
