package usecases

import (
	"context"

	"github.com/plantCo2/water-device/db"
	"github.com/plantCo2/water-device/entities"
	"github.com/plantCo2/water-device/repositories"
)

// PollResult is what the device receives on each poll. Command is nil when
// nothing was pending.
type PollResult struct {
	Settings entities.Settings
	Command  *entities.Command
}

// SyncUseCase serves the device poll: current settings plus the drained
// command, read and written in one transaction.
type SyncUseCase struct {
	db db.Database
}

func NewSyncUseCase(database db.Database) *SyncUseCase {
	return &SyncUseCase{db: database}
}

func (uc *SyncUseCase) Poll(ctx context.Context) (*PollResult, error) {
	var result PollResult
	err := uc.db.Transaction(ctx, func(tx db.Database) error {
		repos := repositories.New(tx)

		settings, err := NewSettingsUseCase(repos.Settings).Get(ctx)
		if err != nil {
			return err
		}
		cmd, _, err := NewCommandsUseCase(repos.Commands).DrainPending(ctx)
		if err != nil {
			return err
		}

		result.Settings = *settings
		result.Command = cmd
		return nil
	})
	if err != nil {
		return nil, storeError("poll", err)
	}
	return &result, nil
}
