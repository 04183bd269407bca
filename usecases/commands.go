package usecases

import (
	"context"
	"log/slog"

	"github.com/plantCo2/water-device/entities"
	"github.com/plantCo2/water-device/logging"
	"github.com/plantCo2/water-device/repositories"
)

// MaxRecentCommands caps the audit log listing.
const MaxRecentCommands = 500

type CommandsUseCase struct {
	repo repositories.CommandRepository
	log  *slog.Logger
}

func NewCommandsUseCase(r repositories.CommandRepository) *CommandsUseCase {
	return &CommandsUseCase{repo: r, log: logging.Component("commands")}
}

// Submit queues a valve command. An empty type means manual.
func (uc *CommandsUseCase) Submit(ctx context.Context, valveState bool, duration int, commandType entities.CommandType) (*entities.Command, error) {
	if commandType == "" {
		commandType = entities.CommandManual
	}
	if !commandType.Valid() {
		return nil, NewValidationError("type", "must be one of manual, timer, moisture")
	}
	if duration < 0 {
		return nil, NewValidationError("duration", "must not be negative")
	}

	cmd := &entities.Command{
		ValveState:  valveState,
		Duration:    duration,
		CommandType: commandType,
	}
	if err := uc.repo.Enqueue(ctx, cmd); err != nil {
		return nil, storeError("submit command", err)
	}
	uc.log.Info("command queued", "id", cmd.ID, "valve_state", valveState, "duration", duration, "type", commandType)
	return cmd, nil
}

// DrainPending marks every pending command executed and returns the most
// recent one, or nil when the queue is empty. Older pending commands are
// superseded and never delivered.
func (uc *CommandsUseCase) DrainPending(ctx context.Context) (*entities.Command, int, error) {
	cmd, drained, err := uc.repo.DrainPending(ctx)
	if err != nil {
		return nil, 0, storeError("drain commands", err)
	}
	if cmd != nil {
		uc.log.Info("commands drained", "delivered", cmd.ID, "superseded", drained-1)
	}
	return cmd, drained, nil
}

func (uc *CommandsUseCase) Pending(ctx context.Context) ([]entities.Command, error) {
	cmds, err := uc.repo.Pending(ctx)
	if err != nil {
		return nil, storeError("pending commands", err)
	}
	return cmds, nil
}

func (uc *CommandsUseCase) Recent(ctx context.Context, limit int) ([]entities.Command, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > MaxRecentCommands {
		limit = MaxRecentCommands
	}
	cmds, err := uc.repo.Recent(ctx, limit)
	if err != nil {
		return nil, storeError("recent commands", err)
	}
	return cmds, nil
}
