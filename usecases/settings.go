package usecases

import (
	"context"
	"log/slog"
	"time"

	"github.com/plantCo2/water-device/entities"
	"github.com/plantCo2/water-device/logging"
	"github.com/plantCo2/water-device/repositories"
)

// SettingsInput replaces every mutable settings field. All are required.
type SettingsInput struct {
	Threshold        *int
	WateringDuration *int
	TimerEnabled     *bool
	TimerHour        *int
	TimerMinute      *int
}

type SettingsUseCase struct {
	repo repositories.SettingsRepository
	now  func() time.Time
	log  *slog.Logger
}

func NewSettingsUseCase(repo repositories.SettingsRepository) *SettingsUseCase {
	return &SettingsUseCase{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
		log:  logging.Component("settings"),
	}
}

// Get returns the settings, creating the defaults on first access.
func (uc *SettingsUseCase) Get(ctx context.Context) (*entities.Settings, error) {
	s, err := uc.repo.GetOrCreate(ctx)
	if err != nil {
		return nil, storeError("get settings", err)
	}
	return s, nil
}

func (uc *SettingsUseCase) Update(ctx context.Context, in SettingsInput) (*entities.Settings, error) {
	if err := validateSettings(in); err != nil {
		return nil, err
	}

	s := &entities.Settings{
		ID:                entities.SettingsID,
		MoistureThreshold: *in.Threshold,
		WateringDuration:  *in.WateringDuration,
		TimerEnabled:      *in.TimerEnabled,
		TimerHour:         *in.TimerHour,
		TimerMinute:       *in.TimerMinute,
		LastUpdated:       uc.now(),
	}
	if err := uc.repo.Replace(ctx, s); err != nil {
		return nil, storeError("update settings", err)
	}
	uc.log.Info("settings updated",
		"threshold", s.MoistureThreshold,
		"watering_duration", s.WateringDuration,
		"timer_enabled", s.TimerEnabled,
		"timer", time.Duration(s.TimerHour)*time.Hour+time.Duration(s.TimerMinute)*time.Minute)
	return s, nil
}

func validateSettings(in SettingsInput) error {
	switch {
	case in.Threshold == nil:
		return NewValidationError("threshold", "is required")
	case in.WateringDuration == nil:
		return NewValidationError("watering_duration", "is required")
	case in.TimerEnabled == nil:
		return NewValidationError("timer_enabled", "is required")
	case in.TimerHour == nil:
		return NewValidationError("timer_hour", "is required")
	case in.TimerMinute == nil:
		return NewValidationError("timer_minute", "is required")
	case *in.Threshold < 0:
		return NewValidationError("threshold", "must not be negative")
	case *in.WateringDuration < 0:
		return NewValidationError("watering_duration", "must not be negative")
	case *in.TimerHour < 0 || *in.TimerHour > 23:
		return NewValidationError("timer_hour", "must be between 0 and 23")
	case *in.TimerMinute < 0 || *in.TimerMinute > 59:
		return NewValidationError("timer_minute", "must be between 0 and 59")
	}
	return nil
}
