package usecases

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/plantCo2/water-device/entities"
	"github.com/plantCo2/water-device/logging"
	"github.com/plantCo2/water-device/repositories"
)

// ReadingInput is an ingest request. Nil means the field was absent.
type ReadingInput struct {
	Temperature  *float64
	Humidity     *float64
	SoilMoisture *int
	WaterFlow    *float64
	ValveState   *bool
	Timestamp    *time.Time
}

type ReadingsUseCase struct {
	repo repositories.ReadingRepository
	now  func() time.Time
	log  *slog.Logger
}

func NewReadingsUseCase(repo repositories.ReadingRepository) *ReadingsUseCase {
	return &ReadingsUseCase{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
		log:  logging.Component("readings"),
	}
}

// Ingest validates and stores a sample. The server clock stamps samples
// that carry no timestamp.
func (uc *ReadingsUseCase) Ingest(ctx context.Context, in ReadingInput) (*entities.Reading, error) {
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"temperature", in.Temperature},
		{"humidity", in.Humidity},
		{"water_flow", in.WaterFlow},
	} {
		if f.v == nil {
			return nil, NewValidationError(f.name, "is required")
		}
		if math.IsNaN(*f.v) || math.IsInf(*f.v, 0) {
			return nil, NewValidationError(f.name, "must be a finite number")
		}
	}
	if in.SoilMoisture == nil {
		return nil, NewValidationError("soil_moisture", "is required")
	}

	reading := &entities.Reading{
		Temperature:  *in.Temperature,
		Humidity:     *in.Humidity,
		SoilMoisture: *in.SoilMoisture,
		WaterFlow:    *in.WaterFlow,
	}
	if in.ValveState != nil {
		reading.ValveState = *in.ValveState
	}
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		reading.Timestamp = in.Timestamp.UTC()
	} else {
		reading.Timestamp = uc.now()
	}

	if err := uc.repo.Create(ctx, reading); err != nil {
		return nil, storeError("ingest reading", err)
	}
	uc.log.Debug("reading stored", "id", reading.ID, "soil_moisture", reading.SoilMoisture)
	return reading, nil
}

// Latest returns nil when no reading has been stored yet.
func (uc *ReadingsUseCase) Latest(ctx context.Context) (*entities.Reading, error) {
	reading, err := uc.repo.Latest(ctx)
	if err != nil {
		return nil, storeError("latest reading", err)
	}
	return reading, nil
}

// History returns readings from the last window, newest first.
func (uc *ReadingsUseCase) History(ctx context.Context, window time.Duration) ([]entities.Reading, error) {
	if window <= 0 {
		return nil, NewValidationError("window", "must be positive")
	}
	readings, err := uc.repo.Since(ctx, uc.now().Add(-window))
	if err != nil {
		return nil, storeError("reading history", err)
	}
	return readings, nil
}

// Sweep deletes readings older than the retention window and returns how
// many were removed.
func (uc *ReadingsUseCase) Sweep(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, NewValidationError("retention", "must be positive")
	}
	deleted, err := uc.repo.DeleteBefore(ctx, uc.now().Add(-retention))
	if err != nil {
		return 0, storeError("sweep readings", err)
	}
	return deleted, nil
}
