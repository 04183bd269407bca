package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/plantCo2/water-device/db"
	"github.com/plantCo2/water-device/entities"

	"gorm.io/gorm"
)

type readingRepository struct {
	db db.Database
}

func NewReadingRepository(database db.Database) ReadingRepository {
	return &readingRepository{db: database}
}

func (r *readingRepository) Create(ctx context.Context, reading *entities.Reading) error {
	return r.db.GetDB().WithContext(ctx).Create(reading).Error
}

func (r *readingRepository) Latest(ctx context.Context) (*entities.Reading, error) {
	var reading entities.Reading
	err := r.db.GetDB().WithContext(ctx).Order("timestamp DESC").Order("id DESC").First(&reading).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

func (r *readingRepository) Since(ctx context.Context, cutoff time.Time) ([]entities.Reading, error) {
	readings := []entities.Reading{}
	err := r.db.GetDB().WithContext(ctx).
		Where("timestamp >= ?", cutoff.UTC()).
		Order("timestamp DESC").Order("id DESC").
		Find(&readings).Error
	return readings, err
}

func (r *readingRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.GetDB().WithContext(ctx).Where("timestamp < ?", cutoff.UTC()).Delete(&entities.Reading{})
	return res.RowsAffected, res.Error
}
