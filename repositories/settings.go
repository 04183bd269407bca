package repositories

import (
	"context"
	"errors"

	"github.com/plantCo2/water-device/db"
	"github.com/plantCo2/water-device/entities"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var settingsColumns = []string{
	"moisture_threshold",
	"watering_duration",
	"timer_enabled",
	"timer_hour",
	"timer_minute",
	"last_updated",
}

type settingsRepository struct {
	db db.Database
}

func NewSettingsRepository(database db.Database) SettingsRepository {
	return &settingsRepository{db: database}
}

// GetOrCreate reads the singleton row, inserting the defaults first when it
// is missing. The insert is a no-op if a concurrent caller won the race.
func (r *settingsRepository) GetOrCreate(ctx context.Context) (*entities.Settings, error) {
	var settings entities.Settings
	err := r.db.Transaction(ctx, func(tx db.Database) error {
		err := tx.GetDB().WithContext(ctx).First(&settings, entities.SettingsID).Error
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		defaults := entities.DefaultSettings()
		err = tx.GetDB().WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
			Create(&defaults).Error
		if err != nil {
			return err
		}
		return tx.GetDB().WithContext(ctx).First(&settings, entities.SettingsID).Error
	})
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// Replace writes every mutable field in one upsert statement.
func (r *settingsRepository) Replace(ctx context.Context, settings *entities.Settings) error {
	settings.ID = entities.SettingsID
	return r.db.GetDB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(settingsColumns),
		}).
		Create(settings).Error
}
