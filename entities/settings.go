package entities

import (
	"time"

	"gorm.io/gorm"
)

// SettingsID is the primary key of the only settings row.
const SettingsID uint = 1

// Defaults applied when the settings row is created lazily.
const (
	DefaultMoistureThreshold = 500
	DefaultWateringDuration  = 10
	DefaultTimerHour         = 6
	DefaultTimerMinute       = 0
)

// Settings is the singleton irrigation configuration served to the device.
type Settings struct {
	ID                uint      `json:"-" gorm:"primaryKey;autoIncrement:false"`
	MoistureThreshold int       `json:"threshold" gorm:"not null"`
	WateringDuration  int       `json:"watering_duration" gorm:"not null"`
	TimerEnabled      bool      `json:"timer_enabled" gorm:"not null"`
	TimerHour         int       `json:"timer_hour" gorm:"not null"`
	TimerMinute       int       `json:"timer_minute" gorm:"not null"`
	LastUpdated       time.Time `json:"last_updated" gorm:"not null"`
}

func (Settings) TableName() string { return "settings" }

// DefaultSettings returns the record created on first access.
func DefaultSettings() Settings {
	return Settings{
		ID:                SettingsID,
		MoistureThreshold: DefaultMoistureThreshold,
		WateringDuration:  DefaultWateringDuration,
		TimerEnabled:      false,
		TimerHour:         DefaultTimerHour,
		TimerMinute:       DefaultTimerMinute,
	}
}

func (s *Settings) BeforeCreate(tx *gorm.DB) (err error) {
	s.ID = SettingsID
	if s.LastUpdated.IsZero() {
		s.LastUpdated = time.Now().UTC()
	}
	return nil
}
