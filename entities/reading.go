package entities

import (
	"time"

	"gorm.io/gorm"
)

// Reading is one sensor sample pushed by the garden device.
type Reading struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Timestamp    time.Time `json:"timestamp" gorm:"index;not null"`
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	SoilMoisture int       `json:"soil_moisture"`
	WaterFlow    float64   `json:"water_flow"`
	ValveState   bool      `json:"valve_state"`
}

func (Reading) TableName() string { return "readings" }

func (r *Reading) BeforeCreate(tx *gorm.DB) (err error) {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	} else {
		r.Timestamp = r.Timestamp.UTC()
	}
	return nil
}
