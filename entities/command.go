package entities

import (
	"time"

	"gorm.io/gorm"
)

// CommandType records what produced a valve command.
type CommandType string

const (
	CommandManual   CommandType = "manual"
	CommandTimer    CommandType = "timer"
	CommandMoisture CommandType = "moisture"
)

// Valid reports whether t is one of the known command types.
func (t CommandType) Valid() bool {
	switch t {
	case CommandManual, CommandTimer, CommandMoisture:
		return true
	}
	return false
}

// Command is a queued intent to set the valve. Executed only ever goes
// from false to true; rows are kept as an audit log.
type Command struct {
	ID          uint        `json:"id" gorm:"primaryKey;autoIncrement"`
	ValveState  bool        `json:"valve_state" gorm:"not null"`
	Duration    int         `json:"duration" gorm:"not null"`
	Executed    bool        `json:"executed" gorm:"not null;index:idx_commands_pending,priority:1"`
	Timestamp   time.Time   `json:"timestamp" gorm:"not null;index:idx_commands_pending,priority:2"`
	CommandType CommandType `json:"command_type" gorm:"type:varchar(16);not null"`
}

func (Command) TableName() string { return "commands" }

func (c *Command) BeforeCreate(tx *gorm.DB) (err error) {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	if c.CommandType == "" {
		c.CommandType = CommandManual
	}
	c.Executed = false
	return nil
}
