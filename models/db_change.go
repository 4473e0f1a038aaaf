package models

import (
	"time"
)

// Change-feed action types, matching the trigger's TG_OP.
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// DBChange is one row of the change feed. Triggers on the watched tables
// append a row per mutation; the change monitor drains unprocessed rows in
// order and fans them out to subscribers.
type DBChange struct {
	ID         uint      `gorm:"primaryKey"`
	TableName  string    `gorm:"type:varchar(50);not null;index:idx_table_action"`
	RecordID   int64     `gorm:"not null"`
	ActionType string    `gorm:"type:varchar(10);not null;index:idx_table_action"`
	ChangedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	Processed  bool      `gorm:"default:false;index:idx_processed"`
}
