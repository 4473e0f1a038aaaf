package database

import (
	_ "embed"
	"strings"

	"gorm.io/gorm"

	"github.com/ashtongoh/korii-pos-sys/utils"
)

//go:embed migrations/triggers.sql
var triggerSQL string

// ExecuteTriggers installs the change feed function and triggers. The file
// uses "-- split" markers between statements because the function body
// contains semicolons.
func ExecuteTriggers(db *gorm.DB) error {
	for _, stmt := range strings.Split(triggerSQL, "-- split") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := db.Exec(stmt).Error; err != nil {
			utils.ErrorLogger.Printf("executing trigger statement: %v", err)
			return err
		}
	}

	var triggers []struct {
		TriggerName string
		EventType   string
		TableName   string
	}
	db.Raw(`
        SELECT
            trigger_name,
            event_manipulation AS event_type,
            event_object_table AS table_name
        FROM information_schema.triggers
        WHERE trigger_schema = current_schema()
    `).Scan(&triggers)

	for _, t := range triggers {
		utils.InfoLogger.Printf("trigger verified: %s (%s on %s)",
			t.TriggerName, t.EventType, t.TableName)
	}
	return nil
}
