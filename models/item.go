package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a menu item. Menu management itself lives in the admin surface;
// the order core only reads these rows to price cart lines.
type Item struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	BasePrice   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"base_price"`
	Description string          `gorm:"type:text" json:"description"`
	// No column default: gorm would skip the zero value false on insert
	// and the row would come back available.
	IsAvailable bool            `gorm:"not null" json:"is_available"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updated_at"`
}
