package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Customization is one chosen option on an order line, copied out of the
// menu at the moment the order is placed.
type Customization struct {
	GroupID       uint            `json:"group_id"`
	GroupName     string          `json:"group_name"`
	OptionID      uint            `json:"option_id"`
	OptionName    string          `json:"option_name"`
	PriceModifier decimal.Decimal `json:"price_modifier"`
}

// CustomizationList is stored as a JSON column so the order keeps its own
// copy of the chosen options. Editing or deleting a menu item later must
// not change how historical orders render.
type CustomizationList []Customization

func (cl CustomizationList) Value() (driver.Value, error) {
	if cl == nil {
		cl = CustomizationList{}
	}
	return json.Marshal(cl)
}

func (cl *CustomizationList) Scan(value interface{}) error {
	if value == nil {
		*cl = CustomizationList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, cl)
	case string:
		return json.Unmarshal([]byte(v), cl)
	default:
		return fmt.Errorf("unsupported customizations column type %T", value)
	}
}

type OrderItem struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OrderID uint `gorm:"not null;index" json:"order_id"`
	// Omitting Order field from JSON to avoid recursive nesting
	Order          Order             `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	ItemID         uint              `gorm:"not null" json:"item_id"`
	Item           Item              `gorm:"foreignKey:ItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"item"`
	Quantity       int               `gorm:"not null" json:"quantity"`
	Customizations CustomizationList `gorm:"type:json" json:"customizations"`
	LineTotal      decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"line_total"`
	CreatedAt      time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null" json:"updated_at"`
}
