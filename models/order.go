package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusPreparing = "preparing"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// Payment methods
const (
	PaymentMethodCash = "cash"
	PaymentMethodQR   = "qr"
)

// Order is a placed customer order. SessionID is the client-generated
// correlation token; it is the only key the payment webhook can use to
// find its way back to the order.
type Order struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	SessionID        string          `gorm:"type:varchar(36);uniqueIndex;not null" json:"session_id"`
	CustomerInitials string          `gorm:"type:varchar(3);not null" json:"customer_initials"`
	PaymentMethod    string          `gorm:"type:varchar(10);not null" json:"payment_method"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Status           string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt        time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	OrderItems       []OrderItem     `gorm:"foreignKey:OrderID" json:"order_items"`
}

// VisibleQueueStatuses is the set of order statuses shown on the staff
// queue. Orders still pending payment, and cancelled orders, never appear.
var VisibleQueueStatuses = []string{OrderStatusPaid, OrderStatusPreparing, OrderStatusCompleted}

// IsVisibleQueueStatus reports whether an order in the given status belongs
// on the staff queue.
func IsVisibleQueueStatus(status string) bool {
	for _, s := range VisibleQueueStatuses {
		if s == status {
			return true
		}
	}
	return false
}
