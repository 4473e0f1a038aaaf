package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment session statuses
const (
	SessionStatusPending   = "pending"
	SessionStatusConfirmed = "confirmed"
	SessionStatusExpired   = "expired"
	SessionStatusFailed    = "failed"
)

// SessionExpiry is the gateway-side QR validity window.
const SessionExpiry = 15 * time.Minute

// PaymentSession tracks one QR payment attempt for an order. It is kept
// separate from the order so a failed or retried gateway call never touches
// the order row. SessionID matches Order.SessionID; the webhook may also
// echo only the provider-assigned GatewayPaymentID.
type PaymentSession struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	SessionID        string          `gorm:"type:varchar(36);uniqueIndex;not null" json:"session_id"`
	OrderID          uint            `gorm:"not null;index" json:"order_id"`
	Order            Order           `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	QRData           string          `gorm:"type:text" json:"qr_data"`
	GatewayPaymentID string          `gorm:"type:varchar(64);index" json:"gateway_payment_id"`
	GatewayURL       string          `gorm:"type:varchar(255)" json:"gateway_url"`
	Amount           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Status           string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ExpiresAt        time.Time       `gorm:"not null" json:"expires_at"`
	ConfirmedAt      *time.Time      `json:"confirmed_at,omitempty"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
}
