package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ashtongoh/korii-pos-sys/models"
	"github.com/ashtongoh/korii-pos-sys/utils"
)

var ErrSessionNotFound = errors.New("payment session not found")

// PaymentService owns the payment session lifecycle: confirmation from
// webhooks, status reads for the customer poller, and expiry of abandoned
// sessions.
type PaymentService struct {
	DB            *gorm.DB
	SweepInterval time.Duration
	StopChan      chan struct{}
}

func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{
		DB:            db,
		SweepInterval: time.Minute,
		StopChan:      make(chan struct{}),
	}
}

// IsSuccessStatus reports whether a gateway webhook status means the
// customer's money arrived.
func IsSuccessStatus(status string) bool {
	return status == "completed" || status == "succeeded"
}

// ConfirmResult tells the webhook handler what happened: which session was
// settled, and whether this delivery was a duplicate.
type ConfirmResult struct {
	SessionID        string
	AlreadyProcessed bool
}

// ConfirmPayment settles the session a successful webhook refers to. The
// gateway retries deliveries, so a session that is already confirmed is
// acknowledged without touching the database again.
func (s *PaymentService) ConfirmPayment(referenceNumber, paymentRequestID string) (*ConfirmResult, error) {
	session, err := s.lookupSession(referenceNumber, paymentRequestID)
	if err != nil {
		return nil, err
	}

	if session.Status == models.SessionStatusConfirmed {
		utils.InfoLogger.Printf("duplicate webhook for session %s ignored", session.SessionID)
		return &ConfirmResult{SessionID: session.SessionID, AlreadyProcessed: true}, nil
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       models.SessionStatusConfirmed,
		"confirmed_at": &now,
	}
	if paymentRequestID != "" && paymentRequestID != "undefined" {
		updates["gateway_payment_id"] = paymentRequestID
	}
	if err := s.DB.Model(&models.PaymentSession{}).
		Where("id = ?", session.ID).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	// The order moves to paid only from pending. If the sweeper cancelled
	// it first the money still came in, so the webhook succeeds and the
	// mismatch is logged for manual follow-up.
	res := s.DB.Model(&models.Order{}).
		Where("id = ? AND status = ?", session.OrderID, models.OrderStatusPending).
		Update("status", models.OrderStatusPaid)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		utils.ErrorLogger.Printf("session %s confirmed but order %d was not pending", session.SessionID, session.OrderID)
	}

	utils.InfoLogger.Printf("session %s confirmed, order %d paid", session.SessionID, session.OrderID)
	return &ConfirmResult{SessionID: session.SessionID}, nil
}

// lookupSession resolves a webhook to its session: by reference number
// first (we set it to the session id when creating the payment request),
// then by the gateway's payment request id.
func (s *PaymentService) lookupSession(referenceNumber, paymentRequestID string) (*models.PaymentSession, error) {
	var session models.PaymentSession

	if referenceNumber != "" && referenceNumber != "undefined" {
		err := s.DB.Where("session_id = ?", referenceNumber).First(&session).Error
		if err == nil {
			return &session, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if paymentRequestID != "" && paymentRequestID != "undefined" {
		err := s.DB.Where("gateway_payment_id = ?", paymentRequestID).First(&session).Error
		if err == nil {
			return &session, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return nil, ErrSessionNotFound
}

// SessionStatus returns the session for the customer-facing status poll.
func (s *PaymentService) SessionStatus(sessionID string) (*models.PaymentSession, error) {
	var session models.PaymentSession
	err := s.DB.Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// AttachGatewayResult saves the gateway's payment request details onto the
// pending session after the QR code is created.
func (s *PaymentService) AttachGatewayResult(sessionID string, res *PaymentRequestResult) error {
	return s.DB.Model(&models.PaymentSession{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"qr_data":            res.QRData,
			"gateway_payment_id": res.GatewayPaymentID,
			"gateway_url":        res.GatewayURL,
			"expires_at":         res.ExpiresAt,
		}).Error
}

// StartExpirySweeper expires pending sessions past their deadline and
// cancels their unpaid orders, on a fixed interval until StopChan closes.
func (s *PaymentService) StartExpirySweeper() {
	go func() {
		ticker := time.NewTicker(s.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.SweepExpired(); err != nil {
					utils.ErrorLogger.Printf("expiry sweep: %v", err)
				}
			case <-s.StopChan:
				return
			}
		}
	}()
}

// SweepExpired runs one expiry pass.
func (s *PaymentService) SweepExpired() error {
	var expired []models.PaymentSession
	err := s.DB.Where("status = ? AND expires_at < ?", models.SessionStatusPending, time.Now()).
		Find(&expired).Error
	if err != nil {
		return err
	}

	for _, session := range expired {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.PaymentSession{}).
				Where("id = ? AND status = ?", session.ID, models.SessionStatusPending).
				Update("status", models.SessionStatusExpired)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Confirmed in the meantime; leave the order alone.
				return nil
			}
			return tx.Model(&models.Order{}).
				Where("id = ? AND status = ?", session.OrderID, models.OrderStatusPending).
				Update("status", models.OrderStatusCancelled).Error
		})
		if err != nil {
			utils.ErrorLogger.Printf("expire session %s: %v", session.SessionID, err)
			continue
		}
		utils.InfoLogger.Printf("session %s expired, order %d cancelled", session.SessionID, session.OrderID)
	}
	return nil
}
