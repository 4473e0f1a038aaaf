package services

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ashtongoh/korii-pos-sys/cart"
	"github.com/ashtongoh/korii-pos-sys/models"
	"github.com/ashtongoh/korii-pos-sys/utils"
)

var (
	ErrEmptyCart       = errors.New("cannot place an order with an empty cart")
	ErrInvalidInitials = errors.New("customer initials must be 2-3 letters")
	ErrOrderNotFound   = errors.New("order not found")
)

// InvalidTransitionError reports a status change outside the allowed
// lifecycle. From holds the status found in the database at rejection time.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition %s -> %s", e.From, e.To)
}

// Staff can only move an order forward through preparation. Payment is the
// sole path into paid, and cancellation happens through session expiry.
var validTransitions = map[string][]string{
	models.OrderStatusPaid:      {models.OrderStatusPreparing},
	models.OrderStatusPreparing: {models.OrderStatusCompleted},
}

var initialsPattern = regexp.MustCompile(`^[A-Za-z]{2,3}$`)

type OrderService struct {
	DB *gorm.DB
}

func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{DB: db}
}

// PlaceOrder writes the order, its item snapshots and (for QR payment) a
// pending payment session in a single transaction. Cash orders are paid at
// the counter and enter the queue immediately.
func (s *OrderService) PlaceOrder(lines []cart.Line, initials, paymentMethod string) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if !initialsPattern.MatchString(initials) {
		return nil, ErrInvalidInitials
	}
	if paymentMethod != models.PaymentMethodCash && paymentMethod != models.PaymentMethodQR {
		return nil, fmt.Errorf("unsupported payment method %q", paymentMethod)
	}

	status := models.OrderStatusPending
	if paymentMethod == models.PaymentMethodCash {
		status = models.OrderStatusPaid
	}

	order := &models.Order{
		SessionID:        uuid.NewString(),
		CustomerInitials: initials,
		PaymentMethod:    paymentMethod,
		TotalAmount:      cart.CartTotal(lines),
		Status:           status,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		for _, line := range lines {
			item := models.OrderItem{
				OrderID:        order.ID,
				ItemID:         line.Item.ID,
				Quantity:       line.Quantity,
				Customizations: models.CustomizationList(line.Customizations),
				LineTotal:      line.LineTotal,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}
		if paymentMethod == models.PaymentMethodQR {
			session := models.PaymentSession{
				SessionID: order.SessionID,
				OrderID:   order.ID,
				QRData:    "pending_gateway",
				Amount:    order.TotalAmount,
				Status:    models.SessionStatusPending,
				ExpiresAt: time.Now().Add(models.SessionExpiry),
			}
			if err := tx.Create(&session).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.ErrorLogger.Printf("place order for %s: %v", initials, err)
		return nil, err
	}

	utils.InfoLogger.Printf("order %d placed (%s, %s, total %s)",
		order.ID, initials, paymentMethod, order.TotalAmount.StringFixed(2))
	return order, nil
}

// AdvanceOrderStatus moves an order to target only when the allow-list
// permits it from the order's current status. The update is conditional on
// the status it was checked against, so two concurrent staff actions cannot
// both succeed: the loser re-reads and gets an InvalidTransitionError
// carrying the status that actually won.
func (s *OrderService) AdvanceOrderStatus(orderID uint, target string) (*models.Order, error) {
	var order models.Order
	if err := s.DB.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if !transitionAllowed(order.Status, target) {
		return nil, &InvalidTransitionError{From: order.Status, To: target}
	}

	updates := map[string]interface{}{"status": target}
	if target == models.OrderStatusCompleted {
		now := time.Now()
		updates["completed_at"] = &now
	}

	res := s.DB.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, order.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Someone else changed the row between our read and update.
		var current models.Order
		if err := s.DB.First(&current, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrOrderNotFound
			}
			return nil, err
		}
		return nil, &InvalidTransitionError{From: current.Status, To: target}
	}

	if err := s.DB.First(&order, orderID).Error; err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("order %d advanced to %s", orderID, target)
	return &order, nil
}

// GetOrder loads an order with its item snapshots.
func (s *OrderService) GetOrder(orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.DB.Preload("OrderItems.Item").First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetOrderBySession resolves the customer-facing session id to its order.
func (s *OrderService) GetOrderBySession(sessionID string) (*models.Order, error) {
	var order models.Order
	err := s.DB.Preload("OrderItems.Item").
		Where("session_id = ?", sessionID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// QueueOrders returns the orders the staff queue shows: paid, preparing or
// completed within the last 24 hours, oldest first.
func (s *OrderService) QueueOrders() ([]models.Order, error) {
	var orders []models.Order
	cutoff := time.Now().Add(-24 * time.Hour)
	err := s.DB.Preload("OrderItems.Item").
		Where("status IN ? AND created_at >= ?", models.VisibleQueueStatuses, cutoff).
		Order("created_at asc, id asc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
