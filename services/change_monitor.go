package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/ashtongoh/korii-pos-sys/live"
	"github.com/ashtongoh/korii-pos-sys/models"
	"github.com/ashtongoh/korii-pos-sys/utils"
)

// ChangeMonitor turns rows the database triggers append to db_changes into
// hub events. Polling the change table instead of listening on a connection
// keeps delivery working across restarts: unprocessed rows are simply
// picked up on the next tick.
type ChangeMonitor struct {
	DB       *gorm.DB
	Hub      *live.Hub
	Interval time.Duration
	StopChan chan struct{}
}

func NewChangeMonitor(db *gorm.DB, hub *live.Hub) *ChangeMonitor {
	return &ChangeMonitor{
		DB:       db,
		Hub:      hub,
		Interval: time.Second,
		StopChan: make(chan struct{}),
	}
}

// Start launches the polling loop.
func (m *ChangeMonitor) Start() {
	go func() {
		ticker := time.NewTicker(m.Interval)
		defer ticker.Stop()
		utils.InfoLogger.Println("change monitor started")
		for {
			select {
			case <-ticker.C:
				if err := m.ProcessPending(); err != nil {
					utils.ErrorLogger.Printf("change monitor: %v", err)
				}
			case <-m.StopChan:
				utils.InfoLogger.Println("change monitor stopped")
				return
			}
		}
	}()
}

// Stop terminates the polling loop.
func (m *ChangeMonitor) Stop() {
	close(m.StopChan)
}

// ProcessPending drains one batch of unprocessed changes, oldest first,
// publishing each one and marking it processed in the same transaction.
func (m *ChangeMonitor) ProcessPending() error {
	return m.DB.Transaction(func(tx *gorm.DB) error {
		var changes []models.DBChange
		err := tx.Where("processed = ?", false).
			Order("changed_at asc").
			Limit(100).
			Find(&changes).Error
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}

		for _, change := range changes {
			ev, err := m.buildEvent(tx, change)
			if err != nil {
				utils.ErrorLogger.Printf("change %d on %s: %v", change.ID, change.TableName, err)
			} else {
				m.Hub.Publish(ev)
			}
			if err := tx.Model(&models.DBChange{}).
				Where("id = ?", change.ID).
				Update("processed", true).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// buildEvent loads the changed row so subscribers get its current status.
// Deleted rows cannot be loaded, so delete events carry only the id.
func (m *ChangeMonitor) buildEvent(tx *gorm.DB, change models.DBChange) (live.Event, error) {
	ev := live.Event{
		Table:    change.TableName,
		Action:   change.ActionType,
		RecordID: uint(change.RecordID),
	}
	if change.ActionType == models.ChangeDelete {
		return ev, nil
	}

	switch change.TableName {
	case live.TableOrders:
		var order models.Order
		if err := tx.First(&order, change.RecordID).Error; err != nil {
			return ev, err
		}
		ev.SessionID = order.SessionID
		ev.Status = order.Status
	case live.TablePaymentSessions:
		var session models.PaymentSession
		if err := tx.First(&session, change.RecordID).Error; err != nil {
			return ev, err
		}
		ev.SessionID = session.SessionID
		ev.Status = session.Status
	}
	return ev, nil
}
