package services

import (
	"sync"
	"time"

	"github.com/ashtongoh/korii-pos-sys/live"
	"github.com/ashtongoh/korii-pos-sys/models"
	"github.com/ashtongoh/korii-pos-sys/utils"
)

// QueueSynchronizer keeps an in-memory copy of the staff order queue,
// updated incrementally from the change feed with a periodic full refresh
// as the backstop for anything the feed missed.
type QueueSynchronizer struct {
	svc             *OrderService
	Hub             *live.Hub
	RefreshInterval time.Duration

	mu   sync.Mutex
	list []models.Order
	stop chan struct{}
}

func NewQueueSynchronizer(orders *OrderService, hub *live.Hub) *QueueSynchronizer {
	return &QueueSynchronizer{
		svc:             orders,
		Hub:             hub,
		RefreshInterval: 30 * time.Second,
		stop:            make(chan struct{}),
	}
}

// Start seeds the queue and launches the update loop. The subscription is
// taken before the loop goroutine starts so no event published after Start
// returns can be missed.
func (q *QueueSynchronizer) Start() {
	if err := q.Refresh(); err != nil {
		utils.ErrorLogger.Printf("queue seed: %v", err)
	}
	events, unsubscribe := q.Hub.Subscribe(live.TableOrders, "")
	go q.run(events, unsubscribe)
}

// Stop terminates the update loop.
func (q *QueueSynchronizer) Stop() {
	close(q.stop)
}

func (q *QueueSynchronizer) run(events <-chan live.Event, unsubscribe func()) {
	defer unsubscribe()

	ticker := time.NewTicker(q.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			q.applyChange(ev)
		case <-ticker.C:
			if err := q.Refresh(); err != nil {
				utils.ErrorLogger.Printf("queue refresh: %v", err)
			}
		case <-q.stop:
			return
		}
	}
}

// Refresh replaces the queue with the database's view. On error the
// current list stays as it is; stale data beats an empty screen.
func (q *QueueSynchronizer) Refresh() error {
	orders, err := q.svc.QueueOrders()
	if err != nil {
		return err
	}
	q.mu.Lock()
	q.list = orders
	q.mu.Unlock()
	return nil
}

// applyChange folds one feed event into the list. A status outside the
// visible set removes the order (a cancellation or an expiry); anything
// else upserts it, so an order that becomes visible through an update is
// picked up the same way as a fresh insert.
func (q *QueueSynchronizer) applyChange(ev live.Event) {
	if ev.Action == models.ChangeDelete || !models.IsVisibleQueueStatus(ev.Status) {
		q.remove(ev.RecordID)
		return
	}

	order, err := q.svc.GetOrder(ev.RecordID)
	if err != nil {
		utils.ErrorLogger.Printf("queue load order %d: %v", ev.RecordID, err)
		return
	}
	q.upsert(*order)
}

func (q *QueueSynchronizer) remove(orderID uint) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, order := range q.list {
		if order.ID == orderID {
			q.list = append(q.list[:i], q.list[i+1:]...)
			return
		}
	}
}

func (q *QueueSynchronizer) upsert(order models.Order) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, existing := range q.list {
		if existing.ID == order.ID {
			q.list[i] = order
			return
		}
	}
	// New orders join at the end; the list stays oldest first because
	// inserts arrive in creation order.
	q.list = append(q.list, order)
}

// AdvanceStatus moves an order forward optimistically: the local list is
// patched before the database write so the staff screen responds
// immediately, and reverted if the write is rejected.
func (q *QueueSynchronizer) AdvanceStatus(orderID uint, target string) (*models.Order, error) {
	q.mu.Lock()
	var prev *models.Order
	for i := range q.list {
		if q.list[i].ID == orderID {
			saved := q.list[i]
			prev = &saved
			q.list[i].Status = target
			break
		}
	}
	q.mu.Unlock()

	order, err := q.svc.AdvanceOrderStatus(orderID, target)
	if err != nil {
		if prev != nil {
			q.mu.Lock()
			for i := range q.list {
				if q.list[i].ID == orderID {
					q.list[i] = *prev
					break
				}
			}
			q.mu.Unlock()
		}
		return nil, err
	}

	q.upsert(*order)
	return order, nil
}

// Orders returns a snapshot of the queue, oldest first.
func (q *QueueSynchronizer) Orders() []models.Order {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.Order, len(q.list))
	copy(out, q.list)
	return out
}
