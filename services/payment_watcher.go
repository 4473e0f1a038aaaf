package services

import (
	"context"
	"sync"
	"time"

	"github.com/ashtongoh/korii-pos-sys/live"
	"github.com/ashtongoh/korii-pos-sys/models"
	"github.com/ashtongoh/korii-pos-sys/utils"
)

// PaymentWatcher waits for one session to be confirmed, racing the change
// feed against a database poll. Whichever path sees the confirmation first
// settles the watch; the other is torn down before the callback runs, so
// onConfirmed fires exactly once.
type PaymentWatcher struct {
	Payments     *PaymentService
	Hub          *live.Hub
	PollInterval time.Duration
}

func NewPaymentWatcher(payments *PaymentService, hub *live.Hub) *PaymentWatcher {
	return &PaymentWatcher{
		Payments:     payments,
		Hub:          hub,
		PollInterval: 3 * time.Second,
	}
}

// Watch blocks until the session is confirmed or ctx is done. onConfirmed
// runs on the winning goroutine after the loser is cancelled.
func (w *PaymentWatcher) Watch(ctx context.Context, sessionID string, onConfirmed func()) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, unsubscribe := w.Hub.Subscribe(live.TablePaymentSessions, sessionID)
	defer unsubscribe()

	var once sync.Once
	settle := func(source string) {
		once.Do(func() {
			cancel()
			utils.InfoLogger.Printf("session %s confirmation seen via %s", sessionID, source)
			onConfirmed()
		})
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Status == models.SessionStatusConfirmed {
					settle("push")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(w.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				session, err := w.Payments.SessionStatus(sessionID)
				if err != nil {
					utils.ErrorLogger.Printf("poll session %s: %v", sessionID, err)
					continue
				}
				if session.Status == models.SessionStatusConfirmed {
					settle("poll")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
}
