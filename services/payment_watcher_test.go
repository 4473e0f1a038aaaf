package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ashtongoh/korii-pos-sys/live"
	"github.com/ashtongoh/korii-pos-sys/models"
)

func TestWatchSettlesOnPushEvent(t *testing.T) {
	db := setupTestDB(t)
	_, session := placeQROrder(t, db)
	hub := live.NewHub()

	watcher := NewPaymentWatcher(NewPaymentService(db), hub)
	watcher.PollInterval = time.Hour // poll must not win here

	var calls int32
	done := make(chan struct{})
	go func() {
		watcher.Watch(context.Background(), session.SessionID, func() {
			atomic.AddInt32(&calls, 1)
		})
		close(done)
	}()

	// Give the watcher time to subscribe, then push the confirmation.
	time.Sleep(50 * time.Millisecond)
	hub.Publish(live.Event{
		Table:     live.TablePaymentSessions,
		Action:    models.ChangeUpdate,
		SessionID: session.SessionID,
		Status:    models.SessionStatusConfirmed,
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not settle on push")
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestWatchSettlesOnPollWhenPushIsMissed(t *testing.T) {
	db := setupTestDB(t)
	_, session := placeQROrder(t, db)
	hub := live.NewHub()
	payments := NewPaymentService(db)

	// Confirm directly in the database; no event is ever published.
	_, err := payments.ConfirmPayment(session.SessionID, "req_123")
	assert.NoError(t, err)

	watcher := NewPaymentWatcher(payments, hub)
	watcher.PollInterval = 20 * time.Millisecond

	var calls int32
	done := make(chan struct{})
	go func() {
		watcher.Watch(context.Background(), session.SessionID, func() {
			atomic.AddInt32(&calls, 1)
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not settle on poll")
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestWatchFiresCallbackOnceWhenBothPathsSee(t *testing.T) {
	db := setupTestDB(t)
	_, session := placeQROrder(t, db)
	hub := live.NewHub()
	payments := NewPaymentService(db)

	_, err := payments.ConfirmPayment(session.SessionID, "req_123")
	assert.NoError(t, err)

	watcher := NewPaymentWatcher(payments, hub)
	watcher.PollInterval = 10 * time.Millisecond

	var calls int32
	done := make(chan struct{})
	go func() {
		watcher.Watch(context.Background(), session.SessionID, func() {
			atomic.AddInt32(&calls, 1)
		})
		close(done)
	}()

	// Race the push path against the running poll.
	time.Sleep(5 * time.Millisecond)
	hub.Publish(live.Event{
		Table:     live.TablePaymentSessions,
		Action:    models.ChangeUpdate,
		SessionID: session.SessionID,
		Status:    models.SessionStatusConfirmed,
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not settle")
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestWatchStopsOnContextCancel(t *testing.T) {
	db := setupTestDB(t)
	_, session := placeQROrder(t, db)
	hub := live.NewHub()

	watcher := NewPaymentWatcher(NewPaymentService(db), hub)
	watcher.PollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	done := make(chan struct{})
	go func() {
		watcher.Watch(ctx, session.SessionID, func() {
			atomic.AddInt32(&calls, 1)
		})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestWatchIgnoresOtherSessions(t *testing.T) {
	db := setupTestDB(t)
	_, session := placeQROrder(t, db)
	hub := live.NewHub()

	watcher := NewPaymentWatcher(NewPaymentService(db), hub)
	watcher.PollInterval = time.Hour

	var calls int32
	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		watcher.Watch(ctx, session.SessionID, func() {
			atomic.AddInt32(&calls, 1)
		})
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	hub.Publish(live.Event{
		Table:     live.TablePaymentSessions,
		Action:    models.ChangeUpdate,
		SessionID: "some-other-session",
		Status:    models.SessionStatusConfirmed,
	})

	// Still watching; only the cancel releases it.
	select {
	case <-done:
		t.Fatal("watcher settled on a foreign session")
	case <-time.After(100 * time.Millisecond):
	}
	cancel()
	<-done
	assert.Zero(t, atomic.LoadInt32(&calls))
}
