package events

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"lagoonstay/pkg/logger"
	"lagoonstay/pkg/model"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Service: "events-test", Output: io.Discard})
}

func TestBroadcaster_PublishReachesSubscriber(t *testing.T) {
	b := NewBroadcaster(4, testLogger())
	defer b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(model.Event{
		Name:      model.EventBookingCreated,
		BookingID: "bk-1",
		Status:    model.StatusConfirmed,
		At:        time.Now(),
	})

	select {
	case payload := <-ch:
		var got model.Event
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if got.Name != model.EventBookingCreated {
			t.Errorf("event name = %q, want %q", got.Name, model.EventBookingCreated)
		}
		if got.BookingID != "bk-1" {
			t.Errorf("booking id = %q, want bk-1", got.BookingID)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBroadcaster_PublishNeverBlocks(t *testing.T) {
	b := NewBroadcaster(1, testLogger())
	defer b.Close()

	_, cancel := b.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Buffer holds one event; the rest must be dropped, not queued.
		for i := 0; i < 10; i++ {
			b.Publish(model.Event{Name: model.EventBookingCreated, BookingID: "bk-slow"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestBroadcaster_CancelRemovesSubscriber(t *testing.T) {
	b := NewBroadcaster(4, testLogger())
	defer b.Close()

	_, cancel := b.Subscribe()
	if got := b.SubscriberCount(); got != 1 {
		t.Fatalf("subscriber count = %d, want 1", got)
	}

	cancel()
	if got := b.SubscriberCount(); got != 0 {
		t.Errorf("subscriber count after cancel = %d, want 0", got)
	}

	// Second cancel is a no-op.
	cancel()
}

func TestBroadcaster_CloseClosesChannels(t *testing.T) {
	b := NewBroadcaster(4, testLogger())

	ch, _ := b.Subscribe()
	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}

	// Publish after close must not panic.
	b.Publish(model.Event{Name: model.EventBookingCancelled})
}
