package events

import (
	"testing"
	"time"

	"github.com/voxhub/toolproxy/internal/domain"
)

func TestPublishReachesSessionSubscribers(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("sess_1")
	defer cancel()

	hub.Publish(StepEvent{SessionID: "sess_1", ToolSlug: "GMAIL_SEND_EMAIL", Status: string(domain.StepSucceeded)})

	select {
	case ev := <-ch:
		if ev.ToolSlug != "GMAIL_SEND_EMAIL" {
			t.Errorf("Unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("Subscriber never received the event")
	}
}

func TestPublishIsScopedBySession(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("sess_1")
	defer cancel()

	hub.Publish(StepEvent{SessionID: "sess_other", ToolSlug: "SLACK_POST_MESSAGE"})

	select {
	case ev := <-ch:
		t.Errorf("Received event for another session: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe("sess_1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Overflow the subscriber buffer; extra events must be dropped.
		for i := 0; i < subscriberBuffer*3; i++ {
			hub.Publish(StepEvent{SessionID: "sess_1", ToolSlug: "GMAIL_SEND_EMAIL"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestUnsubscribeRemovesObserver(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe("sess_1")
	if hub.SubscriberCount("sess_1") != 1 {
		t.Fatalf("Expected 1 subscriber, got %d", hub.SubscriberCount("sess_1"))
	}

	cancel()
	if hub.SubscriberCount("sess_1") != 0 {
		t.Errorf("Expected 0 subscribers after cancel, got %d", hub.SubscriberCount("sess_1"))
	}
}
