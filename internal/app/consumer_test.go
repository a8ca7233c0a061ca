package app

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aihub/generation-service/internal/domain"
)

func TestHandleSubscriptionUpdatedUpsertsRow(t *testing.T) {
	repo := newFakeRepository()
	consumer := NewBillingEventConsumer(repo)

	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	body, _ := json.Marshal(domain.SubscriptionEvent{
		UserID:           "user-1",
		CustomerID:       "cus_123",
		SubscriptionID:   "sub_123",
		PriceID:          "price_123",
		CurrentPeriodEnd: periodEnd,
	})

	if !consumer.HandleSubscriptionUpdated(body) {
		t.Fatal("expected event to be acknowledged")
	}

	sub := repo.subs["user-1"]
	if sub == nil {
		t.Fatal("expected subscription row to be created")
	}
	if sub.Status != "active" {
		t.Fatalf("status missing from event must default to active, got %q", sub.Status)
	}
	if sub.SubscriptionID != "sub_123" {
		t.Fatalf("unexpected subscription id %q", sub.SubscriptionID)
	}
	if sub.CurrentPeriodEnd.Unix() != periodEnd {
		t.Fatalf("period end mismatch: %v", sub.CurrentPeriodEnd)
	}
}

func TestHandleSubscriptionDeletedMarksCanceled(t *testing.T) {
	repo := newFakeRepository()
	repo.subs["user-1"] = activeSubscription("user-1")
	consumer := NewBillingEventConsumer(repo)

	body, _ := json.Marshal(domain.SubscriptionEvent{
		UserID:           "user-1",
		SubscriptionID:   "sub_123",
		CurrentPeriodEnd: time.Now().Add(10 * 24 * time.Hour).Unix(),
	})

	if !consumer.HandleSubscriptionDeleted(body) {
		t.Fatal("expected event to be acknowledged")
	}
	if got := repo.subs["user-1"].Status; got != "canceled" {
		t.Fatalf("expected canceled status, got %q", got)
	}
}

func TestMalformedEventsAreDroppedNotRequeued(t *testing.T) {
	repo := newFakeRepository()
	consumer := NewBillingEventConsumer(repo)

	tests := []struct {
		name string
		body []byte
	}{
		{name: "invalid json", body: []byte("{not json")},
		{name: "missing user id", body: []byte(`{"subscription_id":"sub_123"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !consumer.HandleSubscriptionUpdated(tt.body) {
				t.Fatal("malformed payloads must be acknowledged, re-queuing cannot fix them")
			}
			if len(repo.subs) != 0 {
				t.Fatal("no row may be written for a malformed payload")
			}
		})
	}
}

func TestLapseExpiredSubscriptionsJob(t *testing.T) {
	repo := newFakeRepository()
	expired := activeSubscription("expired-user")
	expired.CurrentPeriodEnd = time.Now().Add(-72 * time.Hour)
	repo.subs["expired-user"] = expired
	repo.subs["current-user"] = activeSubscription("current-user")

	jobs := NewJobs(repo, discardLogger())
	jobs.LapseExpiredSubscriptions()

	if got := repo.subs["expired-user"].Status; got != "lapsed" {
		t.Fatalf("expected expired subscription to lapse, got %q", got)
	}
	if got := repo.subs["current-user"].Status; got != "active" {
		t.Fatalf("current subscription must stay active, got %q", got)
	}
}
