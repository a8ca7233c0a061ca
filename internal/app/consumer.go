package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/aihub/generation-service/internal/domain"
)

// BillingEventConsumer ingests subscription lifecycle events published by the
// billing webhook collaborator and keeps the local subscription rows current.
// The entitlement gate only ever reads what this consumer writes.
type BillingEventConsumer struct {
	repo Repository
}

func NewBillingEventConsumer(repo Repository) *BillingEventConsumer {
	return &BillingEventConsumer{repo: repo}
}

// HandleSubscriptionUpdated processes subscription.updated events. Returning
// true acknowledges the message; false re-queues it for another attempt.
func (c *BillingEventConsumer) HandleSubscriptionUpdated(body []byte) bool {
	event, ok := decodeSubscriptionEvent(body)
	if !ok {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := c.applyUpdate(ctx, event); err != nil {
		log.Printf("billing-consumer: processing error for user %s: %v", event.UserID, err)
		return false
	}
	return true
}

// HandleSubscriptionDeleted processes subscription.deleted events by marking
// the row canceled. The row is kept so the user stays entitled until the paid
// period actually runs out.
func (c *BillingEventConsumer) HandleSubscriptionDeleted(body []byte) bool {
	event, ok := decodeSubscriptionEvent(body)
	if !ok {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	event.Status = "canceled"
	if err := c.applyUpdate(ctx, event); err != nil {
		log.Printf("billing-consumer: processing error for user %s: %v", event.UserID, err)
		return false
	}
	return true
}

func (c *BillingEventConsumer) applyUpdate(ctx context.Context, event domain.SubscriptionEvent) error {
	status := event.Status
	if status == "" {
		status = "active"
	}

	sub := &domain.Subscription{
		UserID:           event.UserID,
		CustomerID:       event.CustomerID,
		SubscriptionID:   event.SubscriptionID,
		PriceID:          event.PriceID,
		CurrentPeriodEnd: time.Unix(event.CurrentPeriodEnd, 0).UTC(),
		Status:           status,
	}

	if _, err := c.repo.UpsertSubscription(ctx, sub); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// decodeSubscriptionEvent unmarshals and validates an event payload.
// Malformed payloads are dropped rather than re-queued; they will never
// become valid.
func decodeSubscriptionEvent(body []byte) (domain.SubscriptionEvent, bool) {
	var event domain.SubscriptionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("billing-consumer: failed to unmarshal payload: %v", err)
		return event, false
	}
	if event.UserID == "" {
		log.Printf("billing-consumer: missing user id in event %+v", event)
		return event, false
	}
	return event, true
}
