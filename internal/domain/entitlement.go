/**
 * @description
 * This file defines the persisted entitlement models: the free-tier usage
 * counter and the subscription record maintained by the billing collaborator.
 */
package domain

import "time"

// APIUsage is the per-user free-tier counter. One row per user, created
// lazily on the first generation call and only ever incremented.
type APIUsage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subscription mirrors the billing provider's view of a user's plan.
// Rows are written by the billing-event consumer; the entitlement gate
// only ever reads them.
type Subscription struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	CustomerID       string    `json:"customer_id"`
	SubscriptionID   string    `json:"subscription_id"`
	PriceID          string    `json:"price_id"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
	Status           string    `json:"status"` // 'active', 'canceled', 'lapsed'
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// UsageStatus is the DTO returned by GET /api/limit so the frontend can
// render the free-tier counter and decide whether to show the upgrade modal.
type UsageStatus struct {
	Count int  `json:"count"`
	Limit int  `json:"limit"`
	IsPro bool `json:"is_pro"`
}

// SubscriptionEvent is the payload published by the billing webhook
// collaborator on the billing.events exchange.
type SubscriptionEvent struct {
	UserID           string `json:"user_id"`
	CustomerID       string `json:"customer_id"`
	SubscriptionID   string `json:"subscription_id"`
	PriceID          string `json:"price_id"`
	CurrentPeriodEnd int64  `json:"current_period_end"` // unix seconds
	Status           string `json:"status"`
}
