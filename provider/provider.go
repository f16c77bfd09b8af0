package provider

import "time"

/* Typed views of payment provider objects
 * The engine only ever reads provider state; it never mutates it
 */

// CheckoutSession is a completed checkout flow
type CheckoutSession struct {
	ID             string `json:"id"`
	CustomerID     string `json:"customer"`
	SubscriptionID string `json:"subscription"`
	Status         string `json:"status"`
	AmountTotal    int64  `json:"amount_total"`
	Currency       string `json:"currency"`
}

// Subscription is a recurring billing agreement
type Subscription struct {
	ID                string    `json:"id"`
	CustomerID        string    `json:"customer"`
	PriceID           string    `json:"price_id"`
	Status            string    `json:"status"`
	CancelAtPeriodEnd bool      `json:"cancel_at_period_end"`
	CurrentPeriodEnd  time.Time `json:"current_period_end"`
}

// Customer is the billing identity behind a subscription
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Invoice is a single billing attempt outcome
type Invoice struct {
	ID             string `json:"id"`
	CustomerID     string `json:"customer"`
	SubscriptionID string `json:"subscription"`
	Status         string `json:"status"`
	AmountDue      int64  `json:"amount_due"`
	AmountPaid     int64  `json:"amount_paid"`
	Currency       string `json:"currency"`
	AttemptCount   int    `json:"attempt_count"`
}
