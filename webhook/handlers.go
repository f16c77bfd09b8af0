package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/marcelsud/webhook-engine/audit"
	"github.com/marcelsud/webhook-engine/plans"
	"github.com/marcelsud/webhook-engine/provider"
	"github.com/marcelsud/webhook-engine/webhook/breaker"
	"github.com/marcelsud/webhook-engine/webhook/retry"
	"github.com/rs/zerolog"
)

// Provider event types with a registered handler
const (
	EventCheckoutCompleted    = "checkout.session.completed"
	EventSubscriptionCreated  = "customer.subscription.created"
	EventSubscriptionUpdated  = "customer.subscription.updated"
	EventSubscriptionCanceled = "customer.subscription.deleted"
	EventPaymentSucceeded     = "invoice.paid"
	EventPaymentFailed        = "invoice.payment_failed"
)

// Audit actions emitted by the handlers
const (
	ActionCheckoutCompleted    = "checkout_completed"
	ActionSubscriptionCreated  = "subscription_created"
	ActionSubscriptionUpdated  = "subscription_updated"
	ActionSubscriptionCanceled = "subscription_canceled"
	ActionPaymentSucceeded     = "payment_succeeded"
	ActionPaymentFailed        = "payment_failed"
)

const (
	usersCollection    = "users"
	paymentsCollection = "payments"
)

// Provider retrieves full payment provider objects by ID. Read-only.
type Provider interface {
	CheckoutSession(ctx context.Context, id string) (provider.CheckoutSession, error)
	Subscription(ctx context.Context, id string) (provider.Subscription, error)
	Customer(ctx context.Context, id string) (provider.Customer, error)
	Invoice(ctx context.Context, id string) (provider.Invoice, error)
}

// Backend is the downstream content/user store the handlers write to
type Backend interface {
	Find(ctx context.Context, collection string, filter map[string]string) ([]map[string]any, error)
	Create(ctx context.Context, collection string, doc map[string]any) (map[string]any, error)
	Update(ctx context.Context, collection, id string, patch map[string]any) (map[string]any, error)
}

/* Handlers holds the per-event-type business logic
 * Provider reads run under the retry executor; backend writes additionally
 * go through the circuit breaker (breaker inside retry, so an open breaker
 * classifies as non-retryable and stops the retry loop instead of hammering
 * an unhealthy dependency)
 * Handlers never mark ledger records completed or failed - that is the
 * processor's single point of truth
 */
type Handlers struct {
	provider Provider
	backend  Backend
	breaker  *breaker.Breaker
	policy   retry.Policy
	trail    audit.Trail
	plans    *plans.Loader
	logger   zerolog.Logger
}

// NewHandlers creates the handler set with dependency injection
func NewHandlers(p Provider, b Backend, br *breaker.Breaker, policy retry.Policy, trail audit.Trail, planMap *plans.Loader, logger zerolog.Logger) *Handlers {
	return &Handlers{
		provider: p,
		backend:  b,
		breaker:  br,
		policy:   policy,
		trail:    trail,
		plans:    planMap,
		logger:   logger,
	}
}

// Register wires every handler into the router
func (h *Handlers) Register(r *Router) {
	r.HandleFunc(EventCheckoutCompleted, h.CheckoutCompleted)
	r.HandleFunc(EventSubscriptionCreated, h.SubscriptionCreated)
	r.HandleFunc(EventSubscriptionUpdated, h.SubscriptionUpdated)
	r.HandleFunc(EventSubscriptionCanceled, h.SubscriptionCanceled)
	r.HandleFunc(EventPaymentSucceeded, h.PaymentSucceeded)
	r.HandleFunc(EventPaymentFailed, h.PaymentFailed)
}

// CheckoutCompleted provisions the account after a successful checkout
func (h *Handlers) CheckoutCompleted(ctx context.Context, event Event) error {
	sessionID, err := objectID(event)
	if err != nil {
		return err
	}

	session, err := retry.Do(ctx, h.logger, h.policy, event.ID, func(ctx context.Context) (provider.CheckoutSession, error) {
		return h.provider.CheckoutSession(ctx, sessionID)
	})
	if err != nil {
		return fmt.Errorf("retrieving checkout session: %w", err)
	}

	plan := h.plans.Default()
	if session.SubscriptionID != "" {
		sub, err := retry.Do(ctx, h.logger, h.policy, event.ID, func(ctx context.Context) (provider.Subscription, error) {
			return h.provider.Subscription(ctx, session.SubscriptionID)
		})
		if err != nil {
			return fmt.Errorf("retrieving subscription: %w", err)
		}
		plan = h.resolvePlan(event, sub.PriceID)
	}

	patch := map[string]any{
		"tier":                plan.Tier,
		"subscription_id":     session.SubscriptionID,
		"subscription_status": "active",
	}
	if _, err := h.upsertUser(ctx, event.ID, session.CustomerID, patch); err != nil {
		return err
	}

	h.audit(ctx, audit.Entry{
		Subject:        session.CustomerID,
		Action:         ActionCheckoutCompleted,
		WebhookEventID: event.ID,
		Details: map[string]any{
			"tier":            plan.Tier,
			"subscription_id": session.SubscriptionID,
			"amount_total":    session.AmountTotal,
			"currency":        session.Currency,
		},
	})
	return nil
}

// SubscriptionCreated applies the tier of a newly created subscription
func (h *Handlers) SubscriptionCreated(ctx context.Context, event Event) error {
	return h.subscriptionChanged(ctx, event, ActionSubscriptionCreated)
}

// SubscriptionUpdated applies plan changes (upgrades, downgrades, renewals)
func (h *Handlers) SubscriptionUpdated(ctx context.Context, event Event) error {
	return h.subscriptionChanged(ctx, event, ActionSubscriptionUpdated)
}

func (h *Handlers) subscriptionChanged(ctx context.Context, event Event, action string) error {
	subID, err := objectID(event)
	if err != nil {
		return err
	}

	sub, err := retry.Do(ctx, h.logger, h.policy, event.ID, func(ctx context.Context) (provider.Subscription, error) {
		return h.provider.Subscription(ctx, subID)
	})
	if err != nil {
		return fmt.Errorf("retrieving subscription: %w", err)
	}

	newPlan := h.resolvePlan(event, sub.PriceID)

	user, err := h.findUser(ctx, event.ID, sub.CustomerID)
	if err != nil {
		return err
	}

	oldPlan := h.currentPlan(user)
	patch := map[string]any{
		"tier":                newPlan.Tier,
		"subscription_id":     sub.ID,
		"subscription_status": sub.Status,
	}

	if user == nil {
		doc := map[string]any{"customer_id": sub.CustomerID}
		for k, v := range patch {
			doc[k] = v
		}
		if _, err := h.createUser(ctx, event.ID, doc); err != nil {
			return err
		}
	} else {
		if _, err := h.updateUser(ctx, event.ID, documentID(user), patch); err != nil {
			return err
		}
	}

	details := map[string]any{
		"new_tier":            newPlan.Tier,
		"change":              plans.ChangeKind(oldPlan, newPlan),
		"subscription_id":     sub.ID,
		"subscription_status": sub.Status,
	}
	if oldPlan != nil {
		details["old_tier"] = oldPlan.Tier
	}

	h.audit(ctx, audit.Entry{
		Subject:        sub.CustomerID,
		Action:         action,
		WebhookEventID: event.ID,
		Details:        details,
	})
	return nil
}

// SubscriptionCanceled drops the account back to the default tier
func (h *Handlers) SubscriptionCanceled(ctx context.Context, event Event) error {
	var data struct {
		ID         string `json:"id"`
		CustomerID string `json:"customer"`
	}
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("parsing event data: %w", err)
	}
	if data.ID == "" {
		return fmt.Errorf("event %s has no object id", event.ID)
	}

	customerID := data.CustomerID
	if customerID == "" {
		sub, err := retry.Do(ctx, h.logger, h.policy, event.ID, func(ctx context.Context) (provider.Subscription, error) {
			return h.provider.Subscription(ctx, data.ID)
		})
		if err != nil {
			return fmt.Errorf("retrieving subscription: %w", err)
		}
		customerID = sub.CustomerID
	}

	user, err := h.findUser(ctx, event.ID, customerID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("customer %s not found in backend store", customerID)
	}

	oldPlan := h.currentPlan(user)
	defaultPlan := h.plans.Default()

	patch := map[string]any{
		"tier":                defaultPlan.Tier,
		"subscription_status": "canceled",
	}
	if _, err := h.updateUser(ctx, event.ID, documentID(user), patch); err != nil {
		return err
	}

	details := map[string]any{
		"new_tier":        defaultPlan.Tier,
		"change":          plans.ChangeKind(oldPlan, defaultPlan),
		"subscription_id": data.ID,
	}
	if oldPlan != nil {
		details["old_tier"] = oldPlan.Tier
	}

	h.audit(ctx, audit.Entry{
		Subject:        customerID,
		Action:         ActionSubscriptionCanceled,
		WebhookEventID: event.ID,
		Details:        details,
	})
	return nil
}

// PaymentSucceeded records the payment and clears any past-due flag
func (h *Handlers) PaymentSucceeded(ctx context.Context, event Event) error {
	invoiceID, err := objectID(event)
	if err != nil {
		return err
	}

	invoice, err := retry.Do(ctx, h.logger, h.policy, event.ID, func(ctx context.Context) (provider.Invoice, error) {
		return h.provider.Invoice(ctx, invoiceID)
	})
	if err != nil {
		return fmt.Errorf("retrieving invoice: %w", err)
	}

	payment := map[string]any{
		"invoice_id":      invoice.ID,
		"customer_id":     invoice.CustomerID,
		"subscription_id": invoice.SubscriptionID,
		"amount":          invoice.AmountPaid,
		"currency":        invoice.Currency,
		"status":          "paid",
		"event_id":        event.ID,
	}
	if err := h.guarded(ctx, event.ID, func(ctx context.Context) error {
		_, err := h.backend.Create(ctx, paymentsCollection, payment)
		return err
	}); err != nil {
		return err
	}

	user, err := h.findUser(ctx, event.ID, invoice.CustomerID)
	if err != nil {
		return err
	}
	if user != nil {
		patch := map[string]any{"subscription_status": "active"}
		if _, err := h.updateUser(ctx, event.ID, documentID(user), patch); err != nil {
			return err
		}
	} else {
		h.logger.Warn().
			Str("event_id", event.ID).
			Str("customer_id", invoice.CustomerID).
			Msg("payment received for customer without a backend user")
	}

	h.audit(ctx, audit.Entry{
		Subject:        invoice.CustomerID,
		Action:         ActionPaymentSucceeded,
		WebhookEventID: event.ID,
		Details: map[string]any{
			"invoice_id":  invoice.ID,
			"amount_paid": invoice.AmountPaid,
			"currency":    invoice.Currency,
		},
	})
	return nil
}

// PaymentFailed flags the account as past due
func (h *Handlers) PaymentFailed(ctx context.Context, event Event) error {
	invoiceID, err := objectID(event)
	if err != nil {
		return err
	}

	invoice, err := retry.Do(ctx, h.logger, h.policy, event.ID, func(ctx context.Context) (provider.Invoice, error) {
		return h.provider.Invoice(ctx, invoiceID)
	})
	if err != nil {
		return fmt.Errorf("retrieving invoice: %w", err)
	}

	user, err := h.findUser(ctx, event.ID, invoice.CustomerID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("customer %s not found in backend store", invoice.CustomerID)
	}

	patch := map[string]any{"subscription_status": "past_due"}
	if _, err := h.updateUser(ctx, event.ID, documentID(user), patch); err != nil {
		return err
	}

	h.audit(ctx, audit.Entry{
		Subject:        invoice.CustomerID,
		Action:         ActionPaymentFailed,
		WebhookEventID: event.ID,
		Details: map[string]any{
			"invoice_id":    invoice.ID,
			"amount_due":    invoice.AmountDue,
			"currency":      invoice.Currency,
			"attempt_count": invoice.AttemptCount,
		},
	})
	return nil
}

/* guarded runs a backend write under retry with the breaker inside:
 * each attempt consults the breaker, and a breaker rejection is
 * non-retryable so the loop stops immediately
 */
func (h *Handlers) guarded(ctx context.Context, correlationID string, op func(context.Context) error) error {
	return retry.Run(ctx, h.logger, h.policy, correlationID, func(ctx context.Context) error {
		return h.breaker.Do(ctx, op)
	})
}

// findUser returns the backend user for a customer ID, or nil when absent
func (h *Handlers) findUser(ctx context.Context, correlationID, customerID string) (map[string]any, error) {
	var found []map[string]any
	err := h.guarded(ctx, correlationID, func(ctx context.Context) error {
		var err error
		found, err = h.backend.Find(ctx, usersCollection, map[string]string{"customer_id": customerID})
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (h *Handlers) createUser(ctx context.Context, correlationID string, doc map[string]any) (map[string]any, error) {
	var created map[string]any
	err := h.guarded(ctx, correlationID, func(ctx context.Context) error {
		var err error
		created, err = h.backend.Create(ctx, usersCollection, doc)
		return err
	})
	return created, err
}

func (h *Handlers) updateUser(ctx context.Context, correlationID, id string, patch map[string]any) (map[string]any, error) {
	var updated map[string]any
	err := h.guarded(ctx, correlationID, func(ctx context.Context) error {
		var err error
		updated, err = h.backend.Update(ctx, usersCollection, id, patch)
		return err
	})
	return updated, err
}

// upsertUser updates the user for customerID, creating it on first contact
func (h *Handlers) upsertUser(ctx context.Context, correlationID, customerID string, patch map[string]any) (map[string]any, error) {
	user, err := h.findUser(ctx, correlationID, customerID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		doc := map[string]any{"customer_id": customerID}
		for k, v := range patch {
			doc[k] = v
		}
		return h.createUser(ctx, correlationID, doc)
	}
	return h.updateUser(ctx, correlationID, documentID(user), patch)
}

// resolvePlan looks up the plan for a price ID. Unknown price IDs resolve
// to the default plan with a warning; tier resolution never fails.
func (h *Handlers) resolvePlan(event Event, priceID string) *plans.Plan {
	plan, known := h.plans.Resolve(priceID)
	if !known {
		h.logger.Warn().
			Str("event_id", event.ID).
			Str("price_id", priceID).
			Str("default_tier", plan.Tier).
			Msg("unknown price id, falling back to default tier")
	}
	return plan
}

// currentPlan derives the plan a backend user is on, nil when unknown
func (h *Handlers) currentPlan(user map[string]any) *plans.Plan {
	if user == nil {
		return nil
	}
	tier, ok := user["tier"].(string)
	if !ok || tier == "" {
		return nil
	}
	if plan, found := h.plans.ByTier(tier); found {
		return plan
	}
	return &plans.Plan{Tier: tier}
}

// audit appends an entry, logging and swallowing failures: observability
// must never mask the processing outcome
func (h *Handlers) audit(ctx context.Context, entry audit.Entry) {
	if err := h.trail.Append(ctx, entry); err != nil {
		h.logger.Error().Err(err).
			Str("action", entry.Action).
			Str("event_id", entry.WebhookEventID).
			Msg("appending audit entry")
	}
}

// objectID extracts the provider object ID from the event data
func objectID(event Event) (string, error) {
	var data struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return "", fmt.Errorf("parsing event data: %w", err)
	}
	if data.ID == "" {
		return "", fmt.Errorf("event %s has no object id", event.ID)
	}
	return data.ID, nil
}

// documentID extracts the backend document ID regardless of numeric or
// string representation
func documentID(doc map[string]any) string {
	return fmt.Sprint(doc["id"])
}
