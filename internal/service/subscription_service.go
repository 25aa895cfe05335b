package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/apperr"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/basket"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/models"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/pricing"
)

const clientSyncTimeout = 5 * time.Second

// SubscriptionService owns the subscription state machine. It is the only
// writer of status and, outside materialization, of next_delivery_date.
type SubscriptionService struct {
	Deps
	bg sync.WaitGroup
}

func NewSubscriptionService(deps Deps) *SubscriptionService {
	return &SubscriptionService{Deps: deps.withDefaults()}
}

// Create turns a basket into an active subscription. Header and items are
// written in one transaction; nothing is visible if any insert fails.
func (s *SubscriptionService) Create(ctx context.Context, b basket.Basket, client models.Client, schedule models.Schedule) (*models.Subscription, error) {
	if b.IsEmpty() {
		return nil, apperr.Validation(apperr.EmptyBasket, "basket has no products")
	}
	client.Name = strings.TrimSpace(client.Name)
	client.Phone = strings.TrimSpace(client.Phone)
	client.Email = strings.TrimSpace(client.Email)
	if client.Name == "" {
		return nil, apperr.Validation(apperr.MissingClientField, "client name is required")
	}
	if client.Phone == "" {
		return nil, apperr.Validation(apperr.MissingClientField, "client phone is required")
	}
	clientType, err := s.Pricing.Normalize(client.Type)
	if err != nil {
		return nil, err
	}
	client.Type = clientType

	lines := make([]pricing.Line, 0, len(b.Lines))
	for _, l := range b.Lines {
		if err := basket.Validate(l.Offering, l.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, pricing.Line{Quantity: l.Quantity, UnitPrice: l.Offering.UnitPrice})
	}
	totals := s.Pricing.Quote(lines, client.Type)

	now := s.Now().UTC()
	sub := &models.Subscription{
		ID:           uuid.NewString(),
		Client:       client,
		Schedule:     schedule,
		TotalAmount:  totals.TotalAmount,
		DiscountRate: totals.DiscountRate,
		FinalAmount:  totals.FinalAmount,
		Status:       models.SubscriptionActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !schedule.Frequency.Valid() {
		// scheduled weekly below; store what we actually schedule
		sub.Schedule.Frequency = models.FrequencyWeekly
	}
	next := s.nextDelivery(s.today(), schedule.Frequency, sub.ID)
	sub.NextDeliveryDate = &next

	for _, l := range b.Lines {
		sub.Items = append(sub.Items, models.SubscriptionItem{
			ID:             uuid.NewString(),
			SubscriptionID: sub.ID,
			ProductID:      l.Offering.ID,
			ProductName:    l.Offering.Name,
			Category:       l.Offering.Category,
			Unit:           l.Offering.Unit,
			UnitPrice:      l.Offering.UnitPrice,
			Quantity:       l.Quantity,
			TotalPrice:     l.Quantity.Mul(l.Offering.UnitPrice),
		})
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Store("begin create subscription", err)
	}
	defer rollback(tx, s.Logger)

	if err := s.Subscriptions.Insert(ctx, tx, sub); err != nil {
		return nil, apperr.Store("insert subscription", err)
	}
	if err := s.Subscriptions.InsertItems(ctx, tx, sub.Items); err != nil {
		return nil, apperr.Store("insert subscription items", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Store("commit subscription", err)
	}

	s.Logger.Info("subscription created",
		"subscription_id", sub.ID,
		"client_type", string(sub.Client.Type),
		"frequency", string(sub.Schedule.Frequency),
		"final_amount", sub.FinalAmount.String(),
		"next_delivery_date", next.String())
	s.Metrics.Transition("create")
	s.syncClient(ctx, sub.Client)
	return sub, nil
}

// syncClient records the client in the directory without holding up the
// caller. Failures are only logged.
func (s *SubscriptionService) syncClient(ctx context.Context, c models.Client) {
	if s.Clients == nil {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), clientSyncTimeout)
		defer cancel()
		if err := s.Clients.Upsert(ctx, c, s.Now().UTC()); err != nil {
			s.Logger.Warn("client directory update failed", "phone", c.Phone, "error", err)
		}
	}()
}

// Wait blocks until background client directory updates have finished.
func (s *SubscriptionService) Wait() {
	s.bg.Wait()
}

// Get returns a subscription with its items.
func (s *SubscriptionService) Get(ctx context.Context, id string) (*models.Subscription, error) {
	sub, err := s.Subscriptions.Get(ctx, s.DB, id)
	if err != nil {
		return nil, apperr.Store("load subscription", err)
	}
	items, err := s.Subscriptions.Items(ctx, s.DB, id)
	if err != nil {
		return nil, apperr.Store("load subscription items", err)
	}
	sub.Items = items
	return sub, nil
}

// ListDue returns the active subscriptions due on or before asOf. A zero
// asOf means today.
func (s *SubscriptionService) ListDue(ctx context.Context, asOf civil.Date) ([]models.Subscription, error) {
	if asOf.IsZero() {
		asOf = s.today()
	}
	subs, err := s.Subscriptions.ListDue(ctx, s.DB, asOf)
	if err != nil {
		return nil, apperr.Store("list due subscriptions", err)
	}
	return subs, nil
}

// Pause freezes an active subscription. The next delivery date is kept so
// resuming can reuse the original anchor.
func (s *SubscriptionService) Pause(ctx context.Context, id string) (*models.Subscription, error) {
	return s.transition(ctx, id, "pause", models.SubscriptionPaused, func(sub *models.Subscription) *civil.Date {
		return sub.NextDeliveryDate
	})
}

// Resume reactivates a paused subscription. A frozen date already in the
// past is replaced by the next cadence date counted from today.
func (s *SubscriptionService) Resume(ctx context.Context, id string) (*models.Subscription, error) {
	return s.transition(ctx, id, "resume", models.SubscriptionActive, func(sub *models.Subscription) *civil.Date {
		today := s.today()
		if sub.NextDeliveryDate != nil && !sub.NextDeliveryDate.Before(today) {
			return sub.NextDeliveryDate
		}
		next := s.nextDelivery(today, sub.Schedule.Frequency, sub.ID)
		return &next
	})
}

// Cancel ends a subscription for good and clears its schedule.
func (s *SubscriptionService) Cancel(ctx context.Context, id string) (*models.Subscription, error) {
	return s.transition(ctx, id, "cancel", models.SubscriptionCancelled, func(*models.Subscription) *civil.Date {
		return nil
	})
}

var allowedTransitions = map[models.SubscriptionStatus][]models.SubscriptionStatus{
	models.SubscriptionActive: {models.SubscriptionPaused, models.SubscriptionCancelled},
	models.SubscriptionPaused: {models.SubscriptionActive, models.SubscriptionCancelled},
}

func canTransition(from, to models.SubscriptionStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// transitionAttempts bounds the re-reads when a materialization moves the
// schedule between our read and our write.
const transitionAttempts = 3

// transition applies a status change as a compare-and-set on the status and
// next delivery date it read. If the row changed in between, it reads again
// and re-checks the transition, so a schedule advanced by a concurrent
// materialization is never written back to an older date.
func (s *SubscriptionService) transition(ctx context.Context, id, name string, to models.SubscriptionStatus, nextFn func(*models.Subscription) *civil.Date) (*models.Subscription, error) {
	for attempt := 1; ; attempt++ {
		sub, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !canTransition(sub.Status, to) {
			return nil, apperr.State(apperr.InvalidTransition, "cannot %s a %s subscription", name, sub.Status)
		}
		next := nextFn(sub)
		now := s.Now().UTC()

		ok, err := s.Subscriptions.SetStatus(ctx, s.DB, id, sub.Status, to, sub.NextDeliveryDate, next, now)
		if err != nil {
			return nil, apperr.Store(name+" subscription", err)
		}
		if !ok {
			if attempt < transitionAttempts {
				s.Logger.Debug("subscription changed during "+name+", retrying", "subscription_id", id, "attempt", attempt)
				continue
			}
			return nil, apperr.State(apperr.InvalidTransition, "subscription %s changed concurrently, %s not applied", id, name)
		}

		s.Logger.Info("subscription "+name,
			"subscription_id", id,
			"from", string(sub.Status),
			"to", string(to),
			"next_delivery_date", dateString(next))
		s.Metrics.Transition(name)

		sub.Status = to
		sub.NextDeliveryDate = next
		sub.UpdatedAt = now
		return sub, nil
	}
}

func dateString(d *civil.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}
