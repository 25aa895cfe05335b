package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/apperr"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/metrics"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/models"
)

var thousand = decimal.NewFromInt(1000)

// DeliveryService materializes due subscriptions into deliveries and moves
// deliveries through their own small status machine.
type DeliveryService struct {
	Deps
}

func NewDeliveryService(deps Deps) *DeliveryService {
	return &DeliveryService{Deps: deps.withDefaults()}
}

// Materialize snapshots the subscription's current due date into a Delivery
// and advances the schedule by one cadence step from that date. created is
// false when the delivery for that date already existed.
func (s *DeliveryService) Materialize(ctx context.Context, subscriptionID string) (d *models.Delivery, created bool, err error) {
	d, result, err := s.materialize(ctx, subscriptionID, s.today())
	s.Metrics.Materialized(result)
	return d, result == metrics.ResultCreated, err
}

// materialize does the work for Materialize and the sweep. The delivery,
// its items and the schedule move commit together, so a failure leaves
// next_delivery_date untouched and a retry targets the same date. A caller
// that loses a race gets the winner's delivery with ResultDuplicate. When
// the delivery exists but the anchor still points at its date, the anchor
// is moved on so the schedule cannot stall on a delivered date.
func (s *DeliveryService) materialize(ctx context.Context, subscriptionID string, asOf civil.Date) (*models.Delivery, string, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, metrics.ResultFailed, apperr.Store("begin materialize", err)
	}
	defer rollback(tx, s.Logger)

	sub, err := s.Subscriptions.Get(ctx, tx, subscriptionID)
	if err != nil {
		return nil, metrics.ResultFailed, apperr.Store("load subscription", err)
	}
	if sub.Status != models.SubscriptionActive || sub.NextDeliveryDate == nil {
		return nil, metrics.ResultInactive, apperr.State(apperr.SubscriptionNotActive,
			"subscription %s is %s", sub.ID, sub.Status)
	}
	due := *sub.NextDeliveryDate
	if due.After(asOf) {
		return nil, metrics.ResultNotDue, apperr.State(apperr.NotYetDue,
			"next delivery of %s is %s, after %s", sub.ID, due, asOf)
	}

	items, err := s.Subscriptions.Items(ctx, tx, sub.ID)
	if err != nil {
		return nil, metrics.ResultFailed, apperr.Store("load subscription items", err)
	}
	now := s.Now().UTC()
	delivery := snapshot(sub, items, due, now)

	inserted, err := s.Deliveries.Insert(ctx, tx, delivery)
	if err != nil {
		return nil, metrics.ResultFailed, apperr.Store("insert delivery", err)
	}
	next := s.nextDelivery(due, sub.Schedule.Frequency, sub.ID)
	if !inserted {
		if err := s.realign(ctx, tx, sub.ID, due, next, now); err != nil {
			return nil, metrics.ResultFailed, err
		}
		return s.existing(ctx, sub.ID, due)
	}
	if err := s.Deliveries.InsertItems(ctx, tx, delivery.Items); err != nil {
		return nil, metrics.ResultFailed, apperr.Store("insert delivery items", err)
	}

	advanced, err := s.Subscriptions.AdvanceSchedule(ctx, tx, sub.ID, due, next, now)
	if err != nil {
		return nil, metrics.ResultFailed, apperr.Store("advance schedule", err)
	}
	if !advanced {
		// paused, cancelled or advanced by someone else since we read it
		rollback(tx, s.Logger)
		if d, result, err := s.existing(ctx, sub.ID, due); err == nil {
			return d, result, nil
		}
		return nil, metrics.ResultInactive, apperr.State(apperr.SubscriptionNotActive,
			"subscription %s changed while materializing %s", sub.ID, due)
	}

	if err := tx.Commit(); err != nil {
		return nil, metrics.ResultFailed, apperr.Store("commit delivery", err)
	}

	s.Logger.Info("delivery materialized",
		"subscription_id", sub.ID,
		"delivery_id", delivery.ID,
		"delivery_date", due.String(),
		"next_delivery_date", next.String())
	return delivery, metrics.ResultCreated, nil
}

// realign finishes a materialization whose delivery is already stored by
// moving the anchor from due to next. A miss means the winner already moved
// it. The transaction is closed on return.
func (s *DeliveryService) realign(ctx context.Context, tx *sql.Tx, subscriptionID string, due, next civil.Date, now time.Time) error {
	advanced, err := s.Subscriptions.AdvanceSchedule(ctx, tx, subscriptionID, due, next, now)
	if err != nil {
		return apperr.Store("advance schedule", err)
	}
	if !advanced {
		rollback(tx, s.Logger)
		return nil
	}
	if err := tx.Commit(); err != nil {
		return apperr.Store("commit schedule", err)
	}
	s.Logger.Warn("schedule was behind an existing delivery, advanced",
		"subscription_id", subscriptionID,
		"delivery_date", due.String(),
		"next_delivery_date", next.String())
	return nil
}

func (s *DeliveryService) existing(ctx context.Context, subscriptionID string, due civil.Date) (*models.Delivery, string, error) {
	d, err := s.Deliveries.GetBySchedule(ctx, s.DB, subscriptionID, due)
	if err != nil {
		return nil, metrics.ResultFailed, apperr.Store("load existing delivery", err)
	}
	if d.Items, err = s.Deliveries.Items(ctx, s.DB, d.ID); err != nil {
		return nil, metrics.ResultFailed, apperr.Store("load delivery items", err)
	}
	s.Logger.Info("delivery already materialized", "subscription_id", subscriptionID, "delivery_id", d.ID, "delivery_date", due.String())
	return d, metrics.ResultDuplicate, nil
}

// snapshot copies everything a delivery needs from the subscription so later
// edits of the subscription never change it.
func snapshot(sub *models.Subscription, items []models.SubscriptionItem, date civil.Date, now time.Time) *models.Delivery {
	d := &models.Delivery{
		ID:              uuid.NewString(),
		SubscriptionID:  sub.ID,
		DeliveryDate:    date,
		DeliveryAddress: sub.Schedule.DeliveryAddress,
		DeliveryNotes:   sub.Schedule.DeliveryNotes,
		PreferredTime:   sub.Schedule.PreferredTime,
		TotalItems:      len(items),
		TotalWeight:     decimal.Zero,
		TotalAmount:     sub.FinalAmount,
		Status:          models.DeliveryScheduled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, it := range items {
		d.TotalWeight = d.TotalWeight.Add(weightKg(it.Unit, it.Quantity))
		d.Items = append(d.Items, models.DeliveryItem{
			ID:                 uuid.NewString(),
			DeliveryID:         d.ID,
			SubscriptionItemID: it.ID,
			ProductID:          it.ProductID,
			ProductName:        it.ProductName,
			Unit:               it.Unit,
			QuantityOrdered:    it.Quantity,
			QuantityDelivered:  it.Quantity,
			UnitPrice:          it.UnitPrice,
			TotalPrice:         it.TotalPrice,
		})
	}
	return d
}

// weightKg counts products sold by weight; other units weigh nothing here.
func weightKg(unit string, qty decimal.Decimal) decimal.Decimal {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "kg", "kilo", "kilogramme", "kilogram":
		return qty
	case "g", "gramme", "gram":
		return qty.Div(thousand)
	default:
		return decimal.Zero
	}
}

// Get returns a delivery with its items.
func (s *DeliveryService) Get(ctx context.Context, id string) (*models.Delivery, error) {
	d, err := s.Deliveries.Get(ctx, s.DB, id)
	if err != nil {
		return nil, apperr.Store("load delivery", err)
	}
	if d.Items, err = s.Deliveries.Items(ctx, s.DB, id); err != nil {
		return nil, apperr.Store("load delivery items", err)
	}
	return d, nil
}

// List returns the deliveries of a subscription, oldest first.
func (s *DeliveryService) List(ctx context.Context, subscriptionID string) ([]models.Delivery, error) {
	if _, err := s.Subscriptions.Get(ctx, s.DB, subscriptionID); err != nil {
		return nil, apperr.Store("load subscription", err)
	}
	list, err := s.Deliveries.ListBySubscription(ctx, s.DB, subscriptionID)
	if err != nil {
		return nil, apperr.Store("list deliveries", err)
	}
	return list, nil
}

// Fulfill marks a scheduled delivery as fulfilled. delivered overrides the
// delivered quantity per delivery item id; missing items keep the ordered one.
func (s *DeliveryService) Fulfill(ctx context.Context, id string, delivered map[string]decimal.Decimal) (*models.Delivery, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Store("begin fulfill", err)
	}
	defer rollback(tx, s.Logger)

	d, err := s.Deliveries.Get(ctx, tx, id)
	if err != nil {
		return nil, apperr.Store("load delivery", err)
	}
	if d.Status != models.DeliveryScheduled {
		return nil, apperr.State(apperr.InvalidTransition, "cannot fulfill a %s delivery", d.Status)
	}
	items, err := s.Deliveries.Items(ctx, tx, id)
	if err != nil {
		return nil, apperr.Store("load delivery items", err)
	}
	byID := make(map[string]int, len(items))
	for i, it := range items {
		byID[it.ID] = i
	}
	for itemID, qty := range delivered {
		i, ok := byID[itemID]
		if !ok {
			return nil, apperr.Validation(apperr.InvalidInput, "delivery %s has no item %s", id, itemID)
		}
		if qty.IsNegative() {
			return nil, apperr.Validation(apperr.InvalidInput, "delivered quantity of %s cannot be negative", itemID)
		}
		if err := s.Deliveries.SetDelivered(ctx, tx, itemID, qty); err != nil {
			return nil, apperr.Store("record delivered quantity", err)
		}
		items[i].QuantityDelivered = qty
	}

	now := s.Now().UTC()
	ok, err := s.Deliveries.SetStatus(ctx, tx, id, models.DeliveryScheduled, models.DeliveryFulfilled, now)
	if err != nil {
		return nil, apperr.Store("fulfill delivery", err)
	}
	if !ok {
		return nil, apperr.State(apperr.InvalidTransition, "delivery %s changed concurrently", id)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Store("commit fulfill", err)
	}

	s.Logger.Info("delivery fulfilled", "delivery_id", id, "subscription_id", d.SubscriptionID)
	d.Status = models.DeliveryFulfilled
	d.UpdatedAt = now
	d.Items = items
	return d, nil
}

// Skip marks a scheduled delivery as skipped.
func (s *DeliveryService) Skip(ctx context.Context, id string) (*models.Delivery, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != models.DeliveryScheduled {
		return nil, apperr.State(apperr.InvalidTransition, "cannot skip a %s delivery", d.Status)
	}
	now := s.Now().UTC()
	ok, err := s.Deliveries.SetStatus(ctx, s.DB, id, models.DeliveryScheduled, models.DeliverySkipped, now)
	if err != nil {
		return nil, apperr.Store("skip delivery", err)
	}
	if !ok {
		return nil, apperr.State(apperr.InvalidTransition, "delivery %s changed concurrently", id)
	}
	s.Logger.Info("delivery skipped", "delivery_id", id, "subscription_id", d.SubscriptionID)
	d.Status = models.DeliverySkipped
	d.UpdatedAt = now
	return d, nil
}
