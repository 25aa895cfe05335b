package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/cadence"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/metrics"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/models"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/pricing"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/repository"
)

// Stores required by the services (interfaces so tests can inject failures).
type SubscriptionStore interface {
	Insert(ctx context.Context, q repository.DBTX, s *models.Subscription) error
	InsertItems(ctx context.Context, q repository.DBTX, items []models.SubscriptionItem) error
	Get(ctx context.Context, q repository.DBTX, id string) (*models.Subscription, error)
	Items(ctx context.Context, q repository.DBTX, subscriptionID string) ([]models.SubscriptionItem, error)
	ListDue(ctx context.Context, q repository.DBTX, asOf civil.Date) ([]models.Subscription, error)
	SetStatus(ctx context.Context, q repository.DBTX, id string, from, to models.SubscriptionStatus, seen, next *civil.Date, now time.Time) (bool, error)
	AdvanceSchedule(ctx context.Context, q repository.DBTX, id string, from, to civil.Date, now time.Time) (bool, error)
}

type DeliveryStore interface {
	Insert(ctx context.Context, q repository.DBTX, d *models.Delivery) (bool, error)
	InsertItems(ctx context.Context, q repository.DBTX, items []models.DeliveryItem) error
	Get(ctx context.Context, q repository.DBTX, id string) (*models.Delivery, error)
	GetBySchedule(ctx context.Context, q repository.DBTX, subscriptionID string, date civil.Date) (*models.Delivery, error)
	ListBySubscription(ctx context.Context, q repository.DBTX, subscriptionID string) ([]models.Delivery, error)
	Items(ctx context.Context, q repository.DBTX, deliveryID string) ([]models.DeliveryItem, error)
	SetStatus(ctx context.Context, q repository.DBTX, id string, from, to models.DeliveryStatus, now time.Time) (bool, error)
	SetDelivered(ctx context.Context, q repository.DBTX, itemID string, qty decimal.Decimal) error
}

// ClientDirectory is the storefront's client list. Updates are best-effort.
type ClientDirectory interface {
	Upsert(ctx context.Context, c models.Client, now time.Time) error
}

// Deps wires the services. Only DB and the stores are required.
type Deps struct {
	DB            *sql.DB
	Subscriptions SubscriptionStore
	Deliveries    DeliveryStore
	Clients       ClientDirectory
	Pricing       *pricing.Calculator
	Metrics       *metrics.Collector
	Logger        *slog.Logger
	Location      *time.Location
	Now           func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Subscriptions == nil {
		d.Subscriptions = repository.NewSubscriptionRepo()
	}
	if d.Deliveries == nil {
		d.Deliveries = repository.NewDeliveryRepo()
	}
	if d.Pricing == nil {
		d.Pricing = pricing.NewCalculator(nil)
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

func (d Deps) today() civil.Date {
	return cadence.Today(d.Now(), d.Location)
}

// nextDelivery wraps cadence.Next and reports the weekly fallback.
func (d Deps) nextDelivery(ref civil.Date, f models.Frequency, subscriptionID string) civil.Date {
	next, ok := cadence.Next(ref, f)
	if !ok {
		d.Logger.Warn("unknown delivery frequency, scheduling weekly",
			"subscription_id", subscriptionID, "frequency", string(f), "next_delivery_date", next.String())
		d.Metrics.CadenceFallback()
	}
	return next
}

// rollback is deferred right after BeginTx; it is a no-op once committed.
func rollback(tx *sql.Tx, log *slog.Logger) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Warn("rollback failed", "error", err)
	}
}
