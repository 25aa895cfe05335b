package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/basket"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/metrics"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/models"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/repository"
	"github.com/Cheertaboi/farmshop-subscription-service/pkg/db/dbtest"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func civilDate(t *testing.T, s string) civil.Date {
	t.Helper()
	v, err := civil.ParseDate(s)
	require.NoError(t, err)
	return v
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(date string) *fakeClock {
	c := &fakeClock{}
	c.set(date)
	return c
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) set(date string) {
	t, err := time.Parse("2006-01-02 15:04", date+" 10:00")
	if err != nil {
		panic(err)
	}
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type env struct {
	db         *sql.DB
	clock      *fakeClock
	metrics    *metrics.Collector
	subs       *SubscriptionService
	deliveries *DeliveryService
}

func newEnv(t *testing.T, today string, tweak ...func(*Deps)) *env {
	t.Helper()
	conn := dbtest.Open(t)
	clock := newClock(today)
	deps := Deps{
		DB:      conn,
		Metrics: metrics.New(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:     clock.Now,
	}
	for _, fn := range tweak {
		fn(&deps)
	}
	return &env{
		db:         conn,
		clock:      clock,
		metrics:    deps.Metrics,
		subs:       NewSubscriptionService(deps),
		deliveries: NewDeliveryService(deps),
	}
}

func tomato() models.Offering {
	return models.Offering{
		ID: "tomate", Name: "Tomate", Category: "legumes", Unit: "kg",
		UnitPrice: d("1500"), MinQuantity: d("0.5"), StepQuantity: d("0.5"), MaxQuantity: d("10"),
	}
}

func eggs() models.Offering {
	return models.Offering{
		ID: "oeufs", Name: "Oeufs", Category: "epicerie", Unit: "piece",
		UnitPrice: d("100"), MinQuantity: d("6"), StepQuantity: d("6"), MaxQuantity: d("60"),
	}
}

func tomatoBasket() basket.Basket {
	return basket.Increment(basket.Basket{}, tomato())
}

func client(ct models.ClientType) models.Client {
	return models.Client{Name: "Awa Diop", Phone: "+221770000001", Email: "awa@example.com", Type: ct}
}

func weekly() models.Schedule {
	return models.Schedule{Frequency: models.FrequencyWeekly, DeliveryAddress: "Ferme du Lac, Rufisque", PreferredTime: "08:00-10:00"}
}

func (e *env) create(t *testing.T, schedule models.Schedule) *models.Subscription {
	t.Helper()
	sub, err := e.subs.Create(context.Background(), tomatoBasket(), client(models.ClientParticulier), schedule)
	require.NoError(t, err)
	return sub
}

func (e *env) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

var errInjected = errors.New("injected failure")

// failingSubscriptions breaks item inserts after the header went in.
type failingSubscriptions struct {
	*repository.SubscriptionRepo
}

func (failingSubscriptions) InsertItems(context.Context, repository.DBTX, []models.SubscriptionItem) error {
	return errInjected
}

// failingDeliveries breaks delivery item inserts after the header went in.
type failingDeliveries struct {
	*repository.DeliveryRepo
}

func (failingDeliveries) InsertItems(context.Context, repository.DBTX, []models.DeliveryItem) error {
	return errInjected
}

type failingDirectory struct{}

func (failingDirectory) Upsert(context.Context, models.Client, time.Time) error {
	return errInjected
}

// staleSubscriptions answers Get with a copy of an earlier read, like a
// worker that loaded the subscription before a concurrent change.
type staleSubscriptions struct {
	*repository.SubscriptionRepo
	seen *models.Subscription
}

func (s *staleSubscriptions) Get(context.Context, repository.DBTX, string) (*models.Subscription, error) {
	cp := *s.seen
	return &cp, nil
}

// racingSubscriptions runs before once, right ahead of the next status write.
type racingSubscriptions struct {
	*repository.SubscriptionRepo
	before func()
}

func (r *racingSubscriptions) SetStatus(ctx context.Context, q repository.DBTX, id string, from, to models.SubscriptionStatus, seen, next *civil.Date, now time.Time) (bool, error) {
	if fn := r.before; fn != nil {
		r.before = nil
		fn()
	}
	return r.SubscriptionRepo.SetStatus(ctx, q, id, from, to, seen, next, now)
}
