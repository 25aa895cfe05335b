package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/apperr"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/concurrency"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/metrics"
)

type SweepFailure struct {
	SubscriptionID string `json:"subscription_id"`
	Kind           string `json:"kind"`
	Message        string `json:"message"`
}

// SweepReport summarises one pass over the due subscriptions.
type SweepReport struct {
	AsOf       civil.Date     `json:"as_of"`
	Due        int            `json:"due"`
	Created    int            `json:"created"`
	Duplicates int            `json:"duplicates"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
	Failures   []SweepFailure `json:"failures,omitempty"`
}

// Sweeper materializes every active subscription due on a given date. It can
// run on several workers or processes at once: the per-date uniqueness of
// deliveries keeps the outcome to one delivery per due date.
type Sweeper struct {
	deliveries *DeliveryService
	workers    int
	log        *slog.Logger
}

func NewSweeper(deliveries *DeliveryService, workers int) *Sweeper {
	if workers < 1 {
		workers = 1
	}
	return &Sweeper{deliveries: deliveries, workers: workers, log: deliveries.Logger}
}

// Run performs one sweep. A zero asOf means today.
func (w *Sweeper) Run(ctx context.Context, asOf civil.Date) (SweepReport, error) {
	start := time.Now()
	if asOf.IsZero() {
		asOf = w.deliveries.today()
	}
	report := SweepReport{AsOf: asOf}

	due, err := w.deliveries.Subscriptions.ListDue(ctx, w.deliveries.DB, asOf)
	if err != nil {
		return report, apperr.Store("list due subscriptions", err)
	}
	report.Due = len(due)

	ids := make([]string, len(due))
	for i, sub := range due {
		ids[i] = sub.ID
	}

	var mu sync.Mutex
	err = concurrency.ForEach(ctx, w.workers, ids, func(ctx context.Context, id string) {
		_, result, err := w.deliveries.materialize(ctx, id, asOf)
		w.deliveries.Metrics.Materialized(result)

		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil && result == metrics.ResultCreated:
			report.Created++
		case err == nil:
			report.Duplicates++
		case result == metrics.ResultNotDue || result == metrics.ResultInactive:
			// changed between listing and materializing
			report.Skipped++
		default:
			report.Failed++
			report.Failures = append(report.Failures, SweepFailure{
				SubscriptionID: id,
				Kind:           string(apperr.KindOf(err)),
				Message:        err.Error(),
			})
			w.log.Error("materialize failed", "subscription_id", id, "as_of", asOf.String(), "error", err)
		}
	})

	took := time.Since(start)
	w.deliveries.Metrics.Sweep(report.Due, took)
	w.log.Info("sweep finished",
		"as_of", asOf.String(),
		"due", report.Due,
		"created", report.Created,
		"duplicates", report.Duplicates,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"took", took)
	return report, err
}

// Start runs a sweep every interval until ctx is done. It is the in-process
// alternative to an external scheduler calling Run.
func (w *Sweeper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Run(ctx, civil.Date{}); err != nil {
				w.log.Error("sweep failed", "error", err)
			}
		}
	}
}
