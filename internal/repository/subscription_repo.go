package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cloud.google.com/go/civil"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/apperr"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/models"
)

type SubscriptionRepo struct{}

func NewSubscriptionRepo() *SubscriptionRepo {
	return &SubscriptionRepo{}
}

const subscriptionColumns = `
	id, client_name, client_phone, client_email, client_type,
	frequency, delivery_address, delivery_notes, preferred_time,
	total_amount, discount_rate, final_amount,
	next_delivery_date, status, created_at, updated_at`

func (r *SubscriptionRepo) Insert(ctx context.Context, q DBTX, s *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (` + subscriptionColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`
	_, err := q.ExecContext(ctx, query,
		s.ID,
		s.Client.Name,
		s.Client.Phone,
		s.Client.Email,
		string(s.Client.Type),
		string(s.Schedule.Frequency),
		s.Schedule.DeliveryAddress,
		s.Schedule.DeliveryNotes,
		s.Schedule.PreferredTime,
		s.TotalAmount,
		s.DiscountRate,
		s.FinalAmount,
		nullDateArg(s.NextDeliveryDate),
		string(s.Status),
		timeArg(s.CreatedAt),
		timeArg(s.UpdatedAt),
	)
	return err
}

func (r *SubscriptionRepo) InsertItems(ctx context.Context, q DBTX, items []models.SubscriptionItem) error {
	stmt := `
		INSERT INTO subscription_items
		(id, subscription_id, position, product_id, product_name, category, unit, unit_price, quantity, total_price)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`
	for i, it := range items {
		if _, err := q.ExecContext(ctx, stmt,
			it.ID, it.SubscriptionID, i, it.ProductID, it.ProductName,
			it.Category, it.Unit, it.UnitPrice, it.Quantity, it.TotalPrice,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *SubscriptionRepo) Get(ctx context.Context, q DBTX, id string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	s, err := scanSubscription(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("subscription", id)
		}
		return nil, err
	}
	return s, nil
}

func (r *SubscriptionRepo) Items(ctx context.Context, q DBTX, subscriptionID string) ([]models.SubscriptionItem, error) {
	query := `
		SELECT id, subscription_id, product_id, product_name, category, unit, unit_price, quantity, total_price
		FROM subscription_items
		WHERE subscription_id = $1
		ORDER BY position
	`
	rows, err := q.QueryContext(ctx, query, subscriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.SubscriptionItem
	for rows.Next() {
		var it models.SubscriptionItem
		if err := rows.Scan(
			&it.ID, &it.SubscriptionID, &it.ProductID, &it.ProductName,
			&it.Category, &it.Unit, &it.UnitPrice, &it.Quantity, &it.TotalPrice,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListDue returns active subscriptions whose next delivery is on or before asOf.
func (r *SubscriptionRepo) ListDue(ctx context.Context, q DBTX, asOf civil.Date) ([]models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status = $1 AND next_delivery_date <= $2
		ORDER BY next_delivery_date, id
	`
	rows, err := q.QueryContext(ctx, query, string(models.SubscriptionActive), dateArg(asOf))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}

// SetStatus moves a subscription from one status to another and replaces its
// next delivery date. It is a compare-and-set on both fields: it reports false
// when the row is no longer in status from with next delivery date seen.
func (r *SubscriptionRepo) SetStatus(ctx context.Context, q DBTX, id string, from, to models.SubscriptionStatus, seen, next *civil.Date, now time.Time) (bool, error) {
	query := `
		UPDATE subscriptions
		SET status = $1, next_delivery_date = $2, updated_at = $3
		WHERE id = $4 AND status = $5 AND next_delivery_date IS NOT DISTINCT FROM $6
	`
	res, err := q.ExecContext(ctx, query, string(to), nullDateArg(next), timeArg(now), id, string(from), nullDateArg(seen))
	if err != nil {
		return false, err
	}
	return affected(res)
}

// AdvanceSchedule is a compare-and-set on next_delivery_date: it only moves
// an active subscription whose anchor is still from.
func (r *SubscriptionRepo) AdvanceSchedule(ctx context.Context, q DBTX, id string, from, to civil.Date, now time.Time) (bool, error) {
	query := `
		UPDATE subscriptions
		SET next_delivery_date = $1, updated_at = $2
		WHERE id = $3 AND status = $4 AND next_delivery_date = $5
	`
	res, err := q.ExecContext(ctx, query, dateArg(to), timeArg(now), id, string(models.SubscriptionActive), dateArg(from))
	if err != nil {
		return false, err
	}
	return affected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var (
		s                models.Subscription
		clientType, freq string
		status           string
		next             nullDate
		created, updated timestamp
	)
	err := row.Scan(
		&s.ID,
		&s.Client.Name,
		&s.Client.Phone,
		&s.Client.Email,
		&clientType,
		&freq,
		&s.Schedule.DeliveryAddress,
		&s.Schedule.DeliveryNotes,
		&s.Schedule.PreferredTime,
		&s.TotalAmount,
		&s.DiscountRate,
		&s.FinalAmount,
		&next,
		&status,
		&created,
		&updated,
	)
	if err != nil {
		return nil, err
	}
	s.Client.Type = models.ClientType(clientType)
	s.Schedule.Frequency = models.Frequency(freq)
	s.Status = models.SubscriptionStatus(status)
	s.NextDeliveryDate = next.ptr()
	s.CreatedAt = created.Time
	s.UpdatedAt = updated.Time
	return &s, nil
}
