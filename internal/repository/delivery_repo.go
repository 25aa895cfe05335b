package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/apperr"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/models"
)

type DeliveryRepo struct{}

func NewDeliveryRepo() *DeliveryRepo {
	return &DeliveryRepo{}
}

const deliveryColumns = `
	id, subscription_id, delivery_date, delivery_address, delivery_notes, preferred_time,
	total_items, total_weight, total_amount, status, created_at, updated_at`

// Insert writes the delivery header unless one already exists for the same
// subscription and date. It reports whether a row was inserted.
func (r *DeliveryRepo) Insert(ctx context.Context, q DBTX, d *models.Delivery) (bool, error) {
	query := `
		INSERT INTO deliveries (` + deliveryColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (subscription_id, delivery_date) DO NOTHING
	`
	res, err := q.ExecContext(ctx, query,
		d.ID,
		d.SubscriptionID,
		dateArg(d.DeliveryDate),
		d.DeliveryAddress,
		d.DeliveryNotes,
		d.PreferredTime,
		d.TotalItems,
		d.TotalWeight,
		d.TotalAmount,
		string(d.Status),
		timeArg(d.CreatedAt),
		timeArg(d.UpdatedAt),
	)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *DeliveryRepo) InsertItems(ctx context.Context, q DBTX, items []models.DeliveryItem) error {
	stmt := `
		INSERT INTO delivery_items
		(id, delivery_id, subscription_item_id, position, product_id, product_name, unit,
		 quantity_ordered, quantity_delivered, unit_price, total_price)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`
	for i, it := range items {
		if _, err := q.ExecContext(ctx, stmt,
			it.ID, it.DeliveryID, it.SubscriptionItemID, i, it.ProductID, it.ProductName, it.Unit,
			it.QuantityOrdered, it.QuantityDelivered, it.UnitPrice, it.TotalPrice,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *DeliveryRepo) Get(ctx context.Context, q DBTX, id string) (*models.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE id = $1`
	d, err := scanDelivery(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("delivery", id)
		}
		return nil, err
	}
	return d, nil
}

// GetBySchedule finds the delivery of a subscription for a given date.
func (r *DeliveryRepo) GetBySchedule(ctx context.Context, q DBTX, subscriptionID string, date civil.Date) (*models.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE subscription_id = $1 AND delivery_date = $2`
	d, err := scanDelivery(q.QueryRowContext(ctx, query, subscriptionID, dateArg(date)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("delivery", subscriptionID+"@"+date.String())
		}
		return nil, err
	}
	return d, nil
}

func (r *DeliveryRepo) ListBySubscription(ctx context.Context, q DBTX, subscriptionID string) ([]models.Delivery, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM deliveries
		WHERE subscription_id = $1
		ORDER BY delivery_date
	`
	rows, err := q.QueryContext(ctx, query, subscriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *DeliveryRepo) Items(ctx context.Context, q DBTX, deliveryID string) ([]models.DeliveryItem, error) {
	query := `
		SELECT id, delivery_id, subscription_item_id, product_id, product_name, unit,
		       quantity_ordered, quantity_delivered, unit_price, total_price
		FROM delivery_items
		WHERE delivery_id = $1
		ORDER BY position
	`
	rows, err := q.QueryContext(ctx, query, deliveryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.DeliveryItem
	for rows.Next() {
		var it models.DeliveryItem
		if err := rows.Scan(
			&it.ID, &it.DeliveryID, &it.SubscriptionItemID, &it.ProductID, &it.ProductName, &it.Unit,
			&it.QuantityOrdered, &it.QuantityDelivered, &it.UnitPrice, &it.TotalPrice,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// SetStatus advances a delivery's status if it is still in from.
func (r *DeliveryRepo) SetStatus(ctx context.Context, q DBTX, id string, from, to models.DeliveryStatus, now time.Time) (bool, error) {
	query := `
		UPDATE deliveries
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	res, err := q.ExecContext(ctx, query, string(to), timeArg(now), id, string(from))
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *DeliveryRepo) SetDelivered(ctx context.Context, q DBTX, itemID string, qty decimal.Decimal) error {
	_, err := q.ExecContext(ctx, `UPDATE delivery_items SET quantity_delivered = $1 WHERE id = $2`, qty, itemID)
	return err
}

func scanDelivery(row rowScanner) (*models.Delivery, error) {
	var (
		d                models.Delivery
		date             nullDate
		status           string
		created, updated timestamp
	)
	err := row.Scan(
		&d.ID,
		&d.SubscriptionID,
		&date,
		&d.DeliveryAddress,
		&d.DeliveryNotes,
		&d.PreferredTime,
		&d.TotalItems,
		&d.TotalWeight,
		&d.TotalAmount,
		&status,
		&created,
		&updated,
	)
	if err != nil {
		return nil, err
	}
	d.DeliveryDate = date.Date
	d.Status = models.DeliveryStatus(status)
	d.CreatedAt = created.Time
	d.UpdatedAt = updated.Time
	return &d, nil
}
