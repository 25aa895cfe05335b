package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/models"
)

// ClientRepo keeps the storefront client directory in sync with the
// identities captured on subscriptions. Phone is the natural key.
type ClientRepo struct {
	db *sql.DB
}

func NewClientRepo(db *sql.DB) *ClientRepo {
	return &ClientRepo{db: db}
}

func (r *ClientRepo) Upsert(ctx context.Context, c models.Client, now time.Time) error {
	query := `
		INSERT INTO clients (phone, name, email, client_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (phone) DO UPDATE
		SET name = excluded.name,
		    email = excluded.email,
		    client_type = excluded.client_type,
		    updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, c.Phone, c.Name, c.Email, string(c.Type), timeArg(now))
	return err
}
