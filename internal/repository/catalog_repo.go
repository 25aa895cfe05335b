package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/apperr"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/models"
)

// CatalogRepo reads product offerings from the storefront's products table.
type CatalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func (r *CatalogRepo) GetOffering(ctx context.Context, productID string) (*models.Offering, error) {
	query := `
		SELECT id, name, category, unit_price, unit, stock,
		       min_quantity, step_quantity, max_quantity
		FROM products
		WHERE id = $1
	`
	var (
		o               models.Offering
		minQty, stepQty decimal.NullDecimal
	)
	err := r.db.QueryRowContext(ctx, query, productID).Scan(
		&o.ID,
		&o.Name,
		&o.Category,
		&o.UnitPrice,
		&o.Unit,
		&o.Stock,
		&minQty,
		&stepQty,
		&o.MaxQuantity,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("product", productID)
		}
		return nil, err
	}
	// unset min/step fall back to the lattice defaults in models.Offering
	if minQty.Valid {
		o.MinQuantity = minQty.Decimal
	}
	if stepQty.Valid {
		o.StepQuantity = stepQty.Decimal
	}
	return &o, nil
}
