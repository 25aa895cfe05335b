package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/models"
)

type countingSource struct {
	calls int
	price decimal.Decimal
}

func (s *countingSource) GetOffering(_ context.Context, id string) (*models.Offering, error) {
	s.calls++
	if id == "missing" {
		return nil, errors.New("not found")
	}
	return &models.Offering{ID: id, UnitPrice: s.price}, nil
}

func TestCatalogCacheReadThrough(t *testing.T) {
	src := &countingSource{price: decimal.NewFromInt(1500)}
	c := NewCatalogCache(src, time.Minute)
	now := time.Date(2025, 7, 23, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		o, err := c.GetOffering(ctx, "tomate")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(1500).Equal(o.UnitPrice))
	}
	assert.Equal(t, 1, src.calls)

	src.price = decimal.NewFromInt(1600)
	now = now.Add(2 * time.Minute)
	o, err := c.GetOffering(ctx, "tomate")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1600).Equal(o.UnitPrice))
	assert.Equal(t, 2, src.calls)

	c.Invalidate("tomate")
	_, err = c.GetOffering(ctx, "tomate")
	require.NoError(t, err)
	assert.Equal(t, 3, src.calls)
}

func TestCatalogCacheDoesNotCacheErrors(t *testing.T) {
	src := &countingSource{}
	c := NewCatalogCache(src, time.Minute)

	_, err := c.GetOffering(context.Background(), "missing")
	assert.Error(t, err)
	_, err = c.GetOffering(context.Background(), "missing")
	assert.Error(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestCatalogCacheDisabled(t *testing.T) {
	src := &countingSource{}
	c := NewCatalogCache(src, 0)
	_, _ = c.GetOffering(context.Background(), "tomate")
	_, _ = c.GetOffering(context.Background(), "tomate")
	assert.Equal(t, 2, src.calls)
}
