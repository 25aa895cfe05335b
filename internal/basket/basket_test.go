package basket

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/apperr"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tomato() models.Offering {
	return models.Offering{
		ID:           "tomate",
		Name:         "Tomate",
		Category:     "legumes",
		UnitPrice:    d("1500"),
		Unit:         "kg",
		MinQuantity:  d("0.5"),
		StepQuantity: d("0.5"),
		MaxQuantity:  d("10"),
	}
}

func TestIncrementCapsAtMax(t *testing.T) {
	var b Basket
	for i := 0; i < 21; i++ {
		b = Increment(b, tomato())
	}
	assert.True(t, d("10").Equal(b.Quantity("tomate")))

	b = Increment(b, tomato())
	assert.True(t, d("10").Equal(b.Quantity("tomate")))
	assert.True(t, d("15000").Equal(b.Total))
}

func TestIncrementStartsAtMinimum(t *testing.T) {
	eggs := models.Offering{ID: "oeufs", UnitPrice: d("100"), MinQuantity: d("6"), StepQuantity: d("6"), MaxQuantity: d("30")}

	b := Increment(Basket{}, eggs)
	require.Len(t, b.Lines, 1)
	assert.True(t, d("6").Equal(b.Lines[0].Quantity))
	assert.True(t, d("600").Equal(b.Lines[0].Total))

	b = Increment(b, eggs)
	assert.True(t, d("12").Equal(b.Quantity("oeufs")))
}

func TestIncrementUnavailableProduct(t *testing.T) {
	o := tomato()
	o.MaxQuantity = decimal.Zero

	b := Increment(Basket{}, o)
	assert.True(t, b.IsEmpty())
}

func TestOfferingDefaults(t *testing.T) {
	o := models.Offering{ID: "miel", UnitPrice: d("4000"), MaxQuantity: d("2.2")}

	b := Increment(Basket{}, o)
	assert.True(t, d("0.5").Equal(b.Quantity("miel")))
	for i := 0; i < 10; i++ {
		b = Increment(b, o)
	}
	// 2.2 is not on the lattice, the cap is the largest point below it
	assert.True(t, d("2").Equal(b.Quantity("miel")))
}

func TestDecrementRemovesBelowMinimum(t *testing.T) {
	b := Increment(Increment(Basket{}, tomato()), tomato())
	require.True(t, d("1").Equal(b.Quantity("tomate")))

	b = Decrement(b, "tomate")
	assert.True(t, d("0.5").Equal(b.Quantity("tomate")))
	assert.True(t, d("750").Equal(b.Total))

	b = Decrement(b, "tomate")
	assert.True(t, b.IsEmpty())
	assert.True(t, b.Total.IsZero())

	assert.Equal(t, b, Decrement(b, "tomate"))
}

func TestOperationsDoNotMutateInput(t *testing.T) {
	before := Increment(Basket{}, tomato())
	after := Increment(before, tomato())

	assert.True(t, d("0.5").Equal(before.Quantity("tomate")))
	assert.True(t, d("1").Equal(after.Quantity("tomate")))
}

func TestRandomWalkStaysOnLattice(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	o := models.Offering{ID: "pommes", UnitPrice: d("800"), MinQuantity: d("1.5"), StepQuantity: d("0.5"), MaxQuantity: d("6")}

	var b Basket
	for i := 0; i < 2000; i++ {
		if rng.Intn(2) == 0 {
			b = Increment(b, o)
		} else {
			b = Decrement(b, o.ID)
		}
		q := b.Quantity(o.ID)
		if q.IsZero() {
			assert.True(t, b.IsEmpty())
			continue
		}
		require.NoError(t, Validate(o, q), "step %d", i)
		assert.True(t, q.Mul(o.UnitPrice).Equal(b.Total))
	}
}

func TestSet(t *testing.T) {
	b, err := Set(Basket{}, tomato(), d("2.5"))
	require.NoError(t, err)
	assert.True(t, d("3750").Equal(b.Total))

	_, err = Set(b, tomato(), d("2.25"))
	assert.Equal(t, apperr.QuantityOutOfLattice, apperr.KindOf(err))

	_, err = Set(b, tomato(), d("10.5"))
	assert.Equal(t, apperr.QuantityOutOfLattice, apperr.KindOf(err))

	b, err = Set(b, tomato(), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, b.IsEmpty())
}
