// Package basket implements the quantity lattice selector used while a
// customer composes a subscription basket. A Basket is a plain value: every
// operation returns a new Basket and leaves its argument untouched.
package basket

import (
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/apperr"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/models"
)

type Line struct {
	Offering models.Offering `json:"offering"`
	Quantity decimal.Decimal `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

type Basket struct {
	Lines []Line          `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

func (b Basket) IsEmpty() bool { return len(b.Lines) == 0 }

// Quantity returns the quantity of productID, zero when absent.
func (b Basket) Quantity(productID string) decimal.Decimal {
	if i := b.index(productID); i >= 0 {
		return b.Lines[i].Quantity
	}
	return decimal.Zero
}

func (b Basket) index(productID string) int {
	for i, l := range b.Lines {
		if l.Offering.ID == productID {
			return i
		}
	}
	return -1
}

// Increment adds one step of o. A product not yet in the basket enters at its
// minimum quantity. Going past the maximum leaves the basket unchanged.
func Increment(b Basket, o models.Offering) Basket {
	if !o.Available() {
		return b
	}
	i := b.index(o.ID)
	if i < 0 {
		return b.with(-1, o, o.Min())
	}
	next := b.Lines[i].Quantity.Add(o.Step())
	if next.GreaterThan(o.Max()) {
		return b
	}
	return b.with(i, o, next)
}

// Decrement removes one step of productID. The line is dropped once the
// quantity would fall under the minimum.
func Decrement(b Basket, productID string) Basket {
	i := b.index(productID)
	if i < 0 {
		return b
	}
	o := b.Lines[i].Offering
	next := b.Lines[i].Quantity.Sub(o.Step())
	if next.LessThan(o.Min()) {
		return b.without(i)
	}
	return b.with(i, o, next)
}

// Set places an explicit quantity of o in the basket. Zero removes the line;
// any other quantity must sit on the product's lattice.
func Set(b Basket, o models.Offering, qty decimal.Decimal) (Basket, error) {
	i := b.index(o.ID)
	if qty.IsZero() {
		if i < 0 {
			return b, nil
		}
		return b.without(i), nil
	}
	if err := Validate(o, qty); err != nil {
		return b, err
	}
	return b.with(i, o, qty), nil
}

// Validate checks that qty equals min + k*step for some k >= 0 and does not
// exceed the product's maximum.
func Validate(o models.Offering, qty decimal.Decimal) error {
	if !o.Available() {
		return apperr.Validation(apperr.QuantityOutOfLattice, "product %s is not available", o.ID)
	}
	if qty.LessThan(o.Min()) || qty.GreaterThan(o.Max()) {
		return apperr.Validation(apperr.QuantityOutOfLattice,
			"quantity %s of %s must be between %s and %s", qty, o.ID, o.Min(), o.Max())
	}
	if !qty.Sub(o.Min()).Mod(o.Step()).IsZero() {
		return apperr.Validation(apperr.QuantityOutOfLattice,
			"quantity %s of %s must be %s plus a multiple of %s", qty, o.ID, o.Min(), o.Step())
	}
	return nil
}

func (b Basket) with(i int, o models.Offering, qty decimal.Decimal) Basket {
	lines := make([]Line, len(b.Lines), len(b.Lines)+1)
	copy(lines, b.Lines)
	line := Line{Offering: o, Quantity: qty, Total: qty.Mul(o.UnitPrice)}
	if i < 0 {
		lines = append(lines, line)
	} else {
		lines[i] = line
	}
	return total(lines)
}

func (b Basket) without(i int) Basket {
	lines := make([]Line, 0, len(b.Lines)-1)
	lines = append(lines, b.Lines[:i]...)
	lines = append(lines, b.Lines[i+1:]...)
	return total(lines)
}

func total(lines []Line) Basket {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Total)
	}
	return Basket{Lines: lines, Total: sum}
}
