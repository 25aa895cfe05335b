package models

import "github.com/shopspring/decimal"

// DefaultLatticeUnit is used for min and step when a catalog entry leaves them unset.
var DefaultLatticeUnit = decimal.RequireFromString("0.5")

// Offering is a catalog product as seen by the basket. It is read-only here;
// the storefront catalog owns it.
type Offering struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Unit         string          `json:"unit"`
	Stock        decimal.Decimal `json:"stock"`
	MinQuantity  decimal.Decimal `json:"min_quantity"`
	StepQuantity decimal.Decimal `json:"step_quantity"`
	MaxQuantity  decimal.Decimal `json:"max_quantity"`
}

// Min returns the minimum orderable quantity, defaulting to 0.5.
func (o Offering) Min() decimal.Decimal {
	if o.MinQuantity.IsPositive() {
		return o.MinQuantity
	}
	return DefaultLatticeUnit
}

// Step returns the quantity increment, defaulting to 0.5.
func (o Offering) Step() decimal.Decimal {
	if o.StepQuantity.IsPositive() {
		return o.StepQuantity
	}
	return DefaultLatticeUnit
}

// Max returns the largest lattice point not above MaxQuantity. A zero result
// means the product cannot be ordered at all.
func (o Offering) Max() decimal.Decimal {
	if !o.MaxQuantity.IsPositive() || o.MaxQuantity.LessThan(o.Min()) {
		return decimal.Zero
	}
	k := o.MaxQuantity.Sub(o.Min()).Div(o.Step()).Floor()
	return o.Min().Add(k.Mul(o.Step()))
}

// Available reports whether at least the minimum quantity can be ordered.
func (o Offering) Available() bool {
	return o.Max().IsPositive()
}
