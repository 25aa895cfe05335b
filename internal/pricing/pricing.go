// Package pricing turns basket lines and a client type into totals.
package pricing

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/apperr"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/models"
)

type Line struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

type Totals struct {
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DiscountRate   decimal.Decimal `json:"discount_rate"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
}

// DiscountTable maps a client type to its discount rate (0.10 = 10%).
type DiscountTable map[models.ClientType]decimal.Decimal

// DefaultDiscounts is used when no discount file is configured.
func DefaultDiscounts() DiscountTable {
	return DiscountTable{
		models.ClientParticulier: decimal.Zero,
		models.ClientPro:         decimal.RequireFromString("0.10"),
	}
}

type discountFile struct {
	ClientTypes map[string]string `yaml:"client_types"`
}

// LoadDiscounts reads a YAML discount table:
//
//	client_types:
//	  particulier: "0"
//	  pro: "0.10"
//
// An empty path yields DefaultDiscounts.
func LoadDiscounts(path string) (DiscountTable, error) {
	if path == "" {
		return DefaultDiscounts(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read discounts: %w", err)
	}
	var f discountFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse discounts: %w", err)
	}
	if len(f.ClientTypes) == 0 {
		return nil, fmt.Errorf("parse discounts: %s defines no client_types", path)
	}
	table := make(DiscountTable, len(f.ClientTypes))
	for name, v := range f.ClientTypes {
		rate, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("parse discounts: rate of %q: %w", name, err)
		}
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("parse discounts: rate of %q must be within [0, 1], got %s", name, rate)
		}
		table[models.ClientType(strings.ToLower(strings.TrimSpace(name)))] = rate
	}
	return table, nil
}

type Calculator struct {
	discounts DiscountTable
}

func NewCalculator(discounts DiscountTable) *Calculator {
	if discounts == nil {
		discounts = DefaultDiscounts()
	}
	return &Calculator{discounts: discounts}
}

// Normalize maps an empty client type to particulier and rejects types that
// have no entry in the discount table.
func (c *Calculator) Normalize(ct models.ClientType) (models.ClientType, error) {
	ct = models.ClientType(strings.ToLower(strings.TrimSpace(string(ct))))
	if ct == "" {
		ct = models.ClientParticulier
	}
	if _, ok := c.discounts[ct]; !ok {
		return "", apperr.Validation(apperr.UnknownClientType, "unknown client type %q", ct)
	}
	return ct, nil
}

// Quote computes the basket totals for the given client type. A type with no
// entry in the discount table gets no discount; callers that must reject it
// check Normalize first.
func (c *Calculator) Quote(lines []Line, ct models.ClientType) Totals {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Quantity.Mul(l.UnitPrice))
	}
	rate := decimal.Zero
	if known, err := c.Normalize(ct); err == nil {
		rate = c.discounts[known]
	}
	discount := total.Mul(rate)
	return Totals{
		TotalAmount:    total,
		DiscountRate:   rate,
		DiscountAmount: discount,
		FinalAmount:    total.Sub(discount),
	}
}
