package models

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// Valid reports whether f is one of the supported cadences.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPaused    SubscriptionStatus = "paused"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Schedule holds the delivery preferences chosen at creation.
type Schedule struct {
	Frequency       Frequency `json:"frequency"`
	DeliveryAddress string    `json:"delivery_address"`
	DeliveryNotes   string    `json:"delivery_notes,omitempty"`
	PreferredTime   string    `json:"preferred_time,omitempty"`
}

// Subscription is a standing order. NextDeliveryDate is nil iff the
// subscription is cancelled.
type Subscription struct {
	ID               string             `json:"id"`
	Client           Client             `json:"client"`
	Schedule         Schedule           `json:"schedule"`
	TotalAmount      decimal.Decimal    `json:"total_amount"`
	DiscountRate     decimal.Decimal    `json:"discount_rate"`
	FinalAmount      decimal.Decimal    `json:"final_amount"`
	NextDeliveryDate *civil.Date        `json:"next_delivery_date"`
	Status           SubscriptionStatus `json:"status"`
	Items            []SubscriptionItem `json:"items,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// SubscriptionItem copies the catalog fields at creation so that later
// catalog changes do not rewrite history.
type SubscriptionItem struct {
	ID             string          `json:"id"`
	SubscriptionID string          `json:"subscription_id"`
	ProductID      string          `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Category       string          `json:"category"`
	Unit           string          `json:"unit"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       decimal.Decimal `json:"quantity"`
	TotalPrice     decimal.Decimal `json:"total_price"`
}
