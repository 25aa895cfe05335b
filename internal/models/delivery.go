package models

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

type DeliveryStatus string

const (
	DeliveryScheduled DeliveryStatus = "scheduled"
	DeliveryFulfilled DeliveryStatus = "fulfilled"
	DeliverySkipped   DeliveryStatus = "skipped"
)

// Delivery is an immutable snapshot of a subscription for one date. Only
// Status (and the delivered quantities on fulfilment) change afterwards.
type Delivery struct {
	ID              string          `json:"id"`
	SubscriptionID  string          `json:"subscription_id"`
	DeliveryDate    civil.Date      `json:"delivery_date"`
	DeliveryAddress string          `json:"delivery_address"`
	DeliveryNotes   string          `json:"delivery_notes,omitempty"`
	PreferredTime   string          `json:"preferred_time,omitempty"`
	TotalItems      int             `json:"total_items"`
	TotalWeight     decimal.Decimal `json:"total_weight"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          DeliveryStatus  `json:"status"`
	Items           []DeliveryItem  `json:"items,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type DeliveryItem struct {
	ID                 string          `json:"id"`
	DeliveryID         string          `json:"delivery_id"`
	SubscriptionItemID string          `json:"subscription_item_id"`
	ProductID          string          `json:"product_id"`
	ProductName        string          `json:"product_name"`
	Unit               string          `json:"unit"`
	QuantityOrdered    decimal.Decimal `json:"quantity_ordered"`
	QuantityDelivered  decimal.Decimal `json:"quantity_delivered"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	TotalPrice         decimal.Decimal `json:"total_price"`
}
