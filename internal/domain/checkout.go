package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ShippingInfo struct {
	FullName   string `json:"full_name" validate:"required"`
	Email      string `json:"email" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

type DeliveryMethodID string

const (
	DeliveryStandard DeliveryMethodID = "standard"
	DeliveryExpress  DeliveryMethodID = "express"
	DeliveryPickup   DeliveryMethodID = "pickup"
)

type DeliveryMethod struct {
	ID            DeliveryMethodID `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Fee           decimal.Decimal  `json:"fee"`
	EstimatedDays string           `json:"estimated_days"`
}

// CheckoutSnapshot freezes checkout inputs and derived totals at the moment
// the shipping stage is confirmed. Later stages read it and never recompute.
type CheckoutSnapshot struct {
	ShippingInfo   ShippingInfo    `json:"shipping_info"`
	DeliveryMethod DeliveryMethod  `json:"delivery_method"`
	Notes          string          `json:"notes,omitempty"`
	Lines          []CartLine      `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryFee    decimal.Decimal `json:"delivery_fee"`
	Total          decimal.Decimal `json:"total"`
	SubmittedAt    time.Time       `json:"submitted_at"`
}

func (s CheckoutSnapshot) Clone() CheckoutSnapshot {
	c := s
	c.Lines = CloneLines(s.Lines)
	return c
}

type OrderConfirmation struct {
	OrderID   string    `json:"order_id"`
	OrderDate time.Time `json:"order_date"`
	CheckoutSnapshot
}

func (o OrderConfirmation) Clone() OrderConfirmation {
	c := o
	c.CheckoutSnapshot = o.CheckoutSnapshot.Clone()
	return c
}
