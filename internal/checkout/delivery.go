package checkout

import (
	"github.com/mosaicgrove/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var deliveryMethods = []domain.DeliveryMethod{
	{
		ID:            domain.DeliveryStandard,
		Name:          "Standard Shipping",
		Description:   "Delivered via Ghana Post",
		Fee:           decimal.RequireFromString("5.99"),
		EstimatedDays: "5-7 business days",
	},
	{
		ID:            domain.DeliveryExpress,
		Name:          "Express Shipping",
		Description:   "Delivered via DHL Express",
		Fee:           decimal.RequireFromString("12.99"),
		EstimatedDays: "2-3 business days",
	},
	{
		ID:            domain.DeliveryPickup,
		Name:          "Local Pickup",
		Description:   "Pickup at our Accra facility",
		Fee:           decimal.Zero,
		EstimatedDays: "Available next business day",
	},
}

// DeliveryMethods lists the offered methods in display order.
func DeliveryMethods() []domain.DeliveryMethod {
	out := make([]domain.DeliveryMethod, len(deliveryMethods))
	copy(out, deliveryMethods)
	return out
}

func LookupDeliveryMethod(id domain.DeliveryMethodID) (domain.DeliveryMethod, bool) {
	for _, m := range deliveryMethods {
		if m.ID == id {
			return m, true
		}
	}
	return domain.DeliveryMethod{}, false
}
