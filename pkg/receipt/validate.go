package receipt

import (
	"fmt"
	"math"
)

// Validate performs structural checks. Empty item lists and zero amounts are legal.
func Validate(r *Data) error {
	if r == nil {
		return fmt.Errorf("receipt is required")
	}
	if r.ShopName == "" {
		return fmt.Errorf("shopName is required")
	}

	amounts := map[string]float64{
		"subtotal":   r.Subtotal,
		"paidAmount": r.PaidAmount,
		"dueAmount":  r.DueAmount,
	}
	for name, v := range amounts {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be a finite number", name)
		}
	}

	for i, item := range r.Items {
		if err := validateItem(item); err != nil {
			return fmt.Errorf("items[%d]: %w", i, err)
		}
	}

	return nil
}

func validateItem(item LineItem) error {
	if item.Quantity < 0 {
		return fmt.Errorf("quantity must be >= 0, got %d", item.Quantity)
	}
	if math.IsNaN(item.Price) || math.IsInf(item.Price, 0) {
		return fmt.Errorf("price must be a finite number")
	}
	if item.Price < 0 {
		return fmt.Errorf("price must be >= 0, got %v", item.Price)
	}
	return nil
}
