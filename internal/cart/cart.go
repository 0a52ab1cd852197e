// Package cart holds the cart domain types and the validation rules a cart
// must satisfy before a checkout may charge and fulfill it.
package cart

import "errors"

// ShippingSKU is the reserved pseudo-item marking the presence of a shipping
// charge. It is excluded from unit-sold counts.
const ShippingSKU = "SHIP"

// ErrInvalidCart is returned by Validate for carts that cannot be paid for.
var ErrInvalidCart = errors.New("cart not valid")

// Item is one line of a cart.
type Item struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

// Cart is the payload a caller submits for checkout. The controller never
// mutates it.
type Cart struct {
	Items []Item  `json:"items"`
	Total float64 `json:"total"`
}

// Validate reports whether a cart is payable: the total must be strictly
// positive and at least one item must carry the shipping SKU. It is pure and
// has no side effects; malformed payloads are rejected before this point.
func Validate(c Cart) error {
	if c.Total <= 0 {
		return ErrInvalidCart
	}
	for _, item := range c.Items {
		if item.SKU == ShippingSKU {
			return nil
		}
	}
	return ErrInvalidCart
}

// UnitCount returns the number of units sold, excluding the shipping
// pseudo-item.
func UnitCount(c Cart) int {
	count := 0
	for _, item := range c.Items {
		if item.SKU != ShippingSKU {
			count += item.Qty
		}
	}
	return count
}
