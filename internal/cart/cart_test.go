package cart_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourorg/checkout-service/internal/cart"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cart    cart.Cart
		wantErr bool
	}{
		{
			name: "valid cart with shipping",
			cart: cart.Cart{
				Items: []cart.Item{{SKU: "AST-01", Qty: 2}, {SKU: "SHIP", Qty: 1}},
				Total: 52.5,
			},
			wantErr: false,
		},
		{
			name: "shipping only cart is payable",
			cart: cart.Cart{
				Items: []cart.Item{{SKU: "SHIP", Qty: 1}},
				Total: 50,
			},
			wantErr: false,
		},
		{
			name:    "empty cart with zero total",
			cart:    cart.Cart{Items: []cart.Item{}, Total: 0},
			wantErr: true,
		},
		{
			name: "zero total with shipping",
			cart: cart.Cart{
				Items: []cart.Item{{SKU: "SHIP", Qty: 1}},
				Total: 0,
			},
			wantErr: true,
		},
		{
			name: "negative total",
			cart: cart.Cart{
				Items: []cart.Item{{SKU: "SHIP", Qty: 1}},
				Total: -10,
			},
			wantErr: true,
		},
		{
			name: "missing shipping item",
			cart: cart.Cart{
				Items: []cart.Item{{SKU: "AST-01", Qty: 1}},
				Total: 20,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cart.Validate(tt.cart)
			if tt.wantErr {
				assert.ErrorIs(t, err, cart.ErrInvalidCart)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	c := cart.Cart{Items: []cart.Item{{SKU: "AST-01", Qty: 1}}, Total: 20}

	first := cart.Validate(c)
	second := cart.Validate(c)
	assert.Equal(t, first, second, "Validate must hold no hidden state")
}

func TestUnitCount(t *testing.T) {
	c := cart.Cart{
		Items: []cart.Item{
			{SKU: "AST-01", Qty: 2},
			{SKU: "AST-02", Qty: 3},
			{SKU: "SHIP", Qty: 1},
		},
		Total: 120,
	}

	assert.Equal(t, 5, cart.UnitCount(c), "shipping pseudo-item must not count as units sold")
	assert.Equal(t, 0, cart.UnitCount(cart.Cart{}))
}
