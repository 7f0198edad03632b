// Package promo applies promotional codes to checkout subtotals.
package promo

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported promo discount strategies.
type Kind string

const (
	// KindPercentage takes a percentage off the cart subtotal.
	KindPercentage Kind = "percentage"
	// KindFixed takes a fixed monetary amount off, capped at the subtotal.
	KindFixed Kind = "fixed"
)

// ErrInvalidPromo is returned when a promo code is not found or the cart
// does not satisfy the rule's minimum subtotal.
var ErrInvalidPromo = errors.New("invalid promo code")

// Rule defines one promo code's discount behaviour and eligibility.
type Rule struct {
	Code        string
	Kind        Kind
	Value       decimal.Decimal
	MinSubtotal decimal.Decimal
	Description string
}

// Discount holds the computed discount amount and a human-readable
// description for display on the order summary.
type Discount struct {
	Amount      decimal.Decimal
	Description string
}

// Repository provides lookup of promo rules by code.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
}

var hundred = decimal.NewFromInt(100)

// Apply calculates the discount for the given rule and cart subtotal.
// It returns ErrInvalidPromo when the subtotal is below the rule's minimum.
// The result never exceeds the subtotal and is never negative.
func Apply(rule *Rule, subtotal decimal.Decimal) (Discount, error) {
	if subtotal.LessThan(rule.MinSubtotal) {
		return Discount{}, ErrInvalidPromo
	}

	var amount decimal.Decimal
	switch rule.Kind {
	case KindPercentage:
		amount = subtotal.Mul(rule.Value).Div(hundred)
	case KindFixed:
		amount = rule.Value
	default:
		return Discount{}, errors.Errorf("unsupported promo kind: %q", rule.Kind)
	}

	amount = decimal.Min(amount, subtotal)
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return Discount{
		Amount:      amount.Round(2),
		Description: rule.Description,
	}, nil
}
