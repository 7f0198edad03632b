package promo

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator validates a promo code against a cart subtotal and returns the
// computed discount.
type Validator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Discount, error)
}

var _ Validator = (*RepoValidator)(nil)

// RepoValidator implements Validator by looking up promo rules from a
// Repository and applying them via Apply.
type RepoValidator struct {
	repo Repository
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo}
}

// Validate looks up the rule for code and applies it to the subtotal. It
// returns ErrInvalidPromo when the code is unknown or the cart is not
// eligible.
func (v *RepoValidator) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Discount, error) {
	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidPromo) {
			return nil, ErrInvalidPromo
		}
		return nil, errors.Wrap(err, "lookup promo")
	}

	d, err := Apply(rule, subtotal)
	if err != nil {
		return nil, err
	}

	return &d, nil
}

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-process promo rule set used when no database is
// configured, and in tests.
type MemoryRepository struct {
	rules map[string]Rule
}

// NewMemoryRepository builds a MemoryRepository from the given rules.
func NewMemoryRepository(rules ...Rule) *MemoryRepository {
	m := &MemoryRepository{rules: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		m.rules[strings.ToUpper(r.Code)] = r
	}
	return m
}

// FindByCode returns the rule for code or ErrInvalidPromo. Codes match
// case-insensitively, same as the postgres repository.
func (m *MemoryRepository) FindByCode(_ context.Context, code string) (*Rule, error) {
	rule, ok := m.rules[strings.ToUpper(code)]
	if !ok {
		return nil, ErrInvalidPromo
	}
	return &rule, nil
}
