package catalog

import (
	"strings"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Well-known tier names; businesses may add custom ones
const (
	TierRetail    = "retail"
	TierWholesale = "wholesale"
	TierMember    = "member"
)

// PriceTier is a quantity-break price for a named customer tier
type PriceTier struct {
	Name   string          `json:"name" yaml:"name"`
	MinQty decimal.Decimal `json:"min_qty" yaml:"min_qty"`
	Price  decimal.Decimal `json:"price" yaml:"price"`
}

// ResolvedPrice is the outcome of ResolvePrice
type ResolvedPrice struct {
	Tier      string
	UnitPrice decimal.Decimal
	BelowCost bool
}

// ResolvePrice picks, among tiers named tier with MinQty <= qty, the one with
// the greatest MinQty. Falls back to retail when nothing matches.
func ResolvePrice(retail, cost decimal.Decimal, tiers []PriceTier, tier string, qty decimal.Decimal) ResolvedPrice {
	tier = strings.ToLower(strings.TrimSpace(tier))
	var best *PriceTier
	for i := range tiers {
		t := &tiers[i]
		if t.Name != tier || t.MinQty.GreaterThan(qty) {
			continue
		}
		if best == nil || t.MinQty.GreaterThan(best.MinQty) {
			best = t
		}
	}
	if best == nil {
		return ResolvedPrice{Tier: TierRetail, UnitPrice: retail, BelowCost: retail.LessThan(cost)}
	}
	return ResolvedPrice{Tier: best.Name, UnitPrice: best.Price, BelowCost: best.Price.LessThan(cost)}
}

// ValidateTiers checks prices and (name, minQty) uniqueness, and normalizes names
func ValidateTiers(tiers []PriceTier) ([]PriceTier, error) {
	seen := make(map[string]bool, len(tiers))
	out := make([]PriceTier, 0, len(tiers))
	for _, t := range tiers {
		t.Name = strings.ToLower(strings.TrimSpace(t.Name))
		if t.Name == "" || len(t.Name) > 30 {
			return nil, shared.NewDomainError("INVALID_PRICE_TIER", "Tier name must be 1-30 characters")
		}
		if t.Price.IsNegative() {
			return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
		}
		if t.MinQty.IsNegative() {
			return nil, shared.NewDomainError("INVALID_PRICE_TIER", "Minimum quantity cannot be negative")
		}
		key := t.Name + "|" + t.MinQty.String()
		if seen[key] {
			return nil, shared.NewDomainError("DUPLICATE_PRICE_TIER", "Duplicate tier "+t.Name+" at quantity "+t.MinQty.String())
		}
		seen[key] = true
		t.Price = t.Price.Round(2)
		out = append(out, t)
	}
	return out, nil
}
