package model

import (
	"math"
	"strings"
	"time"

	"blessbox/internal/domain"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon is a discount code with usage and expiry constraints.
// Codes are stored uppercase; lookups normalize first.
type Coupon struct {
	ID              string // UUID
	Code            string // unique, uppercase
	DiscountType    DiscountType
	DiscountValue   int64 // percent (0-100) or cents depending on type
	Currency        string
	MaxUses         *int // nil = uncapped
	CurrentUses     int
	ExpiresAt       *time.Time // nil = never expires
	ApplicablePlans []PlanType // empty = all plans
	CreatedBy       string
	CreatedAt       time.Time
}

// NormalizeCouponCode upper-cases and trims a user-entered code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks expiry and usage caps at the given instant.
// Expiry is inclusive: a coupon expiring exactly at now is already invalid.
func (c *Coupon) Validate(now time.Time) error {
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return domain.ErrCouponExpired
	}
	if c.MaxUses != nil && c.CurrentUses >= *c.MaxUses {
		return domain.ErrCouponExhausted
	}
	return nil
}

// AppliesTo reports whether the coupon covers the given plan tier.
func (c *Coupon) AppliesTo(pt PlanType) bool {
	if len(c.ApplicablePlans) == 0 {
		return true
	}
	for _, p := range c.ApplicablePlans {
		if p == pt {
			return true
		}
	}
	return false
}

// Discount computes the discounted amount in cents. Never negative.
func (c *Coupon) Discount(amountCents int64) int64 {
	switch c.DiscountType {
	case DiscountPercentage:
		discounted := int64(math.Round(float64(amountCents) * (1 - float64(c.DiscountValue)/100)))
		if discounted < 0 {
			return 0
		}
		return discounted
	case DiscountFixed:
		discounted := amountCents - c.DiscountValue
		if discounted < 0 {
			return 0
		}
		return discounted
	default:
		return amountCents
	}
}

// CouponRedemption records a coupon applied to an organization's
// subscription. Immutable once written.
type CouponRedemption struct {
	ID             string // UUID
	CouponID       string
	OrganizationID string
	SubscriptionID string
	RedeemedAt     time.Time
}
