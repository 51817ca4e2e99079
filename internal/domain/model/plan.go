package model

// PlanType identifies one of the fixed BlessBox pricing tiers.
type PlanType string

const (
	PlanFree       PlanType = "free"
	PlanStandard   PlanType = "standard"
	PlanEnterprise PlanType = "enterprise"
)

// Unlimited marks a cap that is not enforced.
const Unlimited = -1

// PlanLimits are the static per-tier ceilings. Registrations are counted
// against the subscription row; exports and QR code sets are checked at
// action time.
type PlanLimits struct {
	Registrations int
	Exports       int
	QRCodeSets    int
}

var planLimits = map[PlanType]PlanLimits{
	PlanFree:       {Registrations: 50, Exports: 3, QRCodeSets: 1},
	PlanStandard:   {Registrations: 1000, Exports: 50, QRCodeSets: 10},
	PlanEnterprise: {Registrations: Unlimited, Exports: Unlimited, QRCodeSets: Unlimited},
}

// LimitsFor returns the ceilings for a tier. Unknown tiers get free limits.
func LimitsFor(pt PlanType) PlanLimits {
	if l, ok := planLimits[pt]; ok {
		return l
	}
	return planLimits[PlanFree]
}

var planPriceCents = map[PlanType]int64{
	PlanFree:       0,
	PlanStandard:   2900,
	PlanEnterprise: 9900,
}

// PriceCentsFor returns the monthly price of a tier in cents.
func PriceCentsFor(pt PlanType) int64 {
	return planPriceCents[pt]
}

// Valid reports whether pt names a known tier.
func (pt PlanType) Valid() bool {
	_, ok := planLimits[pt]
	return ok
}
