// Package pages holds the render models of the static marketing pages.
package pages

import (
	"github.com/shopspring/decimal"

	"github.com/rb-om1999/ensofinal/internal/domain"
)

// Billing selects the pricing period shown.
type Billing string

const (
	BillingMonthly Billing = "monthly"
	BillingAnnual  Billing = "annual"
)

// ParseBilling defaults to monthly for anything but "annual".
func ParseBilling(v string) Billing {
	if Billing(v) == BillingAnnual {
		return BillingAnnual
	}
	return BillingMonthly
}

// UpgradeTarget is where the pro call to action leads.
const UpgradeTarget = "/app?upgrade=pro"

// Plan is one pricing card.
type Plan struct {
	ID       domain.UserPlan
	Name     string
	Monthly  decimal.Decimal
	Annual   decimal.Decimal
	Features []string
	CTA      string
	CTAHref  string
	Featured bool
}

var (
	proMonthly       = decimal.NewFromInt(29)
	proAnnualMonthly = decimal.NewFromInt(23)
)

// Catalogue lists the plans in display order.
func Catalogue() []Plan {
	return []Plan{
		{
			ID:      domain.UserPlanFree,
			Name:    "Free",
			Monthly: decimal.Zero,
			Annual:  decimal.Zero,
			Features: []string{
				"5 chart analyses per month",
				"Market direction and confidence",
				"Analysis summary",
			},
			CTA:     "Get started",
			CTAHref: "/app",
		},
		{
			ID:      domain.UserPlanPro,
			Name:    "Pro",
			Monthly: proMonthly,
			Annual:  proAnnualMonthly,
			Features: []string{
				"Unlimited chart analyses",
				"Entry, stop loss and take profit levels",
				"Full technical breakdown and signals",
				"Custom strategy for your risk profile",
				"Trading style personalization",
			},
			CTA:      "Upgrade to Pro",
			CTAHref:  UpgradeTarget,
			Featured: true,
		},
	}
}

// PlanCard is a Plan priced for one billing period.
type PlanCard struct {
	Plan
	Price     string
	Period    string
	BilledAs  string
	SavingPct int
}

// Pricing is the render model of the pricing page.
type Pricing struct {
	Billing Billing
	Cards   []PlanCard
}

// PricingPage prices the catalogue for the chosen billing period.
func PricingPage(b Billing) Pricing {
	out := Pricing{Billing: b}
	for _, p := range Catalogue() {
		card := PlanCard{Plan: p, Period: "/month"}
		price := p.Monthly
		if b == BillingAnnual {
			price = p.Annual
			if p.Annual.IsPositive() {
				card.BilledAs = "Billed annually at " + dollars(p.Annual.Mul(decimal.NewFromInt(12)))
				card.SavingPct = int(p.Monthly.Sub(p.Annual).Div(p.Monthly).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
			}
		}
		card.Price = dollars(price)
		out.Cards = append(out.Cards, card)
	}
	return out
}

func dollars(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return "$" + d.StringFixed(0)
	}
	return "$" + d.StringFixed(2)
}
