package pages

import (
	"context"
	"time"
)

// Payment simulates checkout. No processor is called; Complete only waits.
type Payment struct {
	Delay time.Duration
	// After is replaced in tests.
	After func(time.Duration) <-chan time.Time
}

// PaymentView is the render model of the checkout page.
type PaymentView struct {
	Billing  Billing
	Plan     PlanCard
	Redirect string
}

// View prices the pro plan for the checkout summary.
func (p Payment) View(b Billing) PaymentView {
	v := PaymentView{Billing: b, Redirect: "/app"}
	for _, c := range PricingPage(b).Cards {
		if c.Featured {
			v.Plan = c
		}
	}
	return v
}

// Complete waits out the simulated processing delay and returns the page to
// redirect to.
func (p Payment) Complete(ctx context.Context) (string, error) {
	after := p.After
	if after == nil {
		after = time.After
	}
	if p.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-after(p.Delay):
		}
	}
	return "/app", nil
}
