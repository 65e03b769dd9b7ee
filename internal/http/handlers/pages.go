package handlers

import (
	"net/http"

	"github.com/rb-om1999/ensofinal/internal/pages"
)

const paymentDoneFlash = "Payment simulation complete! No card was charged."

// Landing renders the home page.
func (a *App) Landing(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	body := pages.LandingPage(v.Session.Snapshot().Authenticated())
	a.render(w, r, v, "landing.html", "Home", body)
}

// Pricing renders the plan cards. ?billing=annual switches the period.
func (a *App) Pricing(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	body := pages.PricingPage(pages.ParseBilling(r.URL.Query().Get("billing")))
	if wantsJSON(r) {
		a.json(w, http.StatusOK, body)
		return
	}
	a.render(w, r, v, "pricing.html", "Pricing", body)
}

// Payment renders the simulated checkout.
func (a *App) Payment(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	body := a.Pay.View(pages.ParseBilling(r.URL.Query().Get("billing")))
	a.render(w, r, v, "payment.html", "Checkout", body)
}

// CompletePayment waits out the simulated processing and returns to the app.
// Closing the tab cancels the wait.
func (a *App) CompletePayment(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	target, err := a.Pay.Complete(r.Context())
	if err != nil {
		a.requestLogger(r).Info().Err(err).Msg("payment: simulation abandoned")
		return
	}
	v.Flash(paymentDoneFlash)
	a.finish(w, r, v, nil, target)
}
