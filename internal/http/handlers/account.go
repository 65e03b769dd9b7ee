package handlers

import (
	"errors"
	"net/http"

	"github.com/rb-om1999/ensofinal/internal/account"
	"github.com/rb-om1999/ensofinal/internal/domain"
)

// Profile shows the account page, refreshed from the backend.
func (a *App) Profile(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if _, err := v.Account.Profile(r.Context()); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			a.finish(w, r, v, err, "/app?auth=login")
			return
		}
		v.Flash(account.Message(err, "Failed to load profile"))
	}
	if wantsJSON(r) {
		a.json(w, http.StatusOK, v.Account.View())
		return
	}
	a.render(w, r, v, "profile.html", "Profile", v.Account.View())
}

// SaveProfile stores the trading preferences. Pro only.
func (a *App) SaveProfile(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	_ = r.ParseForm()
	err = v.Account.Save(backendContext(r), account.ProfileForm{
		RiskProfile:  r.PostFormValue("risk_profile"),
		Balance:      r.PostFormValue("balance"),
		TradingStyle: r.PostFormValue("trading_style"),
	})
	if err != nil {
		v.Flash(account.Message(err, "Failed to update profile"))
	} else {
		v.Flash("Profile updated successfully")
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		a.finish(w, r, v, err, "/app?auth=login")
		return
	}
	a.finish(w, r, v, err, "/profile")
}

// Upgrade moves the account to the pro plan.
func (a *App) Upgrade(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	err = v.Account.Upgrade(backendContext(r))
	switch {
	case err == nil:
		v.Flash("Welcome to Pro! Your account has been upgraded.")
		a.finish(w, r, v, nil, "/app")
	case errors.Is(err, domain.ErrUnauthorized):
		a.finish(w, r, v, err, "/app?auth=login")
	default:
		a.requestLogger(r).Warn().Err(err).Msg("account: upgrade failed")
		v.Flash(account.Message(err, "Upgrade failed. Please try again."))
		a.finish(w, r, v, err, "/app?upgrade=pro")
	}
}
