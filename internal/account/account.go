// Package account drives the profile settings page and the upgrade to pro.
package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/rb-om1999/ensofinal/internal/api"
	"github.com/rb-om1999/ensofinal/internal/domain"
	"github.com/rb-om1999/ensofinal/internal/infra"
	"github.com/rb-om1999/ensofinal/internal/session"
)

// Session is the identity the flow reads and refreshes.
type Session interface {
	api.TokenSource
	Snapshot() session.State
	Refresh(ctx context.Context) error
	HandleError(ctx context.Context, err error) bool
}

// Backend performs the profile writes.
type Backend interface {
	UpdateProfile(ctx context.Context, tokens api.TokenSource, upd api.ProfileUpdate) error
	UpgradeToPro(ctx context.Context, tokens api.TokenSource) error
}

// ProfileForm is the submitted settings form, as typed.
type ProfileForm struct {
	RiskProfile  string
	Balance      string
	TradingStyle string
}

// Flow is the profile and upgrade flow for one visitor.
type Flow struct {
	session Session
	backend Backend
	logger  *infra.Logger
}

// New builds a Flow.
func New(s Session, b Backend, logger *infra.Logger) *Flow {
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Flow{session: s, backend: b, logger: logger}
}

// Profile fetches the profile once through the session so every consumer sees
// the same copy.
func (f *Flow) Profile(ctx context.Context) (domain.UserProfile, error) {
	if !f.session.Snapshot().Authenticated() {
		return domain.UserProfile{}, domain.ErrUnauthorized
	}
	if err := f.session.Refresh(ctx); err != nil {
		return domain.UserProfile{}, err
	}
	st := f.session.Snapshot()
	if st.Profile == nil {
		return domain.UserProfile{}, fmt.Errorf("account: %w: profile", domain.ErrNotFound)
	}
	return *st.Profile, nil
}

// SaveEnabled reports whether the settings form may be submitted.
func (f *Flow) SaveEnabled() bool {
	return f.session.Snapshot().IsPro()
}

// Save stores the trading preferences. Free accounts get ErrProRequired and
// nothing is sent.
func (f *Flow) Save(ctx context.Context, form ProfileForm) error {
	if !f.SaveEnabled() {
		return domain.ErrProRequired
	}
	upd, err := parseForm(form)
	if err != nil {
		return err
	}
	if err := f.backend.UpdateProfile(ctx, f.session, upd); err != nil {
		f.session.HandleError(ctx, err)
		return err
	}
	return f.session.Refresh(ctx)
}

// Upgrade moves the account to pro and refreshes the session so the new plan
// is visible everywhere. Already-pro accounts are left alone.
func (f *Flow) Upgrade(ctx context.Context) error {
	st := f.session.Snapshot()
	if !st.Authenticated() {
		return domain.ErrUnauthorized
	}
	if st.Profile != nil && st.Profile.Plan == domain.UserPlanPro {
		return nil
	}
	if err := f.backend.UpgradeToPro(ctx, f.session); err != nil {
		f.session.HandleError(ctx, err)
		return err
	}
	f.logger.Info().Str("user_id", userID(st)).Msg("account: upgraded to pro")
	return f.session.Refresh(ctx)
}

// Message turns a Save or Upgrade error into display text.
func Message(err error, fallback string) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrProRequired):
		return "Upgrade to Pro to save your trading preferences."
	case errors.Is(err, domain.ErrInvalidInput):
		return "Please check the values you entered."
	default:
		return api.Message(err, fallback)
	}
}

func parseForm(form ProfileForm) (api.ProfileUpdate, error) {
	var (
		upd api.ProfileUpdate
		err error
	)
	if upd.RiskProfile, err = domain.ParseRiskProfile(form.RiskProfile); err != nil {
		return upd, err
	}
	if upd.Balance, err = domain.ParseBalance(form.Balance); err != nil {
		return upd, err
	}
	if upd.TradingStyle, err = domain.ParseTradingStyle(form.TradingStyle); err != nil {
		return upd, err
	}
	return upd, nil
}

func userID(st session.State) string {
	if st.User == nil {
		return ""
	}
	return st.User.ID
}
