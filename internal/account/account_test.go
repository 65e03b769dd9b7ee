package account

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rb-om1999/ensofinal/internal/api"
	"github.com/rb-om1999/ensofinal/internal/domain"
	"github.com/rb-om1999/ensofinal/internal/session"
)

type stubSession struct {
	state      session.State
	refreshes  int
	refreshErr error
	// onRefresh mutates the state the way a backend fetch would.
	onRefresh func(*session.State)
	cleared   bool
}

func (s *stubSession) Token() string           { return s.state.Token }
func (s *stubSession) Snapshot() session.State { return s.state }

func (s *stubSession) Refresh(context.Context) error {
	s.refreshes++
	if s.refreshErr != nil {
		return s.refreshErr
	}
	if s.onRefresh != nil {
		s.onRefresh(&s.state)
	}
	return nil
}

func (s *stubSession) HandleError(_ context.Context, err error) bool {
	if api.KindOf(err) == api.KindUnauthorized {
		s.state = session.State{}
		s.cleared = true
		return true
	}
	return false
}

type stubBackend struct {
	updates  []api.ProfileUpdate
	upgrades int
	err      error
}

func (b *stubBackend) UpdateProfile(_ context.Context, _ api.TokenSource, upd api.ProfileUpdate) error {
	b.updates = append(b.updates, upd)
	return b.err
}

func (b *stubBackend) UpgradeToPro(context.Context, api.TokenSource) error {
	b.upgrades++
	return b.err
}

func stateFor(plan domain.UserPlan) session.State {
	return session.State{
		Token:   "tok",
		User:    &domain.User{ID: "u1", Email: "trader@example.com", Name: "Dana"},
		Profile: &domain.UserProfile{Email: "trader@example.com", Plan: plan, CreditsRemaining: 4},
	}
}

func TestSaveRequiresPro(t *testing.T) {
	s := &stubSession{state: stateFor(domain.UserPlanFree)}
	b := &stubBackend{}
	f := New(s, b, nil)

	if f.SaveEnabled() {
		t.Fatalf("SaveEnabled() = true for a free account")
	}
	err := f.Save(context.Background(), ProfileForm{RiskProfile: "moderate"})
	if !errors.Is(err, domain.ErrProRequired) {
		t.Fatalf("Save error = %v, want pro required", err)
	}
	if len(b.updates) != 0 || s.refreshes != 0 {
		t.Fatalf("free save reached the backend: updates=%d refreshes=%d", len(b.updates), s.refreshes)
	}
	if got := Message(err, ""); got == "" {
		t.Fatalf("Message() empty for ErrProRequired")
	}
}

func TestSaveAsPro(t *testing.T) {
	s := &stubSession{state: stateFor(domain.UserPlanPro)}
	b := &stubBackend{}
	f := New(s, b, nil)

	err := f.Save(context.Background(), ProfileForm{RiskProfile: "Aggressive", Balance: "$12,500.50", TradingStyle: "trend-following"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(b.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(b.updates))
	}
	upd := b.updates[0]
	if upd.RiskProfile != domain.RiskAggressive || upd.TradingStyle != domain.StyleTrendFollowing {
		t.Fatalf("update = %+v", upd)
	}
	if !upd.Balance.Set || !upd.Balance.Amount.Equal(decimal.RequireFromString("12500.50")) {
		t.Fatalf("balance = %+v", upd.Balance)
	}
	if s.refreshes != 1 {
		t.Fatalf("refreshes = %d, want 1", s.refreshes)
	}
}

func TestSaveValidatesEnums(t *testing.T) {
	cases := map[string]ProfileForm{
		"risk":    {RiskProfile: "reckless"},
		"balance": {Balance: "-20"},
		"style":   {TradingStyle: "vibes"},
	}
	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			b := &stubBackend{}
			f := New(&stubSession{state: stateFor(domain.UserPlanPro)}, b, nil)
			if err := f.Save(context.Background(), form); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("Save error = %v, want invalid input", err)
			}
			if len(b.updates) != 0 {
				t.Fatalf("invalid form was sent")
			}
		})
	}
}

func TestSaveUnauthorizedClearsSession(t *testing.T) {
	s := &stubSession{state: stateFor(domain.UserPlanPro)}
	b := &stubBackend{err: &api.Error{Kind: api.KindUnauthorized, Status: 401}}
	f := New(s, b, nil)

	if err := f.Save(context.Background(), ProfileForm{}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Save error = %v", err)
	}
	if !s.cleared {
		t.Fatalf("session not cleared on 401")
	}
}

func TestUpgradeRefreshesPlan(t *testing.T) {
	s := &stubSession{
		state: stateFor(domain.UserPlanFree),
		onRefresh: func(st *session.State) {
			p := *st.Profile
			p.Plan = domain.UserPlanPro
			st.Profile = &p
		},
	}
	b := &stubBackend{}
	f := New(s, b, nil)

	if err := f.Upgrade(context.Background()); err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if b.upgrades != 1 || s.refreshes != 1 {
		t.Fatalf("upgrades=%d refreshes=%d, want 1 and 1", b.upgrades, s.refreshes)
	}
	if !s.Snapshot().IsPro() || !f.SaveEnabled() {
		t.Fatalf("plan not pro after upgrade")
	}

	if err := f.Upgrade(context.Background()); err != nil {
		t.Fatalf("second Upgrade: %v", err)
	}
	if b.upgrades != 1 {
		t.Fatalf("already-pro account upgraded again")
	}
}

func TestUpgradeFailure(t *testing.T) {
	s := &stubSession{state: stateFor(domain.UserPlanFree)}
	b := &stubBackend{err: &api.Error{Kind: api.KindBackend, Status: 500, Message: "Payment provider unavailable"}}
	f := New(s, b, nil)

	err := f.Upgrade(context.Background())
	if err == nil {
		t.Fatalf("Upgrade succeeded, want error")
	}
	if got := Message(err, "Upgrade failed"); got != "Payment provider unavailable" {
		t.Fatalf("Message = %q", got)
	}
	if s.refreshes != 0 || s.cleared {
		t.Fatalf("refreshes=%d cleared=%v after backend failure", s.refreshes, s.cleared)
	}
}

func TestUpgradeWithoutSession(t *testing.T) {
	b := &stubBackend{}
	f := New(&stubSession{}, b, nil)
	if err := f.Upgrade(context.Background()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Upgrade error = %v", err)
	}
	if _, err := f.Profile(context.Background()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Profile error = %v", err)
	}
	if b.upgrades != 0 {
		t.Fatalf("call sent without a session")
	}
}

func TestProfileAndView(t *testing.T) {
	st := stateFor(domain.UserPlanFree)
	bal, _ := domain.ParseBalance("2500")
	st.Profile.RiskProfile = domain.RiskConservative
	st.Profile.TradingStyle = domain.StyleScalpingEMA
	st.Profile.Balance = bal
	s := &stubSession{state: st}
	f := New(s, &stubBackend{}, nil)

	p, err := f.Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.Email != "trader@example.com" || s.refreshes != 1 {
		t.Fatalf("profile=%+v refreshes=%d", p, s.refreshes)
	}

	v := f.View()
	if v.PlanLabel != "Free" || !v.ShowCredits || v.Credits != 4 || v.SaveEnabled {
		t.Fatalf("view = %+v", v)
	}
	if v.Balance != "2500" || v.Name != "Dana" {
		t.Fatalf("view fields = %+v", v)
	}
	if len(v.RiskOptions) != 3 || !v.RiskOptions[0].Selected {
		t.Fatalf("risk options = %+v", v.RiskOptions)
	}
	var selected string
	for _, o := range v.StyleOptions {
		if o.Selected {
			selected = o.Label
		}
	}
	if selected != "Scalping EMA" {
		t.Fatalf("selected style = %q", selected)
	}
}
