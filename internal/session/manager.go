// Package session holds the signed-in identity of one visitor and is the only
// writer of its token and profile.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rb-om1999/ensofinal/internal/api"
	"github.com/rb-om1999/ensofinal/internal/domain"
	"github.com/rb-om1999/ensofinal/internal/infra"
)

// Backend is the subset of the API client the session needs.
type Backend interface {
	Login(ctx context.Context, creds api.Credentials) (api.LoginResult, error)
	Register(ctx context.Context, reg api.Registration) error
	Profile(ctx context.Context, tokens api.TokenSource) (api.Profile, error)
}

// State is an immutable snapshot of the session.
type State struct {
	Token   string
	User    *domain.User
	Profile *domain.UserProfile
	Admin   bool
}

// Authenticated reports whether a token is held.
func (s State) Authenticated() bool { return s.Token != "" }

// IsPro reports the effective pro capability; admins always have it.
func (s State) IsPro() bool {
	if s.Admin {
		return true
	}
	return s.Profile != nil && s.Profile.Plan == domain.UserPlanPro
}

// Credits returns the remaining free credits. ok is false when credits do not
// apply to the account (pro, admin or no profile yet).
func (s State) Credits() (n int, ok bool) {
	if s.Profile == nil || s.IsPro() {
		return 0, false
	}
	return s.Profile.CreditsRemaining, true
}

// PlanLabel is the header badge text.
func (s State) PlanLabel() string {
	plan := domain.UserPlanFree
	if s.Profile != nil {
		plan = s.Profile.Plan
	}
	return domain.PlanLabel(plan, s.Admin)
}

// VerificationPending is the result of a successful registration.
type VerificationPending struct {
	Email string
}

// Options configures a Manager.
type Options struct {
	Backend Backend
	Store   Store
	Admins  AdminPolicy
	Logger  *infra.Logger
	Now     func() time.Time
}

// Manager owns the session of one visitor.
type Manager struct {
	visitorID string
	backend   Backend
	store     Store
	admins    AdminPolicy
	logger    *infra.Logger
	now       func() time.Time

	mu       sync.RWMutex
	state    State
	adminHit bool
}

// NewManager builds a Manager for visitorID. Call Restore to load a stored
// session.
func NewManager(visitorID string, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		visitorID: visitorID,
		backend:   opts.Backend,
		store:     opts.Store,
		admins:    opts.Admins,
		logger:    logger,
		now:       now,
	}
}

// VisitorID returns the id the session is persisted under.
func (m *Manager) VisitorID() string { return m.visitorID }

// Token implements api.TokenSource and always returns the current token.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Token
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() State {
	st := m.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	if st.Profile != nil {
		p := *st.Profile
		st.Profile = &p
	}
	return st
}

// IsAdmin reports the admin capability.
func (m *Manager) IsAdmin() bool { return m.Snapshot().Admin }

// IsPro reports plan == pro or admin.
func (m *Manager) IsPro() bool { return m.Snapshot().IsPro() }

// Restore loads the stored token, if any, and refreshes the profile. A
// rejected token clears the session; the error then matches domain.ErrUnauthorized.
func (m *Manager) Restore(ctx context.Context) error {
	if m.Token() == "" && m.store != nil {
		rec, err := m.store.Load(ctx, m.visitorID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			m.logger.Warn().Err(err).Str("visitor_id", m.visitorID).Msg("session: load failed")
		default:
			m.mu.Lock()
			user := rec.User
			m.state = State{Token: rec.Token, User: &user, Profile: rec.Profile}
			m.adminHit = rec.Admin
			m.state.Admin = m.admins.grants(rec.Admin, rec.Token, user.Email)
			m.mu.Unlock()
		}
	}
	if m.Token() == "" {
		return nil
	}
	return m.Refresh(ctx)
}

// Login authenticates and then loads the profile.
func (m *Manager) Login(ctx context.Context, email, password string) (State, error) {
	res, err := m.backend.Login(ctx, api.Credentials{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		return State{}, err
	}
	m.mu.Lock()
	user := res.User
	if user.Email == "" {
		user.Email = strings.TrimSpace(email)
	}
	m.state = State{Token: res.Token, User: &user}
	m.adminHit = res.Admin
	m.state.Admin = m.admins.grants(res.Admin, res.Token, user.Email)
	m.mu.Unlock()

	if err := m.Refresh(ctx); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return State{}, err
		}
		// signed in without a profile; gating treats it as a free account
		m.logger.Warn().Err(err).Str("visitor_id", m.visitorID).Msg("session: profile fetch after login failed")
		m.persist(ctx)
	}
	m.logger.Info().Str("visitor_id", m.visitorID).Msg("session: signed in")
	return m.Snapshot(), nil
}

// Register creates an account; the user must confirm the emailed link before
// logging in.
func (m *Manager) Register(ctx context.Context, name, email, password string) (VerificationPending, error) {
	email = strings.TrimSpace(email)
	err := m.backend.Register(ctx, api.Registration{Name: strings.TrimSpace(name), Email: email, Password: password})
	if err != nil {
		return VerificationPending{}, err
	}
	return VerificationPending{Email: email}, nil
}

// Refresh fetches the profile with the current token.
func (m *Manager) Refresh(ctx context.Context) error {
	token := m.Token()
	prof, err := m.backend.Profile(ctx, m)
	if err != nil {
		m.HandleError(ctx, err)
		return err
	}
	m.mu.Lock()
	if m.state.Token == "" || m.state.Token != token {
		// the session changed while the fetch was in flight
		m.mu.Unlock()
		return api.ErrNoSession
	}
	p := prof.UserProfile
	m.state.Profile = &p
	if m.state.User == nil {
		m.state.User = &domain.User{Email: p.Email, Name: p.Name}
	} else if m.state.User.Name == "" {
		m.state.User.Name = p.Name
	}
	if prof.Admin {
		m.adminHit = true
	}
	m.state.Admin = m.admins.grants(m.adminHit, m.state.Token, m.state.User.Email)
	m.mu.Unlock()

	m.persist(ctx)
	return nil
}

// ApplyCredits records the credit count reported by the backend. It is the
// only path that changes the cached credit balance.
func (m *Manager) ApplyCredits(ctx context.Context, n int) {
	m.mu.Lock()
	if m.state.Profile == nil {
		m.mu.Unlock()
		return
	}
	if n < 0 {
		n = 0
	}
	m.state.Profile.CreditsRemaining = n
	m.mu.Unlock()
	m.persist(ctx)
}

// HandleError clears the session when err is a rejected token and reports
// whether it did so.
func (m *Manager) HandleError(ctx context.Context, err error) bool {
	if err == nil || api.KindOf(err) != api.KindUnauthorized {
		return false
	}
	m.logger.Info().Str("visitor_id", m.visitorID).Msg("session: token rejected, clearing session")
	m.clear(ctx)
	return true
}

// Logout forgets the token and profile.
func (m *Manager) Logout(ctx context.Context) {
	m.clear(ctx)
}

func (m *Manager) clear(ctx context.Context) {
	m.mu.Lock()
	m.state = State{}
	m.adminHit = false
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Delete(ctx, m.visitorID); err != nil {
			m.logger.Warn().Err(err).Str("visitor_id", m.visitorID).Msg("session: delete failed")
		}
	}
}

func (m *Manager) persist(ctx context.Context) {
	if m.store == nil {
		return
	}
	m.mu.RLock()
	st := m.snapshotLocked()
	adminHit := m.adminHit
	m.mu.RUnlock()
	if st.Token == "" {
		return
	}
	rec := Record{
		VisitorID: m.visitorID,
		Token:     st.Token,
		Profile:   st.Profile,
		Admin:     adminHit,
		UpdatedAt: m.now().UTC(),
	}
	if st.User != nil {
		rec.User = *st.User
	}
	if err := m.store.Save(ctx, rec); err != nil {
		m.logger.Warn().Err(err).Str("visitor_id", m.visitorID).Msg("session: save failed")
	}
}
