package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rb-om1999/ensofinal/internal/domain"
)

// Record is the persisted token/profile cache of one visitor.
type Record struct {
	VisitorID string
	Token     string
	User      domain.User
	Profile   *domain.UserProfile
	Admin     bool
	UpdatedAt time.Time
}

// Store persists session records. Load returns domain.ErrNotFound for unknown
// visitors. Sweep removes records not updated since the cutoff.
type Store interface {
	Load(ctx context.Context, visitorID string) (Record, error)
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context, visitorID string) error
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

type storedProfile struct {
	Email            string `json:"email"`
	Name             string `json:"name"`
	Plan             string `json:"plan"`
	Role             string `json:"role"`
	CreditsRemaining int    `json:"credits_remaining"`
	RiskProfile      string `json:"risk_profile,omitempty"`
	Balance          string `json:"balance,omitempty"`
	TradingStyle     string `json:"trading_style,omitempty"`
}

// EncodeProfile serialises a profile for storage. A nil profile encodes to nil.
func EncodeProfile(p *domain.UserProfile) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	out, err := json.Marshal(storedProfile{
		Email:            p.Email,
		Name:             p.Name,
		Plan:             string(p.Plan),
		Role:             string(p.Role),
		CreditsRemaining: p.CreditsRemaining,
		RiskProfile:      string(p.RiskProfile),
		Balance:          p.Balance.String(),
		TradingStyle:     string(p.TradingStyle),
	})
	if err != nil {
		return nil, fmt.Errorf("session: encode profile: %w", err)
	}
	return out, nil
}

// DecodeProfile is the inverse of EncodeProfile. Empty input yields nil.
func DecodeProfile(data []byte) (*domain.UserProfile, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var sp storedProfile
	if err := json.Unmarshal(data, &sp); err != nil {
		return nil, fmt.Errorf("session: decode profile: %w", err)
	}
	p := &domain.UserProfile{
		Email:            sp.Email,
		Name:             sp.Name,
		Plan:             domain.ParsePlan(sp.Plan),
		Role:             domain.UserRole(sp.Role),
		CreditsRemaining: sp.CreditsRemaining,
		RiskProfile:      domain.RiskProfile(sp.RiskProfile),
		TradingStyle:     domain.TradingStyle(sp.TradingStyle),
	}
	if sp.Balance != "" {
		if d, err := decimal.NewFromString(sp.Balance); err == nil {
			p.Balance = domain.Balance{Amount: d, Set: true}
		}
	}
	return p, nil
}
