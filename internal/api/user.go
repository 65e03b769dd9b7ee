package api

import (
	"context"
	"net/http"

	"github.com/rb-om1999/ensofinal/internal/domain"
)

// ProfileUpdate is the editable part of the profile. Empty fields are sent as
// null so the backend clears them.
type ProfileUpdate struct {
	RiskProfile  domain.RiskProfile
	Balance      domain.Balance
	TradingStyle domain.TradingStyle
}

type profileUpdateWire struct {
	RiskProfile  *string `json:"risk_profile"`
	Balance      *string `json:"balance"`
	TradingStyle *string `json:"trading_style"`
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// Profile fetches the signed-in user's profile.
func (c *Client) Profile(ctx context.Context, tokens TokenSource) (Profile, error) {
	var out profileWire
	err := c.doJSON(ctx, call{
		method:   http.MethodGet,
		path:     "/user/profile",
		tokens:   tokens,
		fallback: "Failed to load profile",
	}, &out)
	if err != nil {
		return Profile{}, err
	}
	return out.toProfile(), nil
}

// UpdateProfile stores trading preferences.
func (c *Client) UpdateProfile(ctx context.Context, tokens TokenSource, upd ProfileUpdate) error {
	return c.doJSON(ctx, call{
		method: http.MethodPut,
		path:   "/user/profile",
		tokens: tokens,
		body: profileUpdateWire{
			RiskProfile:  optional(string(upd.RiskProfile)),
			Balance:      optional(upd.Balance.String()),
			TradingStyle: optional(string(upd.TradingStyle)),
		},
		fallback: "Failed to update profile",
	}, nil)
}

// UpgradeToPro switches the account to the pro plan.
func (c *Client) UpgradeToPro(ctx context.Context, tokens TokenSource) error {
	return c.doJSON(ctx, call{
		method:   http.MethodPost,
		path:     "/user/upgrade-to-pro",
		tokens:   tokens,
		body:     struct{}{},
		fallback: "Upgrade failed. Please try again.",
	}, nil)
}
