package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rb-om1999/ensofinal/internal/domain"
)

// flexString decodes a JSON string or number into text.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	*f = flexString(string(data))
	return nil
}

// flexInt decodes a JSON number or numeric string. Absent or null leaves it nil.
type flexInt struct {
	v *int
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		f.v = nil
		return nil
	}
	n, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return err
	}
	i := int(n)
	f.v = &i
	return nil
}

type userWire struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	IsAdmin bool   `json:"is_admin"`
}

type tokenResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        userWire `json:"user"`
}

type profileMetadata struct {
	Plan             string  `json:"plan"`
	Role             string  `json:"role"`
	CreditsRemaining flexInt `json:"credits_remaining"`
}

// profileWire accepts both profile shapes the backend has served: flat fields
// and the older nested user_metadata object. Flat fields win.
type profileWire struct {
	Email            string           `json:"email"`
	Name             string           `json:"name"`
	Plan             string           `json:"plan"`
	Role             string           `json:"role"`
	IsAdmin          bool             `json:"is_admin"`
	CreditsRemaining flexInt          `json:"credits_remaining"`
	RiskProfile      flexString       `json:"risk_profile"`
	Balance          flexString       `json:"balance"`
	TradingStyle     flexString       `json:"trading_style"`
	UserMetadata     *profileMetadata `json:"user_metadata"`
}

// Profile is the decoded profile plus the role information it carried.
type Profile struct {
	domain.UserProfile
	// Admin is true when the payload itself grants the admin role.
	Admin bool
}

func (w profileWire) toProfile() Profile {
	plan := w.Plan
	role := w.Role
	credits := w.CreditsRemaining.v
	if md := w.UserMetadata; md != nil {
		if plan == "" {
			plan = md.Plan
		}
		if role == "" {
			role = md.Role
		}
		if credits == nil {
			credits = md.CreditsRemaining.v
		}
	}
	p := domain.UserProfile{
		Email: strings.TrimSpace(w.Email),
		Name:  strings.TrimSpace(w.Name),
		Plan:  domain.ParsePlan(plan),
		Role:  domain.UserRoleUser,
	}
	admin := w.IsAdmin || strings.EqualFold(role, string(domain.UserRoleAdmin))
	if admin {
		p.Role = domain.UserRoleAdmin
	}
	if credits != nil {
		p.CreditsRemaining = *credits
	}
	// stored preferences predate validation, unknown values read as unset
	p.RiskProfile, _ = domain.ParseRiskProfile(string(w.RiskProfile))
	p.TradingStyle, _ = domain.ParseTradingStyle(string(w.TradingStyle))
	p.Balance, _ = domain.ParseBalance(string(w.Balance))
	return Profile{UserProfile: p, Admin: admin}
}

type targetTradeWire struct {
	EntryPrice flexString `json:"entryPrice"`
	StopLoss   flexString `json:"stopLoss"`
	TakeProfit flexString `json:"takeProfit"`
}

type analysisWire struct {
	Movement            string           `json:"movement"`
	Action              string           `json:"action"`
	Confidence          flexString       `json:"confidence"`
	Summary             string           `json:"summary"`
	Signals             []string         `json:"signals"`
	TechnicalSignals    []string         `json:"technicalSignals"`
	FullAnalysis        string           `json:"fullAnalysis"`
	CustomStrategy      string           `json:"customStrategy"`
	IntegrationVerdict  string           `json:"integrationVerdict"`
	MarketContext       []string         `json:"marketContext"`
	ConflictReasoning   string           `json:"conflictReasoning"`
	TargetTrade         *targetTradeWire `json:"targetTrade"`
	CreditsRemaining    flexInt          `json:"creditsRemaining"`
	CreditsRemainingAlt flexInt          `json:"credits_remaining"`
}

func (w analysisWire) toAnalysis() domain.Analysis {
	a := domain.Analysis{
		Movement:           strings.TrimSpace(w.Movement),
		Action:             strings.TrimSpace(w.Action),
		Confidence:         string(w.Confidence),
		Summary:            strings.TrimSpace(w.Summary),
		Signals:            w.Signals,
		FullAnalysis:       strings.TrimSpace(w.FullAnalysis),
		CustomStrategy:     strings.TrimSpace(w.CustomStrategy),
		IntegrationVerdict: strings.TrimSpace(w.IntegrationVerdict),
		MarketContext:      w.MarketContext,
		ConflictReasoning:  strings.TrimSpace(w.ConflictReasoning),
		CreditsRemaining:   w.CreditsRemaining.v,
	}
	if len(a.Signals) == 0 {
		a.Signals = w.TechnicalSignals
	}
	if a.CreditsRemaining == nil {
		a.CreditsRemaining = w.CreditsRemainingAlt.v
	}
	if tt := w.TargetTrade; tt != nil {
		trade := domain.TargetTrade{
			EntryPrice: domain.ParsePriceLevel(string(tt.EntryPrice)),
			StopLoss:   domain.ParsePriceLevel(string(tt.StopLoss)),
			TakeProfit: domain.ParsePriceLevel(string(tt.TakeProfit)),
		}
		if !trade.EntryPrice.IsZero() || !trade.StopLoss.IsZero() || !trade.TakeProfit.IsZero() {
			a.TargetTrade = &trade
		}
	}
	return a
}

type captureWire struct {
	Screenshot       string `json:"screenshot"`
	ScreenshotBase64 string `json:"screenshotBase64"`
	Metadata         struct {
		Platform string  `json:"platform"`
		Width    flexInt `json:"width"`
		Height   flexInt `json:"height"`
	} `json:"metadata"`
	Symbol      string `json:"symbol"`
	Timeframe   string `json:"timeframe"`
	ChartURL    string `json:"chart_url"`
	ChartURLAlt string `json:"chartUrl"`
}

func (w captureWire) toPreview(req ChartRequest) domain.ScreenshotPreview {
	p := domain.ScreenshotPreview{
		ScreenshotBase64: firstNonEmpty(w.ScreenshotBase64, w.Screenshot),
		Metadata:         domain.ScreenshotMetadata{Platform: strings.TrimSpace(w.Metadata.Platform)},
		Symbol:           firstNonEmpty(strings.ToUpper(w.Symbol), req.Symbol),
		Timeframe:        req.Timeframe,
		ChartURL:         firstNonEmpty(w.ChartURL, w.ChartURLAlt, req.ChartURL),
	}
	if tf, err := domain.ParseTimeframe(w.Timeframe); err == nil {
		p.Timeframe = tf
	}
	if w.Metadata.Width.v != nil {
		p.Metadata.Width = *w.Metadata.Width.v
	}
	if w.Metadata.Height.v != nil {
		p.Metadata.Height = *w.Metadata.Height.v
	}
	return p
}

type historyWire struct {
	ID        string       `json:"id"`
	MongoID   flexString   `json:"_id"`
	Symbol    string       `json:"symbol"`
	Timeframe string       `json:"timeframe"`
	Timestamp string       `json:"timestamp"`
	PlanUsed  string       `json:"plan_used"`
	Analysis  analysisWire `json:"analysis"`
}

var historyLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"}

func (w historyWire) toEntry() domain.HistoryEntry {
	e := domain.HistoryEntry{
		ID:        firstNonEmpty(w.ID, string(w.MongoID)),
		Symbol:    strings.ToUpper(strings.TrimSpace(w.Symbol)),
		Timeframe: strings.TrimSpace(w.Timeframe),
		PlanUsed:  domain.ParsePlan(w.PlanUsed),
		Analysis:  w.Analysis.toAnalysis(),
	}
	for _, layout := range historyLayouts {
		if ts, err := time.Parse(layout, strings.TrimSpace(w.Timestamp)); err == nil {
			e.Timestamp = ts.UTC()
			break
		}
	}
	return e
}
