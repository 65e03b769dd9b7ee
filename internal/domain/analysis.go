package domain

import "time"

// MaxUploadBytes caps the chart image accepted in upload mode.
const MaxUploadBytes = 4 << 20

// TargetTrade holds the suggested entry and exit levels.
type TargetTrade struct {
	EntryPrice PriceLevel `json:"entryPrice"`
	StopLoss   PriceLevel `json:"stopLoss"`
	TakeProfit PriceLevel `json:"takeProfit"`
}

// Analysis is the backend's verdict for one chart. CreditsRemaining is nil when
// the response did not carry a credit count.
type Analysis struct {
	Movement           string       `json:"movement"`
	Action             string       `json:"action"`
	Confidence         string       `json:"confidence"`
	Summary            string       `json:"summary"`
	Signals            []string     `json:"signals"`
	FullAnalysis       string       `json:"fullAnalysis"`
	CustomStrategy     string       `json:"customStrategy,omitempty"`
	IntegrationVerdict string       `json:"integrationVerdict,omitempty"`
	MarketContext      []string     `json:"marketContext,omitempty"`
	ConflictReasoning  string       `json:"conflictReasoning,omitempty"`
	TargetTrade        *TargetTrade `json:"targetTrade,omitempty"`
	CreditsRemaining   *int         `json:"creditsRemaining,omitempty"`
}

// ScreenshotMetadata describes the captured chart image.
type ScreenshotMetadata struct {
	Platform string
	Width    int
	Height   int
}

// ScreenshotPreview is the capture result shown before a link-mode analysis.
type ScreenshotPreview struct {
	ScreenshotBase64 string
	Metadata         ScreenshotMetadata
	Symbol           string
	Timeframe        Timeframe
	ChartURL         string
}

// HistoryEntry is one past analysis as listed by the backend.
type HistoryEntry struct {
	ID        string
	Symbol    string
	Timeframe string
	Timestamp time.Time
	PlanUsed  UserPlan
	Analysis  Analysis
}
