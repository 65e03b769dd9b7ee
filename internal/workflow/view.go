package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/rb-om1999/ensofinal/internal/domain"
)

// Result is an analysis as shown to a given plan. Free accounts see the
// headline fields only; Full carries everything else for pro and admin.
type Result struct {
	Movement   string  `json:"movement"`
	Confidence string  `json:"confidence"`
	Summary    string  `json:"summary"`
	Upsell     bool    `json:"upsell,omitempty"`
	Full       *Detail `json:"detail,omitempty"`
}

// Detail is the pro-only part of an analysis.
type Detail struct {
	Action             string              `json:"action"`
	Signals            []string            `json:"signals"`
	FullAnalysis       string              `json:"fullAnalysis"`
	CustomStrategy     string              `json:"customStrategy,omitempty"`
	IntegrationVerdict string              `json:"integrationVerdict,omitempty"`
	MarketContext      []string            `json:"marketContext,omitempty"`
	ConflictReasoning  string              `json:"conflictReasoning,omitempty"`
	TargetTrade        *domain.TargetTrade `json:"targetTrade,omitempty"`
}

// RenderResult applies plan gating to an analysis.
func RenderResult(a domain.Analysis, pro bool) Result {
	r := Result{Movement: a.Movement, Confidence: a.Confidence, Summary: a.Summary}
	if !pro {
		r.Upsell = true
		return r
	}
	r.Full = &Detail{
		Action:             a.Action,
		Signals:            append([]string(nil), a.Signals...),
		FullAnalysis:       a.FullAnalysis,
		CustomStrategy:     a.CustomStrategy,
		IntegrationVerdict: a.IntegrationVerdict,
		MarketContext:      append([]string(nil), a.MarketContext...),
		ConflictReasoning:  a.ConflictReasoning,
		TargetTrade:        a.TargetTrade,
	}
	return r
}

// PreviewView describes a captured chart.
type PreviewView struct {
	ImageBase64 string           `json:"screenshot_base64"`
	Platform    string           `json:"platform,omitempty"`
	Dimensions  string           `json:"dimensions,omitempty"`
	Symbol      string           `json:"symbol"`
	Timeframe   domain.Timeframe `json:"timeframe"`
	ChartURL    string           `json:"chart_url"`
}

// View is the render model for the analysis page.
type View struct {
	Mode       Mode
	Phase      string
	Busy       bool
	ChartURL   string
	Provider   string
	UploadName string
	UploadSize int
	Fields     Fields
	Preview    *PreviewView
	Result     *Result
	Error      string
	Notice     string
	Intent     Intent
	ShowPro    bool
}

// View snapshots the workflow for rendering. pro selects the result gating
// and whether the pro-only inputs are offered.
func (w *Workflow) View(pro bool) View {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := View{
		Mode:     w.mode,
		Phase:    w.phase.Name(),
		Busy:     w.ticket != "",
		ChartURL: w.chartURL,
		Provider: w.link.Provider,
		Fields:   w.fields,
		Error:    w.errMsg,
		Notice:   w.notice,
		Intent:   w.intent,
		ShowPro:  pro,
	}
	if w.upload != nil {
		v.UploadName = w.upload.Name
		v.UploadSize = len(w.upload.Data)
	}
	switch p := w.phase.(type) {
	case Preview:
		s := p.Screenshot
		pv := &PreviewView{
			ImageBase64: s.ScreenshotBase64,
			Platform:    s.Metadata.Platform,
			Symbol:      s.Symbol,
			Timeframe:   s.Timeframe,
			ChartURL:    s.ChartURL,
		}
		if s.Metadata.Width > 0 && s.Metadata.Height > 0 {
			pv.Dimensions = fmt.Sprintf("%d×%d", s.Metadata.Width, s.Metadata.Height)
		}
		v.Preview = pv
	case Results:
		r := RenderResult(p.Analysis, pro)
		v.Result = &r
	}
	return v
}

// JSON returns the gated result, indented, for the copy button.
func (w *Workflow) JSON(pro bool) ([]byte, error) {
	w.mu.Lock()
	res, ok := w.phase.(Results)
	w.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: no analysis to copy", domain.ErrNotFound)
	}
	return json.MarshalIndent(RenderResult(res.Analysis, pro), "", "  ")
}
