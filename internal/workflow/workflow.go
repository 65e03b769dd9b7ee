// Package workflow is the chart analysis state machine: input, optional
// capture preview, analyzing and results, with plan gating in front of every
// backend call.
package workflow

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rb-om1999/ensofinal/internal/api"
	"github.com/rb-om1999/ensofinal/internal/domain"
	"github.com/rb-om1999/ensofinal/internal/infra"
	"github.com/rb-om1999/ensofinal/internal/session"
)

var (
	// ErrSignInRequired is returned when a call is attempted without a session.
	ErrSignInRequired = fmt.Errorf("%w: sign in to analyze charts", domain.ErrUnauthorized)
	// ErrUpgradeRequired is returned when a free account has no credits left.
	ErrUpgradeRequired = fmt.Errorf("%w: upgrade to keep analyzing", domain.ErrQuotaExceeded)
	// ErrStale reports a response that arrived after the workflow moved on.
	ErrStale = errors.New("workflow: response discarded after state change")
)

const (
	msgInvalidURL     = "Please enter a valid %s chart URL"
	msgMissingFields  = "Please provide symbol and timeframe"
	msgMissingFile    = "Please select a chart image"
	msgFileTooLarge   = "File size must be under 4MB"
	msgCaptureFirst   = "Please capture chart screenshot first"
	msgCaptureFailed  = "Failed to capture chart screenshot"
	msgAnalyzeFailed  = "Analysis failed. Please try again."
	msgTimedOut       = "The request timed out. Please try again."
	msgProOnlyFields  = "Risk profile and balance are available on the Pro plan."
	msgSessionExpired = "Your session has expired. Please sign in again."
)

// Session is the identity the workflow gates on and reports credits to.
type Session interface {
	api.TokenSource
	Snapshot() session.State
	HandleError(ctx context.Context, err error) bool
	ApplyCredits(ctx context.Context, n int)
}

// Backend performs the capture and analysis calls.
type Backend interface {
	Analyze(ctx context.Context, tokens api.TokenSource, req api.ImageRequest) (domain.Analysis, error)
	CaptureChart(ctx context.Context, tokens api.TokenSource, req api.ChartRequest) (domain.ScreenshotPreview, error)
	AnalyzeChartLink(ctx context.Context, tokens api.TokenSource, req api.ChartRequest) (domain.Analysis, error)
}

// Options configures a Workflow.
type Options struct {
	Backend   Backend
	Session   Session
	Providers []domain.ChartProvider
	Logger    *infra.Logger
	// NewTicket overrides request id generation in tests.
	NewTicket func() string
}

// Upload is a chart image picked in upload mode.
type Upload struct {
	Name string
	Data []byte
}

// Fields are the form values shared by both modes, as typed.
type Fields struct {
	Symbol       string
	Timeframe    string
	TradingStyle string
	RiskProfile  string
	Balance      string
}

// Workflow is one visitor's analysis state. All methods are safe for
// concurrent use; backend calls run without holding the lock.
type Workflow struct {
	backend   Backend
	session   Session
	providers []domain.ChartProvider
	logger    *infra.Logger
	newTicket func() string

	mu          sync.Mutex
	mode        Mode
	phase       Phase
	upload      *Upload
	chartURL    string
	link        domain.ChartLink
	fields      Fields
	symbolTyped bool
	errMsg      string
	notice      string
	intent      Intent
	ticket      string
}

// New starts a workflow in link mode at the input phase.
func New(opts Options) *Workflow {
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	newTicket := opts.NewTicket
	if newTicket == nil {
		newTicket = uuid.NewString
	}
	return &Workflow{
		backend:   opts.Backend,
		session:   opts.Session,
		providers: opts.Providers,
		logger:    logger,
		newTicket: newTicket,
		mode:      ModeLink,
		phase:     Input{},
		fields:    Fields{Timeframe: "1H"},
	}
}

// Phase returns the current phase.
func (w *Workflow) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// Busy reports whether a capture or analysis is outstanding.
func (w *Workflow) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ticket != ""
}

// Intent returns the panel the UI should open, if any.
func (w *Workflow) Intent() Intent {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.intent
}

// ClearIntent acknowledges that the requested panel was shown.
func (w *Workflow) ClearIntent() {
	w.mu.Lock()
	w.intent = IntentNone
	w.mu.Unlock()
}

// SetMode switches between upload and link input, dropping whatever the other
// mode had collected. Any outstanding response will be discarded.
func (w *Workflow) SetMode(m Mode) error {
	if m != ModeUpload && m != ModeLink {
		return fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, m)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mode == m {
		return nil
	}
	w.mode = m
	w.phase = Input{}
	w.ticket = ""
	w.errMsg = ""
	w.notice = ""
	switch m {
	case ModeUpload:
		w.chartURL = ""
		w.link = domain.ChartLink{}
	case ModeLink:
		w.upload = nil
	}
	return nil
}

// SetUpload stores the picked image. Files over the upload cap are rejected
// with an inline error and the workflow stays in input.
func (w *Workflow) SetUpload(name string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireInputLocked(ModeUpload); err != nil {
		return err
	}
	w.errMsg = ""
	if len(data) > domain.MaxUploadBytes {
		w.upload = nil
		w.errMsg = msgFileTooLarge
		return domain.ErrFileTooLarge
	}
	if len(data) == 0 {
		w.upload = nil
		w.errMsg = msgMissingFile
		return fmt.Errorf("%w: empty file", domain.ErrInvalidInput)
	}
	w.upload = &Upload{Name: name, Data: data}
	return nil
}

// SetChartURL validates a provider link and fills the symbol from it unless the
// user already typed one.
func (w *Workflow) SetChartURL(raw string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireInputLocked(ModeLink); err != nil {
		return err
	}
	w.errMsg = ""
	w.chartURL = strings.TrimSpace(raw)
	w.link = domain.ChartLink{}
	if w.chartURL == "" {
		return nil
	}
	link, err := domain.ParseChartLink(w.chartURL, w.providers)
	if err != nil {
		w.errMsg = w.invalidURLMessage()
		return err
	}
	w.link = link
	if link.Symbol != "" && !w.symbolTyped {
		w.fields.Symbol = link.Symbol
	}
	return nil
}

// SetFields stores the form fields. Risk profile and balance are kept only for
// pro and admin accounts; others get a notice and the values are dropped.
func (w *Workflow) SetFields(f Fields) error {
	pro := w.session.Snapshot().IsPro()

	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.phase.(type) {
	case Input, Preview:
	default:
		return fmt.Errorf("%w: fields are locked in the %s phase", domain.ErrInvalidInput, w.phase.Name())
	}
	w.errMsg = ""
	w.notice = ""
	f.Symbol = strings.ToUpper(strings.TrimSpace(f.Symbol))
	switch {
	case f.Symbol == "":
		w.symbolTyped = false
		f.Symbol = w.link.Symbol
	case f.Symbol != w.link.Symbol:
		w.symbolTyped = true
	}
	if !pro && (strings.TrimSpace(f.RiskProfile) != "" || strings.TrimSpace(f.Balance) != "") {
		w.notice = msgProOnlyFields
		f.RiskProfile, f.Balance = "", ""
	}
	w.fields = f

	_, err := w.validateLocked(pro, false)
	return err
}

// Retake drops the captured preview and returns to input.
func (w *Workflow) Retake() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.phase.(Preview); !ok {
		return fmt.Errorf("%w: nothing to retake", domain.ErrInvalidInput)
	}
	w.phase = Input{}
	w.errMsg = ""
	w.ticket = ""
	return nil
}

// Reset returns to input from any phase, clearing the preview and analysis.
// Outstanding responses are discarded when they arrive.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.phase = Input{}
	w.ticket = ""
	w.errMsg = ""
	w.notice = ""
	w.intent = IntentNone
}

// Capture screenshots the linked chart and moves to the preview phase.
func (w *Workflow) Capture(ctx context.Context) error {
	w.mu.Lock()
	if err := w.beginLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	if err := w.requireInputLocked(ModeLink); err != nil {
		w.mu.Unlock()
		return err
	}
	if err := w.gateLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	v, err := w.validateLocked(w.session.Snapshot().IsPro(), true)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	req := api.ChartRequest{
		ChartURL:     w.link.URL,
		Symbol:       v.symbol,
		Timeframe:    v.timeframe,
		TradingStyle: v.style,
	}
	provider := w.link.Provider
	ticket := w.newTicket()
	w.ticket = ticket
	w.mu.Unlock()

	w.logger.Debug().Str("ticket", ticket).Str("provider", provider).Str("symbol", req.Symbol).Msg("workflow: capture started")
	preview, err := w.backend.CaptureChart(ctx, w.session, req)
	if err != nil {
		return w.fail(ctx, ticket, err, Input{}, msgCaptureFailed)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ticket != ticket {
		w.logger.Debug().Str("ticket", ticket).Msg("workflow: stale capture discarded")
		return ErrStale
	}
	w.ticket = ""
	if preview.Metadata.Platform == "" {
		preview.Metadata.Platform = provider
	}
	w.phase = Preview{Screenshot: preview}
	return nil
}

// Analyze submits the uploaded image (upload mode, from input) or the captured
// chart (link mode, from preview) and moves to results on success.
func (w *Workflow) Analyze(ctx context.Context) error {
	w.mu.Lock()
	if err := w.beginLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	pro := w.session.Snapshot().IsPro()

	var (
		restore Phase
		run     func(context.Context) (domain.Analysis, error)
	)
	switch p := w.phase.(type) {
	case Input:
		if w.mode != ModeUpload {
			w.errMsg = msgCaptureFirst
			w.mu.Unlock()
			return fmt.Errorf("%w: capture the chart first", domain.ErrInvalidInput)
		}
		if err := w.gateLocked(); err != nil {
			w.mu.Unlock()
			return err
		}
		if w.upload == nil {
			w.errMsg = msgMissingFile
			w.mu.Unlock()
			return fmt.Errorf("%w: no chart image", domain.ErrInvalidInput)
		}
		v, err := w.validateLocked(pro, true)
		if err != nil {
			w.mu.Unlock()
			return err
		}
		req := api.ImageRequest{
			ImageBase64:  base64.StdEncoding.EncodeToString(w.upload.Data),
			Symbol:       v.symbol,
			Timeframe:    v.timeframe,
			TradingStyle: v.style,
			RiskProfile:  v.risk,
			Balance:      v.balance.String(),
		}
		restore = Input{}
		run = func(ctx context.Context) (domain.Analysis, error) {
			return w.backend.Analyze(ctx, w.session, req)
		}
	case Preview:
		if err := w.gateLocked(); err != nil {
			w.mu.Unlock()
			return err
		}
		style, err := domain.ParseTradingStyle(w.fields.TradingStyle)
		if err != nil {
			w.errMsg = "Please choose a trading style from the list"
			w.mu.Unlock()
			return err
		}
		req := api.ChartRequest{
			ChartURL:     p.Screenshot.ChartURL,
			Symbol:       p.Screenshot.Symbol,
			Timeframe:    p.Screenshot.Timeframe,
			TradingStyle: style,
		}
		restore = p
		run = func(ctx context.Context) (domain.Analysis, error) {
			return w.backend.AnalyzeChartLink(ctx, w.session, req)
		}
	default:
		w.mu.Unlock()
		return fmt.Errorf("%w: nothing to analyze in the %s phase", domain.ErrInvalidInput, w.phase.Name())
	}
	ticket := w.newTicket()
	w.ticket = ticket
	w.phase = Analyzing{}
	w.mu.Unlock()

	w.logger.Debug().Str("ticket", ticket).Str("from", restore.Name()).Msg("workflow: analysis started")
	analysis, err := run(ctx)
	if err != nil {
		return w.fail(ctx, ticket, err, restore, msgAnalyzeFailed)
	}

	w.mu.Lock()
	if w.ticket != ticket {
		w.mu.Unlock()
		w.logger.Debug().Str("ticket", ticket).Msg("workflow: stale analysis discarded")
		return ErrStale
	}
	w.ticket = ""
	w.phase = Results{Analysis: analysis}
	w.mu.Unlock()

	if analysis.CreditsRemaining != nil {
		w.session.ApplyCredits(ctx, *analysis.CreditsRemaining)
	}
	return nil
}

// fail maps a backend error onto the workflow and restores the phase the
// request started from, keeping the form intact. A rejected token clears the
// session even when the response is stale; only the phase and messages are
// tied to the ticket.
func (w *Workflow) fail(ctx context.Context, ticket string, err error, restore Phase, fallback string) error {
	kind := api.KindOf(err)
	if errors.Is(err, api.ErrNoSession) {
		// signed out while the request was being built
		kind = api.KindUnauthorized
	}
	if kind == api.KindUnauthorized {
		w.session.HandleError(ctx, err)
	}

	w.mu.Lock()
	if w.ticket != ticket {
		w.mu.Unlock()
		w.logger.Debug().Str("ticket", ticket).Err(err).Msg("workflow: stale failure discarded")
		return ErrStale
	}
	w.ticket = ""
	w.phase = restore
	switch kind {
	case api.KindUnauthorized:
		w.intent = IntentOpenAuth
		w.errMsg = msgSessionExpired
	case api.KindPaywall:
		w.intent = IntentOpenUpgrade
		w.errMsg = api.Message(err, "")
	case api.KindTimeout:
		w.errMsg = msgTimedOut
	default:
		w.errMsg = api.Message(err, fallback)
	}
	w.mu.Unlock()

	w.logger.Info().Str("ticket", ticket).Str("kind", kind.String()).Err(err).Msg("workflow: request failed")
	return err
}

// beginLocked clears per-attempt messages and refuses a second request.
func (w *Workflow) beginLocked() error {
	if w.ticket != "" {
		return domain.ErrBusy
	}
	w.errMsg = ""
	w.intent = IntentNone
	return nil
}

// gateLocked mirrors the backend's plan rules so blocked calls are never sent.
// The backend stays the authority; its paywall answer is handled in fail.
func (w *Workflow) gateLocked() error {
	st := w.session.Snapshot()
	if !st.Authenticated() {
		w.intent = IntentOpenAuth
		return ErrSignInRequired
	}
	if n, ok := st.Credits(); ok && n <= 0 {
		w.intent = IntentOpenUpgrade
		return ErrUpgradeRequired
	}
	return nil
}

func (w *Workflow) requireInputLocked(mode Mode) error {
	if _, ok := w.phase.(Input); !ok {
		return fmt.Errorf("%w: reset before changing the chart", domain.ErrInvalidInput)
	}
	if w.mode != mode {
		return fmt.Errorf("%w: switch to %s mode first", domain.ErrInvalidInput, mode)
	}
	return nil
}

type validated struct {
	symbol    string
	timeframe domain.Timeframe
	style     domain.TradingStyle
	risk      domain.RiskProfile
	balance   domain.Balance
}

// validateLocked checks the closed enumerations. With submit set it also
// requires the symbol, timeframe and, in link mode, a valid chart URL.
func (w *Workflow) validateLocked(pro, submit bool) (validated, error) {
	var v validated
	f := w.fields
	if submit {
		if w.mode == ModeLink && w.link.URL == "" {
			w.errMsg = w.invalidURLMessage()
			return v, fmt.Errorf("%w: chart url", domain.ErrUnsupportedURL)
		}
		sym, err := domain.NormalizeSymbol(f.Symbol)
		if err != nil || strings.TrimSpace(f.Timeframe) == "" {
			w.errMsg = msgMissingFields
			return v, fmt.Errorf("%w: %s", domain.ErrInvalidInput, msgMissingFields)
		}
		v.symbol = sym
	}
	var err error
	if strings.TrimSpace(f.Timeframe) != "" || submit {
		if v.timeframe, err = domain.ParseTimeframe(f.Timeframe); err != nil {
			w.errMsg = "Please choose a timeframe from the list"
			return v, err
		}
	}
	if v.style, err = domain.ParseTradingStyle(f.TradingStyle); err != nil {
		w.errMsg = "Please choose a trading style from the list"
		return v, err
	}
	if !pro {
		return v, nil
	}
	if v.risk, err = domain.ParseRiskProfile(f.RiskProfile); err != nil {
		w.errMsg = "Please choose a risk profile from the list"
		return v, err
	}
	if v.balance, err = domain.ParseBalance(f.Balance); err != nil {
		w.errMsg = "Please enter the balance as a number"
		return v, err
	}
	return v, nil
}

func (w *Workflow) invalidURLMessage() string {
	names := make([]string, 0, len(w.providers))
	for _, p := range w.providers {
		names = append(names, p.Name)
	}
	return fmt.Sprintf(msgInvalidURL, strings.Join(names, " or "))
}
