package workflow

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/rb-om1999/ensofinal/internal/api"
	"github.com/rb-om1999/ensofinal/internal/domain"
	"github.com/rb-om1999/ensofinal/internal/session"
)

var testProviders = []domain.ChartProvider{
	{Name: "TradingView", Hosts: []string{"tradingview.com"}},
	{Name: "Binance", Hosts: []string{"binance.com"}},
}

type fakeSession struct {
	mu      sync.Mutex
	state   session.State
	cleared int
	applied []int
}

func signedIn(plan domain.UserPlan, credits int) *fakeSession {
	return &fakeSession{state: session.State{
		Token:   "tok",
		User:    &domain.User{ID: "u1", Email: "trader@example.com"},
		Profile: &domain.UserProfile{Email: "trader@example.com", Plan: plan, CreditsRemaining: credits},
	}}
}

func (f *fakeSession) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Token
}

func (f *fakeSession) Snapshot() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.state
	if st.Profile != nil {
		p := *st.Profile
		st.Profile = &p
	}
	return st
}

func (f *fakeSession) HandleError(_ context.Context, err error) bool {
	if api.KindOf(err) != api.KindUnauthorized {
		return false
	}
	f.mu.Lock()
	f.state = session.State{}
	f.cleared++
	f.mu.Unlock()
	return true
}

func (f *fakeSession) ApplyCredits(_ context.Context, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, n)
	if f.state.Profile != nil {
		f.state.Profile.CreditsRemaining = n
	}
}

type fakeBackend struct {
	mu       sync.Mutex
	images   []api.ImageRequest
	links    []api.ChartRequest
	captures []api.ChartRequest

	analysis domain.Analysis
	preview  domain.ScreenshotPreview
	err      error

	started chan struct{}
	release chan struct{}
}

func (f *fakeBackend) wait() {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
}

func (f *fakeBackend) Analyze(_ context.Context, _ api.TokenSource, req api.ImageRequest) (domain.Analysis, error) {
	f.mu.Lock()
	f.images = append(f.images, req)
	f.mu.Unlock()
	f.wait()
	return f.analysis, f.err
}

func (f *fakeBackend) CaptureChart(_ context.Context, _ api.TokenSource, req api.ChartRequest) (domain.ScreenshotPreview, error) {
	f.mu.Lock()
	f.captures = append(f.captures, req)
	f.mu.Unlock()
	f.wait()
	if f.err != nil {
		return domain.ScreenshotPreview{}, f.err
	}
	p := f.preview
	p.ChartURL, p.Symbol, p.Timeframe = req.ChartURL, req.Symbol, req.Timeframe
	return p, nil
}

func (f *fakeBackend) AnalyzeChartLink(_ context.Context, _ api.TokenSource, req api.ChartRequest) (domain.Analysis, error) {
	f.mu.Lock()
	f.links = append(f.links, req)
	f.mu.Unlock()
	f.wait()
	return f.analysis, f.err
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.images) + len(f.links) + len(f.captures)
}

func sampleAnalysis(credits *int) domain.Analysis {
	return domain.Analysis{
		Movement:     "Bullish",
		Action:       "Buy",
		Confidence:   "High",
		Summary:      "Higher lows into resistance.",
		Signals:      []string{"RSI divergence", "Volume expansion"},
		FullAnalysis: "Price reclaimed the range midpoint.",
		TargetTrade: &domain.TargetTrade{
			EntryPrice: domain.ParsePriceLevel("187.20"),
			StopLoss:   domain.ParsePriceLevel("182.00"),
			TakeProfit: domain.ParsePriceLevel("198.50"),
		},
		CreditsRemaining: credits,
	}
}

func newTestWorkflow(s Session, b Backend) *Workflow {
	return New(Options{Backend: b, Session: s, Providers: testProviders})
}

func uploadReady(t *testing.T, w *Workflow, size int, f Fields) {
	t.Helper()
	if err := w.SetMode(ModeUpload); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if err := w.SetUpload("chart.png", bytes.Repeat([]byte{0x89}, size)); err != nil {
		t.Fatalf("SetUpload: %v", err)
	}
	if err := w.SetFields(f); err != nil {
		t.Fatalf("SetFields: %v", err)
	}
}

func TestAnalyzeBlocksFreeAccountWithoutCredits(t *testing.T) {
	s := signedIn(domain.UserPlanFree, 0)
	b := &fakeBackend{analysis: sampleAnalysis(nil)}
	w := newTestWorkflow(s, b)
	uploadReady(t, w, 1024, Fields{Symbol: "AAPL", Timeframe: "1D"})

	err := w.Analyze(context.Background())
	if !errors.Is(err, ErrUpgradeRequired) || !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("Analyze error = %v, want upgrade required", err)
	}
	if w.Intent() != IntentOpenUpgrade {
		t.Fatalf("Intent = %v, want upgrade", w.Intent())
	}
	if b.calls() != 0 {
		t.Fatalf("backend calls = %d, want none", b.calls())
	}
	if _, ok := w.Phase().(Input); !ok {
		t.Fatalf("Phase = %s, want input", w.Phase().Name())
	}
}

func TestCallsWithoutSessionOpenAuth(t *testing.T) {
	t.Run("upload analyze", func(t *testing.T) {
		b := &fakeBackend{}
		w := newTestWorkflow(&fakeSession{}, b)
		uploadReady(t, w, 10, Fields{Symbol: "AAPL", Timeframe: "1D"})
		if err := w.Analyze(context.Background()); !errors.Is(err, ErrSignInRequired) {
			t.Fatalf("Analyze error = %v, want sign in required", err)
		}
		if w.Intent() != IntentOpenAuth || b.calls() != 0 {
			t.Fatalf("intent=%v calls=%d, want auth and no calls", w.Intent(), b.calls())
		}
	})

	t.Run("link capture", func(t *testing.T) {
		b := &fakeBackend{}
		w := newTestWorkflow(&fakeSession{}, b)
		if err := w.SetChartURL("https://www.tradingview.com/chart/x/?symbol=BINANCE:BTCUSDT"); err != nil {
			t.Fatalf("SetChartURL: %v", err)
		}
		if err := w.Capture(context.Background()); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("Capture error = %v, want unauthorized", err)
		}
		if w.Intent() != IntentOpenAuth || b.calls() != 0 {
			t.Fatalf("intent=%v calls=%d, want auth and no calls", w.Intent(), b.calls())
		}
		w.ClearIntent()
		if w.Intent() != IntentNone {
			t.Fatalf("ClearIntent left %v", w.Intent())
		}
	})
}

func TestSetUploadSizeCap(t *testing.T) {
	w := newTestWorkflow(signedIn(domain.UserPlanPro, 0), &fakeBackend{})
	if err := w.SetMode(ModeUpload); err != nil {
		t.Fatalf("SetMode: %v", err)
	}

	err := w.SetUpload("huge.png", make([]byte, domain.MaxUploadBytes+1))
	if !errors.Is(err, domain.ErrFileTooLarge) {
		t.Fatalf("SetUpload error = %v, want file too large", err)
	}
	v := w.View(true)
	if v.Error != "File size must be under 4MB" || v.UploadName != "" || v.Phase != "input" {
		t.Fatalf("view after oversize = %+v", v)
	}

	if err := w.SetUpload("edge.png", make([]byte, domain.MaxUploadBytes)); err != nil {
		t.Fatalf("SetUpload at cap: %v", err)
	}
	if v := w.View(true); v.Error != "" || v.UploadSize != domain.MaxUploadBytes {
		t.Fatalf("view at cap = %+v", v)
	}
}

func TestAnalyzeUploadAsPro(t *testing.T) {
	s := signedIn(domain.UserPlanPro, 0)
	b := &fakeBackend{analysis: sampleAnalysis(nil)}
	w := newTestWorkflow(s, b)
	data := bytes.Repeat([]byte{0x42}, 2<<20)
	if err := w.SetMode(ModeUpload); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if err := w.SetUpload("aapl.png", data); err != nil {
		t.Fatalf("SetUpload: %v", err)
	}
	if err := w.SetFields(Fields{Symbol: "aapl", Timeframe: "1d", TradingStyle: "scalping-ema", RiskProfile: "moderate", Balance: "$10,000"}); err != nil {
		t.Fatalf("SetFields: %v", err)
	}

	if err := w.Analyze(context.Background()); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(b.images) != 1 {
		t.Fatalf("image requests = %d, want 1", len(b.images))
	}
	req := b.images[0]
	if req.Symbol != "AAPL" || req.Timeframe != "1D" || req.RiskProfile != domain.RiskModerate || req.Balance != "10000" {
		t.Fatalf("request = %+v", req)
	}
	if req.ImageBase64 != base64.StdEncoding.EncodeToString(data) {
		t.Fatalf("image payload not base64 of upload")
	}

	v := w.View(true)
	if v.Phase != "results" || v.Result == nil || v.Result.Full == nil || v.Result.Upsell {
		t.Fatalf("pro view = %+v", v)
	}
	if v.Result.Full.Action != "Buy" || len(v.Result.Full.Signals) != 2 || v.Result.Full.TargetTrade == nil {
		t.Fatalf("pro detail = %+v", v.Result.Full)
	}
	if len(s.applied) != 0 {
		t.Fatalf("credits applied without a count: %v", s.applied)
	}
}

func TestAnalyzeUploadAsFreeGatesResult(t *testing.T) {
	s := signedIn(domain.UserPlanFree, 3)
	remaining := 2
	b := &fakeBackend{analysis: sampleAnalysis(&remaining)}
	w := newTestWorkflow(s, b)
	uploadReady(t, w, 512, Fields{Symbol: "btcusdt", Timeframe: "4h"})

	if err := w.Analyze(context.Background()); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := b.images[0].Symbol; got != "BTCUSDT" {
		t.Fatalf("symbol = %q, want BTCUSDT", got)
	}
	if got := b.images[0].Timeframe; got != "4H" {
		t.Fatalf("timeframe = %q, want 4H", got)
	}

	v := w.View(false)
	if v.Result == nil || v.Result.Full != nil || !v.Result.Upsell {
		t.Fatalf("free view = %+v", v.Result)
	}
	if v.Result.Movement != "Bullish" || v.Result.Confidence != "High" || v.Result.Summary == "" {
		t.Fatalf("free headline = %+v", v.Result)
	}
	if len(s.applied) != 1 || s.applied[0] != 2 {
		t.Fatalf("applied credits = %v, want [2]", s.applied)
	}

	raw, err := w.JSON(false)
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var copied map[string]any
	if err := json.Unmarshal(raw, &copied); err != nil {
		t.Fatalf("copied json: %v", err)
	}
	if _, ok := copied["detail"]; ok {
		t.Fatalf("free copy leaked pro detail: %s", raw)
	}
}

func TestSetFieldsDropsProInputsForFreeAccounts(t *testing.T) {
	w := newTestWorkflow(signedIn(domain.UserPlanFree, 5), &fakeBackend{})
	if err := w.SetFields(Fields{Symbol: "ETHUSDT", Timeframe: "1H", RiskProfile: "aggressive", Balance: "500"}); err != nil {
		t.Fatalf("SetFields: %v", err)
	}
	v := w.View(false)
	if v.Fields.RiskProfile != "" || v.Fields.Balance != "" {
		t.Fatalf("pro-only fields kept: %+v", v.Fields)
	}
	if v.Notice == "" {
		t.Fatalf("expected a notice about pro-only fields")
	}
}

func TestSetFieldsRejectsUnknownValues(t *testing.T) {
	cases := []struct {
		name   string
		fields Fields
	}{
		{"timeframe", Fields{Timeframe: "1M"}},
		{"style", Fields{Timeframe: "1H", TradingStyle: "astrology"}},
		{"risk", Fields{Timeframe: "1H", RiskProfile: "yolo"}},
		{"balance", Fields{Timeframe: "1H", Balance: "lots"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := newTestWorkflow(signedIn(domain.UserPlanPro, 0), &fakeBackend{})
			err := w.SetFields(tc.fields)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("SetFields error = %v, want invalid input", err)
			}
			if w.View(true).Error == "" {
				t.Fatalf("expected inline error")
			}
		})
	}
}

func TestLinkCaptureRetakeAndAnalyze(t *testing.T) {
	s := signedIn(domain.UserPlanFree, 4)
	remaining := 3
	b := &fakeBackend{
		analysis: sampleAnalysis(&remaining),
		preview: domain.ScreenshotPreview{
			ScreenshotBase64: "iVBORw0KGgo=",
			Metadata:         domain.ScreenshotMetadata{Width: 1280, Height: 720},
		},
	}
	w := newTestWorkflow(s, b)
	ctx := context.Background()

	if err := w.SetChartURL("https://www.tradingview.com/chart/abc/?symbol=BINANCE:BTCUSDT"); err != nil {
		t.Fatalf("SetChartURL: %v", err)
	}
	if v := w.View(false); v.Fields.Symbol != "BTCUSDT" || v.Provider != "TradingView" {
		t.Fatalf("autofill view = %+v", v)
	}
	if err := w.SetFields(Fields{Symbol: "BTCUSDT", Timeframe: "15m", TradingStyle: "breakout-retest"}); err != nil {
		t.Fatalf("SetFields: %v", err)
	}

	if err := w.Capture(ctx); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	v := w.View(false)
	if v.Phase != "preview" || v.Preview == nil {
		t.Fatalf("after capture = %+v", v)
	}
	if v.Preview.Platform != "TradingView" || v.Preview.Dimensions != "1280×720" {
		t.Fatalf("preview = %+v", v.Preview)
	}

	if err := w.Retake(); err != nil {
		t.Fatalf("Retake: %v", err)
	}
	if v := w.View(false); v.Phase != "input" || v.Preview != nil || v.ChartURL == "" {
		t.Fatalf("after retake = %+v", v)
	}

	if err := w.Capture(ctx); err != nil {
		t.Fatalf("second Capture: %v", err)
	}
	if err := w.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(b.captures) != 2 || len(b.links) != 1 {
		t.Fatalf("captures=%d links=%d", len(b.captures), len(b.links))
	}
	got := b.links[0]
	if got.Symbol != "BTCUSDT" || got.Timeframe != "15m" || got.TradingStyle != domain.StyleBreakoutRetest {
		t.Fatalf("link request = %+v", got)
	}
	if _, ok := w.Phase().(Results); !ok {
		t.Fatalf("Phase = %s, want results", w.Phase().Name())
	}
	if n, _ := s.Snapshot().Credits(); n != 3 {
		t.Fatalf("credits = %d, want 3", n)
	}
}

func TestLinkModeAnalyzeNeedsCapture(t *testing.T) {
	b := &fakeBackend{}
	w := newTestWorkflow(signedIn(domain.UserPlanPro, 0), b)
	err := w.Analyze(context.Background())
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("Analyze error = %v, want invalid input", err)
	}
	if w.View(true).Error != "Please capture chart screenshot first" || b.calls() != 0 {
		t.Fatalf("view = %+v calls=%d", w.View(true), b.calls())
	}
}

func TestSetChartURL(t *testing.T) {
	t.Run("unknown host", func(t *testing.T) {
		w := newTestWorkflow(signedIn(domain.UserPlanPro, 0), &fakeBackend{})
		err := w.SetChartURL("https://charts.example.com/BTCUSDT")
		if !errors.Is(err, domain.ErrUnsupportedURL) {
			t.Fatalf("SetChartURL error = %v, want unsupported url", err)
		}
		if got := w.View(true).Error; got != "Please enter a valid TradingView or Binance chart URL" {
			t.Fatalf("Error = %q", got)
		}
		if err := w.Capture(context.Background()); !errors.Is(err, domain.ErrUnsupportedURL) {
			t.Fatalf("Capture with bad url = %v", err)
		}
	})

	t.Run("typed symbol wins", func(t *testing.T) {
		w := newTestWorkflow(signedIn(domain.UserPlanPro, 0), &fakeBackend{})
		if err := w.SetFields(Fields{Symbol: "ethusdt", Timeframe: "1H"}); err != nil {
			t.Fatalf("SetFields: %v", err)
		}
		if err := w.SetChartURL("https://www.binance.com/en/trade/BTC_USDT"); err != nil {
			t.Fatalf("SetChartURL: %v", err)
		}
		if got := w.View(true).Fields.Symbol; got != "ETHUSDT" {
			t.Fatalf("Symbol = %q, want typed ETHUSDT", got)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		b := &fakeBackend{}
		w := newTestWorkflow(signedIn(domain.UserPlanPro, 0), b)
		if err := w.SetChartURL("https://www.tradingview.com/chart/abc/"); err != nil {
			t.Fatalf("SetChartURL: %v", err)
		}
		if err := w.Capture(context.Background()); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("Capture error = %v", err)
		}
		if got := w.View(true).Error; got != "Please provide symbol and timeframe" || b.calls() != 0 {
			t.Fatalf("Error = %q calls=%d", got, b.calls())
		}
	})
}

func TestResetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	url := "https://www.tradingview.com/chart/abc/?symbol=NASDAQ:AAPL"

	t.Run("results", func(t *testing.T) {
		w := newTestWorkflow(signedIn(domain.UserPlanPro, 0), &fakeBackend{analysis: sampleAnalysis(nil)})
		uploadReady(t, w, 64, Fields{Symbol: "AAPL", Timeframe: "1D"})
		if err := w.Analyze(ctx); err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		w.Reset()
		first := w.View(true)
		w.Reset()
		second := w.View(true)
		if first.Phase != "input" || first.Result != nil || second.Phase != first.Phase || second.Busy {
			t.Fatalf("reset views = %+v / %+v", first, second)
		}
		if first.UploadName != "chart.png" {
			t.Fatalf("reset dropped the upload")
		}
	})

	t.Run("preview", func(t *testing.T) {
		w := newTestWorkflow(signedIn(domain.UserPlanPro, 0), &fakeBackend{})
		if err := w.SetChartURL(url); err != nil {
			t.Fatalf("SetChartURL: %v", err)
		}
		if err := w.Capture(ctx); err != nil {
			t.Fatalf("Capture: %v", err)
		}
		w.Reset()
		w.Reset()
		if v := w.View(true); v.Phase != "input" || v.Preview != nil {
			t.Fatalf("after reset = %+v", v)
		}
	})

	t.Run("analyzing", func(t *testing.T) {
		b := &fakeBackend{analysis: sampleAnalysis(nil), started: make(chan struct{}), release: make(chan struct{})}
		w := newTestWorkflow(signedIn(domain.UserPlanPro, 0), b)
		uploadReady(t, w, 64, Fields{Symbol: "AAPL", Timeframe: "1D"})

		done := make(chan error, 1)
		go func() { done <- w.Analyze(ctx) }()
		<-b.started
		if _, ok := w.Phase().(Analyzing); !ok || !w.Busy() {
			t.Fatalf("Phase = %s busy=%v, want analyzing", w.Phase().Name(), w.Busy())
		}
		w.Reset()
		w.Reset()
		close(b.release)
		if err := <-done; !errors.Is(err, ErrStale) {
			t.Fatalf("Analyze error = %v, want stale", err)
		}
		if v := w.View(true); v.Phase != "input" || v.Result != nil || v.Busy {
			t.Fatalf("late response applied: %+v", v)
		}
	})
}

func TestUnauthorizedAfterResetClearsSession(t *testing.T) {
	ctx := context.Background()
	s := signedIn(domain.UserPlanPro, 0)
	b := &fakeBackend{
		err:     &api.Error{Kind: api.KindUnauthorized, Status: 401, Message: "token expired"},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	w := newTestWorkflow(s, b)
	uploadReady(t, w, 64, Fields{Symbol: "AAPL", Timeframe: "1D"})

	done := make(chan error, 1)
	go func() { done <- w.Analyze(ctx) }()
	<-b.started
	w.Reset()
	close(b.release)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("Analyze error = %v, want stale", err)
	}
	if s.cleared != 1 || s.Token() != "" {
		t.Fatalf("session not cleared: cleared=%d token=%q", s.cleared, s.Token())
	}
	v := w.View(true)
	if v.Phase != "input" || v.Error != "" || v.Intent != IntentNone {
		t.Fatalf("stale failure changed the view: %+v", v)
	}
}

func TestSignedOutBeforeSendOpensAuth(t *testing.T) {
	s := signedIn(domain.UserPlanPro, 0)
	w := newTestWorkflow(s, &fakeBackend{err: api.ErrNoSession})
	uploadReady(t, w, 64, Fields{Symbol: "AAPL", Timeframe: "1D"})

	err := w.Analyze(context.Background())
	if !errors.Is(err, api.ErrNoSession) {
		t.Fatalf("Analyze error = %v, want ErrNoSession", err)
	}
	if w.Intent() != IntentOpenAuth {
		t.Fatalf("Intent = %v, want open auth", w.Intent())
	}
	if v := w.View(true); v.Phase != "input" || v.Error != msgSessionExpired || v.Fields.Symbol != "AAPL" {
		t.Fatalf("view = %+v", v)
	}
}

func TestStaleResponseDoesNotApplyCredits(t *testing.T) {
	s := signedIn(domain.UserPlanFree, 2)
	remaining := 1
	b := &fakeBackend{analysis: sampleAnalysis(&remaining), started: make(chan struct{}), release: make(chan struct{})}
	w := newTestWorkflow(s, b)
	uploadReady(t, w, 64, Fields{Symbol: "AAPL", Timeframe: "1D"})

	done := make(chan error, 1)
	go func() { done <- w.Analyze(context.Background()) }()
	<-b.started
	if err := w.SetMode(ModeLink); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	close(b.release)
	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("Analyze error = %v, want stale", err)
	}
	if len(s.applied) != 0 {
		t.Fatalf("stale credits applied: %v", s.applied)
	}
	if v := w.View(false); v.Mode != ModeLink || v.UploadName != "" {
		t.Fatalf("mode switch view = %+v", v)
	}
}

func TestSecondRequestWhileBusy(t *testing.T) {
	b := &fakeBackend{analysis: sampleAnalysis(nil), started: make(chan struct{}), release: make(chan struct{})}
	w := newTestWorkflow(signedIn(domain.UserPlanPro, 0), b)
	uploadReady(t, w, 64, Fields{Symbol: "AAPL", Timeframe: "1D"})

	done := make(chan error, 1)
	go func() { done <- w.Analyze(context.Background()) }()
	<-b.started
	if err := w.Analyze(context.Background()); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("second Analyze = %v, want busy", err)
	}
	close(b.release)
	if err := <-done; err != nil {
		t.Fatalf("first Analyze: %v", err)
	}
	if len(b.images) != 1 {
		t.Fatalf("image requests = %d, want 1", len(b.images))
	}
}

func TestAnalyzeFailures(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		intent  Intent
		message string
		cleared int
	}{
		{
			name:    "unauthorized",
			err:     &api.Error{Kind: api.KindUnauthorized, Status: 401, Message: "session expired"},
			intent:  IntentOpenAuth,
			message: "Your session has expired. Please sign in again.",
			cleared: 1,
		},
		{
			name:    "paywall",
			err:     &api.Error{Kind: api.KindPaywall, Status: 402, Message: "You have run out of free analyses"},
			intent:  IntentOpenUpgrade,
			message: "You have run out of free analyses",
		},
		{
			name:    "timeout",
			err:     &api.Error{Kind: api.KindTimeout, Message: "the request timed out, please try again"},
			message: "The request timed out. Please try again.",
		},
		{
			name:    "backend message",
			err:     &api.Error{Kind: api.KindBackend, Status: 500, Message: "Chart could not be read"},
			message: "Chart could not be read",
		},
		{
			name:    "bare error",
			err:     errors.New("boom"),
			message: "Analysis failed. Please try again.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := signedIn(domain.UserPlanFree, 3)
			b := &fakeBackend{err: tc.err}
			w := newTestWorkflow(s, b)
			uploadReady(t, w, 64, Fields{Symbol: "AAPL", Timeframe: "1D"})

			if err := w.Analyze(context.Background()); !errors.Is(err, tc.err) {
				t.Fatalf("Analyze error = %v, want %v", err, tc.err)
			}
			v := w.View(false)
			if v.Phase != "input" || v.Busy {
				t.Fatalf("phase=%s busy=%v, want input and idle", v.Phase, v.Busy)
			}
			if v.Intent != tc.intent || v.Error != tc.message {
				t.Fatalf("intent=%v error=%q, want %v %q", v.Intent, v.Error, tc.intent, tc.message)
			}
			if v.Fields.Symbol != "AAPL" || v.UploadName == "" {
				t.Fatalf("form lost after failure: %+v", v)
			}
			if s.cleared != tc.cleared {
				t.Fatalf("session cleared %d times, want %d", s.cleared, tc.cleared)
			}
		})
	}
}

func TestLinkAnalyzeFailureReturnsToPreview(t *testing.T) {
	s := signedIn(domain.UserPlanPro, 0)
	b := &fakeBackend{}
	w := newTestWorkflow(s, b)
	if err := w.SetChartURL("https://www.binance.com/en/trade/BTC_USDT"); err != nil {
		t.Fatalf("SetChartURL: %v", err)
	}
	if err := w.SetFields(Fields{Symbol: "BTCUSDT", Timeframe: "1H"}); err != nil {
		t.Fatalf("SetFields: %v", err)
	}
	if err := w.Capture(context.Background()); err != nil {
		t.Fatalf("Capture: %v", err)
	}

	b.err = &api.Error{Kind: api.KindUnauthorized, Status: 401}
	if err := w.Analyze(context.Background()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Analyze error = %v", err)
	}
	if _, ok := w.Phase().(Preview); !ok {
		t.Fatalf("Phase = %s, want preview", w.Phase().Name())
	}
	if s.Snapshot().Authenticated() || w.Intent() != IntentOpenAuth {
		t.Fatalf("session not cleared or auth not requested")
	}
}

func TestJSONNeedsResults(t *testing.T) {
	w := newTestWorkflow(signedIn(domain.UserPlanPro, 0), &fakeBackend{})
	if _, err := w.JSON(true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("JSON error = %v, want not found", err)
	}
}
