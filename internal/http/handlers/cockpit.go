package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rb-om1999/ensofinal/internal/authflow"
	"github.com/rb-om1999/ensofinal/internal/domain"
	"github.com/rb-om1999/ensofinal/internal/workflow"
)

const maxUploadBody = 32 << 20

type option struct {
	Value    string
	Label    string
	Selected bool
}

type cockpitBody struct {
	View       workflow.View
	Timeframes []option
	Styles     []option
	Risks      []option
}

func cockpitFor(v *Visitor) cockpitBody {
	pro := v.Session.Snapshot().IsPro()
	view := v.Workflow.View(pro)
	body := cockpitBody{View: view}

	tf, _ := domain.ParseTimeframe(view.Fields.Timeframe)
	for _, t := range domain.Timeframes() {
		body.Timeframes = append(body.Timeframes, option{Value: string(t), Label: string(t), Selected: t == tf})
	}
	style, _ := domain.ParseTradingStyle(view.Fields.TradingStyle)
	for _, s := range domain.TradingStyles() {
		body.Styles = append(body.Styles, option{Value: string(s), Label: s.Label(), Selected: s == style})
	}
	risk, _ := domain.ParseRiskProfile(view.Fields.RiskProfile)
	for _, rp := range domain.RiskProfiles() {
		body.Risks = append(body.Risks, option{Value: string(rp), Label: rp.Label(), Selected: rp == risk})
	}
	return body
}

// Cockpit renders the analysis page. ?auth=login|register opens the auth
// panel and ?upgrade=pro the upgrade panel.
func (a *App) Cockpit(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	st := v.Session.Snapshot()
	q := r.URL.Query()

	showAuth := v.authPanelOpen()
	showUpgrade := false
	switch q.Get("auth") {
	case string(authflow.ModeLogin), string(authflow.ModeRegister):
		_ = v.Auth.Switch(authflow.Mode(q.Get("auth")))
		showAuth = true
	case "open":
		showAuth = true
	}
	if q.Get("upgrade") == "pro" {
		if st.Authenticated() {
			showUpgrade = !st.IsPro()
		} else {
			showAuth = true
		}
	}
	switch v.Workflow.Intent() {
	case workflow.IntentOpenAuth:
		showAuth = true
	case workflow.IntentOpenUpgrade:
		showUpgrade = true
	}
	v.Workflow.ClearIntent()
	v.OpenAuth(false)
	if st.Authenticated() {
		showAuth = false
	}

	data := a.pageData(v, "Analyze", cockpitFor(v))
	data.ShowAuth, data.ShowUpgrade = showAuth, showUpgrade
	a.renderData(w, r, "cockpit.html", data)
}

// SetMode switches between link and upload input.
func (a *App) SetMode(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	_ = r.ParseForm()
	mode, ok := workflow.ParseMode(r.PostFormValue("mode"))
	if !ok {
		err = domain.ErrInvalidInput
	} else {
		err = v.Workflow.SetMode(mode)
	}
	a.finish(w, r, v, err, "/app")
}

// Capture validates the chart link and captures a preview.
func (a *App) Capture(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid form")
		return
	}
	wf := v.Workflow
	err = wf.SetMode(workflow.ModeLink)
	if err == nil {
		err = wf.SetChartURL(r.PostFormValue("chart_url"))
	}
	if err == nil {
		err = wf.SetFields(fieldsFrom(r, wf.View(false).Fields))
	}
	if err == nil {
		err = wf.Capture(backendContext(r))
	}
	a.finish(w, r, v, err, "/app")
}

// Upload stores the chart image with its fields and analyzes it.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			v.Flash("File size must be under 4MB")
			a.finish(w, r, v, domain.ErrFileTooLarge, "/app")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "invalid upload")
		return
	}
	wf := v.Workflow
	err = wf.SetMode(workflow.ModeUpload)
	if err == nil {
		err = storeUpload(r, wf)
	}
	if err == nil {
		err = wf.SetFields(fieldsFrom(r, wf.View(false).Fields))
	}
	if err == nil {
		err = wf.Analyze(backendContext(r))
	}
	a.finish(w, r, v, err, "/app")
}

func storeUpload(r *http.Request, wf *workflow.Workflow) error {
	file, hdr, err := r.FormFile("chart")
	if errors.Is(err, http.ErrMissingFile) {
		if wf.View(false).UploadName != "" {
			return nil
		}
		return wf.SetUpload("", nil)
	}
	if err != nil {
		return err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, domain.MaxUploadBytes+1))
	if err != nil {
		return err
	}
	return wf.SetUpload(hdr.Filename, data)
}

// Analyze submits the uploaded image or the captured preview.
func (a *App) Analyze(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	_ = r.ParseForm()
	wf := v.Workflow
	if len(r.PostForm) > 0 {
		err = wf.SetFields(fieldsFrom(r, wf.View(false).Fields))
	}
	if err == nil {
		err = wf.Analyze(backendContext(r))
	}
	a.finish(w, r, v, err, "/app")
}

// Retake drops the captured preview.
func (a *App) Retake(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	a.finish(w, r, v, v.Workflow.Retake(), "/app")
}

// Reset starts a new analysis.
func (a *App) Reset(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	v.Workflow.Reset()
	a.finish(w, r, v, nil, "/app")
}

// ResultJSON returns the current result as shown to the visitor's plan.
func (a *App) ResultJSON(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	raw, err := v.Workflow.JSON(v.Session.Snapshot().IsPro())
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "no analysis to copy")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

// State returns the cockpit state for script clients.
func (a *App) State(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	a.json(w, http.StatusOK, a.state(v))
}

// fieldsFrom overlays the posted form fields on current. Absent keys keep
// their value so partial forms do not wipe the rest.
func fieldsFrom(r *http.Request, current workflow.Fields) workflow.Fields {
	f := current
	set := func(key string, dst *string) {
		if vals, ok := r.PostForm[key]; ok && len(vals) > 0 {
			*dst = vals[0]
		}
	}
	set("symbol", &f.Symbol)
	set("timeframe", &f.Timeframe)
	set("trading_style", &f.TradingStyle)
	set("risk_profile", &f.RiskProfile)
	set("balance", &f.Balance)
	return f
}

// backendContext keeps request values but not cancellation: an abandoned
// browser request must not abort a charged analysis half way.
func backendContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
