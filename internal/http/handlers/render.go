package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/rb-om1999/ensofinal/internal/authflow"
	"github.com/rb-om1999/ensofinal/internal/domain"
	"github.com/rb-om1999/ensofinal/internal/middleware"
	"github.com/rb-om1999/ensofinal/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageFiles = []string{
	"landing.html",
	"pricing.html",
	"payment.html",
	"cockpit.html",
	"history.html",
	"profile.html",
	"verify.html",
}

var funcs = template.FuncMap{
	"styleLabel": func(v string) string { return domain.TradingStyle(v).Label() },
	"riskLabel":  func(v string) string { return domain.RiskProfile(v).Label() },
	"kib":        func(n int) string { return fmt.Sprintf("%.1f KB", float64(n)/1024) },
}

func parseTemplates() (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(pageFiles))
	for _, page := range pageFiles {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("handlers: parse %s: %w", page, err)
		}
		out[page] = t
	}
	return out, nil
}

// header is the top bar: identity, plan badge and credits.
type header struct {
	SignedIn    bool
	Email       string
	Name        string
	PlanLabel   string
	Credits     int
	ShowCredits bool
	Admin       bool
}

func headerFor(st session.State) header {
	h := header{SignedIn: st.Authenticated(), PlanLabel: st.PlanLabel(), Admin: st.Admin}
	if st.User != nil {
		h.Email, h.Name = st.User.Email, st.User.Name
	}
	if h.SignedIn {
		h.Credits, h.ShowCredits = st.Credits()
	}
	return h
}

type pageData struct {
	Title       string
	Header      header
	Flash       string
	ShowAuth    bool
	Auth        authflow.View
	ShowUpgrade bool
	Body        any
}

func (a *App) render(w http.ResponseWriter, r *http.Request, v *Visitor, page, title string, body any) {
	a.renderData(w, r, page, a.pageData(v, title, body))
}

func (a *App) pageData(v *Visitor, title string, body any) pageData {
	return pageData{
		Title:  title,
		Header: headerFor(v.Session.Snapshot()),
		Flash:  v.takeFlash(),
		Auth:   v.Auth.View(),
		Body:   body,
	}
}

func (a *App) renderData(w http.ResponseWriter, r *http.Request, page string, data pageData) {
	t, ok := a.pages[page]
	if !ok {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		middleware.LoggerFromContext(r.Context(), &a.Logger).Error().Err(err).Str("page", page).Msg("render failed")
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
