package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/rb-om1999/ensofinal/internal/domain"
	"github.com/rb-om1999/ensofinal/internal/middleware"
)

// History lists past analyses. ?open=<id> expands one entry.
func (a *App) History(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := v.History.Load(r.Context()); errors.Is(err, domain.ErrUnauthorized) {
		a.finish(w, r, v, err, "/app?auth=login")
		return
	}
	if id := r.URL.Query().Get("open"); id != "" && v.History.Expanded() != id {
		_ = v.History.Toggle(id)
	}
	a.renderHistory(w, r, v)
}

// ToggleHistory expands or collapses one entry without refetching.
func (a *App) ToggleHistory(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	_ = r.ParseForm()
	if err := v.History.Toggle(r.PostFormValue("id")); err != nil && wantsJSON(r) {
		a.error(w, statusFor(err), "not_found", "unknown analysis")
		return
	}
	a.renderHistory(w, r, v)
}

func (a *App) renderHistory(w http.ResponseWriter, r *http.Request, v *Visitor) {
	loc := middleware.LocaleFromContext(r.Context())
	view := v.History.View(v.Session.Snapshot().IsPro(), loc.DateLayout(), time.UTC)
	if wantsJSON(r) {
		a.json(w, http.StatusOK, view)
		return
	}
	a.render(w, r, v, "history.html", "History", view)
}
