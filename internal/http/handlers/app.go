// Package handlers serves the cockpit pages and forms. Every visitor gets its
// own session, auth flow, analysis workflow, account flow and history list.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/rb-om1999/ensofinal/internal/api"
	"github.com/rb-om1999/ensofinal/internal/domain"
	"github.com/rb-om1999/ensofinal/internal/infra"
	"github.com/rb-om1999/ensofinal/internal/middleware"
	"github.com/rb-om1999/ensofinal/internal/pages"
	"github.com/rb-om1999/ensofinal/internal/session"
	"github.com/rb-om1999/ensofinal/internal/workflow"
)

// Options wires the App.
type Options struct {
	API       *api.Client
	Store     session.Store
	Admins    session.AdminPolicy
	Providers []domain.ChartProvider
	Payment   pages.Payment
	Logger    infra.Logger
	Now       func() time.Time
}

// App holds the handler dependencies.
type App struct {
	API      *api.Client
	Visitors *Registry
	Pay      pages.Payment
	Logger   infra.Logger

	pages map[string]*template.Template
}

// NewApp parses the page templates and builds the visitor registry.
func NewApp(opts Options) (*App, error) {
	if opts.API == nil {
		return nil, errors.New("handlers: api client is required")
	}
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &App{
		API:      opts.API,
		Visitors: NewRegistry(opts),
		Pay:      opts.Payment,
		Logger:   opts.Logger,
		pages:    tmpl,
	}, nil
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, code int, kind, msg string) {
	a.json(w, code, errorBody{Error: kind, Message: msg})
}

// visitor returns the state of the requesting browser, restoring a persisted
// session on first sight.
func (a *App) visitor(r *http.Request) (*Visitor, error) {
	id := middleware.VisitorIDFromContext(r.Context())
	if id == "" {
		return nil, fmt.Errorf("handlers: request has no visitor id")
	}
	return a.Visitors.Get(r.Context(), id), nil
}

func (a *App) requestLogger(r *http.Request) *infra.Logger {
	return middleware.LoggerFromContext(r.Context(), &a.Logger)
}

func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// statusFor maps an operation error to the status returned to JSON clients.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, workflow.ErrStale), errors.Is(err, domain.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, api.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrQuotaExceeded), errors.Is(err, domain.ErrProRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedURL):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// finish ends a form POST: JSON clients get the cockpit state with a status
// derived from err, browsers are redirected to target.
func (a *App) finish(w http.ResponseWriter, r *http.Request, v *Visitor, err error, target string) {
	if wantsJSON(r) {
		a.json(w, statusFor(err), a.state(v))
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
