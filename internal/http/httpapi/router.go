// Package httpapi assembles the routes and middleware of the web front.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/text/language"

	"github.com/rb-om1999/ensofinal/internal/http/handlers"
	"github.com/rb-om1999/ensofinal/internal/middleware"
)

// Options configures the middleware stack.
type Options struct {
	VisitorSecret   []byte
	SecureCookies   bool
	RateLimitPerMin int
	CountryLookup   middleware.CountryLookup
}

// NewRouter wires every page and form route.
func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID(app.Logger),
		chimw.RealIP,
		chimw.Recoverer,
		middleware.VisitorCookie(middleware.VisitorOptions{Secret: opts.VisitorSecret, Secure: opts.SecureCookies}),
		middleware.Logger(app.Logger),
		middleware.I18N(language.AmericanEnglish, opts.CountryLookup),
	)

	limited := middleware.RateLimit(opts.RateLimitPerMin, time.Minute)

	r.Get("/healthz", app.Health)

	r.Get("/", app.Landing)
	r.Get("/pricing", app.Pricing)
	r.Get("/payment", app.Payment)
	r.Post("/payment", app.CompletePayment)
	r.Get("/verify-email", app.VerifyEmail)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/mode", app.AuthMode)
		r.With(limited).Post("/submit", app.AuthSubmit)
		r.With(limited).Post("/resend", app.AuthResend)
		r.Post("/logout", app.Logout)
	})

	r.Route("/app", func(r chi.Router) {
		r.Get("/", app.Cockpit)
		r.Get("/state", app.State)
		r.Get("/result.json", app.ResultJSON)
		r.Post("/mode", app.SetMode)
		r.With(limited).Post("/capture", app.Capture)
		r.With(limited).Post("/upload", app.Upload)
		r.With(limited).Post("/analyze", app.Analyze)
		r.Post("/retake", app.Retake)
		r.Post("/reset", app.Reset)
	})

	r.Get("/history", app.History)
	r.Post("/history/toggle", app.ToggleHistory)
	r.Get("/profile", app.Profile)
	r.Post("/profile", app.SaveProfile)
	r.Post("/upgrade", app.Upgrade)

	return r
}
