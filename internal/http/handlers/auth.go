package handlers

import (
	"net/http"

	"github.com/rb-om1999/ensofinal/internal/authflow"
	"github.com/rb-om1999/ensofinal/internal/domain"
)

// AuthMode switches the auth panel between login and register.
func (a *App) AuthMode(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	_ = r.ParseForm()
	err = v.Auth.Switch(authflow.Mode(r.PostFormValue("mode")))
	v.OpenAuth(true)
	a.finish(w, r, v, err, "/app?auth=open")
}

// AuthSubmit logs in or registers depending on the panel mode.
func (a *App) AuthSubmit(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid form")
		return
	}
	res, err := v.Auth.Submit(backendContext(r), authflow.Form{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	})
	logger := a.requestLogger(r)
	switch {
	case err != nil:
		logger.Info().Err(err).Msg("auth: submit rejected")
		v.OpenAuth(true)
		a.finish(w, r, v, err, "/app?auth=open")
	case res.Pending != nil:
		v.OpenAuth(true)
		a.finish(w, r, v, nil, "/app?auth=open")
	default:
		v.OpenAuth(false)
		a.finish(w, r, v, nil, "/app")
	}
}

// AuthResend re-sends the verification mail for the pending registration.
func (a *App) AuthResend(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	err = v.Auth.Resend(backendContext(r))
	v.OpenAuth(true)
	a.finish(w, r, v, err, "/app?auth=open")
}

// Logout clears the session and the analysis in progress.
func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	v.Session.Logout(r.Context())
	v.Workflow.Reset()
	_ = v.Auth.Switch(authflow.ModeLogin)
	v.OpenAuth(false)
	a.finish(w, r, v, nil, "/")
}

// VerifyEmail confirms the token from the emailed link.
func (a *App) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	v, err := a.visitor(r)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	res := authflow.VerifyEmail(r.Context(), a.API, r.URL.Query().Get("token"))
	if wantsJSON(r) {
		code := http.StatusOK
		if res.Status == authflow.VerifyError {
			code = statusFor(domain.ErrInvalidInput)
		}
		a.json(w, code, res)
		return
	}
	a.render(w, r, v, "verify.html", "Verify email", res)
}
