// Package authflow drives the login, registration and email verification forms.
package authflow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rb-om1999/ensofinal/internal/api"
	"github.com/rb-om1999/ensofinal/internal/domain"
	"github.com/rb-om1999/ensofinal/internal/session"
)

// Mode is the form currently shown.
type Mode string

const (
	ModeLogin               Mode = "login"
	ModeRegister            Mode = "register"
	ModeVerificationPending Mode = "verification-pending"
)

const (
	msgAuthFailed   = "Authentication failed"
	msgResendFailed = "Failed to resend verification email"
	msgResent       = "Verification email resent! Please check your inbox."
	msgMissing      = "Please fill in all required fields"
)

// Sessioner is the part of the session manager the flow drives.
type Sessioner interface {
	Login(ctx context.Context, email, password string) (session.State, error)
	Register(ctx context.Context, name, email, password string) (session.VerificationPending, error)
}

// Resender re-sends the verification mail.
type Resender interface {
	ResendVerification(ctx context.Context, email string) (string, error)
}

// Form carries the submitted fields. Name is only read on registration.
type Form struct {
	Name     string
	Email    string
	Password string
}

// View is what the auth panel renders.
type View struct {
	Mode         Mode
	PendingEmail string
	Error        string
	Notice       string
}

// Result tells the caller what a successful submit produced.
type Result struct {
	SignedIn bool
	Pending  *session.VerificationPending
}

// Flow is the per-visitor auth state machine.
type Flow struct {
	session Sessioner
	resend  Resender

	mu           sync.Mutex
	mode         Mode
	pendingEmail string
	errMsg       string
	notice       string
}

// New starts the flow in login mode.
func New(s Sessioner, r Resender) *Flow {
	return &Flow{session: s, resend: r, mode: ModeLogin}
}

// View returns the current render state.
func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return View{Mode: f.mode, PendingEmail: f.pendingEmail, Error: f.errMsg, Notice: f.notice}
}

// Switch shows the login or register form and clears any message.
func (f *Flow) Switch(mode Mode) error {
	if mode != ModeLogin && mode != ModeRegister {
		return fmt.Errorf("%w: cannot switch to %q", domain.ErrInvalidInput, mode)
	}
	f.mu.Lock()
	f.mode = mode
	f.pendingEmail = ""
	f.errMsg = ""
	f.notice = ""
	f.mu.Unlock()
	return nil
}

// Submit validates required fields and then logs in or registers, depending on
// the mode. Field validation beyond presence is left to the backend.
func (f *Flow) Submit(ctx context.Context, form Form) (Result, error) {
	f.mu.Lock()
	mode := f.mode
	f.errMsg = ""
	f.notice = ""
	f.mu.Unlock()

	email := strings.TrimSpace(form.Email)
	missing := email == "" || form.Password == ""
	if mode == ModeRegister && strings.TrimSpace(form.Name) == "" {
		missing = true
	}
	if mode == ModeVerificationPending {
		return Result{}, fmt.Errorf("%w: verification pending", domain.ErrInvalidInput)
	}
	if missing {
		f.fail(msgMissing)
		return Result{}, fmt.Errorf("%w: %s", domain.ErrInvalidInput, msgMissing)
	}

	if mode == ModeLogin {
		if _, err := f.session.Login(ctx, email, form.Password); err != nil {
			f.fail(api.Message(err, msgAuthFailed))
			return Result{}, err
		}
		f.mu.Lock()
		f.mode = ModeLogin
		f.mu.Unlock()
		return Result{SignedIn: true}, nil
	}

	pending, err := f.session.Register(ctx, form.Name, email, form.Password)
	if err != nil {
		f.fail(api.Message(err, msgAuthFailed))
		return Result{}, err
	}
	f.mu.Lock()
	f.mode = ModeVerificationPending
	f.pendingEmail = pending.Email
	f.mu.Unlock()
	return Result{Pending: &pending}, nil
}

// Resend asks for a new verification mail for the pending address.
func (f *Flow) Resend(ctx context.Context) error {
	f.mu.Lock()
	email := f.pendingEmail
	mode := f.mode
	f.errMsg = ""
	f.notice = ""
	f.mu.Unlock()
	if mode != ModeVerificationPending || email == "" {
		return fmt.Errorf("%w: no verification pending", domain.ErrInvalidInput)
	}

	msg, err := f.resend.ResendVerification(ctx, email)
	if err != nil {
		f.fail(api.Message(err, msgResendFailed))
		return err
	}
	f.mu.Lock()
	f.notice = msgResent
	if msg = strings.TrimSpace(msg); msg != "" {
		f.notice = msg
	}
	f.mu.Unlock()
	return nil
}

func (f *Flow) fail(msg string) {
	f.mu.Lock()
	f.errMsg = msg
	f.mu.Unlock()
}
