package authflow

import (
	"context"
	"strings"

	"github.com/rb-om1999/ensofinal/internal/api"
)

// VerifyStatus is the state of the email verification page.
type VerifyStatus string

const (
	VerifyPending VerifyStatus = "verifying"
	VerifySuccess VerifyStatus = "success"
	VerifyError   VerifyStatus = "error"
)

// Verification is the outcome shown on the verification page.
type Verification struct {
	Status  VerifyStatus
	Message string
}

// Verifier confirms a verification token.
type Verifier interface {
	VerifyEmail(ctx context.Context, token string) (string, error)
}

// VerifyEmail confirms token with a single call. A missing token fails without
// contacting the backend.
func VerifyEmail(ctx context.Context, v Verifier, token string) Verification {
	token = strings.TrimSpace(token)
	if token == "" {
		return Verification{
			Status:  VerifyError,
			Message: "Invalid verification link. Please check your email for the correct link.",
		}
	}
	msg, err := v.VerifyEmail(ctx, token)
	if err != nil {
		return Verification{Status: VerifyError, Message: api.Message(err, "Verification failed. Please try again.")}
	}
	if msg = strings.TrimSpace(msg); msg == "" {
		msg = "Email verified successfully! You can now sign in."
	}
	return Verification{Status: VerifySuccess, Message: msg}
}
