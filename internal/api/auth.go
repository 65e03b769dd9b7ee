package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/rb-om1999/ensofinal/internal/domain"
)

// Credentials are the login form fields.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration are the register form fields.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the issued token and the identity it belongs to.
type LoginResult struct {
	Token string
	User  domain.User
	// Admin is set when the login payload itself carries the admin role.
	Admin bool
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	var out tokenResponse
	err := c.doJSON(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/login",
		public:   true,
		body:     creds,
		fallback: "Authentication failed",
	}, &out)
	if err != nil {
		return LoginResult{}, err
	}
	token := strings.TrimSpace(out.AccessToken)
	if token == "" {
		return LoginResult{}, &Error{Kind: KindBackend, Status: http.StatusOK, Message: "Authentication failed"}
	}
	return LoginResult{
		Token: token,
		User: domain.User{
			ID:    out.User.ID,
			Email: strings.TrimSpace(out.User.Email),
			Name:  strings.TrimSpace(out.User.Name),
		},
		Admin: out.User.IsAdmin || strings.EqualFold(out.User.Role, string(domain.UserRoleAdmin)),
	}, nil
}

// Register creates an account. The backend mails a verification link; no
// session is issued.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.doJSON(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/register",
		public:   true,
		body:     reg,
		fallback: "Authentication failed",
	}, nil)
}

type messageResponse struct {
	Message string `json:"message"`
}

// ResendVerification asks the backend to mail a new verification link and
// returns its confirmation text, which may be empty.
func (c *Client) ResendVerification(ctx context.Context, email string) (string, error) {
	var out messageResponse
	err := c.doJSON(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/resend-verification",
		public:   true,
		body:     map[string]string{"email": email},
		fallback: "Failed to resend verification email",
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Message, nil
}

// VerifyEmail confirms an emailed verification token and returns the
// backend's confirmation text, which may be empty.
func (c *Client) VerifyEmail(ctx context.Context, token string) (string, error) {
	var out messageResponse
	err := c.doJSON(ctx, call{
		method:   http.MethodGet,
		path:     "/auth/verify?token=" + url.QueryEscape(token),
		public:   true,
		fallback: "Verification failed. Please try again.",
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Message, nil
}
