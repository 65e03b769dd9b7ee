package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// VisitorCookieName is the cookie carrying the signed visitor id.
const VisitorCookieName = "cockpit_visitor"

const visitorIssuer = "cockpit-web"

type visitorKey struct{}

// VisitorOptions configures VisitorCookie.
type VisitorOptions struct {
	Secret []byte
	Secure bool
	TTL    time.Duration
	Now    func() time.Time
}

// SignVisitor returns an HS256 token naming the visitor.
func SignVisitor(secret []byte, visitorID string, issued time.Time, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    visitorIssuer,
		Subject:   visitorID,
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyVisitor checks the signature, issuer and expiry and returns the id.
func VerifyVisitor(secret []byte, token string, now time.Time) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(visitorIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return "", fmt.Errorf("visitor cookie: %w", err)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", errors.New("visitor cookie: subject is not a visitor id")
	}
	return claims.Subject, nil
}

// VisitorCookie gives every browser a stable visitor id. A missing, tampered
// or expired cookie is replaced with a fresh id.
func VisitorCookie(opts VisitorOptions) func(http.Handler) http.Handler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t := now()
			var id string
			if c, err := r.Cookie(VisitorCookieName); err == nil && strings.TrimSpace(c.Value) != "" {
				id, _ = VerifyVisitor(opts.Secret, c.Value, t)
			}
			if id == "" {
				id = uuid.NewString()
				token, err := SignVisitor(opts.Secret, id, t, ttl)
				if err != nil {
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     VisitorCookieName,
					Value:    token,
					Path:     "/",
					Expires:  t.Add(ttl),
					MaxAge:   int(ttl / time.Second),
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(ContextWithVisitorID(r.Context(), id)))
		})
	}
}

// VisitorIDFromContext returns the id set by VisitorCookie.
func VisitorIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(visitorKey{}).(string); ok {
		return v
	}
	return ""
}

// ContextWithVisitorID stores a visitor id; blank ids are ignored.
func ContextWithVisitorID(ctx context.Context, visitorID string) context.Context {
	if strings.TrimSpace(visitorID) == "" {
		return ctx
	}
	return context.WithValue(ctx, visitorKey{}, visitorID)
}
