package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rb-om1999/ensofinal/internal/domain"
)

// ErrNoSession is returned by authenticated calls when no token is available.
// No request is sent in that case.
var ErrNoSession = errors.New("api: not signed in")

// Kind classifies a failed backend call.
type Kind int

const (
	KindBackend Kind = iota
	KindUnauthorized
	KindPaywall
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindPaywall:
		return "paywall"
	case KindTimeout:
		return "timeout"
	default:
		return "backend"
	}
}

// Error is the typed failure of a backend call. Message is fit for display.
type Error struct {
	Kind    Kind
	Status  int
	Message string

	err error // transport cause, when there is one
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("api: %s: %s", e.Kind, e.Message)
	if e.Status > 0 {
		msg = fmt.Sprintf("api: %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	return msg
}

// Unwrap lets callers test with errors.Is against the domain sentinels, or
// against the transport cause of a backend failure.
func (e *Error) Unwrap() error {
	if e.err != nil && e.Kind == KindBackend {
		return e.err
	}
	switch e.Kind {
	case KindUnauthorized:
		return domain.ErrUnauthorized
	case KindPaywall:
		return domain.ErrQuotaExceeded
	case KindTimeout:
		return domain.ErrTimeout
	default:
		return nil
	}
}

// KindOf reports the Kind of err, or KindBackend when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindBackend
}

// Message returns a display string for err, falling back to fallback.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

const quotaExceededCode = "quota_exceeded"

// errorResponse covers the error shapes the backend answers with: a FastAPI
// {"detail": ...} (string, object or validation list), or {error, message, code}.
type errorResponse struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type detailObject struct {
	Message string `json:"message"`
	Msg     string `json:"msg"`
	Code    string `json:"code"`
}

// text picks detail, then message, then error.
func (r errorResponse) text() string {
	if d, _ := r.detail(); d != "" {
		return d
	}
	if m := strings.TrimSpace(r.Message); m != "" {
		return m
	}
	return strings.TrimSpace(r.Error)
}

func (r errorResponse) code() string {
	if _, c := r.detail(); c != "" {
		return c
	}
	return r.Code
}

func (r errorResponse) detail() (string, string) {
	raw := r.Detail
	if len(raw) == 0 || string(raw) == "null" {
		return "", ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), ""
	}
	var obj detailObject
	if err := json.Unmarshal(raw, &obj); err == nil && (obj.Message != "" || obj.Msg != "" || obj.Code != "") {
		return firstNonEmpty(obj.Message, obj.Msg), obj.Code
	}
	var list []detailObject
	if err := json.Unmarshal(raw, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if m := firstNonEmpty(item.Msg, item.Message); m != "" {
				parts = append(parts, m)
			}
		}
		return strings.Join(parts, "; "), ""
	}
	return "", ""
}

// isQuotaMessage recognises the paywall text the backend sends in 2xx bodies.
func isQuotaMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "free analyses") || strings.Contains(msg, "upgrade to pro")
}

// statusError maps a non-2xx answer onto the error taxonomy. On public
// endpoints a 401 means bad credentials, not an expired session.
func statusError(status int, raw []byte, fallback string, public bool) *Error {
	var body errorResponse
	_ = json.Unmarshal(raw, &body)
	msg := body.text()
	if msg == "" {
		msg = fallback
	}
	switch {
	case status == http.StatusUnauthorized && !public:
		return &Error{Kind: KindUnauthorized, Status: status, Message: domain.ErrUnauthorized.Error()}
	case status == http.StatusPaymentRequired:
		return &Error{Kind: KindPaywall, Status: status, Message: msg}
	case status == http.StatusForbidden && (body.code() == quotaExceededCode || isQuotaMessage(msg)):
		return &Error{Kind: KindPaywall, Status: status, Message: msg}
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return &Error{Kind: KindTimeout, Status: status, Message: "the request timed out, please try again"}
	default:
		return &Error{Kind: KindBackend, Status: status, Message: msg}
	}
}

// bodyError detects the {error, message} failure shape inside a 2xx answer.
func bodyError(status int, raw []byte) *Error {
	var body errorResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil
	}
	if strings.TrimSpace(body.Error) == "" || strings.TrimSpace(body.Message) == "" {
		return nil
	}
	kind := KindBackend
	if body.Code == quotaExceededCode || isQuotaMessage(body.Message) {
		kind = KindPaywall
	}
	return &Error{Kind: kind, Status: status, Message: strings.TrimSpace(body.Message)}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
