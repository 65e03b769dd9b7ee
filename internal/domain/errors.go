package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("session expired, please sign in again")
	ErrQuotaExceeded  = errors.New("free analyses used up")
	ErrTimeout        = errors.New("request timed out")
	ErrInvalidInput   = errors.New("invalid input")
	ErrProRequired    = errors.New("pro plan required")
	ErrBusy           = errors.New("a request is already in progress")
	ErrUnsupportedURL = errors.New("unsupported chart url")
	ErrFileTooLarge   = errors.New("file size must be under 4MB")
)
