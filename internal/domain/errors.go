package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrBadRequest         = errors.New("bad request")
	ErrExpired            = errors.New("expired")
	ErrUpstreamTimeout    = errors.New("upstream timeout")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrCodeGeneration     = errors.New("failed to generate a code, try again")
)
