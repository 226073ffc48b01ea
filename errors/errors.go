package errors

import "fmt"

var (
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrAccountExists      = fmt.Errorf("username already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUnauthorized       = fmt.Errorf("unauthorized")
	ErrSessionNotFound    = fmt.Errorf("session not found")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)
