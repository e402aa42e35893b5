package service

import "errors"

// Sentinel errors form the taxonomy the transport layer translates to HTTP
// codes. Services wrap them with fmt.Errorf("...: %w", Err...) so the reason
// survives into logs without leaking internals to clients.
var (
	ErrValidation         = errors.New("validation")           // 400
	ErrNotFound           = errors.New("not found")            // 404
	ErrConflict           = errors.New("conflict")             // 409
	ErrInvalidCredentials = errors.New("invalid credentials")  // 401
	ErrAccountDisabled    = errors.New("account disabled")     // 403
	ErrNotAuthenticated   = errors.New("not authenticated")    // 401
	ErrTokenRefresh       = errors.New("token refresh failed") // 401
)
