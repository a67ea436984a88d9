package auth

import (
	"errors"
	"fmt"
)

// Token-level failures returned by TokenCodec.Verify. Guards never see these
// directly: an unverifiable token leaves the request anonymous.
var (
	ErrInvalidSignature = errors.New("auth: token signature is invalid")
	ErrExpired          = errors.New("auth: token has expired")
	ErrMalformed        = errors.New("auth: token is malformed")
)

// Guard failures.
var (
	ErrUnauthenticated   = errors.New("auth: authentication required")
	ErrForbidden         = errors.New("auth: forbidden")
	ErrMissingPermission = errors.New("auth: missing required permission")
)

// MissingPermissionError names the first permission a guard found unmet.
// It matches ErrMissingPermission with errors.Is.
type MissingPermissionError struct {
	Permission string
}

func (e *MissingPermissionError) Error() string {
	return fmt.Sprintf("auth: missing required permission %q", e.Permission)
}

func (e *MissingPermissionError) Is(target error) bool {
	return target == ErrMissingPermission
}

// MissingRoleError names the role a guard required. It matches ErrForbidden.
type MissingRoleError struct {
	Role string
}

func (e *MissingRoleError) Error() string {
	return fmt.Sprintf("auth: role %q required", e.Role)
}

func (e *MissingRoleError) Is(target error) bool {
	return target == ErrForbidden
}
