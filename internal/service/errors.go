package service

import (
	"errors"
	"strings"

	"github.com/anivault/anivault/internal/i18n"
	"github.com/anivault/anivault/internal/identity"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")
	ErrEntryNotFound   = errors.New("catalog entry not found")
	ErrInvalidEntry    = errors.New("invalid catalog entry")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidRole     = errors.New("invalid role")
	ErrProfileMissing  = errors.New("profile not found")
)

// AuthError is an identity failure with the message shown to the user.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }
func (e *AuthError) Unwrap() error { return e.Err }

// LocalizeAuthError maps provider failures to user-facing text. Known
// provider messages are translated, other provider messages pass through.
func LocalizeAuthError(err error) string {
	if err == nil {
		return ""
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Message
	}
	if ie, ok := identity.AsError(err); ok && ie.ClientError() {
		switch {
		case strings.Contains(ie.Message, "Invalid login credentials"):
			return i18n.InvalidCredentials
		case strings.Contains(ie.Message, "Email not confirmed"):
			return i18n.EmailNotConfirmed
		default:
			return ie.Message
		}
	}
	if errors.Is(err, identity.ErrUnavailable) {
		return i18n.ConnectionFailed
	}
	return i18n.Unexpected
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
