package identity

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoSession is returned by operations that need a signed-in session.
	ErrNoSession = errors.New("no active session")
	// ErrUnavailable wraps transport failures talking to the provider.
	ErrUnavailable = errors.New("identity provider unavailable")
)

// Error is a rejection reported by the provider. Message carries the
// provider's text verbatim.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("identity provider error (status %d)", e.Status)
	}
	return e.Message
}

// ClientError reports whether the provider rejected the request itself, as
// opposed to failing to serve it.
func (e *Error) ClientError() bool {
	return e.Status >= http.StatusBadRequest && e.Status < http.StatusInternalServerError
}

// AsError unwraps err into a provider *Error.
func AsError(err error) (*Error, bool) {
	var ie *Error
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
