package session

import (
	"fmt"

	"github.com/jrsteele09/ferretcontrol-console/internal/errors"
)

// ErrAuth matches every *AuthError through errors.Is.
var ErrAuth = errors.ErrAuth

// AuthError is returned by Login when credentials are rejected or the
// authentication endpoint cannot be reached. Err carries the cause, for example
// errors.ErrInvalidCredentials or errors.ErrNetwork.
type AuthError struct {
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("login failed for %q: %v", e.Username, e.Err)
}

func (e *AuthError) Unwrap() []error {
	return []error{ErrAuth, e.Err}
}
