package tokenstore

import (
	"github.com/jrsteele09/ferretcontrol-console/internal/errors"
)

// Keys the session tokens are persisted under.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.ErrNotFound

// Store is a durable client-side key/value store holding opaque string values.
// Writes replace the whole value; there are no partial updates.
type Store interface {
	// Get returns the value for key or ErrNotFound
	Get(key string) (string, error)

	// Set stores value under key, replacing any previous value
	Set(key, value string) error

	// Delete removes key; deleting a missing key is not an error
	Delete(key string) error
}

// Lookup returns the value for key, reporting absence as ok=false rather than an error.
func Lookup(s Store, key string) (value string, ok bool, err error) {
	value, err = s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, value != "", nil
}
