package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// State is the session state machine position.
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Identity is the authenticated actor of the current session.
type Identity struct {
	Username string // Set at login; recovered from the username claim on restart when present
	UserID   string // user_id claim of the access token, empty for opaque tokens
}

// tokenClaims reads the claims of a JWT access token without verifying its
// signature. The backend is the only party that trusts these tokens; the client
// only uses them to recover identity and expiry hints.
func tokenClaims(raw string) (jwt.MapClaims, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, false
	}
	return claims, true
}

func identityFromToken(raw string) Identity {
	claims, ok := tokenClaims(raw)
	if !ok {
		return Identity{}
	}

	var id Identity
	if username, ok := claims["username"].(string); ok {
		id.Username = username
	}
	switch v := claims["user_id"].(type) {
	case string:
		id.UserID = v
	case float64:
		id.UserID = fmt.Sprintf("%.0f", v)
	}
	return id
}

// tokenExpiry returns the exp claim of a JWT access token
func tokenExpiry(raw string) (time.Time, bool) {
	claims, ok := tokenClaims(raw)
	if !ok {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
