package session

import (
	"time"

	"github.com/dgrijalva/jwt-go"
)

// tokenExpiry reads the `exp` claim of a JWT without verifying it.
// The token stays opaque to the portal: anything unreadable yields the zero time.
func tokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	claims := new(jwt.StandardClaims)
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil || claims.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(claims.ExpiresAt, 0).UTC()
}
