package transport

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of a bearer token without verifying its
// signature. The result is used only to schedule refresh ahead of expiry;
// trust decisions stay with the server. Returns the zero time when the
// token is absent, not a JWT, or carries no expiry.
func TokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
