package domain

import "time"

// TokenClaims is the verified content of a bearer token.
type TokenClaims struct {
	UserID    string
	Username  string
	ExpiresAt time.Time
}
