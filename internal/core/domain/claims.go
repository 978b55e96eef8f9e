package domain

import "time"

// TokenClaims is the verified content of a bearer token.
type TokenClaims struct {
	Subject   string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
