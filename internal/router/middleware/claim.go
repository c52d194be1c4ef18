package middleware

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ClientClaims struct {
	// Scope is informational; any valid token may read market data.
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

func NewClientClaims(subject, scope string, duration time.Duration) *ClientClaims {
	now := time.Now()
	return &ClientClaims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		},
	}
}
