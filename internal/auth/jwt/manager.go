// Package jwt issues and verifies the bearer tokens that identify members.
package jwt

import (
	"fmt"
	"time"

	jwtx "github.com/golang-jwt/jwt/v4"
)

// Manager handles JWT creation and verification using a secret key and token duration.
type Manager struct {
	secretKey     string
	tokenDuration time.Duration
}

// NewManager creates a new JWT Manager with the given secret key and token duration.
func NewManager(secretKey string, tokenDuration time.Duration) *Manager {
	return &Manager{
		secretKey:     secretKey,
		tokenDuration: tokenDuration,
	}
}

// Generate creates a signed JWT token string using the provided parameters.
func (m *Manager) Generate(params CreateJwtParams) (string, error) {
	now := time.Now()
	claims := &Claims{
		MemberID: params.MemberID,
		Email:    params.Email,
		RegisteredClaims: jwtx.RegisteredClaims{
			Subject:   params.MemberID,
			ExpiresAt: jwtx.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwtx.NewNumericDate(now),
		},
	}
	token := jwtx.NewWithClaims(jwtx.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.secretKey))
}

// Verify parses and validates a JWT token string, returning the claims if valid.
// Tokens signed with anything but HMAC are rejected.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	token, err := jwtx.ParseWithClaims(tokenStr, &Claims{}, func(token *jwtx.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwtx.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(m.secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.MemberID == "" {
		return nil, jwtx.ErrTokenInvalidClaims
	}
	return claims, nil
}
