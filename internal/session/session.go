package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Domain errors
var (
	ErrSigningKeyMissing = errors.New("session signing key is required")
	ErrTokenInvalid      = errors.New("invalid session token")
)

// Claims carried by a session token. The token is opaque to clients and
// tamper-evident: any mutation fails signature verification on decode.
type Claims struct {
	UserID   string `json:"uid"`
	Email    string `json:"email"`
	TenantID string `json:"tid"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Codec encodes and decodes signed session tokens (HS256)
type Codec struct {
	key      []byte
	lifetime time.Duration
}

// NewCodec creates a codec from the configured signing key. A missing
// key is a startup error, never silently bypassed.
func NewCodec(signingKey string, lifetime time.Duration) (*Codec, error) {
	if signingKey == "" {
		return nil, ErrSigningKeyMissing
	}
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	return &Codec{key: []byte(signingKey), lifetime: lifetime}, nil
}

// Encode issues a signed token for the given identity
func (c *Codec) Encode(userID, email, tenantID, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Email:    email,
		TenantID: tenantID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Decode verifies a token and returns its claims
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.key, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
