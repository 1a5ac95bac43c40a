package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 24 * time.Hour

// TokenClaims are the claims carried by an access token
type TokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access tokens
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a token manager. An empty secret is rejected.
func NewTokenManager(secret, issuer string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token for the given user
func (m *TokenManager) Issue(userID, email string) (string, error) {
	now := m.now()
	claims := TokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Parse verifies a token's signature, issuer and expiry and returns its claims
func (m *TokenManager) Parse(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}
