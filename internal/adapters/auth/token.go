// Package auth hashes passwords and issues the bearer tokens that carry a
// caller's principal between requests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okian/kam/internal/domain/access"
	"github.com/okian/kam/internal/domain/model"
)

const (
	minSecretLen = 16
	issuer       = "kam"
)

// Claims is the token payload.
type Claims struct {
	Role model.Role `json:"role"`
	POC  string     `json:"poc,omitempty"`
	Name string     `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens returns a signer using secret; tokens expire after ttl.
func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if len(secret) < minSecretLen {
		return nil, ErrWeakSecret
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for p and its expiry.
func (t *Tokens) Issue(p access.Principal) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := Claims{
		Role: p.Role,
		POC:  p.POC,
		Name: p.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify parses raw and returns the principal it names.
func (t *Tokens) Verify(raw string) (access.Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return access.Principal{}, errors.Join(ErrInvalidToken, err)
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return access.Principal{}, ErrInvalidToken
	}
	return access.Principal{
		UserID: claims.Subject,
		Name:   claims.Name,
		Role:   claims.Role,
		POC:    claims.POC,
	}, nil
}
