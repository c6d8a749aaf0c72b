package auth

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var ErrUnauthorized = errors.New("unauthorized")

// Identity is the caller extracted from a verified identity-provider token.
type Identity struct {
	UID   string
	Email string
	Name  string
}

// Verifier checks HS256 tokens minted by the identity provider. The service
// never issues tokens itself.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

type identityClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		now:    time.Now,
	}
}

func (v *Verifier) Verify(raw string) (Identity, error) {
	if len(v.secret) == 0 {
		return Identity{}, ErrUnauthorized
	}
	if strings.TrimSpace(raw) == "" {
		return Identity{}, ErrUnauthorized
	}

	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(_ *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithTimeFunc(v.now))
	if err != nil || token == nil || !token.Valid {
		return Identity{}, ErrUnauthorized
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	uid := strings.TrimSpace(claims.Subject)
	if email == "" || uid == "" {
		return Identity{}, ErrUnauthorized
	}

	return Identity{
		UID:   uid,
		Email: email,
		Name:  strings.TrimSpace(claims.Name),
	}, nil
}
