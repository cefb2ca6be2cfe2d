package application

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	"github.com/ericfisherdev/devisible/internal/domain/model"
)

const tokenIssuer = "devisible-dashboard"

// SessionKeys are the keys derived from the configured secret.
type SessionKeys struct {
	Signing    []byte // HMAC key for session tokens
	Encryption []byte // AES-256 key for backend cookies at rest
}

// DeriveSessionKeys expands secret into independent signing and encryption
// keys with HKDF-SHA256.
func DeriveSessionKeys(secret []byte) (SessionKeys, error) {
	if len(secret) < 32 {
		return SessionKeys{}, fmt.Errorf("secret must be at least 32 bytes, got %d", len(secret))
	}

	derive := func(info string) ([]byte, error) {
		key := make([]byte, 32)
		if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
			return nil, fmt.Errorf("derive %s key: %w", info, err)
		}
		return key, nil
	}

	signing, err := derive("devisible session signing")
	if err != nil {
		return SessionKeys{}, err
	}
	encryption, err := derive("devisible cookie encryption")
	if err != nil {
		return SessionKeys{}, err
	}

	return SessionKeys{Signing: signing, Encryption: encryption}, nil
}

// SessionClaims are the JWT claims carried in the browser session cookie.
type SessionClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// TokenIssuer signs and verifies session tokens with HS256.
type TokenIssuer struct {
	key []byte
	now func() time.Time
}

// NewTokenIssuer creates a TokenIssuer with the given HMAC key.
func NewTokenIssuer(key []byte) *TokenIssuer {
	return &TokenIssuer{key: key, now: time.Now}
}

// Issue returns a signed token referencing the session.
func (t *TokenIssuer) Issue(s model.Session) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   s.Username,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
		Username: s.Username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token's signature, issuer and expiry and returns its claims.
func (t *TokenIssuer) Parse(token string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(*jwt.Token) (any, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}
