package service

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// ErrInvalidCSRFToken is returned for a missing, expired, or forged token.
var ErrInvalidCSRFToken = errors.New("invalid csrf token")

const (
	csrfPurpose  = "csrf"
	csrfTokenTTL = 12 * time.Hour
)

// CSRFService issues and validates signed form tokens.
type CSRFService struct {
	key []byte
	ttl time.Duration
}

// NewCSRFService derives the token signing key from secret.
func NewCSRFService(secret string) (*CSRFService, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("flashdeck csrf signing key"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive csrf key: %w", err)
	}
	return &CSRFService{key: key, ttl: csrfTokenTTL}, nil
}

// Issue returns a new signed token.
func (s *CSRFService) Issue() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"jti": uuid.NewString(),
		"pur": csrfPurpose,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign csrf token: %w", err)
	}
	return signed, nil
}

// Validate checks the token's signature, expiry, and purpose.
func (s *CSRFService) Validate(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return ErrInvalidCSRFToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return ErrInvalidCSRFToken
	}
	if pur, _ := claims["pur"].(string); pur != csrfPurpose {
		return ErrInvalidCSRFToken
	}
	return nil
}
