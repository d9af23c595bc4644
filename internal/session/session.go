// Package session issues and validates signed session tokens. Tokens are HMAC-SHA256
// JWTs keyed by the configured secret key and live for the session timeout.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "dispatcher2-web"

var (
	// ErrMissingSecret indicates no secret key is configured.
	ErrMissingSecret = errors.New("session secret key is not configured")
	// ErrInvalidTimeout indicates a non-positive session timeout.
	ErrInvalidTimeout = errors.New("session timeout must be positive")
	// ErrInvalidSubject indicates an empty token subject.
	ErrInvalidSubject = errors.New("session subject must not be empty")
	// ErrExpired indicates the token is past its expiry.
	ErrExpired = errors.New("session expired")
	// ErrInvalidToken indicates a malformed or forged token.
	ErrInvalidToken = errors.New("invalid session token")
)

// Token is a freshly issued session token.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Claims describes a validated session.
type Claims struct {
	Subject   string    `json:"subject"`
	ID        string    `json:"id"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Manager signs and verifies session tokens.
type Manager struct {
	secret  []byte
	timeout time.Duration
	clock   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// NewManager constructs a Manager from the secret key and session timeout.
func NewManager(secret string, timeout time.Duration, opts ...Option) (*Manager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	if timeout <= 0 {
		return nil, ErrInvalidTimeout
	}

	m := &Manager{
		secret:  []byte(secret),
		timeout: timeout,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Timeout returns the configured session lifetime.
func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

// Issue signs a new token for subject.
func (m *Manager) Issue(subject string) (Token, error) {
	if strings.TrimSpace(subject) == "" {
		return Token{}, ErrInvalidSubject
	}

	now := m.clock().UTC().Truncate(time.Second)
	expiresAt := now.Add(m.timeout)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign session token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: expiresAt}, nil
}

// Validate verifies raw and returns its claims.
func (m *Manager) Validate(raw string) (*Claims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.clock),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	out := &Claims{
		Subject: claims.Subject,
		ID:      claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return out, nil
}
