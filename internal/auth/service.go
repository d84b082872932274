// Package auth guards the admin surface (material cost editing) with a
// single argon2id password and a signed session token.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/bakery-quote/internal/common"
)

const (
	// SessionCookie carries the admin session token.
	SessionCookie = "bakery_admin_session"

	defaultSessionTTL = 12 * time.Hour
	issuer            = "bakery-quote"
	adminSubject      = "admin"
)

// Config configures the admin auth service.
type Config struct {
	PasswordHash string
	Secret       string
	SessionTTL   time.Duration
	Now          func() time.Time
}

// Service validates the admin password and issues session tokens.
type Service struct {
	passwordHash string
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewService builds the service. An empty password hash disables admin
// access entirely; a hash without a signing secret is a configuration
// error.
func NewService(cfg Config) (*Service, error) {
	hash := strings.TrimSpace(cfg.PasswordHash)
	secret := strings.TrimSpace(cfg.Secret)
	if hash != "" && secret == "" {
		return nil, errors.New("auth: signing secret is required when a password hash is set")
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		passwordHash: hash,
		secret:       []byte(secret),
		ttl:          ttl,
		now:          now,
	}, nil
}

// Enabled reports whether admin access is configured.
func (s *Service) Enabled() bool { return s.passwordHash != "" }

// Login verifies the password and returns a signed session token with
// its expiry.
func (s *Service) Login(password string) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, common.NewAppError("ADMIN_DISABLED", "admin access is not configured", http.StatusServiceUnavailable, nil)
	}
	match, err := argon2id.ComparePasswordAndHash(password, s.passwordHash)
	if err != nil || !match {
		return "", time.Time{}, common.NewAppError("UNAUTHORIZED", "invalid password", http.StatusUnauthorized, err)
	}

	issued := s.now()
	expires := issued.Add(s.ttl)
	token, err := jwt.NewBuilder().
		Subject(adminSubject).
		Issuer(issuer).
		IssuedAt(issued).
		Expiration(expires).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expires, nil
}

// ParseSession validates a session token.
func (s *Service) ParseSession(token string) error {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return common.NewAppError("UNAUTHORIZED", "missing session", http.StatusUnauthorized, nil)
	}
	parsed, err := jwt.ParseString(trimmed,
		jwt.WithKey(jwa.HS256, s.secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	)
	if err != nil {
		return common.NewAppError("UNAUTHORIZED", "invalid session", http.StatusUnauthorized, err)
	}
	if parsed.Subject() != adminSubject || parsed.Issuer() != issuer {
		return common.NewAppError("UNAUTHORIZED", "invalid session", http.StatusUnauthorized, nil)
	}
	return nil
}
