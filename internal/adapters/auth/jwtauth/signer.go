package jwtauth

import (
	"strings"
	"time"

	"pet-wellness/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTTL = time.Hour

// Signer emite tokens compatibles con Verifier. Lo usa el comando `token`
// para desarrollo y los tests.
type Signer struct {
	cfg Config
	now func() time.Time
}

func NewSigner(cfg Config) (*Signer, error) {
	if !cfg.IsConfigured() {
		return nil, ErrNotConfigured
	}
	return &Signer{cfg: cfg, now: time.Now}, nil
}

func (s *Signer) Sign(c auth.Claims, ttl time.Duration) (string, error) {
	if strings.TrimSpace(c.UserID) == "" {
		return "", ErrMissingUserID
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := s.now()
	claims := Claims{
		Email:    c.Email,
		TenantID: c.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if aud := strings.TrimSpace(s.cfg.Audience); aud != "" {
		claims.Audience = jwt.ClaimStrings{aud}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
}
