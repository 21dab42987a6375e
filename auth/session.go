// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/danielhkuo/quota-vote/apperrors"
	"github.com/danielhkuo/quota-vote/models"
)

// Issuer is the iss claim on every session token.
const Issuer = "quota-vote"

var ErrEmptySecret = errors.New("session secret is required")

// Claims is the JWT payload of a session token.
type Claims struct {
	Role      string `json:"role"`
	ElectorID string `json:"elector_id,omitempty"`
	jwt.RegisteredClaims
}

// Sessions signs and validates HS256 session tokens.
type Sessions struct {
	secret []byte
	now    func() time.Time
}

func NewSessions(secret string) (*Sessions, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrEmptySecret
	}
	return &Sessions{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a token for role. electorID is required for elector sessions.
func (s *Sessions) Issue(role, electorID string, ttl time.Duration) (string, error) {
	if role != models.RoleAdmin && role != models.RoleElector {
		return "", fmt.Errorf("unknown role %q", role)
	}
	if role == models.RoleElector && electorID == "" {
		return "", errors.New("elector session requires an elector id")
	}

	now := s.now()
	subject := electorID
	if role == models.RoleAdmin {
		subject = models.RoleAdmin
	}
	claims := Claims{
		Role:      role,
		ElectorID: electorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

// Verify validates token and resolves the session it carries. Every
// failure is reported as CodeUnauthorized.
func (s *Sessions) Verify(token string) (models.Session, error) {
	if strings.TrimSpace(token) == "" {
		return models.Session{}, apperrors.New(apperrors.CodeUnauthorized, "Session token required")
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return models.Session{}, apperrors.Wrap(apperrors.CodeUnauthorized, "Invalid session", err)
	}

	switch claims.Role {
	case models.RoleAdmin:
	case models.RoleElector:
		if claims.ElectorID == "" {
			return models.Session{}, apperrors.New(apperrors.CodeUnauthorized, "Invalid session")
		}
	default:
		return models.Session{}, apperrors.New(apperrors.CodeUnauthorized, "Invalid session")
	}

	return models.Session{
		Subject:   claims.Subject,
		Role:      claims.Role,
		ElectorID: claims.ElectorID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
