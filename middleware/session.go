// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"net/http"

	"github.com/danielhkuo/quota-vote/apperrors"
	"github.com/danielhkuo/quota-vote/auth"
	"github.com/danielhkuo/quota-vote/models"
)

// SessionVerifier validates a session token
type SessionVerifier interface {
	Verify(token string) (models.Session, error)
}

type sessionKey struct{}

// WithSession stores s in ctx
func WithSession(ctx context.Context, s models.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session placed in ctx by a guard
func SessionFrom(ctx context.Context) (models.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(models.Session)
	return s, ok
}

// Authenticate resolves the request's session token or returns an
// UNAUTHORIZED error
func Authenticate(v SessionVerifier, r *http.Request) (models.Session, error) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		return models.Session{}, apperrors.New(apperrors.CodeUnauthorized, "Session token required")
	}
	return v.Verify(token)
}

// RequireElector rejects requests without a valid elector session
func RequireElector(v SessionVerifier, next http.HandlerFunc) http.HandlerFunc {
	return requireRole(v, models.RoleElector, next)
}

// RequireAdmin rejects requests without a valid admin session
func RequireAdmin(v SessionVerifier, next http.HandlerFunc) http.HandlerFunc {
	return requireRole(v, models.RoleAdmin, next)
}

func requireRole(v SessionVerifier, role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := Authenticate(v, r)
		if err != nil {
			AppError(w, err)
			return
		}
		if s.Role != role {
			AppError(w, apperrors.New(apperrors.CodeForbidden, "Session is not allowed to use this endpoint"))
			return
		}
		if role == models.RoleElector && s.ElectorID == "" {
			AppError(w, apperrors.New(apperrors.CodeUnauthorized, "Session has no elector"))
			return
		}
		next(w, r.WithContext(WithSession(r.Context(), s)))
	}
}
