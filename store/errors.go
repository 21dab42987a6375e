// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"

	"github.com/danielhkuo/quota-vote/apperrors"
)

// ToAppError converts a store failure into the client-facing taxonomy.
// Domain errors pass through unchanged; notFound names the missing thing.
func ToAppError(err error, notFound string) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return apperrors.Wrap(apperrors.CodeNotFound, notFound+" not found", err)
	case errors.Is(err, ErrWriteConflict),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return apperrors.Wrap(apperrors.CodeRetryable, "Concurrent update, try again", err)
	case errors.Is(err, ErrConstraint):
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "Request conflicts with existing data", err)
	default:
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "Store unavailable", err)
	}
}
