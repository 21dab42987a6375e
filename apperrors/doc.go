// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package apperrors defines the error taxonomy shared by the vote core and
its transports.

Every failure the core can surface carries a Code. Transports translate
codes with Code.HTTPStatus and render Message and Metadata to clients;
the Cause chain stays server-side for logging.

	if apperrors.HasCode(err, apperrors.CodeQuotaExhausted) {
		// terminal for this elector and campaign
	}

Only CodeRetryable marks a request as safe to resubmit unchanged.
*/
package apperrors
