// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth resolves request credentials into sessions and generates
identifiers.

# Sessions

Sessions are HS256 JWTs signed with SESSION_SECRET:

	sessions, err := auth.NewSessions(secret)
	token, err := sessions.Issue(models.RoleElector, electorID, 12*time.Hour)
	session, err := sessions.Verify(token)

Two roles exist: admin and elector. Elector tokens carry the elector id.
Verify rejects expired tokens, foreign issuers, and any algorithm other
than HS256. Whether an elector is still active is checked against the
store when a vote is cast, not here.

Tokens are read from "Authorization: Bearer <token>" or, for websocket
clients, the "token" query parameter:

	token := auth.TokenFromRequest(r)

# Identifiers

NewID returns a random UUID string.

# IP Hashing

Client IPs are hashed for ballot provenance:

	ipHash := auth.HashIP(clientIP, salt)

Returns the first 16 hex characters of HMAC-SHA256. The raw IP is never
stored.
*/
package auth
