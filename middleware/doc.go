// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status, duration_ms).

# Session Guards

Elector and admin routes require a session token, sent as
"Authorization: Bearer <token>" or, for websocket clients, "?token=<token>":

	mux.HandleFunc("POST /votes", middleware.RequireElector(sessions, h.CastVote))
	mux.HandleFunc("POST /admin/campaigns", middleware.RequireAdmin(sessions, h.Create))

The guard stores the verified session in the request context:

	s, _ := middleware.SessionFrom(r.Context())

# CORS Middleware

Enable cross-origin requests for frontend access:

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, PUT, DELETE, OPTIONS with headers
Content-Type, Authorization.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Coded errors from the service layer carry their own status:

	if err != nil {
		middleware.AppError(w, err)
		return
	}

Parse JSON request bodies:

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)

Used for the hashed provenance stored with each ballot.
*/
package middleware
