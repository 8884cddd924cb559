// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs one line per request with method, path, status and duration_ms.

# CORS Middleware

Enable cross-origin requests for frontend access (github.com/rs/cors):

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

With no origins listed, the request origin is reflected. Headers
Content-Type, Authorization, X-Admin-Key and X-Voter-Token are allowed.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")
	middleware.ErrorCodeResponse(w, http.StatusUnprocessableEntity, models.CodeInsufficientCredits, "message")

Parse JSON request bodies (capped at 1 MiB):

	var req models.CreateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)

Only ever stored as a salted hash.
*/
package middleware
