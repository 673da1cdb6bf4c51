/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/friendsincode/classboard/internal/events"
	"github.com/friendsincode/classboard/internal/telemetry"
)

type loginRequest struct {
	Password string `json:"password"`
}

// handleLogin checks the admin password and sets the session cookie.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	if ok, retry := a.limiter.Allow(ip); !ok {
		seconds := int(math.Ceil(retry.Seconds()))
		telemetry.LoginAttemptsTotal.WithLabelValues("locked").Inc()
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":      "too_many_attempts",
			"retryAfter": seconds,
		})
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if !a.auth.CheckPassword(req.Password) {
		locked := a.limiter.Fail(ip)
		telemetry.LoginAttemptsTotal.WithLabelValues("failed").Inc()
		a.logger.Warn().Str("ip", ip).Bool("locked", locked).Msg("admin login failed")
		a.bus.Publish(events.EventLoginFailed, events.Payload{"ip": ip, "user_agent": r.UserAgent()})
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	token, expires, err := a.auth.IssueSession()
	if err != nil {
		a.logger.Error().Err(err).Msg("issue session token")
		writeError(w, http.StatusInternalServerError, "session_failed")
		return
	}
	a.limiter.Reset(ip)
	a.auth.SetSessionCookie(w, token, expires)

	telemetry.LoginAttemptsTotal.WithLabelValues("ok").Inc()
	a.logger.Info().Str("ip", ip).Msg("admin logged in")
	a.bus.Publish(events.EventLogin, events.Payload{"ip": ip, "user_agent": r.UserAgent()})

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"expiresAt":     expires.UTC(),
	})
}

// handleSession reports whether the request carries a valid session.
func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": a.auth.Authenticated(r)})
}

// handleLogout clears the session cookie.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if a.auth.Authenticated(r) {
		a.bus.Publish(events.EventLogout, events.Payload{"ip": clientIP(r), "user_agent": r.UserAgent()})
	}
	a.auth.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
}
