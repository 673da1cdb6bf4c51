/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the dashboard's HTTP handlers.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/classboard/internal/affirmation"
	"github.com/friendsincode/classboard/internal/audit"
	"github.com/friendsincode/classboard/internal/auth"
	"github.com/friendsincode/classboard/internal/backup"
	"github.com/friendsincode/classboard/internal/display"
	"github.com/friendsincode/classboard/internal/events"
	"github.com/friendsincode/classboard/internal/settings"
	"github.com/friendsincode/classboard/internal/trains"
	"github.com/friendsincode/classboard/internal/version"
	"github.com/friendsincode/classboard/internal/weather"
)

// maxBodyBytes bounds JSON and YAML request bodies.
const maxBodyBytes = 1 << 20

// Deps are the services the API serves.
type Deps struct {
	DB            *gorm.DB
	Settings      *settings.Service
	Auth          *auth.Authenticator
	Limiter       *auth.LoginLimiter
	TestbedAPIKey string
	Display       *display.Composer
	Weather       *weather.Service
	Trains        *trains.Service
	Affirmation   *affirmation.Service
	Audit         *audit.Service
	Backup        *backup.Service
	Bus           events.Broker
}

// API exposes HTTP handlers.
type API struct {
	db            *gorm.DB
	settings      *settings.Service
	auth          *auth.Authenticator
	limiter       *auth.LoginLimiter
	testbedAPIKey string
	display       *display.Composer
	weather       *weather.Service
	trains        *trains.Service
	affirmation   *affirmation.Service
	auditSvc      *audit.Service
	backup        *backup.Service
	bus           events.Broker
	logger        zerolog.Logger
}

// New creates the API router wrapper.
func New(deps Deps, logger zerolog.Logger) *API {
	limiter := deps.Limiter
	if limiter == nil {
		limiter = auth.NewLoginLimiter(5, 15*time.Minute)
	}
	return &API{
		db:            deps.DB,
		settings:      deps.Settings,
		auth:          deps.Auth,
		limiter:       limiter,
		testbedAPIKey: deps.TestbedAPIKey,
		display:       deps.Display,
		weather:       deps.Weather,
		trains:        deps.Trains,
		affirmation:   deps.Affirmation,
		auditSvc:      deps.Audit,
		backup:        deps.Backup,
		bus:           deps.Bus,
		logger:        logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers all API routes on r.
func (a *API) Routes(r chi.Router) {
	r.Get("/healthz", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		// Public endpoints (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/", a.handleLogin)
			r.Get("/", a.handleSession)
			r.Delete("/", a.handleLogout)
		})
		r.Get("/display", a.handleDisplay)
		r.Get("/lesson", a.handleLesson)
		r.Get("/weather", a.handleWeather)
		r.Get("/departures", a.handleDepartures)
		r.Get("/affirmation", a.handleAffirmation)
		r.Get("/events", a.handleEvents)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.RequireAPIKey(a.testbedAPIKey))
			pr.Get("/testbed-info", a.handleTestbedInfo)
			pr.Post("/testbed-info", a.handleTestbedInfoFilter)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(a.auth.RequireAdmin)

			pr.Route("/settings", func(r chi.Router) {
				r.Get("/", a.handleSettingsList)
				r.Get("/definitions", a.handleSettingsDefinitions)
				r.Post("/import", a.handleSettingsImport)
				r.Get("/{key}", a.handleSettingsGet)
				r.Put("/{key}", a.handleSettingsPut)
			})
			pr.Patch("/testbeds/{testbedID}", a.handleTestbedPatch)
			pr.Get("/audit", a.handleAuditList)

			pr.Route("/backup", func(r chi.Router) {
				r.Get("/export", a.handleBackupExport)
				r.Post("/import", a.handleBackupImport)
				r.Get("/", a.handleBackupList)
				r.Post("/", a.handleBackupCreate)
				r.Post("/restore", a.handleBackupRestore)
			})
		})
	})

	// Paths served by the first dashboard release.
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth", a.handleLogin)
		r.Get("/auth", a.handleSession)
		r.Delete("/auth", a.handleLogout)
		r.With(auth.RequireAPIKey(a.testbedAPIKey)).Get("/testbed-info", a.handleTestbedInfo)
		r.With(auth.RequireAPIKey(a.testbedAPIKey)).Post("/testbed-info", a.handleTestbedInfoFilter)
		r.With(a.auth.RequireAdmin).Get("/getSettings", a.handleSettingsList)
		r.With(a.auth.RequireAdmin).Post("/updateSetting", a.handleLegacyUpdateSetting)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	db := "ok"
	if a.db != nil {
		sqlDB, err := a.db.DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			a.logger.Warn().Err(err).Msg("health check: database unreachable")
			status = http.StatusServiceUnavailable
			db = "unavailable"
		}
	}
	writeJSON(w, status, map[string]any{
		"status":   http.StatusText(status),
		"database": db,
		"version":  version.Version,
		"time":     time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func writeErrorDetail(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, map[string]string{"error": code, "detail": err.Error()})
}

// decodeJSON reads a bounded JSON body into dest.
func decodeJSON(r *http.Request, dest any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return err
	}
	return nil
}

// actor extracts request info for audit logging.
func actor(r *http.Request) settings.Actor {
	return settings.Actor{IP: clientIP(r), UserAgent: r.UserAgent()}
}

// clientIP returns the request's remote IP without port. RealIP middleware
// has already applied forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
