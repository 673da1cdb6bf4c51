/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/classboard/internal/affirmation"
	"github.com/friendsincode/classboard/internal/api"
	"github.com/friendsincode/classboard/internal/audit"
	"github.com/friendsincode/classboard/internal/auth"
	"github.com/friendsincode/classboard/internal/backup"
	"github.com/friendsincode/classboard/internal/cache"
	"github.com/friendsincode/classboard/internal/clock"
	"github.com/friendsincode/classboard/internal/config"
	"github.com/friendsincode/classboard/internal/db"
	"github.com/friendsincode/classboard/internal/display"
	"github.com/friendsincode/classboard/internal/eventbus"
	"github.com/friendsincode/classboard/internal/leadership"
	"github.com/friendsincode/classboard/internal/settings"
	"github.com/friendsincode/classboard/internal/storage"
	"github.com/friendsincode/classboard/internal/telemetry"
	"github.com/friendsincode/classboard/internal/trains"
	"github.com/friendsincode/classboard/internal/upstream"
	"github.com/friendsincode/classboard/internal/version"
	"github.com/friendsincode/classboard/internal/weather"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db       *gorm.DB
	cache    *cache.Cache
	bus      *eventbus.NATSBus
	settings *settings.Service
	limiter  *auth.LoginLimiter
	monitor  *display.Monitor
	auditSvc *audit.Service
	backup   *backup.Service
	election *leadership.Election
	api      *api.API

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("classboard-api"))
	router.Use(telemetry.MetricsMiddleware)
	// The event stream is long-lived and must not be cut by the request timeout.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(30 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
	}

	if err := srv.initDependencies(); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		// WriteTimeout stays 0 for the websocket event stream; other routes
		// are bounded by the timeout middleware.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:; connect-src 'self' ws: wss:; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	ctx := context.Background()

	tp, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		ServiceName:    "classboard",
		ServiceVersion: version.Version,
		InstanceID:     s.cfg.InstanceID,
		OTLPEndpoint:   s.cfg.OTLPEndpoint,
		Enabled:        s.cfg.TracingEnabled,
		SampleRate:     s.cfg.TracingSampleRate,
	}, s.logger)
	if err != nil {
		s.logger.Warn().Err(err).Msg("tracing initialization failed, continuing without tracing")
	} else {
		s.DeferClose(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return tp.Shutdown(ctx)
		})
	}

	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })
	if err := db.Migrate(database); err != nil {
		return err
	}

	// Redis cache with in-memory fallback
	cacheCfg := cache.DefaultConfig()
	cacheCfg.Enabled = s.cfg.RedisEnabled
	cacheCfg.RedisAddr = s.cfg.RedisAddr
	cacheCfg.RedisPassword = s.cfg.RedisPassword
	cacheCfg.RedisDB = s.cfg.RedisDB
	s.cache = cache.New(cacheCfg, s.logger)
	s.DeferClose(func() error { return s.cache.Close() })

	// Event bus, fanned out over NATS when configured
	natsCfg := eventbus.DefaultNATSConfig()
	natsCfg.URL = s.cfg.NATSURL
	natsCfg.NodeID = s.cfg.InstanceID
	s.bus = eventbus.NewNATSBus(natsCfg, s.logger)
	s.DeferClose(func() error { return s.bus.Close() })
	instanceID := s.bus.NodeID()

	s.settings = settings.NewService(settings.NewGormStore(database), s.cache, s.bus, s.logger)
	seeded, err := s.settings.Seed(ctx)
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	if seeded > 0 {
		s.logger.Info().Int("count", seeded).Msg("default settings created")
	}

	authenticator, err := auth.NewAuthenticator(auth.Options{
		SigningKey:   s.cfg.JWTSigningKey,
		Password:     s.cfg.AdminPassword,
		PasswordHash: s.cfg.AdminPasswordHash,
		TTL:          s.cfg.SessionTTL,
		SecureCookie: s.cfg.CookieSecure,
	})
	if err != nil {
		return fmt.Errorf("initialize admin sessions: %w", err)
	}
	s.limiter = auth.NewLoginLimiter(s.cfg.LoginMaxFailures, s.cfg.LoginLockout)
	if s.cfg.TestbedAPIKey == "" {
		s.logger.Warn().Msg("CLASSBOARD_TESTBED_API_KEY not set; testbed-info endpoints are disabled")
	}

	loc := s.cfg.Location()
	weatherSvc, trainsSvc, affirmationSvc, err := s.initUpstreams(loc)
	if err != nil {
		return err
	}

	clk := clock.NewReal(loc)
	var affirmations display.AffirmationSource
	if affirmationSvc != nil {
		affirmations = affirmationSvc
	}
	composer := display.NewComposer(s.settings, affirmations, clk, s.logger)
	s.monitor = display.NewMonitor(s.settings, clk, s.bus, s.logger)

	s.auditSvc = audit.NewService(database, s.bus, instanceID, s.logger)

	store, err := s.initObjectStore(ctx)
	if err != nil {
		return err
	}
	s.backup = backup.NewService(s.settings, store, instanceID, s.logger)

	if s.cfg.LeaderElectionEnabled {
		election, err := leadership.NewElection(leadership.ElectionConfig{
			RedisAddr:     s.cfg.RedisAddr,
			RedisPassword: s.cfg.RedisPassword,
			RedisDB:       s.cfg.RedisDB,
			InstanceID:    instanceID,
		}, s.logger)
		if err != nil {
			return fmt.Errorf("create leader election: %w", err)
		}
		s.election = election
		s.backup.SetLeaderCheck(election.IsLeader)
		s.DeferClose(election.Stop)
	}

	s.api = api.New(api.Deps{
		DB:            database,
		Settings:      s.settings,
		Auth:          authenticator,
		Limiter:       s.limiter,
		TestbedAPIKey: s.cfg.TestbedAPIKey,
		Display:       composer,
		Weather:       weatherSvc,
		Trains:        trainsSvc,
		Affirmation:   affirmationSvc,
		Audit:         s.auditSvc,
		Backup:        s.backup,
		Bus:           s.bus,
	}, s.logger)

	return nil
}

// initUpstreams builds the proxy services. An empty base URL disables the
// corresponding service.
func (s *Server) initUpstreams(loc *time.Location) (*weather.Service, *trains.Service, *affirmation.Service, error) {
	newClient := func(name, baseURL string) (*upstream.Client, error) {
		if baseURL == "" {
			return nil, nil
		}
		return upstream.New(upstream.Options{
			Name:      name,
			BaseURL:   baseURL,
			UserAgent: s.cfg.UpstreamUserAgent,
			Timeout:   s.cfg.UpstreamTimeout,
		}, s.logger)
	}

	var (
		weatherSvc     *weather.Service
		trainsSvc      *trains.Service
		affirmationSvc *affirmation.Service
	)

	geocoder, err := newClient("geocoder", s.cfg.GeocoderURL)
	if err != nil {
		return nil, nil, nil, err
	}
	forecast, err := newClient("weather", s.cfg.WeatherURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if geocoder != nil && forecast != nil {
		weatherSvc = weather.NewService(geocoder, forecast, s.cache, s.logger)
	}

	departures, err := newClient("departures", s.cfg.DeparturesURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if departures != nil {
		trainsSvc = trains.NewService(departures, s.cache, loc, s.logger)
	}

	affirmations, err := newClient("affirmation", s.cfg.AffirmationURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if affirmations != nil {
		affirmationSvc = affirmation.NewService(affirmations, s.cache)
	}

	return weatherSvc, trainsSvc, affirmationSvc, nil
}

// initObjectStore selects S3 when a bucket is configured, the filesystem
// when a backup directory is, and nothing otherwise.
func (s *Server) initObjectStore(ctx context.Context) (storage.ObjectStore, error) {
	switch {
	case s.cfg.S3Bucket != "":
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          s.cfg.S3Bucket,
			Region:          s.cfg.S3Region,
			Endpoint:        s.cfg.S3Endpoint,
			AccessKeyID:     s.cfg.S3AccessKeyID,
			SecretAccessKey: s.cfg.S3SecretAccessKey,
			UsePathStyle:    s.cfg.S3UsePathStyle,
		}, s.logger)
		if err != nil {
			return nil, fmt.Errorf("initialize S3 backup storage: %w", err)
		}
		return store, nil
	case s.cfg.BackupDir != "":
		store, err := storage.NewFilesystemStore(s.cfg.BackupDir, s.logger)
		if err != nil {
			return nil, fmt.Errorf("initialize backup directory: %w", err)
		}
		return store, nil
	default:
		s.logger.Info().Msg("no backup storage configured; stored backups are disabled")
		return nil, nil
	}
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.goWorker(func() { s.settings.Start(ctx) })
	s.goWorker(func() { s.monitor.Run(ctx) })
	s.goWorker(func() { s.auditSvc.Start(ctx) })
	if s.election != nil {
		s.election.Start(ctx)
	}
	s.goWorker(func() { s.backup.Run(ctx, s.cfg.BackupInterval) })

	// Periodic housekeeping: pool metrics, expired cache entries, stale lockouts.
	s.goWorker(func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				db.UpdateConnectionMetrics(s.db)
				if n := s.cache.Sweep(); n > 0 {
					s.logger.Debug().Int("removed", n).Msg("expired cache entries swept")
				}
				s.limiter.Sweep()
			}
		}
	})
}

func (s *Server) goWorker(fn func()) {
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		fn()
	}()
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Handle("/metrics", telemetry.Handler())
	s.api.Routes(s.router)
}

// ListenAndServe serves HTTP until ctx is cancelled, then shuts down
// gracefully within grace.
func (s *Server) ListenAndServe(ctx context.Context, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Str("version", version.String()).Msg("classboard listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
