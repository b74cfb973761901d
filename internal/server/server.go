package server

import (
	"context"
	"log"
	"net/http"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/micro-nova/amplipi-hub/internal/amplipi"
	"github.com/micro-nova/amplipi-hub/internal/api"
	"github.com/micro-nova/amplipi-hub/internal/assets"
	"github.com/micro-nova/amplipi-hub/internal/audit"
	"github.com/micro-nova/amplipi-hub/internal/auth"
	"github.com/micro-nova/amplipi-hub/internal/config"
	"github.com/micro-nova/amplipi-hub/internal/db"
	"github.com/micro-nova/amplipi-hub/internal/mediasource"
	"github.com/micro-nova/amplipi-hub/internal/players"
	"github.com/micro-nova/amplipi-hub/internal/poller"
	"github.com/micro-nova/amplipi-hub/internal/registry"
	"github.com/micro-nova/amplipi-hub/internal/system"
	"github.com/micro-nova/amplipi-hub/internal/ws"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLoggerMiddleware logs all incoming HTTP requests
func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, wrapped.status, time.Since(start).Round(time.Millisecond))
	})
}

// Options controls server wiring.
type Options struct {
	// DisablePoller keeps the poll schedule stopped (for tests).
	DisablePoller bool
}

// NewHandler builds the HTTP handler and returns a shutdown function.
func NewHandler(cfg config.Config, options Options) (http.Handler, func(context.Context) error, error) {
	if err := players.ValidateCommandTables(); err != nil {
		return nil, nil, err
	}

	log.Printf("Using database: %s", cfg.SQLiteDBPath)
	dbPair, err := db.Init(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, err
	}

	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)
	router.Use(requestLoggerMiddleware)
	router.Use(api.RequestIDMiddleware)
	router.Use(api.RecovererMiddleware)
	router.Use(auth.Middleware(cfg))

	registerHealthRoutes(router)
	auth.RegisterRoutes(router, cfg)

	auditService := audit.NewService(dbPair, cfg.AuditRetentionDays, nil)
	audit.RegisterRoutes(router, auditService)
	auditService.StartPruneJob()

	mediaRepo := mediasource.NewRepository(dbPair)
	mediasource.RegisterRoutes(router, mediaRepo, auditService)
	resolver := mediasource.NewResolver(mediaRepo)

	client := amplipi.NewClient(cfg.AmpliPiBaseURL(), time.Duration(cfg.AmpliPiTimeoutMs)*time.Millisecond)

	entityRegistry := registry.New(client, resolver, registry.NewRepository(dbPair), auditService, cfg.WebAppURL, nil)
	bootstrapCtx, cancelBootstrap := context.WithTimeout(context.Background(), 30*time.Second)
	if err := entityRegistry.Bootstrap(bootstrapCtx); err != nil {
		// The controller may simply be offline; the poller keeps retrying
		// and fills the registry in once it answers.
		log.Printf("bootstrap deferred: %v", err)
	}
	cancelBootstrap()
	players.RegisterRoutes(router, entityRegistry, auditService)

	stateHub := ws.NewHub(nil)
	ws.RegisterRoutes(router, stateHub)

	pollRunner := poller.NewRunner(entityRegistry, stateHub, auditService, cfg.PollSchedule, nil)
	if !options.DisablePoller {
		if err := pollRunner.Start(); err != nil {
			dbPair.Close()
			return nil, nil, err
		}
	}

	installer := assets.NewInstaller(cfg.AssetInstallDir, cfg.Vendor, system.Version, nil)
	if err := installer.Install(); err != nil {
		log.Printf("asset install: %v", err)
	}
	router.Handle("/v1/assets/*", http.StripPrefix("/v1/assets/", http.FileServer(http.Dir(cfg.AssetInstallDir))))

	systemService := system.NewService(cfg, dbPair, pollRunner, stateHub.ClientCount, nil)
	system.RegisterRoutes(router, systemService)

	auditService.RecordEvent(audit.WriteEventInput{
		Type:    audit.EventSystemStartup,
		Message: "amplipi-hub started",
		Payload: map[string]any{"version": system.Version},
	})

	shutdown := func(ctx context.Context) error {
		pollRunner.Stop()
		stateHub.Close()
		auditService.StopPruneJob()
		return dbPair.Close()
	}

	return router, shutdown, nil
}

func registerHealthRoutes(router chi.Router) {
	router.Method(http.MethodGet, "/v1/health", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		response := map[string]any{
			"status":    "healthy",
			"service":   "amplipi-hub",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		return api.WriteJSON(w, http.StatusOK, response)
	}))
	router.Method(http.MethodGet, "/v1/health/live", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}))
	router.Method(http.MethodGet, "/v1/health/ready", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	}))
}
