// Package server provides the HTTP server and routing for tradescope.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"tradescope/internal/config"
	"tradescope/internal/database"
	"tradescope/internal/events"
	"tradescope/internal/modules/analytics"
	analyticshandlers "tradescope/internal/modules/analytics/handlers"
	"tradescope/internal/modules/importer"
	importerhandlers "tradescope/internal/modules/importer/handlers"
	"tradescope/internal/modules/session"
	"tradescope/internal/modules/summary"
	summaryhandlers "tradescope/internal/modules/summary/handlers"
	"tradescope/internal/modules/symbols"
	symbolshandlers "tradescope/internal/modules/symbols/handlers"
	"tradescope/internal/modules/timeline"
	timelinehandlers "tradescope/internal/modules/timeline/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	JournalDB *database.DB

	SessionManager   *session.Manager
	EventManager     *events.Manager
	ImportService    *importer.Service
	AnalyticsService *analytics.Service
	SummaryService   *summary.Service
	SymbolsService   *symbols.Service
	TimelineService  *timeline.Service
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	journalDB      *database.DB
	systemHandlers *SystemHandlers
	eventStream    *EventStream
	deps           Config
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		journalDB: cfg.JournalDB,
		deps:      cfg,
	}

	s.systemHandlers = NewSystemHandlers(cfg.Log, cfg.Config.DataDir, cfg.JournalDB, cfg.SessionManager)
	s.eventStream = NewEventStream(cfg.EventManager, cfg.Log)

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes wires every handler group under /api
func (s *Server) setupRoutes() {
	defaultFilter, err := importer.ParseFilter(s.cfg.ImportFilter)
	if err != nil {
		defaultFilter = importer.FilterAll
	}

	importerHandler := importerhandlers.NewHandler(s.deps.ImportService, s.deps.SessionManager, defaultFilter, s.log)
	analyticsHandler := analyticshandlers.NewHandler(s.deps.AnalyticsService, s.deps.SessionManager, s.log)
	summaryHandler := summaryhandlers.NewHandler(s.deps.SummaryService, s.deps.SessionManager, s.log)
	symbolsHandler := symbolshandlers.NewHandler(s.deps.SymbolsService, s.deps.SessionManager, s.log)
	timelineHandler := timelinehandlers.NewHandler(s.deps.TimelineService, s.deps.SessionManager, s.log)

	s.router.Route("/api", func(r chi.Router) {
		importerHandler.RegisterRoutes(r)
		analyticsHandler.RegisterRoutes(r)
		summaryHandler.RegisterRoutes(r)
		symbolsHandler.RegisterRoutes(r)
		timelineHandler.RegisterRoutes(r)

		r.Get("/health", s.systemHandlers.HandleHealth)
		r.Get("/system/info", s.systemHandlers.HandleSystemInfo)
		r.Get("/events/ws", s.eventStream.HandleWebSocket)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	s.eventStream.Close()
	return s.server.Shutdown(ctx)
}

// Router exposes the router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
