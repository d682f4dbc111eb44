package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/obsq/internal/events"
	"github.com/mattjoyce/obsq/internal/journal"
	"github.com/mattjoyce/obsq/internal/queue"
)

// LineQueue is the part of the queue the HTTP front end needs.
type LineQueue interface {
	Push(item string) queue.Ticket
	Stats() queue.Stats
}

// JournalReader reads back recorded deliveries.
type JournalReader interface {
	Recent(ctx context.Context, queueName string, limit int) ([]journal.Entry, error)
	Count(ctx context.Context, queueName string) (int, error)
}

// Config holds API server configuration
type Config struct {
	Listen    string
	QueueName string
	// MaxItemBytes caps the body of POST /items.
	MaxItemBytes int64
}

// Server is an HTTP producer for a line queue.
type Server struct {
	config    Config
	queue     LineQueue
	events    *events.Hub
	journal   JournalReader
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a new API server instance
func New(config Config, q LineQueue, hub *events.Hub, logger *slog.Logger) *Server {
	if config.MaxItemBytes <= 0 {
		config.MaxItemBytes = 64 * 1024
	}
	if hub == nil {
		hub = events.NewHub(128)
	}
	return &Server{
		config:    config,
		queue:     q,
		events:    hub,
		logger:    logger.With("component", "api"),
		startedAt: time.Now(),
	}
}

// WithJournal enables GET /journal.
func (s *Server) WithJournal(j JournalReader) *Server {
	s.journal = j
	return s
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.setupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Post("/items", s.handlePush)
	r.Get("/stats", s.handleStats)
	r.Get("/events", s.handleEvents)
	r.Get("/events/stream", s.handleEventStream)
	r.Get("/journal", s.handleJournal)

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
