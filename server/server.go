// Package server is the HTTP request interface of the meal analysis service.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/bububa/meal-agents/logging"
	"github.com/bububa/meal-agents/meal"
	"github.com/bububa/meal-agents/store"
)

// Service is what the HTTP handlers need from the service layer
type Service interface {
	Analyze(ctx context.Context, req meal.Request) (*meal.Run, error)
	Meals(ctx context.Context, limit int, offset int) ([]store.Record, int64, error)
	Meal(ctx context.Context, id string) (*store.Record, error)
	DeleteMeal(ctx context.Context, id string) error
	Image(ctx context.Context, id string) (io.ReadCloser, string, error)
	Stats() meal.StatsSnapshot
	Ping(ctx context.Context) error
}

const (
	defaultMaxUploadBytes = 10 << 20
	defaultListLimit      = 20
	maxListLimit          = 100
	shutdownTimeout       = 10 * time.Second
)

type Option func(*Server)

func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithMaxUploadBytes caps the size of an analyze request body
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		s.maxUploadBytes = n
	}
}

func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// Server routes HTTP requests to a Service
type Server struct {
	svc            Service
	allowedOrigins []string
	maxUploadBytes int64
	readTimeout    time.Duration
	writeTimeout   time.Duration
	version        string
	logger         *slog.Logger
	handler        http.Handler
}

func New(svc Service, opts ...Option) *Server {
	s := &Server{svc: svc}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = defaultMaxUploadBytes
	}
	if len(s.allowedOrigins) == 0 {
		s.allowedOrigins = []string{"*"}
	}
	if s.logger == nil {
		s.logger = logging.New("http")
	}
	if s.version == "" {
		s.version = "dev"
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.HandleFunc("/api/analyze", s.analyze).Methods(http.MethodPost)
	r.HandleFunc("/api/meals", s.listMeals).Methods(http.MethodGet)
	r.HandleFunc("/api/meals/{id}", s.getMeal).Methods(http.MethodGet)
	r.HandleFunc("/api/meals/{id}", s.deleteMeal).Methods(http.MethodDelete)
	r.HandleFunc("/api/meals/{id}/image", s.getMealImage).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", s.stats).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})

	c := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{runIDHeader},
	})
	return c.Handler(loggingMiddleware(s.logger, r))
}

// Handler returns the root handler with CORS and request logging
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("addr", addr), slog.String("version", s.version))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
