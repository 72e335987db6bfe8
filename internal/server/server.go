package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/parcelhub/internal/graphql"
	"github.com/tournevent/parcelhub/internal/telemetry"
	"github.com/tournevent/parcelhub/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// maxBodyBytes caps the size of a GraphQL request body.
const maxBodyBytes = 1 << 20

// Server is the HTTP server for the parcel API.
type Server struct {
	cfg      Config
	logger   *otelzap.Logger
	gatherer prometheus.Gatherer
	resolver *graphql.Resolver
	handler  http.Handler
}

// Config holds server configuration.
type Config struct {
	Port    int
	Version string
	// AllowedOrigins defaults to any origin when empty.
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// New creates a new server instance. Metrics are registered on a registry
// private to the server, so several servers can live in one process.
func New(cfg Config, registry *shipper.Registry, logger *otelzap.Logger) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(reg)

	resolver := graphql.NewResolver(registry, logger, metrics)
	resolver.Version = cfg.Version

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		gatherer: reg,
		resolver: resolver,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(s.cfg.AllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Post("/graphql", s.handleGraphQL)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	return otelhttp.NewHandler(r, "parcelhub",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, graphql.Response{
		Errors: gqlerror.List{{Message: "method not allowed, use POST"}},
	})
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	var req graphql.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, graphql.Response{
			Errors: gqlerror.List{{Message: "invalid JSON: " + err.Error()}},
		})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, graphql.Response{
			Errors: gqlerror.List{{Message: "query is required"}},
		})
		return
	}

	resp := s.resolver.Execute(r.Context(), req)

	// Without data the request never reached execution.
	status := http.StatusOK
	if resp.Data == nil {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, resp)
}

// requestLogger logs one line per request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Ctx(r.Context()).Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
