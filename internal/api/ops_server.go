package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"consultbot/internal/metrics"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const readyTimeout = 2 * time.Second

const (
	routeHealth  = "/healthz"
	routeReady   = "/readyz"
	routeMetrics = "/metrics"

	// otherEndpoint собирает все неизвестные пути в одну серию метрик
	otherEndpoint = "other"
)

// HealthChecker reports whether a dependency (the session store) is usable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OpsServer exposes liveness, readiness and Prometheus metrics.
type OpsServer struct {
	checker HealthChecker
	logger  *zerolog.Logger
	server  *http.Server
}

func NewOpsServer(port int, checker HealthChecker, gatherer prometheus.Gatherer, logger *zerolog.Logger) *OpsServer {
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	srv := &OpsServer{checker: checker, logger: logger}

	router := httprouter.New()
	router.GET(routeHealth, srv.handleHealth)
	router.GET(routeReady, srv.handleReady)
	router.Handler(http.MethodGet, routeMetrics, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           srv.loggingMiddleware(router),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler returns the root handler; used by tests with httptest.
func (s *OpsServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *OpsServer) Addr() string {
	return s.server.Addr
}

// Start blocks until the server stops. Shutdown is not an error.
func (s *OpsServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("ops server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("Ops HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *OpsServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *OpsServer) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *OpsServer) handleReady(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.checker == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.checker.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Session store health check failed")
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Store:  "error",
			Error:  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "ready", Store: "ok"})
}

func (s *OpsServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(endpointLabel(r.URL.Path), recorder.status)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("ops request")
	})
}

// endpointLabel maps a request path to a bounded set of metric labels.
func endpointLabel(path string) string {
	switch path {
	case routeHealth, routeReady, routeMetrics:
		return path
	default:
		return otherEndpoint
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
