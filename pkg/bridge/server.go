// Package bridge exposes a channel.Messenger across process boundaries over
// HTTP and line-delimited stdio frames, and provides the HTTP client side.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/polisai/polis-flavor/pkg/channel"
	"github.com/polisai/polis-flavor/pkg/domain"
)

// Server is the HTTP bridge
type Server struct {
	config     *ServerConfig
	messenger  *channel.Messenger
	logger     *slog.Logger
	structured *StructuredLogger
	metrics    *Metrics
	dispatch   *dispatcher
	handler    http.Handler

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	stopOnce   sync.Once
}

// ChannelInfo describes a routable channel name in GET /channels
type ChannelInfo struct {
	Name     string   `json:"name"`
	Endpoint string   `json:"endpoint"`
	Methods  []string `json:"methods"`
}

// NewServer creates an HTTP bridge for messenger
func NewServer(config *ServerConfig, messenger *channel.Messenger, logger *slog.Logger) *Server {
	config = config.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:     config,
		messenger:  messenger,
		logger:     logger,
		structured: NewStructuredLogger(logger),
	}

	if config.Metrics != nil && config.Metrics.Enabled {
		s.metrics = NewMetrics()
	}
	s.dispatch = newDispatcher(messenger, s.metrics, logger)
	s.handler = otelhttp.NewHandler(s.routes(), config.ServiceName,
		otelhttp.WithFilter(shouldTrace),
		otelhttp.WithSpanNameFormatter(spanName),
	)

	return s
}

// Handler returns the instrumented router
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Metrics returns the server metrics, or nil when disabled
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Addr returns the bound listen address once Start is serving
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start serves until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddr, err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", "addr", listener.Addr().String())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping HTTP bridge")

		s.mu.Lock()
		srv := s.httpServer
		s.mu.Unlock()

		if srv != nil {
			if stopErr := srv.Shutdown(ctx); stopErr != nil {
				s.logger.Error("Failed to shut down HTTP server", "error", stopErr)
				err = stopErr
			}
		}
	})
	return err
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)
	if s.metrics != nil {
		r.Use(s.metrics.MetricsMiddleware)
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/channels", s.handleChannels)
	// Channel names contain slashes; clients may send them escaped or not.
	r.Post("/channels/*", s.handleCall)

	if s.metrics != nil {
		r.Method(http.MethodGet, s.config.Metrics.Path, s.metrics.Handler())
	}
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.structured.LogHTTPRequest(r.Context(), r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
	})
}

// handleHealth handles GET /healthz requests
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChannels handles GET /channels requests
func (s *Server) handleChannels(w http.ResponseWriter, _ *http.Request) {
	names := s.messenger.Channels()
	infos := make([]ChannelInfo, 0, len(names))
	for _, name := range names {
		e, ok := s.messenger.Endpoint(name)
		if !ok {
			continue
		}
		infos = append(infos, ChannelInfo{Name: name, Endpoint: e.Name(), Methods: e.Methods()})
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleCall handles POST /channels/{channel} requests
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || name == "" {
		http.Error(w, "invalid channel name", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxMessageBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "message too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read message", http.StatusBadRequest)
		return
	}

	out, err := s.dispatch.exchange(r.Context(), name, body)
	switch {
	case errors.Is(err, domain.ErrChannelNotFound):
		w.WriteHeader(http.StatusNotFound)
		return
	case errors.Is(err, domain.ErrMalformedCall):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		s.logger.Error("Channel dispatch failed", "channel", name, "error", err)
		http.Error(w, "dispatch failed", http.StatusInternalServerError)
		return
	}

	if len(out) > 0 {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// shouldTrace skips health and metrics endpoints.
func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/metrics":
		return false
	}
	return true
}

// spanName runs before routing, so the channel route is matched by prefix.
func spanName(_ string, r *http.Request) string {
	if strings.HasPrefix(r.URL.Path, "/channels/") {
		return r.Method + " /channels/{channel}"
	}
	return r.Method + " " + r.URL.Path
}
