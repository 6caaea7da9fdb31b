// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/poiesic/rolodex/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

const (
	// DefaultTopK is used when a request does not set top_k.
	DefaultTopK = 3

	// DefaultRequestTimeout bounds a single request, generation included.
	DefaultRequestTimeout = 60 * time.Second

	shutdownTimeout = 10 * time.Second
)

// Retriever finds the records nearest to a query. *retrieval.Service
// satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]core.Record, error)
	Healthy() bool
}

// Responder answers a query in natural language. *chat.Service satisfies it.
type Responder interface {
	Respond(ctx context.Context, query string, k int) (string, error)
}

// Server serves the HTTP API.
type Server struct {
	retriever      Retriever
	responder      Responder
	gatherer       prometheus.Gatherer
	limiter        *rate.Limiter
	requestTimeout time.Duration
	logger         *slog.Logger
	handler        http.Handler
}

// Option configures a Server.
type Option func(*Server) error

// WithResponder enables POST /chat. Without it the endpoint answers 501.
func WithResponder(responder Responder) Option {
	return func(s *Server) error {
		s.responder = responder
		return nil
	}
}

// WithMetrics serves the metrics gathered by g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) error {
		s.gatherer = g
		return nil
	}
}

// WithRequestTimeout bounds the time spent on each request.
// Default is DefaultRequestTimeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) error {
		if d <= 0 {
			return fmt.Errorf("%w: request timeout must be positive", core.ErrInput)
		}
		s.requestTimeout = d
		return nil
	}
}

// WithRateLimit limits query endpoints to rps requests per second with the
// given burst. Requests over the limit get 429.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) error {
		if rps <= 0 {
			return fmt.Errorf("%w: rate limit must be positive", core.ErrInput)
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a server over retriever.
func New(retriever Retriever, opts ...Option) (*Server, error) {
	if core.IsNil(retriever) {
		return nil, ErrRetrieverRequired
	}

	s := &Server{
		retriever:      retriever,
		requestTimeout: DefaultRequestTimeout,
		logger:         slog.Default().With("component", "server"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.handler = s.routes()
	return s, nil
}

// Handler returns the HTTP handler for all endpoints.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", listener.Addr().String())
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /chat", s.limited(http.HandlerFunc(s.handleChat)))
	mux.Handle("GET /employees/search", s.limited(http.HandlerFunc(s.handleSearch)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return s.logged(mux)
}

// limited applies the rate limit and request timeout.
func (s *Server) limited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start).Round(time.Microsecond))
	})
}
