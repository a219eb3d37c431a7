// Package server exposes the agent's own telemetry over HTTP: a /metrics
// endpoint backed by the private prometheus registry and a /health probe.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/probe-agent/internal/metrics"
	"github.com/probe-agent/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// HTTPServer serves /metrics and /health on a single address.
type HTTPServer struct {
	server *http.Server
}

func New(addr string) *HTTPServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(logger.L()),
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return &HTTPServer{
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start serves in the background; listen errors other than a clean close
// are logged, not fatal, so a busy port never takes the pipeline down.
func (s *HTTPServer) Start() {
	logger.Info("telemetry server starting", zap.String("addr", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("telemetry server failed", zap.Error(err))
		}
	}()
}

// Shutdown drains in-flight requests with a bounded timeout.
func (s *HTTPServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
