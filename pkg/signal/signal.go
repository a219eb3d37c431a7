// Package signal blocks the main goroutine until the process receives a
// termination signal, then runs the shutdown callback with a deadline.
package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/probe-agent/pkg/logger"
)

const shutdownGrace = 10 * time.Second

// WaitForShutdown waits for SIGINT or SIGTERM, then invokes shutdownFunc.
// If the callback has not returned within the grace period the process
// exits anyway; abandoned work is acceptable because every write is either
// fully persisted or not at all.
func WaitForShutdown(shutdownFunc func() error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	go func() {
		defer cancel()
		if err := shutdownFunc(); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown completed")
}
