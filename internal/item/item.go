// Package item owns one configured collection unit: its data source, its
// digest mode and its recurring schedule. Every item runs its own goroutine
// and shares nothing with other items except the result bus.
package item

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/probe-agent/internal/bus"
	"github.com/probe-agent/internal/digest"
	"github.com/probe-agent/internal/metrics"
	"github.com/probe-agent/pkg/logger"
)

// Item is immutable after configuration load. Key is globally unique and
// prefixes every metric name derived from this item.
type Item struct {
	Key      string
	Interval time.Duration
	Env      map[string]string
	Source   Source
	Digester digest.Digester
}

// Run is the item's collection loop: wait one interval, execute the source,
// digest, publish, repeat until ctx is cancelled. Ticks never overlap; a
// slow execution delays later ticks but never duplicates them. A source
// failure is logged and skips the tick without publishing anything.
func (it Item) Run(ctx context.Context, shell string, b *bus.Bus) {
	logger.Debug("item loop starting",
		zap.String("item", it.Key), zap.Duration("interval", it.Interval))

	ticker := time.NewTicker(it.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Debug("item loop stopping", zap.String("item", it.Key))
			return
		case <-ticker.C:
			it.tick(b, shell)
		}
	}
}

func (it Item) tick(b *bus.Bus, shell string) {
	metrics.TicksTotal.WithLabelValues(it.Key).Inc()

	raw, err := Execute(it.Source, shell, it.Env)
	if err != nil {
		metrics.TickFailures.WithLabelValues(it.Key).Inc()
		logger.Error("item failed to produce a result",
			zap.String("item", it.Key),
			zap.String("source", it.Source.Describe()),
			zap.Error(err))
		return
	}

	b.Publish(it.Digester.Digest(raw, it.Key))
	metrics.ResultsPublished.Inc()
}
