// Package output delivers bus results to storage backends. Every backend
// follows the same loop: receive until the bus closes, persist each result,
// log and carry on when a write fails or the subscriber lagged. One bad
// write never halts the pipeline.
package output

import (
	"errors"

	"go.uber.org/zap"

	"github.com/probe-agent/internal/bus"
	"github.com/probe-agent/internal/digest"
	"github.com/probe-agent/internal/metrics"
	"github.com/probe-agent/pkg/logger"
)

// Output is the backend capability contract. Prepare is idempotent setup,
// called once before the output starts consuming. Run is the long-lived
// consume loop; it returns only when the bus is closed.
type Output interface {
	Name() string
	Prepare() error
	Run(sub *bus.Subscriber)
}

// consume drives an output's receive loop. Lag and close handling is
// identical across backends; only persist differs.
func consume(sub *bus.Subscriber, name string, persist func(digest.Result) error) {
	logger.Debug("output loop starting", zap.String("output", name))
	for {
		res, err := sub.Recv()
		if err != nil {
			var lag *bus.LagError
			if errors.As(err, &lag) {
				metrics.BusLagDrops.WithLabelValues(name).Add(float64(lag.Count))
				logger.Warn("output is lagging behind",
					zap.String("output", name), zap.Uint64("skipped", lag.Count))
				continue
			}
			logger.Debug("output loop ending, bus closed", zap.String("output", name))
			return
		}

		if err := persist(res); err != nil {
			metrics.SinkErrors.WithLabelValues(name).Inc()
			logger.Error("failed persisting result",
				zap.String("output", name),
				zap.String("item", res.Key),
				zap.Error(err))
			continue
		}
		metrics.SinkWrites.WithLabelValues(name).Inc()
	}
}
