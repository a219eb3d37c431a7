// Package agent assembles the collection pipeline from configuration:
// one scheduler goroutine per item, the shared result bus, one consumer
// goroutine per output, and the telemetry server.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"go.uber.org/zap"

	"github.com/probe-agent/internal/bus"
	"github.com/probe-agent/internal/item"
	"github.com/probe-agent/internal/output"
	"github.com/probe-agent/internal/server"
	"github.com/probe-agent/pkg/config"
	"github.com/probe-agent/pkg/logger"
)

// Agent owns the lifecycle of every pipeline task.
type Agent struct {
	cfg     *config.Config
	bus     *bus.Bus
	items   []item.Item
	outputs []output.Output

	telemetry *server.HTTPServer
	cancel    context.CancelFunc
	itemWG    sync.WaitGroup
	outputWG  sync.WaitGroup
}

// New builds the pipeline from a validated configuration.
func New(cfg *config.Config) (*Agent, error) {
	items, err := buildItems(cfg.Items)
	if err != nil {
		return nil, err
	}
	outputs, err := buildOutputs(cfg.Outputs)
	if err != nil {
		return nil, err
	}
	a := &Agent{
		cfg:     cfg,
		bus:     bus.New(cfg.Bus.Capacity),
		items:   items,
		outputs: outputs,
	}
	if cfg.Telemetry.Enable {
		a.telemetry = server.New(cfg.Telemetry.Addr)
	}
	return a, nil
}

// Start prepares every output, subscribes them to the bus and launches all
// item and output goroutines. Outputs subscribe before the first item can
// tick, so no result is published without them registered.
func (a *Agent) Start() error {
	logHostInfo()

	for _, out := range a.outputs {
		if err := out.Prepare(); err != nil {
			return fmt.Errorf("prepare output %s: %w", out.Name(), err)
		}
		sub := a.bus.Subscribe()
		a.outputWG.Add(1)
		go func(out output.Output, sub *bus.Subscriber) {
			defer a.outputWG.Done()
			out.Run(sub)
		}(out, sub)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	for _, it := range a.items {
		a.itemWG.Add(1)
		go func(it item.Item) {
			defer a.itemWG.Done()
			it.Run(ctx, a.cfg.General.Shell, a.bus)
		}(it)
	}

	if a.telemetry != nil {
		a.telemetry.Start()
	}

	logger.Info("agent started",
		zap.Int("items", len(a.items)),
		zap.Int("outputs", len(a.outputs)),
		zap.String("shell", a.cfg.General.Shell))
	return nil
}

// Shutdown stops the item loops, closes the bus and waits for the outputs
// to drain whatever they have not yet persisted.
func (a *Agent) Shutdown() error {
	if a.cancel != nil {
		a.cancel()
	}
	a.itemWG.Wait()
	a.bus.Close()
	a.outputWG.Wait()

	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(); err != nil {
			return fmt.Errorf("shutdown telemetry server: %w", err)
		}
	}
	logger.Info("agent stopped")
	return nil
}

// logHostInfo records a host fingerprint once at startup so stored series
// can be traced back to the machine that produced them.
func logHostInfo() {
	info, err := host.Info()
	if err != nil {
		logger.Warn("could not read host info", zap.Error(err))
		return
	}
	logger.Info("collecting on host",
		zap.String("hostname", info.Hostname),
		zap.String("platform", info.Platform+" "+info.PlatformVersion),
		zap.String("kernel", info.KernelVersion),
		zap.Duration("uptime", time.Duration(info.Uptime)*time.Second))
}
