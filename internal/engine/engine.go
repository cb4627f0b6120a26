package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/btpcm/ioengine/internal/config"
	"github.com/btpcm/ioengine/internal/iopoll"
	"github.com/btpcm/ioengine/internal/pcmio"
	"github.com/btpcm/ioengine/internal/timeops"
)

// Engine is the audio thread: an epoll-backed poll facility, a timer
// wheel, a device registry, and the dependency bundle handed to every
// PcmDevice the factory constructs.
type Engine struct {
	Config   *config.Config
	Poller   *iopoll.EpollPoller
	Timers   iopoll.Timers
	Clock    timeops.Clock
	Registry *Registry
	Events   pcmio.EventSink
	Reconnect *Reconnector
	log      *zap.SugaredLogger
}

// New builds an Engine from a loaded configuration and logger.
func New(cfg *config.Config, log *zap.SugaredLogger) (*Engine, error) {
	poller, err := iopoll.NewEpollPoller(log)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return &Engine{
		Config:   cfg,
		Poller:   poller,
		Timers:   iopoll.RealTimers{},
		Clock:    timeops.RealClock{},
		Registry:  NewRegistry(),
		Events:    metricsEventSink{log: log},
		Reconnect: NewReconnector(log),
		log:       log,
	}, nil
}

// Deps returns the dependency bundle every PcmDevice the factory
// constructs through this engine should be built with.
func (e *Engine) Deps() pcmio.Deps {
	return pcmio.Deps{
		Poller:   e.Poller,
		Timers:   e.Timers,
		Clock:    e.Clock,
		Events:   e.Events,
		Log:      e.log,
		Registry: e.Registry,
	}
}

// Run drives the poll loop until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	return e.Poller.Run(ctx)
}

// Close releases the poller's descriptors.
func (e *Engine) Close() error {
	return e.Poller.Close()
}
