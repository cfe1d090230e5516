package datasource

import (
	"context"

	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/agent"
	"github.com/icarus-trading/icarus/pkg/bus"
	"github.com/icarus-trading/icarus/pkg/common"
)

// Source streams market ticks until ctx is cancelled or the data runs out.
type Source interface {
	Name() string
	Stream(ctx context.Context, emit func(common.Tick) error) error
}

// TickStore persists raw ticks. A nil store disables persistence.
type TickStore interface {
	InsertTick(ctx context.Context, t common.Tick) error
}

// Agent pumps a tick source onto the bus, persisting each tick as a side
// effect. Persistence failures are logged and do not interrupt the stream.
type Agent struct {
	runner *agent.Runner
	bus    *bus.Bus
	logger *zap.Logger
	source Source
	store  TickStore
}

func NewAgent(source Source, b *bus.Bus, store TickStore, logger *zap.Logger) *Agent {
	a := &Agent{
		bus:    b,
		logger: logger.With(zap.String("agent", "market-data"), zap.String("source", source.Name())),
		source: source,
		store:  store,
	}
	a.runner = &agent.Runner{
		AgentName: "market-data",
		Bus:       b,
		Logger:    logger,
		Start:     a.start,
	}
	return a
}

func (a *Agent) Name() string { return "market-data" }

func (a *Agent) Run(ctx context.Context) error { return a.runner.Run(ctx) }

func (a *Agent) start(ctx context.Context) error {
	return a.source.Stream(ctx, func(tick common.Tick) error {
		if a.store != nil {
			if err := a.store.InsertTick(ctx, tick); err != nil {
				a.logger.Warn("tick persistence failed", zap.Error(err))
			}
		}
		return a.bus.Publish(bus.TickEvent, tick)
	})
}
