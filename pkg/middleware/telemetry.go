package middleware

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/agent"
	"github.com/icarus-trading/icarus/pkg/bus"
)

// Telemetry counts events flowing through wrapped handlers. Counters are
// atomic, handlers run on per-subscription goroutines.
type Telemetry struct {
	logger *zap.Logger

	tickEventCounter       atomic.Int64
	signalEventCounter     atomic.Int64
	tradeEventCounter      atomic.Int64
	tradeErrorEventCounter atomic.Int64
	allocationEventCounter atomic.Int64
	riskAlertEventCounter  atomic.Int64
	haltEventCounter       atomic.Int64
	forkEventCounter       atomic.Int64
	otherEventCounter      atomic.Int64
}

func NewTelemetry(logger *zap.Logger) *Telemetry {
	return &Telemetry{logger: logger}
}

func (t *Telemetry) Wrap(handler agent.Handler) agent.Handler {
	return func(ctx context.Context, ev bus.Event) error {
		t.counter(ev.Id).Add(1)
		return handler(ctx, ev)
	}
}

func (t *Telemetry) counter(id bus.EventId) *atomic.Int64 {
	switch id {
	case bus.TickEvent:
		return &t.tickEventCounter
	case bus.SignalEvent:
		return &t.signalEventCounter
	case bus.TradeEvent:
		return &t.tradeEventCounter
	case bus.TradeErrorEvent:
		return &t.tradeErrorEventCounter
	case bus.AllocationEvent:
		return &t.allocationEventCounter
	case bus.RiskAlertEvent:
		return &t.riskAlertEventCounter
	case bus.EmergencyHaltEvent:
		return &t.haltEventCounter
	case bus.ForkRequestEvent, bus.ForkCreatedEvent, bus.ForkCompletedEvent:
		return &t.forkEventCounter
	default:
		return &t.otherEventCounter
	}
}

func (t *Telemetry) PrintStatistics() {
	t.logger.Info("event statistics",
		zap.Int64("tick_events", t.tickEventCounter.Load()),
		zap.Int64("signal_events", t.signalEventCounter.Load()),
		zap.Int64("trade_events", t.tradeEventCounter.Load()),
		zap.Int64("trade_error_events", t.tradeErrorEventCounter.Load()),
		zap.Int64("allocation_events", t.allocationEventCounter.Load()),
		zap.Int64("risk_alert_events", t.riskAlertEventCounter.Load()),
		zap.Int64("halt_events", t.haltEventCounter.Load()),
		zap.Int64("fork_events", t.forkEventCounter.Load()))
}
