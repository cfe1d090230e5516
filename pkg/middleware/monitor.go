package middleware

import (
	"context"

	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/agent"
	"github.com/icarus-trading/icarus/pkg/bus"
)

type MonitorFlags uint16

const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorTicks
	MonitorSignals
	MonitorTrades
	MonitorAllocations
	MonitorAlerts
	MonitorForks
	MonitorAgents
)

// Monitor logs events passing through a handler. Which event classes get
// logged is controlled by the flag bitmask.
type Monitor struct {
	flags  MonitorFlags
	logger *zap.Logger
}

func NewMonitor(flags MonitorFlags, logger *zap.Logger) *Monitor {
	return &Monitor{flags: flags, logger: logger}
}

func (m *Monitor) Wrap(handler agent.Handler) agent.Handler {
	return func(ctx context.Context, ev bus.Event) error {
		if m.enabled(ev.Id) {
			m.logger.Info("event",
				zap.Stringer("id", ev.Id), zap.Any("data", ev.Data))
		}
		return handler(ctx, ev)
	}
}

func (m *Monitor) enabled(id bus.EventId) bool {
	if m.flags&MonitorAll != 0 {
		return true
	}
	return m.flags&flagFor(id) != 0
}

func flagFor(id bus.EventId) MonitorFlags {
	switch id {
	case bus.TickEvent:
		return MonitorTicks
	case bus.SignalEvent:
		return MonitorSignals
	case bus.TradeEvent, bus.TradeErrorEvent:
		return MonitorTrades
	case bus.AllocationEvent:
		return MonitorAllocations
	case bus.RiskAlertEvent, bus.EmergencyHaltEvent:
		return MonitorAlerts
	case bus.ForkRequestEvent, bus.ForkCreatedEvent, bus.ForkCompletedEvent:
		return MonitorForks
	case bus.AgentStartedEvent, bus.AgentStoppedEvent,
		bus.AgentErrorEvent, bus.AgentHeartbeatEvent:
		return MonitorAgents
	default:
		return MonitorNone
	}
}
