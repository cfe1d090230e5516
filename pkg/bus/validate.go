package bus

import (
	"github.com/icarus-trading/icarus/pkg/common"
)

// validPayload reports whether data is the payload type registered for id.
func validPayload(id EventId, data any) bool {
	switch id {
	case TickEvent:
		_, ok := data.(common.Tick)
		return ok
	case SignalEvent:
		_, ok := data.(common.Signal)
		return ok
	case TradeEvent:
		_, ok := data.(common.Trade)
		return ok
	case TradeErrorEvent:
		_, ok := data.(common.TradeError)
		return ok
	case AllocationEvent:
		_, ok := data.(common.Allocation)
		return ok
	case ForkRequestEvent:
		_, ok := data.(common.ForkRequest)
		return ok
	case ForkCreatedEvent:
		_, ok := data.(common.ForkCreated)
		return ok
	case ForkCompletedEvent:
		_, ok := data.(common.ForkCompleted)
		return ok
	case RiskAlertEvent:
		_, ok := data.(common.RiskAlert)
		return ok
	case EmergencyHaltEvent:
		_, ok := data.(common.EmergencyHalt)
		return ok
	case AgentStartedEvent:
		_, ok := data.(common.AgentStarted)
		return ok
	case AgentStoppedEvent:
		_, ok := data.(common.AgentStopped)
		return ok
	case AgentErrorEvent:
		_, ok := data.(common.AgentError)
		return ok
	case AgentHeartbeatEvent:
		_, ok := data.(common.AgentHeartbeat)
		return ok
	default:
		return false
	}
}
