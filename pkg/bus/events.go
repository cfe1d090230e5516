package bus

type EventId uint8

const (
	TickEvent EventId = iota
	SignalEvent
	TradeEvent
	TradeErrorEvent
	AllocationEvent
	ForkRequestEvent
	ForkCreatedEvent
	ForkCompletedEvent
	RiskAlertEvent
	EmergencyHaltEvent
	AgentStartedEvent
	AgentStoppedEvent
	AgentErrorEvent
	AgentHeartbeatEvent
)

// Event is the envelope delivered to subscribers. Data holds the payload
// type matching Id, enforced on publish.
type Event struct {
	Id   EventId
	Data any
}

func (id EventId) String() string {
	switch id {
	case TickEvent:
		return "tick"
	case SignalEvent:
		return "signal"
	case TradeEvent:
		return "trade"
	case TradeErrorEvent:
		return "trade_error"
	case AllocationEvent:
		return "allocation"
	case ForkRequestEvent:
		return "fork_request"
	case ForkCreatedEvent:
		return "fork_created"
	case ForkCompletedEvent:
		return "fork_completed"
	case RiskAlertEvent:
		return "risk_alert"
	case EmergencyHaltEvent:
		return "emergency_halt"
	case AgentStartedEvent:
		return "agent_started"
	case AgentStoppedEvent:
		return "agent_stopped"
	case AgentErrorEvent:
		return "agent_error"
	case AgentHeartbeatEvent:
		return "agent_heartbeat"
	default:
		return "unknown"
	}
}
