package common

import (
	"time"

	"github.com/icarus-trading/icarus/pkg/utility"
)

// AgentStarted is posted once when an agent begins running.
type AgentStarted struct {
	AgentName string `json:"agent_name"`

	Source      string              `json:"src,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

// AgentStopped is posted exactly once when an agent shuts down, regardless of
// whether it stopped cleanly or failed.
type AgentStopped struct {
	AgentName string `json:"agent_name"`
	Reason    string `json:"reason,omitempty"`

	Source      string              `json:"src,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

// AgentError reports a failure inside an agent. Fatal errors are followed by
// AgentStopped.
type AgentError struct {
	AgentName    string `json:"agent_name"`
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
	Fatal        bool   `json:"fatal"`

	Source      string              `json:"src,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

// AgentHeartbeat is posted periodically while an agent is alive.
type AgentHeartbeat struct {
	AgentName string `json:"agent_name"`
	Status    string `json:"status,omitempty"`

	Source      string              `json:"src,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}
