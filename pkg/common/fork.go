package common

import (
	"time"

	"github.com/icarus-trading/icarus/pkg/utility"
)

// ForkConnection holds the parameters needed to connect to a provisioned
// database fork.
type ForkConnection struct {
	ServiceID string `json:"service_id"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Database  string `json:"database"`
	Username  string `json:"username"`
}

// ForkRequest asks the fork manager for an isolated database fork.
type ForkRequest struct {
	RequestingAgent string        `json:"requesting_agent"`
	Purpose         string        `json:"purpose,omitempty"`
	TTL             time.Duration `json:"ttl,omitempty"`

	Source      string              `json:"src,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

// ForkCreated announces a provisioned fork to the agent that requested it.
type ForkCreated struct {
	ForkID          string         `json:"fork_id"`
	RequestingAgent string         `json:"requesting_agent"`
	Connection      ForkConnection `json:"connection"`

	Source      string              `json:"src,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

// ForkCompleted signals that the requesting agent is done with its fork and
// the fork can be destroyed.
type ForkCompleted struct {
	ForkID          string `json:"fork_id"`
	RequestingAgent string `json:"requesting_agent"`
	Summary         string `json:"summary,omitempty"`

	Source      string              `json:"src,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}
