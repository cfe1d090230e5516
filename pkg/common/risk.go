package common

import (
	"time"

	"github.com/icarus-trading/icarus/pkg/utility"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert types published by the risk monitor.
const (
	AlertDailyLoss    = "daily_loss"
	AlertPositionSize = "position_size"
	AlertExposure     = "exposure"
	AlertDrawdown     = "strategy_drawdown"
	AlertHaltLifted   = "halt_lifted"
)

// RiskAlert reports a risk limit that is breached or close to being breached.
type RiskAlert struct {
	AlertType string            `json:"alert_type"`
	Severity  Severity          `json:"severity"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`

	Source      string              `json:"src,omitempty"`
	Symbol      string              `json:"symbol,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

// EmergencyHalt orders all trading to stop immediately. Execution agents
// reject new orders until the halt is lifted.
type EmergencyHalt struct {
	Reason      string `json:"reason"`
	TriggeredBy string `json:"triggered_by"`

	Source      string              `json:"src,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}
