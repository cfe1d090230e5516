package common

import (
	"time"

	"github.com/icarus-trading/icarus/pkg/utility"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Signal is a trade recommendation emitted by a strategy. Confidence is in
// [0, 1].
type Signal struct {
	Strategy   string            `json:"strategy"`
	Side       Side              `json:"side"`
	Confidence fixed.Point       `json:"confidence"`
	Reason     string            `json:"reason,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`

	Source      string              `json:"src,omitempty"`
	Symbol      string              `json:"symbol,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}
