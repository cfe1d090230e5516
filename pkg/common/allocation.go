package common

import (
	"time"

	"github.com/icarus-trading/icarus/pkg/utility"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

// Allocation assigns each strategy a percentage of the total capital. The
// percentages sum to 100.
type Allocation struct {
	Allocations map[string]fixed.Point `json:"allocations"`
	Reason      string                 `json:"reason,omitempty"`

	Source      string              `json:"src,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}
