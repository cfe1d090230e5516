package common

import (
	"time"

	"github.com/icarus-trading/icarus/pkg/utility"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

// Tick is a single market data update for one symbol. Bid and Ask are zero
// when the upstream feed only reports the last trade price.
type Tick struct {
	Price  fixed.Point `json:"price"`
	Volume fixed.Point `json:"volume"`
	Bid    fixed.Point `json:"bid,omitempty"`
	Ask    fixed.Point `json:"ask,omitempty"`

	Source      string              `json:"src,omitempty"`
	Symbol      string              `json:"symbol,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}
