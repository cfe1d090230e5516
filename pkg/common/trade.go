package common

import (
	"time"

	"github.com/icarus-trading/icarus/pkg/utility"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

type TradeMode string

const (
	TradeModePaper TradeMode = "paper"
	TradeModeLive  TradeMode = "live"
)

// Trade is an executed fill.
type Trade struct {
	Strategy string      `json:"strategy"`
	Side     Side        `json:"side"`
	Quantity fixed.Point `json:"quantity"`
	Price    fixed.Point `json:"price"`
	Fee      fixed.Point `json:"fee"`
	OrderID  string      `json:"order_id,omitempty"`
	Mode     TradeMode   `json:"mode"`

	Source      string              `json:"src,omitempty"`
	Symbol      string              `json:"symbol,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

// Value is the notional of the fill, excluding fee.
func (t Trade) Value() fixed.Point {
	return t.Quantity.Mul(t.Price)
}

// TradeError reports an order that could not be executed.
type TradeError struct {
	Strategy     string `json:"strategy"`
	Side         Side   `json:"side"`
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`

	Source      string              `json:"src,omitempty"`
	Symbol      string              `json:"symbol,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}
