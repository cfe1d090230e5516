package exchange

import (
	"context"

	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

// Order is a market order request.
type Order struct {
	Symbol   string
	Side     common.Side
	Quantity fixed.Point
}

// Fill is what the counterparty reports back. Portfolio updates use these
// values, never the requested ones.
type Fill struct {
	OrderID  string
	Quantity fixed.Point
	Price    fixed.Point
	Fee      fixed.Point
}

// Client places orders against a real exchange.
type Client interface {
	PlaceMarketOrder(ctx context.Context, order Order) (Fill, error)
}
