package execution

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/agent"
	"github.com/icarus-trading/icarus/pkg/bus"
	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/exchange"
	"github.com/icarus-trading/icarus/pkg/utility"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

// Store is the persistence surface the agent needs. A nil store disables
// persistence, which keeps paper runs usable without a database.
type Store interface {
	InsertTrade(ctx context.Context, t common.Trade) error
	StrategyTradesSince(ctx context.Context, strategy string, since time.Time) ([]common.Trade, error)
	InsertMetrics(ctx context.Context, m common.StrategyMetrics) error
}

type Config struct {
	Mode                common.TradeMode
	InitialCapital      fixed.Point
	PositionSizePct     fixed.Point
	ExitPct             fixed.Point
	FeePct              fixed.Point
	SlippagePct         fixed.Point
	MinNotional         fixed.Point
	DustThreshold       fixed.Point
	PerformanceInterval time.Duration
}

// Agent fills trading signals. Paper mode computes synthetic fills from the
// last seen price with fee and slippage applied; live mode routes through
// the exchange client and only applies reported fills.
type Agent struct {
	runner   *agent.Runner
	bus      *bus.Bus
	logger   *zap.Logger
	cfg      Config
	store    Store
	exchange exchange.Client

	mu          sync.Mutex
	portfolios  map[string]*Portfolio
	prices      map[string]fixed.Point
	allocations map[string]fixed.Point
	halted      bool
}

func NewAgent(cfg Config, b *bus.Bus, store Store, ex exchange.Client, logger *zap.Logger) *Agent {
	a := &Agent{
		bus:         b,
		logger:      logger.With(zap.String("agent", "execution")),
		cfg:         cfg,
		store:       store,
		exchange:    ex,
		portfolios:  make(map[string]*Portfolio),
		prices:      make(map[string]fixed.Point),
		allocations: make(map[string]fixed.Point),
	}
	a.runner = &agent.Runner{
		AgentName: "execution",
		Bus:       b,
		Logger:    logger,
		Start:     a.start,
	}
	return a
}

func (a *Agent) Name() string { return "execution" }

func (a *Agent) Run(ctx context.Context) error { return a.runner.Run(ctx) }

func (a *Agent) start(ctx context.Context) error {
	consumer := agent.NewConsumer(a.bus, a.logger)
	consumer.On(bus.SignalEvent, a.onSignal)
	consumer.On(bus.TickEvent, a.onTick)
	consumer.On(bus.AllocationEvent, a.onAllocation)
	consumer.On(bus.EmergencyHaltEvent, a.onHalt)
	consumer.On(bus.RiskAlertEvent, a.onRiskAlert)

	if a.cfg.PerformanceInterval > 0 && a.store != nil {
		go func() {
			_ = agent.Periodic(ctx, a.cfg.PerformanceInterval, a.logger, a.trackPerformance)
		}()
	}

	return consumer.Run(ctx)
}

func (a *Agent) onTick(ctx context.Context, ev bus.Event) error {
	tick := ev.Data.(common.Tick)
	a.mu.Lock()
	a.prices[tick.Symbol] = tick.Price
	a.mu.Unlock()
	return nil
}

func (a *Agent) onAllocation(ctx context.Context, ev bus.Event) error {
	allocation := ev.Data.(common.Allocation)
	a.mu.Lock()
	a.allocations = allocation.Allocations
	a.mu.Unlock()
	a.logger.Info("allocations updated", zap.Int("strategies", len(allocation.Allocations)))
	return nil
}

func (a *Agent) onHalt(ctx context.Context, ev bus.Event) error {
	halt := ev.Data.(common.EmergencyHalt)
	a.mu.Lock()
	a.halted = true
	a.mu.Unlock()
	a.logger.Error("trading halted", zap.String("reason", halt.Reason))
	return nil
}

func (a *Agent) onRiskAlert(ctx context.Context, ev bus.Event) error {
	alert := ev.Data.(common.RiskAlert)
	if alert.AlertType != common.AlertHaltLifted {
		return nil
	}
	a.mu.Lock()
	a.halted = false
	a.mu.Unlock()
	a.logger.Info("trading halt lifted")
	return nil
}

func (a *Agent) onSignal(ctx context.Context, ev bus.Event) error {
	signal := ev.Data.(common.Signal)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.halted {
		a.logger.Warn("signal rejected while halted",
			zap.String("strategy", signal.Strategy), zap.String("side", string(signal.Side)))
		return nil
	}

	allocation := a.allocations[signal.Strategy]
	if allocation.IsZero() {
		a.logger.Debug("strategy has no allocation, skipping",
			zap.String("strategy", signal.Strategy))
		return nil
	}

	portfolio, ok := a.portfolios[signal.Strategy]
	if !ok {
		portfolio = newPortfolio(a.cfg.InitialCapital.Mul(allocation.Pct()))
		a.portfolios[signal.Strategy] = portfolio
		a.logger.Info("portfolio initialized",
			zap.String("strategy", signal.Strategy),
			zap.String("cash", portfolio.Cash.String()))
	}

	switch signal.Side {
	case common.SideBuy:
		return a.executeBuy(ctx, signal, portfolio, allocation)
	case common.SideSell:
		return a.executeSell(ctx, signal, portfolio)
	default:
		return nil
	}
}

func (a *Agent) executeBuy(ctx context.Context, signal common.Signal, portfolio *Portfolio, allocation fixed.Point) error {
	allocated := a.cfg.InitialCapital.Mul(allocation.Pct())
	// The cash cap reserves room for the fee, so notional plus fee never
	// exceeds cash. Truncation keeps division rounding on the safe side.
	capped := portfolio.Cash.Div(fixed.One.Add(a.cfg.FeePct.Pct())).Trunc(8)
	spend := fixed.Min(allocated.Mul(a.cfg.PositionSizePct.Pct()), capped)
	if spend.Lt(a.cfg.MinNotional) {
		a.logger.Warn("buy below minimum notional",
			zap.String("strategy", signal.Strategy),
			zap.String("cash", portfolio.Cash.String()))
		return nil
	}

	price, ok := a.prices[signal.Symbol]
	if !ok {
		a.logger.Warn("no price for symbol", zap.String("symbol", signal.Symbol))
		return nil
	}

	if a.cfg.Mode == common.TradeModeLive {
		fillPrice := price.Mul(fixed.One.Add(a.cfg.SlippagePct.Pct()))
		return a.executeLive(ctx, signal, spend.Div(fillPrice))
	}

	// Buys fill above market by the slippage percentage.
	fillPrice := price.Mul(fixed.One.Add(a.cfg.SlippagePct.Pct()))
	quantity := spend.Div(fillPrice)
	fee := quantity.Mul(fillPrice).Mul(a.cfg.FeePct.Pct())

	portfolio.Cash = portfolio.Cash.Sub(quantity.Mul(fillPrice)).Sub(fee)
	portfolio.Positions[signal.Symbol] = portfolio.Positions[signal.Symbol].Add(quantity)

	a.commit(ctx, signal, common.SideBuy, quantity, fillPrice, fee, "")
	a.logger.Info("buy executed",
		zap.String("strategy", signal.Strategy),
		zap.String("symbol", signal.Symbol),
		zap.String("quantity", quantity.String()),
		zap.String("price", fillPrice.String()),
		zap.String("cash", portfolio.Cash.String()))
	return nil
}

func (a *Agent) executeSell(ctx context.Context, signal common.Signal, portfolio *Portfolio) error {
	held := portfolio.Positions[signal.Symbol]
	if !held.IsPos() {
		a.logger.Debug("no position to sell", zap.String("symbol", signal.Symbol))
		return nil
	}

	price, ok := a.prices[signal.Symbol]
	if !ok {
		a.logger.Warn("no price for symbol", zap.String("symbol", signal.Symbol))
		return nil
	}

	quantity := held.Mul(a.cfg.ExitPct.Pct())

	if a.cfg.Mode == common.TradeModeLive {
		return a.executeLive(ctx, signal, quantity)
	}

	// Sells fill below market by the slippage percentage.
	fillPrice := price.Mul(fixed.One.Sub(a.cfg.SlippagePct.Pct()))
	fee := quantity.Mul(fillPrice).Mul(a.cfg.FeePct.Pct())

	portfolio.Cash = portfolio.Cash.Add(quantity.Mul(fillPrice)).Sub(fee)
	a.reducePosition(portfolio, signal.Symbol, quantity)

	a.commit(ctx, signal, common.SideSell, quantity, fillPrice, fee, "")
	a.logger.Info("sell executed",
		zap.String("strategy", signal.Strategy),
		zap.String("symbol", signal.Symbol),
		zap.String("quantity", quantity.String()),
		zap.String("price", fillPrice.String()),
		zap.String("cash", portfolio.Cash.String()))
	return nil
}

// executeLive routes through the exchange and applies only the reported
// fill. Nothing is mutated before the exchange confirms. The portfolio lock
// is released for the duration of the exchange call so tick and allocation
// handlers keep running while the order is in flight; it is re-acquired
// before the fill is applied.
func (a *Agent) executeLive(ctx context.Context, signal common.Signal, quantity fixed.Point) error {
	a.mu.Unlock()
	fill, err := a.exchange.PlaceMarketOrder(ctx, exchange.Order{
		Symbol:   signal.Symbol,
		Side:     signal.Side,
		Quantity: quantity,
	})
	a.mu.Lock()
	if err != nil {
		a.logger.Error("exchange order failed",
			zap.String("strategy", signal.Strategy), zap.Error(err))
		return a.bus.Publish(bus.TradeErrorEvent, common.TradeError{
			Strategy:     signal.Strategy,
			Side:         signal.Side,
			ErrorType:    "exchange",
			ErrorMessage: err.Error(),
			Source:       "execution",
			Symbol:       signal.Symbol,
			ExecutionID:  utility.GetExecutionID(),
			TraceID:      utility.CreateTraceID(),
			TimeStamp:    time.Now(),
		})
	}

	portfolio := a.portfolios[signal.Strategy]
	notional := fill.Quantity.Mul(fill.Price)
	if signal.Side == common.SideBuy {
		portfolio.Cash = portfolio.Cash.Sub(notional).Sub(fill.Fee)
		portfolio.Positions[signal.Symbol] = portfolio.Positions[signal.Symbol].Add(fill.Quantity)
	} else {
		portfolio.Cash = portfolio.Cash.Add(notional).Sub(fill.Fee)
		a.reducePosition(portfolio, signal.Symbol, fill.Quantity)
	}

	a.commit(ctx, signal, signal.Side, fill.Quantity, fill.Price, fill.Fee, fill.OrderID)
	return nil
}

func (a *Agent) reducePosition(portfolio *Portfolio, symbol string, quantity fixed.Point) {
	remaining := portfolio.Positions[symbol].Sub(quantity)
	if remaining.Lte(a.cfg.DustThreshold) {
		delete(portfolio.Positions, symbol)
		return
	}
	portfolio.Positions[symbol] = remaining
}

// commit publishes the fill and persists it. The in-memory update has
// already happened; a persistence failure is logged and does not roll it
// back.
func (a *Agent) commit(ctx context.Context, signal common.Signal, side common.Side, quantity, price, fee fixed.Point, orderID string) {
	trade := common.Trade{
		Strategy:    signal.Strategy,
		Side:        side,
		Quantity:    quantity,
		Price:       price,
		Fee:         fee,
		OrderID:     orderID,
		Mode:        a.cfg.Mode,
		Source:      "execution",
		Symbol:      signal.Symbol,
		ExecutionID: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   time.Now(),
	}

	if a.store != nil {
		if err := a.store.InsertTrade(ctx, trade); err != nil {
			a.logger.Error("trade persistence failed", zap.Error(err))
		}
	}
	if err := a.bus.Publish(bus.TradeEvent, trade); err != nil {
		a.logger.Error("trade publish failed", zap.Error(err))
	}
}

// PortfolioSnapshot returns a copy of one strategy's portfolio, or false if
// it has not been initialized yet.
func (a *Agent) PortfolioSnapshot(strategy string) (Portfolio, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	portfolio, ok := a.portfolios[strategy]
	if !ok {
		return Portfolio{}, false
	}
	out := Portfolio{Cash: portfolio.Cash, Positions: make(map[string]fixed.Point)}
	for symbol, qty := range portfolio.Positions {
		out.Positions[symbol] = qty
	}
	return out, true
}

// TotalValue marks every portfolio at current prices.
func (a *Agent) TotalValue() fixed.Point {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := fixed.Zero
	for _, portfolio := range a.portfolios {
		total = total.Add(portfolio.Value(a.prices))
	}
	return total
}
