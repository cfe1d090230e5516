package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/agent"
	"github.com/icarus-trading/icarus/pkg/bus"
	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/utility"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

// warningRatio is the fraction of a limit at which a warning alert fires.
var warningRatio = fixed.MustParse("0.8")

// PortfolioSource exposes the live mark-to-market value of all portfolios.
type PortfolioSource interface {
	TotalValue() fixed.Point
}

// Store provides the trade history used for exposure checks and the
// performance rows used for drawdown checks. A nil store skips both.
type Store interface {
	TradesSince(ctx context.Context, since time.Time) ([]common.Trade, error)
	LatestMetrics(ctx context.Context) (map[string]common.StrategyMetrics, error)
}

type Config struct {
	InitialCapital         fixed.Point
	MaxPositionSizePct     fixed.Point
	MaxDailyLossPct        fixed.Point
	MaxExposurePct         fixed.Point
	MaxStrategyDrawdownPct fixed.Point
	CheckInterval          time.Duration
}

// Agent watches trades and portfolio value against the configured limits.
// Breaching the daily loss limit publishes a single EmergencyHalt; the halt
// state resets at the next day boundary.
type Agent struct {
	runner     *agent.Runner
	bus        *bus.Bus
	logger     *zap.Logger
	cfg        Config
	portfolios PortfolioSource
	store      Store

	mu              sync.Mutex
	prices          map[string]fixed.Point
	halted          bool
	dailyStartValue fixed.Point
	dailyStartDate  time.Time

	now func() time.Time
}

func NewAgent(cfg Config, b *bus.Bus, portfolios PortfolioSource, store Store, logger *zap.Logger) *Agent {
	a := &Agent{
		bus:        b,
		logger:     logger.With(zap.String("agent", "risk-monitor")),
		cfg:        cfg,
		portfolios: portfolios,
		store:      store,
		prices:     make(map[string]fixed.Point),
		now:        time.Now,
	}
	a.runner = &agent.Runner{
		AgentName: "risk-monitor",
		Bus:       b,
		Logger:    logger,
		Start:     a.start,
	}
	return a
}

func (a *Agent) Name() string { return "risk-monitor" }

func (a *Agent) Run(ctx context.Context) error { return a.runner.Run(ctx) }

func (a *Agent) start(ctx context.Context) error {
	a.resetDailyTracking()

	consumer := agent.NewConsumer(a.bus, a.logger)
	consumer.On(bus.TickEvent, a.onTick)
	consumer.On(bus.TradeEvent, a.onTrade)

	go func() {
		_ = agent.Periodic(ctx, a.cfg.CheckInterval, a.logger, a.periodicCheck)
	}()

	return consumer.Run(ctx)
}

func (a *Agent) onTick(ctx context.Context, ev bus.Event) error {
	tick := ev.Data.(common.Tick)
	a.mu.Lock()
	a.prices[tick.Symbol] = tick.Price
	a.mu.Unlock()
	return nil
}

func (a *Agent) onTrade(ctx context.Context, ev bus.Event) error {
	trade := ev.Data.(common.Trade)

	a.mu.Lock()
	halted := a.halted
	a.mu.Unlock()
	if halted {
		a.logger.Warn("trade executed during halt",
			zap.String("strategy", trade.Strategy), zap.String("symbol", trade.Symbol))
	}

	if err := a.checkPositionSize(trade); err != nil {
		return err
	}
	return a.checkExposure(ctx)
}

// checkPositionSize compares a single fill's notional against the portfolio
// value.
func (a *Agent) checkPositionSize(trade common.Trade) error {
	value := a.portfolios.TotalValue()
	if !value.IsPos() {
		return nil
	}

	sizePct := trade.Value().Div(value).Mul(fixed.Hundred)
	limit := a.cfg.MaxPositionSizePct

	switch {
	case sizePct.Gt(limit):
		a.logger.Error("position size limit breached",
			zap.String("strategy", trade.Strategy),
			zap.String("size_pct", sizePct.String()))
		return a.alert(common.AlertPositionSize, common.SeverityCritical,
			fmt.Sprintf("position size %s%% exceeds limit %s%% for %s",
				sizePct.Rescale(2), limit, trade.Strategy),
			map[string]string{"strategy": trade.Strategy, "size_pct": sizePct.String()})
	case sizePct.Gt(limit.Mul(warningRatio)):
		return a.alert(common.AlertPositionSize, common.SeverityWarning,
			fmt.Sprintf("position size %s%% approaching limit %s%%",
				sizePct.Rescale(2), limit),
			map[string]string{"strategy": trade.Strategy, "size_pct": sizePct.String()})
	default:
		return nil
	}
}

// checkExposure marks the net position of the last 24 hours of fills at
// current prices.
func (a *Agent) checkExposure(ctx context.Context) error {
	if a.store == nil {
		return nil
	}

	trades, err := a.store.TradesSince(ctx, a.now().Add(-24*time.Hour))
	if err != nil {
		return err
	}

	net := make(map[string]fixed.Point)
	for _, trade := range trades {
		if trade.Side == common.SideBuy {
			net[trade.Symbol] = net[trade.Symbol].Add(trade.Quantity)
		} else {
			net[trade.Symbol] = net[trade.Symbol].Sub(trade.Quantity)
		}
	}

	a.mu.Lock()
	exposure := fixed.Zero
	for symbol, qty := range net {
		if !qty.IsPos() {
			continue
		}
		if price, ok := a.prices[symbol]; ok {
			exposure = exposure.Add(qty.Mul(price))
		}
	}
	a.mu.Unlock()

	value := a.portfolios.TotalValue()
	if !value.IsPos() {
		return nil
	}
	exposurePct := exposure.Div(value).Mul(fixed.Hundred)
	limit := a.cfg.MaxExposurePct

	switch {
	case exposurePct.Gt(limit):
		a.logger.Error("exposure limit breached",
			zap.String("exposure_pct", exposurePct.String()))
		return a.alert(common.AlertExposure, common.SeverityCritical,
			fmt.Sprintf("total exposure %s%% exceeds limit %s%%",
				exposurePct.Rescale(2), limit),
			map[string]string{"exposure_pct": exposurePct.String()})
	case exposurePct.Gt(limit.Mul(warningRatio)):
		return a.alert(common.AlertExposure, common.SeverityWarning,
			fmt.Sprintf("exposure %s%% approaching limit %s%%",
				exposurePct.Rescale(2), limit),
			map[string]string{"exposure_pct": exposurePct.String()})
	default:
		return nil
	}
}

func (a *Agent) periodicCheck(ctx context.Context) error {
	if err := a.checkDailyReset(); err != nil {
		return err
	}
	if err := a.checkDailyLoss(); err != nil {
		return err
	}
	return a.checkStrategyDrawdowns(ctx)
}

// checkDailyReset restarts daily tracking at the first check of a new day
// and lifts an active halt.
func (a *Agent) checkDailyReset() error {
	today := a.now().Truncate(24 * time.Hour)

	a.mu.Lock()
	newDay := today.After(a.dailyStartDate)
	wasHalted := a.halted
	a.mu.Unlock()
	if !newDay {
		return nil
	}

	a.logger.Info("new day, resetting daily tracking")
	a.resetDailyTracking()

	if wasHalted {
		a.mu.Lock()
		a.halted = false
		a.mu.Unlock()
		a.logger.Info("emergency halt reset for new day")
		return a.alert(common.AlertHaltLifted, common.SeverityInfo,
			"daily reset lifted the emergency halt", nil)
	}
	return nil
}

func (a *Agent) resetDailyTracking() {
	value := a.portfolios.TotalValue()
	a.mu.Lock()
	a.dailyStartValue = value
	a.dailyStartDate = a.now().Truncate(24 * time.Hour)
	a.mu.Unlock()
}

func (a *Agent) checkDailyLoss() error {
	a.mu.Lock()
	start := a.dailyStartValue
	halted := a.halted
	a.mu.Unlock()
	if !start.IsPos() {
		return nil
	}

	lossPct := a.portfolios.TotalValue().Sub(start).Div(start).Mul(fixed.Hundred)
	limit := a.cfg.MaxDailyLossPct

	switch {
	case lossPct.Lt(limit.Neg()):
		if halted {
			return nil
		}
		a.mu.Lock()
		a.halted = true
		a.mu.Unlock()
		a.logger.Error("emergency halt",
			zap.String("daily_loss_pct", lossPct.Abs().String()))
		return a.bus.Publish(bus.EmergencyHaltEvent, common.EmergencyHalt{
			Reason: fmt.Sprintf("daily loss %s%% exceeds limit %s%%",
				lossPct.Abs().Rescale(2), limit),
			TriggeredBy: "risk-monitor",
			Source:      "risk-monitor",
			ExecutionID: utility.GetExecutionID(),
			TraceID:     utility.CreateTraceID(),
			TimeStamp:   time.Now(),
		})
	case lossPct.Lt(limit.Mul(warningRatio).Neg()):
		return a.alert(common.AlertDailyLoss, common.SeverityWarning,
			fmt.Sprintf("daily loss %s%% approaching limit %s%%",
				lossPct.Abs().Rescale(2), limit),
			map[string]string{"daily_loss_pct": lossPct.String()})
	default:
		return nil
	}
}

// checkStrategyDrawdowns compares each strategy's recorded drawdown against
// the per-strategy limit, measured against initial capital.
func (a *Agent) checkStrategyDrawdowns(ctx context.Context) error {
	if a.store == nil || !a.cfg.InitialCapital.IsPos() {
		return nil
	}

	latest, err := a.store.LatestMetrics(ctx)
	if err != nil {
		return err
	}

	for _, m := range latest {
		drawdownPct := m.MaxDrawdown.Abs().Div(a.cfg.InitialCapital).Mul(fixed.Hundred)
		if !drawdownPct.Gt(a.cfg.MaxStrategyDrawdownPct) {
			continue
		}
		a.logger.Error("strategy drawdown limit breached",
			zap.String("strategy", m.Strategy),
			zap.String("drawdown_pct", drawdownPct.String()))
		if err := a.alert(common.AlertDrawdown, common.SeverityCritical,
			fmt.Sprintf("strategy %s drawdown %s%% exceeds limit %s%%",
				m.Strategy, drawdownPct.Rescale(2), a.cfg.MaxStrategyDrawdownPct),
			map[string]string{"strategy": m.Strategy, "drawdown_pct": drawdownPct.String()}); err != nil {
			return err
		}
	}
	return nil
}

func (a *Agent) alert(alertType string, severity common.Severity, message string, metadata map[string]string) error {
	return a.bus.Publish(bus.RiskAlertEvent, common.RiskAlert{
		AlertType:   alertType,
		Severity:    severity,
		Message:     message,
		Metadata:    metadata,
		Source:      "risk-monitor",
		ExecutionID: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   time.Now(),
	})
}

// Halted reports whether the emergency halt is active.
func (a *Agent) Halted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.halted
}
