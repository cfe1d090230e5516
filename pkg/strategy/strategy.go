package strategy

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/agent"
	"github.com/icarus-trading/icarus/pkg/bus"
	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/config"
	"github.com/icarus-trading/icarus/pkg/utility"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

// Evaluator turns a stream of ticks into trade recommendations. OnTick
// returns ok=false while warming up or when the evaluator has no opinion.
type Evaluator interface {
	Name() string
	Symbol() string
	OnTick(tick common.Tick) (Recommendation, bool)
}

type Recommendation struct {
	Side       common.Side
	Confidence fixed.Point
	Reason     string
}

// New builds an evaluator from its config entry.
func New(cfg config.StrategyConfig) (Evaluator, error) {
	p := params(cfg.Params)
	switch cfg.Type {
	case "momentum":
		return NewMomentum(cfg.Name, cfg.Symbol,
			p.intOr("short_window", 10), p.intOr("long_window", 30)), nil
	case "macd":
		return NewMACDStrategy(cfg.Name, cfg.Symbol,
			p.intOr("fast", 12), p.intOr("slow", 26), p.intOr("signal", 9)), nil
	case "bollinger":
		return NewBollingerStrategy(cfg.Name, cfg.Symbol,
			p.intOr("period", 20), p.pointOr("width", fixed.FromInt(2, 0))), nil
	case "mean_reversion":
		return NewMeanReversion(cfg.Name, cfg.Symbol,
			p.intOr("period", 20), p.pointOr("threshold", fixed.FromInt(2, 0))), nil
	case "breakout":
		return NewBreakout(cfg.Name, cfg.Symbol, p.intOr("lookback", 20)), nil
	case "stochastic":
		return NewStochasticStrategy(cfg.Name, cfg.Symbol,
			p.intOr("period", 14), p.intOr("smooth", 3),
			p.pointOr("oversold", fixed.FromInt(20, 0)),
			p.pointOr("overbought", fixed.FromInt(80, 0))), nil
	default:
		return nil, fmt.Errorf("unknown strategy type %q", cfg.Type)
	}
}

type params map[string]string

func (p params) intOr(key string, fallback int) int {
	if raw, ok := p[key]; ok {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func (p params) pointOr(key string, fallback fixed.Point) fixed.Point {
	if raw, ok := p[key]; ok {
		if v, err := fixed.Parse(raw); err == nil {
			return v
		}
	}
	return fallback
}

// Agent feeds market ticks to an evaluator and publishes its signals. A
// repeated recommendation in the same direction is suppressed until the
// direction changes.
type Agent struct {
	runner    *agent.Runner
	evaluator Evaluator
	bus       *bus.Bus
	logger    *zap.Logger
	state     *agent.State
}

func NewAgent(evaluator Evaluator, b *bus.Bus, logger *zap.Logger) *Agent {
	a := &Agent{
		evaluator: evaluator,
		bus:       b,
		logger:    logger.With(zap.String("strategy", evaluator.Name())),
		state:     agent.NewState(),
	}
	a.runner = &agent.Runner{
		AgentName: evaluator.Name(),
		Bus:       b,
		Logger:    logger,
		Start:     a.start,
	}
	return a
}

func (a *Agent) Name() string { return a.evaluator.Name() }

func (a *Agent) Run(ctx context.Context) error { return a.runner.Run(ctx) }

func (a *Agent) start(ctx context.Context) error {
	consumer := agent.NewConsumer(a.bus, a.logger)
	consumer.On(bus.TickEvent, a.onTick)
	return consumer.Run(ctx)
}

func (a *Agent) onTick(ctx context.Context, ev bus.Event) error {
	tick := ev.Data.(common.Tick)
	if tick.Symbol != a.evaluator.Symbol() {
		return nil
	}

	rec, ok := a.evaluator.OnTick(tick)
	if !ok {
		return nil
	}
	if last, ok := a.state.Get("last_side"); ok && last.(common.Side) == rec.Side {
		return nil
	}
	a.state.Set("last_side", rec.Side)

	a.logger.Info("signal",
		zap.String("side", string(rec.Side)),
		zap.String("reason", rec.Reason),
		zap.String("price", tick.Price.String()))

	return a.bus.Publish(bus.SignalEvent, common.Signal{
		Strategy:    a.evaluator.Name(),
		Side:        rec.Side,
		Confidence:  rec.Confidence,
		Reason:      rec.Reason,
		Source:      a.evaluator.Name(),
		Symbol:      tick.Symbol,
		ExecutionID: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   time.Now(),
	})
}
