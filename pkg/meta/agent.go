package meta

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/agent"
	"github.com/icarus-trading/icarus/pkg/bus"
	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/utility"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

// MetricsSource provides the latest performance row per strategy. A nil
// source keeps the agent on equal weighting.
type MetricsSource interface {
	LatestMetrics(ctx context.Context) (map[string]common.StrategyMetrics, error)
}

type Config struct {
	Strategies        []string
	RebalanceInterval time.Duration
	MinAllocationPct  fixed.Point
	MaxAllocationPct  fixed.Point
	ChangeThreshold   fixed.Point
}

// Agent allocates capital across strategies. It starts with equal weights
// and rebalances periodically from performance scores, republishing only
// when some strategy's weight moves by more than the change threshold.
type Agent struct {
	runner  *agent.Runner
	bus     *bus.Bus
	logger  *zap.Logger
	cfg     Config
	metrics MetricsSource

	current map[string]fixed.Point
}

func NewAgent(cfg Config, b *bus.Bus, metrics MetricsSource, logger *zap.Logger) *Agent {
	a := &Agent{
		bus:     b,
		logger:  logger.With(zap.String("agent", "meta-strategy")),
		cfg:     cfg,
		metrics: metrics,
		current: make(map[string]fixed.Point),
	}
	a.runner = &agent.Runner{
		AgentName: "meta-strategy",
		Bus:       b,
		Logger:    logger,
		Start:     a.start,
	}
	return a
}

func (a *Agent) Name() string { return "meta-strategy" }

func (a *Agent) Run(ctx context.Context) error { return a.runner.Run(ctx) }

func (a *Agent) start(ctx context.Context) error {
	a.current = equalWeights(a.cfg.Strategies)
	if err := a.publish("initial equal weighting"); err != nil {
		return err
	}
	return agent.Periodic(ctx, a.cfg.RebalanceInterval, a.logger, a.rebalance)
}

func (a *Agent) rebalance(ctx context.Context) error {
	proposed, err := a.propose(ctx)
	if err != nil {
		return err
	}

	if !a.changedBeyondThreshold(proposed) {
		a.logger.Debug("no significant allocation change")
		return nil
	}

	a.current = proposed
	return a.publish("performance-based reallocation")
}

// propose scores each strategy from its latest metrics and converts scores
// into clamped, normalized percentages. Missing data falls back to equal
// weighting.
func (a *Agent) propose(ctx context.Context) (map[string]fixed.Point, error) {
	if a.metrics == nil {
		return equalWeights(a.cfg.Strategies), nil
	}

	latest, err := a.metrics.LatestMetrics(ctx)
	if err != nil {
		return nil, err
	}
	if len(latest) == 0 {
		a.logger.Warn("no performance data, keeping equal weighting")
		return equalWeights(a.cfg.Strategies), nil
	}

	scores := make(map[string]fixed.Point, len(a.cfg.Strategies))
	total := fixed.Zero
	for _, strategy := range a.cfg.Strategies {
		score := fixed.Zero
		if m, ok := latest[strategy]; ok {
			score = scoreMetrics(m)
		}
		scores[strategy] = score
		total = total.Add(score)
	}
	if total.IsZero() {
		return equalWeights(a.cfg.Strategies), nil
	}

	allocations := make(map[string]fixed.Point, len(scores))
	sum := fixed.Zero
	for strategy, score := range scores {
		raw := score.Div(total).Mul(fixed.Hundred)
		clamped := fixed.Max(a.cfg.MinAllocationPct, fixed.Min(a.cfg.MaxAllocationPct, raw))
		allocations[strategy] = clamped
		sum = sum.Add(clamped)
	}
	// Clamping can push the total off 100, renormalize.
	for strategy, pct := range allocations {
		allocations[strategy] = pct.Div(sum).Mul(fixed.Hundred)
	}
	return allocations, nil
}

// scoreMetrics weighs pnl 40%, scaled sharpe 30%, win rate 20% and penalizes
// drawdown 10%. Negative components floor at zero so one bad strategy
// cannot flip the proportions.
func scoreMetrics(m common.StrategyMetrics) fixed.Point {
	pnl := fixed.Max(fixed.Zero, m.TotalPnL)
	sharpe := fixed.Max(fixed.Zero, m.SharpeRatio)
	drawdown := m.MaxDrawdown.Abs()

	score := pnl.Mul(fixed.MustParse("0.4")).
		Add(sharpe.MulInt(30).Mul(fixed.MustParse("0.3"))).
		Add(m.WinRate.Mul(fixed.MustParse("0.2"))).
		Sub(drawdown.Mul(fixed.MustParse("0.1")))
	return fixed.Max(fixed.Zero, score)
}

func (a *Agent) changedBeyondThreshold(proposed map[string]fixed.Point) bool {
	for _, strategy := range a.cfg.Strategies {
		delta := a.current[strategy].Sub(proposed[strategy]).Abs()
		if delta.Gt(a.cfg.ChangeThreshold) {
			return true
		}
	}
	return false
}

func (a *Agent) publish(reason string) error {
	out := make(map[string]fixed.Point, len(a.current))
	for strategy, pct := range a.current {
		out[strategy] = pct
	}

	a.logger.Info("allocations published", zap.String("reason", reason))
	return a.bus.Publish(bus.AllocationEvent, common.Allocation{
		Allocations: out,
		Reason:      reason,
		Source:      "meta-strategy",
		ExecutionID: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   time.Now(),
	})
}

func equalWeights(strategies []string) map[string]fixed.Point {
	weights := make(map[string]fixed.Point, len(strategies))
	if len(strategies) == 0 {
		return weights
	}
	share := fixed.Hundred.DivInt(len(strategies))
	for _, strategy := range strategies {
		weights[strategy] = share
	}
	return weights
}
