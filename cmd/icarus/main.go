package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/internal/dbg"
	"github.com/icarus-trading/icarus/pkg/agent"
	"github.com/icarus-trading/icarus/pkg/bus"
	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/config"
	"github.com/icarus-trading/icarus/pkg/datasource"
	"github.com/icarus-trading/icarus/pkg/exchange"
	"github.com/icarus-trading/icarus/pkg/execution"
	"github.com/icarus-trading/icarus/pkg/forks"
	"github.com/icarus-trading/icarus/pkg/meta"
	"github.com/icarus-trading/icarus/pkg/middleware"
	"github.com/icarus-trading/icarus/pkg/risk"
	"github.com/icarus-trading/icarus/pkg/storage"
	"github.com/icarus-trading/icarus/pkg/strategy"
	"github.com/icarus-trading/icarus/pkg/web"
)

const startupTimeout = 10 * time.Second

type runnable interface {
	Name() string
	Run(ctx context.Context) error
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger := dbg.NewLogger(cfg.System.Environment, cfg.System.LogLevel)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	logger.Info("icarus started",
		zap.String("environment", cfg.System.Environment),
		zap.String("mode", string(cfg.Trading.Mode)))
	defer logger.Info("icarus finished")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := storage.Connect(cfg.Database, logger)
	if err != nil {
		logger.Fatal("unable to connect to database", zap.Error(err))
	}
	defer store.Close()

	startupCtx, cancelStartup := context.WithTimeout(ctx, startupTimeout)
	defer cancelStartup()
	if err := store.Health(startupCtx); err != nil {
		logger.Fatal("database not reachable", zap.Error(err))
	}
	if err := store.EnsureSchema(startupCtx); err != nil {
		logger.Fatal("unable to ensure schema", zap.Error(err))
	}

	b := bus.NewBus(logger)
	defer b.Close()

	var agents []runnable

	source, err := buildSource(cfg, logger)
	if err != nil {
		logger.Fatal("unable to build market data source", zap.Error(err))
	}
	agents = append(agents, datasource.NewAgent(source, b, store, logger))

	strategyNames := make([]string, 0, len(cfg.Strategies))
	for _, sc := range cfg.Strategies {
		if !sc.Enabled {
			continue
		}
		evaluator, err := strategy.New(sc)
		if err != nil {
			logger.Fatal("unable to build strategy",
				zap.String("strategy", sc.Name), zap.Error(err))
		}
		strategyNames = append(strategyNames, sc.Name)
		agents = append(agents, strategy.NewAgent(evaluator, b, logger))
	}

	var exchangeClient exchange.Client
	if cfg.Trading.Mode == common.TradeModeLive {
		exchangeClient = exchange.NewBinanceClient(
			cfg.Exchange.BaseURL, cfg.Exchange.APIKey, cfg.Exchange.APISecret, logger)
	}

	executor := execution.NewAgent(execution.Config{
		Mode:                cfg.Trading.Mode,
		InitialCapital:      cfg.Trading.InitialCapital,
		PositionSizePct:     cfg.Trading.PositionSizePct,
		ExitPct:             cfg.Trading.ExitPct,
		FeePct:              cfg.Trading.FeePct,
		SlippagePct:         cfg.Trading.SlippagePct,
		MinNotional:         cfg.Trading.MinNotional,
		DustThreshold:       cfg.Trading.DustThreshold,
		PerformanceInterval: cfg.Trading.PerformanceInterval.Std(),
	}, b, store, exchangeClient, logger)
	agents = append(agents, executor)

	agents = append(agents, meta.NewAgent(meta.Config{
		Strategies:        strategyNames,
		RebalanceInterval: cfg.Meta.RebalanceInterval.Std(),
		MinAllocationPct:  cfg.Meta.MinAllocationPct,
		MaxAllocationPct:  cfg.Meta.MaxAllocationPct,
		ChangeThreshold:   cfg.Meta.ChangeThreshold,
	}, b, store, logger))

	agents = append(agents, risk.NewAgent(risk.Config{
		InitialCapital:         cfg.Trading.InitialCapital,
		MaxPositionSizePct:     cfg.Risk.MaxPositionSizePct,
		MaxDailyLossPct:        cfg.Risk.MaxDailyLossPct,
		MaxExposurePct:         cfg.Risk.MaxExposurePct,
		MaxStrategyDrawdownPct: cfg.Risk.MaxStrategyDrawdownPct,
		CheckInterval:          cfg.Risk.CheckInterval.Std(),
	}, b, executor, store, logger))

	if cfg.Forks.Enabled {
		provisioner := forks.NewCLIProvisioner(cfg.Forks.CLIPath, logger)
		pools := storage.NewForkPools(cfg.Database.Password, logger)
		defer pools.CloseAll()
		agents = append(agents, forks.NewManager(forks.Config{
			ParentServiceID: cfg.Forks.ServiceID,
			MaxConcurrent:   cfg.Forks.MaxConcurrent,
			DefaultTTL:      cfg.Forks.DefaultTTL.Std(),
			CleanupInterval: cfg.Forks.CleanupInterval.Std(),
		}, b, provisioner, store, pools, logger))
	}

	if cfg.Web.Enabled {
		agents = append(agents, web.NewServer(cfg.Web.Addr, b, logger))
	}

	telemetry := middleware.NewTelemetry(logger)
	defer telemetry.PrintStatistics()
	agents = append(agents, observerAgent(cfg, b, telemetry, logger))

	runAll(ctx, cancel, agents, logger)
}

// observerAgent counts all bus traffic, logs alert events and pushes phone
// notifications when configured.
func observerAgent(cfg *config.Config, b *bus.Bus, telemetry *middleware.Telemetry, logger *zap.Logger) runnable {
	monitor := middleware.NewMonitor(middleware.MonitorAlerts|middleware.MonitorAgents, logger)

	wrappers := []func(agent.Handler) agent.Handler{telemetry.Wrap, monitor.Wrap}
	if cfg.Notify.Enabled {
		pushover := middleware.NewPushover(
			cfg.Notify.PushoverUser, cfg.Notify.PushoverToken,
			cfg.Notify.PushoverDevice, logger)
		wrappers = append(wrappers, pushover.Wrap)
	}

	handler := middleware.Chain(wrappers...)(
		func(context.Context, bus.Event) error { return nil })

	consumer := agent.NewConsumer(b, logger)
	for _, id := range []bus.EventId{
		bus.TickEvent, bus.SignalEvent, bus.TradeEvent, bus.TradeErrorEvent,
		bus.AllocationEvent, bus.RiskAlertEvent, bus.EmergencyHaltEvent,
		bus.AgentStartedEvent, bus.AgentStoppedEvent, bus.AgentErrorEvent,
	} {
		consumer.On(id, handler)
	}
	return namedRunnable{name: "observer", run: consumer.Run}
}

type namedRunnable struct {
	name string
	run  func(ctx context.Context) error
}

func (r namedRunnable) Name() string                  { return r.name }
func (r namedRunnable) Run(ctx context.Context) error { return r.run(ctx) }

func buildSource(cfg *config.Config, logger *zap.Logger) (datasource.Source, error) {
	switch cfg.MarketData.Source {
	case "binance":
		return datasource.NewBinance(cfg.MarketData.StreamURL, cfg.Trading.Symbols, logger), nil
	case "synthetic":
		return datasource.NewSynthetic(cfg.Trading.Symbols, nil,
			cfg.MarketData.TickInterval.Std()), nil
	default:
		return nil, errors.New("unknown market data source " + cfg.MarketData.Source)
	}
}

// runAll runs every agent until the context is cancelled. An agent failing
// with anything but context cancellation brings the whole process down.
func runAll(ctx context.Context, cancel context.CancelFunc, agents []runnable, logger *zap.Logger) {
	done := make(chan struct{})
	running := len(agents)

	for _, a := range agents {
		go func(a runnable) {
			defer func() { done <- struct{}{} }()
			if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("agent failed", zap.String("agent", a.Name()), zap.Error(err))
				cancel()
			}
		}(a)
	}

	for running > 0 {
		<-done
		running--
	}
}
