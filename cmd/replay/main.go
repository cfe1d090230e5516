package main

import (
	"context"
	"errors"
	"flag"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/internal/dbg"
	"github.com/icarus-trading/icarus/pkg/bus"
	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/config"
	"github.com/icarus-trading/icarus/pkg/datasource"
	"github.com/icarus-trading/icarus/pkg/execution"
	"github.com/icarus-trading/icarus/pkg/strategy"
)

// replay feeds recorded ticks through the strategy and execution agents at
// full speed. No database, no exchange, no live services.
func main() {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
	sourceKind := flag.String("source", "duckdb", "replay source: duckdb or binfile")
	dataPath := flag.String("data", "", "path to tick data file")
	symbol := flag.String("symbol", "BTCUSDT", "symbol to replay")
	from := flag.String("from", "", "start of replay window (RFC3339, duckdb only)")
	to := flag.String("to", "", "end of replay window (RFC3339, duckdb only)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger := dbg.NewLogger(cfg.System.Environment, cfg.System.LogLevel)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	source, cleanup, err := buildReplaySource(*sourceKind, *dataPath, *symbol, *from, *to)
	if err != nil {
		logger.Fatal("unable to open replay source", zap.Error(err))
	}
	defer cleanup()

	b := bus.NewBus(logger)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	executor := execution.NewAgent(execution.Config{
		Mode:                common.TradeModePaper,
		InitialCapital:      cfg.Trading.InitialCapital,
		PositionSizePct:     cfg.Trading.PositionSizePct,
		ExitPct:             cfg.Trading.ExitPct,
		FeePct:              cfg.Trading.FeePct,
		SlippagePct:         cfg.Trading.SlippagePct,
		MinNotional:         cfg.Trading.MinNotional,
		DustThreshold:       cfg.Trading.DustThreshold,
		PerformanceInterval: cfg.Trading.PerformanceInterval.Std(),
	}, b, nil, nil, logger)

	var strategyNames []string
	var wg sync.WaitGroup
	run := func(name string, fn func(ctx context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("agent failed", zap.String("agent", name), zap.Error(err))
				cancel()
			}
		}()
	}

	run(executor.Name(), executor.Run)
	for _, sc := range cfg.Strategies {
		if !sc.Enabled || sc.Symbol != *symbol {
			continue
		}
		evaluator, err := strategy.New(sc)
		if err != nil {
			logger.Fatal("unable to build strategy",
				zap.String("strategy", sc.Name), zap.Error(err))
		}
		strategyNames = append(strategyNames, sc.Name)
		a := strategy.NewAgent(evaluator, b, logger)
		run(a.Name(), a.Run)
	}

	started := time.Now()
	feed := datasource.NewAgent(source, b, nil, logger)
	if err := feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("replay failed", zap.Error(err))
	}
	logger.Info("replay finished", zap.Duration("elapsed", time.Since(started)))

	// Let in-flight events drain before reading results.
	time.Sleep(time.Second)
	cancel()
	wg.Wait()

	for _, name := range strategyNames {
		portfolio, ok := executor.PortfolioSnapshot(name)
		if !ok {
			continue
		}
		logger.Info("portfolio",
			zap.String("strategy", name),
			zap.String("cash", portfolio.Cash.Rescale(2).String()),
			zap.Int("positions", len(portfolio.Positions)))
	}
	logger.Info("total value", zap.String("value", executor.TotalValue().Rescale(2).String()))
}

func buildReplaySource(kind, path, symbol, from, to string) (datasource.Source, func(), error) {
	if path == "" {
		return nil, nil, errors.New("data path is required")
	}

	switch kind {
	case "duckdb":
		fromTs, toTs, err := parseWindow(from, to)
		if err != nil {
			return nil, nil, err
		}
		source := datasource.NewHistorical(path, symbol, fromTs, toTs)
		if err := source.Open(); err != nil {
			return nil, nil, err
		}
		return source, func() { _ = source.Close() }, nil
	case "binfile":
		source := datasource.NewBinaryFile(path, symbol)
		if err := source.Open(); err != nil {
			return nil, nil, err
		}
		return source, source.Close, nil
	default:
		return nil, nil, errors.New("unknown replay source " + kind)
	}
}

func parseWindow(from, to string) (time.Time, time.Time, error) {
	fromTs := time.Time{}
	toTs := time.Now()

	if from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		fromTs = parsed
	}
	if to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		toTs = parsed
	}
	return fromTs, toTs, nil
}
