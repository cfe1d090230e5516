package datasource

import (
	"context"
	"math/rand"
	"time"

	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/utility"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

// Synthetic emits a random walk per symbol. Useful for paper runs without
// network access.
type Synthetic struct {
	symbols  []string
	interval time.Duration
	prices   map[string]float64
	rng      *rand.Rand
}

func NewSynthetic(symbols []string, startPrices map[string]float64, interval time.Duration) *Synthetic {
	prices := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		if p, ok := startPrices[symbol]; ok {
			prices[symbol] = p
		} else {
			prices[symbol] = 100
		}
	}
	return &Synthetic{
		symbols:  symbols,
		interval: interval,
		prices:   prices,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Synthetic) Name() string { return "synthetic" }

func (s *Synthetic) Stream(ctx context.Context, emit func(common.Tick) error) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, symbol := range s.symbols {
				if err := emit(s.next(symbol)); err != nil {
					return err
				}
			}
		}
	}
}

// next steps the walk by up to ±0.2% and never below a cent.
func (s *Synthetic) next(symbol string) common.Tick {
	step := 1 + (s.rng.Float64()-0.5)*0.004
	price := s.prices[symbol] * step
	if price < 0.01 {
		price = 0.01
	}
	s.prices[symbol] = price

	return common.Tick{
		Price:       fixed.FromFloat64(price).Rescale(8),
		Volume:      fixed.FromFloat64(s.rng.Float64() * 10).Rescale(8),
		Source:      s.Name(),
		Symbol:      symbol,
		ExecutionID: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   time.Now(),
	}
}
