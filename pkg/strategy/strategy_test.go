package strategy

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/bus"
	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/config"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

func tick(price int) common.Tick {
	return common.Tick{
		Price:     fixed.FromInt(price, 0),
		Symbol:    "BTCUSDT",
		TimeStamp: time.Now(),
	}
}

func feed(e Evaluator, prices ...int) []Recommendation {
	var recs []Recommendation
	for _, p := range prices {
		if rec, ok := e.OnTick(tick(p)); ok {
			recs = append(recs, rec)
		}
	}
	return recs
}

func TestMomentum_CrossoverSignals(t *testing.T) {
	m := NewMomentum("momentum-test", "BTCUSDT", 2, 4)

	// Flat warmup, then a rally pushes the short average through the long
	// one, then a slide pulls it back under.
	recs := feed(m, 100, 100, 100, 100, 120, 140, 160, 100, 80, 60)

	if len(recs) != 2 {
		t.Fatalf("expected 2 signals, got %d: %+v", len(recs), recs)
	}
	if recs[0].Side != common.SideBuy {
		t.Errorf("first signal should be buy, got %s", recs[0].Side)
	}
	if recs[1].Side != common.SideSell {
		t.Errorf("second signal should be sell, got %s", recs[1].Side)
	}
}

func TestMomentum_NoSignalWithoutCross(t *testing.T) {
	m := NewMomentum("momentum-test", "BTCUSDT", 2, 4)

	if recs := feed(m, 100, 100, 100, 100, 100, 100, 100); len(recs) != 0 {
		t.Errorf("flat prices should not signal, got %+v", recs)
	}
}

func TestBreakout_Signals(t *testing.T) {
	b := NewBreakout("breakout-test", "BTCUSDT", 3)

	recs := feed(b, 100, 105, 102, 110)
	if len(recs) != 1 || recs[0].Side != common.SideBuy {
		t.Fatalf("expected one buy on range break, got %+v", recs)
	}

	recs = feed(b, 90)
	if len(recs) != 1 || recs[0].Side != common.SideSell {
		t.Fatalf("expected one sell on breakdown, got %+v", recs)
	}
}

func TestMeanReversion_BuysTheDip(t *testing.T) {
	s := NewMeanReversion("reversion-test", "BTCUSDT", 4, fixed.One)

	recs := feed(s, 100, 101, 100, 80)
	if len(recs) != 1 || recs[0].Side != common.SideBuy {
		t.Fatalf("expected one buy on a deep dip, got %+v", recs)
	}
	if recs[0].Confidence.Lt(fixed.FromInt(5, 1)) {
		t.Errorf("confidence floor is 0.5, got %s", recs[0].Confidence)
	}
}

func TestBollinger_FadesExtremes(t *testing.T) {
	s := NewBollingerStrategy("bollinger-test", "BTCUSDT", 4, fixed.One)

	recs := feed(s, 100, 102, 98, 100, 120)
	if len(recs) != 1 || recs[0].Side != common.SideSell {
		t.Fatalf("expected one sell above the upper band, got %+v", recs)
	}
}

func TestStochastic_BuysOversold(t *testing.T) {
	s := NewStochasticStrategy("stochastic-test", "BTCUSDT", 3, 1,
		fixed.FromInt(20, 0), fixed.FromInt(80, 0))

	recs := feed(s, 100, 90, 80, 70)
	if len(recs) == 0 || recs[len(recs)-1].Side != common.SideBuy {
		t.Fatalf("falling prices should read oversold, got %+v", recs)
	}
}

func TestNew_UnknownType(t *testing.T) {
	if _, err := New(config.StrategyConfig{Name: "x", Type: "astrology"}); err == nil {
		t.Error("unknown strategy type must error")
	}
}

func TestNew_ParamsParsed(t *testing.T) {
	e, err := New(config.StrategyConfig{
		Name:   "momentum-btc",
		Type:   "momentum",
		Symbol: "BTCUSDT",
		Params: map[string]string{"short_window": "2", "long_window": "3"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Warm after long_window=3 samples plus one for cross detection.
	if recs := feed(e, 100, 100, 100, 100, 200); len(recs) != 1 {
		t.Errorf("expected a buy after 5 ticks with short windows, got %+v", recs)
	}
}

func TestAgent_DeduplicatesAndFilters(t *testing.T) {
	b := bus.NewBus(zap.NewNop())
	defer b.Close()

	signals, err := b.Subscribe(bus.SignalEvent)
	if err != nil {
		t.Fatal(err)
	}

	a := NewAgent(NewBreakout("breakout-test", "BTCUSDT", 2), b, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)

	// Other symbols are ignored.
	_ = b.Publish(bus.TickEvent, common.Tick{
		Price: fixed.FromInt(1, 0), Symbol: "ETHUSDT", TimeStamp: time.Now()})

	// Warmup, then two consecutive breakouts: only the first publishes.
	for _, p := range []int{100, 101, 110, 120} {
		_ = b.Publish(bus.TickEvent, tick(p))
	}

	var got []common.Signal
	deadline := time.After(time.Second)
collect:
	for {
		select {
		case ev := <-signals.Events():
			got = append(got, ev.Data.(common.Signal))
		case <-deadline:
			break collect
		case <-time.After(100 * time.Millisecond):
			break collect
		}
	}

	if len(got) != 1 {
		t.Fatalf("expected exactly one published signal, got %d", len(got))
	}
	if got[0].Strategy != "breakout-test" || got[0].Side != common.SideBuy {
		t.Errorf("unexpected signal %+v", got[0])
	}

	cancel()
	<-done
}
