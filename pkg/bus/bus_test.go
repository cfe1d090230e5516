package bus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

func testTick(price int) common.Tick {
	return common.Tick{
		Price:     fixed.FromInt(price, 0),
		Symbol:    "BTCUSDT",
		TimeStamp: time.Now(),
	}
}

func TestBus_PublishDelivers(t *testing.T) {
	b := NewBus(zap.NewNop())
	defer b.Close()

	sub, err := b.Subscribe(TickEvent)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := b.Publish(TickEvent, testTick(100)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case ev := <-sub.Events():
		if ev.Id != TickEvent {
			t.Errorf("expected TickEvent, got %s", ev.Id)
		}
		if _, ok := ev.Data.(common.Tick); !ok {
			t.Errorf("expected common.Tick payload, got %T", ev.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_RejectsMismatchedPayload(t *testing.T) {
	b := NewBus(zap.NewNop())
	defer b.Close()

	if err := b.Publish(TickEvent, common.Signal{}); err == nil {
		t.Error("expected error for mismatched payload")
	}
	if err := b.Publish(TickEvent, "not an event"); err == nil {
		t.Error("expected error for non-event payload")
	}
	if got := b.Statistics().Published; got != 0 {
		t.Errorf("rejected publishes must not count, got %d", got)
	}
}

func TestBus_Broadcast(t *testing.T) {
	b := NewBus(zap.NewNop())
	defer b.Close()

	const subscribers = 3
	subs := make([]*Subscription, subscribers)
	for i := range subs {
		var err error
		subs[i], err = b.Subscribe(SignalEvent)
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
	}

	if err := b.Publish(SignalEvent, common.Signal{Strategy: "momentum"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for i, sub := range subs {
		select {
		case ev := <-sub.Events():
			if sig := ev.Data.(common.Signal); sig.Strategy != "momentum" {
				t.Errorf("subscriber %d: unexpected payload %+v", i, sig)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive the event", i)
		}
	}

	if got := b.Statistics().Delivered; got != subscribers {
		t.Errorf("expected %d deliveries, got %d", subscribers, got)
	}
}

func TestBus_FIFOPerSubscriber(t *testing.T) {
	b := NewBus(zap.NewNop())
	defer b.Close()

	sub, err := b.Subscribe(TradeEvent)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	const count = 100
	for i := 0; i < count; i++ {
		trade := common.Trade{OrderID: orderID(i)}
		if err := b.Publish(TradeEvent, trade); err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
	}

	for i := 0; i < count; i++ {
		ev := <-sub.Events()
		if got := ev.Data.(common.Trade).OrderID; got != orderID(i) {
			t.Fatalf("out of order at %d: got %s", i, got)
		}
	}
}

func orderID(i int) string {
	return string(rune('a'+i%26)) + string(rune('0'+i/26))
}

func TestBus_DropsWhenQueueFull(t *testing.T) {
	b := NewBus(zap.NewNop())
	defer b.Close()

	sub, err := b.SubscribeBuffered(TickEvent, 2)
	if err != nil {
		t.Fatalf("SubscribeBuffered: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := b.Publish(TickEvent, testTick(i)); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	stats := b.Statistics()
	if stats.Delivered != 2 {
		t.Errorf("expected 2 deliveries, got %d", stats.Delivered)
	}
	if stats.Dropped != 3 {
		t.Errorf("expected 3 drops, got %d", stats.Dropped)
	}
	if stats.Published != 5 {
		t.Errorf("expected 5 publishes, got %d", stats.Published)
	}

	// The queued events are still deliverable.
	for i := 0; i < 2; i++ {
		select {
		case <-sub.Events():
		case <-time.After(time.Second):
			t.Fatal("queued event lost")
		}
	}
}

func TestBus_UnsubscribeIdempotent(t *testing.T) {
	b := NewBus(zap.NewNop())
	defer b.Close()

	sub, err := b.Subscribe(TickEvent)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	b.Unsubscribe(sub)
	b.Unsubscribe(sub)
	b.Unsubscribe(nil)

	if err := b.Publish(TickEvent, testTick(1)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := b.Statistics().Delivered; got != 0 {
		t.Errorf("expected no deliveries after unsubscribe, got %d", got)
	}

	if _, open := <-sub.Events(); open {
		t.Error("channel should be closed after unsubscribe")
	}
}

func TestBus_Close(t *testing.T) {
	b := NewBus(zap.NewNop())

	sub, err := b.Subscribe(TickEvent)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := b.Publish(TickEvent, testTick(1)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	b.Close()
	b.Close()

	// Queued events drain, then the channel closes.
	if _, open := <-sub.Events(); !open {
		t.Fatal("queued event lost on close")
	}
	if _, open := <-sub.Events(); open {
		t.Error("channel should be closed")
	}

	if err := b.Publish(TickEvent, testTick(2)); err != ErrBusClosed {
		t.Errorf("expected ErrBusClosed, got %v", err)
	}
	if _, err := b.Subscribe(TickEvent); err != ErrBusClosed {
		t.Errorf("expected ErrBusClosed, got %v", err)
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	b := NewBus(zap.NewNop())
	defer b.Close()

	sub, err := b.SubscribeBuffered(TickEvent, 10000)
	if err != nil {
		t.Fatalf("SubscribeBuffered: %v", err)
	}

	var received atomic.Uint64
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range sub.Events() {
			received.Add(1)
		}
	}()

	const publishers = 8
	const perPublisher = 500
	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				if err := b.Publish(TickEvent, testTick(i)); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	b.Unsubscribe(sub)
	<-done

	if got := received.Load(); got != publishers*perPublisher {
		t.Errorf("expected %d events, got %d", publishers*perPublisher, got)
	}
}

func BenchmarkBus_Publish(b *testing.B) {
	bus := NewBus(zap.NewNop())
	defer bus.Close()

	sub, _ := bus.SubscribeBuffered(TickEvent, 1)
	_ = sub
	tick := testTick(1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(TickEvent, tick)
	}
}

func BenchmarkBus_PublishConsume(b *testing.B) {
	bus := NewBus(zap.NewNop())
	defer bus.Close()

	sub, _ := bus.SubscribeBuffered(TickEvent, 4096)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range sub.Events() {
		}
	}()

	tick := testTick(1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(TickEvent, tick)
	}
	b.StopTimer()
	bus.Unsubscribe(sub)
	<-done
}
