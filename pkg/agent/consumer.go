package agent

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/bus"
)

// Handler processes one event from a subscription.
type Handler func(ctx context.Context, ev bus.Event) error

// Consumer runs one goroutine per registered event subscription and feeds
// events to the handler. Handler errors are logged without stopping the
// consumer.
type Consumer struct {
	bus    *bus.Bus
	logger *zap.Logger

	handlers map[bus.EventId]Handler
	subs     []*bus.Subscription
}

func NewConsumer(b *bus.Bus, logger *zap.Logger) *Consumer {
	return &Consumer{
		bus:      b,
		logger:   logger,
		handlers: make(map[bus.EventId]Handler),
	}
}

// On registers handler for id. Must be called before Run. Registering the
// same id twice replaces the handler.
func (c *Consumer) On(id bus.EventId, handler Handler) {
	c.handlers[id] = handler
}

// Run subscribes to every registered event and blocks until ctx is
// cancelled, then unsubscribes and waits for the per-subscription goroutines
// to drain.
func (c *Consumer) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for id, handler := range c.handlers {
		sub, err := c.bus.Subscribe(id)
		if err != nil {
			return err
		}
		c.subs = append(c.subs, sub)

		wg.Add(1)
		go func(sub *bus.Subscription, handler Handler) {
			defer wg.Done()
			c.consume(ctx, sub, handler)
		}(sub, handler)
	}

	<-ctx.Done()
	for _, sub := range c.subs {
		c.bus.Unsubscribe(sub)
	}
	wg.Wait()
	return ctx.Err()
}

func (c *Consumer) consume(ctx context.Context, sub *bus.Subscription, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := handler(ctx, ev); err != nil {
				c.logger.Error("event handler failed",
					zap.Stringer("event", ev.Id), zap.Error(err))
			}
		}
	}
}
