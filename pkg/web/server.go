package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/bus"
)

const (
	clientSendBuffer = 64
	writeWait        = 10 * time.Second
	shutdownWait     = 5 * time.Second
)

// relayedEvents is the subset of bus traffic exposed to websocket clients.
// Raw ticks are excluded, the stream is meant for dashboards, not market
// data distribution.
var relayedEvents = []bus.EventId{
	bus.SignalEvent,
	bus.TradeEvent,
	bus.TradeErrorEvent,
	bus.AllocationEvent,
	bus.RiskAlertEvent,
	bus.EmergencyHaltEvent,
	bus.AgentStartedEvent,
	bus.AgentStoppedEvent,
	bus.AgentErrorEvent,
}

type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Server is a read-only websocket fan-out of bus events. Clients that
// cannot keep up are disconnected rather than allowed to stall the relay.
type Server struct {
	addr     string
	bus      *bus.Bus
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewServer(addr string, b *bus.Bus, logger *zap.Logger) *Server {
	return &Server{
		addr:    addr,
		bus:     b,
		logger:  logger.With(zap.String("agent", "web-relay")),
		clients: make(map[*client]struct{}),
	}
}

func (s *Server) Name() string { return "web-relay" }

// Run serves until ctx is cancelled. The relay goroutine and the http
// server share the context's lifetime.
func (s *Server) Run(ctx context.Context) error {
	subs := make([]*bus.Subscription, 0, len(relayedEvents))
	for _, id := range relayedEvents {
		sub, err := s.bus.Subscribe(id)
		if err != nil {
			return err
		}
		subs = append(subs, sub)
	}

	relayCtx, cancelRelay := context.WithCancel(ctx)
	defer cancelRelay()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *bus.Subscription) {
			defer wg.Done()
			s.relay(relayCtx, sub)
		}(sub)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	server := &http.Server{Addr: s.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	s.logger.Info("relay listening", zap.String("addr", s.addr))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			cancelRelay()
			wg.Wait()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	for _, sub := range subs {
		s.bus.Unsubscribe(sub)
	}
	cancelRelay()
	wg.Wait()
	s.closeAll()
	return ctx.Err()
}

func (s *Server) relay(ctx context.Context, sub *bus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			payload, err := json.Marshal(frame{Event: ev.Id.String(), Data: ev.Data})
			if err != nil {
				s.logger.Warn("event not serializable",
					zap.Stringer("event", ev.Id), zap.Error(err))
				continue
			}
			s.broadcast(payload)
		}
	}
}

func (s *Server) broadcast(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- payload:
		default:
			// Slow consumer, cut it loose.
			delete(s.clients, c)
			close(c.send)
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSendBuffer)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	count := len(s.clients)
	s.mu.Unlock()
	s.logger.Info("client connected", zap.Int("clients", count))

	go s.writePump(c)
	s.readPump(c)
}

// readPump discards client frames. The relay is one-way, the read loop
// only exists to notice disconnects.
func (s *Server) readPump(c *client) {
	defer s.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(c *client) {
	defer c.conn.Close()
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(writeWait))
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
	_ = c.conn.Close()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}
