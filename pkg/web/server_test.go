package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/bus"
	"github.com/icarus-trading/icarus/pkg/common"
)

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func TestServer_RelaysTradeToClient(t *testing.T) {
	b := bus.NewBus(zap.NewNop())
	defer b.Close()

	s := NewServer("", b, zap.NewNop())
	ts := httptest.NewServer(http.HandlerFunc(s.handleWS))
	defer ts.Close()

	sub, err := b.Subscribe(bus.TradeEvent)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.relay(ctx, sub)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for s.clientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	if err := b.Publish(bus.TradeEvent, common.Trade{
		Strategy: "momentum", Symbol: "BTCUSDT", TimeStamp: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var f frame
	if err := json.Unmarshal(payload, &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Event != "trade" {
		t.Errorf("event: expected trade, got %s", f.Event)
	}
}

func TestBroadcast_DropsSlowClient(t *testing.T) {
	s := NewServer("", nil, zap.NewNop())

	slow := &client{send: make(chan []byte)}
	s.mu.Lock()
	s.clients[slow] = struct{}{}
	s.mu.Unlock()

	s.broadcast([]byte(`{}`))

	if got := s.clientCount(); got != 0 {
		t.Errorf("expected slow client to be dropped, %d clients remain", got)
	}
	if _, open := <-slow.send; open {
		t.Error("expected send channel to be closed")
	}
}
