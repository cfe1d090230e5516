package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/utility"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

const (
	defaultStreamURL = "wss://stream.binance.com:9443/stream"

	readTimeout      = 70 * time.Second
	writeTimeout     = 10 * time.Second
	reconnectBackoff = 5 * time.Second
)

// Binance streams the combined 24h ticker channel for a set of symbols and
// reconnects with a fixed backoff when the connection drops.
type Binance struct {
	url     string
	symbols []string
	logger  *zap.Logger
}

func NewBinance(url string, symbols []string, logger *zap.Logger) *Binance {
	if url == "" {
		url = defaultStreamURL
	}
	return &Binance{url: url, symbols: symbols, logger: logger}
}

func (b *Binance) Name() string { return "binance" }

func (b *Binance) streamURL() string {
	streams := make([]string, len(b.symbols))
	for i, symbol := range b.symbols {
		streams[i] = strings.ToLower(symbol) + "@ticker"
	}
	return b.url + "?streams=" + strings.Join(streams, "/")
}

func (b *Binance) Stream(ctx context.Context, emit func(common.Tick) error) error {
	for {
		if err := b.streamOnce(ctx, emit); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Warn("stream dropped, reconnecting", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectBackoff):
		}
	}
}

func (b *Binance) streamOnce(ctx context.Context, emit func(common.Tick) error) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	b.logger.Info("stream connected", zap.Int("symbols", len(b.symbols)))

	// The server pings every few minutes; answering keeps the read
	// deadline moving.
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage,
			[]byte(appData), time.Now().Add(writeTimeout))
	})

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		tick, ok, err := parseTickerMessage(payload)
		if err != nil {
			b.logger.Warn("unparseable ticker message", zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		if err := emit(tick); err != nil {
			return err
		}
	}
}

type tickerMessage struct {
	Stream string `json:"stream"`
	Data   struct {
		EventTime int64  `json:"E"`
		Symbol    string `json:"s"`
		LastPrice string `json:"c"`
		Volume    string `json:"v"`
		BidPrice  string `json:"b"`
		AskPrice  string `json:"a"`
	} `json:"data"`
}

func parseTickerMessage(payload []byte) (common.Tick, bool, error) {
	var msg tickerMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return common.Tick{}, false, err
	}
	if msg.Data.Symbol == "" || msg.Data.LastPrice == "" {
		// Subscription acks and other control frames.
		return common.Tick{}, false, nil
	}

	price, err := fixed.Parse(msg.Data.LastPrice)
	if err != nil {
		return common.Tick{}, false, fmt.Errorf("price %q: %w", msg.Data.LastPrice, err)
	}
	volume, err := fixed.Parse(msg.Data.Volume)
	if err != nil {
		return common.Tick{}, false, fmt.Errorf("volume %q: %w", msg.Data.Volume, err)
	}

	tick := common.Tick{
		Price:       price,
		Volume:      volume,
		Source:      "binance",
		Symbol:      msg.Data.Symbol,
		ExecutionID: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   time.UnixMilli(msg.Data.EventTime),
	}
	if bid, err := fixed.Parse(msg.Data.BidPrice); err == nil {
		tick.Bid = bid
	}
	if ask, err := fixed.Parse(msg.Data.AskPrice); err == nil {
		tick.Ask = ask
	}
	return tick, true, nil
}
