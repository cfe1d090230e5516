package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

const (
	defaultRestURL = "https://api.binance.com"

	requestTimeout = 15 * time.Second
	recvWindowMs   = 5000
)

// BinanceClient places signed spot orders against the Binance REST API.
type BinanceClient struct {
	http      *resty.Client
	apiSecret string
	logger    *zap.Logger
}

func NewBinanceClient(baseURL, apiKey, apiSecret string, logger *zap.Logger) *BinanceClient {
	if baseURL == "" {
		baseURL = defaultRestURL
	}
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetHeader("X-MBX-APIKEY", apiKey)

	return &BinanceClient{
		http:      http,
		apiSecret: apiSecret,
		logger:    logger.With(zap.String("exchange", "binance")),
	}
}

type orderResponse struct {
	OrderID     int64  `json:"orderId"`
	Status      string `json:"status"`
	ExecutedQty string `json:"executedQty"`
	Fills       []struct {
		Price      string `json:"price"`
		Qty        string `json:"qty"`
		Commission string `json:"commission"`
	} `json:"fills"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

// PlaceMarketOrder submits a market order and folds the reported partial
// fills into a single volume-weighted fill.
func (c *BinanceClient) PlaceMarketOrder(ctx context.Context, order Order) (Fill, error) {
	side := "BUY"
	if order.Side == common.SideSell {
		side = "SELL"
	}

	params := url.Values{}
	params.Set("symbol", strings.ToUpper(order.Symbol))
	params.Set("side", side)
	params.Set("type", "MARKET")
	params.Set("quantity", order.Quantity.String())
	params.Set("recvWindow", strconv.Itoa(recvWindowMs))
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))

	query := params.Encode()
	query += "&signature=" + c.sign(query)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(query).
		Post("/api/v3/order")
	if err != nil {
		return Fill{}, fmt.Errorf("place order: %w", err)
	}
	if resp.StatusCode() != 200 {
		var apiErr apiError
		if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Message != "" {
			return Fill{}, fmt.Errorf("order rejected (%d): %s", apiErr.Code, apiErr.Message)
		}
		return Fill{}, fmt.Errorf("order rejected: http %d: %s", resp.StatusCode(), resp.String())
	}

	var result orderResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return Fill{}, fmt.Errorf("parse order response: %w", err)
	}
	if result.Status != "FILLED" && result.Status != "PARTIALLY_FILLED" {
		return Fill{}, fmt.Errorf("order %d not filled: status %s", result.OrderID, result.Status)
	}

	fill, err := foldFills(result)
	if err != nil {
		return Fill{}, err
	}

	c.logger.Info("order filled",
		zap.String("symbol", order.Symbol),
		zap.String("side", side),
		zap.String("qty", fill.Quantity.String()),
		zap.String("price", fill.Price.String()))
	return fill, nil
}

func (c *BinanceClient) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// foldFills collapses the per-maker fills of a market order into one
// quantity, volume-weighted price and total commission.
func foldFills(result orderResponse) (Fill, error) {
	if len(result.Fills) == 0 {
		return Fill{}, fmt.Errorf("order %d reported no fills", result.OrderID)
	}

	quantity := fixed.Zero
	notional := fixed.Zero
	fee := fixed.Zero
	for _, part := range result.Fills {
		price, err := fixed.Parse(part.Price)
		if err != nil {
			return Fill{}, fmt.Errorf("fill price %q: %w", part.Price, err)
		}
		qty, err := fixed.Parse(part.Qty)
		if err != nil {
			return Fill{}, fmt.Errorf("fill qty %q: %w", part.Qty, err)
		}
		commission, err := fixed.Parse(part.Commission)
		if err != nil {
			return Fill{}, fmt.Errorf("fill commission %q: %w", part.Commission, err)
		}
		quantity = quantity.Add(qty)
		notional = notional.Add(price.Mul(qty))
		fee = fee.Add(commission)
	}
	if !quantity.IsPos() {
		return Fill{}, fmt.Errorf("order %d filled zero quantity", result.OrderID)
	}

	return Fill{
		OrderID:  strconv.FormatInt(result.OrderID, 10),
		Quantity: quantity,
		Price:    notional.Div(quantity),
		Fee:      fee,
	}, nil
}
