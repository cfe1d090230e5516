package middleware

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/agent"
	"github.com/icarus-trading/icarus/pkg/bus"
	"github.com/icarus-trading/icarus/pkg/common"
)

// Pushover pushes phone notifications for critical risk alerts and
// emergency halts. Sends happen off the handler goroutine so a slow
// notification service never backs up the bus.
type Pushover struct {
	user   string
	token  string
	device string
	logger *zap.Logger
}

func NewPushover(user, token, device string, logger *zap.Logger) *Pushover {
	return &Pushover{
		user:   user,
		token:  token,
		device: device,
		logger: logger,
	}
}

func (p *Pushover) Wrap(handler agent.Handler) agent.Handler {
	return func(ctx context.Context, ev bus.Event) error {
		if title, message, ok := p.format(ev); ok {
			go func() {
				if err := p.send(context.Background(), title, message); err != nil {
					p.logger.Error("pushover notification failed", zap.Error(err))
				}
			}()
		}
		return handler(ctx, ev)
	}
}

func (p *Pushover) format(ev bus.Event) (title, message string, ok bool) {
	switch data := ev.Data.(type) {
	case common.EmergencyHalt:
		return "Trading Halted",
			fmt.Sprintf("reason = %s\ntriggered by = %s", data.Reason, data.TriggeredBy),
			true
	case common.RiskAlert:
		if data.Severity != common.SeverityCritical {
			return "", "", false
		}
		return "Risk Alert", fmt.Sprintf("%s: %s", data.AlertType, data.Message), true
	default:
		return "", "", false
	}
}

func (p *Pushover) send(ctx context.Context, title, message string) error {
	data := url.Values{}
	data.Set("token", p.token)
	data.Set("user", p.user)
	data.Set("device", p.device)
	data.Set("title", title)
	data.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.pushover.net/1/messages.json", strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("pushover post failed: %w", err)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pushover error: %s", body)
	}
	return nil
}
