package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"numerusx/internal/config"
	"numerusx/internal/httputil"
)

// Sender pushes trade alerts to a Slack- or Discord-compatible webhook.
// With no URL configured it degrades to log-only.
type Sender struct {
	webhookURL string
	botName    string
	httpClient *http.Client
	retry      httputil.RetryConfig
	logger     *zap.Logger
}

func NewSender(cfg config.NotificationsConfig, logger *zap.Logger) *Sender {
	botName := cfg.BotName
	if botName == "" {
		botName = "NumerusX"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		webhookURL: cfg.WebhookURL,
		botName:    botName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		},
		logger: logger,
	}
}

func (s *Sender) Enabled() bool {
	return s != nil && s.webhookURL != ""
}

// Notify sends one alert. Delivery failures are returned but callers
// treat them as non-fatal.
func (s *Sender) Notify(ctx context.Context, title, message string) error {
	if s == nil {
		return nil
	}
	formatted := fmt.Sprintf("[%s] %s: %s", s.botName, title, message)
	s.logger.Info("notification", zap.String("title", title), zap.String("message", message))

	if s.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(s.formatPayload(formatted))
	if err != nil {
		return fmt.Errorf("notifications: marshal: %w", err)
	}

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("notifications: send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notifications: %w", httputil.DecodeError(resp))
	}
	return nil
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.botName,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.botName,
	}
}
