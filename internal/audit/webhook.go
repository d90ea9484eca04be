package audit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/dao-reconciler/internal/config"
	"github.com/smartdevs17/dao-reconciler/pkg/utils"
)

// WebhookPayload defines the webhook payload structure
type WebhookPayload struct {
	Event     string                 `json:"event"`
	Level     string                 `json:"level"`
	Category  string                 `json:"category"`
	Details   map[string]interface{} `json:"details"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
}

// WebhookForwarder posts audit events at or above a minimum level to a URL
type WebhookForwarder struct {
	url      string
	minLevel string
	source   string
	client   *resty.Client
	logger   *logrus.Entry
}

// NewWebhookForwarder creates a forwarder from audit configuration
func NewWebhookForwarder(cfg *config.AuditConfig, source string) *WebhookForwarder {
	timeout := cfg.WebhookTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(cfg.RetryAttempts)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.SetRetryMaxWaitTime(5 * time.Second)
	client.AddRetryCondition(func(resp *resty.Response, err error) bool {
		return err != nil || resp.StatusCode() >= http.StatusInternalServerError
	})
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("User-Agent", "dao-reconciler/1.0")
	client.SetHeaders(cfg.WebhookHeaders)

	return &WebhookForwarder{
		url:      cfg.WebhookURL,
		minLevel: cfg.MinLevel,
		source:   source,
		client:   client,
		logger:   utils.ComponentLogger("audit_webhook"),
	}
}

func (w *WebhookForwarder) LogAuditEvent(ctx context.Context, event string, payload Payload) error {
	if levelRank(payload.Level) < levelRank(w.minLevel) {
		return nil
	}

	body := &WebhookPayload{
		Event:     event,
		Level:     payload.Level,
		Category:  payload.Category,
		Details:   payload.Details,
		Timestamp: time.Now().UTC(),
		Source:    w.source,
		Version:   "1.0",
	}

	start := time.Now()
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(w.url)
	if err != nil {
		return utils.WrapError(utils.ErrCodeExternal, "Audit webhook request failed", err)
	}
	if resp.IsError() {
		return utils.NewAppError(utils.ErrCodeExternal, "Audit webhook rejected event",
			fmt.Sprintf("status %d: %s", resp.StatusCode(), resp.String()))
	}

	w.logger.WithFields(logrus.Fields{
		"event":         event,
		"status_code":   resp.StatusCode(),
		"response_time": time.Since(start),
	}).Debug("Audit event forwarded")
	return nil
}
