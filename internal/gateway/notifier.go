package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/roadshare/claims/pkg/claims"
)

const defaultGatewayTimeout = 5 * time.Second

// WebhookNotifier delivers notification events to the marketplace's
// notification service over HTTP. Template rendering happens downstream;
// this client only posts the template id and its data.
type WebhookNotifier struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebhookNotifier builds a notifier posting to the given endpoint.
func NewWebhookNotifier(endpoint string, logger *zap.Logger) (*WebhookNotifier, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("notification endpoint is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &WebhookNotifier{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultGatewayTimeout},
		logger:     logger,
	}, nil
}

type notificationPayload struct {
	Recipient  string            `json:"recipient"`
	TemplateID string            `json:"template_id"`
	Data       map[string]string `json:"data,omitempty"`
}

// Send posts one notification event. A non-2xx response is an error.
func (notifier *WebhookNotifier) Send(ctx context.Context, recipient string, templateID string, data map[string]string) error {
	body, err := json.Marshal(notificationPayload{
		Recipient:  recipient,
		TemplateID: templateID,
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, notifier.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	response, err := notifier.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, response.Body)
		_ = response.Body.Close()
	}()
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notification endpoint returned %d", response.StatusCode)
	}
	notifier.logger.Debug("notification delivered",
		zap.String("recipient", recipient),
		zap.String("template_id", templateID))
	return nil
}

// LogNotifier records notifications to the log instead of delivering them.
// Used when no notification endpoint is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds a log-only notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the notification and succeeds.
func (notifier *LogNotifier) Send(ctx context.Context, recipient string, templateID string, data map[string]string) error {
	notifier.logger.Info("notification (log only)",
		zap.String("recipient", recipient),
		zap.String("template_id", templateID),
		zap.Any("data", data))
	return nil
}

var (
	_ claims.NotificationGateway = (*WebhookNotifier)(nil)
	_ claims.NotificationGateway = (*LogNotifier)(nil)
)
