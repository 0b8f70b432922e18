package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roadshare/claims/pkg/claims"
)

// RefundClient executes refunds through the marketplace's payment service.
type RefundClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRefundClient builds a refund client for the given payment endpoint.
func NewRefundClient(endpoint string, apiKey string, logger *zap.Logger) (*RefundClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("payment endpoint is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &RefundClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultGatewayTimeout},
		logger:     logger,
	}, nil
}

type refundRequest struct {
	ChargeReference string `json:"charge_reference"`
	AmountCents     int64  `json:"amount_cents"`
	Reason          string `json:"reason"`
}

type refundResponse struct {
	RefundID string `json:"refund_id"`
}

// Refund posts a refund against a prior charge and returns the processor's
// refund id. Any non-2xx response is a hard failure; the caller decides
// whether the surrounding operation can proceed.
func (client *RefundClient) Refund(ctx context.Context, chargeReference string, amountCents claims.AmountCents, reason string) (string, error) {
	if chargeReference == "" {
		return "", fmt.Errorf("charge reference is required for refund")
	}
	body, err := json.Marshal(refundRequest{
		ChargeReference: chargeReference,
		AmountCents:     amountCents.Int64(),
		Reason:          reason,
	})
	if err != nil {
		return "", fmt.Errorf("encode refund: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build refund request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if client.apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+client.apiKey)
	}
	response, err := client.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("post refund: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, response.Body)
		_ = response.Body.Close()
	}()
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("payment endpoint returned %d", response.StatusCode)
	}
	var decoded refundResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode refund response: %w", err)
	}
	if decoded.RefundID == "" {
		return "", fmt.Errorf("payment endpoint returned no refund id")
	}
	client.logger.Info("refund issued",
		zap.String("refund_id", decoded.RefundID),
		zap.Int64("amount_cents", amountCents.Int64()))
	return decoded.RefundID, nil
}

// DryRunPayments fabricates refund ids without touching a payment
// processor. Used in development deployments with no payment endpoint.
type DryRunPayments struct {
	logger *zap.Logger
}

// NewDryRunPayments builds a dry-run payment gateway.
func NewDryRunPayments(logger *zap.Logger) *DryRunPayments {
	return &DryRunPayments{logger: logger}
}

// Refund logs the request and returns a generated refund id.
func (payments *DryRunPayments) Refund(ctx context.Context, chargeReference string, amountCents claims.AmountCents, reason string) (string, error) {
	refundID := "dryrun-" + uuid.NewString()
	payments.logger.Info("refund (dry run)",
		zap.String("refund_id", refundID),
		zap.String("charge_reference", chargeReference),
		zap.Int64("amount_cents", amountCents.Int64()))
	return refundID, nil
}

var (
	_ claims.PaymentGateway = (*RefundClient)(nil)
	_ claims.PaymentGateway = (*DryRunPayments)(nil)
)
