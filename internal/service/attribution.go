// internal/service/attribution.go
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Isadevans/lucro-backend/internal/metrics"
	"github.com/Isadevans/lucro-backend/internal/models"
)

const maxLoggedBody = 4 << 10

// AttributionClient upserts orders in the attribution service. Sends are
// best effort: failures are logged and reported as false, never retried.
type AttributionClient struct {
	url        string
	token      string
	builder    *PayloadBuilder
	httpClient *http.Client
	logger     *zap.Logger
}

func NewAttributionClient(url, token string, builder *PayloadBuilder, timeout time.Duration, logger *zap.Logger) *AttributionClient {
	return &AttributionClient{
		url:        url,
		token:      token,
		builder:    builder,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *AttributionClient) Configured() bool {
	return c.token != ""
}

// Send posts the payload. Returns false without any I/O when no token is
// configured.
func (c *AttributionClient) Send(ctx context.Context, payload *models.AttributionPayload) bool {
	if !c.Configured() {
		c.logger.Error("attribution api token is not configured")
		metrics.AttributionSyncs.WithLabelValues("unconfigured").Inc()
		return false
	}

	log := c.logger.With(
		zap.String("order_id", payload.OrderID),
		zap.String("status", string(payload.Status)))

	body, err := json.Marshal(payload)
	if err != nil {
		log.Error("failed to encode attribution payload", zap.Error(err))
		metrics.AttributionSyncs.WithLabelValues("error").Inc()
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		log.Error("failed to build attribution request", zap.Error(err))
		metrics.AttributionSyncs.WithLabelValues("error").Inc()
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-token", c.token)

	log.Info("updating order in attribution service")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("failed to reach attribution service", zap.Error(err))
		metrics.AttributionSyncs.WithLabelValues("error").Inc()
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
		log.Error("attribution service rejected order",
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response", respBody))
		metrics.AttributionSyncs.WithLabelValues("rejected").Inc()
		return false
	}

	log.Info("order updated in attribution service")
	metrics.AttributionSyncs.WithLabelValues("success").Inc()
	return true
}

// UpdateAttribution rebuilds the order from the store with newStatus and
// sends it.
func (c *AttributionClient) UpdateAttribution(ctx context.Context, transactionID int64, newStatus string) bool {
	payload, err := c.builder.BuildAttributionPayload(ctx, transactionID, newStatus)
	if err != nil {
		c.logger.Warn("could not build attribution payload",
			zap.Int64("transaction_id", transactionID),
			zap.Error(err))
		metrics.AttributionSyncs.WithLabelValues("build_failed").Inc()
		return false
	}
	return c.Send(ctx, payload)
}

// SendCheckout sends the first version of an order straight after checkout
func (c *AttributionClient) SendCheckout(ctx context.Context, source CheckoutSource) bool {
	payload, err := c.builder.Build(ctx, source, "")
	if err != nil {
		c.logger.Error("could not build checkout attribution payload", zap.Error(err))
		return false
	}
	return c.Send(ctx, payload)
}

