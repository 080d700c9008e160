// internal/service/gateway.go
package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Isadevans/lucro-backend/internal/metrics"
	"github.com/Isadevans/lucro-backend/internal/models"
)

const (
	defaultDocumentNumber = "17183516741"
	defaultDocumentType   = "cpf"
)

// GatewayError is a non-2xx answer from the gateway
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
}

// GatewayClient creates transactions on Black Payments
type GatewayClient struct {
	url         string
	publicKey   string
	secretKey   string
	postbackURL string
	httpClient  *http.Client
	logger      *zap.Logger
}

func NewGatewayClient(url, publicKey, secretKey, postbackURL string, timeout time.Duration, logger *zap.Logger) *GatewayClient {
	return &GatewayClient{
		url:         url,
		publicKey:   publicKey,
		secretKey:   secretKey,
		postbackURL: postbackURL,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

func (g *GatewayClient) Configured() bool {
	return g.publicKey != "" && g.secretKey != ""
}

func (g *GatewayClient) authorization() string {
	creds := base64.StdEncoding.EncodeToString([]byte(g.publicKey + ":" + g.secretKey))
	return "Basic " + creds
}

// NewTransactionRequest maps a checkout request onto the gateway's
// transaction body.
func (g *GatewayClient) NewTransactionRequest(req *models.CheckoutRequest, clientIP string) *models.BlackoutTransactionRequest {
	items := make([]models.BlackoutItemRequest, 0, len(req.Products))
	for _, p := range req.Products {
		items = append(items, models.BlackoutItemRequest{
			Title:     p.Name,
			UnitPrice: p.PriceInCents,
			Quantity:  p.Quantity,
			Tangible:  false,
		})
	}

	document := req.Customer.Document
	if document == "" {
		document = defaultDocumentNumber
	}

	return &models.BlackoutTransactionRequest{
		Amount:        req.Commission.TotalPriceInCents,
		PaymentMethod: req.PaymentMethod,
		Installments:  req.Installments,
		Card:          req.Card,
		Items:         items,
		Customer: models.BlackoutCustomerRequest{
			Name:        req.Customer.Name,
			Email:       req.Customer.Email,
			Document:    models.BlackoutDocument{Number: document, Type: defaultDocumentType},
			PhoneNumber: req.Customer.Phone,
		},
		PostbackURL: g.postbackURL,
		IP:          clientIP,
	}
}

// CreateTransaction submits the checkout to the gateway
func (g *GatewayClient) CreateTransaction(ctx context.Context, req *models.CheckoutRequest, clientIP string) (*models.BlackoutTransaction, error) {
	body, err := json.Marshal(g.NewTransactionRequest(req, clientIP))
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	httpReq.Header.Set("Authorization", g.authorization())
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")

	g.logger.Info("creating gateway transaction",
		zap.String("customer_email", req.Customer.Email),
		zap.String("payment_method", req.PaymentMethod))

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.GatewayRequests.WithLabelValues("rejected").Inc()
		return nil, &GatewayError{StatusCode: resp.StatusCode, Message: gatewayMessage(respBody)}
	}

	var tx models.BlackoutTransaction
	if err := json.Unmarshal(respBody, &tx); err != nil {
		metrics.GatewayRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if _, err := tx.TransactionID(); err != nil {
		metrics.GatewayRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("gateway response has no transaction id: %w", err)
	}

	metrics.GatewayRequests.WithLabelValues("success").Inc()
	g.logger.Info("gateway transaction created",
		zap.ByteString("transaction_id", tx.ID),
		zap.String("status", tx.Status))

	return &tx, nil
}

// gatewayMessage prefers the "message" field of an error body
func gatewayMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	if len(body) > maxLoggedBody {
		body = body[:maxLoggedBody]
	}
	return string(body)
}
