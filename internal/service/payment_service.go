// internal/service/payment_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/Isadevans/lucro-backend/internal/config"
	"github.com/Isadevans/lucro-backend/internal/metrics"
	"github.com/Isadevans/lucro-backend/internal/models"
	"github.com/Isadevans/lucro-backend/internal/repository"
)

const customerCacheSize = 1024

// TransactionGateway creates transactions on the payment gateway
type TransactionGateway interface {
	Configured() bool
	CreateTransaction(ctx context.Context, req *models.CheckoutRequest, clientIP string) (*models.BlackoutTransaction, error)
}

// CheckoutAttribution reports a freshly created order
type CheckoutAttribution interface {
	Configured() bool
	SendCheckout(ctx context.Context, source CheckoutSource) bool
}

type PaymentService struct {
	store       repository.Store
	gateway     TransactionGateway
	attribution CheckoutAttribution
	idempotency *IdempotencyCache
	customers   *lru.Cache[string, models.Customer]
	environment string
	logger      *zap.Logger
}

// NewPaymentService wires the checkout. idempotency may be nil.
func NewPaymentService(store repository.Store, gateway TransactionGateway, attribution CheckoutAttribution, idempotency *IdempotencyCache, environment string, logger *zap.Logger) *PaymentService {
	customers, _ := lru.New[string, models.Customer](customerCacheSize)
	return &PaymentService{
		store:       store,
		gateway:     gateway,
		attribution: attribution,
		idempotency: idempotency,
		customers:   customers,
		environment: environment,
		logger:      logger,
	}
}

// CreatePayment runs a checkout: gateway transaction, persistence, then the
// initial attribution send. Errors are *AppError.
func (s *PaymentService) CreatePayment(ctx context.Context, req *models.CheckoutRequest, clientIP, idempotencyKey string) (*models.CheckoutResponse, error) {
	start := time.Now()
	defer func() {
		metrics.CheckoutDuration.Observe(time.Since(start).Seconds())
	}()

	if !s.gateway.Configured() || !s.attribution.Configured() {
		s.logger.Error("gateway keys or attribution token are not configured")
		return nil, configurationError()
	}

	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	if idempotencyKey != "" && s.idempotency != nil {
		if cached, ok := s.idempotency.Get(ctx, idempotencyKey); ok {
			s.logger.Info("replaying checkout", zap.String("idempotency_key", idempotencyKey))
			return cached, nil
		}
	}

	tx, err := s.gateway.CreateTransaction(ctx, req, clientIP)
	if err != nil {
		s.logger.Error("failed to process payment with gateway",
			zap.String("customer_email", req.Customer.Email),
			zap.Error(err))
		return nil, gatewayError(err)
	}
	transactionID, _ := tx.TransactionID()
	log := s.logger.With(zap.Int64("transaction_id", transactionID))

	payment, err := s.savePayment(ctx, req, tx, transactionID)
	if err != nil {
		log.Error("failed to save payment", zap.Error(err))
		return nil, persistenceError(err)
	}
	log.Info("payment saved", zap.String("document_id", payment.DocumentID))

	source := CheckoutSource{Request: req, Transaction: tx, Payment: payment}
	if !s.attribution.SendCheckout(ctx, source) {
		log.Error("payment processed but attribution send failed")
	}

	resp := &models.CheckoutResponse{
		Data: payment,
		Meta: models.CheckoutMeta{
			BlackoutResponse: models.GatewaySummary{
				TransactionID: transactionID,
				Status:        tx.Status,
				PaymentMethod: tx.PaymentMethod,
				SecureURL:     tx.SecureURL,
			},
			Pix: tx.Pix,
		},
	}

	if idempotencyKey != "" && s.idempotency != nil {
		s.idempotency.Put(ctx, idempotencyKey, resp)
	}
	return resp, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, documentID string) (*models.Payment, error) {
	return s.store.FindByDocumentID(ctx, documentID)
}

func (s *PaymentService) GetPaymentByTransaction(ctx context.Context, transactionID int64) (*models.Payment, error) {
	return s.store.FindByTransactionID(ctx, transactionID)
}

func validateCheckout(req *models.CheckoutRequest) *AppError {
	switch {
	case strings.TrimSpace(req.PaymentMethod) == "":
		return validationError("paymentMethod is required")
	case strings.TrimSpace(req.Customer.Name) == "":
		return validationError("customer.name is required")
	case strings.TrimSpace(req.Customer.Email) == "":
		return validationError("customer.email is required")
	case len(req.Products) == 0:
		return validationError("at least one product is required")
	case req.Commission.TotalPriceInCents <= 0:
		return validationError("commission.totalPriceInCents must be positive")
	}
	return nil
}

func (s *PaymentService) savePayment(ctx context.Context, req *models.CheckoutRequest, tx *models.BlackoutTransaction, transactionID int64) (*models.Payment, error) {
	customer, err := s.findOrCreateCustomer(ctx, req.Customer)
	if err != nil {
		return nil, err
	}

	products := make([]models.Product, 0, len(req.Products))
	for _, p := range req.Products {
		product := models.Product{
			ExternalID:   p.ID,
			Name:         p.Name,
			Quantity:     p.Quantity,
			PriceInCents: p.PriceInCents,
		}
		if err := s.store.CreateProduct(ctx, &product); err != nil {
			return nil, fmt.Errorf("failed to create product %q: %w", p.Name, err)
		}
		products = append(products, product)
	}

	platform := req.Platform
	if platform == "" {
		platform = models.DefaultPlatform
	}

	payment := &models.Payment{
		TransactionID: transactionID,
		Platform:      platform,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: InitialPaymentStatus(tx.Status),
		Price:         float64(req.Commission.TotalPriceInCents) / 100,
		Commission:    req.Commission,
		IsTest:        s.environment != config.EnvironmentProduction,
		Customer:      customer,
		Products:      products,
		CreatedAt:     parseGatewayTime(tx.CreatedAt, time.Now()).UTC(),
	}
	if req.Tracking != nil {
		tracking := req.Tracking.Normalized()
		payment.TrackingParameters = &tracking
	}
	if tx.Status == models.BlackoutStatusPaid {
		approved := time.Now().UTC()
		if tx.PaidAt != nil {
			approved = parseGatewayTime(*tx.PaidAt, approved).UTC()
		}
		payment.ApprovedDate = &approved
	}

	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) findOrCreateCustomer(ctx context.Context, in models.CheckoutCustomer) (*models.Customer, error) {
	key := strings.ToLower(strings.TrimSpace(in.Email))
	if cached, ok := s.customers.Get(key); ok {
		return &cached, nil
	}

	existing, err := s.store.FindCustomerByEmail(ctx, key)
	if err == nil {
		s.logger.Debug("reusing customer", zap.Int64("customer_id", existing.ID))
		s.customers.Add(key, *existing)
		return existing, nil
	}
	if !errors.Is(err, repository.ErrCustomerNotFound) {
		return nil, err
	}

	customer := &models.Customer{
		Name:     in.Name,
		Email:    strings.TrimSpace(in.Email),
		Phone:    in.Phone,
		Document: in.Document,
	}
	err = s.store.CreateCustomer(ctx, customer)
	if errors.Is(err, repository.ErrDuplicateCustomer) {
		// lost a race with a concurrent checkout for the same email
		customer, err = s.store.FindCustomerByEmail(ctx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	s.logger.Info("customer created", zap.Int64("customer_id", customer.ID))
	s.customers.Add(key, *customer)
	return customer, nil
}
