// internal/service/payload.go
package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Isadevans/lucro-backend/internal/config"
	"github.com/Isadevans/lucro-backend/internal/models"
	"github.com/Isadevans/lucro-backend/internal/repository"
)

// attributionTimeLayout is millisecond-precision UTC ISO-8601
const attributionTimeLayout = "2006-01-02T15:04:05.000Z"

const defaultPaymentMethod = "pix"

// OrderSnapshot is everything needed to describe an order to the
// attribution service, regardless of where it was read from.
type OrderSnapshot struct {
	TransactionID int64
	Platform      string
	PaymentMethod string
	Status        string
	CreatedAt     time.Time
	ApprovedDate  *time.Time
	IsTest        bool
	Customer      models.Customer
	Products      []SnapshotProduct
	Tracking      *models.TrackingParameters
	Commission    models.Commission
}

type SnapshotProduct struct {
	ID       string
	Name     string
	Quantity int
}

// PayloadSource yields the snapshot a payload is built from
type PayloadSource interface {
	Snapshot(ctx context.Context) (*OrderSnapshot, error)
}

// StoreSource reconstructs a snapshot from the persisted payment
type StoreSource struct {
	Store         repository.PaymentStore
	TransactionID int64
}

func (s StoreSource) Snapshot(ctx context.Context) (*OrderSnapshot, error) {
	payment, err := s.Store.FindByTransactionID(ctx, s.TransactionID)
	if err != nil {
		return nil, err
	}

	snapshot := &OrderSnapshot{
		TransactionID: payment.TransactionID,
		Platform:      payment.Platform,
		PaymentMethod: payment.PaymentMethod,
		Status:        string(payment.PaymentStatus),
		CreatedAt:     payment.CreatedAt,
		ApprovedDate:  payment.ApprovedDate,
		IsTest:        payment.IsTest,
		Tracking:      payment.TrackingParameters,
		Commission:    payment.Commission,
	}
	if payment.Customer != nil {
		snapshot.Customer = *payment.Customer
	}
	for _, p := range payment.Products {
		id := p.ExternalID
		if id == "" {
			id = strconv.FormatInt(p.ID, 10)
		}
		snapshot.Products = append(snapshot.Products, SnapshotProduct{ID: id, Name: p.Name, Quantity: p.Quantity})
	}
	return snapshot, nil
}

// CheckoutSource builds the snapshot from the checkout request and the
// gateway's creation response. Payment, when set, supplies store ids for
// products the client sent without one.
type CheckoutSource struct {
	Request     *models.CheckoutRequest
	Transaction *models.BlackoutTransaction
	Payment     *models.Payment
}

func (s CheckoutSource) Snapshot(ctx context.Context) (*OrderSnapshot, error) {
	transactionID, err := s.Transaction.TransactionID()
	if err != nil {
		return nil, err
	}

	snapshot := &OrderSnapshot{
		TransactionID: transactionID,
		Platform:      s.Request.Platform,
		PaymentMethod: s.Request.PaymentMethod,
		Status:        s.Transaction.Status,
		CreatedAt:     parseGatewayTime(s.Transaction.CreatedAt, time.Now()),
		Customer: models.Customer{
			Name:     s.Request.Customer.Name,
			Email:    s.Request.Customer.Email,
			Phone:    s.Request.Customer.Phone,
			Document: s.Request.Customer.Document,
		},
		Tracking:   s.Request.Tracking,
		Commission: s.Request.Commission,
	}
	if s.Transaction.Status == models.BlackoutStatusPaid && s.Transaction.UpdatedAt != "" {
		approved := parseGatewayTime(s.Transaction.UpdatedAt, time.Now())
		snapshot.ApprovedDate = &approved
	}
	if s.Payment != nil {
		snapshot.IsTest = s.Payment.IsTest
		snapshot.CreatedAt = s.Payment.CreatedAt
		if s.Payment.ApprovedDate != nil {
			snapshot.ApprovedDate = s.Payment.ApprovedDate
		}
	}

	for i, p := range s.Request.Products {
		id := p.ID
		if id == "" && s.Payment != nil && i < len(s.Payment.ProductIDs) {
			id = strconv.FormatInt(s.Payment.ProductIDs[i], 10)
		}
		snapshot.Products = append(snapshot.Products, SnapshotProduct{ID: id, Name: p.Name, Quantity: p.Quantity})
	}
	return snapshot, nil
}

// PayloadBuilder turns snapshots into attribution payloads. Both the
// checkout and the reconciliation paths go through Build so the rules
// below apply to every payload sent.
type PayloadBuilder struct {
	store       repository.PaymentStore
	environment string
	logger      *zap.Logger
	now         func() time.Time
}

func NewPayloadBuilder(store repository.PaymentStore, environment string, logger *zap.Logger) *PayloadBuilder {
	return &PayloadBuilder{
		store:       store,
		environment: environment,
		logger:      logger,
		now:         time.Now,
	}
}

// BuildAttributionPayload reconstructs the payload for a persisted payment.
// An empty statusOverride uses the persisted status. Returns
// repository.ErrPaymentNotFound when no payment has the transaction id.
func (b *PayloadBuilder) BuildAttributionPayload(ctx context.Context, transactionID int64, statusOverride string) (*models.AttributionPayload, error) {
	return b.Build(ctx, StoreSource{Store: b.store, TransactionID: transactionID}, statusOverride)
}

func (b *PayloadBuilder) Build(ctx context.Context, source PayloadSource, statusOverride string) (*models.AttributionPayload, error) {
	snapshot, err := source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	rawStatus := snapshot.Status
	if statusOverride != "" {
		rawStatus = statusOverride
	}
	status := CanonicalStatus(rawStatus)

	var approvedDate *string
	switch {
	case snapshot.ApprovedDate != nil:
		approvedDate = formatTime(*snapshot.ApprovedDate)
	case status == models.AttributionPaid:
		approvedDate = formatTime(b.now())
	}

	platform := snapshot.Platform
	if platform == "" {
		platform = models.DefaultPlatform
	}
	method := snapshot.PaymentMethod
	if method == "" {
		method = defaultPaymentMethod
	}

	products := make([]models.AttributionProduct, 0, len(snapshot.Products))
	for _, p := range snapshot.Products {
		products = append(products, models.AttributionProduct{
			ID:       p.ID,
			Name:     p.Name,
			Quantity: p.Quantity,
			// the attribution service derives revenue from the commission
			PriceInCents: 0,
		})
	}

	payload := &models.AttributionPayload{
		OrderID:       strconv.FormatInt(snapshot.TransactionID, 10),
		Platform:      platform,
		PaymentMethod: method,
		Status:        status,
		CreatedAt:     *formatTime(snapshot.CreatedAt),
		ApprovedDate:  approvedDate,
		RefundedAt:    nil,
		Customer: models.AttributionCustomer{
			Name:     snapshot.Customer.Name,
			Email:    snapshot.Customer.Email,
			Phone:    optional(snapshot.Customer.Phone),
			Document: optional(snapshot.Customer.Document),
		},
		Products:           products,
		TrackingParameters: snapshot.Tracking.Normalized(),
		Commission: models.AttributionCommission{
			TotalPriceInCents:     snapshot.Commission.TotalPriceInCents,
			GatewayFeeInCents:     snapshot.Commission.GatewayFeeInCents,
			UserCommissionInCents: snapshot.Commission.UserCommissionInCents,
			Currency:              optional(snapshot.Commission.Currency),
		},
		IsTest: snapshot.IsTest || b.environment != config.EnvironmentProduction,
	}

	b.logger.Debug("built attribution payload",
		zap.String("order_id", payload.OrderID),
		zap.String("status", string(payload.Status)))

	return payload, nil
}

func formatTime(t time.Time) *string {
	s := t.UTC().Format(attributionTimeLayout)
	return &s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseGatewayTime accepts the gateway's RFC 3339 timestamps
func parseGatewayTime(value string, fallback time.Time) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return fallback
	}
	return t
}
