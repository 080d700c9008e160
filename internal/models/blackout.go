// internal/models/blackout.go
package models

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Gateway statuses as reported by Black Payments
const (
	BlackoutStatusPending    = "pending"
	BlackoutStatusPaid       = "paid"
	BlackoutStatusRefused    = "refused"
	BlackoutStatusRefunded   = "refunded"
	BlackoutStatusChargeback = "chargeback"
)

var ErrInvalidTransactionID = errors.New("invalid transaction ID")

// BlackoutWebhook is the postback envelope sent on status changes
type BlackoutWebhook struct {
	Type     string              `json:"type"`
	URL      string              `json:"url"`
	ObjectID string              `json:"objectId"`
	Data     BlackoutTransaction `json:"data"`
}

// BlackoutTransaction is both the creation response and the webhook data.
// Fields the gateway types loosely are kept raw.
type BlackoutTransaction struct {
	ID                json.RawMessage   `json:"id"`
	TenantID          string            `json:"tenantId,omitempty"`
	CompanyID         int64             `json:"companyId,omitempty"`
	Amount            int64             `json:"amount"`
	Currency          string            `json:"currency,omitempty"`
	PaymentMethod     string            `json:"paymentMethod"`
	Status            string            `json:"status"`
	Installments      int               `json:"installments,omitempty"`
	PaidAt            *string           `json:"paidAt"`
	PaidAmount        int64             `json:"paidAmount,omitempty"`
	RefundedAt        *string           `json:"refundedAt"`
	RefundedAmount    int64             `json:"refundedAmount,omitempty"`
	PostbackURL       string            `json:"postbackUrl,omitempty"`
	Metadata          json.RawMessage   `json:"metadata,omitempty"`
	IP                string            `json:"ip,omitempty"`
	ExternalRef       json.RawMessage   `json:"externalRef,omitempty"`
	SecureID          string            `json:"secureId,omitempty"`
	SecureURL         string            `json:"secureUrl,omitempty"`
	CreatedAt         string            `json:"createdAt,omitempty"`
	UpdatedAt         string            `json:"updatedAt,omitempty"`
	Traceable         bool              `json:"traceable,omitempty"`
	AuthorizationCode json.RawMessage   `json:"authorizationCode,omitempty"`
	Items             []BlackoutItem    `json:"items,omitempty"`
	Customer          *BlackoutCustomer `json:"customer,omitempty"`
	Fee               *BlackoutFee      `json:"fee,omitempty"`
	Splits            []BlackoutSplit   `json:"splits,omitempty"`
	Pix               *BlackoutPix      `json:"pix,omitempty"`
	Boleto            json.RawMessage   `json:"boleto,omitempty"`
	Card              json.RawMessage   `json:"card,omitempty"`
	RefusedReason     json.RawMessage   `json:"refusedReason,omitempty"`
}

// TransactionID parses the gateway id, which arrives as a JSON number or,
// from some senders, as a numeric string.
func (t *BlackoutTransaction) TransactionID() (int64, error) {
	raw := strings.TrimSpace(string(t.ID))
	if raw == "" || raw == "null" {
		return 0, ErrInvalidTransactionID
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrInvalidTransactionID
	}
	return id, nil
}

type BlackoutItem struct {
	Title       string          `json:"title"`
	Quantity    int             `json:"quantity"`
	Tangible    bool            `json:"tangible"`
	UnitPrice   int64           `json:"unitPrice"`
	ExternalRef json.RawMessage `json:"externalRef,omitempty"`
}

type BlackoutCustomer struct {
	ID        int64             `json:"id,omitempty"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Phone     string            `json:"phone,omitempty"`
	Birthdate string            `json:"birthdate,omitempty"`
	Document  *BlackoutDocument `json:"document,omitempty"`
}

type BlackoutDocument struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type BlackoutFee struct {
	NetAmount     int64   `json:"netAmount"`
	EstimatedFee  int64   `json:"estimatedFee"`
	FixedAmount   int64   `json:"fixedAmount"`
	SpreadPercent float64 `json:"spreadPercent"`
	Currency      string  `json:"currency"`
}

type BlackoutSplit struct {
	Amount              int64 `json:"amount"`
	NetAmount           int64 `json:"netAmount"`
	RecipientID         int64 `json:"recipientId,omitempty"`
	ChargeProcessingFee bool  `json:"chargeProcessingFee,omitempty"`
}

type BlackoutPix struct {
	QRCode         string          `json:"qrcode,omitempty"`
	End2EndID      json.RawMessage `json:"end2EndId,omitempty"`
	ReceiptURL     json.RawMessage `json:"receiptUrl,omitempty"`
	ExpirationDate string          `json:"expirationDate,omitempty"`
}

// BlackoutTransactionRequest is the body of the transaction-creation call
type BlackoutTransactionRequest struct {
	Amount        int64                   `json:"amount"`
	PaymentMethod string                  `json:"paymentMethod"`
	Installments  int                     `json:"installments,omitempty"`
	Card          json.RawMessage         `json:"card,omitempty"`
	Items         []BlackoutItemRequest   `json:"items"`
	Customer      BlackoutCustomerRequest `json:"customer"`
	PostbackURL   string                  `json:"postbackUrl"`
	IP            string                  `json:"ip,omitempty"`
}

type BlackoutItemRequest struct {
	Title     string `json:"title"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Tangible  bool   `json:"tangible"`
}

type BlackoutCustomerRequest struct {
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Document    BlackoutDocument `json:"document"`
	PhoneNumber string           `json:"phone_number,omitempty"`
}
