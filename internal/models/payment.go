// internal/models/payment.go
package models

import "time"

// PaymentStatus is the persisted status. Checkout writes the canonical
// vocabulary; webhooks overwrite it with the gateway's raw value.
type PaymentStatus string

const (
	PaymentStatusWaitingPayment PaymentStatus = "waiting_payment"
	PaymentStatusPaid           PaymentStatus = "paid"
	PaymentStatusRefused        PaymentStatus = "refused"
	PaymentStatusRefunded       PaymentStatus = "refunded"
	PaymentStatusChargedback    PaymentStatus = "chargedback"
)

const DefaultPlatform = "blackout"

type Payment struct {
	ID                 int64               `json:"id" bson:"id"`
	DocumentID         string              `json:"documentId" bson:"documentId"`
	TransactionID      int64               `json:"transactionId" bson:"transactionId"`
	Platform           string              `json:"platform" bson:"platform"`
	PaymentMethod      string              `json:"paymentMethod" bson:"paymentMethod"`
	PaymentStatus      PaymentStatus       `json:"paymentStatus" bson:"paymentStatus"`
	Price              float64             `json:"price" bson:"price"`
	ApprovedDate       *time.Time          `json:"approvedDate" bson:"approvedDate"`
	RefundedAt         *time.Time          `json:"refundedAt" bson:"refundedAt"`
	Commission         Commission          `json:"commission" bson:"commission"`
	TrackingParameters *TrackingParameters `json:"trackingParameters" bson:"trackingParameters"`
	IsTest             bool                `json:"isTest" bson:"isTest"`
	CustomerID         int64               `json:"-" bson:"customerId"`
	ProductIDs         []int64             `json:"-" bson:"productIds"`
	Customer           *Customer           `json:"customer,omitempty" bson:"-"`
	Products           []Product           `json:"products" bson:"-"`
	CreatedAt          time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// Commission amounts are minor currency units
type Commission struct {
	TotalPriceInCents     int64  `json:"totalPriceInCents" bson:"totalPriceInCents" binding:"gt=0"`
	GatewayFeeInCents     int64  `json:"gatewayFeeInCents" bson:"gatewayFeeInCents"`
	UserCommissionInCents int64  `json:"userCommissionInCents" bson:"userCommissionInCents"`
	Currency              string `json:"currency" bson:"currency"`
}

// TrackingParameters are the attribution fields captured at checkout. A nil
// field is serialized as null, never omitted.
type TrackingParameters struct {
	Src         *string `json:"src" bson:"src"`
	Sck         *string `json:"sck" bson:"sck"`
	UTMSource   *string `json:"utm_source" bson:"utm_source"`
	UTMCampaign *string `json:"utm_campaign" bson:"utm_campaign"`
	UTMMedium   *string `json:"utm_medium" bson:"utm_medium"`
	UTMContent  *string `json:"utm_content" bson:"utm_content"`
	UTMTerm     *string `json:"utm_term" bson:"utm_term"`
}

// Normalized returns a copy with empty strings turned into nulls. A nil
// receiver yields all-null parameters.
func (t *TrackingParameters) Normalized() TrackingParameters {
	if t == nil {
		return TrackingParameters{}
	}
	return TrackingParameters{
		Src:         nullable(t.Src),
		Sck:         nullable(t.Sck),
		UTMSource:   nullable(t.UTMSource),
		UTMCampaign: nullable(t.UTMCampaign),
		UTMMedium:   nullable(t.UTMMedium),
		UTMContent:  nullable(t.UTMContent),
		UTMTerm:     nullable(t.UTMTerm),
	}
}

func nullable(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

type Customer struct {
	ID       int64  `json:"id" bson:"id"`
	Name     string `json:"name" bson:"name"`
	Email    string `json:"email" bson:"email"`
	Phone    string `json:"phone" bson:"phone"`
	Document string `json:"document" bson:"document"`
}

type Product struct {
	ID           int64  `json:"id" bson:"id"`
	ExternalID   string `json:"externalId,omitempty" bson:"externalId"`
	Name         string `json:"name" bson:"name"`
	Quantity     int    `json:"quantity" bson:"quantity"`
	PriceInCents int64  `json:"priceInCents" bson:"priceInCents"`
}

// StatusUpdate is the only mutation allowed on a persisted payment. The
// Set* flags distinguish "leave unchanged" from "write this value".
type StatusUpdate struct {
	Status          PaymentStatus
	SetApprovedDate bool
	ApprovedDate    *time.Time
	SetRefundedAt   bool
	RefundedAt      *time.Time
}

// Apply mutates p in place. Stores without partial updates use it to
// keep the semantics identical.
func (u StatusUpdate) Apply(p *Payment, now time.Time) {
	p.PaymentStatus = u.Status
	if u.SetApprovedDate {
		p.ApprovedDate = u.ApprovedDate
	}
	if u.SetRefundedAt {
		p.RefundedAt = u.RefundedAt
	}
	p.UpdatedAt = now
}
