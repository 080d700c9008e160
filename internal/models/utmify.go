// internal/models/utmify.go
package models

// AttributionStatus is the attribution service's status vocabulary
type AttributionStatus string

const (
	AttributionWaitingPayment AttributionStatus = "waiting_payment"
	AttributionPaid           AttributionStatus = "paid"
	AttributionRefused        AttributionStatus = "refused"
	AttributionRefunded       AttributionStatus = "refunded"
	AttributionChargedback    AttributionStatus = "chargedback"
)

// AttributionPayload is the complete order sent to the attribution
// service's upsert endpoint. Every field is always present.
type AttributionPayload struct {
	OrderID            string                `json:"orderId"`
	Platform           string                `json:"platform"`
	PaymentMethod      string                `json:"paymentMethod"`
	Status             AttributionStatus     `json:"status"`
	CreatedAt          string                `json:"createdAt"`
	ApprovedDate       *string               `json:"approvedDate"`
	RefundedAt         *string               `json:"refundedAt"`
	Customer           AttributionCustomer   `json:"customer"`
	Products           []AttributionProduct  `json:"products"`
	TrackingParameters TrackingParameters    `json:"trackingParameters"`
	Commission         AttributionCommission `json:"commission"`
	IsTest             bool                  `json:"isTest"`
}

type AttributionCustomer struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Phone    *string `json:"phone"`
	Document *string `json:"document"`
}

type AttributionProduct struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	PlanID       *string `json:"planId"`
	PlanName     *string `json:"planName"`
	Quantity     int     `json:"quantity"`
	PriceInCents int64   `json:"priceInCents"`
}

type AttributionCommission struct {
	TotalPriceInCents     int64   `json:"totalPriceInCents"`
	GatewayFeeInCents     int64   `json:"gatewayFeeInCents"`
	UserCommissionInCents int64   `json:"userCommissionInCents"`
	Currency              *string `json:"currency"`
}
