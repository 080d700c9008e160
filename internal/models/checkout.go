// internal/models/checkout.go
package models

import "encoding/json"

type CheckoutRequest struct {
	Platform      string              `json:"platform"`
	PaymentMethod string              `json:"paymentMethod" binding:"required"`
	Card          json.RawMessage     `json:"card,omitempty"`
	Installments  int                 `json:"installments,omitempty" binding:"min=0"`
	Customer      CheckoutCustomer    `json:"customer"`
	Products      []CheckoutProduct   `json:"products" binding:"required,min=1,dive"`
	Commission    Commission          `json:"commission"`
	Tracking      *TrackingParameters `json:"tracking"`
}

type CheckoutCustomer struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Document string `json:"document"`
	Phone    string `json:"phone"`
	Country  string `json:"country"`
}

type CheckoutProduct struct {
	ID           string `json:"id"`
	Name         string `json:"name" binding:"required"`
	Quantity     int    `json:"quantity" binding:"min=1"`
	PriceInCents int64  `json:"priceInCents" binding:"min=0"`
}

type CheckoutResponse struct {
	Data *Payment     `json:"data"`
	Meta CheckoutMeta `json:"meta"`
}

type CheckoutMeta struct {
	BlackoutResponse GatewaySummary `json:"blackoutResponse"`
	Pix              *BlackoutPix   `json:"pix"`
}

type GatewaySummary struct {
	TransactionID int64  `json:"transactionId"`
	Status        string `json:"status"`
	PaymentMethod string `json:"paymentMethod"`
	SecureURL     string `json:"secureUrl"`
}
