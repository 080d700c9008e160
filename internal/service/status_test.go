package service

import (
	"testing"

	"github.com/Isadevans/lucro-backend/internal/models"
)

func TestCanonicalStatus(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		want     models.AttributionStatus
	}{
		{name: "pending", provider: "pending", want: models.AttributionWaitingPayment},
		{name: "paid", provider: "paid", want: models.AttributionPaid},
		{name: "refused", provider: "refused", want: models.AttributionRefused},
		{name: "refunded", provider: "refunded", want: models.AttributionRefunded},
		{name: "chargeback", provider: "chargeback", want: models.AttributionChargedback},
		{name: "unknown", provider: "in_analysis", want: models.AttributionWaitingPayment},
		{name: "empty", provider: "", want: models.AttributionWaitingPayment},
		{name: "case sensitive", provider: "PAID", want: models.AttributionWaitingPayment},
		{name: "padded", provider: " paid ", want: models.AttributionWaitingPayment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanonicalStatus(tt.provider)
			if got != tt.want {
				t.Errorf("CanonicalStatus(%q) = %v, want %v", tt.provider, got, tt.want)
			}
		})
	}
}

func TestInitialPaymentStatus(t *testing.T) {
	tests := []struct {
		gateway string
		want    models.PaymentStatus
	}{
		{gateway: "pending", want: models.PaymentStatusWaitingPayment},
		{gateway: "paid", want: models.PaymentStatusPaid},
		{gateway: "refused", want: models.PaymentStatusWaitingPayment},
		{gateway: "", want: models.PaymentStatusWaitingPayment},
	}

	for _, tt := range tests {
		t.Run(tt.gateway, func(t *testing.T) {
			if got := InitialPaymentStatus(tt.gateway); got != tt.want {
				t.Errorf("InitialPaymentStatus(%q) = %v, want %v", tt.gateway, got, tt.want)
			}
		})
	}
}
