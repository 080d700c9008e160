// internal/service/status.go
package service

import "github.com/Isadevans/lucro-backend/internal/models"

var attributionStatuses = map[string]models.AttributionStatus{
	models.BlackoutStatusPending:    models.AttributionWaitingPayment,
	models.BlackoutStatusPaid:       models.AttributionPaid,
	models.BlackoutStatusRefused:    models.AttributionRefused,
	models.BlackoutStatusRefunded:   models.AttributionRefunded,
	models.BlackoutStatusChargeback: models.AttributionChargedback,
}

// CanonicalStatus maps a gateway status onto the attribution vocabulary.
// Matching is exact; anything else falls back to waiting_payment.
func CanonicalStatus(providerStatus string) models.AttributionStatus {
	if status, ok := attributionStatuses[providerStatus]; ok {
		return status
	}
	return models.AttributionWaitingPayment
}

// InitialPaymentStatus is the status persisted at checkout. Only the
// statuses a freshly created transaction can have are recognised.
func InitialPaymentStatus(gatewayStatus string) models.PaymentStatus {
	switch gatewayStatus {
	case models.BlackoutStatusPaid:
		return models.PaymentStatusPaid
	default:
		return models.PaymentStatusWaitingPayment
	}
}
