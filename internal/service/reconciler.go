// internal/service/reconciler.go
package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Isadevans/lucro-backend/internal/metrics"
	"github.com/Isadevans/lucro-backend/internal/models"
	"github.com/Isadevans/lucro-backend/internal/repository"
)

const (
	PaymentConfirmationEvent   = "payment-confirmation"
	paymentConfirmationMessage = "Payment confirmed successfully!"
)

// AttributionSyncer pushes the current state of an order downstream
type AttributionSyncer interface {
	UpdateAttribution(ctx context.Context, transactionID int64, newStatus string) bool
}

// Notifier delivers an event to every subscriber of a room
type Notifier interface {
	Notify(ctx context.Context, room, event string, data interface{}) error
}

type PaymentConfirmation struct {
	Message    string `json:"message"`
	DocumentID string `json:"documentId"`
}

// Result reports how far a reconciliation got
type Result struct {
	Found     bool
	Persisted bool
	Notified  bool
	Synced    bool
}

// OK is the webhook's success criterion: the attribution service holds the
// new status.
func (r Result) OK() bool {
	return r.Synced
}

type Reconciler struct {
	store    repository.PaymentStore
	syncer   AttributionSyncer
	notifier Notifier
	locker   Locker
	logger   *zap.Logger
	now      func() time.Time
}

// NewReconciler wires a reconciler. notifier may be nil.
func NewReconciler(store repository.PaymentStore, syncer AttributionSyncer, notifier Notifier, locker Locker, logger *zap.Logger) *Reconciler {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &Reconciler{
		store:    store,
		syncer:   syncer,
		notifier: notifier,
		locker:   locker,
		logger:   logger,
		now:      time.Now,
	}
}

// Reconcile applies a gateway status change to the stored payment, tells
// room subscribers about confirmed payments and resyncs attribution.
// Failures never escape; they are logged and reflected in the Result.
func (r *Reconciler) Reconcile(ctx context.Context, transactionID int64, newStatus string, data *models.BlackoutTransaction) Result {
	var result Result
	log := r.logger.With(zap.Int64("transaction_id", transactionID), zap.String("status", newStatus))

	unlock, err := r.locker.Lock(ctx, strconv.FormatInt(transactionID, 10))
	if err != nil {
		log.Error("failed to acquire transaction lock", zap.Error(err))
		metrics.Reconciliations.WithLabelValues("lock_failed").Inc()
		return result
	}
	defer unlock()

	payment, err := r.store.FindByTransactionID(ctx, transactionID)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		log.Warn("no payment found for transaction")
		metrics.Reconciliations.WithLabelValues("not_found").Inc()
		return result
	}
	if err != nil {
		log.Error("failed to load payment", zap.Error(err))
		metrics.Reconciliations.WithLabelValues("error").Inc()
		return result
	}
	result.Found = true
	log = log.With(zap.String("document_id", payment.DocumentID))

	update := models.StatusUpdate{Status: models.PaymentStatus(newStatus)}
	switch newStatus {
	case models.BlackoutStatusPaid:
		if paidAt := r.paidAt(data, log); paidAt != nil {
			update.SetApprovedDate = true
			update.ApprovedDate = paidAt
		}
	case models.BlackoutStatusRefunded:
		refundedAt := r.now().UTC()
		update.SetRefundedAt = true
		update.RefundedAt = &refundedAt
	}

	if err := r.store.UpdatePaymentStatus(ctx, payment.DocumentID, update); err != nil {
		log.Error("failed to update payment status", zap.Error(err))
		metrics.Reconciliations.WithLabelValues("error").Inc()
		return result
	}
	result.Persisted = true
	log.Info("payment status updated")

	if newStatus == models.BlackoutStatusPaid && r.notifier != nil {
		confirmation := PaymentConfirmation{
			Message:    paymentConfirmationMessage,
			DocumentID: payment.DocumentID,
		}
		if err := r.notifier.Notify(ctx, payment.DocumentID, PaymentConfirmationEvent, confirmation); err != nil {
			log.Warn("failed to notify payment confirmation", zap.Error(err))
		} else {
			result.Notified = true
		}
	}

	result.Synced = r.syncer.UpdateAttribution(ctx, transactionID, newStatus)

	metrics.Reconciliations.WithLabelValues(outcome(result)).Inc()
	return result
}

func (r *Reconciler) paidAt(data *models.BlackoutTransaction, log *zap.Logger) *time.Time {
	if data == nil || data.PaidAt == nil || *data.PaidAt == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, *data.PaidAt)
	if err != nil {
		log.Warn("ignoring unparseable paidAt", zap.String("paid_at", *data.PaidAt), zap.Error(err))
		return nil
	}
	t = t.UTC()
	return &t
}

func outcome(r Result) string {
	switch {
	case r.Synced:
		return "synced"
	case r.Persisted:
		return "persisted"
	default:
		return "failed"
	}
}
