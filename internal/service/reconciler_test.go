package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Isadevans/lucro-backend/internal/models"
	"github.com/Isadevans/lucro-backend/internal/repository"
)

type failingLocker struct{}

func (failingLocker) Lock(ctx context.Context, key string) (func(), error) {
	return nil, errors.New("redis unavailable")
}

func newTestReconciler(store repository.PaymentStore, syncer AttributionSyncer, notifier Notifier) *Reconciler {
	r := NewReconciler(store, syncer, notifier, nil, zap.NewNop())
	r.now = func() time.Time { return fixedNow }
	return r
}

func webhookData(paidAt string) *models.BlackoutTransaction {
	data := &models.BlackoutTransaction{ID: json.RawMessage(`1001`)}
	if paidAt != "" {
		data.PaidAt = &paidAt
	}
	return data
}

func TestReconcilePaid(t *testing.T) {
	store := repository.NewMemoryStore()
	created := seedPayment(t, store, 1001)
	syncer := &fakeSyncer{}
	notifier := &fakeNotifier{}

	result := newTestReconciler(store, syncer, notifier).
		Reconcile(context.Background(), 1001, "paid", webhookData("2024-01-01T00:00:00Z"))

	assert.Equal(t, Result{Found: true, Persisted: true, Notified: true, Synced: true}, result)
	assert.True(t, result.OK())

	got, err := store.FindByTransactionID(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatus("paid"), got.PaymentStatus)
	require.NotNil(t, got.ApprovedDate)
	assert.True(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Equal(*got.ApprovedDate))

	require.Len(t, notifier.sent, 1)
	sent := notifier.sent[0]
	assert.Equal(t, created.DocumentID, sent.room)
	assert.Equal(t, "payment-confirmation", sent.event)
	assert.Equal(t, PaymentConfirmation{Message: "Payment confirmed successfully!", DocumentID: created.DocumentID}, sent.data)

	assert.Equal(t, []string{"paid"}, syncer.calls)
}

func TestReconcileMissingTransaction(t *testing.T) {
	store := repository.NewMemoryStore()
	syncer := &fakeSyncer{}
	notifier := &fakeNotifier{}

	result := newTestReconciler(store, syncer, notifier).
		Reconcile(context.Background(), 4242, "paid", webhookData(""))

	assert.Equal(t, Result{}, result)
	assert.False(t, result.OK())
	assert.Empty(t, syncer.calls, "no attribution call for unknown transactions")
	assert.Empty(t, notifier.sent)
}

func TestReconcileRefunded(t *testing.T) {
	store := repository.NewMemoryStore()
	created := seedPayment(t, store, 1001)
	approved := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdatePaymentStatus(context.Background(), created.DocumentID, models.StatusUpdate{
		Status: "paid", SetApprovedDate: true, ApprovedDate: &approved,
	}))
	notifier := &fakeNotifier{}

	result := newTestReconciler(store, &fakeSyncer{}, notifier).
		Reconcile(context.Background(), 1001, "refunded", webhookData(""))

	assert.Equal(t, Result{Found: true, Persisted: true, Synced: true}, result)
	assert.Empty(t, notifier.sent, "only paid transactions notify")

	got, err := store.FindByTransactionID(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatus("refunded"), got.PaymentStatus)
	require.NotNil(t, got.RefundedAt)
	assert.Equal(t, fixedNow, *got.RefundedAt)
	require.NotNil(t, got.ApprovedDate)
	assert.True(t, approved.Equal(*got.ApprovedDate))
}

func TestReconcileStoresRawStatus(t *testing.T) {
	store := repository.NewMemoryStore()
	seedPayment(t, store, 1001)

	result := newTestReconciler(store, &fakeSyncer{}, nil).
		Reconcile(context.Background(), 1001, "in_analysis", webhookData(""))
	assert.True(t, result.OK())

	got, err := store.FindByTransactionID(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatus("in_analysis"), got.PaymentStatus)
	assert.Nil(t, got.ApprovedDate)
}

func TestReconcileInvalidPaidAt(t *testing.T) {
	store := repository.NewMemoryStore()
	seedPayment(t, store, 1001)

	result := newTestReconciler(store, &fakeSyncer{}, nil).
		Reconcile(context.Background(), 1001, "paid", webhookData("yesterday"))

	assert.True(t, result.Persisted)
	assert.False(t, result.Notified, "no notifier configured")

	got, err := store.FindByTransactionID(context.Background(), 1001)
	require.NoError(t, err)
	assert.Nil(t, got.ApprovedDate)
}

func TestReconcileSyncFailure(t *testing.T) {
	store := repository.NewMemoryStore()
	seedPayment(t, store, 1001)
	syncer := &fakeSyncer{UpdateAttributionFunc: func(ctx context.Context, id int64, status string) bool { return false }}

	result := newTestReconciler(store, syncer, &fakeNotifier{}).
		Reconcile(context.Background(), 1001, "paid", webhookData(""))

	assert.True(t, result.Persisted)
	assert.True(t, result.Notified)
	assert.False(t, result.OK())
}

func TestReconcileNotifierFailure(t *testing.T) {
	store := repository.NewMemoryStore()
	seedPayment(t, store, 1001)

	result := newTestReconciler(store, &fakeSyncer{}, &fakeNotifier{err: errors.New("hub closed")}).
		Reconcile(context.Background(), 1001, "paid", webhookData(""))

	assert.False(t, result.Notified)
	assert.True(t, result.OK(), "notification failures do not fail the reconciliation")
}

func TestReconcileLockFailure(t *testing.T) {
	store := repository.NewMemoryStore()
	seedPayment(t, store, 1001)
	syncer := &fakeSyncer{}

	r := NewReconciler(store, syncer, nil, failingLocker{}, zap.NewNop())
	result := r.Reconcile(context.Background(), 1001, "paid", webhookData(""))

	assert.Equal(t, Result{}, result)
	assert.Empty(t, syncer.calls)
}

type failingUpdateStore struct {
	*repository.MemoryStore
}

func (s failingUpdateStore) UpdatePaymentStatus(ctx context.Context, documentID string, update models.StatusUpdate) error {
	return errors.New("db down")
}

func TestReconcileUpdateFailureStopsBeforeNotifyAndSync(t *testing.T) {
	store := repository.NewMemoryStore()
	seedPayment(t, store, 1001)
	syncer := &fakeSyncer{}
	notifier := &fakeNotifier{}

	result := newTestReconciler(failingUpdateStore{store}, syncer, notifier).
		Reconcile(context.Background(), 1001, "paid", webhookData("2024-01-01T00:00:00Z"))

	assert.Equal(t, Result{Found: true}, result)
	assert.False(t, result.OK())
	assert.Empty(t, notifier.sent)
	assert.Empty(t, syncer.calls)

	got, err := store.FindByTransactionID(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusWaitingPayment, got.PaymentStatus)
}

func TestReconcilePaidWithoutPaidAtKeepsApprovedDate(t *testing.T) {
	approved := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for _, paidAt := range []string{"", "yesterday"} {
		t.Run("paidAt="+paidAt, func(t *testing.T) {
			store := repository.NewMemoryStore()
			created := seedPayment(t, store, 1001)
			require.NoError(t, store.UpdatePaymentStatus(context.Background(), created.DocumentID, models.StatusUpdate{
				Status: models.PaymentStatusWaitingPayment, SetApprovedDate: true, ApprovedDate: &approved,
			}))

			result := newTestReconciler(store, &fakeSyncer{}, nil).
				Reconcile(context.Background(), 1001, "paid", webhookData(paidAt))
			assert.True(t, result.Persisted)

			got, err := store.FindByTransactionID(context.Background(), 1001)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)
			require.NotNil(t, got.ApprovedDate)
			assert.True(t, approved.Equal(*got.ApprovedDate))
		})
	}
}

type countingSyncer struct {
	active, max int32
}

func (s *countingSyncer) UpdateAttribution(ctx context.Context, transactionID int64, newStatus string) bool {
	n := atomic.AddInt32(&s.active, 1)
	defer atomic.AddInt32(&s.active, -1)
	for {
		cur := atomic.LoadInt32(&s.max)
		if n <= cur || atomic.CompareAndSwapInt32(&s.max, cur, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	return true
}

func TestReconcileSerializesSameTransaction(t *testing.T) {
	store := repository.NewMemoryStore()
	seedPayment(t, store, 1001)
	syncer := &countingSyncer{}
	r := newTestReconciler(store, syncer, nil)

	var wg sync.WaitGroup
	for _, status := range []string{"paid", "refunded", "chargeback", "paid", "refused"} {
		wg.Add(1)
		go func(status string) {
			defer wg.Done()
			r.Reconcile(context.Background(), 1001, status, webhookData(""))
		}(status)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&syncer.max))
}
