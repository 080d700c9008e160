package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Isadevans/lucro-backend/internal/models"
)

func seedPayment(t *testing.T, s *MemoryStore, transactionID int64) *models.Payment {
	t.Helper()
	ctx := context.Background()

	customer := &models.Customer{Name: "Ana", Email: "Ana@Example.com", Phone: "11999999999"}
	require.NoError(t, s.CreateCustomer(ctx, customer))

	first := &models.Product{ExternalID: "prod-1", Name: "Course", Quantity: 1, PriceInCents: 5000}
	second := &models.Product{Name: "Ebook", Quantity: 2, PriceInCents: 1000}
	require.NoError(t, s.CreateProduct(ctx, first))
	require.NoError(t, s.CreateProduct(ctx, second))

	source := "google"
	payment := &models.Payment{
		TransactionID:      transactionID,
		Platform:           models.DefaultPlatform,
		PaymentMethod:      "pix",
		PaymentStatus:      models.PaymentStatusWaitingPayment,
		Price:              70,
		Commission:         models.Commission{TotalPriceInCents: 7000, Currency: "BRL"},
		TrackingParameters: &models.TrackingParameters{UTMSource: &source},
		Customer:           customer,
		Products:           []models.Product{*first, *second},
	}
	require.NoError(t, s.CreatePayment(ctx, payment))
	return payment
}

func TestMemoryStoreCreateAndFind(t *testing.T) {
	s := NewMemoryStore()
	created := seedPayment(t, s, 1001)

	assert.NotZero(t, created.ID)
	assert.NotEmpty(t, created.DocumentID)
	assert.False(t, created.CreatedAt.IsZero())

	byTx, err := s.FindByTransactionID(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, created.DocumentID, byTx.DocumentID)
	require.NotNil(t, byTx.Customer)
	assert.Equal(t, "Ana", byTx.Customer.Name)
	require.Len(t, byTx.Products, 2)
	assert.Equal(t, "Course", byTx.Products[0].Name)
	assert.Equal(t, "Ebook", byTx.Products[1].Name)

	byDoc, err := s.FindByDocumentID(context.Background(), created.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), byDoc.TransactionID)
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.FindByTransactionID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	_, err = s.FindByDocumentID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	err = s.UpdatePaymentStatus(context.Background(), "missing", models.StatusUpdate{Status: "paid"})
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestMemoryStoreDuplicateTransaction(t *testing.T) {
	s := NewMemoryStore()
	seedPayment(t, s, 1001)

	err := s.CreatePayment(context.Background(), &models.Payment{TransactionID: 1001})
	assert.ErrorIs(t, err, ErrDuplicateTransaction)
}

func TestMemoryStoreUpdatePaymentStatus(t *testing.T) {
	s := NewMemoryStore()
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	created := seedPayment(t, s, 1001)

	approved := time.Date(2024, 3, 1, 11, 59, 0, 0, time.UTC)
	err := s.UpdatePaymentStatus(context.Background(), created.DocumentID, models.StatusUpdate{
		Status:          "paid",
		SetApprovedDate: true,
		ApprovedDate:    &approved,
	})
	require.NoError(t, err)

	got, err := s.FindByTransactionID(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatus("paid"), got.PaymentStatus)
	require.NotNil(t, got.ApprovedDate)
	assert.True(t, approved.Equal(*got.ApprovedDate))
	assert.Nil(t, got.RefundedAt)
	assert.Equal(t, fixed, got.UpdatedAt)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	seedPayment(t, s, 1001)

	got, err := s.FindByTransactionID(context.Background(), 1001)
	require.NoError(t, err)
	got.PaymentStatus = "tampered"
	*got.TrackingParameters.UTMSource = "tampered"

	again, err := s.FindByTransactionID(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusWaitingPayment, again.PaymentStatus)
	assert.Equal(t, "google", *again.TrackingParameters.UTMSource)
}

func TestMemoryStoreCustomerByEmailIsCaseInsensitive(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.CreateCustomer(ctx, &models.Customer{Name: "Ana", Email: "Ana@Example.com"}))

	found, err := s.FindCustomerByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana", found.Name)

	err = s.CreateCustomer(ctx, &models.Customer{Name: "Other", Email: "ANA@example.com"})
	assert.ErrorIs(t, err, ErrDuplicateCustomer)

	_, err = s.FindCustomerByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}
