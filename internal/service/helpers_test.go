package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Isadevans/lucro-backend/internal/models"
	"github.com/Isadevans/lucro-backend/internal/repository"
)

func strPtr(s string) *string { return &s }

// seedPayment stores a waiting_payment order for transactionID with one
// product carrying a client id and one without.
func seedPayment(t *testing.T, store *repository.MemoryStore, transactionID int64) *models.Payment {
	t.Helper()
	ctx := context.Background()

	customer := &models.Customer{Name: "Ana Souza", Email: "ana@example.com", Phone: "11999999999", Document: "12345678900"}
	require.NoError(t, store.CreateCustomer(ctx, customer))

	course := &models.Product{ExternalID: "course-1", Name: "Course", Quantity: 1, PriceInCents: 5000}
	ebook := &models.Product{Name: "Ebook", Quantity: 2, PriceInCents: 1000}
	require.NoError(t, store.CreateProduct(ctx, course))
	require.NoError(t, store.CreateProduct(ctx, ebook))

	payment := &models.Payment{
		TransactionID: transactionID,
		Platform:      models.DefaultPlatform,
		PaymentMethod: "pix",
		PaymentStatus: models.PaymentStatusWaitingPayment,
		Price:         70,
		Commission: models.Commission{
			TotalPriceInCents:     7000,
			GatewayFeeInCents:     300,
			UserCommissionInCents: 6700,
			Currency:              "BRL",
		},
		TrackingParameters: &models.TrackingParameters{UTMSource: strPtr("google"), UTMCampaign: strPtr("")},
		Customer:           customer,
		Products:           []models.Product{*course, *ebook},
	}
	require.NoError(t, store.CreatePayment(ctx, payment))
	return payment
}

func checkoutRequest() *models.CheckoutRequest {
	return &models.CheckoutRequest{
		PaymentMethod: "pix",
		Customer: models.CheckoutCustomer{
			Name:  "Ana Souza",
			Email: "ana@example.com",
			Phone: "11999999999",
		},
		Products: []models.CheckoutProduct{
			{ID: "course-1", Name: "Course", Quantity: 1, PriceInCents: 5000},
			{Name: "Ebook", Quantity: 2, PriceInCents: 1000},
		},
		Commission: models.Commission{TotalPriceInCents: 7000, GatewayFeeInCents: 300, UserCommissionInCents: 6700, Currency: "BRL"},
		Tracking:   &models.TrackingParameters{Src: strPtr("ig"), UTMSource: strPtr("instagram")},
	}
}

type fakeSyncer struct {
	UpdateAttributionFunc func(ctx context.Context, transactionID int64, newStatus string) bool
	calls                 []string
}

func (f *fakeSyncer) UpdateAttribution(ctx context.Context, transactionID int64, newStatus string) bool {
	f.calls = append(f.calls, newStatus)
	if f.UpdateAttributionFunc != nil {
		return f.UpdateAttributionFunc(ctx, transactionID, newStatus)
	}
	return true
}

type notification struct {
	room  string
	event string
	data  interface{}
}

type fakeNotifier struct {
	err  error
	sent []notification
}

func (f *fakeNotifier) Notify(ctx context.Context, room, event string, data interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, notification{room: room, event: event, data: data})
	return nil
}
