// internal/repository/repository.go
package repository

import (
	"context"
	"errors"

	"github.com/Isadevans/lucro-backend/internal/models"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrDuplicateTransaction = errors.New("payment for transaction already exists")
	ErrDuplicateCustomer    = errors.New("customer with email already exists")
)

// PaymentStore holds payment records. Finders return the payment with its
// customer and products resolved.
type PaymentStore interface {
	FindByTransactionID(ctx context.Context, transactionID int64) (*models.Payment, error)
	FindByDocumentID(ctx context.Context, documentID string) (*models.Payment, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	UpdatePaymentStatus(ctx context.Context, documentID string, update models.StatusUpdate) error
}

type CustomerStore interface {
	FindCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) error
}

type ProductStore interface {
	CreateProduct(ctx context.Context, product *models.Product) error
}

// Store is the full persistence surface used by the server
type Store interface {
	PaymentStore
	CustomerStore
	ProductStore
	Ping(ctx context.Context) error
	Close() error
}
