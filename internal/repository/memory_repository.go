// internal/repository/memory_repository.go
package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Isadevans/lucro-backend/internal/models"
)

// MemoryStore keeps everything in process. Used for local development and
// as the store behind service tests.
type MemoryStore struct {
	mu sync.RWMutex

	payments      map[int64]*models.Payment
	byTransaction map[int64]int64
	byDocument    map[string]int64
	customers     map[int64]*models.Customer
	byEmail       map[string]int64
	products      map[int64]*models.Product

	nextPaymentID  int64
	nextCustomerID int64
	nextProductID  int64

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		payments:      make(map[int64]*models.Payment),
		byTransaction: make(map[int64]int64),
		byDocument:    make(map[string]int64),
		customers:     make(map[int64]*models.Customer),
		byEmail:       make(map[string]int64),
		products:      make(map[int64]*models.Product),
		now:           time.Now,
	}
}

func (s *MemoryStore) FindByTransactionID(ctx context.Context, transactionID int64) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byTransaction[transactionID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return s.resolve(s.payments[id]), nil
}

func (s *MemoryStore) FindByDocumentID(ctx context.Context, documentID string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byDocument[documentID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return s.resolve(s.payments[id]), nil
}

func (s *MemoryStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byTransaction[payment.TransactionID]; exists {
		return ErrDuplicateTransaction
	}

	s.nextPaymentID++
	payment.ID = s.nextPaymentID
	if payment.DocumentID == "" {
		payment.DocumentID = uuid.NewString()
	}
	now := s.now()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now

	if payment.Customer != nil {
		payment.CustomerID = payment.Customer.ID
	}
	payment.ProductIDs = payment.ProductIDs[:0]
	for _, p := range payment.Products {
		payment.ProductIDs = append(payment.ProductIDs, p.ID)
	}

	stored := clonePayment(payment)
	stored.Customer = nil
	stored.Products = nil

	s.payments[stored.ID] = stored
	s.byTransaction[stored.TransactionID] = stored.ID
	s.byDocument[stored.DocumentID] = stored.ID
	return nil
}

func (s *MemoryStore) UpdatePaymentStatus(ctx context.Context, documentID string, update models.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byDocument[documentID]
	if !ok {
		return ErrPaymentNotFound
	}
	update.Apply(s.payments[id], s.now())
	return nil
}

func (s *MemoryStore) FindCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	c := *s.customers[id]
	return &c, nil
}

func (s *MemoryStore) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(customer.Email)
	if _, exists := s.byEmail[key]; exists {
		return ErrDuplicateCustomer
	}

	s.nextCustomerID++
	customer.ID = s.nextCustomerID
	c := *customer
	s.customers[c.ID] = &c
	s.byEmail[key] = c.ID
	return nil
}

func (s *MemoryStore) CreateProduct(ctx context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextProductID++
	product.ID = s.nextProductID
	p := *product
	s.products[p.ID] = &p
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// resolve returns a detached copy with customer and products attached.
// Callers must hold the read lock.
func (s *MemoryStore) resolve(stored *models.Payment) *models.Payment {
	p := clonePayment(stored)
	if c, ok := s.customers[p.CustomerID]; ok {
		customer := *c
		p.Customer = &customer
	}
	p.Products = make([]models.Product, 0, len(p.ProductIDs))
	for _, id := range p.ProductIDs {
		if product, ok := s.products[id]; ok {
			p.Products = append(p.Products, *product)
		}
	}
	return p
}

func clonePayment(p *models.Payment) *models.Payment {
	c := *p
	if p.ApprovedDate != nil {
		t := *p.ApprovedDate
		c.ApprovedDate = &t
	}
	if p.RefundedAt != nil {
		t := *p.RefundedAt
		c.RefundedAt = &t
	}
	if p.TrackingParameters != nil {
		tp := p.TrackingParameters.Normalized()
		c.TrackingParameters = &tp
	}
	c.ProductIDs = append([]int64(nil), p.ProductIDs...)
	return &c
}
