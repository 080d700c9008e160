// internal/repository/payment_repository.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Isadevans/lucro-backend/internal/models"
)

const uniqueViolation = "23505"

// PostgresStore is the production store
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const paymentColumns = `
	p.id, p.document_id, p.transaction_id, p.platform, p.payment_method,
	p.payment_status, p.price, p.approved_date, p.refunded_at, p.commission,
	p.tracking_parameters, p.is_test, p.customer_id, p.created_at, p.updated_at,
	c.id, c.name, c.email, c.phone, c.document`

func (r *PostgresStore) FindByTransactionID(ctx context.Context, transactionID int64) (*models.Payment, error) {
	query := `SELECT` + paymentColumns + `
		FROM payments p
		LEFT JOIN customers c ON c.id = p.customer_id
		WHERE p.transaction_id = $1`

	return r.findOne(ctx, query, transactionID)
}

func (r *PostgresStore) FindByDocumentID(ctx context.Context, documentID string) (*models.Payment, error) {
	query := `SELECT` + paymentColumns + `
		FROM payments p
		LEFT JOIN customers c ON c.id = p.customer_id
		WHERE p.document_id = $1`

	return r.findOne(ctx, query, documentID)
}

func (r *PostgresStore) findOne(ctx context.Context, query string, arg interface{}) (*models.Payment, error) {
	payment := &models.Payment{}
	var (
		approvedDate, refundedAt sql.NullTime
		commission, tracking     []byte
		customerID               sql.NullInt64
		cID                      sql.NullInt64
		cName, cEmail            sql.NullString
		cPhone, cDocument        sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&payment.ID,
		&payment.DocumentID,
		&payment.TransactionID,
		&payment.Platform,
		&payment.PaymentMethod,
		&payment.PaymentStatus,
		&payment.Price,
		&approvedDate,
		&refundedAt,
		&commission,
		&tracking,
		&payment.IsTest,
		&customerID,
		&payment.CreatedAt,
		&payment.UpdatedAt,
		&cID,
		&cName,
		&cEmail,
		&cPhone,
		&cDocument,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query payment: %w", err)
	}

	if approvedDate.Valid {
		payment.ApprovedDate = &approvedDate.Time
	}
	if refundedAt.Valid {
		payment.RefundedAt = &refundedAt.Time
	}
	if err := json.Unmarshal(commission, &payment.Commission); err != nil {
		return nil, fmt.Errorf("failed to decode commission: %w", err)
	}
	if len(tracking) > 0 {
		payment.TrackingParameters = &models.TrackingParameters{}
		if err := json.Unmarshal(tracking, payment.TrackingParameters); err != nil {
			return nil, fmt.Errorf("failed to decode tracking parameters: %w", err)
		}
	}
	if customerID.Valid {
		payment.CustomerID = customerID.Int64
	}
	if cID.Valid {
		payment.Customer = &models.Customer{
			ID:       cID.Int64,
			Name:     cName.String,
			Email:    cEmail.String,
			Phone:    cPhone.String,
			Document: cDocument.String,
		}
	}

	products, err := r.productsFor(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	payment.Products = products
	for _, p := range products {
		payment.ProductIDs = append(payment.ProductIDs, p.ID)
	}

	return payment, nil
}

func (r *PostgresStore) productsFor(ctx context.Context, paymentID int64) ([]models.Product, error) {
	query := `
		SELECT pr.id, pr.external_id, pr.name, pr.quantity, pr.price_in_cents
		FROM payment_products pp
		JOIN products pr ON pr.id = pp.product_id
		WHERE pp.payment_id = $1
		ORDER BY pp.position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		var externalID sql.NullString
		if err := rows.Scan(&p.ID, &externalID, &p.Name, &p.Quantity, &p.PriceInCents); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.ExternalID = externalID.String
		products = append(products, p)
	}

	return products, rows.Err()
}

// CreatePayment inserts the payment and its product links in one transaction
func (r *PostgresStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.DocumentID == "" {
		payment.DocumentID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now
	if payment.Customer != nil {
		payment.CustomerID = payment.Customer.ID
	}

	commission, err := json.Marshal(payment.Commission)
	if err != nil {
		return fmt.Errorf("failed to encode commission: %w", err)
	}
	// jsonb parameters go over the wire as text; []byte would be sent as bytea
	var tracking sql.NullString
	if payment.TrackingParameters != nil {
		raw, err := json.Marshal(payment.TrackingParameters)
		if err != nil {
			return fmt.Errorf("failed to encode tracking parameters: %w", err)
		}
		tracking = sql.NullString{String: string(raw), Valid: true}
	}
	var customerID sql.NullInt64
	if payment.CustomerID != 0 {
		customerID = sql.NullInt64{Int64: payment.CustomerID, Valid: true}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO payments (
			document_id, transaction_id, platform, payment_method, payment_status,
			price, approved_date, refunded_at, commission, tracking_parameters,
			is_test, customer_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`

	err = tx.QueryRowContext(ctx, query,
		payment.DocumentID,
		payment.TransactionID,
		payment.Platform,
		payment.PaymentMethod,
		payment.PaymentStatus,
		payment.Price,
		nullTime(payment.ApprovedDate),
		nullTime(payment.RefundedAt),
		string(commission),
		tracking,
		payment.IsTest,
		customerID,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Scan(&payment.ID)
	if isUniqueViolation(err) {
		return ErrDuplicateTransaction
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	payment.ProductIDs = payment.ProductIDs[:0]
	for i, p := range payment.Products {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO payment_products (payment_id, product_id, position) VALUES ($1, $2, $3)`,
			payment.ID, p.ID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to link product %d: %w", p.ID, err)
		}
		payment.ProductIDs = append(payment.ProductIDs, p.ID)
	}

	return tx.Commit()
}

func (r *PostgresStore) UpdatePaymentStatus(ctx context.Context, documentID string, update models.StatusUpdate) error {
	query := `
		UPDATE payments
		SET payment_status = $1,
			approved_date = CASE WHEN $2::boolean THEN $3::timestamptz ELSE approved_date END,
			refunded_at = CASE WHEN $4::boolean THEN $5::timestamptz ELSE refunded_at END,
			updated_at = $6
		WHERE document_id = $7
	`

	res, err := r.db.ExecContext(ctx, query,
		update.Status,
		update.SetApprovedDate,
		nullTime(update.ApprovedDate),
		update.SetRefundedAt,
		nullTime(update.RefundedAt),
		time.Now().UTC(),
		documentID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *PostgresStore) FindCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	query := `
		SELECT id, name, email, phone, document
		FROM customers WHERE LOWER(email) = LOWER($1)
		LIMIT 1
	`

	c := &models.Customer{}
	var phone, document sql.NullString
	err := r.db.QueryRowContext(ctx, query, email).Scan(&c.ID, &c.Name, &c.Email, &phone, &document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query customer: %w", err)
	}
	c.Phone = phone.String
	c.Document = document.String
	return c, nil
}

func (r *PostgresStore) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO customers (name, email, phone, document)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.Document,
	).Scan(&customer.ID)
	if isUniqueViolation(err) {
		return ErrDuplicateCustomer
	}
	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}

func (r *PostgresStore) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (external_id, name, quantity, price_in_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		product.ExternalID,
		product.Name,
		product.Quantity,
		product.PriceInCents,
	).Scan(&product.ID)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (r *PostgresStore) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresStore) Close() error {
	return r.db.Close()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
