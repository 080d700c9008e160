// internal/repository/mongo_repository.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Isadevans/lucro-backend/internal/models"
)

const (
	paymentsCollection  = "payments"
	customersCollection = "customers"
	productsCollection  = "products"
	countersCollection  = "counters"
)

// MongoStore keeps payments as documents. Integer ids come from a counters
// collection so every store exposes the same identifiers.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := &MongoStore{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(connectCtx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	indexes := map[string][]mongo.IndexModel{
		paymentsCollection: {
			{Keys: bson.D{{Key: "transactionId", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "documentId", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "paymentStatus", Value: 1}}},
		},
		customersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).
				SetCollation(&options.Collation{Locale: "en", Strength: 2})},
		},
	}

	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func (s *MongoStore) FindByTransactionID(ctx context.Context, transactionID int64) (*models.Payment, error) {
	return s.findOne(ctx, bson.M{"transactionId": transactionID})
}

func (s *MongoStore) FindByDocumentID(ctx context.Context, documentID string) (*models.Payment, error) {
	return s.findOne(ctx, bson.M{"documentId": documentID})
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Collection(paymentsCollection).FindOne(ctx, filter).Decode(&payment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query payment: %w", err)
	}

	if payment.CustomerID != 0 {
		var customer models.Customer
		err := s.db.Collection(customersCollection).FindOne(ctx, bson.M{"id": payment.CustomerID}).Decode(&customer)
		switch {
		case err == nil:
			payment.Customer = &customer
		case !errors.Is(err, mongo.ErrNoDocuments):
			return nil, fmt.Errorf("failed to query customer: %w", err)
		}
	}

	payment.Products, err = s.products(ctx, payment.ProductIDs)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// products loads ids preserving the order they were attached in
func (s *MongoStore) products(ctx context.Context, ids []int64) ([]models.Product, error) {
	products := make([]models.Product, 0, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	cursor, err := s.db.Collection(productsCollection).Find(ctx, bson.M{"id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	var found []models.Product
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	byID := make(map[int64]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

func (s *MongoStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	id, err := s.nextID(ctx, paymentsCollection)
	if err != nil {
		return err
	}

	payment.ID = id
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
	payment.ProductIDs = payment.ProductIDs[:0]
	for _, p := range payment.Products {
		payment.ProductIDs = append(payment.ProductIDs, p.ID)
	}

	_, err = s.db.Collection(paymentsCollection).InsertOne(ctx, payment)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateTransaction
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (s *MongoStore) UpdatePaymentStatus(ctx context.Context, documentID string, update models.StatusUpdate) error {
	set := bson.M{
		"paymentStatus": update.Status,
		"updatedAt":     time.Now().UTC(),
	}
	if update.SetApprovedDate {
		set["approvedDate"] = update.ApprovedDate
	}
	if update.SetRefundedAt {
		set["refundedAt"] = update.RefundedAt
	}

	res, err := s.db.Collection(paymentsCollection).UpdateOne(ctx,
		bson.M{"documentId": documentID},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (s *MongoStore) FindCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	filter := bson.M{"email": bson.M{"$regex": "^" + regexp.QuoteMeta(email) + "$", "$options": "i"}}

	err := s.db.Collection(customersCollection).FindOne(ctx, filter).Decode(&customer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query customer: %w", err)
	}
	return &customer, nil
}

func (s *MongoStore) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	id, err := s.nextID(ctx, customersCollection)
	if err != nil {
		return err
	}
	customer.ID = id

	_, err = s.db.Collection(customersCollection).InsertOne(ctx, customer)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateCustomer
	}
	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}

func (s *MongoStore) CreateProduct(ctx context.Context, product *models.Product) error {
	id, err := s.nextID(ctx, productsCollection)
	if err != nil {
		return err
	}
	product.ID = id

	if _, err := s.db.Collection(productsCollection).InsertOne(ctx, product); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// nextID atomically increments the named sequence
func (s *MongoStore) nextID(ctx context.Context, sequence string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": sequence},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", sequence, err)
	}
	return counter.Seq, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
