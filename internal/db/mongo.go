package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names used by the payment engine.
const (
	KontraksCollection      = "kontraks"
	TerminsCollection       = "termins"
	InvoicesCollection      = "invoices"
	TaskResponsesCollection = "task_responses"
)

// Unique index names on invoices. The insert path tells them apart by name in
// duplicate key errors: a step collision is final, a number collision retries.
const (
	UniqInvoiceStepIndex   = "uniq_kontrak_termin_step_live"
	UniqInvoiceNumberIndex = "uniq_invoice_number"
)

// ConnectDB initializes and returns a MongoDB client and database instance.
func ConnectDB(uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the primary node
	ctxPing, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	fmt.Println("Successfully connected to MongoDB!")

	return client, db, nil
}

// DisconnectDB closes the MongoDB client connection.
func DisconnectDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	fmt.Println("MongoDB connection closed.")
	return nil
}

// EnsureIndexes creates the indexes the payment engine relies on. Safe to call
// on every startup; Mongo treats identical index specs as a no-op.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	// At most one non-cancelled invoice per (kontrak_id, termin_step). This is
	// the serialization point for concurrent generate requests: the second
	// insert fails with a duplicate key error. partialFilterExpression does
	// not support $ne, hence the $in over the two live statuses (requires
	// MongoDB >= 6.0 for $in in partial indexes).
	_, err := db.Collection(InvoicesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "kontrak_id", Value: 1}, {Key: "termin_step", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetName(UniqInvoiceStepIndex).
			SetPartialFilterExpression(bson.M{"status": bson.M{"$in": bson.A{"pending", "paid"}}}),
	})
	if err != nil {
		return fmt.Errorf("failed to create invoice uniqueness index: %w", err)
	}

	// Invoice numbers are globally unique. The sequence is read-max-plus-one,
	// so two generates in the same month can mint the same number; this index
	// fails the second insert, which retries with a fresh number.
	_, err = db.Collection(InvoicesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "invoice_number", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(UniqInvoiceNumberIndex),
	})
	if err != nil {
		return fmt.Errorf("failed to create invoice number index: %w", err)
	}

	_, err = db.Collection(TerminsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "kode_tipe", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_termin_kode_tipe"),
	})
	if err != nil {
		return fmt.Errorf("failed to create termin kode_tipe index: %w", err)
	}

	_, err = db.Collection(TaskResponsesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "kontrak_id", Value: 1}, {Key: "tahap", Value: 1}},
		Options: options.Index().SetName("idx_task_kontrak_tahap"),
	})
	if err != nil {
		return fmt.Errorf("failed to create task response index: %w", err)
	}

	return nil
}
