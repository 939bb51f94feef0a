package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

const (
	walletCollection      = "wallets"
	transactionCollection = "transactions"
)

// MongoStore is the production DocumentStore backed by MongoDB.
type MongoStore struct {
	client       *mongo.Client
	wallets      *mongo.Collection
	transactions *mongo.Collection
}

var _ DocumentStore = (*MongoStore)(nil)

// NewMongoStore connects to the given MongoDB URI and ensures the unique
// wallet-id index exists.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrPersistence, "connecting to document store")
	}

	db := client.Database(database)
	s := &MongoStore{
		client:       client,
		wallets:      db.Collection(walletCollection),
		transactions: db.Collection(transactionCollection),
	}

	// Wallet ids are globally unique; enforce it at the store level too.
	_, err = s.wallets.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "walletId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, dialerr.WrapWith(err, dialerr.ErrPersistence, "creating wallet index")
	}

	return s, nil
}

// InsertWallet stores a new wallet record.
func (s *MongoStore) InsertWallet(ctx context.Context, rec *WalletRecord) error {
	if _, err := s.wallets.InsertOne(ctx, rec); err != nil {
		return dialerr.WrapWith(err, dialerr.ErrPersistence, "inserting wallet %s", rec.WalletID)
	}
	return nil
}

// FindWalletByID returns the wallet with the given service wallet id.
func (s *MongoStore) FindWalletByID(ctx context.Context, walletID string) (*WalletRecord, error) {
	var rec WalletRecord
	err := s.wallets.FindOne(ctx, bson.M{"walletId": walletID}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, dialerr.WithDetails(dialerr.ErrWalletNotFound, map[string]string{
			"walletId": walletID,
		})
	}
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrPersistence, "finding wallet %s", walletID)
	}
	return &rec, nil
}

// CountWalletsByID returns how many records carry the given wallet id.
func (s *MongoStore) CountWalletsByID(ctx context.Context, walletID string) (int64, error) {
	n, err := s.wallets.CountDocuments(ctx, bson.M{"walletId": walletID})
	if err != nil {
		return 0, dialerr.WrapWith(err, dialerr.ErrPersistence, "counting wallet %s", walletID)
	}
	return n, nil
}

// InsertTransaction appends a transaction record.
func (s *MongoStore) InsertTransaction(ctx context.Context, rec *TransactionRecord) error {
	if _, err := s.transactions.InsertOne(ctx, rec); err != nil {
		return dialerr.WrapWith(err, dialerr.ErrPersistence, "inserting transaction")
	}
	return nil
}

// RecentBySender returns up to limit transactions for the sender, newest
// first.
func (s *MongoStore) RecentBySender(ctx context.Context, walletID string, limit int64) ([]TransactionRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.transactions.Find(ctx, bson.M{"senderWalletId": walletID}, opts)
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrPersistence, "querying transactions for %s", walletID)
	}
	defer cursor.Close(ctx)

	var out []TransactionRecord
	if err := cursor.All(ctx, &out); err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrPersistence, "decoding transactions for %s", walletID)
	}
	return out, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return dialerr.WrapWith(err, dialerr.ErrPersistence, "disconnecting document store")
	}
	return nil
}
