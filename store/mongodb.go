package store

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sentinel errors shared by all stores; handlers map them to HTTP codes.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateLogin = errors.New("login already taken")
)

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(ctx context.Context, uri, dbName string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	log.Println("Connected to MongoDB")
	return &DB{
		Client:   client,
		Database: client.Database(dbName),
	}, nil
}

func (db *DB) Users() *mongo.Collection {
	return db.Database.Collection("users")
}

func (db *DB) Books() *mongo.Collection {
	return db.Database.Collection("books")
}

func (db *DB) Carts() *mongo.Collection {
	return db.Database.Collection("carts")
}

func (db *DB) CartItems() *mongo.Collection {
	return db.Database.Collection("cart_items")
}

func (db *DB) Sessions() *mongo.Collection {
	return db.Database.Collection("sessions")
}

// EnsureIndexes creates the unique indexes the get-or-create paths rely
// on. Enforcing uniqueness here, not with application-level
// check-then-insert, is what keeps concurrent first-time adds from
// producing duplicate carts or cart items.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	if _, err := db.Users().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "login", Value: 1}},
		Options: unique,
	}); err != nil {
		return err
	}
	if _, err := db.Carts().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: unique,
	}); err != nil {
		return err
	}
	_, err := db.CartItems().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "cartId", Value: 1}, {Key: "bookId", Value: 1}},
		Options: unique,
	})
	return err
}

func (db *DB) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.Client.Disconnect(ctx)
}
