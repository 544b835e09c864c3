package store

import (
	"context"
	"time"

	"github.com/moteeees/library/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CartForUser fetches the user's cart, creating it when absent. The
// upsert plus the unique index on userId guarantee at most one cart per
// user even when two first-time requests race.
func (db *DB) CartForUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	var cart models.Cart
	err := db.Carts().FindOneAndUpdate(ctx,
		bson.M{"userId": userID},
		bson.M{"$setOnInsert": bson.M{"userId": userID, "createdAt": time.Now()}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&cart)
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (db *DB) CartByID(ctx context.Context, id primitive.ObjectID) (*models.Cart, error) {
	var cart models.Cart
	err := db.Carts().FindOne(ctx, bson.M{"_id": id}).Decode(&cart)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// UpsertCartItem merges delta into the (cart, book) item, creating it
// when absent. The new quantity is computed server-side as
// max(1, existing + delta) in one atomic write, so concurrent adds sum
// up and the quantity can never drop to zero through this path. Two
// racing first-time adds can both take the insert branch; the unique
// (cartId, bookId) index fails one of them and the retry turns it into
// a plain merge.
func (db *DB) UpsertCartItem(ctx context.Context, cartID primitive.ObjectID, bookID, delta int) (*models.CartItem, error) {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"cartId": cartID,
			"bookId": bookID,
			"quantity": bson.M{"$max": bson.A{1, bson.M{"$add": bson.A{
				bson.M{"$ifNull": bson.A{"$quantity", 0}},
				delta,
			}}}},
			"addedAt": bson.M{"$ifNull": bson.A{"$addedAt", "$$NOW"}},
		}}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var item models.CartItem
	err := db.CartItems().FindOneAndUpdate(ctx,
		bson.M{"cartId": cartID, "bookId": bookID}, update, opts).Decode(&item)
	if mongo.IsDuplicateKeyError(err) {
		err = db.CartItems().FindOneAndUpdate(ctx,
			bson.M{"cartId": cartID, "bookId": bookID}, update, opts).Decode(&item)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (db *DB) CartItemByID(ctx context.Context, id primitive.ObjectID) (*models.CartItem, error) {
	var item models.CartItem
	err := db.CartItems().FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ItemsInCart returns the cart's items oldest first.
func (db *DB) ItemsInCart(ctx context.Context, cartID primitive.ObjectID) ([]models.CartItem, error) {
	cur, err := db.CartItems().Find(ctx, bson.M{"cartId": cartID},
		options.Find().SetSort(bson.M{"addedAt": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var items []models.CartItem
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteCartItem removes one item. A second removal of the same id
// reports ErrNotFound; callers surface it rather than swallowing it.
func (db *DB) DeleteCartItem(ctx context.Context, id primitive.ObjectID) error {
	res, err := db.CartItems().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) CartsCount(ctx context.Context) (int64, error) {
	return db.Carts().CountDocuments(ctx, bson.M{})
}

func (db *DB) CartItemsCount(ctx context.Context) (int64, error) {
	return db.CartItems().CountDocuments(ctx, bson.M{})
}
