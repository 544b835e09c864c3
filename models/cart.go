package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cart is created lazily on first use and never deleted. A unique index
// on userId guarantees at most one cart per user.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// CartItem holds the quantity of one book in one cart. A unique index
// on (cartId, bookId) guarantees at most one row per pair; repeated
// adds merge into quantity instead of inserting.
type CartItem struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CartID   primitive.ObjectID `bson:"cartId" json:"-"`
	BookID   int                `bson:"bookId" json:"bookId"`
	Quantity int                `bson:"quantity" json:"quantity"`
	AddedAt  time.Time          `bson:"addedAt" json:"addedAt"`
}
