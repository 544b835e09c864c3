package store

import (
	"context"

	"github.com/moteeees/library/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func (db *DB) CreateSession(ctx context.Context, session *models.Session) (primitive.ObjectID, error) {
	res, err := db.Sessions().InsertOne(ctx, session)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) SessionByID(ctx context.Context, id primitive.ObjectID) (*models.Session, error) {
	var s models.Session
	err := db.Sessions().FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (db *DB) DeleteSession(ctx context.Context, id primitive.ObjectID) error {
	_, err := db.Sessions().DeleteOne(ctx, bson.M{"_id": id})
	return err
}
