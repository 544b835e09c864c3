package store

import (
	"context"
	"errors"

	"github.com/moteeees/library/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateBook assigns the next catalog id (max existing + 1, or 1 when
// the collection is empty) and inserts the book. Deleted ids are never
// reused unless all rows are gone. The _id uniqueness check plus a
// retry covers two admins creating books at the same moment.
func (db *DB) CreateBook(ctx context.Context, book *models.Book) (int, error) {
	for attempt := 0; attempt < 3; attempt++ {
		maxID := 0
		var last models.Book
		err := db.Books().FindOne(ctx, bson.M{},
			options.FindOne().SetSort(bson.M{"_id": -1})).Decode(&last)
		if err == nil {
			maxID = last.ID
		} else if err != mongo.ErrNoDocuments {
			return 0, err
		}
		book.ID = maxID + 1
		_, err = db.Books().InsertOne(ctx, book)
		if err == nil {
			return book.ID, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return 0, err
		}
	}
	return 0, errors.New("could not allocate a book id")
}

// AllBooks returns the catalog ordered by id.
func (db *DB) AllBooks(ctx context.Context) ([]models.Book, error) {
	cur, err := db.Books().Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var books []models.Book
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (db *DB) BookByID(ctx context.Context, id int) (*models.Book, error) {
	var b models.Book
	err := db.Books().FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// BooksByIDs returns the books with the given catalog ids, keyed by id.
// Ids with no matching book are simply absent from the result.
func (db *DB) BooksByIDs(ctx context.Context, ids []int) (map[int]models.Book, error) {
	out := make(map[int]models.Book, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := db.Books().Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var books []models.Book
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	for _, b := range books {
		out[b.ID] = b
	}
	return out, nil
}

// UpdateBook replaces the mutable fields of an existing book.
func (db *DB) UpdateBook(ctx context.Context, id int, book *models.Book) error {
	res, err := db.Books().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"title":       book.Title,
		"author":      book.Author,
		"year":        book.Year,
		"publisher":   book.Publisher,
		"description": book.Description,
		"coverKey":    book.CoverKey,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBook is idempotent: deleting an absent id is a no-op success.
func (db *DB) DeleteBook(ctx context.Context, id int) error {
	_, err := db.Books().DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// BooksCount returns the number of books in the catalog.
func (db *DB) BooksCount(ctx context.Context) (int64, error) {
	return db.Books().CountDocuments(ctx, bson.M{})
}
