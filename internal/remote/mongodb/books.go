package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"bookapp/internal/remote"
)

type bookRecord struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	LocalID int64              `bson:"localId"`
	UserID  string             `bson:"userId"`

	Title        string  `bson:"title"`
	Author       string  `bson:"author"`
	Description  *string `bson:"description"`
	Category     string  `bson:"category"`
	IsFavorite   bool    `bson:"isFavorite"`
	IsDownloaded bool    `bson:"isDownloaded"`

	ImageURL      *string  `bson:"imageUrl"`
	Publisher     *string  `bson:"publisher"`
	PublishedDate *string  `bson:"publishedDate"`
	PageCount     *int     `bson:"pageCount"`
	ISBN          *string  `bson:"isbn"`
	Language      *string  `bson:"language"`
	Rating        *float64 `bson:"rating"`

	DateAdded    int64 `bson:"dateAdded"`
	LastModified int64 `bson:"lastModified"`
}

func toBookRecord(doc remote.BookDocument) bookRecord {
	return bookRecord{
		LocalID:       doc.LocalID,
		UserID:        doc.UserID,
		Title:         doc.Title,
		Author:        doc.Author,
		Description:   doc.Description,
		Category:      doc.Category,
		IsFavorite:    doc.IsFavorite,
		IsDownloaded:  doc.IsDownloaded,
		ImageURL:      doc.ImageURL,
		Publisher:     doc.Publisher,
		PublishedDate: doc.PublishedDate,
		PageCount:     doc.PageCount,
		ISBN:          doc.ISBN,
		Language:      doc.Language,
		Rating:        doc.Rating,
		DateAdded:     doc.DateAdded,
		LastModified:  doc.LastModified,
	}
}

func (r bookRecord) document() remote.BookDocument {
	return remote.BookDocument{
		ID:            r.ID.Hex(),
		LocalID:       r.LocalID,
		UserID:        r.UserID,
		Title:         r.Title,
		Author:        r.Author,
		Description:   r.Description,
		Category:      r.Category,
		IsFavorite:    r.IsFavorite,
		IsDownloaded:  r.IsDownloaded,
		ImageURL:      r.ImageURL,
		Publisher:     r.Publisher,
		PublishedDate: r.PublishedDate,
		PageCount:     r.PageCount,
		ISBN:          r.ISBN,
		Language:      r.Language,
		Rating:        r.Rating,
		DateAdded:     r.DateAdded,
		LastModified:  r.LastModified,
	}
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: malformed id %q", remote.ErrNotFound, id)
	}
	return oid, nil
}

func (s *MongoStore) InsertBook(ctx context.Context, doc remote.BookDocument) (string, error) {
	res, err := s.Books().InsertOne(ctx, toBookRecord(doc))
	if err != nil {
		return "", fmt.Errorf("failed to insert book document: %w", err)
	}
	id := res.InsertedID.(primitive.ObjectID).Hex()
	s.logger.Debug("Book document inserted", zap.String("id", id), zap.Int64("local_id", doc.LocalID))
	return id, nil
}

func (s *MongoStore) FindBookByLocalID(ctx context.Context, userID string, localID int64) (*remote.BookDocument, error) {
	var rec bookRecord
	err := s.Books().FindOne(ctx, bson.M{"userId": userID, "localId": localID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find book document: %w", err)
	}
	doc := rec.document()
	return &doc, nil
}

func (s *MongoStore) UpdateBook(ctx context.Context, id string, doc remote.BookDocument) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	res, err := s.Books().UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": toBookRecord(doc)})
	if err != nil {
		return fmt.Errorf("failed to update book document: %w", err)
	}
	if res.MatchedCount == 0 {
		return remote.ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteBook(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	if _, err := s.Books().DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("failed to delete book document: %w", err)
	}
	return nil
}

func (s *MongoStore) BooksByOwner(ctx context.Context, userID string) ([]remote.BookDocument, error) {
	cur, err := s.Books().Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(bson.M{"dateAdded": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to query book documents: %w", err)
	}
	defer cur.Close(ctx)

	var records []bookRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode book documents: %w", err)
	}

	docs := make([]remote.BookDocument, 0, len(records))
	for _, r := range records {
		docs = append(docs, r.document())
	}
	return docs, nil
}

func (s *MongoStore) SetBookLocalID(ctx context.Context, id string, localID int64) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	res, err := s.Books().UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"localId": localID}})
	if err != nil {
		return fmt.Errorf("failed to set book local id: %w", err)
	}
	if res.MatchedCount == 0 {
		return remote.ErrNotFound
	}
	return nil
}
