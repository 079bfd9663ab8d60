package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bookapp/internal/models"
)

type bookstoreRecord struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Name             string             `bson:"name"`
	Address          string             `bson:"address"`
	Lat              float64            `bson:"latitude"`
	Lng              float64            `bson:"longitude"`
	Description      *string            `bson:"description,omitempty"`
	Website          *string            `bson:"website,omitempty"`
	PhoneNumber      *string            `bson:"phoneNumber,omitempty"`
	AssociatedBookID *int64             `bson:"associatedBookId,omitempty"`
	DateAdded        int64              `bson:"dateAdded"`
}

func (s *MongoStore) ListBookstores(ctx context.Context) ([]models.BookstoreLocation, error) {
	cur, err := s.Bookstores().Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"name": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to query bookstores: %w", err)
	}
	defer cur.Close(ctx)

	var records []bookstoreRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode bookstores: %w", err)
	}

	stores := make([]models.BookstoreLocation, 0, len(records))
	for _, r := range records {
		stores = append(stores, models.BookstoreLocation{
			ID:               r.ID.Hex(),
			Name:             r.Name,
			Address:          r.Address,
			Latitude:         r.Lat,
			Longitude:        r.Lng,
			Description:      r.Description,
			Website:          r.Website,
			PhoneNumber:      r.PhoneNumber,
			AssociatedBookID: r.AssociatedBookID,
			DateAdded:        r.DateAdded,
		})
	}
	return stores, nil
}

func (s *MongoStore) AddBookstore(ctx context.Context, loc models.BookstoreLocation) (string, error) {
	rec := bookstoreRecord{
		Name:             loc.Name,
		Address:          loc.Address,
		Lat:              loc.Latitude,
		Lng:              loc.Longitude,
		Description:      loc.Description,
		Website:          loc.Website,
		PhoneNumber:      loc.PhoneNumber,
		AssociatedBookID: loc.AssociatedBookID,
		DateAdded:        loc.DateAdded,
	}
	if rec.DateAdded == 0 {
		rec.DateAdded = models.NowMillis()
	}
	res, err := s.Bookstores().InsertOne(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("failed to insert bookstore: %w", err)
	}
	return res.InsertedID.(primitive.ObjectID).Hex(), nil
}
