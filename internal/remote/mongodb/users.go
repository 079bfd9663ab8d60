package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bookapp/internal/remote"
)

type userRecord struct {
	UID              string  `bson:"_id"`
	FirstName        string  `bson:"firstName"`
	LastName         string  `bson:"lastName"`
	Email            string  `bson:"email"`
	PhoneNumber      *string `bson:"phoneNumber,omitempty"`
	ProfileImagePath *string `bson:"profileImagePath,omitempty"`
	DateCreated      int64   `bson:"dateCreated"`
	LastLogin        int64   `bson:"lastLogin"`
}

func (r userRecord) document() remote.UserDocument {
	return remote.UserDocument{
		UID:              r.UID,
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		Email:            r.Email,
		PhoneNumber:      r.PhoneNumber,
		ProfileImagePath: r.ProfileImagePath,
		DateCreated:      r.DateCreated,
		LastLogin:        r.LastLogin,
	}
}

// PutUser inserts the profile on first sign-in; later calls only move
// lastLogin forward.
func (s *MongoStore) PutUser(ctx context.Context, doc remote.UserDocument) (bool, error) {
	update := bson.M{
		"$set": bson.M{"lastLogin": doc.LastLogin},
		"$setOnInsert": bson.M{
			"firstName":        doc.FirstName,
			"lastName":         doc.LastName,
			"email":            doc.Email,
			"phoneNumber":      doc.PhoneNumber,
			"profileImagePath": doc.ProfileImagePath,
			"dateCreated":      doc.DateCreated,
		},
	}
	res, err := s.Users().UpdateOne(ctx, bson.M{"_id": doc.UID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("failed to put user document: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

func (s *MongoStore) GetUser(ctx context.Context, uid string) (*remote.UserDocument, error) {
	var rec userRecord
	err := s.Users().FindOne(ctx, bson.M{"_id": uid}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user document: %w", err)
	}
	doc := rec.document()
	return &doc, nil
}

func (s *MongoStore) UpdateUser(ctx context.Context, doc remote.UserDocument) error {
	set := bson.M{
		"firstName":        doc.FirstName,
		"lastName":         doc.LastName,
		"email":            doc.Email,
		"phoneNumber":      doc.PhoneNumber,
		"profileImagePath": doc.ProfileImagePath,
	}
	res, err := s.Users().UpdateOne(ctx, bson.M{"_id": doc.UID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update user document: %w", err)
	}
	if res.MatchedCount == 0 {
		return remote.ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteUser(ctx context.Context, uid string) error {
	if _, err := s.Users().DeleteOne(ctx, bson.M{"_id": uid}); err != nil {
		return fmt.Errorf("failed to delete user document: %w", err)
	}
	return nil
}
