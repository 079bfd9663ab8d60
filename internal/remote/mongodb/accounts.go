package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"bookapp/internal/identity"
)

type accountRecord struct {
	UID          string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash,omitempty"`
	GoogleID     string    `bson:"googleId,omitempty"`
	DisplayName  string    `bson:"displayName,omitempty"`
	CreatedAt    time.Time `bson:"createdAt"`
}

func (r accountRecord) account() *identity.Account {
	return &identity.Account{
		UID:          r.UID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		GoogleID:     r.GoogleID,
		DisplayName:  r.DisplayName,
		CreatedAt:    r.CreatedAt,
	}
}

func (s *MongoStore) findAccount(ctx context.Context, filter bson.M) (*identity.Account, error) {
	var rec accountRecord
	err := s.Accounts().FindOne(ctx, filter).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return rec.account(), nil
}

func (s *MongoStore) AccountByEmail(ctx context.Context, email string) (*identity.Account, error) {
	return s.findAccount(ctx, bson.M{"email": email})
}

func (s *MongoStore) AccountByGoogleID(ctx context.Context, googleID string) (*identity.Account, error) {
	if googleID == "" {
		return nil, nil
	}
	return s.findAccount(ctx, bson.M{"googleId": googleID})
}

func (s *MongoStore) AccountByUID(ctx context.Context, uid string) (*identity.Account, error) {
	return s.findAccount(ctx, bson.M{"_id": uid})
}

func (s *MongoStore) CreateAccount(ctx context.Context, account identity.Account) error {
	rec := accountRecord{
		UID:          account.UID,
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		GoogleID:     account.GoogleID,
		DisplayName:  account.DisplayName,
		CreatedAt:    account.CreatedAt,
	}
	if _, err := s.Accounts().InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return identity.ErrEmailInUse
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *MongoStore) LinkGoogleID(ctx context.Context, uid, googleID string) error {
	_, err := s.Accounts().UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$set": bson.M{"googleId": googleID}})
	if err != nil {
		return fmt.Errorf("failed to link google id: %w", err)
	}
	return nil
}

func (s *MongoStore) DeleteAccount(ctx context.Context, uid string) error {
	if _, err := s.Accounts().DeleteOne(ctx, bson.M{"_id": uid}); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}
