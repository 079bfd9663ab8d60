package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"bookapp/internal/identity"
	"bookapp/internal/remote"
)

var (
	_ remote.Store          = (*MongoStore)(nil)
	_ identity.AccountStore = (*MongoStore)(nil)
)

type MongoStore struct {
	client   *mongo.Client
	database *mongo.Database
	logger   *zap.Logger
}

func NewMongoStore(ctx context.Context, uri, dbName string, logger *zap.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	logger.Info("Connected to MongoDB", zap.String("database", dbName))
	return &MongoStore{
		client:   client,
		database: client.Database(dbName),
		logger:   logger,
	}, nil
}

func (s *MongoStore) Books() *mongo.Collection {
	return s.database.Collection("books")
}

func (s *MongoStore) Users() *mongo.Collection {
	return s.database.Collection("users")
}

func (s *MongoStore) Bookstores() *mongo.Collection {
	return s.database.Collection("bookstores")
}

func (s *MongoStore) Accounts() *mongo.Collection {
	return s.database.Collection("accounts")
}

// EnsureIndexes creates the lookup indexes. Safe to call on every start.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.Books().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "localId", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create books index: %w", err)
	}

	_, err = s.Accounts().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "googleId", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create accounts indexes: %w", err)
	}

	s.logger.Debug("MongoDB indexes ensured")
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongodb: %w", err)
	}
	s.logger.Info("Disconnected from MongoDB")
	return nil
}
