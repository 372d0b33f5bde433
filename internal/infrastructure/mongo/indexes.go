package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionNames groups the collections whose indexes EnsureIndexes manages.
type CollectionNames struct {
	Listings string
	Reviews  string
	Users    string
}

// EnsureIndexes はユーザー名の一意性とレビュー・リスティングの検索用インデックスを作成する。
// 既存インデックスがあれば何もしないため、起動のたびに呼んでよい。
func EnsureIndexes(ctx context.Context, db *mongo.Database, names CollectionNames) error {
	if _, err := db.Collection(names.Users).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("username_unique"),
	}); err != nil {
		return fmt.Errorf("users: %w", err)
	}
	if _, err := db.Collection(names.Reviews).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "listing", Value: 1}},
	}); err != nil {
		return fmt.Errorf("reviews: %w", err)
	}
	if _, err := db.Collection(names.Listings).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "location", Value: 1}}},
		{Keys: bson.D{{Key: "owner", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("listings: %w", err)
	}
	return nil
}
