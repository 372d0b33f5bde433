package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sngm3741/wanderlust/api/internal/config"
	mongodoc "github.com/sngm3741/wanderlust/api/internal/infrastructure/mongo"
	"github.com/sngm3741/wanderlust/api/internal/server"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env を読み込めませんでした (環境変数のみを使用します): %v", err)
	}
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.MongoURI).SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		cfg.ServerLog.Fatalf("MongoDB 接続に失敗しました: %v", err)
	}
	// 起動時に到達できなくても落とさない。リクエスト単位で 503 を返す。
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		cfg.ServerLog.Printf("MongoDB に到達できません: %v", err)
	}

	if err := mongodoc.EnsureIndexes(ctx, client.Database(cfg.MongoDatabase), mongodoc.CollectionNames{
		Listings: cfg.ListingCollection,
		Reviews:  cfg.ReviewCollection,
		Users:    cfg.UserCollection,
	}); err != nil {
		cfg.ServerLog.Printf("インデックス作成に失敗しました: %v", err)
	}

	var redisClient *redis.Client
	if cfg.Geocoder.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Geocoder.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cfg.ServerLog.Printf("Redis に接続できないためジオコーディングキャッシュを無効化します: %v", err)
			_ = redisClient.Close()
			redisClient = nil
		}
	}

	app := server.New(cfg, client, redisClient)
	if err := app.Run(); err != nil {
		log.Fatalf("サーバー起動に失敗: %v", err)
	}
}
