package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	accountapp "github.com/sngm3741/wanderlust/api/internal/account/application"
	accountdomain "github.com/sngm3741/wanderlust/api/internal/account/domain"
	mongodoc "github.com/sngm3741/wanderlust/api/internal/infrastructure/mongo"
	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type seedOptions struct {
	envFile         string
	userCount       int
	reviewCount     int
	dropCollections bool
	randomSeed      int64
}

type collections struct {
	listings string
	reviews  string
	users    string
}

type sampleListing struct {
	title       string
	description string
	price       int
	location    string
	country     string
	imageURL    string
	lon, lat    float64
}

var samples = []sampleListing{
	{"Cozy Beachfront Cottage", "Escape to this charming beachfront cottage for a relaxing getaway.", 1500, "Malibu", "United States", "https://images.unsplash.com/photo-1552733407-5d5c46c3bb3b?w=800", -118.7798, 34.0259},
	{"Modern Loft in Downtown", "Stay in the heart of the city in this stylish loft apartment.", 1200, "New York City", "United States", "https://images.unsplash.com/photo-1501785888041-af3ef285b470?w=800", -74.0060, 40.7128},
	{"Mountain Retreat", "Unplug and unwind in this peaceful mountain cabin.", 1000, "Aspen", "United States", "https://images.unsplash.com/photo-1571896349842-33c89424de2d?w=800", -106.8175, 39.1911},
	{"Historic Villa in Tuscany", "Experience the charm of Tuscany in this beautifully restored villa.", 2500, "Florence", "Italy", "https://images.unsplash.com/photo-1566073771259-6a8506099945?w=800", 11.2558, 43.7696},
	{"Secluded Treehouse Getaway", "Live among the treetops in this unique treehouse retreat.", 800, "Portland", "United States", "https://images.unsplash.com/photo-1488462237308-ecaa28b729d7?w=800", -122.6765, 45.5231},
	{"Beachfront Paradise", "Step out of your door onto the sandy beach.", 2000, "Cancun", "Mexico", "https://images.unsplash.com/photo-1571003123894-1f0594d2b5d9?w=800", -86.8515, 21.1619},
	{"Rustic Cabin by the Lake", "Spend your days fishing and kayaking on the serene lake.", 900, "Lake Tahoe", "United States", "https://images.unsplash.com/photo-1470165301023-58dab8118cc9?w=800", -120.0324, 39.0968},
	{"Luxury Penthouse with City Views", "Indulge in luxury living with panoramic city views.", 3500, "Los Angeles", "United States", "https://images.unsplash.com/photo-1622396481328-9b1b78cdd9fd?w=800", -118.2437, 34.0522},
	{"Ski-In/Ski-Out Chalet", "Hit the slopes right from your doorstep in this ski-in/ski-out chalet.", 3000, "Verbier", "Switzerland", "https://images.unsplash.com/photo-1502784444187-359ac186c5bb?w=800", 7.2286, 46.0961},
	{"Safari Lodge in the Serengeti", "Experience the thrill of the wild in a comfortable safari lodge.", 4000, "Serengeti National Park", "Tanzania", "https://images.unsplash.com/photo-1493246507139-91e8fad9978e?w=800", 34.8333, -2.3333},
	{"Historic Canal House", "Stay in a piece of history in this beautifully preserved canal house.", 1800, "Amsterdam", "Netherlands", "https://images.unsplash.com/photo-1504280390367-361c6d9f38f4?w=800", 4.9041, 52.3676},
	{"Private Island Retreat", "Have an entire island to yourself for a truly exclusive experience.", 10000, "Fiji", "Fiji", "https://images.unsplash.com/photo-1618140052121-39fc6db33972?w=800", 178.0650, -17.7134},
	{"Traditional Ryokan", "Sleep on tatami mats and soak in a private onsen.", 1600, "Kyoto", "Japan", "https://images.unsplash.com/photo-1545569341-9eb8b30979d9?w=800", 135.7681, 35.0116},
	{"Desert Oasis", "Relax in an oasis surrounded by golden dunes.", 2200, "Dubai", "United Arab Emirates", "https://images.unsplash.com/photo-1518684079-3c830dcef090?w=800", 55.2708, 25.2048},
	{"Mountain View Cabin in Banff", "Enjoy breathtaking mountain views from this cozy cabin.", 1500, "Banff", "Canada", "https://images.unsplash.com/photo-1521401830884-6c03c1c87ebb?w=800", -115.5708, 51.1784},
}

var comments = []string{
	"Amazing stay, would come back!",
	"Great location but a bit noisy at night.",
	"Exactly as pictured. The host was very responsive.",
	"Clean and comfortable.",
	"The view alone is worth the price.",
	"Check-in was confusing, otherwise fine.",
}

func main() {
	opts := parseFlags()

	if err := godotenv.Load(opts.envFile); err != nil {
		log.Printf("WARN: %s を読み込めませんでした: %v", opts.envFile, err)
	}

	cfg := collections{
		listings: envOrDefault("LISTING_COLLECTION", "listings"),
		reviews:  envOrDefault("REVIEW_COLLECTION", "reviews"),
		users:    envOrDefault("USER_COLLECTION", "users"),
	}

	mongoURI := firstNonEmpty(os.Getenv("MONGO_URI"), os.Getenv("MONGODB_URL"), os.Getenv("ATLASDB_URL"), "mongodb://127.0.0.1:27017")
	dbName := envOrDefault("MONGO_DB", "wanderlust")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("MongoDB 接続に失敗しました: %v", err)
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	db := client.Database(dbName)

	if opts.dropCollections {
		dropCollections(ctx, db, cfg)
		log.Printf("既存コレクションを削除しました")
	}

	if err := mongodoc.EnsureIndexes(ctx, db, mongodoc.CollectionNames{Listings: cfg.listings, Reviews: cfg.reviews, Users: cfg.users}); err != nil {
		log.Fatalf("インデックス作成に失敗しました: %v", err)
	}

	rng := rand.New(rand.NewSource(opts.randomSeed))

	userRepo := mongodoc.NewUserRepository(db, cfg.users)
	accounts := accountapp.NewAccountService(userRepo, accountapp.TokenConfig{
		Secret: []byte(envOrDefault("SESSION_SECRET", "seed-only-secret")),
		Issuer: envOrDefault("AUTH_JWT_ISSUER", "wanderlust"),
	})
	users, err := seedUsers(ctx, accounts, opts.userCount)
	if err != nil {
		log.Fatalf("ユーザーの作成に失敗しました: %v", err)
	}

	listingRepo := mongodoc.NewListingRepository(db, cfg.listings, cfg.reviews, cfg.users)
	listings, err := seedListings(ctx, listingRepo, rng, users)
	if err != nil {
		log.Fatalf("リスティングの挿入に失敗しました: %v", err)
	}

	reviewRepo := mongodoc.NewReviewRepository(db, cfg.reviews, cfg.listings)
	reviewTotal, err := seedReviews(ctx, reviewRepo, rng, listings, users, opts.reviewCount)
	if err != nil {
		log.Fatalf("レビューの挿入に失敗しました: %v", err)
	}

	log.Printf("Seed 完了: users=%d listings=%d reviews=%d", len(users), len(listings), reviewTotal)
	log.Printf("Mongo: %s / %s (password for seeded users: %q)", mongoURI, dbName, seedPassword)
}

const seedPassword = "wanderlust123"

func parseFlags() seedOptions {
	var opts seedOptions
	flag.StringVar(&opts.envFile, "env", ".env", "読み込む env ファイル")
	flag.IntVar(&opts.userCount, "users", 3, "生成するユーザー数")
	flag.IntVar(&opts.reviewCount, "reviews", 30, "生成するレビュー総数")
	flag.BoolVar(&opts.dropCollections, "drop", true, "既存コレクションを削除してから投入する")
	defaultSeed := time.Now().UnixNano()
	flag.Int64Var(&opts.randomSeed, "seed", defaultSeed, "乱数シード（再現用）")
	flag.Parse()

	if opts.userCount <= 0 {
		log.Fatal("users は 1 以上を指定してください")
	}
	if opts.reviewCount < 0 {
		opts.reviewCount = 0
	}
	return opts
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func dropCollections(ctx context.Context, db *mongo.Database, cfg collections) {
	for _, name := range []string{cfg.listings, cfg.reviews, cfg.users} {
		if err := db.Collection(name).Drop(ctx); err != nil {
			log.Printf("WARN: コレクション %s の削除に失敗: %v", name, err)
		}
	}
}

func seedUsers(ctx context.Context, accounts accountapp.AccountService, count int) ([]accountdomain.Account, error) {
	users := make([]accountdomain.Account, 0, count)
	for i := 1; i <= count; i++ {
		username := fmt.Sprintf("traveler%d", i)
		session, err := accounts.Signup(ctx, accountapp.SignupCommand{
			Username: username,
			Email:    username + "@example.com",
			Password: seedPassword,
		})
		if errors.Is(err, accountdomain.ErrUsernameTaken) {
			log.Printf("WARN: %s は既に存在するためスキップします", username)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", username, err)
		}
		users = append(users, session.Account)
	}
	if len(users) == 0 {
		return nil, errors.New("作成できたユーザーがいません (-drop=false の場合は既存ユーザー名と衝突しています)")
	}
	return users, nil
}

func seedListings(ctx context.Context, repo *mongodoc.ListingRepository, rng *rand.Rand, owners []accountdomain.Account) ([]domain.Listing, error) {
	listings := make([]domain.Listing, 0, len(samples))
	for _, sample := range samples {
		listing := domain.Listing{
			Title:       sample.title,
			Description: sample.description,
			Price:       sample.price,
			Location:    sample.location,
			Country:     sample.country,
			Image:       domain.Image{URL: sample.imageURL, Filename: "listingimage"},
			Geometry:    domain.PointGeometry(domain.Coordinate{Longitude: sample.lon, Latitude: sample.lat}),
			OwnerID:     owners[rng.Intn(len(owners))].ID,
		}
		if err := repo.Insert(ctx, &listing); err != nil {
			return nil, fmt.Errorf("%s: %w", sample.title, err)
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

func seedReviews(ctx context.Context, repo *mongodoc.ReviewRepository, rng *rand.Rand, listings []domain.Listing, authors []accountdomain.Account, total int) (int, error) {
	for i := 0; i < total; i++ {
		review := domain.Review{
			ListingID: listings[rng.Intn(len(listings))].ID,
			AuthorID:  authors[rng.Intn(len(authors))].ID,
			Comment:   comments[rng.Intn(len(comments))],
			Rating:    1 + rng.Intn(5),
			CreatedAt: time.Now().UTC().Add(-time.Duration(rng.Intn(90*24)) * time.Hour),
		}
		if err := repo.Insert(ctx, &review); err != nil {
			return i, err
		}
	}
	return total, nil
}
