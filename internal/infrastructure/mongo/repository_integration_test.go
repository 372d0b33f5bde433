package mongo

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	accountdomain "github.com/sngm3741/wanderlust/api/internal/account/domain"
	"github.com/sngm3741/wanderlust/api/internal/listing/application"
	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// testDatabase は MONGO_URI が無い、または接続できない場合にテストをスキップする。
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set; skipping Mongo integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("mongo connect failed: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("mongo ping failed: %v", err)
	}

	db := client.Database("wanderlust_test_" + primitive.NewObjectID().Hex())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

func TestListingRepository_Lifecycle(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()

	users := NewUserRepository(db, "users")
	listings := NewListingRepository(db, "listings", "reviews", "users")
	reviews := NewReviewRepository(db, "reviews", "listings")

	owner := &accountdomain.Account{Username: "owner", Email: "owner@example.com", PasswordHash: "x"}
	if err := users.Create(ctx, owner); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := users.Create(ctx, &accountdomain.Account{Username: "owner"}); !errors.Is(err, accountdomain.ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}

	listing := &domain.Listing{
		Title:    "Loft",
		Price:    120,
		Location: "Paris",
		Country:  "France",
		Image:    domain.Image{URL: "https://media.example.com/images/a.png", Filename: "a.png"},
		Geometry: domain.PointGeometry(domain.Coordinate{Longitude: 2.35, Latitude: 48.85}),
		OwnerID:  owner.ID,
	}
	if err := listings.Insert(ctx, listing); err != nil {
		t.Fatalf("insert: %v", err)
	}

	review := &domain.Review{ListingID: listing.ID, AuthorID: owner.ID, Comment: "Great", Rating: 5}
	if err := reviews.Insert(ctx, review); err != nil {
		t.Fatalf("insert review: %v", err)
	}

	listing.Title = "Loft renovated"
	listing.OwnerID = primitive.NewObjectID().Hex()
	listing.ReviewIDs = nil
	if err := listings.Save(ctx, listing); err != nil {
		t.Fatalf("save: %v", err)
	}

	populated, err := listings.FindByIDPopulated(ctx, listing.ID)
	if err != nil {
		t.Fatalf("find populated: %v", err)
	}
	if populated.Title != "Loft renovated" {
		t.Errorf("expected updated title, got %q", populated.Title)
	}
	if populated.OwnerID != owner.ID || populated.Owner == nil || populated.Owner.Username != "owner" {
		t.Errorf("expected owner untouched by save, got %+v", populated.Owner)
	}
	if len(populated.Reviews) != 1 || populated.Reviews[0].Author == nil {
		t.Fatalf("expected one populated review, got %+v", populated.Reviews)
	}

	if err := listings.Delete(ctx, listing.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := reviews.FindByID(ctx, review.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected cascaded review delete, got %v", err)
	}
	if err := listings.Delete(ctx, listing.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestImageStore_UploadAndOpen(t *testing.T) {
	db := testDatabase(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewImageStore(db, "images", UploadFolder("development"), "http://localhost:8080")
	image, err := store.Upload(ctx, application.ImageUpload{
		Filename:    "Beach.PNG",
		ContentType: "image/png",
		Body:        bytes.NewReader([]byte("png-bytes")),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if image.URL != "http://localhost:8080/images/"+image.Filename {
		t.Errorf("unexpected url %s", image.URL)
	}

	stream, info, err := store.Open(ctx, image.Filename)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer stream.Close()
	body, _ := io.ReadAll(stream)
	if string(body) != "png-bytes" || info.ContentType != "image/png" {
		t.Errorf("unexpected file %q %+v", body, info)
	}

	if err := store.Delete(ctx, image.Filename); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := store.Open(ctx, image.Filename); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected deleted image to be gone, got %v", err)
	}
	if _, _, err := store.Open(ctx, "wanderlust_DEV/missing.png"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEnsureIndexes_RejectsDuplicateUsername(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	names := CollectionNames{Listings: "listings", Reviews: "reviews", Users: "users"}

	if err := EnsureIndexes(ctx, db, names); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	if err := EnsureIndexes(ctx, db, names); err != nil {
		t.Fatalf("ensure indexes twice: %v", err)
	}

	// FindOne の事前チェックをすり抜けた同時登録を想定し、直接挿入する。
	users := db.Collection(names.Users)
	if _, err := users.InsertOne(ctx, UserDocument{ID: primitive.NewObjectID(), Username: "racer"}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := users.InsertOne(ctx, UserDocument{ID: primitive.NewObjectID(), Username: "racer"})
	if !mongo.IsDuplicateKeyError(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}
