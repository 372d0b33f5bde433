package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListingRepository implements application.ListingRepository using MongoDB.
type ListingRepository struct {
	listings *mongo.Collection
	reviews  *mongo.Collection
	users    *mongo.Collection
}

// NewListingRepository はリスティング・レビュー・ユーザーの 3 コレクションを束縛したリポジトリを生成する。
func NewListingRepository(db *mongo.Database, listingCollection, reviewCollection, userCollection string) *ListingRepository {
	return &ListingRepository{
		listings: db.Collection(listingCollection),
		reviews:  db.Collection(reviewCollection),
		users:    db.Collection(userCollection),
	}
}

// FindAll returns every listing in insertion order.
func (r *ListingRepository) FindAll(ctx context.Context) ([]domain.Listing, error) {
	cursor, err := r.listings.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	listings := make([]domain.Listing, 0)
	for cursor.Next(ctx) {
		var doc ListingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		listings = append(listings, mapListingDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return listings, nil
}

// FindByID は 16 進 ObjectID を受け取り、参照を展開しないリスティングを返す。
func (r *ListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	doc, err := r.findDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	listing := mapListingDocument(*doc)
	return &listing, nil
}

// FindByIDPopulated は reviews と各レビューの author、owner を $in で読み込んで展開する。
func (r *ListingRepository) FindByIDPopulated(ctx context.Context, id string) (*domain.Listing, error) {
	doc, err := r.findDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	listing := mapListingDocument(*doc)

	reviewDocs, err := r.loadReviews(ctx, doc.Reviews)
	if err != nil {
		return nil, err
	}

	userIDs := make([]primitive.ObjectID, 0, len(reviewDocs)+1)
	if doc.Owner != nil {
		userIDs = append(userIDs, *doc.Owner)
	}
	for _, review := range reviewDocs {
		if review.Author != nil {
			userIDs = append(userIDs, *review.Author)
		}
	}
	users, err := loadUsers(ctx, r.users, userIDs)
	if err != nil {
		return nil, err
	}

	if doc.Owner != nil {
		if owner, ok := users[*doc.Owner]; ok {
			listing.Owner = &owner
		}
	}

	// reviews 配列の順序を保つ。削除済みの参照は読み飛ばす。
	listing.Reviews = make([]domain.Review, 0, len(doc.Reviews))
	for _, reviewID := range doc.Reviews {
		reviewDoc, ok := reviewDocs[reviewID]
		if !ok {
			continue
		}
		review := mapReviewDocument(reviewDoc)
		if reviewDoc.Author != nil {
			if author, ok := users[*reviewDoc.Author]; ok {
				review.Author = &author
			}
		}
		listing.Reviews = append(listing.Reviews, review)
	}
	return &listing, nil
}

// Insert assigns a new ObjectID and stores the listing.
func (r *ListingRepository) Insert(ctx context.Context, listing *domain.Listing) error {
	doc := buildListingDocument(listing)
	doc.ID = primitive.NewObjectID()
	if owner, err := primitive.ObjectIDFromHex(strings.TrimSpace(listing.OwnerID)); err == nil {
		doc.Owner = &owner
	}
	createdAt := listing.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	doc.CreatedAt = &createdAt
	doc.UpdatedAt = &createdAt

	if _, err := r.listings.InsertOne(ctx, doc); err != nil {
		return err
	}
	listing.ID = doc.ID.Hex()
	listing.CreatedAt = createdAt
	listing.UpdatedAt = createdAt
	return nil
}

// Save はフォーム由来のフィールドと geometry のみを $set する。owner と reviews は書き換えない。
func (r *ListingRepository) Save(ctx context.Context, listing *domain.Listing) error {
	objectID, err := parseObjectID(listing.ID)
	if err != nil {
		return err
	}
	doc := buildListingDocument(listing)
	set := bson.M{
		"title":       doc.Title,
		"description": doc.Description,
		"image":       doc.Image,
		"price":       doc.Price,
		"location":    doc.Location,
		"country":     doc.Country,
		"geometry":    doc.Geometry,
	}
	if !listing.UpdatedAt.IsZero() {
		set["updatedAt"] = listing.UpdatedAt
	}

	result, err := r.listings.UpdateByID(ctx, objectID, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the listing and every review it references.
func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	objectID, err := parseObjectID(id)
	if err != nil {
		return err
	}
	var doc ListingDocument
	if err := r.listings.FindOneAndDelete(ctx, bson.M{"_id": objectID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ErrNotFound
		}
		return err
	}
	if len(doc.Reviews) == 0 {
		return nil
	}
	if _, err := r.reviews.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": doc.Reviews}}); err != nil {
		return fmt.Errorf("delete reviews of listing %s: %w", id, err)
	}
	return nil
}

func (r *ListingRepository) findDocument(ctx context.Context, id string) (*ListingDocument, error) {
	objectID, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	var doc ListingDocument
	if err := r.listings.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *ListingRepository) loadReviews(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]ReviewDocument, error) {
	reviews := make(map[primitive.ObjectID]ReviewDocument, len(ids))
	if len(ids) == 0 {
		return reviews, nil
	}
	cursor, err := r.reviews.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var doc ReviewDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		reviews[doc.ID] = doc
	}
	return reviews, cursor.Err()
}

// parseObjectID は不正な ID を「存在しない」として扱う。
func parseObjectID(id string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, domain.ErrNotFound
	}
	return objectID, nil
}

func mapListingDocument(doc ListingDocument) domain.Listing {
	listing := domain.Listing{
		ID:          doc.ID.Hex(),
		Title:       doc.Title,
		Description: doc.Description,
		Price:       doc.Price,
		Location:    doc.Location,
		Country:     doc.Country,
		Image:       domain.Image{URL: doc.Image.URL, Filename: doc.Image.Filename},
		ReviewIDs:   make([]string, 0, len(doc.Reviews)),
	}
	if doc.Geometry != nil {
		listing.Geometry = domain.Geometry{Type: doc.Geometry.Type, Coordinates: doc.Geometry.Coordinates}
	}
	if doc.Owner != nil {
		listing.OwnerID = doc.Owner.Hex()
	}
	for _, id := range doc.Reviews {
		listing.ReviewIDs = append(listing.ReviewIDs, id.Hex())
	}
	if doc.CreatedAt != nil {
		listing.CreatedAt = *doc.CreatedAt
	}
	if doc.UpdatedAt != nil {
		listing.UpdatedAt = *doc.UpdatedAt
	}
	return listing
}

func buildListingDocument(listing *domain.Listing) ListingDocument {
	return ListingDocument{
		Title:       listing.Title,
		Description: listing.Description,
		Image:       ImageDocument{URL: listing.Image.URL, Filename: listing.Image.Filename},
		Price:       listing.Price,
		Location:    listing.Location,
		Country:     listing.Country,
		Geometry: &GeometryDocument{
			Type:        listing.Geometry.Type,
			Coordinates: listing.Geometry.Coordinates,
		},
	}
}
