package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ReviewRepository implements application.ReviewRepository using MongoDB.
// レビュー本体の保存とリスティング側 reviews 配列の $push/$pull を併せて行う。
type ReviewRepository struct {
	reviews  *mongo.Collection
	listings *mongo.Collection
}

// NewReviewRepository creates a new Mongo-backed review repository.
func NewReviewRepository(db *mongo.Database, reviewCollection, listingCollection string) *ReviewRepository {
	return &ReviewRepository{
		reviews:  db.Collection(reviewCollection),
		listings: db.Collection(listingCollection),
	}
}

// FindByID returns a single review.
func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*domain.Review, error) {
	objectID, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	var doc ReviewDocument
	if err := r.reviews.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	review := mapReviewDocument(doc)
	return &review, nil
}

// Insert はレビューを保存し、リスティングの reviews 配列に ID を追加する。
func (r *ReviewRepository) Insert(ctx context.Context, review *domain.Review) error {
	listingID, err := parseObjectID(review.ListingID)
	if err != nil {
		return err
	}
	createdAt := review.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	doc := ReviewDocument{
		ID:        primitive.NewObjectID(),
		Listing:   listingID,
		Comment:   review.Comment,
		Rating:    review.Rating,
		CreatedAt: createdAt,
	}
	if author, err := primitive.ObjectIDFromHex(review.AuthorID); err == nil {
		doc.Author = &author
	}

	if _, err := r.reviews.InsertOne(ctx, doc); err != nil {
		return err
	}
	result, err := r.listings.UpdateByID(ctx, listingID, bson.M{"$push": bson.M{"reviews": doc.ID}})
	if err != nil {
		return fmt.Errorf("attach review to listing: %w", err)
	}
	if result.MatchedCount == 0 {
		// リスティングが並行して削除された場合は孤立レビューを残さない。
		_, _ = r.reviews.DeleteOne(ctx, bson.M{"_id": doc.ID})
		return domain.ErrNotFound
	}

	review.ID = doc.ID.Hex()
	review.CreatedAt = createdAt
	return nil
}

// Delete はリスティングから参照を $pull した上でレビューを削除する。
func (r *ReviewRepository) Delete(ctx context.Context, listingID, reviewID string) error {
	listingObjectID, err := parseObjectID(listingID)
	if err != nil {
		return err
	}
	reviewObjectID, err := parseObjectID(reviewID)
	if err != nil {
		return err
	}

	if _, err := r.listings.UpdateByID(ctx, listingObjectID, bson.M{"$pull": bson.M{"reviews": reviewObjectID}}); err != nil {
		return fmt.Errorf("detach review from listing: %w", err)
	}
	result, err := r.reviews.DeleteOne(ctx, bson.M{"_id": reviewObjectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mapReviewDocument(doc ReviewDocument) domain.Review {
	review := domain.Review{
		ID:        doc.ID.Hex(),
		ListingID: doc.Listing.Hex(),
		Comment:   doc.Comment,
		Rating:    doc.Rating,
		CreatedAt: doc.CreatedAt,
	}
	if doc.Author != nil {
		review.AuthorID = doc.Author.Hex()
	}
	return review
}
