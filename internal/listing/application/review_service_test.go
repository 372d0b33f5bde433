package application

import (
	"context"
	"errors"
	"testing"

	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
)

func TestAddReview_AppendsToListing(t *testing.T) {
	listings := newMockListingRepo()
	original := seedListing(listings)
	reviews := newMockReviewRepo(listings)
	svc := NewReviewService(listings, reviews, testOptions())

	review, err := svc.Add(context.Background(), AddReviewCommand{
		ActorID:   "user-9",
		ListingID: original.ID,
		Comment:   "Lovely stay",
		Rating:    5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if review.AuthorID != "user-9" || review.ID == "" {
		t.Errorf("unexpected review %+v", review)
	}

	stored, _ := listings.get(original.ID)
	if len(stored.ReviewIDs) != 2 || stored.ReviewIDs[1] != review.ID {
		t.Errorf("expected review appended, got %v", stored.ReviewIDs)
	}
}

func TestAddReview_Validation(t *testing.T) {
	listings := newMockListingRepo()
	original := seedListing(listings)
	svc := NewReviewService(listings, newMockReviewRepo(listings), testOptions())

	_, err := svc.Add(context.Background(), AddReviewCommand{ActorID: "user-9", ListingID: original.ID, Comment: "", Rating: 7})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got: %v", err)
	}
	if _, ok := verr.Fields["rating"]; !ok {
		t.Errorf("expected rating error, got %v", verr.Fields)
	}
}

func TestAddReview_ListingNotFound(t *testing.T) {
	listings := newMockListingRepo()
	svc := NewReviewService(listings, newMockReviewRepo(listings), testOptions())

	_, err := svc.Add(context.Background(), AddReviewCommand{ActorID: "user-9", ListingID: "missing", Comment: "ok", Rating: 3})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestDeleteReview(t *testing.T) {
	listings := newMockListingRepo()
	original := seedListing(listings)
	reviews := newMockReviewRepo(listings)
	opts := testOptions()
	opts.OwnershipGuard = true
	svc := NewReviewService(listings, reviews, opts)

	review, err := svc.Add(context.Background(), AddReviewCommand{ActorID: "user-9", ListingID: original.ID, Comment: "ok", Rating: 4})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := svc.Delete(context.Background(), "intruder", original.ID, review.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got: %v", err)
	}
	if err := svc.Delete(context.Background(), "user-9", "other-listing", review.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for mismatched listing, got: %v", err)
	}
	if err := svc.Delete(context.Background(), "user-9", original.ID, review.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	stored, _ := listings.get(original.ID)
	for _, id := range stored.ReviewIDs {
		if id == review.ID {
			t.Error("expected review reference to be pulled")
		}
	}
	if err := svc.Delete(context.Background(), "user-9", original.ID, review.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got: %v", err)
	}
}
