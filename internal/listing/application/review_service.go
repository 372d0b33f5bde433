package application

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
)

const maxReviewCommentRunes = 2000

type reviewService struct {
	listings ListingRepository
	reviews  ReviewRepository
	opts     Options
}

func NewReviewService(listings ListingRepository, reviews ReviewRepository, opts Options) ReviewService {
	return &reviewService{listings: listings, reviews: reviews, opts: opts}
}

func (s *reviewService) Add(ctx context.Context, cmd AddReviewCommand) (*domain.Review, error) {
	verr := domain.NewValidationError()
	if strings.TrimSpace(cmd.ActorID) == "" {
		verr.Add("author", "authenticated user is required")
	}
	comment := strings.TrimSpace(cmd.Comment)
	if comment == "" {
		verr.Add("comment", "is required")
	} else if utf8.RuneCountInString(comment) > maxReviewCommentRunes {
		verr.Add("comment", fmt.Sprintf("must be at most %d characters", maxReviewCommentRunes))
	}
	if cmd.Rating < 1 || cmd.Rating > 5 {
		verr.Add("rating", "must be between 1 and 5")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if _, err := s.listings.FindByID(ctx, cmd.ListingID); err != nil {
		return nil, err
	}

	review := &domain.Review{
		ListingID: cmd.ListingID,
		AuthorID:  cmd.ActorID,
		Comment:   comment,
		Rating:    cmd.Rating,
		CreatedAt: s.opts.now(),
	}
	if err := s.reviews.Insert(ctx, review); err != nil {
		return nil, fmt.Errorf("persist review: %w", err)
	}
	return review, nil
}

func (s *reviewService) Delete(ctx context.Context, actorID, listingID, reviewID string) error {
	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.ListingID != listingID {
		return domain.ErrNotFound
	}
	if s.opts.OwnershipGuard && (actorID == "" || actorID != review.AuthorID) {
		return domain.ErrForbidden
	}
	return s.reviews.Delete(ctx, listingID, reviewID)
}
