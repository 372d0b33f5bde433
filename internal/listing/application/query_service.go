package application

import (
	"context"
	"strings"

	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
)

// listingQueryService implements ListingQueryService.
type listingQueryService struct {
	repo ListingRepository
}

// NewListingQueryService creates a new listing query service.
func NewListingQueryService(repo ListingRepository) ListingQueryService {
	return &listingQueryService{repo: repo}
}

// ListAll は全件を読み込み、フィルタ前の全件から location のファセットを作ってから一覧を絞り込む。
// ファセットは現在のフィルタに関係なく常に全選択肢を返す。
func (s *listingQueryService) ListAll(ctx context.Context, locationFilter string) (*ListingIndex, error) {
	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	filter := strings.TrimSpace(locationFilter)
	index := &ListingIndex{
		Listings:  all,
		Locations: distinctLocations(all),
		Filter:    filter,
	}
	if filter == "" {
		return index, nil
	}

	filtered := make([]domain.Listing, 0, len(all))
	for _, listing := range all {
		if listing.Location == filter {
			filtered = append(filtered, listing)
		}
	}
	index.Listings = filtered
	return index, nil
}

func (s *listingQueryService) Show(ctx context.Context, id string) (*domain.Listing, error) {
	return s.repo.FindByIDPopulated(ctx, id)
}

func (s *listingQueryService) Locations(ctx context.Context) ([]string, error) {
	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return distinctLocations(all), nil
}

// distinctLocations keeps first-seen order and skips blank values.
func distinctLocations(listings []domain.Listing) []string {
	seen := make(map[string]struct{}, len(listings))
	result := make([]string, 0)
	for _, listing := range listings {
		location := listing.Location
		if strings.TrimSpace(location) == "" {
			continue
		}
		if _, ok := seen[location]; ok {
			continue
		}
		seen[location] = struct{}{}
		result = append(result, location)
	}
	return result
}
