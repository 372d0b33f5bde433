package application

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
)

// Mock ListingRepository
type mockListingRepo struct {
	mu        sync.Mutex
	listings  map[string]domain.Listing
	order     []string
	nextID    int
	saves     int
	insertErr error
	saveErr   error
	findErr   error
}

func newMockListingRepo() *mockListingRepo {
	return &mockListingRepo{listings: make(map[string]domain.Listing)}
}

func (m *mockListingRepo) seed(listing domain.Listing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[listing.ID] = listing
	m.order = append(m.order, listing.ID)
}

func (m *mockListingRepo) get(id string) (domain.Listing, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	listing, ok := m.listings[id]
	return listing, ok
}

func (m *mockListingRepo) FindAll(ctx context.Context) ([]domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	result := make([]domain.Listing, 0, len(m.order))
	for _, id := range m.order {
		if listing, ok := m.listings[id]; ok {
			result = append(result, listing)
		}
	}
	return result, nil
}

func (m *mockListingRepo) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	listing, ok := m.listings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &listing, nil
}

func (m *mockListingRepo) FindByIDPopulated(ctx context.Context, id string) (*domain.Listing, error) {
	listing, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	listing.Owner = &domain.User{ID: listing.OwnerID, Username: "owner-" + listing.OwnerID}
	return listing, nil
}

func (m *mockListingRepo) Insert(ctx context.Context, listing *domain.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.nextID++
	listing.ID = "listing-" + strconv.Itoa(m.nextID)
	m.listings[listing.ID] = *listing
	m.order = append(m.order, listing.ID)
	return nil
}

func (m *mockListingRepo) Save(ctx context.Context, listing *domain.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.listings[listing.ID]; !ok {
		return domain.ErrNotFound
	}
	m.saves++
	m.listings[listing.ID] = *listing
	return nil
}

func (m *mockListingRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.listings[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.listings, id)
	return nil
}

// Mock Geocoder
type mockGeocoder struct {
	mu      sync.Mutex
	results map[string]domain.Coordinate
	calls   []string
}

func newMockGeocoder() *mockGeocoder {
	return &mockGeocoder{results: make(map[string]domain.Coordinate)}
}

func (m *mockGeocoder) Resolve(ctx context.Context, location string) domain.GeocodeResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, location)
	if coord, ok := m.results[location]; ok {
		return domain.Resolved(coord)
	}
	return domain.Unresolved()
}

func (m *mockGeocoder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Mock ReviewRepository
type mockReviewRepo struct {
	mu       sync.Mutex
	listings *mockListingRepo
	reviews  map[string]domain.Review
	nextID   int
}

func newMockReviewRepo(listings *mockListingRepo) *mockReviewRepo {
	return &mockReviewRepo{listings: listings, reviews: make(map[string]domain.Review)}
}

func (m *mockReviewRepo) FindByID(ctx context.Context, id string) (*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	review, ok := m.reviews[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &review, nil
}

func (m *mockReviewRepo) Insert(ctx context.Context, review *domain.Review) error {
	m.mu.Lock()
	m.nextID++
	review.ID = "review-" + strconv.Itoa(m.nextID)
	m.reviews[review.ID] = *review
	m.mu.Unlock()

	m.listings.mu.Lock()
	defer m.listings.mu.Unlock()
	listing, ok := m.listings.listings[review.ListingID]
	if !ok {
		return errors.New("listing vanished")
	}
	listing.ReviewIDs = append(listing.ReviewIDs, review.ID)
	m.listings.listings[review.ListingID] = listing
	return nil
}

func (m *mockReviewRepo) Delete(ctx context.Context, listingID, reviewID string) error {
	m.mu.Lock()
	if _, ok := m.reviews[reviewID]; !ok {
		m.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(m.reviews, reviewID)
	m.mu.Unlock()

	m.listings.mu.Lock()
	defer m.listings.mu.Unlock()
	listing := m.listings.listings[listingID]
	kept := listing.ReviewIDs[:0]
	for _, id := range listing.ReviewIDs {
		if id != reviewID {
			kept = append(kept, id)
		}
	}
	listing.ReviewIDs = kept
	m.listings.listings[listingID] = listing
	return nil
}

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }
