package application

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testOptions() Options {
	return Options{Now: func() time.Time { return fixedNow }}
}

func newCreateCommand(location string) CreateListingCommand {
	return CreateListingCommand{
		ActorID:     "user-1",
		Title:       "Cozy loft",
		Description: "Quiet and bright",
		Price:       1200,
		Location:    location,
		Country:     "France",
		Image:       domain.Image{URL: "http://media.local/images/wanderlust_DEV/a.jpg", Filename: "wanderlust_DEV/a.jpg"},
	}
}

func TestCreate_GeocodeResolved(t *testing.T) {
	repo := newMockListingRepo()
	geo := newMockGeocoder()
	geo.results["Paris"] = domain.Coordinate{Longitude: 2.3522, Latitude: 48.8566}
	svc := NewListingLifecycle(repo, geo, testOptions())

	listing, err := svc.Create(context.Background(), newCreateCommand("Paris"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, ok := repo.get(listing.ID)
	if !ok {
		t.Fatal("expected listing to be persisted")
	}
	want := domain.Geometry{Type: "Point", Coordinates: [2]float64{2.3522, 48.8566}}
	if stored.Geometry != want {
		t.Errorf("expected geometry %+v, got %+v", want, stored.Geometry)
	}
	if stored.OwnerID != "user-1" {
		t.Errorf("expected owner user-1, got %q", stored.OwnerID)
	}
	if stored.Image.Filename != "wanderlust_DEV/a.jpg" {
		t.Errorf("unexpected image %+v", stored.Image)
	}
}

func TestCreate_GeocodeNoMatchKeepsSentinel(t *testing.T) {
	repo := newMockListingRepo()
	geo := newMockGeocoder()
	svc := NewListingLifecycle(repo, geo, testOptions())

	listing, err := svc.Create(context.Background(), newCreateCommand("Nowhereville123"))
	if err != nil {
		t.Fatalf("create should succeed without coordinates, got: %v", err)
	}

	stored, ok := repo.get(listing.ID)
	if !ok {
		t.Fatal("expected listing to exist after create")
	}
	if stored.Geometry != domain.SentinelGeometry() {
		t.Errorf("expected sentinel geometry, got %+v", stored.Geometry)
	}
	if stored.Geometry.Type != "Point" {
		t.Errorf("expected Point type tag, got %q", stored.Geometry.Type)
	}
}

func TestCreate_ValidationFailure(t *testing.T) {
	repo := newMockListingRepo()
	svc := NewListingLifecycle(repo, newMockGeocoder(), testOptions())

	cmd := newCreateCommand("Paris")
	cmd.Title = "  "
	cmd.Image = domain.Image{}
	cmd.Price = -1

	_, err := svc.Create(context.Background(), cmd)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got: %v", err)
	}
	for _, field := range []string{"title", "image", "price"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("expected %s to be reported, got %v", field, verr.Fields)
		}
	}
	if all, _ := repo.FindAll(context.Background()); len(all) != 0 {
		t.Errorf("expected nothing persisted, got %d", len(all))
	}
}

func TestCreate_PersistenceFailurePropagates(t *testing.T) {
	repo := newMockListingRepo()
	repo.insertErr = errors.New("write concern timeout")
	svc := NewListingLifecycle(repo, newMockGeocoder(), testOptions())

	_, err := svc.Create(context.Background(), newCreateCommand("Paris"))
	if !errors.Is(err, repo.insertErr) {
		t.Errorf("expected wrapped store error, got: %v", err)
	}
}

func seedListing(repo *mockListingRepo) domain.Listing {
	listing := domain.Listing{
		ID:          "listing-42",
		Title:       "Old title",
		Description: "Old description",
		Price:       900,
		Location:    "Paris",
		Country:     "France",
		Image:       domain.Image{URL: "http://media.local/images/old.jpg", Filename: "old.jpg"},
		Geometry:    domain.Geometry{Type: "Point", Coordinates: [2]float64{2.3522, 48.8566}},
		OwnerID:     "owner-1",
		ReviewIDs:   []string{"review-seed"},
		CreatedAt:   fixedNow.Add(-24 * time.Hour),
		UpdatedAt:   fixedNow.Add(-24 * time.Hour),
	}
	repo.seed(listing)
	return listing
}

func TestUpdate_PartialMergeKeepsUnspecifiedFields(t *testing.T) {
	repo := newMockListingRepo()
	original := seedListing(repo)
	svc := NewListingLifecycle(repo, newMockGeocoder(), testOptions())

	updated, err := svc.Update(context.Background(), UpdateListingCommand{
		ActorID:   "someone",
		ListingID: original.ID,
		Title:     strPtr("New title"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Title != "New title" {
		t.Errorf("expected title to change, got %q", updated.Title)
	}
	if updated.Description != original.Description || updated.Price != original.Price || updated.Country != original.Country {
		t.Errorf("unspecified fields changed: %+v", updated)
	}
	if updated.Image != original.Image {
		t.Errorf("image should be untouched without upload, got %+v", updated.Image)
	}
	if updated.OwnerID != original.OwnerID {
		t.Errorf("owner must be immutable, got %q", updated.OwnerID)
	}
	if !reflect.DeepEqual(updated.ReviewIDs, original.ReviewIDs) {
		t.Errorf("reviews must be untouched, got %v", updated.ReviewIDs)
	}
	if !updated.UpdatedAt.Equal(fixedNow) {
		t.Errorf("expected updatedAt bump, got %v", updated.UpdatedAt)
	}
}

func TestUpdate_ReplacesImageWhenUploaded(t *testing.T) {
	repo := newMockListingRepo()
	original := seedListing(repo)
	svc := NewListingLifecycle(repo, newMockGeocoder(), testOptions())

	newImage := domain.Image{URL: "http://media.local/images/new.jpg", Filename: "new.jpg"}
	_, err := svc.Update(context.Background(), UpdateListingCommand{ListingID: original.ID, Image: &newImage})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := repo.get(original.ID)
	if stored.Image != newImage {
		t.Errorf("expected new image, got %+v", stored.Image)
	}
}

func TestUpdate_UnchangedLocationKeepsGeometry(t *testing.T) {
	repo := newMockListingRepo()
	original := seedListing(repo)
	geo := newMockGeocoder()
	geo.results["Paris"] = domain.Coordinate{Longitude: 99, Latitude: 99}
	svc := NewListingLifecycle(repo, geo, testOptions())

	_, err := svc.Update(context.Background(), UpdateListingCommand{
		ListingID: original.ID,
		Location:  strPtr("Paris"),
		Price:     intPtr(1000),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := repo.get(original.ID)
	if stored.Geometry != original.Geometry {
		t.Errorf("geometry changed for unchanged location: %+v", stored.Geometry)
	}
	if geo.callCount() != 0 {
		t.Errorf("expected no geocoding call, got %d", geo.callCount())
	}
}

func TestUpdate_ChangedLocationResolved(t *testing.T) {
	repo := newMockListingRepo()
	original := seedListing(repo)
	geo := newMockGeocoder()
	geo.results["Lyon"] = domain.Coordinate{Longitude: 4.8357, Latitude: 45.764}
	svc := NewListingLifecycle(repo, geo, testOptions())

	_, err := svc.Update(context.Background(), UpdateListingCommand{ListingID: original.ID, Location: strPtr("Lyon")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := repo.get(original.ID)
	want := domain.Geometry{Type: "Point", Coordinates: [2]float64{4.8357, 45.764}}
	if stored.Geometry != want {
		t.Errorf("expected %+v, got %+v", want, stored.Geometry)
	}
	if stored.Location != "Lyon" {
		t.Errorf("expected location Lyon, got %q", stored.Location)
	}
}

func TestUpdate_ChangedLocationUnresolvedKeepsPreviousGeometry(t *testing.T) {
	repo := newMockListingRepo()
	original := seedListing(repo)
	svc := NewListingLifecycle(repo, newMockGeocoder(), testOptions())

	_, err := svc.Update(context.Background(), UpdateListingCommand{ListingID: original.ID, Location: strPtr("Atlantis")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := repo.get(original.ID)
	if stored.Geometry != original.Geometry {
		t.Errorf("expected pre-update geometry %+v, got %+v", original.Geometry, stored.Geometry)
	}
	if stored.Geometry == domain.SentinelGeometry() {
		t.Error("geometry must not be reset to sentinel")
	}
}

func TestUpdate_LocationComparisonIsCaseSensitive(t *testing.T) {
	repo := newMockListingRepo()
	original := seedListing(repo)
	geo := newMockGeocoder()
	geo.results["paris"] = domain.Coordinate{Longitude: 2.35, Latitude: 48.85}
	svc := NewListingLifecycle(repo, geo, testOptions())

	if _, err := svc.Update(context.Background(), UpdateListingCommand{ListingID: original.ID, Location: strPtr("paris")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if geo.callCount() != 1 {
		t.Errorf("expected case change to trigger geocoding, got %d calls", geo.callCount())
	}
}

func TestUpdate_RepairsLegacyGeometry(t *testing.T) {
	repo := newMockListingRepo()
	legacy := seedListing(repo)
	legacy.Geometry = domain.Geometry{}
	repo.seed(legacy)
	svc := NewListingLifecycle(repo, newMockGeocoder(), testOptions())

	_, err := svc.Update(context.Background(), UpdateListingCommand{ListingID: legacy.ID, Title: strPtr("Legacy")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := repo.get(legacy.ID)
	if stored.Geometry != domain.SentinelGeometry() {
		t.Errorf("expected sentinel repair, got %+v", stored.Geometry)
	}
}

func TestUpdate_RepairsLegacyGeometryKeepsCoordinates(t *testing.T) {
	repo := newMockListingRepo()
	legacy := seedListing(repo)
	legacy.Geometry = domain.Geometry{Coordinates: [2]float64{2.35, 48.85}}
	repo.seed(legacy)
	geocoder := newMockGeocoder()
	svc := NewListingLifecycle(repo, geocoder, testOptions())

	_, err := svc.Update(context.Background(), UpdateListingCommand{ListingID: legacy.ID, Title: strPtr("Legacy")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := repo.get(legacy.ID)
	want := domain.Geometry{Type: domain.GeometryTypePoint, Coordinates: [2]float64{2.35, 48.85}}
	if stored.Geometry != want {
		t.Errorf("expected stored coordinates to be kept as a Point, got %+v", stored.Geometry)
	}
	if geocoder.callCount() != 0 {
		t.Errorf("expected no geocoding for an unchanged location, got %d calls", geocoder.callCount())
	}
}

func TestUpdate_Idempotent(t *testing.T) {
	repo := newMockListingRepo()
	original := seedListing(repo)
	calls := 0
	svc := NewListingLifecycle(repo, newMockGeocoder(), Options{Now: func() time.Time {
		calls++
		return fixedNow.Add(time.Duration(calls) * time.Minute)
	}})

	cmd := UpdateListingCommand{
		ListingID:   original.ID,
		Title:       strPtr("Same title"),
		Description: strPtr(original.Description),
		Location:    strPtr(original.Location),
	}
	if _, err := svc.Update(context.Background(), cmd); err != nil {
		t.Fatalf("first update failed: %v", err)
	}
	first, _ := repo.get(original.ID)

	if _, err := svc.Update(context.Background(), cmd); err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	second, _ := repo.get(original.ID)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical records, got\n%+v\n%+v", first, second)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc := NewListingLifecycle(newMockListingRepo(), newMockGeocoder(), testOptions())

	_, err := svc.Update(context.Background(), UpdateListingCommand{ListingID: "missing", Title: strPtr("x")})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestUpdate_BlankProvidedFieldRejected(t *testing.T) {
	repo := newMockListingRepo()
	original := seedListing(repo)
	svc := NewListingLifecycle(repo, newMockGeocoder(), testOptions())

	_, err := svc.Update(context.Background(), UpdateListingCommand{ListingID: original.ID, Location: strPtr(" ")})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got: %v", err)
	}
}

func TestUpdate_PersistenceFailurePropagates(t *testing.T) {
	repo := newMockListingRepo()
	original := seedListing(repo)
	repo.saveErr = errors.New("connection reset")
	svc := NewListingLifecycle(repo, newMockGeocoder(), testOptions())

	_, err := svc.Update(context.Background(), UpdateListingCommand{ListingID: original.ID, Title: strPtr("x")})
	if !errors.Is(err, repo.saveErr) {
		t.Errorf("expected wrapped store error, got: %v", err)
	}
}

func TestOwnershipGuard(t *testing.T) {
	repo := newMockListingRepo()
	original := seedListing(repo)
	opts := testOptions()
	opts.OwnershipGuard = true
	svc := NewListingLifecycle(repo, newMockGeocoder(), opts)

	_, err := svc.Update(context.Background(), UpdateListingCommand{ActorID: "intruder", ListingID: original.ID, Title: strPtr("x")})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden on update, got: %v", err)
	}
	if err := svc.Destroy(context.Background(), "intruder", original.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden on destroy, got: %v", err)
	}
	if err := svc.Destroy(context.Background(), original.OwnerID, original.ID); err != nil {
		t.Errorf("owner destroy failed: %v", err)
	}
}

func TestDestroy_WithoutGuardAllowsAnyActor(t *testing.T) {
	repo := newMockListingRepo()
	original := seedListing(repo)
	svc := NewListingLifecycle(repo, newMockGeocoder(), testOptions())

	if err := svc.Destroy(context.Background(), "someone-else", original.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.get(original.ID); ok {
		t.Error("expected listing to be deleted")
	}
}

func TestDestroy_NotFound(t *testing.T) {
	svc := NewListingLifecycle(newMockListingRepo(), newMockGeocoder(), testOptions())

	err := svc.Destroy(context.Background(), "user-1", "does-not-exist")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestEdit_ThumbnailURL(t *testing.T) {
	repo := newMockListingRepo()
	listing := seedListing(repo)
	listing.Image.URL = "https://res.cloudinary.com/demo/image/upload/v1/a.jpg"
	repo.seed(listing)
	svc := NewListingLifecycle(repo, newMockGeocoder(), testOptions())

	view, err := svc.Edit(context.Background(), "user-1", listing.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://res.cloudinary.com/demo/image/upload/w_250/v1/a.jpg"
	if view.ThumbnailURL != want {
		t.Errorf("expected %q, got %q", want, view.ThumbnailURL)
	}
	if got := ThumbnailURL("http://media.local/images/a.jpg"); got != "http://media.local/images/a.jpg" {
		t.Errorf("expected untouched URL, got %q", got)
	}
}
