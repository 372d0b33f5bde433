package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
)

// listingLifecycle implements ListingLifecycle.
type listingLifecycle struct {
	repo     ListingRepository
	geocoder Geocoder
	opts     Options
}

// NewListingLifecycle creates the listing write service.
func NewListingLifecycle(repo ListingRepository, geocoder Geocoder, opts Options) ListingLifecycle {
	return &listingLifecycle{repo: repo, geocoder: geocoder, opts: opts}
}

// Create は下書きを組み立て、番兵ジオメトリを入れた上でジオコーディング結果があれば上書きして保存する。
// ジオコーディングの失敗で保存を止めることはない。
func (s *listingLifecycle) Create(ctx context.Context, cmd CreateListingCommand) (*domain.Listing, error) {
	if err := validateCreate(cmd); err != nil {
		return nil, err
	}

	now := s.opts.now()
	listing := &domain.Listing{
		Title:       strings.TrimSpace(cmd.Title),
		Description: strings.TrimSpace(cmd.Description),
		Price:       cmd.Price,
		Location:    strings.TrimSpace(cmd.Location),
		Country:     strings.TrimSpace(cmd.Country),
		Image:       cmd.Image,
		OwnerID:     cmd.ActorID,
		Geometry:    domain.SentinelGeometry(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if coord, ok := s.geocoder.Resolve(ctx, listing.Location).Coordinate(); ok {
		listing.Geometry = domain.PointGeometry(coord)
	}

	if err := s.repo.Insert(ctx, listing); err != nil {
		return nil, fmt.Errorf("persist listing: %w", err)
	}
	return listing, nil
}

func (s *listingLifecycle) Edit(ctx context.Context, actorID, listingID string) (*ListingEditView, error) {
	listing, err := s.repo.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actorID, listing.OwnerID); err != nil {
		return nil, err
	}
	return &ListingEditView{
		Listing:      *listing,
		ThumbnailURL: ThumbnailURL(listing.Image.URL),
	}, nil
}

// Update は指定されたフィールドだけをマージする。位置が変わった場合のみ再ジオコーディングし、
// 解決できなければ更新前のジオメトリを維持する。
func (s *listingLifecycle) Update(ctx context.Context, cmd UpdateListingCommand) (*domain.Listing, error) {
	if err := validateUpdate(cmd); err != nil {
		return nil, err
	}

	listing, err := s.repo.FindByID(ctx, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(cmd.ActorID, listing.OwnerID); err != nil {
		return nil, err
	}
	before := *listing

	changed := mergeListing(listing, cmd)

	if cmd.Location != nil {
		location := strings.TrimSpace(*cmd.Location)
		if location != before.Location {
			if coord, ok := s.geocoder.Resolve(ctx, location).Coordinate(); ok {
				listing.Geometry = domain.PointGeometry(coord)
				changed = true
			}
		}
	}

	// type を持たない旧レコードの修復。座標が残っていれば Point として引き継ぐ。
	if !listing.Geometry.HasType() {
		if listing.Geometry.Coordinates != ([2]float64{}) {
			listing.Geometry.Type = domain.GeometryTypePoint
		} else {
			listing.Geometry = domain.SentinelGeometry()
		}
		changed = true
	}

	if changed {
		listing.UpdatedAt = s.opts.now()
	}

	if err := s.repo.Save(ctx, listing); err != nil {
		return nil, fmt.Errorf("persist listing %s: %w", listing.ID, err)
	}
	return listing, nil
}

func (s *listingLifecycle) Destroy(ctx context.Context, actorID, listingID string) error {
	if s.opts.OwnershipGuard {
		listing, err := s.repo.FindByID(ctx, listingID)
		if err != nil {
			return err
		}
		if err := s.authorize(actorID, listing.OwnerID); err != nil {
			return err
		}
	}
	return s.repo.Delete(ctx, listingID)
}

func (s *listingLifecycle) authorize(actorID, ownerID string) error {
	if !s.opts.OwnershipGuard {
		return nil
	}
	if actorID == "" || actorID != ownerID {
		return domain.ErrForbidden
	}
	return nil
}

// mergeListing applies the non-nil fields of cmd and reports whether anything changed.
func mergeListing(listing *domain.Listing, cmd UpdateListingCommand) bool {
	changed := false
	setString := func(dst *string, src *string) {
		if src == nil {
			return
		}
		value := strings.TrimSpace(*src)
		if *dst != value {
			*dst = value
			changed = true
		}
	}

	setString(&listing.Title, cmd.Title)
	setString(&listing.Description, cmd.Description)
	setString(&listing.Location, cmd.Location)
	setString(&listing.Country, cmd.Country)
	if cmd.Price != nil && listing.Price != *cmd.Price {
		listing.Price = *cmd.Price
		changed = true
	}
	if cmd.Image != nil && listing.Image != *cmd.Image {
		listing.Image = *cmd.Image
		changed = true
	}
	return changed
}

func validateCreate(cmd CreateListingCommand) error {
	verr := domain.NewValidationError()
	if strings.TrimSpace(cmd.ActorID) == "" {
		verr.Add("owner", "authenticated user is required")
	}
	requireText(verr, "title", cmd.Title)
	requireText(verr, "description", cmd.Description)
	requireText(verr, "location", cmd.Location)
	requireText(verr, "country", cmd.Country)
	if cmd.Price < 0 {
		verr.Add("price", "must be zero or greater")
	}
	if strings.TrimSpace(cmd.Image.URL) == "" || strings.TrimSpace(cmd.Image.Filename) == "" {
		verr.Add("image", "is required")
	}
	return verr.OrNil()
}

func validateUpdate(cmd UpdateListingCommand) error {
	verr := domain.NewValidationError()
	if strings.TrimSpace(cmd.ListingID) == "" {
		verr.Add("id", "is required")
	}
	for field, value := range map[string]*string{
		"title":       cmd.Title,
		"description": cmd.Description,
		"location":    cmd.Location,
		"country":     cmd.Country,
	} {
		if value != nil {
			requireText(verr, field, *value)
		}
	}
	if cmd.Price != nil && *cmd.Price < 0 {
		verr.Add("price", "must be zero or greater")
	}
	if cmd.Image != nil && (cmd.Image.URL == "" || cmd.Image.Filename == "") {
		verr.Add("image", "is incomplete")
	}
	return verr.OrNil()
}

func requireText(verr *domain.ValidationError, field, value string) {
	if strings.TrimSpace(value) == "" {
		verr.Add(field, "is required")
	}
}

// ThumbnailURL は編集フォーム用の縮小画像 URL を返す。変換パラメータを解釈する
// 配信元 (/upload を含む URL) のときだけ w_250 を差し込み、それ以外はそのまま返す。
func ThumbnailURL(imageURL string) string {
	if !strings.Contains(imageURL, "/upload") {
		return imageURL
	}
	return strings.Replace(imageURL, "/upload", "/upload/w_250", 1)
}
