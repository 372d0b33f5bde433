package application

import (
	"context"
	"io"
	"time"

	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
)

// ListingRepository はリスティングの永続化ポート。見つからない場合は domain.ErrNotFound を返す。
type ListingRepository interface {
	FindAll(ctx context.Context) ([]domain.Listing, error)
	FindByID(ctx context.Context, id string) (*domain.Listing, error)
	// FindByIDPopulated は reviews(+author) と owner を展開したリスティングを返す。
	FindByIDPopulated(ctx context.Context, id string) (*domain.Listing, error)
	Insert(ctx context.Context, listing *domain.Listing) error
	// Save はフォーム由来のフィールドだけを書き戻す。owner と reviews には触れない。
	Save(ctx context.Context, listing *domain.Listing) error
	// Delete はリスティングと紐づくレビューを削除する。
	Delete(ctx context.Context, id string) error
}

// ReviewRepository persists reviews and keeps the listing's review references in sync.
type ReviewRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Review, error)
	Insert(ctx context.Context, review *domain.Review) error
	Delete(ctx context.Context, listingID, reviewID string) error
}

// Geocoder resolves free-text locations. It never fails; see domain.GeocodeResult.
type Geocoder interface {
	Resolve(ctx context.Context, location string) domain.GeocodeResult
}

// ImageUpload is an uploaded listing image on its way to storage.
type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// ImageStore persists listing images outside the listing document.
// Delete は保存に失敗したリスティングの画像を片付けるために使う。
type ImageStore interface {
	Upload(ctx context.Context, upload ImageUpload) (domain.Image, error)
	Delete(ctx context.Context, key string) error
}

// ListingLifecycle describes listing write use-cases.
// ListingLifecycle はフォーム入力・画像・ジオコーディング結果を 1 件のリスティングへまとめて保存する。
type ListingLifecycle interface {
	Create(ctx context.Context, cmd CreateListingCommand) (*domain.Listing, error)
	Edit(ctx context.Context, actorID, listingID string) (*ListingEditView, error)
	Update(ctx context.Context, cmd UpdateListingCommand) (*domain.Listing, error)
	Destroy(ctx context.Context, actorID, listingID string) error
}

// ListingQueryService describes index/detail read use-cases.
type ListingQueryService interface {
	ListAll(ctx context.Context, locationFilter string) (*ListingIndex, error)
	Show(ctx context.Context, id string) (*domain.Listing, error)
	Locations(ctx context.Context) ([]string, error)
}

// ReviewService describes review write use-cases.
type ReviewService interface {
	Add(ctx context.Context, cmd AddReviewCommand) (*domain.Review, error)
	Delete(ctx context.Context, actorID, listingID, reviewID string) error
}

// CreateListingCommand carries validated form input for a new listing.
type CreateListingCommand struct {
	ActorID     string
	Title       string
	Description string
	Price       int
	Location    string
	Country     string
	Image       domain.Image
}

// UpdateListingCommand is a partial update: nil fields keep their stored value.
type UpdateListingCommand struct {
	ActorID     string
	ListingID   string
	Title       *string
	Description *string
	Price       *int
	Location    *string
	Country     *string
	Image       *domain.Image
}

// AddReviewCommand carries a new review.
type AddReviewCommand struct {
	ActorID   string
	ListingID string
	Comment   string
	Rating    int
}

// ListingIndex is the index page view: the (optionally filtered) listings and the
// facet list computed over every listing.
type ListingIndex struct {
	Listings  []domain.Listing
	Locations []string
	Filter    string
}

// ListingEditView is the edit form view.
type ListingEditView struct {
	Listing      domain.Listing
	ThumbnailURL string
}

// Options toggles policies shared by the write services.
type Options struct {
	// OwnershipGuard を true にすると、所有者/投稿者以外の更新・削除を domain.ErrForbidden で拒否する。
	OwnershipGuard bool
	Now            func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}
