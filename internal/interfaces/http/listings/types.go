package listings

import (
	"time"

	"github.com/sngm3741/wanderlust/api/internal/interfaces/http/common"
	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
)

type imagePayload struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

type geometryPayload struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type userPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type reviewResponse struct {
	ID        string       `json:"id"`
	Comment   string       `json:"comment"`
	Rating    int          `json:"rating"`
	Author    *userPayload `json:"author,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

type listingResponse struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Price       int              `json:"price"`
	Location    string           `json:"location"`
	Country     string           `json:"country"`
	Image       imagePayload     `json:"image"`
	Geometry    geometryPayload  `json:"geometry"`
	OwnerID     string           `json:"ownerId,omitempty"`
	Owner       *userPayload     `json:"owner,omitempty"`
	Reviews     []reviewResponse `json:"reviews,omitempty"`
	ReviewCount int              `json:"reviewCount"`
	CreatedAt   *time.Time       `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time       `json:"updatedAt,omitempty"`
}

type listingIndexResponse struct {
	Items       []listingResponse         `json:"items"`
	Locations   []string                  `json:"locations"`
	Filter      string                    `json:"filter,omitempty"`
	Total       int                       `json:"total"`
	Flash       common.Flash              `json:"flash"`
	CurrentUser *common.AuthenticatedUser `json:"currentUser,omitempty"`
}

type listingShowResponse struct {
	Listing     listingResponse           `json:"listing"`
	Locations   []string                  `json:"locations"`
	Flash       common.Flash              `json:"flash"`
	CurrentUser *common.AuthenticatedUser `json:"currentUser,omitempty"`
}

type listingEditResponse struct {
	Listing      listingResponse `json:"listing"`
	ThumbnailURL string          `json:"thumbnailUrl"`
}

type listingFormResponse struct {
	Locations      []string `json:"locations"`
	AllowedFormats []string `json:"allowedFormats"`
	MaxUploadBytes int      `json:"maxUploadBytes"`
}

// buildListingResponse はドメインのリスティングを API 用 DTO に変換する。
func buildListingResponse(listing domain.Listing) listingResponse {
	resp := listingResponse{
		ID:          listing.ID,
		Title:       listing.Title,
		Description: listing.Description,
		Price:       listing.Price,
		Location:    listing.Location,
		Country:     listing.Country,
		Image:       imagePayload{URL: listing.Image.URL, Filename: listing.Image.Filename},
		Geometry:    geometryPayload{Type: listing.Geometry.Type, Coordinates: listing.Geometry.Coordinates},
		OwnerID:     listing.OwnerID,
		ReviewCount: len(listing.ReviewIDs),
	}
	if listing.Owner != nil {
		resp.Owner = &userPayload{ID: listing.Owner.ID, Username: listing.Owner.Username}
	}
	if len(listing.Reviews) > 0 {
		resp.Reviews = make([]reviewResponse, 0, len(listing.Reviews))
		for _, review := range listing.Reviews {
			resp.Reviews = append(resp.Reviews, buildReviewResponse(review))
		}
		resp.ReviewCount = len(listing.Reviews)
	}
	if !listing.CreatedAt.IsZero() {
		createdAt := listing.CreatedAt
		resp.CreatedAt = &createdAt
	}
	if !listing.UpdatedAt.IsZero() {
		updatedAt := listing.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}

func buildReviewResponse(review domain.Review) reviewResponse {
	resp := reviewResponse{
		ID:        review.ID,
		Comment:   review.Comment,
		Rating:    review.Rating,
		CreatedAt: review.CreatedAt,
	}
	if review.Author != nil {
		resp.Author = &userPayload{ID: review.Author.ID, Username: review.Author.Username}
	}
	return resp
}

func buildListingResponses(listings []domain.Listing) []listingResponse {
	items := make([]listingResponse, 0, len(listings))
	for _, listing := range listings {
		items = append(items, buildListingResponse(listing))
	}
	return items
}
