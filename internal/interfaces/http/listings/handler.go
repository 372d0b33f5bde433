package listings

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sngm3741/wanderlust/api/internal/interfaces/http/common"
	listingapp "github.com/sngm3741/wanderlust/api/internal/listing/application"
)

const (
	readTimeout  = 5 * time.Second
	writeTimeout = 15 * time.Second
)

// Handler wires listing and review HTTP endpoints to application services.
type Handler struct {
	logger    *log.Logger
	lifecycle listingapp.ListingLifecycle
	queries   listingapp.ListingQueryService
	reviews   listingapp.ReviewService
	images    listingapp.ImageStore
	flash     *common.FlashStore
	errors    common.ErrorResponder
}

// Config defines dependencies required by Handler.
type Config struct {
	Logger    *log.Logger
	Lifecycle listingapp.ListingLifecycle
	Queries   listingapp.ListingQueryService
	Reviews   listingapp.ReviewService
	Images    listingapp.ImageStore
	Flash     *common.FlashStore
	Errors    common.ErrorResponder
}

// NewHandler constructs a listing HTTP handler set.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		logger:    cfg.Logger,
		lifecycle: cfg.Lifecycle,
		queries:   cfg.Queries,
		reviews:   cfg.Reviews,
		images:    cfg.Images,
		flash:     cfg.Flash,
		errors:    cfg.Errors,
	}
}

// Register mounts listing routes. requireAuth guards every mutation and form endpoint.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/listings", func(r chi.Router) {
		r.Get("/", h.listingIndexHandler())
		r.Get("/{id}", h.listingShowHandler())

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/new", h.listingNewHandler())
			r.Post("/", h.listingCreateHandler())
			r.Get("/{id}/edit", h.listingEditHandler())
			r.Put("/{id}", h.listingUpdateHandler())
			r.Delete("/{id}", h.listingDeleteHandler())
			r.Post("/{id}/reviews", h.reviewCreateHandler())
			r.Delete("/{id}/reviews/{reviewId}", h.reviewDeleteHandler())
		})
	})
}
