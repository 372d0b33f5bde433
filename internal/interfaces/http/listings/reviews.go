package listings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sngm3741/wanderlust/api/internal/interfaces/http/common"
	listingapp "github.com/sngm3741/wanderlust/api/internal/listing/application"
	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
)

const (
	flashReviewCreated  = "New review created!"
	flashReviewDeleted  = "Review deleted!"
	flashReviewNotFound = "Review you requested for does not exist!"
)

// reviewCreateHandler accepts review[comment]/review[rating] form fields or a JSON body.
func (h *Handler) reviewCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
		defer cancel()

		listingID := chi.URLParam(r, "id")
		r.Body = http.MaxBytesReader(w, r.Body, common.MaxJSONRequestBody)

		var input reviewInput
		if strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
				h.errors.Respond(w, r, common.NewHTTPError(http.StatusBadRequest, "invalid JSON body"))
				return
			}
		} else {
			if err := r.ParseForm(); err != nil {
				h.errors.Respond(w, r, common.NewHTTPError(http.StatusBadRequest, "invalid form body"))
				return
			}
			input = reviewInputFromForm(r.PostForm)
		}

		review, err := h.reviews.Add(ctx, listingapp.AddReviewCommand{
			ActorID:   common.ActorID(r.Context()),
			ListingID: listingID,
			Comment:   input.comment(),
			Rating:    input.rating(),
		})
		if err != nil {
			h.respondListingError(w, r, err)
			return
		}

		if common.WantsJSON(r) {
			common.WriteJSON(h.logger, w, http.StatusCreated, buildReviewResponse(*review))
			return
		}
		h.flash.Success(w, r, flashReviewCreated)
		common.Redirect(w, r, "/listings/"+listingID)
	}
}

func (h *Handler) reviewDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
		defer cancel()

		listingID := chi.URLParam(r, "id")
		reviewID := chi.URLParam(r, "reviewId")
		err := h.reviews.Delete(ctx, common.ActorID(r.Context()), listingID, reviewID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) && !common.WantsJSON(r) {
				h.flash.Error(w, r, flashReviewNotFound)
				common.Redirect(w, r, "/listings/"+listingID)
				return
			}
			h.errors.Respond(w, r, err)
			return
		}

		if common.WantsJSON(r) {
			common.WriteJSON(h.logger, w, http.StatusOK, map[string]string{"deleted": reviewID})
			return
		}
		h.flash.Success(w, r, flashReviewDeleted)
		common.Redirect(w, r, "/listings/"+listingID)
	}
}
