package listings

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sngm3741/wanderlust/api/internal/interfaces/http/common"
	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
)

const (
	flashCreated  = "New listing created!"
	flashUpdated  = "Listing updated!"
	flashDeleted  = "Listing deleted!"
	flashNotFound = "Listing you requested for does not exist!"
)

// listingIndexHandler は一覧とロケーションのファセットを返す。?location= で一覧のみ絞り込む。
func (h *Handler) listingIndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
		defer cancel()

		index, err := h.queries.ListAll(ctx, r.URL.Query().Get("location"))
		if err != nil {
			h.errors.Respond(w, r, err)
			return
		}

		items := buildListingResponses(index.Listings)
		common.WriteJSON(h.logger, w, http.StatusOK, listingIndexResponse{
			Items:       items,
			Locations:   index.Locations,
			Filter:      index.Filter,
			Total:       len(items),
			Flash:       h.flash.Pop(w, r),
			CurrentUser: currentUser(r),
		})
	}
}

// listingNewHandler returns what the create form needs.
func (h *Handler) listingNewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
		defer cancel()

		locations, err := h.queries.Locations(ctx)
		if err != nil {
			h.errors.Respond(w, r, err)
			return
		}
		formats := make([]string, 0, len(common.AllowedImageExtensions))
		for ext := range common.AllowedImageExtensions {
			formats = append(formats, strings.TrimPrefix(ext, "."))
		}
		sort.Strings(formats)

		common.WriteJSON(h.logger, w, http.StatusOK, listingFormResponse{
			Locations:      locations,
			AllowedFormats: formats,
			MaxUploadBytes: common.MaxImageUploadBytes,
		})
	}
}

func (h *Handler) listingShowHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
		defer cancel()

		listing, err := h.queries.Show(ctx, chi.URLParam(r, "id"))
		if err != nil {
			h.respondListingError(w, r, err)
			return
		}
		locations, err := h.queries.Locations(ctx)
		if err != nil {
			h.logger.Printf("locations lookup failed: %v", err)
			locations = []string{}
		}

		common.WriteJSON(h.logger, w, http.StatusOK, listingShowResponse{
			Listing:     buildListingResponse(*listing),
			Locations:   locations,
			Flash:       h.flash.Pop(w, r),
			CurrentUser: currentUser(r),
		})
	}
}

// listingCreateHandler は multipart フォームを受け取り、画像保存・ジオコーディング・永続化を行う。
func (h *Handler) listingCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
		defer cancel()

		form, err := parseListingForm(w, r)
		if err != nil {
			h.errors.Respond(w, r, err)
			return
		}
		cmd, err := form.createCommand(common.ActorID(r.Context()))
		if err != nil {
			h.errors.Respond(w, r, err)
			return
		}
		header, err := imageHeader(r)
		if err != nil {
			h.errors.Respond(w, r, err)
			return
		}
		if header == nil {
			verr := domain.NewValidationError()
			verr.Add("image", "is required")
			h.errors.Respond(w, r, verr)
			return
		}

		image, err := h.storeImage(ctx, header)
		if err != nil {
			h.errors.Respond(w, r, err)
			return
		}
		cmd.Image = image

		listing, err := h.lifecycle.Create(ctx, cmd)
		if err != nil {
			h.discardImage(image)
			h.errors.Respond(w, r, err)
			return
		}

		if common.WantsJSON(r) {
			common.WriteJSON(h.logger, w, http.StatusCreated, buildListingResponse(*listing))
			return
		}
		h.flash.Success(w, r, flashCreated)
		common.Redirect(w, r, "/listings")
	}
}

func (h *Handler) listingEditHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
		defer cancel()

		view, err := h.lifecycle.Edit(ctx, common.ActorID(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			h.respondListingError(w, r, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, listingEditResponse{
			Listing:      buildListingResponse(view.Listing),
			ThumbnailURL: view.ThumbnailURL,
		})
	}
}

// listingUpdateHandler は送信されたフィールドだけを部分更新する。画像は新しく送られた場合のみ差し替える。
func (h *Handler) listingUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
		defer cancel()

		listingID := chi.URLParam(r, "id")
		form, err := parseListingForm(w, r)
		if err != nil {
			h.errors.Respond(w, r, err)
			return
		}
		cmd, err := form.updateCommand(common.ActorID(r.Context()), listingID)
		if err != nil {
			h.errors.Respond(w, r, err)
			return
		}
		header, err := imageHeader(r)
		if err != nil {
			h.errors.Respond(w, r, err)
			return
		}

		var uploaded domain.Image
		if header != nil {
			uploaded, err = h.storeImage(ctx, header)
			if err != nil {
				h.errors.Respond(w, r, err)
				return
			}
			cmd.Image = &uploaded
		}

		listing, err := h.lifecycle.Update(ctx, cmd)
		if err != nil {
			h.discardImage(uploaded)
			h.respondListingError(w, r, err)
			return
		}

		if common.WantsJSON(r) {
			common.WriteJSON(h.logger, w, http.StatusOK, buildListingResponse(*listing))
			return
		}
		h.flash.Success(w, r, flashUpdated)
		common.Redirect(w, r, "/listings/"+listing.ID)
	}
}

func (h *Handler) listingDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
		defer cancel()

		listingID := chi.URLParam(r, "id")
		if err := h.lifecycle.Destroy(ctx, common.ActorID(r.Context()), listingID); err != nil {
			h.respondListingError(w, r, err)
			return
		}

		if common.WantsJSON(r) {
			common.WriteJSON(h.logger, w, http.StatusOK, map[string]string{"deleted": listingID})
			return
		}
		h.flash.Success(w, r, flashDeleted)
		common.Redirect(w, r, "/listings")
	}
}

// respondListingError はブラウザからの「存在しないリスティング」をフラッシュ付きで一覧へ戻す。
func (h *Handler) respondListingError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) && !common.WantsJSON(r) {
		h.flash.Error(w, r, flashNotFound)
		common.Redirect(w, r, "/listings")
		return
	}
	h.errors.Respond(w, r, err)
}

func currentUser(r *http.Request) *common.AuthenticatedUser {
	user, ok := common.UserFromContext(r.Context())
	if !ok {
		return nil
	}
	return &user
}
