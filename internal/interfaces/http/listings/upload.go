package listings

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/sngm3741/wanderlust/api/internal/interfaces/http/common"
	listingapp "github.com/sngm3741/wanderlust/api/internal/listing/application"
	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
)

// parseListingForm bounds the body and parses multipart input.
// 画像を伴わない更新は urlencoded でも受け付ける。
func parseListingForm(w http.ResponseWriter, r *http.Request) (listingForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, common.MaxMultipartBody)
	if err := r.ParseMultipartForm(common.MaxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return listingForm{}, err
		case errors.Is(err, http.ErrNotMultipart):
			if r.PostForm == nil {
				if err := r.ParseForm(); err != nil {
					return listingForm{}, common.NewHTTPError(http.StatusBadRequest, "invalid form body")
				}
			}
		default:
			return listingForm{}, common.NewHTTPError(http.StatusBadRequest, "invalid multipart body")
		}
	}
	return listingForm{values: r.PostForm}, nil
}

// imageHeader returns the uploaded image part, or nil when none was sent.
func imageHeader(r *http.Request) (*multipart.FileHeader, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	files := r.MultipartForm.File[fieldImage]
	if len(files) == 0 || strings.TrimSpace(files[0].Filename) == "" {
		return nil, nil
	}
	header := files[0]
	if _, ok := common.AllowedImageExtensions[strings.ToLower(path.Ext(header.Filename))]; !ok {
		verr := domain.NewValidationError()
		verr.Add("image", "must be a png, jpg or jpeg file")
		return nil, verr
	}
	if header.Size > common.MaxImageUploadBytes {
		return nil, common.NewHTTPError(http.StatusRequestEntityTooLarge, "Uploaded file is too large")
	}
	return header, nil
}

// storeImage はアップロードされた画像を保存し、リスティングに載せる参照を返す。
func (h *Handler) storeImage(ctx context.Context, header *multipart.FileHeader) (domain.Image, error) {
	file, err := header.Open()
	if err != nil {
		return domain.Image{}, fmt.Errorf("open uploaded image: %w", err)
	}
	defer file.Close()

	contentType := common.AllowedImageExtensions[strings.ToLower(path.Ext(header.Filename))]
	image, err := h.images.Upload(ctx, listingapp.ImageUpload{
		Filename:    header.Filename,
		ContentType: contentType,
		Body:        file,
	})
	if err != nil {
		return domain.Image{}, fmt.Errorf("store image: %w", err)
	}
	return image, nil
}

// discardImage removes an image whose listing was never saved.
func (h *Handler) discardImage(image domain.Image) {
	if image.Filename == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()
	if err := h.images.Delete(ctx, image.Filename); err != nil {
		h.logger.Printf("orphaned image %s could not be removed: %v", image.Filename, err)
	}
}
