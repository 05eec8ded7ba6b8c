package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"gxshared/internal/domain"
	"gxshared/internal/imagehost"
)

type imageUploadRequest struct {
	Name string `json:"name"`
	// Kind is "item" or "category".
	Kind string `json:"kind"`
	// Data is a data URI or a remote image URL.
	Data string `json:"data"`
}

func (a *api) handleImageUpload(w http.ResponseWriter, r *http.Request) {
	if a.images == nil {
		WriteDomainError(w, domain.NewConfigurationError("APP_IMAGE_CLOUD_NAME", "image host not configured"))
		return
	}
	var req imageUploadRequest
	if err := decodeJSONLimit(w, r, &req, maxImageBody); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	fields := map[string]string{}
	req.Name = strings.TrimSpace(req.Name)
	if imagehost.FormatNameForPublicID(req.Name) == "" {
		fields["name"] = "must contain letters or digits"
	}
	if req.Kind != "item" && req.Kind != "category" {
		fields["kind"] = "must be item or category"
	}
	if !strings.HasPrefix(req.Data, "data:image/") && !strings.HasPrefix(req.Data, "https://") && !strings.HasPrefix(req.Data, "http://") {
		fields["data"] = "must be an image data URI or URL"
	}
	if len(fields) > 0 {
		WriteDomainError(w, domain.NewValidationError(fields))
		return
	}

	upload := a.images.UploadMenuItemImage
	if req.Kind == "category" {
		upload = a.images.UploadMenuCategoryImage
	}
	res, err := upload(r.Context(), imagehost.Ref(req.Data), req.Name)
	if err != nil {
		a.logger.Error("image upload", "kind", req.Kind, "err", err)
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, res)
}

func (a *api) handleImageDelete(w http.ResponseWriter, r *http.Request) {
	if a.images == nil {
		WriteDomainError(w, domain.NewConfigurationError("APP_IMAGE_CLOUD_NAME", "image host not configured"))
		return
	}
	id := r.PathValue("id")
	ok, err := a.images.Delete(r.Context(), id)
	if err != nil {
		a.logger.Error("image delete", "public_id", id, "err", err)
		WriteDomainError(w, err)
		return
	}
	if !ok {
		WriteDomainError(w, domain.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleImageURL(w http.ResponseWriter, r *http.Request) {
	if a.images == nil {
		WriteDomainError(w, domain.NewConfigurationError("APP_IMAGE_CLOUD_NAME", "image host not configured"))
		return
	}
	q := r.URL.Query()
	id := q.Get("id")
	fields := map[string]string{}
	if id == "" {
		fields["id"] = "required"
	}
	intParam := func(name string) int {
		raw := q.Get(name)
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fields[name] = "must be a non-negative integer"
		}
		return n
	}
	opts := imagehost.URLOptions{
		Width:   intParam("w"),
		Height:  intParam("h"),
		Quality: intParam("q"),
		Crop:    q.Get("crop"),
		Format:  q.Get("f"),
	}
	if len(fields) > 0 {
		WriteDomainError(w, domain.NewValidationError(fields))
		return
	}
	u, err := a.images.URL(id, opts)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"url": u})
}
