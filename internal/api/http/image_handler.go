package http

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"carrental-backend/internal/logger"
)

// UploadImage stores the raw request body as the vehicle's photo. The
// Content-Type header selects the format.
func (h *VehicleHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		badRequest(w, r, "Content-Type header is required")
		return
	}
	vehicle, err := h.imageSvc.UploadImage(r.Context(), id, contentType, r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// DownloadImage streams a stored image by key.
func (h *VehicleHandler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	file, contentType, err := h.imageSvc.OpenImage(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := io.Copy(w, file); err != nil {
		logger.Warn("Image stream interrupted", "key", key, "error", err)
	}
}
