package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/msomdec/flashdeck/internal/domain"
	"github.com/msomdec/flashdeck/internal/service"
)

// ImageHandler serves stored figure images.
type ImageHandler struct {
	images *service.ImageFiles
	log    *slog.Logger
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(images *service.ImageFiles, logger *slog.Logger) *ImageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageHandler{images: images, log: logger}
}

// HandleServe serves image bytes with their detected Content-Type.
// GET /images/{handle}
func (h *ImageHandler) HandleServe(w http.ResponseWriter, r *http.Request) {
	handle := r.PathValue("handle")
	if handle == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	data, contentType, err := h.images.Open(r.Context(), handle)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		h.log.Error("serve image", "handle", handle, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	// Handles are reused once an image is deleted, so always revalidate.
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
