package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/msomdec/flashdeck/internal/domain"
)

const (
	maxImageSize     = 10 * 1024 * 1024 // 10MB
	maxNameAttempts  = 10000
	defaultImageBase = "image"
)

var (
	allowedImageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".pdf": true}
	allowedImageTypes      = map[string]bool{"image/jpeg": true, "image/png": true, "application/pdf": true}

	unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)
)

// ImageFiles validates, names, stores, and removes figure images. It is the
// only component that writes or deletes image bytes.
type ImageFiles struct {
	files domain.FileStore
	log   *slog.Logger

	// mu serializes name allocation so two saves never pick the same name.
	mu sync.Mutex
}

// NewImageFiles creates an ImageFiles backed by the given file store.
func NewImageFiles(files domain.FileStore, logger *slog.Logger) *ImageFiles {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageFiles{files: files, log: logger}
}

// Save validates an upload and stores it under a new, collision-free name of
// the form {base}_{n}{ext}. The returned handle is that name.
func (h *ImageFiles) Save(ctx context.Context, upload *domain.ImageUpload) (string, error) {
	if upload == nil || len(upload.Data) == 0 {
		return "", fmt.Errorf("%w: empty upload", domain.ErrUnsupportedImage)
	}
	if len(upload.Data) > maxImageSize {
		return "", fmt.Errorf("%w: image exceeds 10MB limit", domain.ErrUnsupportedImage)
	}

	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if !allowedImageExtensions[ext] {
		h.log.Error("image extension is not supported", "filename", upload.Filename, "extension", ext)
		return "", fmt.Errorf("%w: extension %q is not allowed", domain.ErrUnsupportedImage, ext)
	}

	if declared := mediaType(upload.ContentType); declared != "" && declared != "application/octet-stream" && !allowedImageTypes[declared] {
		h.log.Error("image MIME type is not supported", "filename", upload.Filename, "content_type", declared)
		return "", fmt.Errorf("%w: content type %q is not allowed", domain.ErrUnsupportedImage, declared)
	}

	// Detect content type from file bytes (more reliable than the declared type).
	if sniffed := mediaType(http.DetectContentType(upload.Data)); !allowedImageTypes[sniffed] {
		h.log.Error("image content is not supported", "filename", upload.Filename, "detected", sniffed)
		return "", fmt.Errorf("%w: file content is %s", domain.ErrUnsupportedImage, sniffed)
	}

	base := SanitizeFilename(upload.Filename)

	h.mu.Lock()
	defer h.mu.Unlock()

	for n := 0; n < maxNameAttempts; n++ {
		name := fmt.Sprintf("%s_%d%s", base, n, ext)
		exists, err := h.files.Exists(ctx, name)
		if err != nil {
			return "", fmt.Errorf("%w: check %s: %w", domain.ErrFigureStorage, name, err)
		}
		if exists {
			continue
		}

		if err := h.files.Save(ctx, name, upload.Data); err != nil {
			return "", fmt.Errorf("%w: save %s: %w", domain.ErrFigureStorage, name, err)
		}
		h.log.Info("image saved", "handle", name, "size", len(upload.Data))
		return name, nil
	}
	return "", fmt.Errorf("%w: no free name for %q", domain.ErrFigureStorage, base)
}

// Remove deletes the bytes behind handle. A missing file is logged, not an error.
func (h *ImageFiles) Remove(ctx context.Context, handle string) error {
	err := h.files.Delete(ctx, handle)
	switch {
	case err == nil:
		h.log.Info("image removed", "handle", handle)
		return nil
	case errors.Is(err, domain.ErrNotFound):
		h.log.Warn("image to remove does not exist", "handle", handle)
		return nil
	default:
		return fmt.Errorf("%w: remove %s: %w", domain.ErrFigureStorage, handle, err)
	}
}

// Open returns the stored bytes for handle and their detected content type.
func (h *ImageFiles) Open(ctx context.Context, handle string) ([]byte, string, error) {
	data, err := h.files.Get(ctx, handle)
	if err != nil {
		return nil, "", err
	}
	return data, http.DetectContentType(data), nil
}

// SanitizeFilename reduces an upload's file name to a safe base name: the part
// before the first dot, with every character outside [A-Za-z0-9_-] replaced by
// an underscore.
func SanitizeFilename(filename string) string {
	name := strings.TrimSpace(filename)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	name = unsafeNameChars.ReplaceAllString(name, "_")
	if name == "" {
		return defaultImageBase
	}
	return name
}

func mediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(contentType)
	}
	return mt
}
