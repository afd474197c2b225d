package domain

import "context"

// ImageUpload is a raw image received from a caller.
type ImageUpload struct {
	Filename    string // Original upload filename
	ContentType string // Declared content type, may be empty
	Data        []byte
}

// FileStore abstracts raw file byte storage keyed by file name.
// Delete and Get return ErrNotFound for unknown keys.
type FileStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
