package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/msomdec/flashdeck/internal/domain"
	"github.com/msomdec/flashdeck/internal/repository/disk"
	"github.com/msomdec/flashdeck/internal/service"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	pdfBytes  = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestImageFiles(t *testing.T) (*service.ImageFiles, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "images")
	store, err := disk.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return service.NewImageFiles(store, discardLogger()), dir
}

// listImages returns the sorted names of the files in dir.
func listImages(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read image dir: %v", err)
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names
}

func TestImageFiles_Save(t *testing.T) {
	images, dir := newTestImageFiles(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		upload domain.ImageUpload
		want   string
	}{
		{"png", domain.ImageUpload{Filename: "diagram.png", ContentType: "image/png", Data: pngBytes}, "diagram_0.png"},
		{"jpeg upper ext", domain.ImageUpload{Filename: "Photo.JPG", ContentType: "image/jpeg", Data: jpegBytes}, "Photo_0.jpg"},
		{"pdf no declared type", domain.ImageUpload{Filename: "notes.pdf", Data: pdfBytes}, "notes_0.pdf"},
		{"octet stream declared", domain.ImageUpload{Filename: "raw.png", ContentType: "application/octet-stream", Data: pngBytes}, "raw_0.png"},
		{"unsafe name", domain.ImageUpload{Filename: "my graph (v2).final.png", ContentType: "image/png", Data: pngBytes}, "my_graph__v2__0.png"},
		{"empty base", domain.ImageUpload{Filename: ".png", ContentType: "image/png", Data: pngBytes}, "image_0.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handle, err := images.Save(ctx, &tt.upload)
			if err != nil {
				t.Fatalf("Save: %v", err)
			}
			if handle != tt.want {
				t.Fatalf("expected handle %q, got %q", tt.want, handle)
			}
			data, err := os.ReadFile(filepath.Join(dir, handle))
			if err != nil {
				t.Fatalf("read saved file: %v", err)
			}
			if !bytes.Equal(data, tt.upload.Data) {
				t.Fatal("saved bytes differ from upload")
			}
		})
	}
}

func TestImageFiles_Save_CollisionFree(t *testing.T) {
	images, dir := newTestImageFiles(t)
	ctx := context.Background()

	var handles []string
	for range 3 {
		h, err := images.Save(ctx, &domain.ImageUpload{Filename: "cat.png", Data: pngBytes})
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		handles = append(handles, h)
	}

	want := []string{"cat_0.png", "cat_1.png", "cat_2.png"}
	if !slices.Equal(handles, want) {
		t.Fatalf("expected %v, got %v", want, handles)
	}
	if got := listImages(t, dir); !slices.Equal(got, want) {
		t.Fatalf("expected files %v, got %v", want, got)
	}
}

func TestImageFiles_Save_Rejects(t *testing.T) {
	images, dir := newTestImageFiles(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		upload *domain.ImageUpload
	}{
		{"nil upload", nil},
		{"empty data", &domain.ImageUpload{Filename: "a.png"}},
		{"gif extension", &domain.ImageUpload{Filename: "a.gif", Data: []byte("GIF89a....")}},
		{"no extension", &domain.ImageUpload{Filename: "a", Data: pngBytes}},
		{"declared text", &domain.ImageUpload{Filename: "a.png", ContentType: "text/plain", Data: pngBytes}},
		{"content mismatch", &domain.ImageUpload{Filename: "a.png", ContentType: "image/png", Data: []byte("just some text")}},
		{"too large", &domain.ImageUpload{Filename: "big.png", Data: append(slices.Clone(pngBytes), make([]byte, 10*1024*1024)...)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := images.Save(ctx, tt.upload)
			if !errors.Is(err, domain.ErrUnsupportedImage) {
				t.Fatalf("expected ErrUnsupportedImage, got %v", err)
			}
			if !errors.Is(err, domain.ErrFigureStorage) {
				t.Fatalf("expected error to wrap ErrFigureStorage, got %v", err)
			}
		})
	}

	if got := listImages(t, dir); len(got) != 0 {
		t.Fatalf("expected no files after rejected uploads, got %v", got)
	}
}

func TestImageFiles_RemoveAndOpen(t *testing.T) {
	images, dir := newTestImageFiles(t)
	ctx := context.Background()

	handle, err := images.Save(ctx, &domain.ImageUpload{Filename: "doc.pdf", Data: pdfBytes})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, contentType, err := images.Open(ctx, handle)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if contentType != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", contentType)
	}
	if !bytes.Equal(data, pdfBytes) {
		t.Fatal("opened bytes differ from saved bytes")
	}

	if err := images.Remove(ctx, handle); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := listImages(t, dir); len(got) != 0 {
		t.Fatalf("expected empty dir, got %v", got)
	}

	// A missing file is not an error.
	if err := images.Remove(ctx, handle); err != nil {
		t.Fatalf("Remove missing: %v", err)
	}

	if _, _, err := images.Open(ctx, handle); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"cat.png", "cat"},
		{"archive.tar.gz", "archive"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\shot.png`, "shot"},
		{"héllo wörld.png", "h_llo_w_rld"},
		{"   ", "image"},
		{".hidden", "image"},
		{"ok-name_1.jpg", "ok-name_1"},
	}
	for _, tt := range tests {
		if got := service.SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
