package domain

import (
	"context"
	"strings"
	"time"
)

// FigureContent is what a figure shows: a CodeContent or an ImageContent.
// A figure always holds exactly one of them.
type FigureContent interface {
	isFigureContent()
}

// CodeContent is a code example with its language tag.
type CodeContent struct {
	Type    string
	Example string
}

// ImageContent references image bytes held by the image file handler.
type ImageContent struct {
	Handle string
}

func (CodeContent) isFigureContent()  {}
func (ImageContent) isFigureContent() {}

// Figure supports the question or the answer side of exactly one flashcard.
type Figure struct {
	ID        int64
	Content   FigureContent
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ImageHandle returns the stored image handle, or "" for code figures.
func (f *Figure) ImageHandle() string {
	if img, ok := f.Content.(ImageContent); ok {
		return img.Handle
	}
	return ""
}

// FigureInput is new content submitted for one side of a card.
// A nil FigureInput means no figure content was supplied.
type FigureInput interface {
	isFigureInput()
}

// CodeInput replaces the figure content with a code example.
type CodeInput struct {
	Type    string
	Example string
}

// UploadImage carries new image bytes to be stored.
type UploadImage struct {
	Upload *ImageUpload
}

// KeepImage re-submits the image a figure already holds. It never writes a file.
type KeepImage struct {
	Handle string
}

func (CodeInput) isFigureInput()   {}
func (UploadImage) isFigureInput() {}
func (KeepImage) isFigureInput()   {}

// NewFigureInput builds a FigureInput from the optional fields of a form or
// request. A new upload takes precedence over a kept handle. Supplying nothing
// returns nil. A half code pair, or a code pair together with an image, is
// rejected with ErrInvalidFigureInput.
func NewFigureInput(codeType, codeExample string, upload *ImageUpload, keepHandle string) (FigureInput, error) {
	codeType = strings.TrimSpace(codeType)
	hasType := codeType != ""
	hasExample := strings.TrimSpace(codeExample) != ""
	hasUpload := upload != nil && len(upload.Data) > 0
	hasKeep := strings.TrimSpace(keepHandle) != ""

	if hasType != hasExample {
		return nil, ErrInvalidFigureInput
	}
	hasCode := hasType && hasExample
	hasImage := hasUpload || hasKeep

	switch {
	case hasCode && hasImage:
		return nil, ErrInvalidFigureInput
	case hasCode:
		return CodeInput{Type: codeType, Example: codeExample}, nil
	case hasUpload:
		return UploadImage{Upload: upload}, nil
	case hasKeep:
		return KeepImage{Handle: strings.TrimSpace(keepHandle)}, nil
	default:
		return nil, nil
	}
}

// FigureRepository handles figure row persistence.
type FigureRepository interface {
	Create(ctx context.Context, figure *Figure) error
	GetByID(ctx context.Context, id int64) (*Figure, error)
	Update(ctx context.Context, figure *Figure) error
	Delete(ctx context.Context, id int64) error
}
