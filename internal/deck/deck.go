// Package deck reads and writes flashcards as YAML decks for bulk import and
// export.
//
// A deck looks like:
//
//	cards:
//	  - category: Go
//	    question: What does this print?
//	    question_figure:
//	      code_type: go
//	      code_example: fmt.Println(len("héllo"))
//	    answer: "6"
//	    answer_figure:
//	      image:
//	        filename: bytes.png
//	        path: images/bytes.png
//
// An image is given either by a path relative to the deck file or inline as
// base64 in data.
package deck

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/msomdec/flashdeck/internal/domain"
	"gopkg.in/yaml.v3"
)

// Deck is a list of cards.
type Deck struct {
	Cards []Card `yaml:"cards"`
}

// Card is one flashcard in a deck.
type Card struct {
	Category       string  `yaml:"category"`
	Question       string  `yaml:"question,omitempty"`
	QuestionFigure *Figure `yaml:"question_figure,omitempty"`
	Answer         string  `yaml:"answer,omitempty"`
	AnswerFigure   *Figure `yaml:"answer_figure,omitempty"`
}

// Figure is a code example or an image.
type Figure struct {
	CodeType    string `yaml:"code_type,omitempty"`
	CodeExample string `yaml:"code_example,omitempty"`
	Image       *Image `yaml:"image,omitempty"`
}

// Image is an image file referenced by Path or embedded in Data.
type Image struct {
	Filename string `yaml:"filename"`
	Path     string `yaml:"path,omitempty"`
	Data     string `yaml:"data,omitempty"`
}

// CardCreator creates flashcards.
type CardCreator interface {
	Create(ctx context.Context, in domain.CardInput) (*domain.Flashcard, error)
}

// CardLister lists flashcards, optionally within one category.
type CardLister interface {
	List(ctx context.Context, category string) ([]domain.CardView, error)
}

// ImageOpener reads stored image bytes.
type ImageOpener interface {
	Open(ctx context.Context, handle string) ([]byte, string, error)
}

// Load parses a deck. Unknown keys are rejected.
func Load(r io.Reader) (*Deck, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var d Deck
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return &d, nil
		}
		return nil, fmt.Errorf("decode deck: %w", err)
	}
	return &d, nil
}

// LoadFile parses the deck at path.
func LoadFile(path string) (*Deck, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open deck: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Write encodes d as YAML.
func (d *Deck) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode deck: %w", err)
	}
	return enc.Close()
}

// Import creates every card of d in order and returns how many were created.
// It stops at the first card that fails. Image paths are resolved against
// baseDir.
func Import(ctx context.Context, cards CardCreator, d *Deck, baseDir string) (int, error) {
	for i, c := range d.Cards {
		in, err := c.input(baseDir)
		if err != nil {
			return i, fmt.Errorf("card %d: %w", i+1, err)
		}
		if _, err := cards.Create(ctx, in); err != nil {
			return i, fmt.Errorf("card %d: %w", i+1, err)
		}
	}
	return len(d.Cards), nil
}

// Export builds a deck of every card, or the cards of one category, with
// images embedded.
func Export(ctx context.Context, cards CardLister, images ImageOpener, category string) (*Deck, error) {
	views, err := cards.List(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list flashcards: %w", err)
	}

	d := &Deck{Cards: make([]Card, 0, len(views))}
	for _, v := range views {
		q, err := exportFigure(ctx, images, v.QCodeType, v.QCodeExample, v.QImage)
		if err != nil {
			return nil, fmt.Errorf("card %d question: %w", v.ID, err)
		}
		a, err := exportFigure(ctx, images, v.ACodeType, v.ACodeExample, v.AImage)
		if err != nil {
			return nil, fmt.Errorf("card %d answer: %w", v.ID, err)
		}
		d.Cards = append(d.Cards, Card{
			Category:       v.Category,
			Question:       deref(v.Question),
			QuestionFigure: q,
			Answer:         deref(v.Answer),
			AnswerFigure:   a,
		})
	}
	return d, nil
}

func (c Card) input(baseDir string) (domain.CardInput, error) {
	q, err := c.QuestionFigure.input(baseDir)
	if err != nil {
		return domain.CardInput{}, fmt.Errorf("question figure: %w", err)
	}
	a, err := c.AnswerFigure.input(baseDir)
	if err != nil {
		return domain.CardInput{}, fmt.Errorf("answer figure: %w", err)
	}
	return domain.CardInput{
		Category:       c.Category,
		Question:       c.Question,
		Answer:         c.Answer,
		QuestionFigure: q,
		AnswerFigure:   a,
	}, nil
}

func (f *Figure) input(baseDir string) (domain.FigureInput, error) {
	if f == nil {
		return nil, nil
	}
	var upload *domain.ImageUpload
	if f.Image != nil {
		data, err := f.Image.bytes(baseDir)
		if err != nil {
			return nil, err
		}
		upload = &domain.ImageUpload{Filename: f.Image.Filename, Data: data}
	}
	return domain.NewFigureInput(f.CodeType, f.CodeExample, upload, "")
}

func (img *Image) bytes(baseDir string) ([]byte, error) {
	switch {
	case img.Path != "" && img.Data != "":
		return nil, fmt.Errorf("%w: image %q has both path and data", domain.ErrInvalidInput, img.Filename)
	case img.Path != "":
		path := img.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		if img.Filename == "" {
			img.Filename = filepath.Base(path)
		}
		return data, nil
	case img.Data != "":
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(img.Data))
		if err != nil {
			return nil, fmt.Errorf("%w: image %q data: %w", domain.ErrInvalidInput, img.Filename, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: image %q has no path or data", domain.ErrInvalidInput, img.Filename)
	}
}

func exportFigure(ctx context.Context, images ImageOpener, codeType, codeExample, handle *string) (*Figure, error) {
	switch {
	case codeExample != nil:
		return &Figure{CodeType: deref(codeType), CodeExample: *codeExample}, nil
	case handle != nil:
		data, _, err := images.Open(ctx, *handle)
		if err != nil {
			return nil, fmt.Errorf("open image %s: %w", *handle, err)
		}
		return &Figure{Image: &Image{
			Filename: *handle,
			Data:     base64.StdEncoding.EncodeToString(data),
		}}, nil
	default:
		return nil, nil
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
