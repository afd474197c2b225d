package handler

import (
	"fmt"

	"github.com/msomdec/flashdeck/internal/domain"
)

// CardRequest is the JSON body for creating or updating a flashcard.
type CardRequest struct {
	Category       string         `json:"category"`
	Question       string         `json:"question"`
	Answer         string         `json:"answer"`
	QuestionFigure *FigureRequest `json:"question_figure"`
	AnswerFigure   *FigureRequest `json:"answer_figure"`
}

// FigureRequest is one side's figure. Set either the code pair, an image,
// or keep_image with the handle the side already holds.
type FigureRequest struct {
	CodeType    string        `json:"code_type"`
	CodeExample string        `json:"code_example"`
	Image       *ImageRequest `json:"image"`
	KeepImage   string        `json:"keep_image"`
}

// ImageRequest carries image bytes, base64 encoded in JSON.
type ImageRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// CategoryDTO is the JSON representation of a category.
type CategoryDTO struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func (req CardRequest) toInput() (domain.CardInput, error) {
	q, err := req.QuestionFigure.toInput()
	if err != nil {
		return domain.CardInput{}, fmt.Errorf("question figure: %w", err)
	}
	a, err := req.AnswerFigure.toInput()
	if err != nil {
		return domain.CardInput{}, fmt.Errorf("answer figure: %w", err)
	}
	return domain.CardInput{
		Category:       req.Category,
		Question:       req.Question,
		Answer:         req.Answer,
		QuestionFigure: q,
		AnswerFigure:   a,
	}, nil
}

func (f *FigureRequest) toInput() (domain.FigureInput, error) {
	if f == nil {
		return nil, nil
	}
	var upload *domain.ImageUpload
	if f.Image != nil {
		upload = &domain.ImageUpload{Filename: f.Image.Filename, ContentType: f.Image.ContentType, Data: f.Image.Data}
	}
	return domain.NewFigureInput(f.CodeType, f.CodeExample, upload, f.KeepImage)
}
