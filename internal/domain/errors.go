package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	ErrInvalidFigureInput = fmt.Errorf("%w: a figure needs either a complete code example or an image", ErrInvalidInput)
	ErrEmptyFigureUpdate  = fmt.Errorf("%w: figure update has no content", ErrInvalidInput)
	ErrMissingCategory    = fmt.Errorf("%w: category is required", ErrInvalidInput)
	ErrEmptyQuestionSide  = fmt.Errorf("%w: question needs text, code, or an image", ErrInvalidInput)
	ErrEmptyAnswerSide    = fmt.Errorf("%w: answer needs text, code, or an image", ErrInvalidInput)

	// ErrFigureStorage reports a failure to persist or remove figure image bytes.
	ErrFigureStorage    = errors.New("figure storage failure")
	ErrUnsupportedImage = fmt.Errorf("%w: unsupported image", ErrFigureStorage)
)
