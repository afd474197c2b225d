// Package view renders the HTML pages as templ components.
//
// The *_templ.go files are generated from the .templ sources with
// "templ generate".
package view

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/msomdec/flashdeck/internal/domain"
)

// CategoryCount is one row of the home page.
type CategoryCount struct {
	Name  string
	Count int
}

// CardForm holds the values shown in the create and edit forms.
type CardForm struct {
	ID       int64 // 0 for a new card
	Category string
	Question string
	Answer   string
	Sides    [2]SideForm // question, answer
}

// SideForm holds one side's figure fields.
type SideForm struct {
	CodeType    string
	CodeExample string
	Image       string // handle of the stored image, if any
}

// CardFormFromView fills a form with a stored card.
func CardFormFromView(v domain.CardView) CardForm {
	return CardForm{
		ID:       v.ID,
		Category: v.Category,
		Question: deref(v.Question),
		Answer:   deref(v.Answer),
		Sides: [2]SideForm{
			{CodeType: deref(v.QCodeType), CodeExample: deref(v.QCodeExample), Image: deref(v.QImage)},
			{CodeType: deref(v.ACodeType), CodeExample: deref(v.ACodeExample), Image: deref(v.AImage)},
		},
	}
}

func (f CardForm) title() string {
	if f.ID != 0 {
		return "Edit flashcard"
	}
	return "New flashcard"
}

func (f CardForm) action() string {
	if f.ID != 0 {
		return cardURL(f.ID)
	}
	return "/manage/flashcards"
}

// ImageURL is the path that serves the image stored under handle.
func ImageURL(handle string) string {
	return "/images/" + url.PathEscape(handle)
}

// CategoryURL is the study page path for category.
func CategoryURL(category string) string {
	return "/flashcards/" + url.PathEscape(category)
}

// RowID is the element id of a card's management row.
func RowID(id int64) string {
	return "card-row-" + strconv.FormatInt(id, 10)
}

func cardURL(id int64) string {
	return "/manage/flashcards/" + strconv.FormatInt(id, 10)
}

// deleteAction posts the delete through datastar so the response can patch
// the row out of the table.
func deleteAction(id int64, csrfToken string) string {
	return fmt.Sprintf("@post('%s/delete', {headers: {'X-CSRF-Token': '%s'}})", cardURL(id), csrfToken)
}

func isPDF(handle string) bool {
	return strings.EqualFold(path.Ext(handle), ".pdf")
}

func summary(text, codeType, image *string) string {
	switch {
	case text != nil:
		return *text
	case codeType != nil:
		return "[" + *codeType + " code]"
	case image != nil:
		return "[" + *image + "]"
	default:
		return ""
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
