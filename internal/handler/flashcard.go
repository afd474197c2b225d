package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/msomdec/flashdeck/internal/domain"
	"github.com/msomdec/flashdeck/internal/service"
	"github.com/msomdec/flashdeck/internal/view"
	"github.com/starfederation/datastar-go/datastar"
)

const maxFormMemory = 32 << 20

// FlashcardHandler serves the HTML pages for studying and managing cards.
type FlashcardHandler struct {
	cards *service.FlashcardService
	log   *slog.Logger
}

// NewFlashcardHandler creates a new FlashcardHandler.
func NewFlashcardHandler(cards *service.FlashcardService, logger *slog.Logger) *FlashcardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlashcardHandler{cards: cards, log: logger}
}

// HandleHome renders the categories with their card counts.
func (h *FlashcardHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	counts, err := h.cards.CategoryCounts(r.Context())
	if err != nil {
		h.internalError(w, r, "count categories", err)
		return
	}

	categories := make([]view.CategoryCount, 0, len(counts))
	for _, name := range slices.Sorted(maps.Keys(counts)) {
		categories = append(categories, view.CategoryCount{Name: name, Count: counts[name]})
	}
	view.HomePage(categories).Render(r.Context(), w)
}

// HandleStudy renders every card of one category.
// GET /flashcards/{category}
func (h *FlashcardHandler) HandleStudy(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	cards, err := h.cards.List(r.Context(), category)
	if err != nil {
		h.internalError(w, r, "list flashcards", err)
		return
	}
	view.StudyPage(category, cards).Render(r.Context(), w)
}

// HandleManage renders the management list, optionally filtered by category.
// GET /manage?category=
func (h *FlashcardHandler) HandleManage(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	cards, err := h.cards.List(r.Context(), category)
	if err != nil {
		h.internalError(w, r, "list flashcards", err)
		return
	}
	view.ManagePage(category, cards, CSRFTokenFromContext(r.Context())).Render(r.Context(), w)
}

// HandleAutocomplete suggests category names containing the search term.
// Datastar requests get the datalist patched in place; others get JSON.
// GET /manage/autocomplete?search=
func (h *FlashcardHandler) HandleAutocomplete(w http.ResponseWriter, r *http.Request) {
	names, err := h.cards.Categories(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.internalError(w, r, "autocomplete categories", err)
		return
	}

	if isDatastarRequest(r) {
		sse := datastar.NewSSE(w, r)
		sse.PatchElementTempl(view.CategoryOptions(names))
		return
	}
	writeJSON(w, h.log, http.StatusOK, map[string][]string{"options": names})
}

// HandleNew renders the empty card form.
func (h *FlashcardHandler) HandleNew(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, view.CardForm{}, "")
}

// HandleCreate processes the card form.
// POST /manage/flashcards
func (h *FlashcardHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	in, form, err := parseCardForm(r)
	if err != nil {
		h.renderForm(w, r, http.StatusBadRequest, form, err.Error())
		return
	}

	card, err := h.cards.Create(r.Context(), in)
	if err != nil {
		h.formError(w, r, form, "create flashcard", err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/manage/flashcards/%d", card.ID), http.StatusSeeOther)
}

// HandleView renders one card.
// GET /manage/flashcards/{id}
func (h *FlashcardHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	card, err := h.cards.View(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		h.internalError(w, r, "view flashcard", err)
		return
	}

	view.CardPage(*card, CSRFTokenFromContext(r.Context())).Render(r.Context(), w)
}

// HandleEdit renders the form for an existing card.
// GET /manage/flashcards/{id}/edit
func (h *FlashcardHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	card, err := h.cards.View(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		h.internalError(w, r, "view flashcard", err)
		return
	}

	h.renderForm(w, r, http.StatusOK, view.CardFormFromView(*card), "")
}

// HandleUpdate processes the edit form.
// POST /manage/flashcards/{id}
func (h *FlashcardHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	in, form, err := parseCardForm(r)
	form.ID = id
	if err != nil {
		h.renderForm(w, r, http.StatusBadRequest, form, err.Error())
		return
	}

	if err := h.cards.Update(r.Context(), id, in); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		h.formError(w, r, form, "update flashcard", err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/manage/flashcards/%d", id), http.StatusSeeOther)
}

// HandleDelete deletes a card. Datastar requests get the row removed via SSE;
// plain form posts are redirected to the list.
// POST /manage/flashcards/{id}/delete
func (h *FlashcardHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := h.cards.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		h.internalError(w, r, "delete flashcard", err)
		return
	}

	if isDatastarRequest(r) {
		sse := datastar.NewSSE(w, r)
		sse.RemoveElementByID(view.RowID(id))
		return
	}
	http.Redirect(w, r, "/manage", http.StatusSeeOther)
}

func (h *FlashcardHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, form view.CardForm, errMsg string) {
	categories, err := h.cards.Categories(r.Context(), "")
	if err != nil {
		h.log.Error("list categories", "error", err)
	}
	w.WriteHeader(status)
	view.CardFormPage(form, categories, errMsg, CSRFTokenFromContext(r.Context())).Render(r.Context(), w)
}

// formError re-renders the form for input errors and logs anything else.
func (h *FlashcardHandler) formError(w http.ResponseWriter, r *http.Request, form view.CardForm, op string, err error) {
	if errorStatus(err) == http.StatusBadRequest {
		h.renderForm(w, r, http.StatusBadRequest, form, err.Error())
		return
	}
	h.log.Error(op, "error", err, "request_id", RequestIDFromContext(r.Context()))
	h.renderForm(w, r, http.StatusInternalServerError, form, "An unexpected error occurred.")
}

func (h *FlashcardHandler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.log.Error(op, "error", err, "request_id", RequestIDFromContext(r.Context()))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func isDatastarRequest(r *http.Request) bool {
	return r.Header.Get("Datastar-Request") == "true"
}

// parseCardForm reads a card submission. Per side the fields are
// {q,a}_code_type, {q,a}_code_example, {q,a}_image (file), {q,a}_keep_image
// and {q,a}_remove_image. The returned form echoes the values for re-rendering.
func parseCardForm(r *http.Request) (domain.CardInput, view.CardForm, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return domain.CardInput{}, view.CardForm{}, fmt.Errorf("%w: read form: %w", domain.ErrInvalidInput, err)
	}

	in := domain.CardInput{
		Category: r.FormValue("category"),
		Question: r.FormValue("question"),
		Answer:   r.FormValue("answer"),
	}
	form := view.CardForm{Category: in.Category, Question: in.Question, Answer: in.Answer}

	for i, prefix := range []string{"q", "a"} {
		codeType := r.FormValue(prefix + "_code_type")
		codeExample := r.FormValue(prefix + "_code_example")
		keep := r.FormValue(prefix + "_keep_image")
		if r.FormValue(prefix+"_remove_image") != "" {
			keep = ""
		}
		form.Sides[i] = view.SideForm{CodeType: codeType, CodeExample: codeExample, Image: keep}

		upload, err := readUpload(r, prefix+"_image")
		if err != nil {
			return in, form, err
		}
		fig, err := domain.NewFigureInput(codeType, codeExample, upload, keep)
		if err != nil {
			return in, form, err
		}
		if i == 0 {
			in.QuestionFigure = fig
		} else {
			in.AnswerFigure = fig
		}
	}
	return in, form, nil
}

// readUpload returns the named file field, or nil when no file was chosen.
func readUpload(r *http.Request, field string) (*domain.ImageUpload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrInvalidInput, field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &domain.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
