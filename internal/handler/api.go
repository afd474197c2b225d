package handler

import (
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/msomdec/flashdeck/internal/domain"
	"github.com/msomdec/flashdeck/internal/service"
)

// APIHandler serves the JSON API under /api.
type APIHandler struct {
	cards *service.FlashcardService
	log   *slog.Logger
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(cards *service.FlashcardService, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{cards: cards, log: logger}
}

// HandleList returns all cards, or those in the category query parameter.
// GET /api/flashcards?category=
func (h *APIHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("category")))
	if err != nil {
		writeServiceError(w, r, h.log, "list flashcards", err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, cards)
}

// HandleGet returns one card.
// GET /api/flashcards/{id}
func (h *APIHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	card, err := h.cards.View(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, "view flashcard", err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, card)
}

// HandleCreate creates a card and returns it.
// POST /api/flashcards
func (h *APIHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := h.readCard(w, r)
	if !ok {
		return
	}

	card, err := h.cards.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, h.log, "create flashcard", err)
		return
	}

	created, err := h.cards.View(r.Context(), card.ID)
	if err != nil {
		writeServiceError(w, r, h.log, "view flashcard", err)
		return
	}
	w.Header().Set("Location", "/api/flashcards/"+strconv.FormatInt(card.ID, 10))
	writeJSON(w, h.log, http.StatusCreated, created)
}

// HandleUpdate replaces a card's text and figures and returns the result.
// PUT /api/flashcards/{id}
func (h *APIHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	in, ok := h.readCard(w, r)
	if !ok {
		return
	}

	if err := h.cards.Update(r.Context(), id, in); err != nil {
		writeServiceError(w, r, h.log, "update flashcard", err)
		return
	}

	updated, err := h.cards.View(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, "view flashcard", err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, updated)
}

// HandleDelete deletes a card with its figures.
// DELETE /api/flashcards/{id}
func (h *APIHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.cards.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.log, "delete flashcard", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCategories returns every category with its card count, sorted by name.
// GET /api/categories
func (h *APIHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	counts, err := h.cards.CategoryCounts(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, "count categories", err)
		return
	}

	out := make([]CategoryDTO, 0, len(counts))
	for _, name := range slices.Sorted(maps.Keys(counts)) {
		out = append(out, CategoryDTO{Name: name, Count: counts[name]})
	}
	writeJSON(w, h.log, http.StatusOK, out)
}

func (h *APIHandler) readCard(w http.ResponseWriter, r *http.Request) (domain.CardInput, bool) {
	var req CardRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, h.log, http.StatusBadRequest, err.Error())
		return domain.CardInput{}, false
	}
	in, err := req.toInput()
	if err != nil {
		writeServiceError(w, r, h.log, "decode flashcard", err)
		return domain.CardInput{}, false
	}
	return in, true
}

func (h *APIHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
