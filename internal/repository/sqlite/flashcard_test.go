package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/msomdec/flashdeck/internal/domain"
	"github.com/msomdec/flashdeck/internal/repository/sqlite"
)

func seedFigure(t *testing.T, db *sqlite.DB, content domain.FigureContent) int64 {
	t.Helper()
	f := &domain.Figure{Content: content}
	if err := db.Figures().Create(context.Background(), f); err != nil {
		t.Fatalf("seed figure: %v", err)
	}
	return f.ID
}

func TestFlashcardRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := db.Flashcards()
	ctx := context.Background()

	c := &domain.Flashcard{Category: "Algorithms", Question: "What is O(1)?", Answer: "Constant time"}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID == 0 {
		t.Fatal("expected card ID to be set")
	}

	found, err := repo.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if found.Category != "Algorithms" || found.Question != "What is O(1)?" || found.Answer != "Constant time" {
		t.Fatalf("unexpected card %+v", found)
	}
	if found.QuestionFigureID != nil || found.AnswerFigureID != nil {
		t.Fatalf("expected no figure references, got %v %v", found.QuestionFigureID, found.AnswerFigureID)
	}
}

func TestFlashcardRepository_Create_EmptySideRejected(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.Flashcards().Create(ctx, &domain.Flashcard{Category: "Go", Answer: "a"})
	if err == nil {
		t.Fatal("expected CHECK failure for a card without a question side")
	}
}

func TestFlashcardRepository_FigureOwnership(t *testing.T) {
	db := newTestDB(t)
	repo := db.Flashcards()
	ctx := context.Background()

	figID := seedFigure(t, db, domain.CodeContent{Type: "go", Example: "x"})

	first := &domain.Flashcard{Category: "Go", QuestionFigureID: &figID, Answer: "a"}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create first: %v", err)
	}

	// Same column on another card.
	second := &domain.Flashcard{Category: "Go", QuestionFigureID: &figID, Answer: "b"}
	if err := repo.Create(ctx, second); err == nil {
		t.Fatal("expected unique failure sharing a question figure")
	}

	// Other column on another card.
	third := &domain.Flashcard{Category: "Go", Question: "q", AnswerFigureID: &figID}
	if err := repo.Create(ctx, third); err == nil {
		t.Fatal("expected trigger failure sharing a figure across sides")
	}

	// Both sides of one card.
	other := seedFigure(t, db, domain.CodeContent{Type: "go", Example: "y"})
	same := &domain.Flashcard{Category: "Go", QuestionFigureID: &other, AnswerFigureID: &other}
	if err := repo.Create(ctx, same); err == nil {
		t.Fatal("expected CHECK failure using one figure on both sides")
	}
}

func TestFlashcardRepository_GetView(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	qID := seedFigure(t, db, domain.CodeContent{Type: "python", Example: "print(1)"})
	aID := seedFigure(t, db, domain.ImageContent{Handle: "out_0.png"})

	c := &domain.Flashcard{Category: "Python", QuestionFigureID: &qID, AnswerFigureID: &aID}
	if err := db.Flashcards().Create(ctx, c); err != nil {
		t.Fatalf("Create: %v", err)
	}

	v, err := db.Flashcards().GetView(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetView: %v", err)
	}
	if v.Question != nil || v.Answer != nil {
		t.Fatalf("expected null text fields, got %v %v", v.Question, v.Answer)
	}
	if v.QCodeType == nil || *v.QCodeType != "python" {
		t.Fatalf("expected q_code_type python, got %v", v.QCodeType)
	}
	if v.QCodeExample == nil || *v.QCodeExample != "print(1)" {
		t.Fatalf("expected q_code_example, got %v", v.QCodeExample)
	}
	if v.QImage != nil {
		t.Fatalf("expected null q_image, got %v", *v.QImage)
	}
	if v.AImage == nil || *v.AImage != "out_0.png" {
		t.Fatalf("expected a_image out_0.png, got %v", v.AImage)
	}
	if v.ACodeType != nil || v.ACodeExample != nil {
		t.Fatal("expected null answer code fields")
	}
	if v.QuestionFigureID == nil || *v.QuestionFigureID != qID {
		t.Fatalf("expected q_figure_id %d, got %v", qID, v.QuestionFigureID)
	}
}

func TestFlashcardRepository_GetView_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Flashcards().GetView(context.Background(), 99999)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFlashcardRepository_ListViewsAndCounts(t *testing.T) {
	db := newTestDB(t)
	repo := db.Flashcards()
	ctx := context.Background()

	for _, c := range []*domain.Flashcard{
		{Category: "Go", Question: "q1", Answer: "a1"},
		{Category: "SQL", Question: "q2", Answer: "a2"},
		{Category: "Go", Question: "q3", Answer: "a3"},
	} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	all, err := repo.ListViews(ctx, "")
	if err != nil {
		t.Fatalf("ListViews: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(all))
	}
	if *all[0].Question != "q1" || *all[2].Question != "q3" {
		t.Fatal("expected cards in insertion order")
	}

	goCards, err := repo.ListViews(ctx, "Go")
	if err != nil {
		t.Fatalf("ListViews(Go): %v", err)
	}
	if len(goCards) != 2 {
		t.Fatalf("expected 2 Go cards, got %d", len(goCards))
	}

	none, err := repo.ListViews(ctx, "go")
	if err != nil {
		t.Fatalf("ListViews(go): %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice for exact match miss, got %v", none)
	}

	counts, err := repo.CategoryCounts(ctx)
	if err != nil {
		t.Fatalf("CategoryCounts: %v", err)
	}
	if counts["Go"] != 2 || counts["SQL"] != 1 || len(counts) != 2 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestFlashcardRepository_UpdateAndDelete(t *testing.T) {
	db := newTestDB(t)
	repo := db.Flashcards()
	ctx := context.Background()

	c := &domain.Flashcard{Category: "Go", Question: "q", Answer: "a"}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create: %v", err)
	}

	c.Category = "Rust"
	c.Answer = "b"
	if err := repo.Update(ctx, c); err != nil {
		t.Fatalf("Update: %v", err)
	}

	found, err := repo.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if found.Category != "Rust" || found.Answer != "b" {
		t.Fatalf("unexpected card after update %+v", found)
	}

	if err := repo.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if err := repo.Update(ctx, c); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating deleted card, got %v", err)
	}
}
