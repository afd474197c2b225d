package service_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/msomdec/flashdeck/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func countRows(t *testing.T, s testServices, table string) int {
	t.Helper()
	var n int
	if err := s.db.SqlDB.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

// viewFields drops the generated IDs so views can be compared with literals.
func viewFields(v *domain.CardView) domain.CardView {
	out := *v
	out.ID = 0
	out.QuestionFigureID = nil
	out.AnswerFigureID = nil
	return out
}

func TestFlashcardService_Create_TextOnly(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	card, err := s.cards.Create(ctx, domain.CardInput{
		Category: "Algorithms",
		Question: "What is O(1)?",
		Answer:   "Constant time",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	view, err := s.cards.View(ctx, card.ID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	want := domain.CardView{
		Category: "Algorithms",
		Question: ptr("What is O(1)?"),
		Answer:   ptr("Constant time"),
	}
	if diff := cmp.Diff(want, viewFields(view)); diff != "" {
		t.Fatalf("view mismatch (-want +got):\n%s", diff)
	}
	if view.QuestionFigureID != nil || view.AnswerFigureID != nil {
		t.Fatal("expected no figure references")
	}
}

func TestFlashcardService_Create_CodeQuestionWithoutText(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	card, err := s.cards.Create(ctx, domain.CardInput{
		Category:       "Python",
		Question:       "",
		Answer:         "It prints 1",
		QuestionFigure: domain.CodeInput{Type: "python", Example: "print(1)"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	view, err := s.cards.View(ctx, card.ID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	want := domain.CardView{
		Category:     "Python",
		Answer:       ptr("It prints 1"),
		QCodeType:    ptr("python"),
		QCodeExample: ptr("print(1)"),
	}
	if diff := cmp.Diff(want, viewFields(view)); diff != "" {
		t.Fatalf("view mismatch (-want +got):\n%s", diff)
	}
}

func TestFlashcardService_Create_RoundTrip(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	card, err := s.cards.Create(ctx, domain.CardInput{
		Category:       "  Data/Structures ",
		Question:       "Which structure is drawn?",
		Answer:         "A heap",
		QuestionFigure: pngUpload("heap.png"),
		AnswerFigure:   domain.CodeInput{Type: "go", Example: "container/heap"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	view, err := s.cards.View(ctx, card.ID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	want := domain.CardView{
		Category:     "Data_Structures",
		Question:     ptr("Which structure is drawn?"),
		Answer:       ptr("A heap"),
		QImage:       ptr("heap_0.png"),
		ACodeType:    ptr("go"),
		ACodeExample: ptr("container/heap"),
	}
	if diff := cmp.Diff(want, viewFields(view)); diff != "" {
		t.Fatalf("view mismatch (-want +got):\n%s", diff)
	}
	if *view.QuestionFigureID != *card.QuestionFigureID || *view.AnswerFigureID != *card.AnswerFigureID {
		t.Fatal("view figure ids do not match the created card")
	}
}

func TestFlashcardService_Create_Validation(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   domain.CardInput
		want error
	}{
		{"empty category", domain.CardInput{Category: "", Question: "q", Answer: "a"}, domain.ErrMissingCategory},
		{"whitespace category", domain.CardInput{Category: "  ", Question: "q", Answer: "a"}, domain.ErrMissingCategory},
		{"empty question side", domain.CardInput{Category: "c", Question: "   ", Answer: "a"}, domain.ErrEmptyQuestionSide},
		{"empty answer side", domain.CardInput{Category: "c", Question: "q"}, domain.ErrEmptyAnswerSide},
		{"keep image on create", domain.CardInput{Category: "c", Question: "q", Answer: "a", AnswerFigure: domain.KeepImage{Handle: "a_0.png"}}, domain.ErrInvalidFigureInput},
		{"unsupported image", domain.CardInput{Category: "c", Question: "q", Answer: "a",
			QuestionFigure: domain.UploadImage{Upload: &domain.ImageUpload{Filename: "q.txt", Data: []byte("hello")}}}, domain.ErrUnsupportedImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.cards.Create(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if n := countRows(t, s, "flashcards"); n != 0 {
		t.Fatalf("expected no flashcards, got %d", n)
	}
	if n := countRows(t, s, "figures"); n != 0 {
		t.Fatalf("expected no figures, got %d", n)
	}
}

func TestFlashcardService_Create_CodeAndImageOnOneSide(t *testing.T) {
	s := newTestServices(t)

	// The form layer builds the input; a code example plus an image is rejected there.
	_, err := domain.NewFigureInput("python", "print(1)",
		&domain.ImageUpload{Filename: "q.png", Data: pngBytes}, "")
	if !errors.Is(err, domain.ErrInvalidFigureInput) {
		t.Fatalf("expected ErrInvalidFigureInput, got %v", err)
	}

	if n := countRows(t, s, "flashcards"); n != 0 {
		t.Fatalf("expected no flashcards, got %d", n)
	}
	if n := countRows(t, s, "figures"); n != 0 {
		t.Fatalf("expected no figures, got %d", n)
	}
	if files := listImages(t, s.imageDir); len(files) != 0 {
		t.Fatalf("expected no files, got %v", files)
	}
}

func TestFlashcardService_Create_FailedAnswerRemovesQuestionImage(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	_, err := s.cards.Create(ctx, domain.CardInput{
		Category:       "c",
		QuestionFigure: pngUpload("q.png"),
		AnswerFigure:   domain.UploadImage{Upload: &domain.ImageUpload{Filename: "a.gif", Data: []byte("GIF89a")}},
	})
	if !errors.Is(err, domain.ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
	if files := listImages(t, s.imageDir); len(files) != 0 {
		t.Fatalf("expected question image to be removed, got %v", files)
	}
	if n := countRows(t, s, "figures"); n != 0 {
		t.Fatalf("expected no figures, got %d", n)
	}
}

func TestFlashcardService_Update_Text(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	card, err := s.cards.Create(ctx, domain.CardInput{Category: "A", Question: "q1", Answer: "a1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.cards.Update(ctx, card.ID, domain.CardInput{Category: "B", Question: "q2", Answer: "a2"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	view, err := s.cards.View(ctx, card.ID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	want := domain.CardView{Category: "B", Question: ptr("q2"), Answer: ptr("a2")}
	if diff := cmp.Diff(want, viewFields(view)); diff != "" {
		t.Fatalf("view mismatch (-want +got):\n%s", diff)
	}
}

func TestFlashcardService_Update_RemoveCodeFigure(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	card, err := s.cards.Create(ctx, domain.CardInput{
		Category:       "Go",
		Question:       "What does this print?",
		Answer:         "1",
		QuestionFigure: domain.CodeInput{Type: "go", Example: "fmt.Println(1)"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	oldFigure := *card.QuestionFigureID

	if err := s.cards.Update(ctx, card.ID, domain.CardInput{Category: "Go", Question: "What does this print?", Answer: "1"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := s.cards.GetByID(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.QuestionFigureID != nil {
		t.Fatalf("expected question figure reference to be cleared, got %d", *got.QuestionFigureID)
	}
	if _, err := s.figures.Get(ctx, oldFigure); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected old figure to be deleted, got %v", err)
	}
}

func TestFlashcardService_Update_AnswerCodeToImage(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	card, err := s.cards.Create(ctx, domain.CardInput{
		Category:     "Trees",
		Question:     "Show a balanced tree",
		AnswerFigure: domain.CodeInput{Type: "text", Example: "  2\n 1 3"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.cards.Update(ctx, card.ID, domain.CardInput{
		Category:     "Trees",
		Question:     "Show a balanced tree",
		AnswerFigure: pngUpload("balanced.png"),
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	view, err := s.cards.View(ctx, card.ID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	want := domain.CardView{
		Category: "Trees",
		Question: ptr("Show a balanced tree"),
		AImage:   ptr("balanced_0.png"),
	}
	if diff := cmp.Diff(want, viewFields(view)); diff != "" {
		t.Fatalf("view mismatch (-want +got):\n%s", diff)
	}
	// Updated in place.
	if *view.AnswerFigureID != *card.AnswerFigureID {
		t.Fatalf("expected figure %d to be updated in place, got %d", *card.AnswerFigureID, *view.AnswerFigureID)
	}

	// Image to image removes the previous file.
	if err := s.cards.Update(ctx, card.ID, domain.CardInput{
		Category:     "Trees",
		Question:     "Show a balanced tree",
		AnswerFigure: pngUpload("avl.png"),
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if files := listImages(t, s.imageDir); !slices.Equal(files, []string{"avl_0.png"}) {
		t.Fatalf("expected [avl_0.png], got %v", files)
	}
}

func TestFlashcardService_Update_KeepImage(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	card, err := s.cards.Create(ctx, domain.CardInput{
		Category:       "Graphs",
		QuestionFigure: pngUpload("dag.png"),
		Answer:         "A DAG",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	before, err := s.cards.View(ctx, card.ID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}

	if err := s.cards.Update(ctx, card.ID, domain.CardInput{
		Category:       "Graphs",
		QuestionFigure: domain.KeepImage{Handle: *before.QImage},
		Answer:         "A directed acyclic graph",
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	after, err := s.cards.View(ctx, card.ID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if diff := cmp.Diff(before.QImage, after.QImage); diff != "" {
		t.Fatalf("image changed (-before +after):\n%s", diff)
	}
	if *after.Answer != "A directed acyclic graph" {
		t.Fatalf("expected answer to be updated, got %q", *after.Answer)
	}
	if files := listImages(t, s.imageDir); !slices.Equal(files, []string{"dag_0.png"}) {
		t.Fatalf("expected only dag_0.png, got %v", files)
	}
}

func TestFlashcardService_Update_RollsBack(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	card, err := s.cards.Create(ctx, domain.CardInput{
		Category:       "Sorting",
		Question:       "Stable?",
		QuestionFigure: domain.CodeInput{Type: "go", Example: "sort.Stable(x)"},
		AnswerFigure:   pngUpload("yes.png"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	before, err := s.cards.View(ctx, card.ID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}

	// The question figure update succeeds inside the transaction, then the
	// answer side fails on a handle the figure does not hold.
	err = s.cards.Update(ctx, card.ID, domain.CardInput{
		Category:       "Other",
		Question:       "Changed",
		QuestionFigure: pngUpload("new.png"),
		AnswerFigure:   domain.KeepImage{Handle: "someone_else_0.png"},
	})
	if !errors.Is(err, domain.ErrInvalidFigureInput) {
		t.Fatalf("expected ErrInvalidFigureInput, got %v", err)
	}

	after, err := s.cards.View(ctx, card.ID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("card changed after failed update (-before +after):\n%s", diff)
	}
	if files := listImages(t, s.imageDir); !slices.Equal(files, []string{"yes_0.png"}) {
		t.Fatalf("expected only yes_0.png, got %v", files)
	}
}

func TestFlashcardService_Update_Errors(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	card, err := s.cards.Create(ctx, domain.CardInput{Category: "c", Question: "q", Answer: "a"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.cards.Update(ctx, card.ID, domain.CardInput{Category: "c", Answer: "a"}); !errors.Is(err, domain.ErrEmptyQuestionSide) {
		t.Fatalf("expected ErrEmptyQuestionSide, got %v", err)
	}
	if err := s.cards.Update(ctx, card.ID, domain.CardInput{Category: "|", Question: "q", Answer: "a"}); err != nil {
		t.Fatalf("expected sanitized category \"_\" to be accepted, got %v", err)
	}
	if err := s.cards.Update(ctx, 9999, domain.CardInput{Category: "c", Question: "q", Answer: "a"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// A kept image on a side without a figure is not a valid new figure.
	if err := s.cards.Update(ctx, card.ID, domain.CardInput{
		Category: "c", Question: "q", Answer: "a",
		AnswerFigure: domain.KeepImage{Handle: "x_0.png"},
	}); !errors.Is(err, domain.ErrInvalidFigureInput) {
		t.Fatalf("expected ErrInvalidFigureInput, got %v", err)
	}
	// Upload saved before the missing card is noticed must be cleaned up.
	if err := s.cards.Update(ctx, 9999, domain.CardInput{Category: "c", Question: "q", AnswerFigure: pngUpload("late.png")}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if files := listImages(t, s.imageDir); len(files) != 0 {
		t.Fatalf("expected no files, got %v", files)
	}
}

func TestFlashcardService_Delete(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	card, err := s.cards.Create(ctx, domain.CardInput{
		Category:       "Networks",
		QuestionFigure: pngUpload("osi.png"),
		AnswerFigure:   domain.UploadImage{Upload: &domain.ImageUpload{Filename: "layers.pdf", Data: pdfBytes}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if files := listImages(t, s.imageDir); len(files) != 2 {
		t.Fatalf("expected 2 files, got %v", files)
	}

	if err := s.cards.Delete(ctx, card.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := s.cards.View(ctx, card.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for card, got %v", err)
	}
	for _, id := range []int64{*card.QuestionFigureID, *card.AnswerFigureID} {
		if _, err := s.figures.Get(ctx, id); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected figure %d to be deleted, got %v", id, err)
		}
	}
	if files := listImages(t, s.imageDir); len(files) != 0 {
		t.Fatalf("expected no files, got %v", files)
	}

	if err := s.cards.Delete(ctx, card.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestFlashcardService_ListAndCounts(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	for _, in := range []domain.CardInput{
		{Category: "Go", Question: "q1", Answer: "a1"},
		{Category: "Python", Question: "q2", Answer: "a2"},
		{Category: "Go", Question: "q3", AnswerFigure: domain.CodeInput{Type: "go", Example: "x := 1"}},
		{Category: "Algorithms", Question: "q4", Answer: "a4"},
	} {
		if _, err := s.cards.Create(ctx, in); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	all, err := s.cards.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 cards, got %d", len(all))
	}

	goCards, err := s.cards.List(ctx, "Go")
	if err != nil {
		t.Fatalf("List Go: %v", err)
	}
	if len(goCards) != 2 || *goCards[0].Question != "q1" || *goCards[1].Question != "q3" {
		t.Fatalf("unexpected Go cards: %+v", goCards)
	}
	if goCards[1].ACodeExample == nil || *goCards[1].ACodeExample != "x := 1" {
		t.Fatal("expected listed card to carry its figure")
	}

	none, err := s.cards.List(ctx, "Rust")
	if err != nil {
		t.Fatalf("List Rust: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", none)
	}

	counts, err := s.cards.CategoryCounts(ctx)
	if err != nil {
		t.Fatalf("CategoryCounts: %v", err)
	}
	if diff := cmp.Diff(map[string]int{"Go": 2, "Python": 1, "Algorithms": 1}, counts); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}

	names, err := s.cards.Categories(ctx, "o")
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if want := []string{"Algorithms", "Go", "Python"}; !slices.Equal(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	names, err = s.cards.Categories(ctx, "PY")
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if want := []string{"Python"}; !slices.Equal(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
}
