package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/msomdec/flashdeck/internal/domain"
	"github.com/msomdec/flashdeck/internal/handler"
)

func (a *testApp) doJSON(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeCard(t *testing.T, resp *http.Response) domain.CardView {
	t.Helper()
	defer resp.Body.Close()
	var card domain.CardView
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		t.Fatalf("decode card: %v", err)
	}
	return card
}

func ptr[T any](v T) *T { return &v }

func TestAPI_CardLifecycle(t *testing.T) {
	app := newTestApp(t, handler.Options{})

	resp := app.doJSON(t, http.MethodPost, "/api/flashcards", handler.CardRequest{
		Category: "Go",
		Question: "What does this print?",
		QuestionFigure: &handler.FigureRequest{
			CodeType:    "go",
			CodeExample: `fmt.Println("hi")`,
		},
		AnswerFigure: &handler.FigureRequest{
			Image: &handler.ImageRequest{Filename: "output.png", ContentType: "image/png", Data: pngBytes},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	created := decodeCard(t, resp)
	if loc := resp.Header.Get("Location"); loc != fmt.Sprintf("/api/flashcards/%d", created.ID) {
		t.Fatalf("unexpected Location %q", loc)
	}

	want := domain.CardView{
		ID:               created.ID,
		Category:         "Go",
		Question:         ptr("What does this print?"),
		QuestionFigureID: created.QuestionFigureID,
		QCodeType:        ptr("go"),
		QCodeExample:     ptr(`fmt.Println("hi")`),
		AnswerFigureID:   created.AnswerFigureID,
		AImage:           ptr("output_0.png"),
	}
	if diff := cmp.Diff(want, created); diff != "" {
		t.Fatalf("created card mismatch (-want +got):\n%s", diff)
	}

	path := fmt.Sprintf("/api/flashcards/%d", created.ID)
	got := decodeCard(t, app.doJSON(t, http.MethodGet, path, nil))
	if diff := cmp.Diff(created, got); diff != "" {
		t.Fatalf("get mismatch (-want +got):\n%s", diff)
	}

	// Keep the answer image, replace the question code with text only.
	resp = app.doJSON(t, http.MethodPut, path, handler.CardRequest{
		Category:     "Go",
		Question:     "What is printed?",
		AnswerFigure: &handler.FigureRequest{KeepImage: "output_0.png"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}
	updated := decodeCard(t, resp)
	if updated.QuestionFigureID != nil || updated.QCodeExample != nil {
		t.Fatalf("expected question figure removed, got %+v", updated)
	}
	if updated.AImage == nil || *updated.AImage != "output_0.png" {
		t.Fatalf("expected kept image, got %v", updated.AImage)
	}

	resp = app.doJSON(t, http.MethodDelete, path, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	if _, err := os.Stat(filepath.Join(app.imageDir, "output_0.png")); !os.IsNotExist(err) {
		t.Fatalf("expected image file removed, got %v", err)
	}

	resp = app.doJSON(t, http.MethodGet, path, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestAPI_Errors(t *testing.T) {
	app := newTestApp(t, handler.Options{})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"half code pair", http.MethodPost, "/api/flashcards", handler.CardRequest{
			Category: "Go", Question: "Q", Answer: "A",
			QuestionFigure: &handler.FigureRequest{CodeType: "go"},
		}, http.StatusBadRequest},
		{"missing category", http.MethodPost, "/api/flashcards", handler.CardRequest{
			Question: "Q", Answer: "A",
		}, http.StatusBadRequest},
		{"unsupported image", http.MethodPost, "/api/flashcards", handler.CardRequest{
			Category: "Go", Question: "Q",
			AnswerFigure: &handler.FigureRequest{
				Image: &handler.ImageRequest{Filename: "notes.txt", Data: []byte("plain text")},
			},
		}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/flashcards", map[string]string{"title": "x"}, http.StatusBadRequest},
		{"update missing card", http.MethodPut, "/api/flashcards/404", handler.CardRequest{
			Category: "Go", Question: "Q", Answer: "A",
		}, http.StatusNotFound},
		{"delete missing card", http.MethodDelete, "/api/flashcards/404", nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/flashcards/abc", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := app.doJSON(t, tt.method, tt.path, tt.body)
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body["error"] == "" {
				t.Fatal("expected an error message")
			}
		})
	}

	cards, err := app.cards.List(t.Context(), "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(cards) != 0 {
		t.Fatalf("expected no cards after failed requests, got %d", len(cards))
	}
}

func TestAPI_ListAndCategories(t *testing.T) {
	app := newTestApp(t, handler.Options{})
	createCard(t, app, "Rust", "Q1", "A1")
	createCard(t, app, "Go", "Q2", "A2")
	createCard(t, app, "Go", "Q3", "A3")

	resp := app.doJSON(t, http.MethodGet, "/api/flashcards?category=Go", nil)
	var cards []domain.CardView
	if err := json.NewDecoder(resp.Body).Decode(&cards); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	resp.Body.Close()
	if len(cards) != 2 {
		t.Fatalf("expected 2 Go cards, got %d", len(cards))
	}

	resp = app.doJSON(t, http.MethodGet, "/api/categories", nil)
	var categories []handler.CategoryDTO
	if err := json.NewDecoder(resp.Body).Decode(&categories); err != nil {
		t.Fatalf("decode categories: %v", err)
	}
	resp.Body.Close()

	want := []handler.CategoryDTO{{Name: "Go", Count: 2}, {Name: "Rust", Count: 1}}
	if diff := cmp.Diff(want, categories); diff != "" {
		t.Fatalf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestAPI_CORS(t *testing.T) {
	preflight := func(app *testApp) *http.Response {
		req, _ := http.NewRequest(http.MethodOptions, app.srv.URL+"/api/flashcards", nil)
		req.Header.Set("Origin", "https://study.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		resp, err := app.client.Do(req)
		if err != nil {
			t.Fatalf("OPTIONS: %v", err)
		}
		resp.Body.Close()
		return resp
	}

	allowed := newTestApp(t, handler.Options{CORSOrigins: []string{"https://study.example.com"}})
	resp := preflight(allowed)
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://study.example.com" {
		t.Fatalf("expected origin to be allowed, got %q", got)
	}

	closed := newTestApp(t, handler.Options{})
	resp = preflight(closed)
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS grant without configured origins, got %q", got)
	}
}

func largePNG(size int) []byte {
	data := make([]byte, size)
	copy(data, pngBytes)
	return data
}

func TestAPI_CreateWithLargeImages(t *testing.T) {
	app := newTestApp(t, handler.Options{})

	resp := app.doJSON(t, http.MethodPost, "/api/flashcards", handler.CardRequest{
		Category: "Diagrams",
		QuestionFigure: &handler.FigureRequest{
			Image: &handler.ImageRequest{Filename: "before.png", Data: largePNG(8 << 20)},
		},
		AnswerFigure: &handler.FigureRequest{
			Image: &handler.ImageRequest{Filename: "after.png", Data: largePNG(8 << 20)},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		resp.Body.Close()
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	created := decodeCard(t, resp)
	if created.QImage == nil || *created.QImage != "before_0.png" || created.AImage == nil || *created.AImage != "after_0.png" {
		t.Fatalf("expected both images stored, got %+v", created)
	}

	info, err := os.Stat(filepath.Join(app.imageDir, "after_0.png"))
	if err != nil {
		t.Fatalf("stat stored image: %v", err)
	}
	if info.Size() != 8<<20 {
		t.Fatalf("expected 8MiB image, got %d bytes", info.Size())
	}
}

func TestAPI_ImageOverLimit(t *testing.T) {
	app := newTestApp(t, handler.Options{})

	resp := app.doJSON(t, http.MethodPost, "/api/flashcards", handler.CardRequest{
		Category: "Diagrams",
		Question: "Q",
		AnswerFigure: &handler.FigureRequest{
			Image: &handler.ImageRequest{Filename: "huge.png", Data: largePNG(11 << 20)},
		},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
