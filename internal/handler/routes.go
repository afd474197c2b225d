package handler

import (
	"log/slog"
	"net/http"

	"github.com/msomdec/flashdeck/internal/service"
	"github.com/rs/cors"
)

// Options configures RegisterRoutes.
type Options struct {
	CookieSecure bool
	// CORSOrigins may call the JSON API from a browser. Empty allows none.
	CORSOrigins []string
	Logger      *slog.Logger
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, db Pinger, cards *service.FlashcardService, images *service.ImageFiles,
	csrf *service.CSRFService, limiter *service.WriteLimiter, opts Options) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pages := NewFlashcardHandler(cards, logger)
	imageHandler := NewImageHandler(images, logger)
	api := NewAPIHandler(cards, logger)

	page := func(h http.HandlerFunc) http.Handler {
		return CSRF(csrf, opts.CookieSecure, logger, h)
	}
	write := func(h http.HandlerFunc) http.Handler {
		return LimitWrites(limiter, CSRF(csrf, opts.CookieSecure, logger, h))
	}

	mux.Handle("GET /healthz", HandleHealthz(db, logger))
	mux.Handle("GET /{$}", page(pages.HandleHome))
	mux.Handle("GET /flashcards/{category}", page(pages.HandleStudy))
	mux.Handle("GET /images/{handle}", http.HandlerFunc(imageHandler.HandleServe))

	mux.Handle("GET /manage", page(pages.HandleManage))
	mux.Handle("GET /manage/autocomplete", page(pages.HandleAutocomplete))
	mux.Handle("GET /manage/flashcards/new", page(pages.HandleNew))
	mux.Handle("POST /manage/flashcards", write(pages.HandleCreate))
	mux.Handle("GET /manage/flashcards/{id}", page(pages.HandleView))
	mux.Handle("GET /manage/flashcards/{id}/edit", page(pages.HandleEdit))
	mux.Handle("POST /manage/flashcards/{id}", write(pages.HandleUpdate))
	mux.Handle("POST /manage/flashcards/{id}/delete", write(pages.HandleDelete))

	// The JSON API carries no cookies to protect, so it skips CSRF and
	// answers cross-origin callers through CORS instead.
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/flashcards", api.HandleList)
	apiMux.HandleFunc("GET /api/flashcards/{id}", api.HandleGet)
	apiMux.Handle("POST /api/flashcards", LimitWrites(limiter, http.HandlerFunc(api.HandleCreate)))
	apiMux.Handle("PUT /api/flashcards/{id}", LimitWrites(limiter, http.HandlerFunc(api.HandleUpdate)))
	apiMux.Handle("DELETE /api/flashcards/{id}", LimitWrites(limiter, http.HandlerFunc(api.HandleDelete)))
	apiMux.HandleFunc("GET /api/categories", api.HandleCategories)

	corsOpts := cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "Origin", "X-Requested-With"},
		MaxAge:         86400,
	}
	if len(opts.CORSOrigins) == 0 {
		// cors treats an empty origin list as "*".
		corsOpts.AllowOriginFunc = func(string) bool { return false }
	}
	mux.Handle("/api/", cors.New(corsOpts).Handler(apiMux))
}
