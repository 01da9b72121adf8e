// Package http exposes the library over a REST API: session login, book
// upload/list/delete, and content delivery that either proxies blob bytes
// or redirects to a backend-native URL.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	biblioteca "github.com/K3v1nD14s/Biblioteca"
	"github.com/K3v1nD14s/Biblioteca/credentials"
)

type Service interface {
	Upload(ctx context.Context, req biblioteca.UploadRequest) (biblioteca.Book, error)
	List(ctx context.Context) ([]biblioteca.Book, error)
	OpenBook(ctx context.Context, key string) (*biblioteca.Content, error)
	OpenCover(ctx context.Context, key string) (*biblioteca.Content, error)
	Delete(ctx context.Context, id int64) error
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	Sessions      *SessionManager
	Credentials   credentials.Store
	CORS          CORSConfig
	MaxUploadSize int64
}

// Handler provides HTTP handlers for the library API.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:  *config,
		service: service,
	}
}

// Router returns an http.Handler with the route table configured.
// Cover delivery is public; everything else behind /books, /upload,
// /read and /delete-book requires a session.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Post("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)
	r.Get("/covers/*", h.handleCover)

	r.Group(func(r chi.Router) {
		r.Use(RequireSession(h.config.Sessions))
		r.Get("/books", h.handleListBooks)
		r.With(MaxBodySize(h.config.MaxUploadSize)).Post("/upload", h.handleUpload)
		r.Get("/read/*", h.handleRead)
		r.Delete("/delete-book/{id}", h.handleDelete)
	})

	return r
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Malformed login request")
		return
	}

	if err := credentials.Verify(h.config.Credentials, req.Username, req.Password); err != nil {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid username or password")
		return
	}

	if err := h.config.Sessions.Issue(w); err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, MessageResponse{Message: "Login successful"})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.config.Sessions.Clear(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.List(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, books)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	bookFile, bookHeader, err := r.FormFile("bookFile")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteError(w, http.StatusBadRequest, "file_too_large", "Upload exceeds the size limit")
			return
		}
		WriteError(w, http.StatusBadRequest, "missing_file", "No book file supplied")
		return
	}
	defer func() { _ = bookFile.Close() }()

	req := biblioteca.UploadRequest{
		BookFilename: bookHeader.Filename,
		Book:         bookFile,
		Title:        r.FormValue("title"),
	}

	coverFile, coverHeader, err := r.FormFile("coverFile")
	if err == nil {
		defer func() { _ = coverFile.Close() }()
		req.CoverFilename = coverHeader.Filename
		req.Cover = coverFile
	} else if !errors.Is(err, http.ErrMissingFile) {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Malformed cover file")
		return
	}

	book, err := h.service.Upload(r.Context(), req)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, book)
}

func (h *Handler) handleRead(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	content, err := h.service.OpenBook(r.Context(), key)
	if err != nil {
		HandleError(w, err)
		return
	}

	h.deliver(w, r, content)
}

func (h *Handler) handleCover(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	content, err := h.service.OpenCover(r.Context(), key)
	if err != nil {
		if errors.Is(err, biblioteca.ErrAccessDenied) {
			HandleError(w, err)
			return
		}

		// Anything else degrades to the placeholder, never an error.
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(placeholderCover)
		return
	}

	h.deliver(w, r, content)
}

// deliver sends resolved content to the client: a redirect for direct
// backend URLs, otherwise a proxied byte stream.
func (h *Handler) deliver(w http.ResponseWriter, r *http.Request, content *biblioteca.Content) {
	if content.RedirectURL != "" {
		http.Redirect(w, r, content.RedirectURL, http.StatusFound)
		return
	}
	defer func() { _ = content.Body.Close() }()

	w.Header().Set("Content-Type", content.ContentType)
	if content.Inline {
		w.Header().Set("Content-Disposition", `inline; filename="`+content.Filename+`"`)
	}

	if _, err := io.Copy(w, content.Body); err != nil {
		// Headers are gone at this point; the copy failure is log-only.
		slog.Warn("content stream interrupted", "key", content.Filename, "err", err)
	}
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "Book id must be an integer")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, MessageResponse{Message: "Book deleted"})
}
