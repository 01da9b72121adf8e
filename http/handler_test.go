package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/K3v1nD14s/Biblioteca"
	"github.com/K3v1nD14s/Biblioteca/credentials"
	bibhttp "github.com/K3v1nD14s/Biblioteca/http"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Upload(ctx context.Context, req biblioteca.UploadRequest) (biblioteca.Book, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(biblioteca.Book), args.Error(1)
}

func (m *MockService) List(ctx context.Context) ([]biblioteca.Book, error) {
	args := m.Called(ctx)
	return args.Get(0).([]biblioteca.Book), args.Error(1)
}

func (m *MockService) OpenBook(ctx context.Context, key string) (*biblioteca.Content, error) {
	args := m.Called(ctx, key)
	content, _ := args.Get(0).(*biblioteca.Content)
	return content, args.Error(1)
}

func (m *MockService) OpenCover(ctx context.Context, key string) (*biblioteca.Content, error) {
	args := m.Called(ctx, key)
	content, _ := args.Get(0).(*biblioteca.Content)
	return content, args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestHandler(t *testing.T) (http.Handler, *MockService, *bibhttp.SessionManager) {
	t.Helper()

	service := new(MockService)
	sessions := bibhttp.NewSessionManager([]byte(testSecret), time.Hour)

	handler := bibhttp.NewHandler(&bibhttp.HandlerConfig{
		Sessions:      sessions,
		Credentials:   credentials.NewMapStore(map[string]string{"admin": "correct horse"}),
		MaxUploadSize: 1 << 20,
	}, service)

	return handler.Router(), service, sessions
}

// sessionCookie issues a valid session cookie for authenticated requests.
func sessionCookie(t *testing.T, sessions *bibhttp.SessionManager) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	assert.NoError(t, sessions.Issue(rec))

	cookies := rec.Result().Cookies()
	assert.Len(t, cookies, 1)
	return cookies[0]
}

func TestHandler_Login(t *testing.T) {
	t.Run("valid credentials set a session cookie", func(t *testing.T) {
		router, _, _ := newTestHandler(t)

		body := `{"username":"admin","password":"correct horse"}`
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Result().Cookies())
	})

	t.Run("wrong password", func(t *testing.T) {
		router, _, _ := newTestHandler(t)

		body := `{"username":"admin","password":"wrong"}`
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("unknown user", func(t *testing.T) {
		router, _, _ := newTestHandler(t)

		body := `{"username":"nobody","password":"correct horse"}`
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		router, _, _ := newTestHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("not json"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_Logout(t *testing.T) {
	router, _, sessions := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(sessionCookie(t, sessions))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)

	cookies := rec.Result().Cookies()
	assert.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
	assert.Empty(t, cookies[0].Value)
}

func TestHandler_ListBooks(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		router, _, _ := newTestHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("returns books as json", func(t *testing.T) {
		router, service, sessions := newTestHandler(t)

		service.On("List", mock.Anything).Return([]biblioteca.Book{
			{ID: 2, Title: "Second", StorageKey: "b.pdf", OriginalFilename: "Second.pdf"},
			{ID: 1, Title: "First", StorageKey: "a.epub", OriginalFilename: "First.epub"},
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.AddCookie(sessionCookie(t, sessions))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var books []map[string]any
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &books))
		assert.Len(t, books, 2)
		assert.Equal(t, "b.pdf", books[0]["filename"])
		assert.Equal(t, "Second.pdf", books[0]["originalFilename"])
	})

	t.Run("service failure", func(t *testing.T) {
		router, service, sessions := newTestHandler(t)

		service.On("List", mock.Anything).
			Return([]biblioteca.Book(nil), biblioteca.ErrPersistence)

		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.AddCookie(sessionCookie(t, sessions))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

// multipartBody builds a multipart form with a book file and optional
// cover and title fields.
func multipartBody(t *testing.T, bookName string, book []byte, coverName string, cover []byte, title string) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	fw, err := mw.CreateFormFile("bookFile", bookName)
	assert.NoError(t, err)
	_, err = fw.Write(book)
	assert.NoError(t, err)

	if coverName != "" {
		cw, err := mw.CreateFormFile("coverFile", coverName)
		assert.NoError(t, err)
		_, err = cw.Write(cover)
		assert.NoError(t, err)
	}

	if title != "" {
		assert.NoError(t, mw.WriteField("title", title))
	}

	assert.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestHandler_Upload(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		router, _, _ := newTestHandler(t)

		body, contentType := multipartBody(t, "book.pdf", []byte("x"), "", nil, "")
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("book with cover and title", func(t *testing.T) {
		router, service, sessions := newTestHandler(t)

		service.On("Upload", mock.Anything, mock.MatchedBy(func(req biblioteca.UploadRequest) bool {
			return req.BookFilename == "book.pdf" &&
				req.CoverFilename == "cover.jpg" &&
				req.Title == "A Title" &&
				req.Book != nil && req.Cover != nil
		})).Return(biblioteca.Book{ID: 1, Title: "A Title", StorageKey: "abc.pdf"}, nil)

		body, contentType := multipartBody(t, "book.pdf", []byte("book"), "cover.jpg", []byte("img"), "A Title")
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)
		req.AddCookie(sessionCookie(t, sessions))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)

		var book map[string]any
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
		assert.Equal(t, "abc.pdf", book["filename"])

		service.AssertExpectations(t)
	})

	t.Run("missing book file", func(t *testing.T) {
		router, service, sessions := newTestHandler(t)

		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		assert.NoError(t, mw.WriteField("title", "No File"))
		assert.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/upload", buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.AddCookie(sessionCookie(t, sessions))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		service.AssertNotCalled(t, "Upload")
	})

	t.Run("unsupported format propagates as 400", func(t *testing.T) {
		router, service, sessions := newTestHandler(t)

		service.On("Upload", mock.Anything, mock.Anything).
			Return(biblioteca.Book{}, biblioteca.ErrUnsupportedFormat)

		body, contentType := multipartBody(t, "tool.exe", []byte("x"), "", nil, "")
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)
		req.AddCookie(sessionCookie(t, sessions))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp map[string]string
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "unsupported_format", resp["error"])
	})

	t.Run("oversized upload", func(t *testing.T) {
		service := new(MockService)
		sessions := bibhttp.NewSessionManager([]byte(testSecret), time.Hour)
		handler := bibhttp.NewHandler(&bibhttp.HandlerConfig{
			Sessions:      sessions,
			Credentials:   credentials.NewMapStore(map[string]string{"admin": "pw"}),
			MaxUploadSize: 64,
		}, service)
		router := handler.Router()

		body, contentType := multipartBody(t, "book.pdf", bytes.Repeat([]byte("x"), 4096), "", nil, "")
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)
		req.AddCookie(sessionCookie(t, sessions))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp map[string]string
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "file_too_large", resp["error"])
		service.AssertNotCalled(t, "Upload")
	})
}

func TestHandler_Read(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		router, _, _ := newTestHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/read/abc.pdf", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("streams proxied content", func(t *testing.T) {
		router, service, sessions := newTestHandler(t)

		service.On("OpenBook", mock.Anything, "abc.epub").Return(&biblioteca.Content{
			Body:        io.NopCloser(strings.NewReader("book bytes")),
			ContentType: "application/epub+zip",
			Filename:    "abc.epub",
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/read/abc.epub", nil)
		req.AddCookie(sessionCookie(t, sessions))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/epub+zip", rec.Header().Get("Content-Type"))
		assert.Empty(t, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "book bytes", rec.Body.String())
	})

	t.Run("pdf is served inline", func(t *testing.T) {
		router, service, sessions := newTestHandler(t)

		service.On("OpenBook", mock.Anything, "abc.pdf").Return(&biblioteca.Content{
			Body:        io.NopCloser(strings.NewReader("%PDF-")),
			ContentType: "application/pdf",
			Filename:    "abc.pdf",
			Inline:      true,
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/read/abc.pdf", nil)
		req.AddCookie(sessionCookie(t, sessions))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `inline; filename="abc.pdf"`, rec.Header().Get("Content-Disposition"))
	})

	t.Run("redirects to backend url", func(t *testing.T) {
		router, service, sessions := newTestHandler(t)

		service.On("OpenBook", mock.Anything, "abc.epub").Return(&biblioteca.Content{
			RedirectURL: "https://cdn.example.com/books/abc.epub",
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/read/abc.epub", nil)
		req.AddCookie(sessionCookie(t, sessions))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://cdn.example.com/books/abc.epub", rec.Header().Get("Location"))
	})

	t.Run("traversal key is forbidden", func(t *testing.T) {
		router, service, sessions := newTestHandler(t)

		service.On("OpenBook", mock.Anything, "a..b.pdf").
			Return(nil, biblioteca.ErrAccessDenied)

		req := httptest.NewRequest(http.MethodGet, "/read/a..b.pdf", nil)
		req.AddCookie(sessionCookie(t, sessions))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing blob", func(t *testing.T) {
		router, service, sessions := newTestHandler(t)

		service.On("OpenBook", mock.Anything, "gone.pdf").
			Return(nil, biblioteca.ErrNotFound)

		req := httptest.NewRequest(http.MethodGet, "/read/gone.pdf", nil)
		req.AddCookie(sessionCookie(t, sessions))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandler_Cover(t *testing.T) {
	t.Run("public, no session needed", func(t *testing.T) {
		router, service, _ := newTestHandler(t)

		service.On("OpenCover", mock.Anything, "def.jpg").Return(&biblioteca.Content{
			Body:        io.NopCloser(strings.NewReader("jpeg bytes")),
			ContentType: "image/jpeg",
			Filename:    "def.jpg",
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/covers/def.jpg", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
		assert.Equal(t, "jpeg bytes", rec.Body.String())
	})

	t.Run("missing cover falls back to the placeholder", func(t *testing.T) {
		router, service, _ := newTestHandler(t)

		service.On("OpenCover", mock.Anything, "gone.png").
			Return(nil, biblioteca.ErrNotFound)

		req := httptest.NewRequest(http.MethodGet, "/covers/gone.png", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.NotEmpty(t, rec.Body.Bytes())
	})

	t.Run("storage failure also falls back", func(t *testing.T) {
		router, service, _ := newTestHandler(t)

		service.On("OpenCover", mock.Anything, "bad.png").
			Return(nil, errors.New("backend down"))

		req := httptest.NewRequest(http.MethodGet, "/covers/bad.png", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	})

	t.Run("traversal key stays forbidden", func(t *testing.T) {
		router, service, _ := newTestHandler(t)

		service.On("OpenCover", mock.Anything, "a..b.png").
			Return(nil, biblioteca.ErrAccessDenied)

		req := httptest.NewRequest(http.MethodGet, "/covers/a..b.png", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestHandler_Delete(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		router, _, _ := newTestHandler(t)

		req := httptest.NewRequest(http.MethodDelete, "/delete-book/1", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		router, service, sessions := newTestHandler(t)

		service.On("Delete", mock.Anything, int64(7)).Return(nil)

		req := httptest.NewRequest(http.MethodDelete, "/delete-book/7", nil)
		req.AddCookie(sessionCookie(t, sessions))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		service.AssertExpectations(t)
	})

	t.Run("unknown id", func(t *testing.T) {
		router, service, sessions := newTestHandler(t)

		service.On("Delete", mock.Anything, int64(99)).
			Return(biblioteca.ErrNotFound)

		req := httptest.NewRequest(http.MethodDelete, "/delete-book/99", nil)
		req.AddCookie(sessionCookie(t, sessions))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		router, service, sessions := newTestHandler(t)

		req := httptest.NewRequest(http.MethodDelete, "/delete-book/abc", nil)
		req.AddCookie(sessionCookie(t, sessions))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		service.AssertNotCalled(t, "Delete")
	})
}
