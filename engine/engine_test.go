package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"

	"github.com/drummonds/cvpreview/blobstore"
	"github.com/drummonds/cvpreview/config"
	"github.com/drummonds/cvpreview/database"
	"github.com/drummonds/cvpreview/engine/pdfrenderer"
	"github.com/drummonds/cvpreview/score"
)

// stubBackend accepts anything starting with %PDF- as a one page document
type stubBackend struct{}

func (stubBackend) Name() string { return "stub" }

func (stubBackend) Open(ctx context.Context, data []byte) (pdfrenderer.Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, errors.New("Invalid PDF structure")
	}
	return stubDocument{}, nil
}

func (stubBackend) Close() error { return nil }

type stubDocument struct{}

func (stubDocument) NumPages() int { return 1 }

func (stubDocument) Page(ctx context.Context, number int) (pdfrenderer.Page, error) {
	return stubPage{}, nil
}

func (stubDocument) Close() error { return nil }

type stubPage struct{}

func (stubPage) Viewport(scale float64) (pdfrenderer.Viewport, error) {
	return pdfrenderer.Viewport{Width: int(30 * scale), Height: int(40 * scale), Scale: scale}, nil
}

func (stubPage) Render(ctx context.Context, surface draw.Image, viewport pdfrenderer.Viewport) error {
	draw.Draw(surface, surface.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return nil
}

func setupTestServer(t *testing.T) (*echo.Echo, *ServerHandler) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	Logger = logger
	database.Logger = logger
	pdfrenderer.Logger = logger

	serverConfig := config.ServerConfig{
		DatabaseType:   "sqlite",
		DatabaseDbname: "file:engine_" + ulid.Make().String() + "?mode=memory&cache=shared",
		RenderConfig:   config.RenderConfig{PDFBackend: "pdfium", PDFWorkers: 1, RenderScale: 2},
		BlobConfig:     config.BlobConfig{BlobURLPrefix: "/blob/"},
		FrontEndConfig: config.FrontEndConfig{ReviewPageSize: 20},
	}
	repo, err := database.NewRepository(serverConfig)
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	loader := pdfrenderer.NewLoader(func(ctx context.Context) (pdfrenderer.Backend, error) {
		return stubBackend{}, nil
	})
	converter := pdfrenderer.NewConverter(loader, blobstore.New(serverConfig.BlobURLPrefix), pdfrenderer.Options{})

	e := echo.New()
	handler := &ServerHandler{DB: repo, Echo: e, ServerConfig: serverConfig, Converter: converter}
	handler.AddRoutes()
	return e, handler
}

func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, err := writer.CreateFormFile("pdf", filename)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		part.Write(content)
	}
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func doRequest(e *echo.Echo, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, body)
		req.Header.Set(echo.HeaderContentType, contentType)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPreviewPDF(t *testing.T) {
	e, handler := setupTestServer(t)

	t.Run("Valid PDF", func(t *testing.T) {
		body, contentType := multipartBody(t, "Resume.PDF", []byte("%PDF-1.7 fake"), nil)
		rec := doRequest(e, http.MethodPost, "/api/preview", body, contentType)
		if rec.Code != http.StatusOK {
			t.Fatalf("Status = %d, body %s", rec.Code, rec.Body.String())
		}

		var result pdfrenderer.ConversionResult
		if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
			t.Fatalf("Invalid JSON: %v", err)
		}
		if result.Error != "" || result.File == nil || result.ImageURL == "" {
			t.Fatalf("Expected success, got %+v", result)
		}
		if result.File.Name != "Resume.png" || result.File.Type != "image/png" {
			t.Errorf("File = %+v", result.File)
		}

		// The object URL is served back as PNG
		blobRec := doRequest(e, http.MethodGet, result.ImageURL, nil, "")
		if blobRec.Code != http.StatusOK {
			t.Fatalf("Blob status = %d", blobRec.Code)
		}
		if ct := blobRec.Header().Get(echo.HeaderContentType); ct != "image/png" {
			t.Errorf("Blob content type = %q", ct)
		}
		if blobRec.Body.Len() != result.File.Size {
			t.Errorf("Blob has %d bytes, file reports %d", blobRec.Body.Len(), result.File.Size)
		}

		// Revoking makes it disappear
		if rec := doRequest(e, http.MethodDelete, result.ImageURL, nil, ""); rec.Code != http.StatusNoContent {
			t.Errorf("Revoke status = %d", rec.Code)
		}
		if rec := doRequest(e, http.MethodGet, result.ImageURL, nil, ""); rec.Code != http.StatusNotFound {
			t.Errorf("Revoked blob status = %d, want 404", rec.Code)
		}
	})

	t.Run("Plain text", func(t *testing.T) {
		body, contentType := multipartBody(t, "notes.pdf", []byte("hello there"), nil)
		rec := doRequest(e, http.MethodPost, "/api/preview", body, contentType)
		if rec.Code != http.StatusOK {
			t.Fatalf("Status = %d", rec.Code)
		}
		var result pdfrenderer.ConversionResult
		json.Unmarshal(rec.Body.Bytes(), &result)
		if result.ImageURL != "" || result.File != nil {
			t.Errorf("Failure should have no image, got %+v", result)
		}
		if !strings.Contains(result.Error, "Failed to convert PDF: Invalid PDF structure") {
			t.Errorf("Error = %q", result.Error)
		}
	})

	t.Run("Missing file", func(t *testing.T) {
		body, contentType := multipartBody(t, "", nil, map[string]string{"other": "x"})
		rec := doRequest(e, http.MethodPost, "/api/preview", body, contentType)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want 400", rec.Code)
		}
	})

	if !handler.Converter.Loader().Loaded() || handler.Converter.Loader().Loads() != 1 {
		t.Errorf("Backend should be loaded exactly once, loads = %d", handler.Converter.Loader().Loads())
	}
}

func TestGetScore(t *testing.T) {
	e, _ := setupTestServer(t)

	tests := []struct {
		value    string
		status   int
		category score.Category
	}{
		{value: "71", status: http.StatusOK, category: score.CategoryStrong},
		{value: "70", status: http.StatusOK, category: score.CategoryGoodStart},
		{value: "49", status: http.StatusOK, category: score.CategoryNeedsWork},
		{value: "-3", status: http.StatusOK, category: score.CategoryNeedsWork},
		{value: "abc", status: http.StatusBadRequest},
		{value: "", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run("value="+tt.value, func(t *testing.T) {
			rec := doRequest(e, http.MethodGet, "/api/score?value="+tt.value, nil, "")
			if rec.Code != tt.status {
				t.Fatalf("Status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}
			var badge score.Badge
			if err := json.Unmarshal(rec.Body.Bytes(), &badge); err != nil {
				t.Fatalf("Invalid JSON: %v", err)
			}
			if badge.Category != tt.category || badge.Label != string(tt.category) {
				t.Errorf("Badge = %+v, want %q", badge, tt.category)
			}
		})
	}
}

func TestReviewLifecycle(t *testing.T) {
	e, handler := setupTestServer(t)
	store := handler.Converter.Store()

	body, contentType := multipartBody(t, "jane.pdf", []byte("%PDF-1.4 jane"), map[string]string{"score": "64.5"})
	rec := doRequest(e, http.MethodPost, "/api/reviews", body, contentType)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created database.Review
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if created.Category != score.CategoryGoodStart {
		t.Errorf("Category = %q, want Good Start", created.Category)
	}
	if created.PreviewName != "jane.png" || created.PreviewURL != database.PreviewPath(created.ID) {
		t.Errorf("Preview not attached: %+v", created)
	}

	// A failed preview is still stored, with the error
	body, contentType = multipartBody(t, "broken.pdf", []byte("garbage"), map[string]string{"score": "90"})
	rec = doRequest(e, http.MethodPost, "/api/reviews", body, contentType)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create status = %d", rec.Code)
	}
	var broken database.Review
	json.Unmarshal(rec.Body.Bytes(), &broken)
	if broken.PreviewURL != "" || !strings.HasPrefix(broken.Error, "Failed to convert PDF") {
		t.Errorf("Broken review = %+v", broken)
	}

	rec = doRequest(e, http.MethodGet, "/api/reviews", nil, "")
	var list []database.Review
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Listed %d reviews, want 2", len(list))
	}
	if got := rec.Header().Get("X-Total-Count"); got != "2" {
		t.Errorf("X-Total-Count = %q, want 2", got)
	}

	rec = doRequest(e, http.MethodGet, "/api/reviews/"+created.ID.String(), nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("Get status = %d", rec.Code)
	}

	if store.Len() != 0 {
		t.Errorf("Stored reviews should not hold object URLs, %d left", store.Len())
	}

	rec = doRequest(e, http.MethodDelete, "/api/reviews/"+created.ID.String(), nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Delete status = %d", rec.Code)
	}
	rec = doRequest(e, http.MethodGet, created.PreviewURL, nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Preview after delete status = %d, want 404", rec.Code)
	}
	rec = doRequest(e, http.MethodDelete, "/api/reviews/"+created.ID.String(), nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Second delete status = %d, want 404", rec.Code)
	}

	rec = doRequest(e, http.MethodGet, "/api/reviews/"+created.ID.String(), nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Get after delete status = %d, want 404", rec.Code)
	}
	rec = doRequest(e, http.MethodGet, "/api/reviews/not-a-ulid", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Invalid ID status = %d, want 400", rec.Code)
	}
}

func TestCreateReviewValidation(t *testing.T) {
	e, _ := setupTestServer(t)

	body, contentType := multipartBody(t, "cv.pdf", []byte("%PDF-1"), map[string]string{"score": "lots"})
	if rec := doRequest(e, http.MethodPost, "/api/reviews", body, contentType); rec.Code != http.StatusBadRequest {
		t.Errorf("Bad score status = %d, want 400", rec.Code)
	}

	body, contentType = multipartBody(t, "", nil, map[string]string{"score": "50"})
	if rec := doRequest(e, http.MethodPost, "/api/reviews", body, contentType); rec.Code != http.StatusBadRequest {
		t.Errorf("Missing file status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	e, _ := setupTestServer(t)
	rec := doRequest(e, http.MethodGet, "/api/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d", rec.Code)
	}
	var health map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &health)
	if health["status"] != "healthy" {
		t.Errorf("Health = %v", health)
	}
	if health["backendLoaded"] != false {
		t.Error("Backend must not load before the first conversion")
	}
}

func TestInitializeSchedules(t *testing.T) {
	_, handler := setupTestServer(t)

	if c := handler.InitializeSchedules(); c != nil {
		t.Error("No scheduler expected without BLOB_MAX_AGE")
	}

	handler.ServerConfig.BlobMaxAge = time.Hour
	handler.ServerConfig.SweepInterval = time.Minute
	c := handler.InitializeSchedules()
	if c == nil {
		t.Fatal("Expected a scheduler")
	}
	defer c.Stop()
	if len(c.Entries()) != 1 {
		t.Errorf("Scheduled %d jobs, want 1", len(c.Entries()))
	}
}

func TestStartupChecks(t *testing.T) {
	_, handler := setupTestServer(t)
	if err := handler.StartupChecks(); err != nil {
		t.Errorf("Valid config failed checks: %v", err)
	}

	handler.ServerConfig.PDFBackend = "ghostscript"
	if err := handler.StartupChecks(); !errors.Is(err, pdfrenderer.ErrUnknownBackend) {
		t.Errorf("Unknown backend error = %v", err)
	}

	handler.ServerConfig.PDFBackend = "fitz"
	handler.ServerConfig.BlobURLPrefix = "blob"
	if err := handler.StartupChecks(); err == nil {
		t.Error("Invalid prefix should fail")
	}
}

func TestExtractExcerpt(t *testing.T) {
	Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if got := extractExcerpt([]byte("not a pdf at all"), excerptLength); got != "" {
		t.Errorf("Excerpt of garbage = %q, want empty", got)
	}
	if got := extractExcerpt(nil, excerptLength); got != "" {
		t.Errorf("Excerpt of nothing = %q, want empty", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		input    string
		max      int
		expected string
	}{
		{input: "short", max: 10, expected: "short"},
		{input: "exactly", max: 7, expected: "exactly"},
		{input: "résumé writer", max: 6, expected: "résumé"},
		{input: "unbounded", max: 0, expected: "unbounded"},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.input, tt.max); got != tt.expected {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.expected)
		}
	}
}

func TestUnknownAPIPathIsJSON404(t *testing.T) {
	e, _ := setupTestServer(t)
	rec := doRequest(e, http.MethodGet, "/api/does-not-exist", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/api/does-not-exist") {
		t.Errorf("Body = %s", rec.Body.String())
	}
}

func TestNewConverter(t *testing.T) {
	serverConfig := config.ServerConfig{
		RenderConfig: config.RenderConfig{PDFBackend: "fitz", PDFWorkers: 1, RenderScale: 1.5},
		BlobConfig:   config.BlobConfig{BlobURLPrefix: "/previews/"},
	}
	converter := NewConverter(serverConfig)
	defer converter.Loader().Close()

	if converter.Loader().Loaded() {
		t.Error("Backend must load lazily")
	}
	if got := converter.Store().Prefix(); got != "/previews/" {
		t.Errorf("Store prefix = %q", got)
	}
}

func TestIsAPIPath(t *testing.T) {
	tests := map[string]bool{
		"/api/reviews": true,
		"/api/":        true,
		"/api":         false,
		"/upload":      false,
		"/blob/abc":    false,
	}
	for path, want := range tests {
		if got := IsAPIPath(path); got != want {
			t.Errorf("IsAPIPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestStoredPreviewOutlivesObjectURLs(t *testing.T) {
	e, handler := setupTestServer(t)

	body, contentType := multipartBody(t, "keep.pdf", []byte("%PDF-1.4 keep"), map[string]string{"score": "80"})
	rec := doRequest(e, http.MethodPost, "/api/reviews", body, contentType)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created database.Review
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}

	// Drop every object URL, as the scheduled sweep or a restart would
	time.Sleep(time.Millisecond)
	handler.Converter.Store().Sweep(time.Nanosecond)

	rec = doRequest(e, http.MethodGet, "/api/reviews/"+created.ID.String(), nil, "")
	var reread database.Review
	if err := json.Unmarshal(rec.Body.Bytes(), &reread); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if reread.PreviewURL == "" || strings.HasPrefix(reread.PreviewURL, handler.Converter.Store().Prefix()) {
		t.Fatalf("Review points at a transient preview: %q", reread.PreviewURL)
	}

	rec = doRequest(e, http.MethodGet, reread.PreviewURL, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Preview status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("Preview body is not a PNG")
	}
}

func TestReviewPreviewErrors(t *testing.T) {
	e, _ := setupTestServer(t)

	if rec := doRequest(e, http.MethodGet, "/api/reviews/not-a-ulid/preview", nil, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Invalid ID status = %d, want 400", rec.Code)
	}
	if rec := doRequest(e, http.MethodGet, "/api/reviews/"+ulid.Make().String()+"/preview", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Unknown review status = %d, want 404", rec.Code)
	}

	// A failed conversion is stored without a preview
	body, contentType := multipartBody(t, "broken.pdf", []byte("garbage"), map[string]string{"score": "10"})
	rec := doRequest(e, http.MethodPost, "/api/reviews", body, contentType)
	var broken database.Review
	json.Unmarshal(rec.Body.Bytes(), &broken)
	if rec := doRequest(e, http.MethodGet, database.PreviewPath(broken.ID), nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Preview of failed conversion status = %d, want 404", rec.Code)
	}
}

func TestExtractExcerptWithoutLogger(t *testing.T) {
	saved := Logger
	Logger = nil
	defer func() { Logger = saved }()

	if got := extractExcerpt([]byte("%PDF-1.4 truncated"), excerptLength); got != "" {
		t.Errorf("Excerpt of truncated PDF = %q, want empty", got)
	}
}

func TestBlobChecks(t *testing.T) {
	tests := []struct {
		prefix  string
		wantErr bool
	}{
		{prefix: "/blob/", wantErr: false},
		{prefix: "/previews/tmp/", wantErr: false},
		{prefix: "/", wantErr: true},
		{prefix: "//", wantErr: true},
		{prefix: "blob/", wantErr: true},
		{prefix: "/blob", wantErr: true},
		{prefix: "/api/blob/", wantErr: true},
	}
	Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	for _, tt := range tests {
		err := blobChecks(config.BlobConfig{BlobURLPrefix: tt.prefix})
		if (err != nil) != tt.wantErr {
			t.Errorf("blobChecks(%q) error = %v, wantErr %v", tt.prefix, err, tt.wantErr)
		}
	}
}
