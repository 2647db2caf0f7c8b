package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	config "github.com/drummonds/cvpreview/config"
)

func newTestFrontend(t *testing.T) (http.Handler, *[]string) {
	t.Helper()
	var seen []string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/preview") || strings.HasPrefix(r.URL.Path, "/blob/") {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("\x89PNG"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	}))
	t.Cleanup(backend.Close)

	e, err := newFrontend(config.FrontEndConfig{ServerAPIURL: backend.URL, ReviewPageSize: 12}, "/blob/")
	if err != nil {
		t.Fatalf("newFrontend: %v", err)
	}
	return e, &seen
}

func TestFrontendProxiesReviewTraffic(t *testing.T) {
	e, seen := newTestFrontend(t)

	paths := []string{
		"/api/reviews",
		"/api/reviews/01ARZ3NDEKTSV4RRFFQ69G5FAV/preview",
		"/blob/01ARZ3NDEKTSV4RRFFQ69G5FAV",
	}
	for _, path := range paths {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: status %d, want 200", path, rec.Code)
		}
	}
	if len(*seen) != len(paths) {
		t.Fatalf("backend saw %v, want %v", *seen, paths)
	}
	for i, path := range paths {
		if (*seen)[i] != path {
			t.Errorf("backend request %d = %s, want %s", i, (*seen)[i], path)
		}
	}
}

func TestFrontendConfigUsesSameOrigin(t *testing.T) {
	e, seen := newTestFrontend(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config.js", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /config.js: status %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `apiURL: ""`) {
		t.Errorf("config.js should point the page at its own origin: %s", body)
	}
	if !strings.Contains(body, "reviewPageSize: 12") {
		t.Errorf("config.js missing page size: %s", body)
	}
	if len(*seen) != 0 {
		t.Errorf("config.js should not reach the backend, saw %v", *seen)
	}
}

func TestNewFrontendRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name       string
		apiURL     string
		blobPrefix string
	}{
		{name: "relative backend", apiURL: "localhost:8000", blobPrefix: "/blob/"},
		{name: "empty backend", apiURL: "", blobPrefix: "/blob/"},
		{name: "root blob prefix", apiURL: "http://localhost:8000", blobPrefix: "/"},
		{name: "blob prefix under api", apiURL: "http://localhost:8000", blobPrefix: "/api/blob/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := newFrontend(config.FrontEndConfig{ServerAPIURL: tt.apiURL}, tt.blobPrefix); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
