package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/api/postcard/{id}/", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") != "7" {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":          7,
			"title":       "Le port de Brest",
			"number":      "000042",
			"front_image": "/media/postcards/Grande/000042.jpg",
			"back_image":  "/media/postcards/Dos/000042.jpg",
		})
	})
	r.Get("/api/postcard/{id}/zoom/", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("lepostier_session"); err != nil {
			json.NewEncoder(w).Encode(map[string]any{"can_view": false, "front_image": "/leak.jpg"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"can_view": true, "front_image": "/media/postcards/Zoom/000042.jpg"})
	})
	r.Get("/api/postcards/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("keywords_input") != "brest" {
			json.NewEncoder(w).Encode(map[string]any{"total": 0, "results": []any{}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"total": 1,
			"results": []map[string]any{
				{"id": 7, "title": "Le port de Brest", "number": "000042"},
			},
		})
	})
	r.Get("/api/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcherPostcard(t *testing.T) {
	srv := newCatalogServer(t)
	f := NewHTTPFetcher(srv.URL + "/")
	ctx := context.Background()

	p, err := f.FetchPostcard(ctx, 7)
	if err != nil {
		t.Fatalf("FetchPostcard: %v", err)
	}
	if p.Number != "000042" || p.BackImageURL != "/media/postcards/Dos/000042.jpg" {
		t.Errorf("unexpected postcard: %+v", p)
	}

	if _, err := f.FetchPostcard(ctx, 8); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing postcard error = %v, want ErrNotFound", err)
	}
}

func TestHTTPFetcherZoom(t *testing.T) {
	srv := newCatalogServer(t)
	f := NewHTTPFetcher(srv.URL)
	ctx := context.Background()

	z, err := f.FetchZoom(ctx, 7)
	if err != nil {
		t.Fatalf("FetchZoom: %v", err)
	}
	if z.CanView || z.FrontImageURL != "" {
		t.Errorf("anonymous zoom should be refused without an image, got %+v", z)
	}

	f.Cookies = []*http.Cookie{{Name: "lepostier_session", Value: "abc"}}
	z, err = f.FetchZoom(ctx, 7)
	if err != nil {
		t.Fatalf("FetchZoom with session: %v", err)
	}
	if !z.CanView || z.FrontImageURL == "" {
		t.Errorf("member zoom should be viewable, got %+v", z)
	}
}

func TestHTTPFetcherSearch(t *testing.T) {
	srv := newCatalogServer(t)
	f := NewHTTPFetcher(srv.URL)

	results, err := f.Search(context.Background(), "brest")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != 7 {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestHTTPFetcherStatusError(t *testing.T) {
	srv := newCatalogServer(t)
	f := NewHTTPFetcher(srv.URL)

	err := f.getJSON(context.Background(), "/api/broken", &struct{}{})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != http.StatusInternalServerError || se.Body != "boom" {
		t.Errorf("unexpected status error: %+v", se)
	}
}
