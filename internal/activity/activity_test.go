package activity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lepostier/lepostier/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestLogAndGetByID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	entry := Entry{
		ID:          "act-1",
		ActorID:     "marie",
		Action:      ActionSearch,
		Subject:     "brest",
		ResultCount: 12,
		IPAddress:   "10.0.0.1",
	}
	if err := store.Log(ctx, entry); err != nil {
		t.Fatalf("Log: %v", err)
	}

	got, err := store.GetByID(ctx, "act-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("expected entry, got nil")
	}
	if got.ActorID != "marie" || got.Action != ActionSearch || got.Subject != "brest" {
		t.Errorf("unexpected entry: %+v", got)
	}
	if got.ResultCount != 12 {
		t.Errorf("ResultCount = %d, want 12", got.ResultCount)
	}
	if got.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}

	missing, err := store.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("missing entry = %+v, %v", missing, err)
	}
}

func TestLogGeneratesID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Log(ctx, Entry{Action: ActionView, Subject: "42"}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	entries, err := store.Query(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 || entries[0].ID == "" {
		t.Fatalf("expected one entry with generated id, got %+v", entries)
	}
}

func TestQueryFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seed := []Entry{
		{ActorID: "marie", Action: ActionSearch, Subject: "brest", Timestamp: now.Add(-3 * time.Hour)},
		{ActorID: "marie", Action: ActionView, Subject: "7", Timestamp: now.Add(-2 * time.Hour)},
		{ActorID: "", Action: ActionSearch, Subject: "quimper", Timestamp: now.Add(-time.Hour)},
		{ActorID: "paul", Action: ActionZoom, Subject: "7", Timestamp: now.Add(-48 * time.Hour)},
	}
	for _, e := range seed {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter QueryFilter
		want   int
	}{
		{"all", QueryFilter{}, 4},
		{"by actor", QueryFilter{ActorID: "marie"}, 2},
		{"by action", QueryFilter{Action: ActionSearch}, 2},
		{"by subject", QueryFilter{Subject: "7"}, 2},
		{"limit", QueryFilter{Limit: 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d entries, want %d", len(got), tt.want)
			}
		})
	}

	since := now.Add(-24 * time.Hour)
	recent, err := store.Query(ctx, QueryFilter{Since: &since})
	if err != nil {
		t.Fatalf("Query since: %v", err)
	}
	if len(recent) != 3 {
		t.Errorf("since filter: got %d, want 3", len(recent))
	}
	if recent[0].Subject != "quimper" {
		t.Errorf("expected newest first, got %q", recent[0].Subject)
	}

	n, err := store.CountSince(ctx, ActionSearch, since)
	if err != nil {
		t.Fatalf("CountSince: %v", err)
	}
	if n != 2 {
		t.Errorf("CountSince = %d, want 2", n)
	}
}

func TestTopSearchesAndDeleteBefore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	old := time.Now().Add(-60 * 24 * time.Hour)

	for _, kw := range []string{"brest", "brest", "quimper", "brest"} {
		store.Record(ctx, Entry{Action: ActionSearch, Subject: kw})
	}
	store.Record(ctx, Entry{Action: ActionSearch, Subject: "morlaix", Timestamp: old})

	top, err := store.TopSearches(ctx, 2)
	if err != nil {
		t.Fatalf("TopSearches: %v", err)
	}
	if len(top) != 2 || top[0].Keyword != "brest" || top[0].Count != 3 {
		t.Errorf("unexpected ranking: %+v", top)
	}

	deleted, err := store.DeleteBefore(ctx, time.Now().Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted %d entries, want 1", deleted)
	}
}

func TestDailyCounts(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	store.Record(ctx, Entry{Action: ActionSearch, Subject: "brest", Timestamp: now})
	store.Record(ctx, Entry{Action: ActionSearch, Subject: "brest", Timestamp: now.Add(-2 * time.Hour)})
	store.Record(ctx, Entry{Action: ActionSearch, Subject: "port", Timestamp: now.AddDate(0, 0, -2)})
	store.Record(ctx, Entry{Action: ActionView, Subject: "1", Timestamp: now})
	store.Record(ctx, Entry{Action: ActionSearch, Subject: "vieux", Timestamp: now.AddDate(0, 0, -10)})

	days, err := store.DailyCounts(ctx, ActionSearch, 3, now)
	if err != nil {
		t.Fatalf("DailyCounts: %v", err)
	}
	want := []DayCount{{"2026-03-08", 1}, {"2026-03-09", 0}, {"2026-03-10", 2}}
	if len(days) != len(want) {
		t.Fatalf("got %d days, want %d", len(days), len(want))
	}
	for i := range want {
		if days[i] != want[i] {
			t.Errorf("day %d = %+v, want %+v", i, days[i], want[i])
		}
	}
}

func TestRecordOnNilStore(t *testing.T) {
	var store *Store
	store.Record(context.Background(), Entry{Action: ActionView})
}

func TestQueryRoute(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	store.Record(ctx, Entry{Action: ActionLogin, ActorID: "admin"})
	store.Record(ctx, Entry{Action: ActionSearch, Subject: "phare"})

	r := chi.NewRouter()
	RegisterRoutes(r, store)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/activity/?action=search", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var entries []Entry
	if err := json.NewDecoder(w.Body).Decode(&entries); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(entries) != 1 || entries[0].Subject != "phare" {
		t.Errorf("unexpected entries: %+v", entries)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/activity/missing", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing entry status = %d, want 404", w.Code)
	}
}
