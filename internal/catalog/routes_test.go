package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lepostier/lepostier/internal/activity"
	"github.com/lepostier/lepostier/internal/db"
	"github.com/lepostier/lepostier/internal/members"
)

type testEnv struct {
	router   *chi.Mux
	store    *Store
	members  *members.Store
	activity *activity.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	root := t.TempDir()
	touch(t, root, "postcards", "Grande", "000001.jpg")
	touch(t, root, "postcards", "Dos", "000001.jpg")
	touch(t, root, "postcards", "Zoom", "000001.jpg")
	touch(t, root, "postcards", "Grande", "000002.jpg")

	env := &testEnv{
		store:    NewStore(database),
		members:  members.NewStore(database),
		activity: activity.NewStore(database),
	}
	api := &API{
		Store:     env.store,
		Presenter: &Presenter{Media: NewResolver(root, "/media/")},
		Activity:  env.activity,
	}
	sessions := &members.Sessions{Store: env.members}

	r := chi.NewRouter()
	r.Use(sessions.Middleware)
	RegisterRoutes(r, api)
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, username string, category members.Category) *http.Cookie {
	t.Helper()
	ctx := context.Background()
	u, err := e.members.Create(ctx, members.NewUser{Username: username, Password: "pw", Category: category})
	if err != nil {
		t.Fatalf("creating member: %v", err)
	}
	token, _, err := e.members.CreateSession(ctx, u.ID, time.Hour)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return &http.Cookie{Name: members.SessionCookie, Value: token}
}

func TestDetailEndpoint(t *testing.T) {
	env := newTestEnv(t)
	p := mustCreate(t, env.store, Postcard{Number: "1", Title: "Le port", Description: "Vue *générale*"})

	w := env.do(t, http.MethodGet, "/api/postcard/1/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var d Detail
	if err := json.NewDecoder(w.Body).Decode(&d); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if d.FrontImage != "/media/postcards/Grande/000001.jpg" || d.BackImage != "/media/postcards/Dos/000001.jpg" {
		t.Errorf("unexpected images: front=%q back=%q", d.FrontImage, d.BackImage)
	}
	if d.IsRestricted {
		t.Error("common postcard should not be restricted")
	}

	got, _ := env.store.Get(context.Background(), p.ID)
	if got.ViewsCount != 1 {
		t.Errorf("views = %d, want 1", got.ViewsCount)
	}
	views, _ := env.activity.Query(context.Background(), activity.QueryFilter{Action: activity.ActionView})
	if len(views) != 1 || views[0].Subject != "1" {
		t.Errorf("view not logged: %+v", views)
	}

	if w := env.do(t, http.MethodGet, "/api/postcard/99/"); w.Code != http.StatusNotFound {
		t.Errorf("missing postcard status = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/postcard/abc/"); w.Code != http.StatusNotFound {
		t.Errorf("bad id status = %d, want 404", w.Code)
	}
}

func TestVeryRareIsRestricted(t *testing.T) {
	env := newTestEnv(t)
	mustCreate(t, env.store, Postcard{Number: "1", Title: "Unique", Description: "secret", Rarity: RarityVeryRare})

	var d Detail
	json.NewDecoder(env.do(t, http.MethodGet, "/api/postcard/1/").Body).Decode(&d)
	if !d.IsRestricted || d.FrontImage != DefaultMemberCardURL || d.Description == "secret" {
		t.Errorf("anonymous visitor should see the member card, got %+v", d)
	}

	verified := env.login(t, "lea", members.CategorySubscribedVerified)
	json.NewDecoder(env.do(t, http.MethodGet, "/api/postcard/1/", verified).Body).Decode(&d)
	if !d.IsRestricted {
		t.Error("verified subscribers cannot see very rare cards")
	}

	postman := env.login(t, "paul", members.CategoryPostman)
	d = Detail{}
	json.NewDecoder(env.do(t, http.MethodGet, "/api/postcard/1/", postman).Body).Decode(&d)
	if d.IsRestricted || d.Description != "secret" {
		t.Errorf("postman should see the card, got %+v", d)
	}
}

func TestZoomEndpoint(t *testing.T) {
	env := newTestEnv(t)
	common := mustCreate(t, env.store, Postcard{Number: "1", Title: "Le port"})
	mustCreate(t, env.store, Postcard{Number: "2", Title: "Unique", Rarity: RarityVeryRare})

	var z Zoom
	json.NewDecoder(env.do(t, http.MethodGet, "/api/postcard/1/zoom/").Body).Decode(&z)
	if !z.CanView || z.FrontImage != "/media/postcards/Zoom/000001.jpg" {
		t.Errorf("unexpected zoom: %+v", z)
	}
	got, _ := env.store.Get(context.Background(), common.ID)
	if got.ZoomCount != 1 {
		t.Errorf("zoom count = %d, want 1", got.ZoomCount)
	}

	w := env.do(t, http.MethodGet, "/api/postcard/2/zoom/")
	var raw map[string]any
	json.NewDecoder(w.Body).Decode(&raw)
	if raw["can_view"] != false {
		t.Errorf("very rare zoom should be refused: %v", raw)
	}
	if _, ok := raw["front_image"]; ok {
		t.Error("refused zoom must not carry an image")
	}
	rare, _ := env.store.GetByNumber(context.Background(), "2")
	if rare.ZoomCount != 0 {
		t.Error("refused zoom should not be counted")
	}
}

func TestLikeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	mustCreate(t, env.store, Postcard{Number: "1", Title: "Le port"})
	visitor := &http.Cookie{Name: members.VisitorCookie, Value: "visitor-abc"}

	var resp likeResponse
	json.NewDecoder(env.do(t, http.MethodPost, "/api/postcard/1/like/", visitor).Body).Decode(&resp)
	if !resp.Success || !resp.Liked || resp.LikesCount != 1 {
		t.Errorf("first like = %+v", resp)
	}

	var d Detail
	json.NewDecoder(env.do(t, http.MethodGet, "/api/postcard/1/", visitor).Body).Decode(&d)
	if !d.HasLiked || d.LikesCount != 1 {
		t.Errorf("detail should report the like: %+v", d)
	}

	json.NewDecoder(env.do(t, http.MethodPost, "/api/postcard/1/like/", visitor).Body).Decode(&resp)
	if resp.Liked || resp.LikesCount != 0 {
		t.Errorf("second like should undo: %+v", resp)
	}
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t)
	mustCreate(t, env.store, Postcard{Number: "1", Title: "Le port de Brest"})
	mustCreate(t, env.store, Postcard{Number: "2", Title: "Brest, la gare"})
	mustCreate(t, env.store, Postcard{Number: "3", Title: "Quimper"})

	w := env.do(t, http.MethodGet, "/api/postcards/?keywords_input=brest")
	var resp searchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Total != 2 || resp.Results[0].Number != "1" {
		t.Errorf("unexpected search: %+v", resp)
	}
	if resp.Results[1].FrontImage != "/media/postcards/Grande/000002.jpg" {
		t.Errorf("front image = %q", resp.Results[1].FrontImage)
	}

	searches, _ := env.activity.Query(context.Background(), activity.QueryFilter{Action: activity.ActionSearch})
	if len(searches) != 1 || searches[0].ResultCount != 2 {
		t.Errorf("search not logged: %+v", searches)
	}

	env.do(t, http.MethodGet, "/api/postcards/")
	searches, _ = env.activity.Query(context.Background(), activity.QueryFilter{Action: activity.ActionSearch})
	if len(searches) != 1 {
		t.Error("an empty query should not be logged")
	}
}
