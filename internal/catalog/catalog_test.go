package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

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

func mustCreate(t *testing.T, store *Store, p Postcard) *Postcard {
	t.Helper()
	created, err := store.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("Create %s: %v", p.Number, err)
	}
	return created
}

func TestPaddedNumber(t *testing.T) {
	tests := []struct {
		p    Postcard
		want string
	}{
		{Postcard{Number: "42"}, "000042"},
		{Postcard{Number: "CP-0123"}, "000123"},
		{Postcard{Number: "1234567"}, "1234567"},
		{Postcard{ID: 9, Number: "sans numéro"}, "000009"},
	}
	for _, tt := range tests {
		if got := tt.p.PaddedNumber(); got != tt.want {
			t.Errorf("PaddedNumber(%q) = %q, want %q", tt.p.Number, got, tt.want)
		}
	}
}

func TestParseRarity(t *testing.T) {
	tests := map[string]Rarity{
		"":          RarityCommon,
		"commune":   RarityCommon,
		"Rare":      RarityRare,
		"très rare": RarityVeryRare,
		"VR":        RarityVeryRare,
		"3":         RarityVeryRare,
	}
	for in, want := range tests {
		if got := ParseRarity(in); got != want {
			t.Errorf("ParseRarity(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestKeywordList(t *testing.T) {
	p := Postcard{Keywords: "Brest, port , , phare"}
	got := p.KeywordList()
	if strings.Join(got, "|") != "Brest|port|phare" {
		t.Errorf("KeywordList = %v", got)
	}
}

func TestCreateAndGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created := mustCreate(t, store, Postcard{Number: "000001", Title: "Le port", Keywords: "brest"})
	if created.ID == 0 {
		t.Fatal("expected an id")
	}
	if created.Rarity != RarityCommon {
		t.Errorf("default rarity = %s", created.Rarity)
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Title != "Le port" {
		t.Fatalf("unexpected postcard: %+v", got)
	}

	missing, err := store.Get(ctx, 999)
	if err != nil || missing != nil {
		t.Errorf("missing postcard = %+v, %v", missing, err)
	}

	if _, err := store.Create(ctx, Postcard{Number: "000001", Title: "dup"}); err == nil {
		t.Error("duplicate number should fail")
	}
	if _, err := store.Create(ctx, Postcard{Number: "000002", Rarity: "legendary"}); err == nil {
		t.Error("invalid rarity should fail")
	}
}

func TestUpsert(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	p, created, err := store.Upsert(ctx, Postcard{Number: "12", Title: "Avant"})
	if err != nil || !created {
		t.Fatalf("first Upsert: created=%v err=%v", created, err)
	}
	store.IncrementViews(ctx, p.ID)

	updated, created, err := store.Upsert(ctx, Postcard{Number: "12", Title: "Après", Rarity: RarityRare})
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if created {
		t.Error("second Upsert should update")
	}
	if updated.ID != p.ID || updated.Title != "Après" || updated.Rarity != RarityRare {
		t.Errorf("unexpected update: %+v", updated)
	}
	if updated.ViewsCount != 1 {
		t.Errorf("counters must survive an update, views = %d", updated.ViewsCount)
	}
}

func TestSearch(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	mustCreate(t, store, Postcard{Number: "000003", Title: "Phare du Petit Minou", Keywords: "brest, phare"})
	mustCreate(t, store, Postcard{Number: "000001", Title: "Le port de Brest"})
	mustCreate(t, store, Postcard{Number: "000002", Title: "Quimper", Description: "La cathédrale vue de BREST road"})
	mustCreate(t, store, Postcard{Number: "000004", Title: "Morlaix"})

	got, err := store.Search(ctx, SearchFilter{Keywords: "brest"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	var numbers []string
	for _, p := range got {
		numbers = append(numbers, p.Number)
	}
	if strings.Join(numbers, ",") != "000001,000002,000003" {
		t.Errorf("search order = %v, want by number", numbers)
	}

	byNumber, _ := store.Search(ctx, SearchFilter{Keywords: "0004"})
	if len(byNumber) != 1 || byNumber[0].Title != "Morlaix" {
		t.Errorf("search by number = %+v", byNumber)
	}

	limited, _ := store.Search(ctx, SearchFilter{Limit: 2, Offset: 1})
	if len(limited) != 2 || limited[0].Number != "000002" {
		t.Errorf("limit/offset = %+v", limited)
	}

	n, err := store.CountMatches(ctx, "brest")
	if err != nil || n != 3 {
		t.Errorf("CountMatches = %d, %v", n, err)
	}
}

func TestSearchMatchesWildcardsLiterally(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	mustCreate(t, store, Postcard{Number: "000001", Title: "Gare_maritime"})
	mustCreate(t, store, Postcard{Number: "000002", Title: "Remise 50% Brest"})
	mustCreate(t, store, Postcard{Number: "000003", Title: `Quai \ nord`})
	mustCreate(t, store, Postcard{Number: "000004", Title: "Morlaix"})

	for kw, want := range map[string]string{
		"_":  "000001",
		"%":  "000002",
		`\`: "000003",
	} {
		got, err := store.Search(ctx, SearchFilter{Keywords: kw})
		if err != nil {
			t.Fatalf("Search %q: %v", kw, err)
		}
		if len(got) != 1 || got[0].Number != want {
			t.Errorf("Search %q = %+v, want only %s", kw, got, want)
		}
		if n, err := store.CountMatches(ctx, kw); err != nil || n != 1 {
			t.Errorf("CountMatches %q = %d, %v", kw, n, err)
		}
	}
}

func TestThemes(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	a := mustCreate(t, store, Postcard{Number: "1", Title: "Phare"})
	mustCreate(t, store, Postcard{Number: "2", Title: "Gare"})

	theme, err := store.UpsertTheme(ctx, Theme{Name: "phares", DisplayName: "Phares", Order: 2})
	if err != nil {
		t.Fatalf("UpsertTheme: %v", err)
	}
	if _, err := store.UpsertTheme(ctx, Theme{Name: "gares", Order: 1}); err != nil {
		t.Fatalf("UpsertTheme: %v", err)
	}
	if err := store.AddToTheme(ctx, theme.ID, a.ID); err != nil {
		t.Fatalf("AddToTheme: %v", err)
	}
	if err := store.AddToTheme(ctx, theme.ID, a.ID); err != nil {
		t.Fatalf("AddToTheme twice: %v", err)
	}

	themes, err := store.Themes(ctx)
	if err != nil {
		t.Fatalf("Themes: %v", err)
	}
	if len(themes) != 2 || themes[0].Name != "gares" || themes[0].DisplayName != "gares" {
		t.Errorf("themes = %+v", themes)
	}

	inTheme, err := store.ListByTheme(ctx, "phares", 10)
	if err != nil {
		t.Fatalf("ListByTheme: %v", err)
	}
	if len(inTheme) != 1 || inTheme[0].ID != a.ID {
		t.Errorf("ListByTheme = %+v", inTheme)
	}
}

func TestToggleLike(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	p := mustCreate(t, store, Postcard{Number: "1", Title: "Phare"})

	visitor := Liker{SessionKey: "visitor-1"}
	other := Liker{SessionKey: "visitor-2"}

	liked, count, err := store.ToggleLike(ctx, p.ID, visitor)
	if err != nil || !liked || count != 1 {
		t.Fatalf("first toggle = %v, %d, %v", liked, count, err)
	}
	if _, count, _ = store.ToggleLike(ctx, p.ID, other); count != 2 {
		t.Errorf("second visitor count = %d, want 2", count)
	}
	if has, _ := store.HasLiked(ctx, p.ID, visitor); !has {
		t.Error("HasLiked should be true")
	}

	liked, count, err = store.ToggleLike(ctx, p.ID, visitor)
	if err != nil || liked || count != 1 {
		t.Errorf("unlike = %v, %d, %v", liked, count, err)
	}

	ids, err := store.LikedIDs(ctx, other)
	if err != nil || !ids[p.ID] {
		t.Errorf("LikedIDs = %v, %v", ids, err)
	}

	if _, _, err := store.ToggleLike(ctx, p.ID, Liker{}); err == nil {
		t.Error("anonymous like without a session should fail")
	}
}

func TestNextNumber(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	n, err := store.NextNumber(ctx)
	if err != nil || n != 1 {
		t.Fatalf("empty NextNumber = %d, %v", n, err)
	}
	mustCreate(t, store, Postcard{Number: "000041", Title: "a"})
	mustCreate(t, store, Postcard{Number: "CP-7", Title: "b"})
	if n, _ = store.NextNumber(ctx); n != 42 {
		t.Errorf("NextNumber = %d, want 42", n)
	}
	if FormatNumber(n) != "000042" {
		t.Errorf("FormatNumber = %s", FormatNumber(n))
	}
}

func touch(t *testing.T, root string, parts ...string) {
	t.Helper()
	p := filepath.Join(append([]string{root}, parts...)...)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolver(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "postcards", "Vignette", "000042.jpg")
	touch(t, root, "postcards", "Dos", "42.PNG")
	touch(t, root, "postcards", "Zoom", "000007.jpeg")
	touch(t, root, "postcards", "Grande", "000007.jpg")
	touch(t, root, "animated_cp", "000042.mp4")
	touch(t, root, "animated_cp", "000042_0.mp4")
	touch(t, root, "animated_cp", "000042_1.webm")
	touch(t, root, "animated_cp", "000042_3.mp4")

	r := NewResolver(root, "/media")
	p := Postcard{Number: "42"}

	set := r.Images(p)
	if set.Vignette != "/media/postcards/Vignette/000042.jpg" {
		t.Errorf("vignette = %q", set.Vignette)
	}
	if set.Grande != set.Vignette {
		t.Errorf("grande should fall back to vignette, got %q", set.Grande)
	}
	if set.Zoom != set.Grande {
		t.Errorf("zoom should fall back to grande, got %q", set.Zoom)
	}
	if set.Dos != "/media/postcards/Dos/42.PNG" {
		t.Errorf("dos should use the raw number, got %q", set.Dos)
	}
	want := []string{"/media/animated_cp/000042.mp4", "/media/animated_cp/000042_0.mp4", "/media/animated_cp/000042_1.webm"}
	if strings.Join(set.Animated, ",") != strings.Join(want, ",") {
		t.Errorf("animated = %v, want %v", set.Animated, want)
	}

	seven := r.Images(Postcard{Number: "7"})
	if seven.Zoom != "/media/postcards/Zoom/000007.jpeg" || seven.Vignette != "" {
		t.Errorf("unexpected images for 7: %+v", seven)
	}
	if r.HasVignette(Postcard{Number: "7"}) {
		t.Error("7 has no vignette")
	}
	if len(r.AnimatedURLs(Postcard{Number: "8"})) != 0 {
		t.Error("8 has no animation")
	}
}

func TestDescriptionHTML(t *testing.T) {
	got := string(DescriptionHTML("Vue du **port** <script>x</script>"))
	if !strings.Contains(got, "<strong>port</strong>") {
		t.Errorf("markdown not rendered: %q", got)
	}
	if strings.Contains(got, "<script>") {
		t.Errorf("raw html must be dropped: %q", got)
	}
	if DescriptionHTML("") != "" {
		t.Error("empty description should render empty")
	}
}
