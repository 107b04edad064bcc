package media

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/jlaffaye/ftp"

	"github.com/lepostier/lepostier/internal/catalog"
	"github.com/lepostier/lepostier/internal/db"
)

func writeFile(t *testing.T, p string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(strings.Repeat("x", size)), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestProvision(t *testing.T) {
	root := t.TempDir()
	created, err := Provision(root)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if len(created) != len(Dirs()) {
		t.Errorf("created %v", created)
	}
	for _, rel := range Dirs() {
		if info, err := os.Stat(filepath.Join(root, rel)); err != nil || !info.IsDir() {
			t.Errorf("%s missing", rel)
		}
	}

	again, err := Provision(root)
	if err != nil || len(again) != 0 {
		t.Errorf("second run: %v %v", again, err)
	}
	if _, err := Provision(" "); err == nil {
		t.Error("empty root should fail")
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	if _, err := Scan(filepath.Join(root, "absent")); err == nil {
		t.Error("missing root should fail")
	}

	writeFile(t, filepath.Join(root, "postcards", "Vignette", "000001.jpg"), 200)
	writeFile(t, filepath.Join(root, "postcards", "Vignette", "000002.PNG"), 200)
	writeFile(t, filepath.Join(root, "postcards", "Vignette", "notes.txt"), 10)
	writeFile(t, filepath.Join(root, "postcards", "Grande", "000001.jpeg"), 200)
	writeFile(t, filepath.Join(root, "animated_cp", "000001.mp4"), 200)
	writeFile(t, filepath.Join(root, "animated_cp", "000001_0.webm"), 200)

	rep, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if rep.Images != 3 || rep.Videos != 2 {
		t.Errorf("images=%d videos=%d", rep.Images, rep.Videos)
	}
	byName := map[string]FolderCount{}
	for _, f := range rep.Folders {
		byName[f.Folder] = f
	}
	if v := byName["Vignette"]; v.Count != 2 || v.Samples[0] != "000001.jpg" {
		t.Errorf("Vignette = %+v", v)
	}
	if byName["Dos"].Exists {
		t.Error("Dos was never created")
	}
	if byName[SignaturesFolder].Exists {
		t.Error("signatures was never created")
	}
}

func TestUpdateFlags(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer database.Close()
	ctx := context.Background()
	store := catalog.NewStore(database)
	root := t.TempDir()

	withImage, _ := store.Create(ctx, catalog.Postcard{Number: "1"})
	without, _ := store.Create(ctx, catalog.Postcard{Number: "2"})
	store.SetHasImages(ctx, without.ID, true)
	writeFile(t, filepath.Join(root, "postcards", "Vignette", "000001.jpg"), 200)

	changed, err := UpdateFlags(ctx, store, catalog.NewResolver(root, "/media/"))
	if err != nil {
		t.Fatalf("UpdateFlags: %v", err)
	}
	if changed != 2 {
		t.Errorf("changed = %d, want 2", changed)
	}
	if p, _ := store.Get(ctx, withImage.ID); !p.HasImages {
		t.Error("card with a vignette should be flagged")
	}
	if p, _ := store.Get(ctx, without.ID); p.HasImages {
		t.Error("card without a vignette should be cleared")
	}

	changed, _ = UpdateFlags(ctx, store, catalog.NewResolver(root, "/media/"))
	if changed != 0 {
		t.Errorf("second pass changed %d", changed)
	}
}

// fakeFTP serves files from memory. failures maps a remote path to how many
// Retr calls fail before it succeeds.
type fakeFTP struct {
	files    map[string]string
	failures map[string]int
	dials    int
	quits    int
}

type fakeConn struct{ srv *fakeFTP }

func (c fakeConn) List(dir string) ([]*ftp.Entry, error) {
	var out []*ftp.Entry
	found := false
	for p := range c.srv.files {
		if path.Dir(p) == dir {
			found = true
			out = append(out, &ftp.Entry{Name: path.Base(p), Type: ftp.EntryTypeFile})
		}
	}
	if !found {
		return nil, errors.New("550 no such directory")
	}
	out = append(out, &ftp.Entry{Name: "sub", Type: ftp.EntryTypeFolder})
	return out, nil
}

func (c fakeConn) Retr(p string) (io.ReadCloser, error) {
	if c.srv.failures[p] > 0 {
		c.srv.failures[p]--
		return nil, errors.New("connection reset")
	}
	body, ok := c.srv.files[p]
	if !ok {
		return nil, errors.New("550 not found")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (c fakeConn) Quit() error {
	c.srv.quits++
	return nil
}

func (f *fakeFTP) dial() (Conn, error) {
	f.dials++
	return fakeConn{f}, nil
}

func TestSync(t *testing.T) {
	big := strings.Repeat("j", 500)
	srv := &fakeFTP{
		files: map[string]string{
			"/cartes/Vignette/000001.jpg": big,
			"/cartes/Vignette/000002.jpg": big,
			"/cartes/Vignette/000003.jpg": big,
			"/cartes/Vignette/readme.txt": "text",
			"/cartes/animated_cp/000001.mp4": big,
		},
		failures: map[string]int{"/cartes/Vignette/000003.jpg": 1},
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "postcards", "Vignette", "000001.jpg"), 200)
	writeFile(t, filepath.Join(root, "postcards", "Vignette", "000002.jpg"), 50)

	s := &Syncer{Dial: srv.dial, Root: root}
	results, err := s.Sync(context.Background(), SyncOptions{
		RemotePath: "/cartes",
		Folders:    []string{"Vignette", "animated_cp", "Zoom"},
	})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %+v", results)
	}

	v := results[0]
	if v.Found != 3 || v.Skipped != 1 || v.Downloaded != 2 || v.Failed != 0 {
		t.Errorf("Vignette = %+v", v)
	}
	data, _ := os.ReadFile(filepath.Join(root, "postcards", "Vignette", "000002.jpg"))
	if string(data) != big {
		t.Error("truncated file should be downloaded again")
	}
	if _, err := os.Stat(filepath.Join(root, "postcards", "Vignette", "readme.txt")); err == nil {
		t.Error("non image files must be ignored")
	}
	if srv.dials != 2 {
		t.Errorf("dials = %d, want a reconnect after the failure", srv.dials)
	}

	if a := results[1]; a.Downloaded != 1 {
		t.Errorf("animated = %+v", a)
	}
	if _, err := os.Stat(filepath.Join(root, "animated_cp", "000001.mp4")); err != nil {
		t.Error("videos land in animated_cp")
	}
	if results[2].Err == nil {
		t.Error("missing remote folder should be reported")
	}
	if srv.quits != srv.dials {
		t.Errorf("quits = %d, dials = %d", srv.quits, srv.dials)
	}
}

func TestSyncLimitAndPersistentFailure(t *testing.T) {
	srv := &fakeFTP{
		files: map[string]string{
			"/c/Dos/000001.jpg": "a",
			"/c/Dos/000002.jpg": "b",
			"/c/Dos/000003.jpg": "c",
		},
		failures: map[string]int{},
	}
	for p := range srv.files {
		srv.failures[p] = 10
	}
	s := &Syncer{Dial: srv.dial, Root: t.TempDir(), Retries: 2}
	results, err := s.Sync(context.Background(), SyncOptions{RemotePath: "/c", Folders: []string{"Dos"}, Limit: 1})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if r := results[0]; r.Found != 3 || r.Failed != 1 || r.Downloaded != 0 {
		t.Errorf("Dos = %+v", r)
	}
}

func TestSyncDialFailure(t *testing.T) {
	dials := 0
	s := &Syncer{
		Dial: func() (Conn, error) {
			dials++
			return nil, errors.New("refused")
		},
		Root: t.TempDir(),
	}
	if _, err := s.Sync(context.Background(), SyncOptions{Folders: []string{"Dos"}}); err == nil {
		t.Fatal("expected a connection error")
	}
	if dials != DefaultRetries {
		t.Errorf("dials = %d, want %d", dials, DefaultRetries)
	}
}

func TestGenerateThumbnails(t *testing.T) {
	root := t.TempDir()
	grande := filepath.Join(root, "postcards", "Grande")
	if err := os.MkdirAll(grande, 0o755); err != nil {
		t.Fatal(err)
	}
	img := imaging.New(1200, 800, color.NRGBA{R: 200, G: 120, B: 40, A: 255})
	for _, name := range []string{"000001.png", "000002.jpg"} {
		if err := imaging.Save(img, filepath.Join(grande, name)); err != nil {
			t.Fatal(err)
		}
	}
	writeFile(t, filepath.Join(root, "postcards", "Vignette", "000002.jpg"), 200)
	writeFile(t, filepath.Join(grande, "000003.jpg"), 20)

	res, err := GenerateThumbnails(context.Background(), root, ThumbnailOptions{Width: 300, Height: 300})
	if err != nil {
		t.Fatalf("GenerateThumbnails: %v", err)
	}
	if res.Generated != 1 || res.Skipped != 1 || res.Failed != 1 {
		t.Errorf("result = %+v", res)
	}

	f, err := os.Open(filepath.Join(root, "postcards", "Vignette", "000001.jpg"))
	if err != nil {
		t.Fatalf("vignette not written: %v", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 300 || cfg.Height != 200 {
		t.Errorf("vignette is %dx%d, want 300x200", cfg.Width, cfg.Height)
	}
}
