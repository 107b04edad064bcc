package site

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// embeddedAssets are the browse page scripts and styles.
var embeddedAssets = map[string]struct {
	contentType string
	body        string
}{
	"browse.js":  {"application/javascript; charset=utf-8", browseJS},
	"browse.css": {"text/css; charset=utf-8", browseCSS},
}

func (s *Site) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if asset, ok := embeddedAssets[name]; ok {
		w.Header().Set("Content-Type", asset.contentType)
		w.Write([]byte(asset.body))
		return
	}
	if s.opts.StaticDir == "" {
		http.NotFound(w, r)
		return
	}
	serveUnder(w, r, s.opts.StaticDir, name)
}

func (s *Site) handleMedia(w http.ResponseWriter, r *http.Request) {
	if s.opts.MediaRoot == "" {
		http.NotFound(w, r)
		return
	}
	serveUnder(w, r, s.opts.MediaRoot, chi.URLParam(r, "*"))
}

// resolveUnder maps a URL path onto a file below root. It returns false for
// paths that would escape root.
func resolveUnder(root, rel string) (string, bool) {
	if strings.Contains(rel, "\\") || strings.ContainsRune(rel, 0) {
		return "", false
	}
	for _, part := range strings.Split(rel, "/") {
		if part == ".." {
			return "", false
		}
	}
	clean := path.Clean("/" + rel)
	if clean == "/" {
		return "", false
	}
	return filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), true
}

// serveUnder serves rel from root, refusing directories and anything
// outside root.
func serveUnder(w http.ResponseWriter, r *http.Request, root, rel string) {
	full, ok := resolveUnder(root, rel)
	if !ok {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(full)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
