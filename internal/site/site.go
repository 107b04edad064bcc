// Package site serves the public browse page, the animated gallery, their
// static assets, the media library and the cinema websocket.
package site

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lepostier/lepostier/internal/activity"
	"github.com/lepostier/lepostier/internal/catalog"
	"github.com/lepostier/lepostier/internal/gallery"
)

// Defaults of the browse page bounds.
const (
	DefaultSearchLimit   = 200
	DefaultResultLimit   = 50
	DefaultSlideshowSize = 20
)

// Options configures a Site.
type Options struct {
	// MediaRoot is served under /media/.
	MediaRoot string
	// StaticDir, when set, serves extra files under /static/ such as the
	// member card image.
	StaticDir string
	// SearchLimit is how many matches are considered before dropping cards
	// without a vignette.
	SearchLimit int
	// ResultLimit is how many cards the grid shows.
	ResultLimit int
	// SlideshowSize is how many cards cinema mode cycles through.
	SlideshowSize int
	// SlideInterval is the cinema tick; zero means the gallery default.
	SlideInterval time.Duration
	// Clock drives cinema slideshows; nil means the wall clock.
	Clock gallery.Clock
}

// Site renders the visitor-facing pages.
type Site struct {
	postcards *catalog.Store
	presenter *catalog.Presenter
	activity  *activity.Store
	opts      Options
	browse    *template.Template
	animated  *template.Template
}

// New parses the page templates and returns a Site.
func New(postcards *catalog.Store, presenter *catalog.Presenter, activityLog *activity.Store, opts Options) (*Site, error) {
	funcs := template.FuncMap{
		"liked": func(ids map[int64]bool, id int64) bool { return ids[id] },
	}
	tmpl, err := template.New("browse").Funcs(funcs).Parse(browseTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing browse template: %w", err)
	}
	animated, err := template.New("animated").Funcs(funcs).Parse(animatedTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing animated gallery template: %w", err)
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = DefaultSearchLimit
	}
	if opts.ResultLimit <= 0 {
		opts.ResultLimit = DefaultResultLimit
	}
	if opts.SlideshowSize <= 0 {
		opts.SlideshowSize = DefaultSlideshowSize
	}
	return &Site{
		postcards: postcards,
		presenter: presenter,
		activity:  activityLog,
		opts:      opts,
		browse:    tmpl,
		animated:  animated,
	}, nil
}

// RegisterRoutes mounts the site onto r.
func (s *Site) RegisterRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/parcourir/", http.StatusFound)
	})
	r.Get("/parcourir/", s.handleBrowse)
	r.Get("/cp-animes/", s.handleAnimated)
	r.Get("/static/*", s.handleStatic)
	r.Get("/media/*", s.handleMedia)
	r.Get("/ws/cinema", s.handleCinema)
}
