package site

import (
	"bytes"
	"log"
	"net/http"
	"strings"

	"github.com/lepostier/lepostier/internal/activity"
	"github.com/lepostier/lepostier/internal/catalog"
	"github.com/lepostier/lepostier/internal/members"
)

// browsePage is the data of the browse template.
type browsePage struct {
	Query          string
	Theme          string
	Themes         []catalog.Theme
	Postcards      []catalog.Summary
	Slides         []catalog.Summary
	TotalCount     int
	DisplayedCount int
	User           *members.User
	Liked          map[int64]bool
}

func (s *Site) handleBrowse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	page := browsePage{
		Query: strings.TrimSpace(q.Get("keywords_input")),
		Theme: strings.TrimSpace(q.Get("theme")),
		User:  members.UserFromContext(ctx),
	}

	found, err := s.postcards.Search(ctx, catalog.SearchFilter{
		Keywords: page.Query,
		Theme:    page.Theme,
		Limit:    s.opts.SearchLimit,
	})
	if err != nil {
		log.Printf("site: browsing %q: %v", page.Query, err)
		http.Error(w, "Erreur interne", http.StatusInternalServerError)
		return
	}

	if page.Query != "" {
		matches, err := s.postcards.CountMatches(ctx, page.Query)
		if err != nil {
			log.Printf("site: counting matches for %q: %v", page.Query, err)
			matches = len(found)
		}
		s.activity.Record(ctx, activity.Entry{
			ActorID:     catalog.ActorFor(r),
			Action:      activity.ActionSearch,
			Subject:     page.Query,
			ResultCount: matches,
			IPAddress:   members.ClientIP(r),
		})
	}

	if page.Themes, err = s.postcards.Themes(ctx); err != nil {
		log.Printf("site: loading themes: %v", err)
	}
	if page.TotalCount, err = s.postcards.Count(ctx); err != nil {
		log.Printf("site: counting postcards: %v", err)
	}
	if page.Liked, err = s.postcards.LikedIDs(ctx, catalog.LikerFor(r)); err != nil {
		log.Printf("site: loading likes: %v", err)
	}

	viewer := catalog.ViewerFor(r)
	for _, p := range found {
		if len(page.Postcards) == s.opts.ResultLimit {
			break
		}
		if !s.presenter.Media.HasVignette(p) {
			continue
		}
		page.Postcards = append(page.Postcards, s.presenter.Summary(p, viewer, page.Liked[p.ID]))
	}
	page.DisplayedCount = len(page.Postcards)
	page.Slides = page.Postcards
	if len(page.Slides) > s.opts.SlideshowSize {
		page.Slides = page.Slides[:s.opts.SlideshowSize]
	}

	var buf bytes.Buffer
	if err := s.browse.Execute(&buf, page); err != nil {
		log.Printf("site: rendering browse page: %v", err)
		http.Error(w, "Erreur interne", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
