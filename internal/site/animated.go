package site

import (
	"bytes"
	"log"
	"net/http"
	"sort"

	"github.com/lepostier/lepostier/internal/catalog"
	"github.com/lepostier/lepostier/internal/members"
)

// animatedCard is one entry of the animated gallery. Videos stays empty
// for cards the visitor may not see.
type animatedCard struct {
	catalog.Summary
	Videos []string
}

type animatedPage struct {
	Postcards  []animatedCard
	TotalCount int
	User       *members.User
	Liked      map[int64]bool
}

// handleAnimated lists every postcard with at least one video under the
// animated folder, most liked first.
func (s *Site) handleAnimated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	all, err := s.postcards.List(ctx)
	if err != nil {
		log.Printf("site: listing animated postcards: %v", err)
		http.Error(w, "Erreur interne", http.StatusInternalServerError)
		return
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].LikesCount > all[j].LikesCount })

	page := animatedPage{User: members.UserFromContext(ctx)}
	if page.Liked, err = s.postcards.LikedIDs(ctx, catalog.LikerFor(r)); err != nil {
		log.Printf("site: loading likes: %v", err)
	}

	viewer := catalog.ViewerFor(r)
	for _, p := range all {
		videos := s.presenter.Media.AnimatedURLs(p)
		if len(videos) == 0 {
			continue
		}
		card := animatedCard{Summary: s.presenter.Summary(p, viewer, page.Liked[p.ID])}
		if !card.IsRestricted {
			card.Videos = videos
		}
		page.Postcards = append(page.Postcards, card)
	}
	page.TotalCount = len(page.Postcards)

	var buf bytes.Buffer
	if err := s.animated.Execute(&buf, page); err != nil {
		log.Printf("site: rendering animated gallery: %v", err)
		http.Error(w, "Erreur interne", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
