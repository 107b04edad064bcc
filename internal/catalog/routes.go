package catalog

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lepostier/lepostier/internal/activity"
	"github.com/lepostier/lepostier/internal/members"
)

// DefaultSearchLimit caps the JSON search.
const DefaultSearchLimit = 200

// API serves the postcard endpoints the browse page popups call.
type API struct {
	Store     *Store
	Presenter *Presenter
	Activity  *activity.Store
}

// RegisterRoutes mounts the public catalog API.
func RegisterRoutes(r chi.Router, api *API) {
	r.Get("/api/postcards/", api.handleSearch)
	r.Route("/api/postcard/{id}", func(r chi.Router) {
		r.Get("/", api.handleDetail)
		r.Get("/zoom/", api.handleZoom)
		r.Post("/like/", api.handleLike)
	})
}

// RegisterAdminRoutes mounts catalog maintenance. The caller restricts r
// to staff.
func RegisterAdminRoutes(r chi.Router, api *API) {
	r.Get("/api/admin/next-number", api.handleNextNumber)
	r.Delete("/api/admin/postcard/{id}", api.handleDelete)
}

// LikerFor identifies who is liking from the request: the member, or the
// anonymous visitor key.
func LikerFor(r *http.Request) Liker {
	l := Liker{SessionKey: members.VisitorKey(r.Context()), IP: members.ClientIP(r)}
	if u := members.UserFromContext(r.Context()); u != nil {
		l.UserID = u.ID
	}
	return l
}

// ViewerFor returns the current member as a Viewer. The nil check keeps a
// nil *User from becoming a non-nil interface.
func ViewerFor(r *http.Request) Viewer {
	if u := members.UserFromContext(r.Context()); u != nil {
		return u
	}
	return nil
}

// ActorFor is the activity actor of the request.
func ActorFor(r *http.Request) string {
	if u := members.UserFromContext(r.Context()); u != nil {
		return u.Username
	}
	return ""
}

// loadPostcard resolves {id} or writes the error response.
func (a *API) loadPostcard(w http.ResponseWriter, r *http.Request) (*Postcard, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return nil, false
	}
	p, err := a.Store.Get(r.Context(), id)
	if err != nil {
		log.Printf("catalog: loading postcard %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "not found")
		return nil, false
	}
	return p, true
}

func (a *API) handleDetail(w http.ResponseWriter, r *http.Request) {
	p, ok := a.loadPostcard(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if err := a.Store.IncrementViews(ctx, p.ID); err != nil {
		log.Printf("catalog: %v", err)
	} else {
		p.ViewsCount++
	}

	liked, err := a.Store.HasLiked(ctx, p.ID, LikerFor(r))
	if err != nil {
		log.Printf("catalog: %v", err)
	}

	a.Activity.Record(ctx, activity.Entry{
		ActorID:   ActorFor(r),
		Action:    activity.ActionView,
		Subject:   p.Number,
		IPAddress: members.ClientIP(r),
	})

	writeJSON(w, http.StatusOK, a.Presenter.Detail(*p, ViewerFor(r), liked))
}

func (a *API) handleZoom(w http.ResponseWriter, r *http.Request) {
	p, ok := a.loadPostcard(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	z := a.Presenter.Zoom(*p, ViewerFor(r))
	if z.CanView {
		if err := a.Store.IncrementZooms(ctx, p.ID); err != nil {
			log.Printf("catalog: %v", err)
		}
		a.Activity.Record(ctx, activity.Entry{
			ActorID:   ActorFor(r),
			Action:    activity.ActionZoom,
			Subject:   p.Number,
			IPAddress: members.ClientIP(r),
		})
	}
	writeJSON(w, http.StatusOK, z)
}

type likeResponse struct {
	Success    bool `json:"success"`
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

func (a *API) handleLike(w http.ResponseWriter, r *http.Request) {
	p, ok := a.loadPostcard(w, r)
	if !ok {
		return
	}
	liked, count, err := a.Store.ToggleLike(r.Context(), p.ID, LikerFor(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if liked {
		a.Activity.Record(r.Context(), activity.Entry{
			ActorID:   ActorFor(r),
			Action:    activity.ActionLike,
			Subject:   p.Number,
			IPAddress: members.ClientIP(r),
		})
	}
	writeJSON(w, http.StatusOK, likeResponse{Success: true, Liked: liked, LikesCount: count})
}

type searchResponse struct {
	Query   string    `json:"query"`
	Total   int       `json:"total"`
	Results []Summary `json:"results"`
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := SearchFilter{
		Keywords: q.Get("keywords_input"),
		Theme:    q.Get("theme"),
		Limit:    DefaultSearchLimit,
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < DefaultSearchLimit {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Offset = n
		}
	}

	ctx := r.Context()
	postcards, err := a.Store.Search(ctx, filter)
	if err != nil {
		log.Printf("catalog: searching %q: %v", filter.Keywords, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	liker := LikerFor(r)
	liked, err := a.Store.LikedIDs(ctx, liker)
	if err != nil {
		log.Printf("catalog: %v", err)
	}
	viewer := ViewerFor(r)
	results := make([]Summary, 0, len(postcards))
	for _, p := range postcards {
		results = append(results, a.Presenter.Summary(p, viewer, liked[p.ID]))
	}

	if filter.Keywords != "" {
		a.Activity.Record(ctx, activity.Entry{
			ActorID:     ActorFor(r),
			Action:      activity.ActionSearch,
			Subject:     filter.Keywords,
			ResultCount: len(results),
			IPAddress:   liker.IP,
		})
	}

	writeJSON(w, http.StatusOK, searchResponse{Query: filter.Keywords, Total: len(results), Results: results})
}

func (a *API) handleNextNumber(w http.ResponseWriter, r *http.Request) {
	n, err := a.Store.NextNumber(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"next_number": n, "formatted": FormatNumber(n)})
}

func (a *API) handleDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := a.loadPostcard(w, r)
	if !ok {
		return
	}
	if err := a.Store.Delete(r.Context(), p.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
