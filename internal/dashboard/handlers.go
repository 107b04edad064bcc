package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/lepostier/lepostier/internal/activity"
	"github.com/lepostier/lepostier/internal/catalog"
	"github.com/lepostier/lepostier/internal/members"
	"github.com/lepostier/lepostier/internal/suggestions"
)

const (
	topCount   = 10
	recentSize = 10
	seriesDays = 14
)

type topPostcard struct {
	ID     int64  `json:"id"`
	Number string `json:"number"`
	Title  string `json:"title"`
	Views  int    `json:"views"`
	Zooms  int    `json:"zooms"`
}

// statsResponse is the JSON response for the stats endpoint.
type statsResponse struct {
	Totals             catalog.Totals           `json:"totals"`
	Users              int                      `json:"users"`
	UsersByCategory    map[members.Category]int `json:"users_by_category"`
	PendingSuggestions int                      `json:"pending_suggestions"`
	SearchesToday      int                      `json:"searches_today"`
	TopViewed          []topPostcard            `json:"top_viewed"`
	TopSearches        []activity.SearchCount   `json:"top_searches"`
	SearchesPerDay     []activity.DayCount      `json:"searches_per_day"`
}

// recentResponse is the JSON response for the recent activity endpoint.
type recentResponse struct {
	Searches    []activity.Entry         `json:"searches"`
	Suggestions []suggestions.Suggestion `json:"suggestions"`
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := d.now().UTC()

	totals, err := d.postcards.Totals(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	byCategory, err := d.members.CountByCategory(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	users := 0
	for _, n := range byCategory {
		users += n
	}

	pending := 0
	if d.suggestions != nil {
		counts, err := d.suggestions.CountByStatus(ctx)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		pending = counts[suggestions.StatusPending]
	}

	top, err := d.postcards.TopViewed(ctx, topCount)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	topViewed := make([]topPostcard, 0, len(top))
	for _, p := range top {
		topViewed = append(topViewed, topPostcard{ID: p.ID, Number: p.Number, Title: p.Title, Views: p.ViewsCount, Zooms: p.ZoomCount})
	}

	topSearches, err := d.activity.TopSearches(ctx, topCount)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if topSearches == nil {
		topSearches = []activity.SearchCount{}
	}

	series, err := d.activity.DailyCounts(ctx, activity.ActionSearch, seriesDays, now)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	today := 0
	if len(series) > 0 {
		today = series[len(series)-1].Count
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Totals:             totals,
		Users:              users,
		UsersByCategory:    byCategory,
		PendingSuggestions: pending,
		SearchesToday:      today,
		TopViewed:          topViewed,
		TopSearches:        topSearches,
		SearchesPerDay:     series,
	})
}

func (d *Dashboard) handleRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	searches, err := d.activity.Query(ctx, activity.QueryFilter{Action: activity.ActionSearch, Limit: recentSize})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	var pending []suggestions.Suggestion
	if d.suggestions != nil {
		pending, err = d.suggestions.List(ctx, suggestions.ListFilter{Status: suggestions.StatusPending, Limit: recentSize})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}

	if searches == nil {
		searches = []activity.Entry{}
	}
	if pending == nil {
		pending = []suggestions.Suggestion{}
	}

	writeJSON(w, http.StatusOK, recentResponse{
		Searches:    searches,
		Suggestions: pending,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
