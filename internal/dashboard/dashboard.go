// Package dashboard serves the staff statistics page and its JSON API.
package dashboard

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lepostier/lepostier/internal/activity"
	"github.com/lepostier/lepostier/internal/catalog"
	"github.com/lepostier/lepostier/internal/members"
	"github.com/lepostier/lepostier/internal/suggestions"
)

// Dashboard aggregates catalog, member and activity figures for staff.
type Dashboard struct {
	postcards   *catalog.Store
	members     *members.Store
	activity    *activity.Store
	suggestions *suggestions.Store
	now         func() time.Time
}

// New creates a new Dashboard.
func New(postcards *catalog.Store, memberStore *members.Store, activityStore *activity.Store, suggestionStore *suggestions.Store) *Dashboard {
	return &Dashboard{
		postcards:   postcards,
		members:     memberStore,
		activity:    activityStore,
		suggestions: suggestionStore,
		now:         time.Now,
	}
}

// RegisterRoutes mounts all dashboard routes onto the given router. The
// caller restricts r to staff.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/admin/", d.ServeIndex)
	r.Get("/api/admin/stats", d.handleStats)
	r.Get("/api/admin/recent", d.handleRecent)
}
