package server

import (
	"fmt"

	"github.com/go-chi/chi/v5"

	"github.com/lepostier/lepostier/internal/activity"
	"github.com/lepostier/lepostier/internal/catalog"
	"github.com/lepostier/lepostier/internal/dashboard"
	"github.com/lepostier/lepostier/internal/members"
	"github.com/lepostier/lepostier/internal/site"
	"github.com/lepostier/lepostier/internal/suggestions"
)

// Features are the stores and options the HTTP surface is built from.
type Features struct {
	Postcards   *catalog.Store
	Presenter   *catalog.Presenter
	Members     *members.Store
	Sessions    *members.Sessions
	Activity    *activity.Store
	Suggestions *suggestions.Store
	Site        site.Options
}

// NewFeatures builds every store on the server database.
func (s *Server) NewFeatures(presenter *catalog.Presenter, sessions *members.Sessions, siteOpts site.Options) Features {
	memberStore := members.NewStore(s.db)
	if sessions == nil {
		sessions = &members.Sessions{}
	}
	sessions.Store = memberStore
	return Features{
		Postcards:   catalog.NewStore(s.db),
		Presenter:   presenter,
		Members:     memberStore,
		Sessions:    sessions,
		Activity:    activity.NewStore(s.db),
		Suggestions: suggestions.NewStore(s.db),
		Site:        siteOpts,
	}
}

// RegisterFeatures wires every feature route. Visitor routes see the
// current member through the session middleware; /api/admin and /admin
// routes additionally require staff.
func (s *Server) RegisterFeatures(f Features) error {
	web, err := site.New(f.Postcards, f.Presenter, f.Activity, f.Site)
	if err != nil {
		return fmt.Errorf("building site: %w", err)
	}
	api := &catalog.API{Store: f.Postcards, Presenter: f.Presenter, Activity: f.Activity}
	dash := dashboard.New(f.Postcards, f.Members, f.Activity, f.Suggestions)

	s.router.Group(func(r chi.Router) {
		r.Use(f.Sessions.Middleware)

		// Public pages and API
		web.RegisterRoutes(r)
		catalog.RegisterRoutes(r, api)
		members.RegisterRoutes(r, f.Sessions, f.Activity)
		suggestions.RegisterRoutes(r, f.Suggestions, f.Postcards, f.Activity)

		// Staff
		r.Group(func(r chi.Router) {
			r.Use(members.RequireStaff)
			catalog.RegisterAdminRoutes(r, api)
			members.RegisterAdminRoutes(r, f.Members)
			activity.RegisterRoutes(r, f.Activity)
			suggestions.RegisterAdminRoutes(r, f.Suggestions)
			dash.RegisterRoutes(r)
		})
	})
	return nil
}
