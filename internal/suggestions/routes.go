package suggestions

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lepostier/lepostier/internal/activity"
	"github.com/lepostier/lepostier/internal/catalog"
	"github.com/lepostier/lepostier/internal/members"
)

// RegisterRoutes mounts the public suggestion endpoint.
func RegisterRoutes(r chi.Router, store *Store, postcards *catalog.Store, activityLog *activity.Store) {
	r.Post("/api/postcard/{id}/suggest/", handleCreate(store, postcards, activityLog))
}

// RegisterAdminRoutes mounts the review endpoints. The caller restricts r
// to staff.
func RegisterAdminRoutes(r chi.Router, store *Store) {
	r.Get("/api/admin/suggestions", handleList(store))
	r.Put("/api/admin/suggestion/{id}", handleReview(store))
}

type createRequest struct {
	Description string `json:"description"`
}

func readDescription(r *http.Request) (string, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var req createRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		return req.Description, err
	}
	if err := r.ParseForm(); err != nil {
		return "", err
	}
	return r.PostFormValue("description"), nil
}

func handleCreate(store *Store, postcards *catalog.Store, activityLog *activity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		p, err := postcards.Get(r.Context(), id)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if p == nil {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}

		description, err := readDescription(r)
		if err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		sg := Suggestion{PostcardID: p.ID, Description: description, IPAddress: members.ClientIP(r)}
		actor := ""
		if u := members.UserFromContext(r.Context()); u != nil {
			sg.UserID = &u.ID
			actor = u.Username
		}

		created, err := store.Create(r.Context(), sg)
		if errors.Is(err, ErrDescriptionRequired) || errors.Is(err, ErrDescriptionTooShort) {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}

		activityLog.Record(r.Context(), activity.Entry{
			ActorID:   actor,
			Action:    activity.ActionSuggest,
			Subject:   p.Number,
			Detail:    created.Description,
			IPAddress: sg.IPAddress,
		})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": "Suggestion enregistrée avec succès!",
			"id":      created.ID,
		})
	}
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := ListFilter{Limit: 100}
		q := r.URL.Query()
		if v := q.Get("status"); v != "" {
			filter.Status = Status(v)
		}
		if v := q.Get("postcard_id"); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				filter.PostcardID = n
			}
		}
		if v := q.Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Limit = n
			}
		}

		list, err := store.List(r.Context(), filter)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []Suggestion{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

type reviewRequest struct {
	Status Status `json:"status"`
}

func handleReview(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, `{"error":"invalid id"}`, http.StatusBadRequest)
			return
		}
		var req reviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Status != StatusApproved && req.Status != StatusRejected {
			http.Error(w, `{"error":"status must be approved or rejected"}`, http.StatusBadRequest)
			return
		}

		var reviewer int64
		if u := members.UserFromContext(r.Context()); u != nil {
			reviewer = u.ID
		}
		if err := store.Review(r.Context(), id, req.Status, reviewer); err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusNotFound)
			return
		}

		sg, err := store.GetByID(r.Context(), id)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sg)
	}
}
