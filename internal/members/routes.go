package members

import (
	"encoding/json"
	"errors"
	"log"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lepostier/lepostier/internal/activity"
)

// RegisterRoutes mounts the login and account endpoints. Admin endpoints
// are mounted by RegisterAdminRoutes.
func RegisterRoutes(r chi.Router, sessions *Sessions, activityLog *activity.Store) {
	r.Post("/connexion/", handleLogin(sessions, activityLog))
	r.Post("/logout/", handleLogout(sessions, activityLog))
	r.Get("/api/me", handleMe())
}

// RegisterAdminRoutes mounts user management. The caller restricts r to
// staff.
func RegisterAdminRoutes(r chi.Router, store *Store) {
	r.Get("/api/admin/users", handleListUsers(store))
	r.Put("/api/admin/user/{id}/category", handleSetCategory(store))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Next     string `json:"next"`
}

func wantsJSON(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/json" || strings.Contains(r.Header.Get("Accept"), "application/json")
}

func readLogin(r *http.Request) (loginRequest, error) {
	var req loginRequest
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Username = r.PostFormValue("username")
	req.Password = r.PostFormValue("password")
	req.Next = r.PostFormValue("next")
	return req, nil
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/parcourir/"
	}
	return next
}

func handleLogin(sessions *Sessions, activityLog *activity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := readLogin(r)
		if err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		u, err := sessions.Store.Authenticate(r.Context(), req.Username, req.Password)
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, `{"error":"invalid username or password"}`, http.StatusUnauthorized)
			return
		}
		if err != nil {
			log.Printf("members: login %s: %v", req.Username, err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		if err := sessions.Login(w, r, u); err != nil {
			log.Printf("members: opening session for %s: %v", u.Username, err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}

		activityLog.Record(r.Context(), activity.Entry{
			ActorID:   u.Username,
			Action:    activity.ActionLogin,
			IPAddress: ClientIP(r),
		})

		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, u)
			return
		}
		http.Redirect(w, r, safeNext(req.Next), http.StatusSeeOther)
	}
}

func handleLogout(sessions *Sessions, activityLog *activity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if u := UserFromContext(r.Context()); u != nil {
			activityLog.Record(r.Context(), activity.Entry{
				ActorID:   u.Username,
				Action:    activity.ActionLogout,
				IPAddress: ClientIP(r),
			})
		}
		if err := sessions.Logout(w, r); err != nil {
			log.Printf("members: logout: %v", err)
		}
		if wantsJSON(r) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.Redirect(w, r, "/parcourir/", http.StatusSeeOther)
	}
}

type meResponse struct {
	Authenticated   bool  `json:"authenticated"`
	User            *User `json:"user,omitempty"`
	CanViewRare     bool  `json:"can_view_rare"`
	CanViewVeryRare bool  `json:"can_view_very_rare"`
}

func handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := UserFromContext(r.Context())
		writeJSON(w, http.StatusOK, meResponse{
			Authenticated:   u != nil,
			User:            u,
			CanViewRare:     u.CanViewRare(),
			CanViewVeryRare: u.CanViewVeryRare(),
		})
	}
}

func handleListUsers(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := store.List(r.Context())
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if users == nil {
			users = []User{}
		}
		writeJSON(w, http.StatusOK, users)
	}
}

type categoryRequest struct {
	Category Category `json:"category"`
}

func handleSetCategory(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, `{"error":"invalid id"}`, http.StatusBadRequest)
			return
		}
		var req categoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if !req.Category.Valid() {
			http.Error(w, `{"error":"invalid category"}`, http.StatusBadRequest)
			return
		}
		if err := store.SetCategory(r.Context(), id, req.Category); err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusNotFound)
			return
		}
		u, err := store.GetByID(r.Context(), id)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
