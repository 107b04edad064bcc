package members

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Cookie names.
const (
	SessionCookie = "lepostier_session"
	VisitorCookie = "lepostier_visitor"
)

// DefaultSessionTTL is how long a login lasts.
const DefaultSessionTTL = 14 * 24 * time.Hour

type ctxKey int

const (
	userKey ctxKey = iota
	visitorKey
)

// UserFromContext returns the logged-in user, or nil for anonymous visitors.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userKey).(*User)
	return u
}

// VisitorKey returns the anonymous visitor key set by the middleware.
func VisitorKey(ctx context.Context) string {
	v, _ := ctx.Value(visitorKey).(string)
	return v
}

// WithUser returns a context carrying u.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// WithVisitorKey returns a context carrying the anonymous visitor key.
func WithVisitorKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, visitorKey, key)
}

// ClientIP returns the host part of RemoteAddr. Proxy headers are applied
// upstream by middleware.RealIP and are not read here.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Sessions loads the current user and visitor key into every request.
type Sessions struct {
	Store  *Store
	TTL    time.Duration
	Secure bool
}

// Middleware resolves the session cookie and makes sure anonymous visitors
// carry a stable visitor key, which likes are attached to.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if c, err := r.Cookie(SessionCookie); err == nil {
			u, err := s.Store.UserBySession(ctx, c.Value)
			if err != nil {
				log.Printf("members: resolving session: %v", err)
			}
			if u != nil {
				ctx = WithUser(ctx, u)
			}
		}

		key := ""
		if c, err := r.Cookie(VisitorCookie); err == nil && c.Value != "" {
			key = c.Value
		} else {
			key = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     VisitorCookie,
				Value:    key,
				Path:     "/",
				MaxAge:   365 * 24 * 3600,
				HttpOnly: true,
				Secure:   s.Secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx = WithVisitorKey(ctx, key)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Login opens a session for u and sets its cookie.
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, u *User) error {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	token, expires, err := s.Store.CreateSession(r.Context(), u.ID, ttl)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Logout ends the current session and clears its cookie.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	var err error
	if c, cerr := r.Cookie(SessionCookie); cerr == nil {
		err = s.Store.DeleteSession(r.Context(), c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return err
}

// RequireStaff rejects requests from anyone but staff.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := UserFromContext(r.Context())
		if u == nil {
			http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
			return
		}
		if !u.Staff() {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
