package members

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lepostier/lepostier/internal/db"
)

// Store manages users and their login sessions.
type Store struct {
	db *db.DB
}

// NewStore creates a new members store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

const userColumns = `id, username, email, password_hash, category, is_staff, is_superuser, email_verified, date_joined, last_login`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	var joined, lastLogin db.Time
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.passwordHash, &u.Category,
		&u.IsStaff, &u.IsSuperuser, &u.EmailVerified, &joined, &lastLogin)
	if err != nil {
		return nil, err
	}
	u.DateJoined = joined.Time
	u.LastLogin = lastLogin.Ptr()
	return &u, nil
}

// NewUser describes an account to create.
type NewUser struct {
	Username    string
	Email       string
	Password    string
	Category    Category
	IsStaff     bool
	IsSuperuser bool
}

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Create registers a user.
func (s *Store) Create(ctx context.Context, nu NewUser) (*User, error) {
	nu.Username = strings.TrimSpace(nu.Username)
	if nu.Username == "" {
		return nil, errors.New("username is required")
	}
	if nu.Category == "" {
		nu.Category = CategorySubscribedUnverified
	}
	if !nu.Category.Valid() {
		return nil, fmt.Errorf("invalid category %q", nu.Category)
	}
	existing, err := s.GetByUsername(ctx, nu.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := hashPassword(nu.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var id int64
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash, category, is_staff, is_superuser, date_joined)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		nu.Username, nu.Email, hash, nu.Category, db.Bool(nu.IsStaff), db.Bool(nu.IsSuperuser), now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("inserting user %s: %w", nu.Username, err)
	}
	return s.GetByID(ctx, id)
}

// GetByID returns the user, or nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %d: %w", id, err)
	}
	return u, nil
}

// GetByUsername returns the user, or nil.
func (s *Store) GetByUsername(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", username, err)
	}
	return u, nil
}

// List returns every user, newest first.
func (s *Store) List(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY date_joined DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Count returns the number of users.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// CountByCategory returns the number of users per category.
func (s *Store) CountByCategory(ctx context.Context) (map[Category]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM users GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}
	defer rows.Close()

	out := make(map[Category]int)
	for rows.Next() {
		var c Category
		var n int
		if err := rows.Scan(&c, &n); err != nil {
			return nil, err
		}
		out[c] = n
	}
	return out, rows.Err()
}

// SetCategory changes the membership level of a user.
func (s *Store) SetCategory(ctx context.Context, id int64, c Category) error {
	if !c.Valid() {
		return fmt.Errorf("invalid category %q", c)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET category = ? WHERE id = ?`, c, id)
	if err != nil {
		return fmt.Errorf("updating category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user not found: %d", id)
	}
	return nil
}

// SetPassword replaces the password of a user.
func (s *Store) SetPassword(ctx context.Context, id int64, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

// Authenticate checks a username and password and records the login.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if u == nil || u.passwordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, now, u.ID); err != nil {
		return nil, fmt.Errorf("recording login: %w", err)
	}
	u.LastLogin = &now
	return u, nil
}

// EnsureAdmin creates the administrator account, or resets the password
// and privileges of an existing one. It reports whether it created it.
func (s *Store) EnsureAdmin(ctx context.Context, username, email, password string) (*User, bool, error) {
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}
	if u == nil {
		created, err := s.Create(ctx, NewUser{
			Username:    username,
			Email:       email,
			Password:    password,
			Category:    CategoryViewer,
			IsStaff:     true,
			IsSuperuser: true,
		})
		return created, true, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, false, err
	}
	if email == "" {
		email = u.Email
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET email = ?, password_hash = ?, category = ?, is_staff = 1, is_superuser = 1 WHERE id = ?`,
		email, hash, CategoryViewer, u.ID)
	if err != nil {
		return nil, false, fmt.Errorf("updating admin %s: %w", username, err)
	}
	updated, err := s.GetByID(ctx, u.ID)
	return updated, false, err
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CreateSession opens a login session and returns its secret token. Only
// a hash of the token is stored.
func (s *Store) CreateSession(ctx context.Context, userID int64, ttl time.Duration) (string, time.Time, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", time.Time{}, fmt.Errorf("generating session token: %w", err)
	}
	token := hex.EncodeToString(raw)
	now := time.Now().UTC()
	expires := now.Add(ttl)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token_hash, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		hashToken(token), userID, now, expires)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("creating session: %w", err)
	}
	return token, expires, nil
}

// UserBySession resolves a session token. Unknown and expired tokens
// yield nil.
func (s *Store) UserBySession(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}
	var userID int64
	var expires db.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE token_hash = ?`, hashToken(token),
	).Scan(&userID, &expires)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up session: %w", err)
	}
	if !expires.Valid || time.Now().After(expires.Time) {
		return nil, nil
	}
	return s.GetByID(ctx, userID)
}

// DeleteSession ends a session.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, hashToken(token))
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// PurgeSessions removes sessions that expired before now.
func (s *Store) PurgeSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	return res.RowsAffected()
}
