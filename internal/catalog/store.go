package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lepostier/lepostier/internal/db"
)

// Store manages persistence of postcards, themes and likes.
type Store struct {
	db *db.DB
}

// NewStore creates a new catalog store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

const postcardColumns = `id, number, title, description, keywords, rarity, views_count, zoom_count, likes_count, has_images, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostcard(row rowScanner) (Postcard, error) {
	var p Postcard
	var created, updated db.Time
	err := row.Scan(&p.ID, &p.Number, &p.Title, &p.Description, &p.Keywords, &p.Rarity,
		&p.ViewsCount, &p.ZoomCount, &p.LikesCount, &p.HasImages, &created, &updated)
	if err != nil {
		return Postcard{}, err
	}
	p.CreatedAt = created.Time
	p.UpdatedAt = updated.Time
	return p, nil
}

func (s *Store) queryPostcards(ctx context.Context, query string, args ...any) ([]Postcard, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying postcards: %w", err)
	}
	defer rows.Close()

	var out []Postcard
	for rows.Next() {
		p, err := scanPostcard(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning postcard: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create inserts a new postcard.
func (s *Store) Create(ctx context.Context, p Postcard) (*Postcard, error) {
	if strings.TrimSpace(p.Number) == "" {
		return nil, errors.New("postcard number is required")
	}
	if p.Rarity == "" {
		p.Rarity = RarityCommon
	}
	if !p.Rarity.Valid() {
		return nil, fmt.Errorf("invalid rarity %q", p.Rarity)
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO postcards (number, title, description, keywords, rarity, has_images, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		p.Number, p.Title, p.Description, p.Keywords, p.Rarity, db.Bool(p.HasImages), now, now,
	).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("inserting postcard %s: %w", p.Number, err)
	}
	return &p, nil
}

// Upsert creates the postcard or updates the editorial fields of the one
// already carrying the same number. Counters are never touched.
func (s *Store) Upsert(ctx context.Context, p Postcard) (*Postcard, bool, error) {
	existing, err := s.GetByNumber(ctx, p.Number)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		created, err := s.Create(ctx, p)
		return created, true, err
	}

	if p.Rarity == "" {
		p.Rarity = existing.Rarity
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE postcards SET title = ?, description = ?, keywords = ?, rarity = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Description, p.Keywords, p.Rarity, now, existing.ID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("updating postcard %s: %w", p.Number, err)
	}
	existing.Title, existing.Description, existing.Keywords, existing.Rarity = p.Title, p.Description, p.Keywords, p.Rarity
	existing.UpdatedAt = now
	return existing, false, nil
}

// Get returns the postcard with the given id, or nil.
func (s *Store) Get(ctx context.Context, id int64) (*Postcard, error) {
	p, err := scanPostcard(s.db.QueryRowContext(ctx,
		`SELECT `+postcardColumns+` FROM postcards WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting postcard %d: %w", id, err)
	}
	return &p, nil
}

// GetByNumber returns the postcard with the given catalogue number, or nil.
func (s *Store) GetByNumber(ctx context.Context, number string) (*Postcard, error) {
	p, err := scanPostcard(s.db.QueryRowContext(ctx,
		`SELECT `+postcardColumns+` FROM postcards WHERE number = ?`, number))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting postcard %s: %w", number, err)
	}
	return &p, nil
}

const keywordClause = `LOWER(title) LIKE ? ESCAPE '\' OR LOWER(keywords) LIKE ? ESCAPE '\'` +
	` OR LOWER(number) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns keywords into a lower-case LIKE pattern matching
// them literally anywhere in a column.
func containsPattern(keywords string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(keywords)) + "%"
}

// Search returns postcards whose title, keywords, number or description
// contain the keywords, case-insensitively, ordered by number.
func (s *Store) Search(ctx context.Context, f SearchFilter) ([]Postcard, error) {
	query := `SELECT ` + postcardColumns + ` FROM postcards p WHERE 1=1`
	var args []any

	if kw := strings.TrimSpace(f.Keywords); kw != "" {
		like := containsPattern(kw)
		query += ` AND (` + keywordClause + `)`
		args = append(args, like, like, like, like)
	}
	if f.Theme != "" {
		query += ` AND EXISTS (SELECT 1 FROM theme_postcards tp JOIN themes t ON t.id = tp.theme_id
			WHERE tp.postcard_id = p.id AND t.name = ?)`
		args = append(args, f.Theme)
	}

	query += ` ORDER BY number`
	// OFFSET only applies together with LIMIT.
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, f.Offset)
		}
	}
	return s.queryPostcards(ctx, query, args...)
}

// CountMatches returns how many postcards Search would find without a limit.
func (s *Store) CountMatches(ctx context.Context, keywords string) (int, error) {
	query := `SELECT COUNT(*) FROM postcards`
	var args []any
	if kw := strings.TrimSpace(keywords); kw != "" {
		like := containsPattern(kw)
		query += ` WHERE ` + keywordClause
		args = append(args, like, like, like, like)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting postcards: %w", err)
	}
	return n, nil
}

// List returns every postcard ordered by number.
func (s *Store) List(ctx context.Context) ([]Postcard, error) {
	return s.queryPostcards(ctx, `SELECT `+postcardColumns+` FROM postcards ORDER BY number`)
}

// TopViewed returns the n most viewed postcards.
func (s *Store) TopViewed(ctx context.Context, n int) ([]Postcard, error) {
	return s.queryPostcards(ctx,
		`SELECT `+postcardColumns+` FROM postcards ORDER BY views_count DESC, number LIMIT ?`, n)
}

// Count returns the number of postcards.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM postcards`).Scan(&n)
	return n, err
}

// Delete removes a postcard and, by cascade, its likes and theme links.
func (s *Store) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM postcards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting postcard %d: %w", id, err)
	}
	return nil
}

// DeleteAll empties the catalog and returns how many postcards went.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM postcards`)
	if err != nil {
		return 0, fmt.Errorf("clearing postcards: %w", err)
	}
	return res.RowsAffected()
}

// IncrementViews bumps the view counter.
func (s *Store) IncrementViews(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE postcards SET views_count = views_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("incrementing views of %d: %w", id, err)
	}
	return nil
}

// IncrementZooms bumps the zoom counter.
func (s *Store) IncrementZooms(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE postcards SET zoom_count = zoom_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("incrementing zooms of %d: %w", id, err)
	}
	return nil
}

// SetHasImages records whether a vignette exists on disk.
func (s *Store) SetHasImages(ctx context.Context, id int64, has bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE postcards SET has_images = ? WHERE id = ?`, db.Bool(has), id)
	if err != nil {
		return fmt.Errorf("updating image flag of %d: %w", id, err)
	}
	return nil
}

// Liker identifies who likes a postcard: a member, or an anonymous
// visitor's session key.
type Liker struct {
	UserID     int64
	SessionKey string
	IP         string
}

func (l Liker) where() (string, any) {
	if l.UserID != 0 {
		return "user_id = ?", l.UserID
	}
	return "user_id IS NULL AND session_key = ?", l.SessionKey
}

// ToggleLike adds the like if absent or removes it if present. It returns
// the new state and the updated counter.
func (s *Store) ToggleLike(ctx context.Context, postcardID int64, l Liker) (bool, int, error) {
	if l.UserID == 0 && l.SessionKey == "" {
		return false, 0, errors.New("like requires a user or a session")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	cond, arg := l.where()
	var likeID int64
	err = tx.QueryRowContext(ctx, s.db.Rebind(
		`SELECT id FROM postcard_likes WHERE postcard_id = ? AND `+cond), postcardID, arg).Scan(&likeID)

	liked := false
	switch {
	case err == sql.ErrNoRows:
		var userID any
		if l.UserID != 0 {
			userID = l.UserID
		}
		if _, err := tx.ExecContext(ctx, s.db.Rebind(
			`INSERT INTO postcard_likes (postcard_id, user_id, session_key, ip_address, created_at) VALUES (?, ?, ?, ?, ?)`),
			postcardID, userID, l.SessionKey, l.IP, time.Now().UTC()); err != nil {
			return false, 0, fmt.Errorf("inserting like: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.db.Rebind(
			`UPDATE postcards SET likes_count = likes_count + 1 WHERE id = ?`), postcardID); err != nil {
			return false, 0, fmt.Errorf("incrementing likes: %w", err)
		}
		liked = true
	case err != nil:
		return false, 0, fmt.Errorf("looking up like: %w", err)
	default:
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM postcard_likes WHERE id = ?`), likeID); err != nil {
			return false, 0, fmt.Errorf("deleting like: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.db.Rebind(
			`UPDATE postcards SET likes_count = CASE WHEN likes_count > 0 THEN likes_count - 1 ELSE 0 END WHERE id = ?`),
			postcardID); err != nil {
			return false, 0, fmt.Errorf("decrementing likes: %w", err)
		}
	}

	var count int
	if err := tx.QueryRowContext(ctx, s.db.Rebind(
		`SELECT likes_count FROM postcards WHERE id = ?`), postcardID).Scan(&count); err != nil {
		return false, 0, fmt.Errorf("reading likes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("committing like: %w", err)
	}
	return liked, count, nil
}

// HasLiked reports whether l already likes the postcard.
func (s *Store) HasLiked(ctx context.Context, postcardID int64, l Liker) (bool, error) {
	if l.UserID == 0 && l.SessionKey == "" {
		return false, nil
	}
	cond, arg := l.where()
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM postcard_likes WHERE postcard_id = ? AND `+cond, postcardID, arg).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking like: %w", err)
	}
	return n > 0, nil
}

// LikedIDs returns the ids of every postcard l likes.
func (s *Store) LikedIDs(ctx context.Context, l Liker) (map[int64]bool, error) {
	out := make(map[int64]bool)
	if l.UserID == 0 && l.SessionKey == "" {
		return out, nil
	}
	cond, arg := l.where()
	rows, err := s.db.QueryContext(ctx, `SELECT postcard_id FROM postcard_likes WHERE `+cond, arg)
	if err != nil {
		return nil, fmt.Errorf("listing likes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// TotalLikes returns the number of likes across the catalog.
func (s *Store) TotalLikes(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM postcard_likes`).Scan(&n)
	return n, err
}

// Totals aggregates the catalog counters.
type Totals struct {
	Postcards int `json:"postcards"`
	Views     int `json:"views"`
	Zooms     int `json:"zooms"`
	Likes     int `json:"likes"`
}

// Totals sums the counters over every postcard.
func (s *Store) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(views_count), 0), COALESCE(SUM(zoom_count), 0), COALESCE(SUM(likes_count), 0)
		 FROM postcards`).Scan(&t.Postcards, &t.Views, &t.Zooms, &t.Likes)
	if err != nil {
		return Totals{}, fmt.Errorf("summing counters: %w", err)
	}
	return t, nil
}

// NextNumber returns the number following the highest numeric one in the
// catalog, starting at 1.
func (s *Store) NextNumber(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT number FROM postcards`)
	if err != nil {
		return 0, fmt.Errorf("listing numbers: %w", err)
	}
	defer rows.Close()

	highest := 0
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return 0, err
		}
		p := Postcard{Number: number}
		if n, err := strconv.Atoi(strings.TrimLeft(p.PaddedNumber(), "0")); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1, rows.Err()
}

// Themes returns every theme in display order.
func (s *Store) Themes(ctx context.Context) ([]Theme, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, display_name, sort_order FROM themes ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("listing themes: %w", err)
	}
	defer rows.Close()

	var themes []Theme
	for rows.Next() {
		var t Theme
		if err := rows.Scan(&t.ID, &t.Name, &t.DisplayName, &t.Order); err != nil {
			return nil, fmt.Errorf("scanning theme: %w", err)
		}
		themes = append(themes, t)
	}
	return themes, rows.Err()
}

// UpsertTheme creates a theme or updates its display fields.
func (s *Store) UpsertTheme(ctx context.Context, t Theme) (*Theme, error) {
	if t.DisplayName == "" {
		t.DisplayName = t.Name
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO themes (name, display_name, sort_order) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET display_name = excluded.display_name, sort_order = excluded.sort_order
		 RETURNING id`,
		t.Name, t.DisplayName, t.Order,
	).Scan(&t.ID)
	if err != nil {
		return nil, fmt.Errorf("saving theme %s: %w", t.Name, err)
	}
	return &t, nil
}

// AddToTheme links a postcard to a theme. Linking twice is a no-op.
func (s *Store) AddToTheme(ctx context.Context, themeID, postcardID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO theme_postcards (theme_id, postcard_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		themeID, postcardID)
	if err != nil {
		return fmt.Errorf("linking postcard %d to theme %d: %w", postcardID, themeID, err)
	}
	return nil
}

// ListByTheme returns the postcards of a theme ordered by number.
func (s *Store) ListByTheme(ctx context.Context, name string, limit int) ([]Postcard, error) {
	return s.Search(ctx, SearchFilter{Theme: name, Limit: limit})
}
