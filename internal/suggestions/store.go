package suggestions

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lepostier/lepostier/internal/db"
)

// Store manages persistence of animation suggestions.
type Store struct {
	db *db.DB
}

// NewStore creates a new suggestions store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Validate checks a description before it is stored.
func Validate(description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return ErrDescriptionRequired
	}
	if utf8.RuneCountInString(description) < MinDescriptionLength {
		return ErrDescriptionTooShort
	}
	return nil
}

// Create records a new pending suggestion.
func (s *Store) Create(ctx context.Context, sg Suggestion) (*Suggestion, error) {
	sg.Description = strings.TrimSpace(sg.Description)
	if err := Validate(sg.Description); err != nil {
		return nil, err
	}
	sg.Status = StatusPending
	sg.CreatedAt = time.Now().UTC()

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO animation_suggestions (postcard_id, user_id, description, status, ip_address, created_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		sg.PostcardID, nullableID(sg.UserID), sg.Description, sg.Status, sg.IPAddress, sg.CreatedAt,
	).Scan(&sg.ID)
	if err != nil {
		return nil, fmt.Errorf("inserting suggestion: %w", err)
	}
	return &sg, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

const selectSuggestions = `SELECT s.id, s.postcard_id, COALESCE(p.number, ''), s.user_id, s.description, s.status,
	s.ip_address, s.created_at, s.reviewed_at, s.reviewed_by
	FROM animation_suggestions s LEFT JOIN postcards p ON p.id = s.postcard_id`

func scanSuggestion(row interface{ Scan(...any) error }) (*Suggestion, error) {
	var sg Suggestion
	var userID, reviewedBy sql.NullInt64
	var created, reviewed db.Time
	err := row.Scan(&sg.ID, &sg.PostcardID, &sg.PostcardNumber, &userID, &sg.Description, &sg.Status,
		&sg.IPAddress, &created, &reviewed, &reviewedBy)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		sg.UserID = &userID.Int64
	}
	if reviewedBy.Valid {
		sg.ReviewedBy = &reviewedBy.Int64
	}
	sg.CreatedAt = created.Time
	sg.ReviewedAt = reviewed.Ptr()
	return &sg, nil
}

// GetByID returns a suggestion, or nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Suggestion, error) {
	sg, err := scanSuggestion(s.db.QueryRowContext(ctx, selectSuggestions+` WHERE s.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting suggestion: %w", err)
	}
	return sg, nil
}

// List returns suggestions matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Suggestion, error) {
	query := selectSuggestions + ` WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += " AND s.status = ?"
		args = append(args, filter.Status)
	}
	if filter.PostcardID != 0 {
		query += " AND s.postcard_id = ?"
		args = append(args, filter.PostcardID)
	}
	query += " ORDER BY s.created_at DESC, s.id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing suggestions: %w", err)
	}
	defer rows.Close()

	var out []Suggestion
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning suggestion: %w", err)
		}
		out = append(out, *sg)
	}
	return out, rows.Err()
}

// Review approves or rejects a suggestion.
func (s *Store) Review(ctx context.Context, id int64, status Status, reviewerID int64) error {
	if !status.Valid() || status == StatusPending {
		return fmt.Errorf("invalid review status %q", status)
	}
	var reviewer any
	if reviewerID != 0 {
		reviewer = reviewerID
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE animation_suggestions SET status = ?, reviewed_at = ?, reviewed_by = ? WHERE id = ?`,
		status, time.Now().UTC(), reviewer, id,
	)
	if err != nil {
		return fmt.Errorf("reviewing suggestion: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("suggestion not found: %d", id)
	}
	return nil
}

// CountByStatus returns the number of suggestions in each status.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM animation_suggestions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting suggestions: %w", err)
	}
	defer rows.Close()

	out := make(map[Status]int)
	for rows.Next() {
		var st Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[st] = n
	}
	return out, rows.Err()
}
