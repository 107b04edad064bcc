package activity

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lepostier/lepostier/internal/db"
)

// Store provides persistence for activity entries.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Log inserts a new entry. Empty ID and zero Timestamp are filled in.
func (s *Store) Log(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_entries (id, timestamp, actor_id, action, subject, detail, result_count, ip_address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Timestamp.UTC().Format(time.DateTime),
		entry.ActorID,
		string(entry.Action),
		entry.Subject,
		entry.Detail,
		entry.ResultCount,
		entry.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("inserting activity entry: %w", err)
	}
	return nil
}

// Record logs entry and reports failures to the server log only. Activity
// logging never fails the request that triggered it. A nil Store drops
// the entry.
func (s *Store) Record(ctx context.Context, entry Entry) {
	if s == nil {
		return
	}
	if err := s.Log(ctx, entry); err != nil {
		log.Printf("activity: recording %s: %v", entry.Action, err)
	}
}

// GetByID retrieves a single entry, or nil.
func (s *Store) GetByID(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, timestamp, actor_id, action, subject, detail, result_count, ip_address
		 FROM activity_entries WHERE id = ?`, id)
	e, err := scanInto(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// QueryFilter controls which entries Query returns.
type QueryFilter struct {
	ActorID string
	Action  Action
	Subject string
	Since   *time.Time
	Until   *time.Time
	Limit   int
	Offset  int
}

// Query returns entries matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.ActorID != "" {
		clauses = append(clauses, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.Action != "" {
		clauses = append(clauses, "action = ?")
		args = append(args, string(filter.Action))
	}
	if filter.Subject != "" {
		clauses = append(clauses, "subject = ?")
		args = append(args, filter.Subject)
	}
	if filter.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(time.DateTime))
	}
	if filter.Until != nil {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, filter.Until.UTC().Format(time.DateTime))
	}

	query := "SELECT id, timestamp, actor_id, action, subject, detail, result_count, ip_address FROM activity_entries"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC, id"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanInto(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning activity entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// CountSince returns how many entries of action were logged since t.
func (s *Store) CountSince(ctx context.Context, action Action, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activity_entries WHERE action = ? AND timestamp >= ?`,
		string(action), since.UTC().Format(time.DateTime),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting activity: %w", err)
	}
	return n, nil
}

// TopSearches returns the most searched keywords.
func (s *Store) TopSearches(ctx context.Context, limit int) ([]SearchCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject, COUNT(*) AS n FROM activity_entries WHERE action = ?
		 GROUP BY subject ORDER BY n DESC, subject LIMIT ?`,
		string(ActionSearch), limit)
	if err != nil {
		return nil, fmt.Errorf("ranking searches: %w", err)
	}
	defer rows.Close()

	var out []SearchCount
	for rows.Next() {
		var c SearchCount
		if err := rows.Scan(&c.Keyword, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DailyCounts returns, for each of the last days days (today included),
// how many entries of action were logged. Days without activity are
// reported with a zero count.
func (s *Store) DailyCounts(ctx context.Context, action Action, days int, now time.Time) ([]DayCount, error) {
	if days <= 0 {
		return nil, nil
	}
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	rows, err := s.db.QueryContext(ctx,
		`SELECT SUBSTR(CAST(timestamp AS TEXT), 1, 10) AS day, COUNT(*) FROM activity_entries
		 WHERE action = ? AND timestamp >= ? GROUP BY day`,
		string(action), start.Format(time.DateTime))
	if err != nil {
		return nil, fmt.Errorf("counting daily activity: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		counts[day] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]DayCount, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format(time.DateOnly)
		out = append(out, DayCount{Day: day, Count: counts[day]})
	}
	return out, nil
}

// DeleteBefore removes all entries older than before and returns how many
// went.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM activity_entries WHERE timestamp < ?",
		before.UTC().Format(time.DateTime),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old activity: %w", err)
	}
	return res.RowsAffected()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Entry, error) {
	var (
		e      Entry
		action string
		ts     db.Time
	)
	err := sc.Scan(&e.ID, &ts, &e.ActorID, &action, &e.Subject, &e.Detail, &e.ResultCount, &e.IPAddress)
	if err != nil {
		return nil, err
	}
	e.Action = Action(action)
	e.Timestamp = ts.Time
	return &e, nil
}
