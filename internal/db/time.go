package db

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// timeLayouts are the textual timestamp formats SQLite may hand back.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateTime,
	"2006-01-02T15:04:05Z",
	time.DateOnly,
}

// Time scans a possibly-NULL timestamp column regardless of whether the
// driver returns time.Time (pgx) or text (SQLite).
type Time struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (t *Time) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v, true
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("db.Time: unsupported type %T", src)
	}
}

func (t *Time) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time, t.Valid = parsed, true
			return nil
		}
	}
	return fmt.Errorf("db.Time: cannot parse %q", s)
}

// Value implements driver.Valuer.
func (t Time) Value() (driver.Value, error) {
	if !t.Valid {
		return nil, nil
	}
	return t.Time.UTC(), nil
}

// Ptr returns a pointer to the timestamp, or nil when NULL.
func (t Time) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// Bool converts b to the 0/1 integer stored in flag columns. Postgres will
// not coerce a boolean parameter into an INTEGER column.
func Bool(b bool) int {
	if b {
		return 1
	}
	return 0
}
