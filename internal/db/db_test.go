package db

import (
	"path/filepath"
	"testing"
	"time"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	// Verify tables exist by counting rows in each one.
	tables := []string{
		"users", "sessions", "postcards", "themes", "theme_postcards",
		"postcard_likes", "animation_suggestions", "activity_entries",
	}

	for _, table := range tables {
		var count int
		err := d.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	// Running migrate again should not fail.
	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate() error: %v", err)
	}
}

func TestOpenFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lepostier.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%q): %v", path, err)
	}
	defer d.Close()

	if d.Dialect() != DialectSQLite {
		t.Errorf("Dialect() = %q, want %q", d.Dialect(), DialectSQLite)
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		dialect Dialect
		in      string
		want    string
	}{
		{DialectSQLite, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{DialectPostgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{DialectPostgres, "SELECT '?' FROM t WHERE a = ?", "SELECT '?' FROM t WHERE a = $1"},
		{DialectPostgres, "SELECT 1", "SELECT 1"},
	}
	for _, tt := range tests {
		d := &DB{dialect: tt.dialect}
		if got := d.Rebind(tt.in); got != tt.want {
			t.Errorf("Rebind(%s, %q) = %q, want %q", tt.dialect, tt.in, got, tt.want)
		}
	}
}

func TestTimeScan(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		src   any
		valid bool
	}{
		{"nil", nil, false},
		{"time", now, true},
		{"sqlite text", "2024-05-01 10:30:00", true},
		{"rfc3339", "2024-05-01T10:30:00Z", true},
		{"bytes", []byte("2024-05-01 10:30:00"), true},
	}
	for _, tt := range tests {
		var ts Time
		if err := ts.Scan(tt.src); err != nil {
			t.Errorf("%s: Scan error: %v", tt.name, err)
			continue
		}
		if ts.Valid != tt.valid {
			t.Errorf("%s: Valid = %v, want %v", tt.name, ts.Valid, tt.valid)
		}
		if tt.valid && !ts.Time.Equal(now) {
			t.Errorf("%s: Time = %v, want %v", tt.name, ts.Time, now)
		}
	}

	var bad Time
	if err := bad.Scan("not a time"); err == nil {
		t.Error("expected error for unparseable text")
	}
}
