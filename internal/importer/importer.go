package importer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/lepostier/lepostier/internal/catalog"
	"github.com/lepostier/lepostier/internal/progress"
)

const maxTitleLength = 500

// Store is the part of the catalog an import writes to.
type Store interface {
	GetByNumber(ctx context.Context, number string) (*catalog.Postcard, error)
	Create(ctx context.Context, p catalog.Postcard) (*catalog.Postcard, error)
	Upsert(ctx context.Context, p catalog.Postcard) (*catalog.Postcard, bool, error)
	DeleteAll(ctx context.Context) (int64, error)
	UpsertTheme(ctx context.Context, t catalog.Theme) (*catalog.Theme, error)
	AddToTheme(ctx context.Context, themeID, postcardID int64) error
}

// Options controls an import.
type Options struct {
	// Update rewrites postcards whose number already exists; otherwise
	// they are skipped.
	Update bool
	// DryRun reads and validates every row without writing.
	DryRun bool
	// Clear deletes the whole catalog first. Ignored with DryRun.
	Clear bool
	// Limit caps the rows read; zero means all.
	Limit int
	// Mapping overrides the suggested column mapping.
	Mapping  Mapping
	Progress progress.Reporter
}

// Result counts what an import did.
type Result struct {
	Format  *Format `json:"-"`
	Mapping Mapping `json:"mapping"`
	Cleared int64   `json:"cleared"`
	Created int     `json:"created"`
	Updated int     `json:"updated"`
	Skipped int     `json:"skipped"`
	Errors  int     `json:"errors"`
	Themes  int     `json:"themes"`
}

// Row is one postcard read from the file.
type Row struct {
	Postcard catalog.Postcard
	Themes   []string
}

// ParseRow turns a CSV record into a postcard. Rows without a number are
// rejected.
func ParseRow(m Mapping, record []string) (Row, error) {
	number := m.value(record, FieldNumber)
	if number == "" && len(record) > 0 {
		number = strings.TrimSpace(record[0])
	}
	if number == "" {
		return Row{}, fmt.Errorf("missing number")
	}
	if digits := onlyDigits(number); digits != "" {
		number = catalog.Postcard{Number: digits}.PaddedNumber()
	}

	title := m.value(record, FieldTitle)
	if title == "" {
		title = "Carte Postale " + number
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		title = string([]rune(title)[:maxTitleLength])
	}

	row := Row{Postcard: catalog.Postcard{
		Number:      number,
		Title:       title,
		Description: m.value(record, FieldDescription),
		Keywords:    m.value(record, FieldKeywords),
		Rarity:      catalog.ParseRarity(m.value(record, FieldRarity)),
	}}
	for _, t := range strings.FieldsFunc(m.value(record, FieldThemes), func(r rune) bool { return r == '|' || r == ',' }) {
		if t = strings.TrimSpace(t); t != "" {
			row.Themes = append(row.Themes, t)
		}
	}
	return row, nil
}

func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// ThemeName turns a display name into the theme key used in URLs:
// accents stripped, lower case, words joined by underscores.
func ThemeName(display string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, display)
	if err != nil {
		plain = display
	}
	words := strings.FieldsFunc(strings.ToLower(plain), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, "_")
}

// Import reads the CSV in data into store.
func Import(ctx context.Context, store Store, data []byte, opts Options) (*Result, error) {
	f, err := Detect(data)
	if err != nil {
		return nil, err
	}
	res := &Result{Format: f, Mapping: opts.Mapping}
	if res.Mapping == nil {
		res.Mapping = SuggestMapping(f.Columns)
	}
	if opts.Progress == nil {
		opts.Progress = progress.Nop{}
	}

	rows := f.Rows
	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}

	if opts.Clear && !opts.DryRun {
		if res.Cleared, err = store.DeleteAll(ctx); err != nil {
			return res, fmt.Errorf("clearing catalog: %w", err)
		}
	}

	themes := map[string]int64{}
	opts.Progress.Start(len(rows))
	defer opts.Progress.Finish()
	for i, record := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		line := i + 1
		if f.HasHeader {
			line++
		}
		if isBlank(record) {
			continue
		}

		row, err := ParseRow(res.Mapping, record)
		if err != nil {
			res.Errors++
			log.Printf("importer: line %d: %v", line, err)
			continue
		}
		opts.Progress.Update(i+1, row.Postcard.Number)

		saved, created, err := save(ctx, store, row.Postcard, opts)
		if err != nil {
			res.Errors++
			log.Printf("importer: line %d: %v", line, err)
			continue
		}
		switch {
		case saved == nil:
			res.Skipped++
			continue
		case created:
			res.Created++
		default:
			res.Updated++
		}
		if opts.DryRun {
			continue
		}

		for _, display := range row.Themes {
			id, err := themeID(ctx, store, themes, display)
			if err != nil {
				res.Errors++
				log.Printf("importer: line %d: %v", line, err)
				continue
			}
			if err := store.AddToTheme(ctx, id, saved.ID); err != nil {
				res.Errors++
				log.Printf("importer: line %d: %v", line, err)
			}
		}
	}
	res.Themes = len(themes)
	return res, nil
}

// save writes p and reports whether it was created. A nil postcard means
// the row was skipped.
func save(ctx context.Context, store Store, p catalog.Postcard, opts Options) (*catalog.Postcard, bool, error) {
	existing, err := store.GetByNumber(ctx, p.Number)
	if err != nil {
		return nil, false, err
	}
	if existing != nil && !opts.Update {
		return nil, false, nil
	}
	if opts.DryRun {
		return &p, existing == nil, nil
	}
	if existing == nil {
		created, err := store.Create(ctx, p)
		return created, true, err
	}
	return store.Upsert(ctx, p)
}

func themeID(ctx context.Context, store Store, cache map[string]int64, display string) (int64, error) {
	name := ThemeName(display)
	if name == "" {
		return 0, fmt.Errorf("theme %q has no usable name", display)
	}
	if id, ok := cache[name]; ok {
		return id, nil
	}
	t, err := store.UpsertTheme(ctx, catalog.Theme{Name: name, DisplayName: display, Order: len(cache)})
	if err != nil {
		return 0, err
	}
	cache[name] = t.ID
	return t.ID, nil
}

func isBlank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
