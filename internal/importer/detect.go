// Package importer loads postcards from the collection spreadsheets.
// Exports come from several tools, so the file encoding, delimiter, header
// row and column names are all detected.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Field is a postcard attribute a column can map to.
type Field string

const (
	FieldNumber      Field = "number"
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldKeywords    Field = "keywords"
	FieldRarity      Field = "rarity"
	FieldThemes      Field = "themes"
)

// Mapping gives the column index of each mapped field.
type Mapping map[Field]int

// Format is what Detect learned about a file.
type Format struct {
	Encoding  string
	Delimiter rune
	HasHeader bool
	Columns   []string
	Rows      [][]string
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrEmpty is returned for files without any row.
var ErrEmpty = errors.New("csv file is empty")

// Decode returns data as UTF-8 and the name of its source encoding.
// Anything that is not valid UTF-8 is read as Windows-1252, which is a
// superset of Latin-1 for printable characters.
func Decode(data []byte) (string, string, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		return string(data[len(utf8BOM):]), "utf-8-sig", nil
	}
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", fmt.Errorf("decoding windows-1252: %w", err)
	}
	return string(out), "windows-1252", nil
}

// DetectDelimiter picks ';', tab or ',' from the first line.
func DetectDelimiter(text string) rune {
	first := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		first = text[:i]
	}
	semi := strings.Count(first, ";")
	comma := strings.Count(first, ",")
	tab := strings.Count(first, "\t")
	switch {
	case semi > comma && semi > tab:
		return ';'
	case tab > comma:
		return '\t'
	}
	return ','
}

var headerWords = []string{
	"number", "numero", "numéro", "title", "titre", "name", "nom",
	"description", "keyword", "mots", "rarity", "rarete", "rareté", "theme", "thème",
}

// IsHeader reports whether row looks like column names.
func IsHeader(row []string) bool {
	for _, cell := range row {
		c := strings.ToLower(strings.TrimSpace(cell))
		for _, w := range headerWords {
			if strings.Contains(c, w) {
				return true
			}
		}
	}
	return false
}

// Detect decodes data and parses it as CSV.
func Detect(data []byte) (*Format, error) {
	text, enc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmpty
	}

	f := &Format{Encoding: enc, Delimiter: DetectDelimiter(text)}
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = f.Delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}

	if IsHeader(rows[0]) {
		f.HasHeader = true
		f.Columns = rows[0]
		f.Rows = rows[1:]
	} else {
		for i := range rows[0] {
			f.Columns = append(f.Columns, "col_"+strconv.Itoa(i))
		}
		f.Rows = rows
	}
	return f, nil
}

var fieldPatterns = []struct {
	field    Field
	patterns []string
}{
	{FieldNumber, []string{"number", "numero", "numéro", "num", "id", "ref", "code"}},
	{FieldTitle, []string{"title", "titre", "name", "nom", "libelle", "libellé"}},
	{FieldDescription, []string{"description", "desc", "detail", "détail"}},
	{FieldKeywords, []string{"keyword", "mots", "tag"}},
	{FieldRarity, []string{"rarity", "rarete", "rareté", "rare"}},
	{FieldThemes, []string{"theme", "thème", "categor"}},
}

// SuggestMapping matches column names against known patterns. Files
// without recognisable names map number, title, description and keywords
// by position.
func SuggestMapping(columns []string) Mapping {
	lower := make([]string, len(columns))
	for i, c := range columns {
		lower[i] = strings.ToLower(strings.TrimSpace(c))
	}
	m := Mapping{}
	used := map[int]bool{}
	for _, fp := range fieldPatterns {
	patterns:
		for _, p := range fp.patterns {
			for i, c := range lower {
				if !used[i] && strings.Contains(c, p) {
					m[fp.field] = i
					used[i] = true
					break patterns
				}
			}
		}
	}
	if len(m) == 0 {
		for i, f := range []Field{FieldNumber, FieldTitle, FieldDescription, FieldKeywords} {
			if i < len(columns) {
				m[f] = i
			}
		}
	}
	return m
}

// value returns the trimmed cell of field in row.
func (m Mapping) value(row []string, f Field) string {
	i, ok := m[f]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
