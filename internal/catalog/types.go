// Package catalog stores the postcard collection, resolves its images on
// disk and serves the JSON API the browse page popups call.
package catalog

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Rarity gates who may see a postcard in full.
type Rarity string

const (
	RarityCommon   Rarity = "common"
	RarityRare     Rarity = "rare"
	RarityVeryRare Rarity = "very_rare"
)

// Valid reports whether r is a known rarity.
func (r Rarity) Valid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityVeryRare:
		return true
	}
	return false
}

// ParseRarity maps the labels found in collection spreadsheets to a Rarity.
// Unknown labels fall back to common.
func ParseRarity(s string) Rarity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rare", "r", "2":
		return RarityRare
	case "very_rare", "very rare", "tres_rare", "très_rare", "tres rare", "très rare",
		"vr", "tr", "3", "exceptionnelle":
		return RarityVeryRare
	}
	return RarityCommon
}

// Postcard is one card of the collection.
type Postcard struct {
	ID          int64     `json:"id"`
	Number      string    `json:"number"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Keywords    string    `json:"keywords"`
	Rarity      Rarity    `json:"rarity"`
	ViewsCount  int       `json:"views_count"`
	ZoomCount   int       `json:"zoom_count"`
	LikesCount  int       `json:"likes_count"`
	HasImages   bool      `json:"has_images"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PaddedNumber is the file stem of the postcard's images: the digits of
// Number left-padded to six, or the padded ID when Number has no digits.
func (p Postcard) PaddedNumber() string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, p.Number)
	if digits == "" {
		digits = strconv.FormatInt(p.ID, 10)
	}
	return padLeft(digits, 6)
}

// KeywordList splits the comma separated keywords.
func (p Postcard) KeywordList() []string {
	var out []string
	for _, k := range strings.Split(p.Keywords, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// FormatNumber renders n the way postcard numbers are written on disk.
func FormatNumber(n int) string {
	return padLeft(strconv.Itoa(n), 6)
}

// Theme groups postcards for the browse page sidebar.
type Theme struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Order       int    `json:"order"`
}

// SearchFilter narrows Store.Search.
type SearchFilter struct {
	Keywords string
	Theme    string
	Limit    int
	Offset   int
}

// Viewer is what the catalog needs to know about the person asking.
type Viewer interface {
	CanViewRare() bool
	CanViewVeryRare() bool
}

// CanView reports whether v may see p in full. A nil viewer is anonymous.
func CanView(v Viewer, p Postcard) bool {
	if p.Rarity != RarityVeryRare {
		return true
	}
	return v != nil && v.CanViewVeryRare()
}
