// Package suggestions collects visitors' ideas for animating a postcard and
// lets staff review them.
package suggestions

import (
	"errors"
	"time"
)

// Status is the review state of a suggestion.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// MinDescriptionLength is the shortest accepted description, in runes.
const MinDescriptionLength = 10

var (
	ErrDescriptionRequired = errors.New("description required")
	ErrDescriptionTooShort = errors.New("description too short")
)

// Suggestion is an animation idea for one postcard.
type Suggestion struct {
	ID             int64      `json:"id"`
	PostcardID     int64      `json:"postcard_id"`
	PostcardNumber string     `json:"postcard_number,omitempty"`
	UserID         *int64     `json:"user_id,omitempty"`
	Description    string     `json:"description"`
	Status         Status     `json:"status"`
	IPAddress      string     `json:"ip_address"`
	CreatedAt      time.Time  `json:"created_at"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy     *int64     `json:"reviewed_by,omitempty"`
}

// ListFilter narrows List.
type ListFilter struct {
	Status     Status
	PostcardID int64
	Limit      int
	Offset     int
}
