// Package activity keeps the visitor activity log: searches, postcard
// views and zooms, likes, logins and suggestions.
package activity

import "time"

// Action describes what was done.
type Action string

const (
	ActionSearch  Action = "search"
	ActionView    Action = "view"
	ActionZoom    Action = "zoom"
	ActionLike    Action = "like"
	ActionLogin   Action = "login"
	ActionLogout  Action = "logout"
	ActionSuggest Action = "suggest"
)

// Entry is a single activity record. ActorID is the username of a member,
// or empty for anonymous visitors.
type Entry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	ActorID     string    `json:"actor_id"`
	Action      Action    `json:"action"`
	Subject     string    `json:"subject"`
	Detail      string    `json:"detail"`
	ResultCount int       `json:"result_count"`
	IPAddress   string    `json:"ip_address"`
}

// SearchCount is how often a keyword was searched.
type SearchCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// DayCount is the number of entries logged on one calendar day (UTC).
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}
