// Package members handles accounts, login sessions and the membership
// categories that decide which postcards a visitor may see.
package members

import (
	"errors"
	"time"
)

// Category is the membership level of a user.
type Category string

const (
	CategorySubscribedUnverified Category = "subscribed_unverified"
	CategorySubscribedVerified   Category = "subscribed_verified"
	CategoryPostman              Category = "postman"
	CategoryViewer               Category = "viewer"
)

// Categories lists every category with its French label.
var Categories = []struct {
	Value Category
	Label string
}{
	{CategorySubscribedUnverified, "Inscrit - Non vérifié"},
	{CategorySubscribedVerified, "Inscrit - Vérifié"},
	{CategoryPostman, "Facteur"},
	{CategoryViewer, "Visiteur privilégié"},
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if known.Value == c {
			return true
		}
	}
	return false
}

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
)

// User is a registered member. Methods are safe on a nil *User, which
// stands for an anonymous visitor.
type User struct {
	ID            int64      `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	Category      Category   `json:"category"`
	IsStaff       bool       `json:"is_staff"`
	IsSuperuser   bool       `json:"is_superuser"`
	EmailVerified bool       `json:"email_verified"`
	DateJoined    time.Time  `json:"date_joined"`
	LastLogin     *time.Time `json:"last_login,omitempty"`

	passwordHash string
}

// CanViewRare reports access to rare postcards.
func (u *User) CanViewRare() bool {
	if u == nil {
		return false
	}
	switch u.Category {
	case CategorySubscribedVerified, CategoryPostman, CategoryViewer:
		return true
	}
	return u.IsStaff
}

// CanViewVeryRare reports access to very rare postcards.
func (u *User) CanViewVeryRare() bool {
	if u == nil {
		return false
	}
	switch u.Category {
	case CategoryPostman, CategoryViewer:
		return true
	}
	return u.IsStaff
}

// Staff reports access to the admin API.
func (u *User) Staff() bool {
	return u != nil && (u.IsStaff || u.IsSuperuser)
}
