// Package users stores and serves tvitter accounts.
package users

import (
	"strings"
	"time"
)

// DefaultPicture is assigned to every new account. Custom pictures can only be
// set later from the profile edit page.
const DefaultPicture = "/static/img/avatar.png"

// User is an account as stored in the users table.
type User struct {
	ID             string
	UserName       string
	Names          string
	Password       string // bcrypt hash, never plaintext
	Email          string
	Gender         string
	DateRegistered time.Time
	Picture        string
	Messages       []string // ids of authored messages, oldest first
}

// UserUpdate carries a partial profile change. Nil fields are left untouched.
type UserUpdate struct {
	Names    *string
	Password *string
	Email    *string
	Gender   *string
	Picture  *string
}

// IsEmpty reports whether the update would change nothing.
func (u UserUpdate) IsEmpty() bool {
	return u.Names == nil && u.Password == nil && u.Email == nil && u.Gender == nil && u.Picture == nil
}

// Genders lists the accepted values of the gender select. Anything else is
// stored as "" (not specified).
var Genders = []string{"female", "male", "other"}

// CleanGender returns g lower-cased if it is one of Genders, otherwise "".
func CleanGender(g string) string {
	g = strings.ToLower(strings.TrimSpace(g))
	for _, known := range Genders {
		if g == known {
			return g
		}
	}
	return ""
}
