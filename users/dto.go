package users

import (
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// MaxNamesLength is the longest accepted display name, in characters.
const MaxNamesLength = 80

// EditModel is a submitted profile edit form.
type EditModel struct {
	Names  string
	Email  string
	Gender string
}

func editModelFromForm(r *http.Request) EditModel {
	return EditModel{
		Names:  strings.TrimSpace(r.PostFormValue("names")),
		Email:  strings.TrimSpace(r.PostFormValue("email")),
		Gender: CleanGender(r.PostFormValue("gender")),
	}
}

// Validate returns field errors keyed by form field name. Email may be left
// empty to clear it.
func (m EditModel) Validate() map[string]string {
	errs := map[string]string{}
	switch {
	case m.Names == "":
		errs["names"] = "is required"
	case utf8.RuneCountInString(m.Names) > MaxNamesLength:
		errs["names"] = "is too long"
	}
	if m.Email != "" {
		if addr, err := mail.ParseAddress(m.Email); err != nil || addr.Address != m.Email {
			errs["email"] = "is not a valid address"
		}
	}
	return errs
}

// Update turns the form into a UserUpdate. Every field of the form is written.
func (m EditModel) Update() UserUpdate {
	return UserUpdate{Names: &m.Names, Email: &m.Email, Gender: &m.Gender}
}

// apply copies the submitted values onto user for re-rendering the form.
func (m EditModel) apply(user User) *User {
	user.Names = m.Names
	user.Email = m.Email
	user.Gender = m.Gender
	return &user
}
