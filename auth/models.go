package auth

import "github.com/user/tvitter-go/users"

// Form field names. They double as keys of FieldErrors and as the input names
// in the login and register partials.
const (
	FieldUserNameLogin = "userNameLogin"
	FieldPasswordLogin = "passwordLogin"
	FieldNames         = "names"
	FieldUserName      = "userName"
	FieldPassword      = "password"
)

// User-facing validation messages.
const (
	MsgRequired         = "is required"
	MsgWrongCredentials = "Wrong username or password"
	MsgTooShort         = "must be at least 5 characters long"
	MsgTooLong          = "must be at most 72 bytes long"
	MsgAlreadyExists    = "already exists"
)

// MinLength is the shortest accepted username or password, in characters.
const MinLength = 5

// FieldErrors maps a form field name to its error message.
type FieldErrors map[string]string

// Has reports whether field has an error.
func (e FieldErrors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// LoginModel is a submitted login form.
type LoginModel struct {
	UserNameLogin string
	PasswordLogin string
}

// LoginResult is the outcome of validating a LoginModel.
// GeneralError is set instead of field errors when the credentials do not match,
// so the caller cannot tell an unknown username from a wrong password.
type LoginResult struct {
	Model        LoginModel
	Errors       FieldErrors
	GeneralError string
	Valid        bool
	User         *users.User // set only when Valid
}

// RegisterModel is a submitted registration form.
type RegisterModel struct {
	Names    string
	UserName string
	Password string
	Email    string
	Gender   string
}

// RegisterResult is the outcome of validating a RegisterModel.
type RegisterResult struct {
	Model  RegisterModel
	Errors FieldErrors
	Valid  bool
}
