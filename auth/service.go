package auth

import (
	"context"
	"unicode/utf8"

	"github.com/user/tvitter-go/apperror"
	"github.com/user/tvitter-go/users"
)

// UserStore is the part of the user repository the validator needs.
type UserStore interface {
	GetUserByUserName(ctx context.Context, userName string) (*users.User, error)
	IsUserAlreadyCreated(ctx context.Context, userName string) bool
}

// Validator checks login and registration submissions against the user store.
type Validator struct {
	store UserStore
}

// NewValidator creates a new Validator.
func NewValidator(store UserStore) *Validator {
	return &Validator{store: store}
}

// ValidateLoginModel checks a login submission.
//
// A missing username or password yields a required error for that field only and
// no lookup is made. Otherwise an unknown user and a wrong password both produce
// the same GeneralError. The returned error is non-nil only for store failures.
func (v *Validator) ValidateLoginModel(ctx context.Context, model LoginModel) (LoginResult, error) {
	model.UserNameLogin = normalize(model.UserNameLogin)
	result := LoginResult{Model: model, Errors: FieldErrors{}}

	if model.UserNameLogin == "" {
		result.Errors[FieldUserNameLogin] = MsgRequired
	}
	if model.PasswordLogin == "" {
		result.Errors[FieldPasswordLogin] = MsgRequired
	}
	if len(result.Errors) > 0 {
		return result, nil
	}

	user, err := v.store.GetUserByUserName(ctx, model.UserNameLogin)
	if err != nil {
		if !apperror.IsNotFound(err) {
			return LoginResult{}, err
		}
		burnCompare(model.PasswordLogin)
		result.GeneralError = MsgWrongCredentials
		return result, nil
	}

	if !VerifyPassword(user.Password, model.PasswordLogin) {
		result.GeneralError = MsgWrongCredentials
		return result, nil
	}

	result.Valid = true
	result.User = user
	return result, nil
}

// ValidateRegisterModel checks a registration submission.
//
// Names, username and password are required. A present username or password
// shorter than MinLength is too short, and a password beyond what bcrypt hashes
// is too long. A username that passes the length checks is looked up and
// rejected if taken. All errors are collected; the result is valid only if
// there are none. The returned error is non-nil only if ctx ended.
func (v *Validator) ValidateRegisterModel(ctx context.Context, model RegisterModel) (RegisterResult, error) {
	model.Names = normalize(model.Names)
	model.UserName = normalize(model.UserName)
	model.Email = normalize(model.Email)
	model.Gender = normalize(model.Gender)
	result := RegisterResult{Model: model, Errors: FieldErrors{}}

	if model.Names == "" {
		result.Errors[FieldNames] = MsgRequired
	}

	switch {
	case model.UserName == "":
		result.Errors[FieldUserName] = MsgRequired
	case utf8.RuneCountInString(model.UserName) < MinLength:
		result.Errors[FieldUserName] = MsgTooShort
	case v.store.IsUserAlreadyCreated(ctx, model.UserName):
		result.Errors[FieldUserName] = MsgAlreadyExists
	}
	// A cancelled lookup reads as "not taken"; do not report that as valid.
	if err := ctx.Err(); err != nil {
		return RegisterResult{}, err
	}

	switch {
	case model.Password == "":
		result.Errors[FieldPassword] = MsgRequired
	case utf8.RuneCountInString(model.Password) < MinLength:
		result.Errors[FieldPassword] = MsgTooShort
	case len(model.Password) > MaxPasswordBytes:
		result.Errors[FieldPassword] = MsgTooLong
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}
