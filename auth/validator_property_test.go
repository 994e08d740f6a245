//go:build property
// +build property

package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/tvitter-go/users"
)

// boundedString maps generated alpha strings into a fixed length window.
func boundedString(prefix string, maxLen int) gopter.Gen {
	return gen.AlphaString().Map(func(s string) string {
		s = prefix + s
		if len(s) > maxLen {
			s = s[:maxLen]
		}
		return s
	})
}

func TestLoginValidationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	// A cheap hash keeps the properties fast; the cost does not change the logic.
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	store := newFakeStore(t, users.User{ID: "id-1", UserName: "didi93", Password: string(hash)})
	validator := NewValidator(store)
	ctx := context.Background()

	properties.Property("missing username only flags the username", prop.ForAll(
		func(password string) bool {
			result, err := validator.ValidateLoginModel(ctx, LoginModel{PasswordLogin: password})
			return err == nil &&
				!result.Valid &&
				result.Errors[FieldUserNameLogin] == MsgRequired &&
				!result.Errors.Has(FieldPasswordLogin) &&
				result.GeneralError == ""
		},
		boundedString("p", MaxPasswordBytes),
	))

	properties.Property("missing password only flags the password", prop.ForAll(
		func(userName string) bool {
			result, err := validator.ValidateLoginModel(ctx, LoginModel{UserNameLogin: userName})
			return err == nil &&
				!result.Valid &&
				result.Errors[FieldPasswordLogin] == MsgRequired &&
				!result.Errors.Has(FieldUserNameLogin) &&
				result.GeneralError == ""
		},
		gen.Identifier(),
	))

	properties.Property("unknown user and wrong password look the same", prop.ForAll(
		func(userName, password string) bool {
			if password == "correct-horse" {
				return true
			}
			unknown, err1 := validator.ValidateLoginModel(ctx, LoginModel{UserNameLogin: "x" + userName, PasswordLogin: password})
			wrong, err2 := validator.ValidateLoginModel(ctx, LoginModel{UserNameLogin: "didi93", PasswordLogin: password})
			return err1 == nil && err2 == nil &&
				!unknown.Valid && !wrong.Valid &&
				len(unknown.Errors) == 0 && len(wrong.Errors) == 0 &&
				unknown.GeneralError == MsgWrongCredentials &&
				wrong.GeneralError == MsgWrongCredentials
		},
		gen.Identifier(),
		boundedString("p", MaxPasswordBytes),
	))

	properties.TestingRun(t)
}

func TestRegisterValidationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	store := newFakeStore(t, users.User{UserName: "didi93"})
	validator := NewValidator(store)
	ctx := context.Background()

	properties.Property("short username and password are too short, not required", prop.ForAll(
		func(userName, password string) bool {
			result, err := validator.ValidateRegisterModel(ctx, RegisterModel{
				Names: "Tester", UserName: userName, Password: password,
			})
			return err == nil &&
				!result.Valid &&
				result.Errors[FieldUserName] == MsgTooShort &&
				result.Errors[FieldPassword] == MsgTooShort
		},
		boundedString("u", MinLength-1),
		boundedString("p", MinLength-1),
	))

	properties.Property("taken username is rejected whatever the other fields", prop.ForAll(
		func(names, password string) bool {
			result, err := validator.ValidateRegisterModel(ctx, RegisterModel{
				Names: names, UserName: "didi93", Password: password,
			})
			return err == nil && !result.Valid && result.Errors[FieldUserName] == MsgAlreadyExists
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("well-formed fresh registrations are valid", prop.ForAll(
		func(names, userName, password string) bool {
			result, err := validator.ValidateRegisterModel(ctx, RegisterModel{
				Names: names, UserName: userName, Password: password,
			})
			return err == nil && result.Valid && len(result.Errors) == 0
		},
		boundedString("N", 60),
		boundedString("user1", 30),
		boundedString("pass1", MaxPasswordBytes),
	))

	properties.TestingRun(t)
}

func TestGenerateHashProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 5 // bcrypt at default cost is slow
	properties := gopter.NewProperties(parameters)

	properties.Property("hash is salted, fixed length and verifiable", prop.ForAll(
		func(password string) bool {
			h1, err1 := GenerateHash(password)
			h2, err2 := GenerateHash(password)
			return err1 == nil && err2 == nil &&
				len(h1) == 60 && len(h2) == 60 &&
				h1 != h2 &&
				!strings.Contains(h1, password) &&
				VerifyPassword(h1, password) && VerifyPassword(h2, password)
		},
		boundedString("secret12", MaxPasswordBytes),
	))

	properties.TestingRun(t)
}
