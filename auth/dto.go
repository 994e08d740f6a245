package auth

import (
	"net/http"

	"github.com/user/tvitter-go/users"
)

// loginModelFromForm reads a parsed login form. Passwords are taken verbatim.
func loginModelFromForm(r *http.Request) LoginModel {
	return LoginModel{
		UserNameLogin: r.PostFormValue(FieldUserNameLogin),
		PasswordLogin: r.PostFormValue(FieldPasswordLogin),
	}
}

// registerModelFromForm reads a parsed registration form.
func registerModelFromForm(r *http.Request) RegisterModel {
	return RegisterModel{
		Names:    r.PostFormValue(FieldNames),
		UserName: r.PostFormValue(FieldUserName),
		Password: r.PostFormValue(FieldPassword),
		Email:    r.PostFormValue("email"),
		Gender:   users.CleanGender(r.PostFormValue("gender")),
	}
}
