package auth

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/tvitter-go/apperror"
	"github.com/user/tvitter-go/logging"
	"github.com/user/tvitter-go/users"
	"github.com/user/tvitter-go/web"
)

// UserCreator stores a newly registered user.
type UserCreator interface {
	CreateUser(ctx context.Context, user users.User) (*users.User, error)
}

// Sessions starts and ends the login session of a browser.
type Sessions interface {
	Start(w http.ResponseWriter, userID, userName string) error
	End(w http.ResponseWriter)
}

// Handlers serves the login, registration and logout forms.
type Handlers struct {
	validator *Validator
	creator   UserCreator
	sessions  Sessions
	pages     *web.Pages
	log       logging.Logger
}

func NewHandlers(validator *Validator, creator UserCreator, sessions Sessions, pages *web.Pages, log logging.Logger) *Handlers {
	return &Handlers{
		validator: validator,
		creator:   creator,
		sessions:  sessions,
		pages:     pages,
		log:       log,
	}
}

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.HandleLogin())
	r.Post("/register", h.HandleRegister())
	r.Post("/logout", h.HandleLogout())
}

// HandleLogin checks the credentials and starts a session. Invalid
// submissions re-render the landing page with the entered username.
func (h *Handlers) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := web.ParseForm(w, r); err != nil {
			h.pages.WriteError(w, r, err)
			return
		}

		result, err := h.validator.ValidateLoginModel(r.Context(), loginModelFromForm(r))
		if err != nil {
			h.pages.WriteError(w, r, err)
			return
		}
		if !result.Valid {
			h.pages.Render(w, r, http.StatusBadRequest, "main", web.Data{
				"loginModel":   result.Model,
				"loginErrors":  result.Errors,
				"generalError": result.GeneralError,
			})
			return
		}

		if err := h.sessions.Start(w, result.User.ID, result.User.UserName); err != nil {
			h.pages.WriteError(w, r, apperror.NewInternalError("cannot start session", err))
			return
		}
		h.log.Info(r.Context(), "user logged in", "user_name", result.User.UserName)
		web.Redirect(w, r, "/")
	}
}

// HandleRegister creates the account and logs the new user in.
func (h *Handlers) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := web.ParseForm(w, r); err != nil {
			h.pages.WriteError(w, r, err)
			return
		}

		result, err := h.validator.ValidateRegisterModel(r.Context(), registerModelFromForm(r))
		if err != nil {
			h.pages.WriteError(w, r, err)
			return
		}
		if !result.Valid {
			h.renderRegister(w, r, result)
			return
		}

		hash, err := GenerateHash(result.Model.Password)
		if err != nil {
			h.pages.WriteError(w, r, apperror.NewInternalError("cannot hash password", err))
			return
		}

		model := result.Model
		user, err := h.creator.CreateUser(r.Context(), users.User{
			UserName: model.UserName,
			Names:    model.Names,
			Password: hash,
			Email:    model.Email,
			Gender:   model.Gender,
		})
		if err != nil {
			// Someone took the name between validation and insert.
			if apperror.IsConflictError(err) {
				result.Errors[FieldUserName] = MsgAlreadyExists
				result.Valid = false
				h.renderRegister(w, r, result)
				return
			}
			h.pages.WriteError(w, r, err)
			return
		}

		if err := h.sessions.Start(w, user.ID, user.UserName); err != nil {
			h.pages.WriteError(w, r, apperror.NewInternalError("cannot start session", err))
			return
		}
		h.log.Info(r.Context(), "user registered", "user_name", user.UserName, "user_id", user.ID)
		web.Redirect(w, r, "/")
	}
}

func (h *Handlers) renderRegister(w http.ResponseWriter, r *http.Request, result RegisterResult) {
	model := result.Model
	model.Password = ""
	h.pages.Render(w, r, http.StatusBadRequest, "main", web.Data{
		"registerModel":  model,
		"registerErrors": result.Errors,
		"gender":         model.Gender,
	})
}

// HandleLogout ends the session.
func (h *Handlers) HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.sessions.End(w)
		web.Redirect(w, r, "/")
	}
}
