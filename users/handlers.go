package users

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/user/tvitter-go/apperror"
	"github.com/user/tvitter-go/avatars"
	"github.com/user/tvitter-go/logging"
	"github.com/user/tvitter-go/messages"
	"github.com/user/tvitter-go/session"
	"github.com/user/tvitter-go/web"
)

// SearchLimit caps each result list of the search page.
const SearchLimit = 20

// Store is the part of UserRepository the handlers use.
type Store interface {
	GetUserByUserName(ctx context.Context, userName string) (*User, error)
	UpdateUser(ctx context.Context, userName string, update UserUpdate) (*User, error)
	DeleteUser(ctx context.Context, userName string) error
	SearchUsers(ctx context.Context, q string, limit int) ([]User, error)
}

// MessageReader is the part of the message repository the profile and
// search pages use.
type MessageReader interface {
	GetLatestNByUsers(ctx context.Context, userNames []string, n int) ([]messages.Message, error)
	Search(ctx context.Context, q string, n int) ([]messages.Message, error)
}

// PictureStore saves uploaded profile pictures.
type PictureStore interface {
	Save(ctx context.Context, userID string, data []byte) (string, error)
}

// SessionEnder logs a browser out.
type SessionEnder interface {
	End(w http.ResponseWriter)
}

// Handlers serves profiles, profile editing, account deletion and search.
type Handlers struct {
	store    Store
	messages MessageReader
	pictures PictureStore // nil when uploads are disabled
	sessions SessionEnder
	pages    *web.Pages
	log      logging.Logger
}

func NewHandlers(store Store, msgs MessageReader, pictures PictureStore, sessions SessionEnder, pages *web.Pages, log logging.Logger) *Handlers {
	return &Handlers{
		store:    store,
		messages: msgs,
		pictures: pictures,
		sessions: sessions,
		pages:    pages,
		log:      log,
	}
}

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/users/{userName}", h.HandleProfile())
	r.Get("/search", h.HandleSearch())
	r.Group(func(r chi.Router) {
		r.Use(session.RequireSession)
		r.Get("/edit", h.HandleEditForm())
		r.Post("/edit", h.HandleEdit())
		r.Post("/account/delete", h.HandleDeleteAccount())
	})
}

// HandleProfile shows a user's profile and latest tvits.
func (h *Handlers) HandleProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.store.GetUserByUserName(r.Context(), chi.URLParam(r, "userName"))
		if err != nil {
			h.pages.WriteError(w, r, err)
			return
		}

		latest, err := h.messages.GetLatestNByUsers(r.Context(), []string{user.UserName}, messages.TimelineSize)
		if err != nil {
			h.pages.WriteError(w, r, err)
			return
		}

		current, _ := session.UserNameFromContext(r.Context())
		h.pages.Render(w, r, http.StatusOK, "users", web.Data{
			"profile":      user,
			"messages":     latest,
			"isOwn":        current == user.UserName,
			"messageCount": len(user.Messages),
		})
	}
}

// HandleSearch lists people and tvits matching q.
func (h *Handlers) HandleSearch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		data := web.Data{"q": q}

		people, err := h.store.SearchUsers(r.Context(), q, SearchLimit)
		if err != nil {
			h.pages.WriteError(w, r, err)
			return
		}
		found, err := h.messages.Search(r.Context(), q, SearchLimit)
		if err != nil {
			h.pages.WriteError(w, r, err)
			return
		}

		data["users"] = people
		data["messages"] = found
		h.pages.Render(w, r, http.StatusOK, "search", data)
	}
}

func (h *Handlers) currentUser(r *http.Request) (*User, error) {
	userName, _ := session.UserNameFromContext(r.Context())
	return h.store.GetUserByUserName(r.Context(), userName)
}

func (h *Handlers) renderEdit(w http.ResponseWriter, r *http.Request, status int, user *User, errs map[string]string) {
	h.pages.Render(w, r, status, "edit", web.Data{
		"profile":        user,
		"gender":         user.Gender,
		"editErrors":     errs,
		"avatarsEnabled": h.pictures != nil,
	})
}

// HandleEditForm shows the profile edit form.
func (h *Handlers) HandleEditForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.currentUser(r)
		if err != nil {
			h.pages.WriteError(w, r, err)
			return
		}
		h.renderEdit(w, r, http.StatusOK, user, nil)
	}
}

// HandleEdit saves the profile form and an optional new picture.
func (h *Handlers) HandleEdit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.currentUser(r)
		if err != nil {
			h.pages.WriteError(w, r, err)
			return
		}
		if err := web.ParseMultipartForm(w, r, avatars.MaxSize+web.MaxFormSize); err != nil {
			h.pages.WriteError(w, r, err)
			return
		}

		model := editModelFromForm(r)
		if errs := model.Validate(); len(errs) > 0 {
			h.renderEdit(w, r, http.StatusBadRequest, model.apply(*user), errs)
			return
		}
		update := model.Update()

		// The picture is only uploaded once the text fields are accepted.
		picture, err := h.savePicture(r, user.ID)
		if appErr, ok := apperror.FromError(err); ok && appErr.Type == apperror.ValidationError {
			h.renderEdit(w, r, http.StatusBadRequest, model.apply(*user), map[string]string{"picture": appErr.Message})
			return
		}
		if err != nil {
			h.pages.WriteError(w, r, err)
			return
		}
		if picture != "" {
			update.Picture = &picture
		}

		updated, err := h.store.UpdateUser(r.Context(), user.UserName, update)
		if err != nil {
			h.pages.WriteError(w, r, err)
			return
		}
		h.log.Info(r.Context(), "profile updated", "user_name", updated.UserName)
		web.Redirect(w, r, "/users/"+url.PathEscape(updated.UserName))
	}
}

// savePicture stores the uploaded picture, if any, and returns its URL.
func (h *Handlers) savePicture(r *http.Request, userID string) (string, error) {
	if h.pictures == nil || r.MultipartForm == nil {
		return "", nil
	}
	file, _, err := r.FormFile("picture")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", apperror.NewBadRequestError("malformed upload", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, avatars.MaxSize+1))
	if err != nil {
		return "", apperror.NewBadRequestError("malformed upload", err)
	}
	if len(data) == 0 {
		return "", nil
	}
	return h.pictures.Save(r.Context(), userID, data)
}

// HandleDeleteAccount deletes the logged-in user with all their tvits and logs them out.
func (h *Handlers) HandleDeleteAccount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userName, _ := session.UserNameFromContext(r.Context())
		if err := h.store.DeleteUser(r.Context(), userName); err != nil {
			h.pages.WriteError(w, r, err)
			return
		}
		h.sessions.End(w)
		web.Redirect(w, r, "/")
	}
}
