package messages

import (
	"context"
	"net/http"
	"net/url"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/user/tvitter-go/apperror"
	"github.com/user/tvitter-go/feed"
	"github.com/user/tvitter-go/logging"
	"github.com/user/tvitter-go/session"
	"github.com/user/tvitter-go/web"
)

const (
	// TimelineSize is how many tvits the home timeline and profile pages show.
	TimelineSize = 20
	// MaxLocationLength is the longest accepted location, in characters.
	MaxLocationLength = 50
)

// Store is the part of MessageRepository the handlers use.
type Store interface {
	Create(ctx context.Context, message Message, author Author) (*Message, error)
	GetLatestNByUsers(ctx context.Context, userNames []string, n int) ([]Message, error)
	GetByID(ctx context.Context, id string) (*Message, error)
	Delete(ctx context.Context, messageID, authorUserName string) error
}

// AuthorLookup resolves the current picture of a user for the author snapshot.
type AuthorLookup func(ctx context.Context, userName string) (Author, error)

// FragmentRenderer renders a view to a string, for live updates.
type FragmentRenderer interface {
	RenderString(name string, data any) (string, error)
}

// Publisher receives new tvits for live delivery.
type Publisher interface {
	Publish(event feed.Event)
}

// Handlers serves the landing page, the home timeline and tvit posting.
type Handlers struct {
	store     Store
	author    AuthorLookup
	pages     *web.Pages
	fragments FragmentRenderer
	publisher Publisher
	log       logging.Logger
}

func NewHandlers(store Store, author AuthorLookup, pages *web.Pages, fragments FragmentRenderer, publisher Publisher, log logging.Logger) *Handlers {
	return &Handlers{
		store:     store,
		author:    author,
		pages:     pages,
		fragments: fragments,
		publisher: publisher,
		log:       log,
	}
}

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleHome())
	r.Group(func(r chi.Router) {
		r.Use(session.RequireSession)
		r.Post("/tvits", h.HandleCreate())
		r.Get("/tvits/{id}/delete", h.HandleConfirmDelete())
		r.Post("/tvits/{id}/delete", h.HandleDelete())
	})
}

// HandleHome shows the login and register forms to visitors and the
// timeline to logged-in users.
func (h *Handlers) HandleHome() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userName, ok := session.UserNameFromContext(r.Context())
		if !ok {
			h.pages.Render(w, r, http.StatusOK, "main", web.Data{})
			return
		}
		h.renderHome(w, r, userName, http.StatusOK, web.Data{})
	}
}

func (h *Handlers) renderHome(w http.ResponseWriter, r *http.Request, userName string, status int, data web.Data) {
	timeline, err := h.store.GetLatestNByUsers(r.Context(), []string{userName}, TimelineSize)
	if err != nil {
		h.pages.WriteError(w, r, err)
		return
	}
	data["messages"] = timeline
	h.pages.Render(w, r, status, "home", data)
}

// HandleCreate posts a tvit for the logged-in user.
func (h *Handlers) HandleCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userName, _ := session.UserNameFromContext(r.Context())
		if err := web.ParseForm(w, r); err != nil {
			h.pages.WriteError(w, r, err)
			return
		}

		content := web.Field(r, "content")
		location := web.Field(r, "location")
		problem := ValidateContent(content)
		if problem == "" && utf8.RuneCountInString(location) > MaxLocationLength {
			problem = "location is too long"
		}
		if problem != "" {
			h.renderHome(w, r, userName, http.StatusBadRequest, web.Data{
				"tvitContent":  content,
				"tvitLocation": location,
				"tvitError":    problem,
			})
			return
		}

		author, err := h.author(r.Context(), userName)
		if err != nil {
			h.pages.WriteError(w, r, err)
			return
		}

		message, err := h.store.Create(r.Context(), Message{Content: content, Location: location}, author)
		if err != nil {
			h.pages.WriteError(w, r, err)
			return
		}

		h.publish(r.Context(), message)
		web.Redirect(w, r, "/")
	}
}

// publish pushes the rendered tvit to live subscribers. Failures only cost
// the live update, so they are logged and swallowed.
func (h *Handlers) publish(ctx context.Context, message *Message) {
	if h.publisher == nil || h.fragments == nil {
		return
	}
	html, err := h.fragments.RenderString("messages", web.Data{"messages": []Message{*message}})
	if err != nil {
		h.log.Warn(ctx, "cannot render live tvit", "message_id", message.ID, "error", err)
		return
	}
	event, err := feed.NewTvitEvent(message.ID, message.Author.UserName, html)
	if err != nil {
		h.log.Warn(ctx, "cannot encode live tvit", "message_id", message.ID, "error", err)
		return
	}
	h.publisher.Publish(event)
}

// ownMessage loads the message in the URL and checks the logged-in user wrote it.
// Someone else's tvit is reported as not found.
func (h *Handlers) ownMessage(r *http.Request) (*Message, error) {
	userName, _ := session.UserNameFromContext(r.Context())
	message, err := h.store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if message.Author.UserName != userName {
		return nil, apperror.NewNotFoundError(apperror.PageNotFound, nil)
	}
	return message, nil
}

// HandleConfirmDelete asks before deleting a tvit.
func (h *Handlers) HandleConfirmDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		message, err := h.ownMessage(r)
		if err != nil {
			h.pages.WriteError(w, r, err)
			return
		}
		h.pages.Render(w, r, http.StatusOK, "delete", web.Data{"message": message})
	}
}

// HandleDelete removes one of the logged-in user's tvits.
func (h *Handlers) HandleDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userName, _ := session.UserNameFromContext(r.Context())
		if err := h.store.Delete(r.Context(), chi.URLParam(r, "id"), userName); err != nil {
			h.pages.WriteError(w, r, err)
			return
		}
		web.Redirect(w, r, "/users/"+url.PathEscape(userName))
	}
}
