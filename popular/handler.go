package popular

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/tvitter-go/session"
	"github.com/user/tvitter-go/web"
)

// Decorate adds the current snapshot to every page under the "popular" key.
func (s *Service) Decorate(_ *http.Request, data web.Data) {
	data["popular"] = s.Snapshot()
}

type Handlers struct {
	service *Service
	pages   *web.Pages
}

func NewHandlers(service *Service, pages *web.Pages) *Handlers {
	return &Handlers{service: service, pages: pages}
}

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.With(session.RequireSession).Get("/admin", h.HandleAdmin())
}

// HandleAdmin shows the author statistics of the latest snapshot.
func (h *Handlers) HandleAdmin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.pages.Render(w, r, http.StatusOK, "admin", web.Data{
			"authors":     h.service.Snapshot(),
			"refreshedAt": h.service.RefreshedAt(),
		})
	}
}
