// Package web renders HTML pages and error pages for the HTTP handlers.
package web

import (
	"bytes"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/user/tvitter-go/apperror"
	"github.com/user/tvitter-go/logging"
)

// Data is the context handed to a view. Keys a view refers to but that are
// absent render as empty text.
type Data map[string]any

// Renderer executes a named view. *templates.Registry implements it.
type Renderer interface {
	Render(w io.Writer, name string, data any) error
}

// Decorator adds request-wide values, such as the logged-in user, to every page.
type Decorator func(r *http.Request, data Data)

// Pages writes views and error pages to HTTP responses.
type Pages struct {
	views      Renderer
	log        logging.Logger
	decorators []Decorator
}

func NewPages(views Renderer, log logging.Logger, decorators ...Decorator) *Pages {
	return &Pages{views: views, log: log, decorators: decorators}
}

// Render executes view into a buffer and writes it with status. A rendering
// failure is logged and turned into a plain 500 so no partial page is sent.
func (p *Pages) Render(w http.ResponseWriter, r *http.Request, status int, view string, data Data) {
	if data == nil {
		data = Data{}
	}
	for _, decorate := range p.decorators {
		decorate(r, data)
	}

	var buf bytes.Buffer
	if err := p.views.Render(&buf, view, data); err != nil {
		p.log.Error(r.Context(), "cannot render view",
			"view", view, "request_id", middleware.GetReqID(r.Context()), "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		p.log.Debug(r.Context(), "cannot write response", "view", view, "error", err)
	}
}

// WriteError renders the error view for err. Server-side failures are logged
// and shown with a generic message; client errors show their own message.
func (p *Pages) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.Wrap(err, "an unexpected error occurred")
	status := appErr.StatusCode()
	if status >= http.StatusInternalServerError {
		p.log.Error(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"request_id", middleware.GetReqID(r.Context()),
			"error", appErr)
	}

	p.Render(w, r, status, "error", Data{
		"status":  status,
		"message": appErr.PublicMessage(),
	})
}

// NotFound renders the standard not-found page.
func (p *Pages) NotFound(w http.ResponseWriter, r *http.Request) {
	p.WriteError(w, r, apperror.NewNotFoundError(apperror.PageNotFound, nil))
}

// Redirect sends the browser to url after a form post.
func Redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}
