package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/user/tvitter-go/apperror"
	"github.com/user/tvitter-go/logging"
	"github.com/user/tvitter-go/session"
	"github.com/user/tvitter-go/web"
)

const requestTimeout = 60 * time.Second

type routeRegistrar interface {
	RegisterRoutes(r chi.Router)
}

type routerDeps struct {
	log       logging.Logger
	sessions  *session.Manager
	staticDir string
	pages     *web.Pages
	routes    []routeRegistrar
	streams   []routeRegistrar // long-lived responses, exempt from the request timeout
}

// currentUserDecorator exposes the logged-in username to every page.
func currentUserDecorator(r *http.Request, data web.Data) {
	if userName, ok := session.UserNameFromContext(r.Context()); ok {
		data["currentUserName"] = userName
	}
}

func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(recoverer(deps.pages, deps.log))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(deps.sessions.Middleware(deps.log))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(deps.staticDir)))
		r.Get("/static/*", fs.ServeHTTP)
		for _, routes := range deps.routes {
			routes.RegisterRoutes(r)
		}
	})
	for _, routes := range deps.streams {
		routes.RegisterRoutes(r)
	}

	r.NotFound(deps.pages.NotFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		deps.pages.Render(w, r, http.StatusMethodNotAllowed, "error", web.Data{
			"status":  http.StatusMethodNotAllowed,
			"message": "method not allowed",
		})
	})
	return r
}

// recoverer turns a panicking handler into the generic error page.
func recoverer(pages *web.Pages, log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					log.Error(r.Context(), "panic while serving request",
						"panic", rvr, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()))
					pages.WriteError(w, r, apperror.NewInternalError("internal server error", nil))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
