// Package templates compiles the server-side HTML views.
//
// Setup reads every view and partial once, binds all partials and the helper
// functions into each view, and returns an immutable Registry that may be used
// by any number of goroutines.
package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"sort"
)

// partialFiles maps each partial name to its file. Every partial can be
// included from every view with {{template "name" .}}.
var partialFiles = map[string]string{
	"profile":      "partials/profile.html",
	"login":        "partials/login.html",
	"register":     "partials/register.html",
	"nav":          "partials/nav.html",
	"navSearch":    "partials/nav-search.html",
	"popular":      "partials/popular.html",
	"addTvit":      "partials/add-tvit.html",
	"messages":     "partials/messages.html",
	"follow":       "partials/follow.html",
	"verify":       "partials/verify.html",
	"delete":       "partials/delete.html",
	"searchWidget": "partials/search-widget.html",
	"forgot":       "partials/forgot.html",
	"crop":         "partials/crop.html",
	"gender":       "partials/gender.html",
}

// viewFiles maps each renderable view to its file. Some fragments are both a
// partial and a stand-alone view.
var viewFiles = map[string]string{
	"main":          "main.html",
	"home":          "home.html",
	"admin":         "admin.html",
	"error":         "error.html",
	"edit":          "edit.html",
	"users":         "users.html",
	"search":        "search.html",
	"messages":      "partials/messages.html",
	"follow":        "partials/follow.html",
	"verify":        "partials/verify.html",
	"delete":        "partials/delete.html",
	"forgot":        "partials/forgot.html",
	"forgotSuccess": "partials/forgot-success.html",
}

// Registry holds the compiled views.
type Registry struct {
	views map[string]*template.Template
}

// Setup loads and compiles all views from fsys. A missing or malformed file is
// an error; callers treat it as fatal at start-up.
func Setup(fsys fs.FS) (*Registry, error) {
	partials := make(map[string]string, len(partialFiles))
	for _, name := range sortedKeys(partialFiles) {
		text, err := fs.ReadFile(fsys, partialFiles[name])
		if err != nil {
			return nil, fmt.Errorf("templates: reading partial %q: %w", name, err)
		}
		partials[name] = string(text)
	}

	funcs := Funcs()
	views := make(map[string]*template.Template, len(viewFiles))
	for _, name := range sortedKeys(viewFiles) {
		text, err := fs.ReadFile(fsys, viewFiles[name])
		if err != nil {
			return nil, fmt.Errorf("templates: reading view %q: %w", name, err)
		}

		root := template.New("view:" + name).Funcs(funcs)
		for _, partial := range sortedKeys(partials) {
			if _, err := root.New(partial).Parse(partials[partial]); err != nil {
				return nil, fmt.Errorf("templates: parsing partial %q for view %q: %w", partial, name, err)
			}
		}
		if _, err := root.Parse(string(text)); err != nil {
			return nil, fmt.Errorf("templates: parsing view %q: %w", name, err)
		}
		views[name] = root
	}

	return &Registry{views: views}, nil
}

// Has reports whether a view with the given name exists.
func (r *Registry) Has(name string) bool {
	_, ok := r.views[name]
	return ok
}

// Names lists the compiled views in alphabetical order.
func (r *Registry) Names() []string {
	return sortedKeys(r.views)
}

// Render executes the named view with data and writes the HTML to w.
// Fields missing from data render as empty text.
func (r *Registry) Render(w io.Writer, name string, data any) error {
	t, ok := r.views[name]
	if !ok {
		return fmt.Errorf("templates: unknown view %q", name)
	}
	return t.Execute(w, data)
}

// RenderString executes the named view and returns the HTML.
func (r *Registry) RenderString(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
