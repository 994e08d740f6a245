package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/user/tvitter-go/apperror"
)

// MaxFormSize bounds urlencoded form bodies.
const MaxFormSize = 64 << 10

// ParseForm reads an urlencoded form of at most MaxFormSize bytes.
func ParseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxFormSize)
	if err := r.ParseForm(); err != nil {
		return apperror.NewBadRequestError("malformed form", err)
	}
	return nil
}

// ParseMultipartForm reads a multipart form whose total size is at most maxSize bytes.
// Plain urlencoded bodies are accepted too.
func ParseMultipartForm(w http.ResponseWriter, r *http.Request, maxSize int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	err := r.ParseMultipartForm(maxSize)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		// ParseMultipartForm has already parsed an urlencoded body.
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.NewBadRequestError("upload is too large", err)
	}
	return apperror.NewBadRequestError("malformed form", err)
}

// Field returns the trimmed value of a posted form field.
func Field(r *http.Request, name string) string {
	return strings.TrimSpace(r.PostFormValue(name))
}
