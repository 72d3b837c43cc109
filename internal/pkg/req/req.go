/*
Package req provides helper functions for HTTP request parsing and data binding.

It encapsulates the logic for parsing Multipart Form data and query parameters, and
integrates error handling to ensure data format correctness and size constraints,
facilitating subsequent business logic processing.
*/
package req

import (
	"errors"
	"net/http"
	"strings"

	"wadash/internal/pkg/errs"
	"wadash/internal/pkg/resp"
)

const (
	// MaxFormMemory defines the maximum amount of memory (32 MB) ParseMultipartForm
	// will use to store file parts. File parts exceeding this limit are stored in temporary files.
	MaxFormMemory int64 = 32 << 20 // 32 MB

	// MultipartOverhead is the slack allowed on top of a file size limit for
	// boundaries, part headers and small text fields.
	MultipartOverhead int64 = 64 << 10 // 64 KB
)

// LimitBody returns a middleware that rejects requests declaring more than maxBytes
// and caps the body of the rest at maxBytes.
func LimitBody(maxBytes int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				resp.RespondError(w, r, errs.NewError(errs.ErrRequestEntityTooLarge))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// SetupMultipart limits the request body to maxFileSize plus MultipartOverhead and
// parses the multipart form.
func SetupMultipart(w http.ResponseWriter, r *http.Request, maxFileSize int64) *errs.CustomError {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+MultipartOverhead)

	err := r.ParseMultipartForm(MaxFormMemory)

	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}

		return errs.NewError(errs.ErrFormParseFailed)
	}

	return nil
}

// RequiredQuery returns the named query parameter or ErrInvalidParams when it is blank.
func RequiredQuery(r *http.Request, name string) (string, *errs.CustomError) {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		return "", errs.NewError(errs.ErrInvalidParams)
	}
	return value, nil
}
