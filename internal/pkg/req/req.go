/*
Package req provides helper functions for HTTP request parsing and data binding.

It decodes JSON bodies strictly (known fields only, a single value, bounded size) and
reports problems as *errs.CustomError values ready to be sent back to the client.
*/
package req

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"roomtoken/internal/pkg/errs"
)

// MaxJSONBodySize bounds every JSON request body (64 KB).
const MaxJSONBodySize int64 = 64 << 10

// BindJSON decodes the JSON request body into dst.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// HasJSONBody reports whether r declares a JSON body that may carry data.
func HasJSONBody(r *http.Request) bool {
	return r.Body != nil && r.ContentLength != 0 &&
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
