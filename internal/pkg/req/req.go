/*
Package req provides helpers for parsing HTTP request bodies.

It binds JSON payloads to destination structs with strict decoding so
malformed or oversized input is rejected before any business logic runs.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"famhub/internal/pkg/errs"
)

// MaxBodySize limits request bodies to 1 MB. The room payload for a single
// household stays far below this.
const MaxBodySize int64 = 1 << 20

// BindJSON decodes the request body into dst. Unknown fields, trailing
// content, and non-JSON content types are rejected.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
