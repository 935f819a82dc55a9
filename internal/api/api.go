// Package api holds what the HTTP handlers of the service layer share: the
// error taxonomy and envelope responses.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/2beens/trainor/internal/result"
	"github.com/2beens/trainor/internal/supabase"
	"github.com/2beens/trainor/pkg"
)

const maxBodyBytes = 1 << 20

var (
	ErrNotAuthenticated = errors.New("User not authenticated")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnsupportedMedia = errors.New("content type must be application/json")
)

// StatusCode maps a service error to the HTTP status the surface answers with.
func StatusCode(err error) int {
	var apiErr *supabase.Error
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotAuthenticated), errors.Is(err, supabase.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrInvalidInput), errors.Is(err, supabase.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, supabase.ErrNoRowsReturned):
		return http.StatusNotFound
	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteResult writes the envelope, with a status code derived from its error.
func WriteResult[T any](w http.ResponseWriter, res result.Result[T]) {
	pkg.WriteJSON(w, StatusCode(res.Err()), res)
}

// WriteError writes a failed envelope for errors raised before any service call.
func WriteError(w http.ResponseWriter, err error) {
	WriteResult(w, result.Fail[struct{}](err))
}

// DecodeJSON reads a JSON request body into v.
func DecodeJSON(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != pkg.ContentType.JSON {
		return ErrUnsupportedMedia
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %s", ErrInvalidInput, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	return nil
}
