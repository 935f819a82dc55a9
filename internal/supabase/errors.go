package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNoSession       = errors.New("auth session missing")
	ErrInvalidToken    = errors.New("invalid access token")
	ErrNoRowsReturned  = errors.New("no rows returned")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error is a failure reported by the backend, kept as close to the wire
// format as possible.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// IsStatus reports whether err is a backend error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == status
	}
	return false
}

// wire shapes: GoTrue uses msg/error_code or error/error_description,
// PostgREST uses message/code/details/hint.
type wireError struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Details          string          `json:"details"`
	Hint             string          `json:"hint"`
}

func parseError(status int, body []byte) *Error {
	apiErr := &Error{Status: status}

	var w wireError
	if err := json.Unmarshal(body, &w); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
		return apiErr
	}

	apiErr.Code = w.ErrorCode
	if apiErr.Code == "" && len(w.Code) > 0 {
		// GoTrue sends the http status as a number here
		var s string
		if json.Unmarshal(w.Code, &s) == nil {
			apiErr.Code = s
		}
	}
	if apiErr.Code == "" && w.Error != "" {
		apiErr.Code = w.Error
	}

	switch {
	case w.Msg != "":
		apiErr.Message = w.Msg
	case w.Message != "":
		apiErr.Message = w.Message
	case w.ErrorDescription != "":
		apiErr.Message = w.ErrorDescription
	case w.Error != "":
		apiErr.Message = w.Error
	default:
		apiErr.Message = fmt.Sprintf("request failed with status %d", status)
	}
	apiErr.Details = w.Details
	apiErr.Hint = w.Hint

	return apiErr
}
