package srv

import (
	"fmt"
	"net/http"
)

// Error is a request-terminal failure carrying the HTTP status code it maps
// to and an optional detail appended to 400 responses.
type Error struct {
	Code   int
	Detail string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("srv: %s (%s)", ReasonPhrase(e.Code), e.Detail)
	}
	return fmt.Sprintf("srv: %s", ReasonPhrase(e.Code))
}

// newError returns an Error for the given status code with no detail.
func newError(code int) *Error {
	return &Error{Code: code}
}

// badRequest returns a 400 Error with the given detail.
func badRequest(detail string) *Error {
	return &Error{Code: http.StatusBadRequest, Detail: detail}
}
