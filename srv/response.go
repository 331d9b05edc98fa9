package srv

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// reasonPhrases holds the canonical reason phrase for every status code the
// framework generates. RFC 9110 Section 15.
var reasonPhrases = map[int]string{
	http.StatusBadRequest:            "Bad Request",
	http.StatusUnauthorized:          "Unauthorized",
	http.StatusForbidden:             "Forbidden",
	http.StatusNotFound:              "Not Found",
	http.StatusMethodNotAllowed:      "Method Not Allowed",
	http.StatusNotAcceptable:         "Not Acceptable",
	http.StatusRequestTimeout:        "Request Timeout",
	http.StatusConflict:              "Conflict",
	http.StatusRequestEntityTooLarge: "Payload Too Large",
	http.StatusUnsupportedMediaType:  "Unsupported Media Type",
	http.StatusTooManyRequests:       "Too Many Requests",
	http.StatusInternalServerError:   "Internal Server Error",
	http.StatusNotImplemented:        "Not Implemented",
	http.StatusServiceUnavailable:    "Service Unavailable",
}

// ReasonPhrase returns the canonical reason phrase for a status code,
// falling back to the standard library text for codes outside the
// framework's error taxonomy.
func ReasonPhrase(code int) string {
	if s, ok := reasonPhrases[code]; ok {
		return s
	}
	return http.StatusText(code)
}

// errorBody is the wire shape of every framework-generated error response.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ResponseOptions control how WriteJSON renders a response.
type ResponseOptions struct {
	// Pretty enables indented JSON output.
	Pretty bool

	// NoCache adds cache-suppression headers to the response.
	NoCache bool
}

// noCacheHeaders are set when ResponseOptions.NoCache is enabled.
// RFC 9111 Section 5.2 (Cache-Control) plus the legacy HTTP/1.0 fields.
var noCacheHeaders = map[string]string{
	"Cache-Control": "no-cache, no-store, must-revalidate",
	"Pragma":        "no-cache",
	"Expires":       "0",
}

// WriteJSON encodes v as JSON and writes it to the response with the given
// status code. The Content-Type header is set to "application/json".
// If encoding fails, an HTTP 500 Internal Server Error is written instead.
func WriteJSON(w http.ResponseWriter, code int, v any, opts ResponseOptions) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if opts.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if opts.NoCache {
		for k, v := range noCacheHeaders {
			w.Header().Set(k, v)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(buf.Bytes())
}

// WriteError writes the canonical JSON error envelope for the given status
// code. A non-empty detail is appended to the message as " (<detail>)";
// only 400 responses carry one.
func WriteError(w http.ResponseWriter, code int, detail string, opts ResponseOptions) {
	message := ReasonPhrase(code)
	if detail != "" {
		message += " (" + detail + ")"
	}
	WriteJSON(w, code, errorBody{Code: code, Message: message}, opts)
}
