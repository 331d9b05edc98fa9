package srv

import (
	"encoding/json"
	"mime"
	"net/url"
	"strings"
)

// Media types accepted for POST and PUT request bodies. The second form is
// a legacy alias some clients send for urlencoded payloads.
const (
	mediaTypeJSON       = "application/json"
	mediaTypeForm       = "application/x-www-form-urlencoded"
	mediaTypeFormLegacy = "application/www-form-urlencoded"
)

// parseContentType parses a Content-Type header into a lowercase media type
// and a parameter map with case-insensitive names (RFC 9110 Section 8.3).
// An empty header yields an empty media type; a malformed one is a 400.
func parseContentType(header string) (string, map[string]string, *Error) {
	if header == "" {
		return "", nil, nil
	}
	mediaType, params, err := mime.ParseMediaType(header)
	if err != nil {
		return "", nil, badRequest("malformed Content-Type header")
	}
	return mediaType, params, nil
}

// decodeBody decodes a POST/PUT body into body parameters according to the
// Content-Type header.
//
// An empty body with no Content-Type decodes to an empty parameter set.
// JSON bodies must be objects and may only declare charset utf-8. Form
// bodies decode repeated keys into arrays in order of appearance. Any other
// media type is rejected.
func decodeBody(contentType string, body []byte) (map[string]any, *Error) {
	mediaType, ctParams, failure := parseContentType(contentType)
	if failure != nil {
		return nil, failure
	}

	if mediaType == "" {
		if len(body) == 0 {
			return map[string]any{}, nil
		}
		return nil, badRequest("missing Content-Type header")
	}

	switch mediaType {
	case mediaTypeJSON:
		if cs, ok := ctParams["charset"]; ok && strings.ToLower(cs) != "utf-8" {
			return nil, badRequest("unsupported charset " + cs)
		}
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, badRequest("invalid JSON body")
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, badRequest("JSON body must be an object")
		}
		return obj, nil

	case mediaTypeForm, mediaTypeFormLegacy:
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, badRequest("invalid urlencoded body")
		}
		return collapseValues(values), nil

	default:
		return nil, badRequest("unsupported Content-Type (expected " +
			mediaTypeJSON + " or " + mediaTypeForm + ")")
	}
}

// parseQueryParams parses a raw query string into URL parameters.
func parseQueryParams(rawQuery string) (map[string]any, *Error) {
	if rawQuery == "" {
		return map[string]any{}, nil
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, badRequest("malformed query string")
	}
	return collapseValues(values), nil
}

// collapseValues turns url.Values into a parameter map: a key seen once
// binds a string, a repeated key binds an array in order of appearance.
func collapseValues(values url.Values) map[string]any {
	params := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 1 {
			params[key] = vals[0]
		} else {
			arr := make([]string, len(vals))
			copy(arr, vals)
			params[key] = arr
		}
	}
	return params
}
