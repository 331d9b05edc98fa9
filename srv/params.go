package srv

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// Parameter source labels used for merge precedence and collision
// diagnostics.
const (
	sourceBody  = "body"
	sourceQuery = "query"
	sourcePath  = "path"
)

// mergeParams overlays the three parameter sources in the order body,
// query, path; a later source overwrites an identically named key from an
// earlier one. An overwrite logs a diagnostic naming the colliding key and
// both source labels, at most once per key. The returned sources map
// records where each merged value came from.
func mergeParams(logger *logrus.Logger, body, query, path map[string]any) (map[string]any, map[string]string) {
	merged := make(map[string]any, len(body)+len(query)+len(path))
	sources := make(map[string]string, len(body)+len(query)+len(path))
	var logged map[string]bool

	overlay := func(label string, params map[string]any) {
		for k, v := range params {
			if prev, ok := sources[k]; ok && !logged[k] {
				logger.WithFields(logrus.Fields{
					"param":       k,
					"kept":        label,
					"overwritten": prev,
				}).Warn("parameter collision")
				if logged == nil {
					logged = make(map[string]bool)
				}
				logged[k] = true
			}
			merged[k] = v
			sources[k] = label
		}
	}

	overlay(sourceBody, body)
	overlay(sourceQuery, query)
	overlay(sourcePath, path)

	return merged, sources
}

// runValidator applies v to params. A validator error maps to 400 with the
// error message as detail; a nil result with a nil error maps to 500.
// A nil validator passes params through unchanged.
func runValidator(v Validator, params map[string]any) (map[string]any, *Error) {
	if v == nil {
		return params, nil
	}
	out, err := v(params)
	if err != nil {
		return nil, badRequest(err.Error())
	}
	if out == nil {
		return nil, newError(http.StatusInternalServerError)
	}
	return out, nil
}
