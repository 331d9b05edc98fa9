package srv

import (
	"context"
	"net/http"
	"net/url"
)

// Request carries one in-flight request through the pipeline and into the
// resolved handler. It is created at pipeline start, mutated only by the
// strictly sequential pipeline stages, and discarded after the response.
type Request struct {
	// ID is the per-request identifier, also sent in the X-Request-ID
	// response header.
	ID string

	Method string
	URL    *url.URL
	Header http.Header

	// Body is the fully accumulated raw request body.
	Body []byte

	// PathParams, URLParams and BodyParams hold the per-source parameters
	// after their validators have run.
	PathParams map[string]any
	URLParams  map[string]any
	BodyParams map[string]any

	// Params is the merged parameter object, body overlaid by query
	// overlaid by path.
	Params map[string]any

	// paramSources records the originating source of each merged value,
	// for diagnostics only.
	paramSources map[string]string

	raw *http.Request
}

// ParamSource returns the source label ("body", "query" or "path") of a
// merged parameter and whether the parameter exists.
func (r *Request) ParamSource(name string) (string, bool) {
	src, ok := r.paramSources[name]
	return src, ok
}

// Context returns the underlying request context.
func (r *Request) Context() context.Context {
	return r.raw.Context()
}

// Raw returns the underlying transport request.
func (r *Request) Raw() *http.Request {
	return r.raw
}
