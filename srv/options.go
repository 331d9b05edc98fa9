package srv

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Default body limits applied when Options leaves them zero.
const (
	DefaultMaxBodyBytes    = 1 << 20 // 1 MiB
	DefaultBodyReadTimeout = 2 * time.Second
)

// AuthFunc is the authentication gate. It runs before any parameter
// parsing. When it rejects the request it must write its own response and
// return false; the pipeline then stops with no further processing.
type AuthFunc func(w http.ResponseWriter, r *http.Request) bool

// UpgradeFunc handles protocol upgrade requests. It is invoked after
// authentication for requests carrying an Upgrade header, with the raw
// response writer and request so it can hijack the connection.
type UpgradeFunc func(w http.ResponseWriter, r *http.Request)

// Options configure a Server. The zero value is usable.
type Options struct {
	// Auth gates every request before parameter parsing. Nil admits all.
	Auth AuthFunc

	// Upgrade, when set, receives requests carrying an Upgrade header
	// after authentication instead of the routing pipeline.
	Upgrade UpgradeFunc

	// MaxBodyBytes caps the accumulated request body size.
	// Defaults to DefaultMaxBodyBytes; negative disables the limit.
	MaxBodyBytes int64

	// BodyReadTimeout bounds the body read phase. It does not apply to
	// handlers. Defaults to DefaultBodyReadTimeout; negative disables it.
	BodyReadTimeout time.Duration

	// PrettyPrint indents all JSON responses written by the server.
	PrettyPrint bool

	// NoCache adds cache-suppression headers to all JSON responses
	// written by the server.
	NoCache bool

	// IgnoreURLParams skips query string parsing on every route. A route
	// can also opt out individually through HandlerOptions.
	IgnoreURLParams bool

	// Logger receives structured request and diagnostic logs.
	// Defaults to logrus.StandardLogger.
	Logger *logrus.Logger

	// Metrics, when set, is updated with per-request counters and
	// latencies.
	Metrics *Metrics

	// MaxConns caps concurrent connections accepted by ListenAndServe.
	// Zero means unlimited.
	MaxConns int
}

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.MaxBodyBytes == 0 {
		o.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if o.BodyReadTimeout == 0 {
		o.BodyReadTimeout = DefaultBodyReadTimeout
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}
