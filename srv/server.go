package srv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"
)

// Server routes JSON-oriented API requests to registered handlers. It
// implements http.Handler, so it can be mounted on any http.Server; the
// bundled ListenAndServe adds listener limits and graceful shutdown.
//
// Each request runs through an independent pipeline instance; concurrent
// requests share only the registry.
type Server struct {
	registry *Registry
	opts     Options
	logger   *logrus.Logger

	mu      sync.Mutex
	httpSrv *http.Server
}

// NewServer returns a server with the given options applied over defaults.
func NewServer(opts Options) *Server {
	opts = opts.withDefaults()
	return &Server{
		registry: NewRegistry(),
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Add registers a handler for the method and path template.
func (s *Server) Add(method, tpl string, handler HandlerFunc, opts *HandlerOptions) error {
	return s.registry.Add(method, tpl, handler, opts)
}

// Delete removes the handler registered for the method and literal
// template string, reporting whether anything was removed. The method "*"
// removes the template across every method.
func (s *Server) Delete(method, path string) bool {
	return s.registry.Delete(method, path)
}

// WriteJSON writes v as a JSON response with the server's response options
// (pretty-printing, cache suppression) applied.
func (s *Server) WriteJSON(w http.ResponseWriter, code int, v any) {
	WriteJSON(w, code, v, s.responseOptions())
}

func (s *Server) responseOptions() ResponseOptions {
	return ResponseOptions{Pretty: s.opts.PrettyPrint, NoCache: s.opts.NoCache}
}

// writeError writes the canonical error envelope unless a response has
// already been written.
func (s *Server) writeError(w *statusWriter, code int, detail string) {
	if w.Written() {
		return
	}
	WriteError(w, code, detail, s.responseOptions())
}

// ServeHTTP runs the request pipeline and records metrics and an access
// log entry for the finished request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	sw := &statusWriter{ResponseWriter: w}
	id := uuid.New().String()
	sw.Header().Set("X-Request-ID", id)

	s.serve(sw, r, id)

	elapsed := time.Since(start)
	if s.opts.Metrics != nil {
		s.opts.Metrics.observe(r.Method, sw.Status(), elapsed)
	}
	s.logger.WithFields(logrus.Fields{
		"request_id": id,
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     sw.Status(),
		"elapsed":    elapsed,
	}).Debug("request handled")
}

// serve is the per-request pipeline. Stages run strictly in sequence and
// any failure short-circuits to exactly one error response.
func (s *Server) serve(w *statusWriter, r *http.Request, id string) {
	// The authentication gate runs before any parameter parsing. A
	// rejecting auth implementation writes its own response.
	if s.opts.Auth != nil && !s.opts.Auth(w, r) {
		return
	}

	// Protocol upgrades bypass the routing pipeline after authentication.
	if s.opts.Upgrade != nil && r.Header.Get("Upgrade") != "" {
		s.opts.Upgrade(w, r)
		return
	}

	method := r.Method
	if !supportedMethods[method] {
		s.writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	res := readRequestBody(r, s.maxBodyBytes(), s.bodyReadTimeout())
	if res.failure != nil {
		if res.destroy {
			s.destroyTransport(w, r)
		}
		s.writeError(w, res.failure.Code, res.failure.Detail)
		return
	}

	// Route on the escaped path: net/http pre-decodes r.URL.Path, and the
	// matcher owns the one percent-decode of captured values.
	path := r.URL.EscapedPath()
	entry, pathParams, ok := s.registry.lookup(method, path)
	if !ok {
		if s.registry.hasOtherMethodMatch(method, path) {
			s.writeError(w, http.StatusMethodNotAllowed, "")
		} else {
			s.writeError(w, http.StatusNotFound, "")
		}
		return
	}

	opts := entry.options
	if opts == nil {
		opts = &HandlerOptions{}
	}

	req := &Request{
		ID:     id,
		Method: method,
		URL:    r.URL,
		Header: r.Header,
		Body:   res.body,
		raw:    r,
	}

	pathParams, failure := runValidator(opts.PathParamsValidator, pathParams)
	if failure != nil {
		s.writeError(w, failure.Code, failure.Detail)
		return
	}
	req.PathParams = pathParams

	urlParams := map[string]any{}
	if !opts.IgnoreURLParams && !s.opts.IgnoreURLParams {
		switch method {
		case http.MethodPost, http.MethodPut:
			// Query parameters are not permitted on body-carrying methods.
			if r.URL.RawQuery != "" {
				s.writeError(w, http.StatusBadRequest, "query parameters not permitted on "+method)
				return
			}
		default:
			urlParams, failure = parseQueryParams(r.URL.RawQuery)
			if failure != nil {
				s.writeError(w, failure.Code, failure.Detail)
				return
			}
		}
		urlParams, failure = runValidator(opts.URLParamsValidator, urlParams)
		if failure != nil {
			s.writeError(w, failure.Code, failure.Detail)
			return
		}
	}
	req.URLParams = urlParams

	bodyParams := map[string]any{}
	switch method {
	case http.MethodGet, http.MethodDelete:
		if len(res.body) > 0 {
			s.writeError(w, http.StatusBadRequest, "request body not permitted on "+method)
			return
		}
	case http.MethodPost, http.MethodPut:
		bodyParams, failure = decodeBody(r.Header.Get("Content-Type"), res.body)
		if failure != nil {
			s.writeError(w, failure.Code, failure.Detail)
			return
		}
	}
	bodyParams, failure = runValidator(opts.BodyParamsValidator, bodyParams)
	if failure != nil {
		s.writeError(w, failure.Code, failure.Detail)
		return
	}
	req.BodyParams = bodyParams

	req.Params, req.paramSources = mergeParams(s.logger, req.BodyParams, req.URLParams, req.PathParams)

	if opts.ParamsValidator != nil {
		req.Params, failure = runValidator(opts.ParamsValidator, req.Params)
		if failure != nil {
			s.writeError(w, failure.Code, failure.Detail)
			return
		}
	}

	s.invoke(w, req, entry.handler)
}

// invoke runs the resolved handler exactly once. A panic inside the
// handler is caught here and answered with a single 500.
func (s *Server) invoke(w *statusWriter, req *Request, handler HandlerFunc) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.WithFields(logrus.Fields{
				"request_id": req.ID,
				"method":     req.Method,
				"path":       req.URL.Path,
				"panic":      fmt.Sprint(rec),
			}).Error("handler panic")
			s.writeError(w, http.StatusInternalServerError, "")
		}
	}()

	handler(w, req)
}

// maxBodyBytes normalizes the configured body limit; negative disables it.
func (s *Server) maxBodyBytes() int64 {
	if s.opts.MaxBodyBytes < 0 {
		return 0
	}
	return s.opts.MaxBodyBytes
}

// bodyReadTimeout normalizes the configured read timeout; negative
// disables it.
func (s *Server) bodyReadTimeout() time.Duration {
	if s.opts.BodyReadTimeout < 0 {
		return 0
	}
	return s.opts.BodyReadTimeout
}

// destroyTransport marks the connection unusable for further requests:
// the body is dropped without reading and the response advertises
// connection close.
func (s *Server) destroyTransport(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		r.Body.Close()
	}
	w.Header().Set("Connection", "close")
}

// ListenAndServe listens on addr and serves requests until Shutdown.
// When Options.MaxConns is set, the listener is capped to that many
// concurrent connections.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("srv: listen %s: %w", addr, err)
	}
	if s.opts.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.opts.MaxConns)
	}

	httpSrv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.httpSrv = httpSrv
	s.mu.Unlock()

	s.logger.WithField("addr", ln.Addr().String()).Info("server listening")

	err = httpSrv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops a server started with ListenAndServe.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpSrv := s.httpSrv
	s.mu.Unlock()

	if httpSrv == nil {
		return nil
	}
	s.logger.Info("server shutting down")
	return httpSrv.Shutdown(ctx)
}

// statusWriter wraps the response sink to record the status code and to
// guarantee at most one response per request.
type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

// WriteHeader records the first status code and ignores later calls.
func (w *statusWriter) WriteHeader(code int) {
	if w.wrote {
		return
	}
	w.wrote = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Write marks the response as written, defaulting the status to 200.
func (w *statusWriter) Write(p []byte) (int, error) {
	if !w.wrote {
		w.wrote = true
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(p)
}

// Written reports whether a response has been started.
func (w *statusWriter) Written() bool {
	return w.wrote
}

// Hijack passes hijacking through to the underlying writer so upgrade
// handlers can take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("srv: response writer does not support hijacking")
	}
	w.wrote = true
	return hj.Hijack()
}

// Flush passes through to the underlying writer when it supports it.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Status returns the recorded status code, defaulting to 200 when the
// handler wrote a body without an explicit status.
func (w *statusWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
