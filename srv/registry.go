package srv

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// HandlerFunc handles a resolved request. The framework invokes it exactly
// once per request, after the parameter pipeline has populated r.
type HandlerFunc func(w http.ResponseWriter, r *Request)

// Validator inspects or rewrites a parameter object. A returned error maps
// to 400 Bad Request with the error message as detail; a nil map together
// with a nil error maps to 500 Internal Server Error.
type Validator func(params map[string]any) (map[string]any, error)

// HandlerOptions attach per-route validators and flags to a handler.
type HandlerOptions struct {
	// PathParamsValidator runs on the captured path parameters; its result
	// replaces them.
	PathParamsValidator Validator

	// URLParamsValidator runs on the parsed query string parameters.
	URLParamsValidator Validator

	// BodyParamsValidator runs on the decoded body parameters.
	BodyParamsValidator Validator

	// ParamsValidator runs on the fully merged parameter object; its result
	// becomes the final Params.
	ParamsValidator Validator

	// IgnoreURLParams skips query string parsing for this route entirely.
	IgnoreURLParams bool
}

// handlerEntry owns one compiled template, its handler, and options.
type handlerEntry struct {
	template *Template
	handler  HandlerFunc
	options  *HandlerOptions
}

// methodStore partitions one method's entries into capture-free templates,
// probed by literal string, and capture-bearing templates, probed in
// registration order.
type methodStore struct {
	exact   map[string]*handlerEntry
	dynamic map[string]*handlerEntry

	// dynamicOrder preserves registration order for dynamic probing.
	// Re-registering an existing template keeps its original slot.
	dynamicOrder []string
}

func newMethodStore() *methodStore {
	return &methodStore{
		exact:   make(map[string]*handlerEntry),
		dynamic: make(map[string]*handlerEntry),
	}
}

func (s *methodStore) empty() bool {
	return len(s.exact) == 0 && len(s.dynamic) == 0
}

// lookup resolves a request path within this store. Exact templates are
// probed at the literal path first, then at the path with one trailing
// slash stripped, provided the matching entry does not itself require the
// slash. Dynamic templates are probed in registration order; the first
// match wins.
func (s *methodStore) lookup(path string) (*handlerEntry, map[string]any, bool) {
	if e, ok := s.exact[path]; ok {
		return e, map[string]any{}, true
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		if e, ok := s.exact[path[:len(path)-1]]; ok && !e.template.trailingSlash {
			return e, map[string]any{}, true
		}
	}

	segs, trailing := splitPath(path)
	for _, key := range s.dynamicOrder {
		e := s.dynamic[key]
		if vars, ok := e.template.match(segs, trailing); ok {
			return e, vars, true
		}
	}
	return nil, nil, false
}

// remove deletes the literal template string from both partitions,
// reporting whether anything was removed.
func (s *methodStore) remove(path string) bool {
	removed := false
	if _, ok := s.exact[path]; ok {
		delete(s.exact, path)
		removed = true
	}
	if _, ok := s.dynamic[path]; ok {
		delete(s.dynamic, path)
		for i, key := range s.dynamicOrder {
			if key == path {
				s.dynamicOrder = append(s.dynamicOrder[:i], s.dynamicOrder[i+1:]...)
				break
			}
		}
		removed = true
	}
	return removed
}

// supportedMethods is the fixed verb set the registry accepts.
var supportedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
}

// ErrNilHandler is returned by Add when the handler is nil.
var ErrNilHandler = errors.New("srv: handler must not be nil")

// Registry stores handler entries per HTTP method. It is safe for
// concurrent use: lookups observe either the pre- or post-mutation state of
// an entry, never a partially updated one.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]*methodStore
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		stores: make(map[string]*methodStore),
	}
}

// Add compiles the template and registers the handler under the method.
// The method must be one of GET, POST, PUT or DELETE (case-insensitive).
// Registering the same (method, template) pair twice replaces the prior
// entry.
func (r *Registry) Add(method, tpl string, handler HandlerFunc, opts *HandlerOptions) error {
	method = strings.ToUpper(method)
	if !supportedMethods[method] {
		return fmt.Errorf("srv: unsupported method %q", method)
	}
	if handler == nil {
		return ErrNilHandler
	}

	t, err := CompileTemplate(tpl)
	if err != nil {
		return err
	}

	entry := &handlerEntry{template: t, handler: handler, options: opts}

	r.mu.Lock()
	defer r.mu.Unlock()

	store, ok := r.stores[method]
	if !ok {
		store = newMethodStore()
		r.stores[method] = store
	}

	if t.exact {
		store.exact[tpl] = entry
	} else {
		if _, exists := store.dynamic[tpl]; !exists {
			store.dynamicOrder = append(store.dynamicOrder, tpl)
		}
		store.dynamic[tpl] = entry
	}
	return nil
}

// Delete removes the literal template string from the given method's
// stores and reports whether anything was removed. The method "*" removes
// the template from every method. Stores left empty are pruned.
func (r *Registry) Delete(method, path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if method == "*" {
		removed := false
		for m, store := range r.stores {
			if store.remove(path) {
				removed = true
			}
			if store.empty() {
				delete(r.stores, m)
			}
		}
		return removed
	}

	method = strings.ToUpper(method)
	store, ok := r.stores[method]
	if !ok {
		return false
	}
	removed := store.remove(path)
	if store.empty() {
		delete(r.stores, method)
	}
	return removed
}

// lookup resolves the request path within the given method's store only.
func (r *Registry) lookup(method, path string) (*handlerEntry, map[string]any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	store, ok := r.stores[method]
	if !ok {
		return nil, nil, false
	}
	return store.lookup(path)
}

// hasOtherMethodMatch reports whether any method other than the given one
// has a handler matching the path. Used to choose between 404 and 405 when
// the requested method has no handler.
func (r *Registry) hasOtherMethodMatch(method, path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for m, store := range r.stores {
		if m == method {
			continue
		}
		if _, _, ok := store.lookup(path); ok {
			return true
		}
	}
	return false
}
