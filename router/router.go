// Package router provides the default Router collaborator for the server
// core: chi-style patterns with URL parameters and a well-formed 404
// fallback for unmatched requests.
package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/lookback/swifter/request"
	"github.com/lookback/swifter/response"
	"github.com/lookback/swifter/server"
)

// Mux routes requests to handlers. Matching uses the chi route trie;
// handlers live in a concurrent map keyed by method and matched pattern,
// since dispatch runs on every connection worker at once.
//
// Routes must be registered before the server starts serving.
type Mux struct {
	trie     *chi.Mux
	handlers *xsync.MapOf[string, server.Handler]
	notFound server.Handler
}

// New returns an empty Mux whose fallback is a plain 404 of known length,
// so unmatched requests still negotiate keep-alive.
func New() *Mux {
	return &Mux{
		trie:     chi.NewRouter(),
		handlers: xsync.NewMapOf[string, server.Handler](),
		notFound: defaultNotFound,
	}
}

// Handle registers h for the given method and chi-style pattern,
// e.g. Handle("GET", "/users/{id}", h).
func (m *Mux) Handle(method, pattern string, h server.Handler) {
	method = strings.ToUpper(method)
	m.trie.MethodFunc(method, pattern, func(http.ResponseWriter, *http.Request) {})
	m.handlers.Store(method+" "+pattern, h)
}

// Get registers h for GET requests on pattern.
func (m *Mux) Get(pattern string, h server.Handler) {
	m.Handle(http.MethodGet, pattern, h)
}

// Post registers h for POST requests on pattern.
func (m *Mux) Post(pattern string, h server.Handler) {
	m.Handle(http.MethodPost, pattern, h)
}

// NotFound replaces the fallback handler used for unmatched requests.
func (m *Mux) NotFound(h server.Handler) {
	m.notFound = h
}

// Dispatch resolves req to its route parameters and handler. An unmatched
// request resolves to empty params and the 404 fallback, never an error.
func (m *Mux) Dispatch(req *request.Request) (request.Params, server.Handler) {
	path := req.Target
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	rctx := chi.NewRouteContext()
	method := strings.ToUpper(req.Method)
	if m.trie.Match(rctx, method, path) {
		if h, ok := m.handlers.Load(method + " " + rctx.RoutePattern()); ok {
			params := make(request.Params, len(rctx.URLParams.Keys))
			for i, k := range rctx.URLParams.Keys {
				params[k] = rctx.URLParams.Values[i]
			}
			return params, h
		}
	}
	return request.Params{}, m.notFound
}

func defaultNotFound(*request.Request) *response.Response {
	return response.NewText(http.StatusNotFound, "404 page not found\n")
}
