package ui

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

const (
	PathRoot           = "/"
	PathLogin          = "/login"
	PathHome           = "/app"
	PathRegister       = "/register"
	PathForgotPassword = "/forgot-password"
)

var ErrRouteNotFound = errors.New("route not found")

// Route maps a path to the view shown for it.
type Route struct {
	Path  string
	Title string
	New   func(Deps) View
}

var routes = []Route{
	{Path: PathLogin, Title: "Login", New: func(d Deps) View { return NewLogin(d) }},
	{Path: PathHome, Title: "Home", New: func(d Deps) View { return NewHome(d) }},
	{Path: PathRegister, Title: "Register", New: func(d Deps) View { return NewRegister(d) }},
	{Path: PathForgotPassword, Title: "Forgot password", New: func(d Deps) View { return NewForgotPassword(d) }},
}

var redirects = map[string]string{
	PathRoot: PathLogin,
}

// Href returns the hash link for path.
func Href(path string) string { return "#" + path }

// ParseHash returns the route path of a URL fragment. An empty fragment is
// the root path.
func ParseHash(hash string) string {
	path := strings.TrimPrefix(hash, "#")
	if path == "" {
		return PathRoot
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// Routes returns the route table in navigation order.
func Routes() []Route {
	return append([]Route(nil), routes...)
}

// Router owns the active view. Views receive the router as their Navigator.
type Router struct {
	mu      sync.Mutex
	deps    Deps
	current string
	view    View
}

// NewRouter creates a Router with no active view. deps.Nav is replaced by
// the router itself.
func NewRouter(deps Deps) *Router {
	r := &Router{}
	deps.Nav = r
	r.deps = deps
	return r
}

// Navigate activates the view for path. The previous view is closed and
// its state discarded; navigating to the current path keeps the view.
func (r *Router) Navigate(path string) error {
	resolved := path
	if to, ok := redirects[path]; ok {
		resolved = to
	}

	route, ok := lookup(resolved)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRouteNotFound, path)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.view != nil && r.current == resolved {
		return nil
	}
	if r.view != nil {
		r.view.Close()
	}
	r.current = resolved
	r.view = route.New(r.deps)
	return nil
}

// Current returns the active path, or "" before the first navigation.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Active returns the active view, or nil before the first navigation.
func (r *Router) Active() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

// Close tears down the active view.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.view != nil {
		r.view.Close()
		r.view = nil
		r.current = ""
	}
}

// ActiveAs navigates to path and returns the active view as T.
func ActiveAs[T View](r *Router, path string) (T, error) {
	var zero T
	if err := r.Navigate(path); err != nil {
		return zero, err
	}
	v, ok := r.Active().(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s has no %T view", ErrRouteNotFound, path, zero)
	}
	return v, nil
}

func lookup(path string) (Route, bool) {
	for _, rt := range routes {
		if rt.Path == path {
			return rt, true
		}
	}
	return Route{}, false
}
