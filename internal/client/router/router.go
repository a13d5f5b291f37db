// Package router holds the client's route table and the login guard that
// decides where a navigation actually lands.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// ErrRouteNotFound is returned for a path missing from the route table
var ErrRouteNotFound = errors.New("route not found")

// Пути маршрутов
const (
	PathRoot            = "/"
	PathLogin           = "/login"
	PathRegister        = "/register"
	PathGuestInterview  = "/guest-interview"
	PathHome            = "/home"
	PathOutlineList     = "/outline-list"
	PathOutlineEdit     = "/outline-edit"
	PathAIConfig        = "/ai-config"
	PathInterviewList   = "/interview-list"
	PathInterviewDetail = "/interview-detail"
	PathSettings        = "/settings"
)

// Layout names the page frame a route is rendered in
type Layout string

const (
	LayoutEmpty Layout = "empty"
	LayoutMain  Layout = "main"
)

// Route описывает одну запись таблицы маршрутов
type Route struct {
	Path         string
	Name         string
	Redirect     string // если задан, маршрут сразу перенаправляет сюда
	Layout       Layout
	RequiresAuth bool
}

// Routes is the route table of the client
var Routes = []Route{
	{Path: PathLogin, Name: "Login", Layout: LayoutEmpty},
	{Path: PathRegister, Name: "Register", Layout: LayoutEmpty},
	{Path: PathGuestInterview, Name: "GuestInterview", Layout: LayoutEmpty},
	{Path: PathRoot, Redirect: PathHome},
	{Path: PathHome, Name: "Home", Layout: LayoutMain},
	{Path: PathOutlineList, Name: "OutlineList", Layout: LayoutMain, RequiresAuth: true},
	{Path: PathOutlineEdit, Name: "OutlineEdit", Layout: LayoutMain, RequiresAuth: true},
	{Path: PathAIConfig, Name: "AIConfig", Layout: LayoutMain, RequiresAuth: true},
	{Path: PathInterviewList, Name: "InterviewList", Layout: LayoutMain, RequiresAuth: true},
	{Path: PathInterviewDetail, Name: "InterviewDetail", Layout: LayoutMain, RequiresAuth: true},
	{Path: PathSettings, Name: "Settings", Layout: LayoutMain, RequiresAuth: true},
}

//go:generate moq -out loginchecker_mock.go . LoginChecker

// LoginChecker reports whether the user holds a valid session
type LoginChecker interface {
	IsLoggedIn(ctx context.Context) (bool, error)
}

// Router resolves navigations through the route table and the login guard
type Router struct {
	checker LoginChecker
	logger  *slog.Logger
	routes  map[string]Route
	current string
	mu      sync.RWMutex
}

// New creates a router starting at /home
func New(checker LoginChecker, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		checker: checker,
		logger:  logger,
		routes:  make(map[string]Route, len(Routes)),
		current: PathHome,
	}
	for _, route := range Routes {
		r.routes[route.Path] = route
	}
	return r
}

// Lookup returns the table entry for path (query string ignored)
func (r *Router) Lookup(path string) (Route, bool) {
	route, ok := r.routes[normalize(path)]
	return route, ok
}

// Resolve returns the route a navigation to path ends up on.
// Redirects are followed, then a route that requires a login sends
// an unauthenticated user to /login.
func (r *Router) Resolve(ctx context.Context, path string) (Route, error) {
	route, ok := r.Lookup(path)
	if !ok {
		return Route{}, fmt.Errorf("%w: %s", ErrRouteNotFound, path)
	}

	if route.Redirect != "" {
		target, ok := r.Lookup(route.Redirect)
		if !ok {
			return Route{}, fmt.Errorf("%w: %s", ErrRouteNotFound, route.Redirect)
		}
		route = target
	}

	if route.RequiresAuth && !r.isLoggedIn(ctx) {
		r.logger.Debug("login required, redirecting", "from", route.Path, "to", PathLogin)
		return r.routes[PathLogin], nil
	}
	return route, nil
}

func (r *Router) isLoggedIn(ctx context.Context) bool {
	if r.checker == nil {
		return false
	}
	ok, err := r.checker.IsLoggedIn(ctx)
	if err != nil {
		// ошибка чтения сессии равносильна отсутствию входа
		r.logger.Warn("failed to check login state", "error", err)
		return false
	}
	return ok
}

// Navigate moves the router to path through the guard.
// Unknown paths are logged and leave the current location unchanged.
func (r *Router) Navigate(path string) {
	route, err := r.Resolve(context.Background(), path)
	if err != nil {
		r.logger.Warn("navigation failed", "path", path, "error", err)
		return
	}

	r.mu.Lock()
	r.current = route.Path
	r.mu.Unlock()
}

// Current returns the path the router is on
func (r *Router) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

func normalize(path string) string {
	path, _, _ = strings.Cut(path, "?")
	if path == "" {
		return PathRoot
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
