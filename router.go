package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/normaladmin/go-console-sdk/api"
	"github.com/normaladmin/go-console-sdk/util"
)

// MenuProvider returns the menu entries and permission strings for the
// current credential.
type MenuProvider interface {
	GetRoleMenus(ctx context.Context) (*api.AuthMenus, error)
}

// Route is one navigable page. Static routes have a nil Menu.
type Route struct {
	Name         string
	Path         string
	Title        string
	Icon         string
	Component    string
	Redirect     string
	RequiresAuth bool
	Menu         *api.MenuNode

	page lazyPage
}

func (r *Route) IsDynamic() bool {
	return r.Menu != nil
}

// Navigation is the guard's decision for a requested path. Exactly one of
// Redirect and Route is set.
type Navigation struct {
	Path     string
	Redirect string
	Route    *Route
	Params   map[string]string
	Retried  bool
}

func (n *Navigation) IsRedirect() bool {
	return n.Redirect != ""
}

type routeTable struct {
	mux         *chi.Mux
	byPattern   map[string]*Route
	byName      map[string]*Route
	notFound    *Route
	dynamic     []*Route
	fingerprint uint32
}

// resolve returns the route for path and its path parameters, or the
// NotFound route.
func (t *routeTable) resolve(path string) (*Route, map[string]string) {
	rctx := chi.NewRouteContext()
	if !t.mux.Match(rctx, http.MethodGet, path) {
		return t.notFound, nil
	}
	route, ok := t.byPattern[rctx.RoutePattern()]
	if !ok {
		return t.notFound, nil
	}
	var params map[string]string
	if len(rctx.URLParams.Keys) > 0 {
		params = make(map[string]string, len(rctx.URLParams.Keys))
		for i, key := range rctx.URLParams.Keys {
			params[key] = rctx.URLParams.Values[i]
		}
	}
	return route, params
}

// Router gates pages behind the session credential and serves the route set
// declared by the menu payload. Navigations are serialized. Hooks may read
// Current and add or clear hooks, but must not call Navigate or Reset.
type Router struct {
	options  *Options
	session  *Session
	provider MenuProvider
	pages    *PageRegistry
	hooks    *NavigationHookRunner

	navMu   sync.Mutex
	loadMu  sync.Mutex
	table   atomic.Pointer[routeTable]
	current atomic.Pointer[string]
}

func NewRouter(session *Session, provider MenuProvider, pages *PageRegistry, options *Options) (*Router, error) {
	if session == nil {
		return nil, fmt.Errorf("Router - session cannot be nil")
	}
	if provider == nil {
		return nil, fmt.Errorf("Router - menu provider cannot be nil")
	}
	if options == nil {
		options = &Options{}
	}
	options.CheckDefaults()
	if pages == nil {
		pages = NewPageRegistry()
	}
	r := &Router{
		options:  options,
		session:  session,
		provider: provider,
		pages:    pages,
		hooks:    NewNavigationHookRunner(options.NavigationHooks),
	}
	r.table.Store(r.buildTable(nil, 0))
	return r, nil
}

func (r *Router) staticRoutes() []*Route {
	return []*Route{
		{Name: "Root", Path: "/", Redirect: r.options.LoginPath},
		{Name: PageLogin, Path: r.options.LoginPath, Component: PageLogin},
		{Name: PageLayout, Path: r.options.LayoutPath, Component: PageLayout, RequiresAuth: true},
	}
}

// routePattern maps a menu path to its pattern under the layout route.
// ":name" segments become chi "{name}" parameters.
func (r *Router) routePattern(menuPath string) string {
	segments := strings.Split(strings.Trim(menuPath, "/"), "/")
	for i, s := range segments {
		if strings.HasPrefix(s, ":") && len(s) > 1 {
			segments[i] = "{" + s[1:] + "}"
		}
	}
	joined := strings.Join(segments, "/")
	if joined == "" {
		return r.options.LayoutPath
	}
	return strings.TrimSuffix(r.options.LayoutPath, "/") + "/" + joined
}

// registerPattern adds pattern to mux. chi panics on a malformed pattern, so
// it is first tried on a scratch mux to keep a rejected one from leaving the
// real tree half-updated.
func registerPattern(mux *chi.Mux, pattern string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("invalid route pattern %q: %v", pattern, rec)
		}
	}()
	chi.NewRouter().MethodFunc(http.MethodGet, pattern, http.NotFound)
	mux.MethodFunc(http.MethodGet, pattern, http.NotFound)
	return nil
}

// buildTable registers the static routes and one route per page entry. An
// entry whose path is rejected is dropped; the rest still load.
func (r *Router) buildTable(entries []api.MenuNode, fingerprint uint32) *routeTable {
	table := &routeTable{
		mux:         chi.NewRouter(),
		byPattern:   make(map[string]*Route),
		byName:      make(map[string]*Route),
		notFound:    &Route{Name: PageNotFound, Path: "/*", Component: PageNotFound},
		fingerprint: fingerprint,
	}
	add := func(route *Route) bool {
		if _, exists := table.byPattern[route.Path]; exists {
			util.Warnf("Route %s is already registered, ignoring %s", route.Path, route.Name)
			return false
		}
		if err := registerPattern(table.mux, route.Path); err != nil {
			util.Warnf("Dropping route %s: %v", route.Name, err)
			return false
		}
		table.byPattern[route.Path] = route
		if _, exists := table.byName[route.Name]; !exists {
			table.byName[route.Name] = route
		}
		return true
	}
	for _, route := range r.staticRoutes() {
		add(route)
	}
	for i := range entries {
		menu := entries[i]
		route := &Route{
			Name:         menu.Name,
			Path:         r.routePattern(menu.Path),
			Title:        menu.Title,
			Icon:         menu.Icon,
			Component:    menu.Component,
			RequiresAuth: true,
			Menu:         &menu,
		}
		if add(route) {
			table.dynamic = append(table.dynamic, route)
		}
	}
	return table
}

// LoadDynamicRoutes fetches the menu payload, stores the tree and permissions
// in the session and replaces the route table. A payload identical to the
// loaded one leaves the table untouched. On failure the session tree stays
// empty.
func (r *Router) LoadDynamicRoutes(ctx context.Context) error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	menus, err := r.provider.GetRoleMenus(ctx)
	if err == nil {
		err = validateAuthMenus(menus)
	}
	if err != nil {
		r.session.resetRoleMenu()
		publishClientEvent(r.options.ClientEventHandler, api.ClientEvent{
			EventType: api.ClientEventType_PermissionsFailed,
			EventData: "Failed to fetch role permissions",
			Status:    "failure",
			Error:     err,
		})
		return fmt.Errorf("failed to load dynamic routes: %w", err)
	}

	valid := validMenuEntries(menus.Menus)
	tree := BuildMenuTree(valid)
	entries := pageEntries(valid)
	fingerprint := menuFingerprint(entries, menus.Permissions)

	current := r.table.Load()
	if len(current.dynamic) > 0 && current.fingerprint == fingerprint {
		util.Debugf("Menu payload unchanged, keeping %d routes", len(current.dynamic))
		r.session.setRoleMenu(tree, menus.Permissions)
		return nil
	}

	table := r.buildTable(entries, fingerprint)
	r.table.Store(table)
	r.session.setRoleMenu(tree, menus.Permissions)

	util.Infof("Loaded %d routes from %d menu entries", len(table.dynamic), len(menus.Menus))
	publishClientEvent(r.options.ClientEventHandler, api.ClientEvent{
		EventType: api.ClientEventType_RoutesLoaded,
		EventData: len(table.dynamic),
		Status:    "success",
	})
	return nil
}

// Reset drops every dynamic route and the session's menu tree.
func (r *Router) Reset() {
	r.navMu.Lock()
	defer r.navMu.Unlock()
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	r.session.resetRoleMenu()
	r.current.Store(nil)
	r.table.Store(r.buildTable(nil, 0))
}

// Resolve matches path against the current route table without running the guard.
func (r *Router) Resolve(path string) *Route {
	route, _ := r.table.Load().resolve(path)
	return route
}

func (r *Router) HasRoute(path string) bool {
	return r.Resolve(path).Name != PageNotFound
}

func (r *Router) RouteByName(name string) (*Route, bool) {
	route, ok := r.table.Load().byName[name]
	return route, ok
}

// Routes returns the dynamic routes in registration order.
func (r *Router) Routes() []*Route {
	return append([]*Route(nil), r.table.Load().dynamic...)
}

// Current returns the path of the last navigation that resolved to a route.
func (r *Router) Current() string {
	if current := r.current.Load(); current != nil {
		return *current
	}
	return ""
}

// AddHook takes effect from the next navigation.
func (r *Router) AddHook(hook *NavigationHook) {
	r.hooks.AddHook(hook)
}

func (r *Router) ClearHooks() {
	r.hooks.ClearHooks()
}

// Navigate runs the navigation guard for path and returns where the caller
// should end up. Guard failures redirect to the login page; only hook errors
// are returned. A Before hook returning RedirectTo skips the guard.
func (r *Router) Navigate(ctx context.Context, path string) (*Navigation, error) {
	r.navMu.Lock()
	defer r.navMu.Unlock()
	return r.navigate(ctx, path, false)
}

func (r *Router) navigate(ctx context.Context, path string, retry bool) (nav *Navigation, err error) {
	if path == "" {
		path = "/"
	}
	hooks := NewNavigationHookRunner(r.hooks.Hooks())
	nctx := &NavigationContext{
		From:          r.Current(),
		To:            path,
		Authenticated: r.session.Token() != "",
		Retry:         retry,
	}

	defer func() {
		if err != nil {
			hooks.RunErrorHooks(nctx, err)
		}
		hooks.RunOnFinallyHooks(nctx, nav)
	}()

	if err = hooks.RunBeforeHooks(nctx); err != nil {
		var redirect *NavigationRedirect
		if !errors.As(err, &redirect) {
			return nil, err
		}
		nav = &Navigation{Path: path, Redirect: redirect.Path, Retried: retry}
		if err = hooks.RunAfterHooks(nctx, nav); err != nil {
			return nil, err
		}
		return nav, nil
	}

	nav, retryPath := r.guard(ctx, path, retry)
	if retryPath != "" {
		util.Debugf("Route %s not found after loading routes, retrying once", retryPath)
		nav, err = r.navigate(ctx, retryPath, true)
		if err != nil {
			return nil, err
		}
		return nav, nil
	}

	if err = hooks.RunAfterHooks(nctx, nav); err != nil {
		return nil, err
	}
	if nav.Route != nil {
		r.current.Store(&path)
	}
	return nav, nil
}

// guard applies the navigation rules. A non-empty retryPath asks the caller to
// re-issue the navigation once.
func (r *Router) guard(ctx context.Context, path string, retry bool) (nav *Navigation, retryPath string) {
	defer func() {
		if rec := recover(); rec != nil {
			util.Warnf("Navigation guard for %s failed: %v", path, rec)
			nav = &Navigation{Path: path, Redirect: r.options.LoginPath, Retried: retry}
			retryPath = ""
		}
	}()

	route, params := r.table.Load().resolve(path)
	token := r.session.Token()

	if token == "" {
		if route.Path != r.options.LoginPath {
			return &Navigation{Path: path, Redirect: r.options.LoginPath, Retried: retry}, ""
		}
		return &Navigation{Path: path, Route: route, Retried: retry}, ""
	}

	if !retry && !r.session.HasRoleMenu() {
		if err := r.LoadDynamicRoutes(ctx); err != nil {
			if errors.Is(err, ErrUnauthorized) {
				// the stale credential is left for the authentication flow to replace
				if route.Path == r.options.LoginPath {
					return &Navigation{Path: path, Route: route, Retried: retry}, ""
				}
				util.Warnf("Credential rejected while loading routes, redirecting %s to login", path)
				return &Navigation{Path: path, Redirect: r.options.LoginPath, Retried: retry}, ""
			}
			util.Errorf("Failed to load routes: %v", err)
		}
	}

	if route.Path == r.options.LoginPath {
		return &Navigation{Path: path, Redirect: r.options.HomePath, Retried: retry}, ""
	}

	if route.Name == PageNotFound && !retry {
		return nil, path
	}

	if route.Redirect != "" {
		return &Navigation{Path: path, Redirect: route.Redirect, Retried: retry}, ""
	}
	return &Navigation{Path: path, Route: route, Params: params, Retried: retry}, ""
}

// ServeHTTP is the console shell: it runs the guard for the request path and
// either redirects or serves the resolved page.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	nav, err := r.Navigate(req.Context(), req.URL.Path)
	if err != nil {
		util.Warnf("Navigation to %s aborted: %v", req.URL.Path, err)
		var before *BeforeNavigationError
		if errors.As(err, &before) {
			http.Error(w, "navigation aborted", http.StatusForbidden)
			return
		}
		http.Error(w, "navigation failed", http.StatusInternalServerError)
		return
	}
	if nav.IsRedirect() {
		http.Redirect(w, req, nav.Redirect, http.StatusFound)
		return
	}

	handler, err := nav.Route.page.resolve(r.pages, nav.Route)
	if err != nil {
		util.Errorf("Failed to load page %s: %v", nav.Route.Component, err)
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	if len(nav.Params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range nav.Params {
			rctx.URLParams.Add(k, v)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	handler.ServeHTTP(w, req)
}
