package console

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/normaladmin/go-console-sdk/util"
)

const (
	PageLogin    = "Login"
	PageLayout   = "Layout"
	PageNotFound = "NotFound"
)

// PageFactory builds the handler for a route's page. It is called at most once
// per registered route, the first time the route is served.
type PageFactory func(route *Route) (http.Handler, error)

// PageRegistry maps component references from the menu payload to page factories.
type PageRegistry struct {
	mu        sync.RWMutex
	factories map[string]PageFactory
	fallback  PageFactory
}

// NewPageRegistry returns a registry where every component, including the
// static ones, renders the route description as JSON until registered otherwise.
func NewPageRegistry() *PageRegistry {
	return &PageRegistry{
		factories: map[string]PageFactory{
			PageNotFound: notFoundPage,
		},
		fallback: routeInfoPage,
	}
}

func (p *PageRegistry) Register(component string, factory PageFactory) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.factories[component] = factory
}

// SetFallback changes the factory used for components with no registration.
// A nil fallback makes unknown components an error.
func (p *PageRegistry) SetFallback(factory PageFactory) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fallback = factory
}

func (p *PageRegistry) Has(component string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.factories[component]
	return ok
}

func (p *PageRegistry) factory(component string) (PageFactory, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if f, ok := p.factories[component]; ok {
		return f, nil
	}
	if p.fallback != nil {
		return p.fallback, nil
	}
	return nil, fmt.Errorf("no page registered for component %q", component)
}

type lazyPage struct {
	once    sync.Once
	handler http.Handler
	err     error
}

func (l *lazyPage) resolve(registry *PageRegistry, route *Route) (http.Handler, error) {
	l.once.Do(func() {
		factory, err := registry.factory(route.Component)
		if err != nil {
			l.err = err
			return
		}
		util.Debugf("Resolving page %s for route %s", route.Component, route.Path)
		l.handler, l.err = factory(route)
		if l.err == nil && l.handler == nil {
			l.err = fmt.Errorf("page factory for %q returned no handler", route.Component)
		}
	})
	return l.handler, l.err
}

type routeInfo struct {
	Name      string            `json:"name"`
	Title     string            `json:"title,omitempty"`
	Icon      string            `json:"icon,omitempty"`
	Path      string            `json:"path"`
	Component string            `json:"component"`
	Params    map[string]string `json:"params,omitempty"`
}

func routeInfoPage(route *Route) (http.Handler, error) {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := routeInfo{
			Name:      route.Name,
			Title:     route.Title,
			Icon:      route.Icon,
			Path:      route.Path,
			Component: route.Component,
		}
		if rctx := chi.RouteContext(r.Context()); rctx != nil && len(rctx.URLParams.Keys) > 0 {
			info.Params = make(map[string]string, len(rctx.URLParams.Keys))
			for i, key := range rctx.URLParams.Keys {
				info.Params[key] = rctx.URLParams.Values[i]
			}
		}
		writeJSON(w, http.StatusOK, info)
	}), nil
}

func notFoundPage(route *Route) (http.Handler, error) {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"name":  route.Name,
			"path":  r.URL.Path,
			"error": "page not found",
		})
	}), nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := util.Encode(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
