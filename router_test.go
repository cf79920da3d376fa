package console

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normaladmin/go-console-sdk/api"
	"github.com/normaladmin/go-console-sdk/util"
)

func fixtureMenus(t *testing.T) *api.AuthMenus {
	t.Helper()
	var envelope api.ResponseEnvelope[api.AuthMenus]
	fatalErr(t, util.Decode([]byte(test_authmenus), &envelope, util.StrictConfig()))
	return &envelope.Data
}

func newTestRouter(t *testing.T, session *Session, provider MenuProvider, events chan api.ClientEvent, hooks ...*NavigationHook) *Router {
	t.Helper()
	router, err := NewRouter(session, provider, nil, &Options{
		PageURL:            test_page_url,
		ClientEventHandler: events,
		NavigationHooks:    hooks,
	})
	fatalErr(t, err)
	return router
}

type panickingProvider struct{}

func (panickingProvider) GetRoleMenus(context.Context) (*api.AuthMenus, error) {
	panic("menu service exploded")
}

func TestRouter_NoCredentialRedirectsToLogin(t *testing.T) {
	provider := &staticMenuProvider{menus: fixtureMenus(t)}
	router := newTestRouter(t, newTestSession(t, ""), provider, nil)

	for _, path := range []string{"/layout", "/layout/admins", "/", "/anything"} {
		nav, err := router.Navigate(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, "/login", nav.Redirect, path)
	}

	nav, err := router.Navigate(context.Background(), "/login")
	require.NoError(t, err)
	require.False(t, nav.IsRedirect())
	assert.Equal(t, PageLogin, nav.Route.Name)
	assert.Equal(t, 0, provider.Calls())
}

func TestRouter_LoginWithCredentialRedirectsHome(t *testing.T) {
	provider := &staticMenuProvider{menus: fixtureMenus(t)}
	session := newTestSession(t, "token-1")
	router := newTestRouter(t, session, provider, nil)

	nav, err := router.Navigate(context.Background(), "/login")
	require.NoError(t, err)
	assert.Equal(t, "/layout", nav.Redirect)
	assert.Equal(t, 1, provider.Calls())
	assert.True(t, session.HasRoleMenu())
}

func TestRouter_DynamicRouteResolvesAfterLazyLoad(t *testing.T) {
	provider := &staticMenuProvider{menus: fixtureMenus(t)}
	router := newTestRouter(t, newTestSession(t, "token-1"), provider, nil)
	require.False(t, router.HasRoute("/layout/admins"))

	nav, err := router.Navigate(context.Background(), "/layout/admins")
	require.NoError(t, err)
	require.NotNil(t, nav.Route)
	assert.Equal(t, "Admins", nav.Route.Name)
	assert.Equal(t, "system/Admins", nav.Route.Component)
	assert.True(t, nav.Retried)
	assert.Equal(t, "/layout/admins", router.Current())

	nav, err = router.Navigate(context.Background(), "/layout/roles")
	require.NoError(t, err)
	assert.Equal(t, "Roles", nav.Route.Name)
	assert.False(t, nav.Retried)
	assert.Equal(t, 1, provider.Calls())
}

func TestRouter_UnknownPathRetriesOnceThenNotFound(t *testing.T) {
	provider := &staticMenuProvider{menus: fixtureMenus(t)}
	var visited []string
	hook := &NavigationHook{
		Before: func(ctx *NavigationContext) error {
			visited = append(visited, ctx.To)
			return nil
		},
	}
	router := newTestRouter(t, newTestSession(t, "token-1"), provider, nil, hook)

	nav, err := router.Navigate(context.Background(), "/layout/missing")
	require.NoError(t, err)
	require.NotNil(t, nav.Route)
	assert.Equal(t, PageNotFound, nav.Route.Name)
	assert.True(t, nav.Retried)
	assert.Equal(t, []string{"/layout/missing", "/layout/missing"}, visited)
	assert.Equal(t, 1, provider.Calls())
}

func TestRouter_PathParametersAndStaticRoutes(t *testing.T) {
	router := newTestRouter(t, newTestSession(t, "token-1"), &staticMenuProvider{menus: fixtureMenus(t)}, nil)

	nav, err := router.Navigate(context.Background(), "/layout/members/42")
	require.NoError(t, err)
	assert.Equal(t, "MemberDetail", nav.Route.Name)
	assert.Equal(t, map[string]string{"id": "42"}, nav.Params)

	nav, err = router.Navigate(context.Background(), "/layout")
	require.NoError(t, err)
	assert.Equal(t, PageLayout, nav.Route.Name)

	nav, err = router.Navigate(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, "/login", nav.Redirect)
}

func TestRouter_RoutesComeFromFlatMenuList(t *testing.T) {
	session := newTestSession(t, "token-1")
	router := newTestRouter(t, session, &staticMenuProvider{menus: fixtureMenus(t)}, nil)
	require.NoError(t, router.LoadDynamicRoutes(context.Background()))

	var names []string
	for _, route := range router.Routes() {
		names = append(names, route.Name)
		assert.True(t, route.RequiresAuth)
	}
	assert.Equal(t, []string{"Admins", "Roles", "Members", "MemberDetail", "Audit"}, names)

	// the orphan still gets a route but is not part of the menu tree
	assert.True(t, router.HasRoute("/layout/audit"))
	assert.Equal(t, []uint{1, 4}, treeIds(session.RoleMenu()))
	assert.True(t, session.HasPermission("admin:create"))
	assert.False(t, session.HasPermission("member:delete"))
}

func TestRouter_PermissionFetchFailure(t *testing.T) {
	provider := &staticMenuProvider{err: errors.New("gateway timeout")}
	session := newTestSession(t, "token-1")
	events := make(chan api.ClientEvent, 8)
	router := newTestRouter(t, session, provider, events)

	nav, err := router.Navigate(context.Background(), "/layout/admins")
	require.NoError(t, err)
	assert.Equal(t, PageNotFound, nav.Route.Name)
	assert.False(t, session.HasRoleMenu())
	assert.Equal(t, 1, provider.Calls())
	assert.Equal(t, []api.ClientEventType{api.ClientEventType_PermissionsFailed}, drainEvents(events))

	provider.mu.Lock()
	provider.err = nil
	provider.menus = fixtureMenus(t)
	provider.mu.Unlock()

	nav, err = router.Navigate(context.Background(), "/layout/admins")
	require.NoError(t, err)
	assert.Equal(t, "Admins", nav.Route.Name)
}

func TestRouter_GuardPanicRedirectsToLogin(t *testing.T) {
	router := newTestRouter(t, newTestSession(t, "token-1"), panickingProvider{}, nil)

	nav, err := router.Navigate(context.Background(), "/layout/admins")
	require.NoError(t, err)
	assert.Equal(t, "/login", nav.Redirect)

	// the load lock was released by the panic
	router.Reset()
}

func TestRouter_IdenticalReloadIsNoop(t *testing.T) {
	provider := &staticMenuProvider{menus: fixtureMenus(t)}
	events := make(chan api.ClientEvent, 8)
	router := newTestRouter(t, newTestSession(t, "token-1"), provider, events)

	require.NoError(t, router.LoadDynamicRoutes(context.Background()))
	first := router.Routes()
	require.NoError(t, router.LoadDynamicRoutes(context.Background()))
	second := router.Routes()

	require.Len(t, second, len(first))
	assert.Same(t, first[0], second[0])
	assert.Equal(t, []api.ClientEventType{api.ClientEventType_RoutesLoaded}, drainEvents(events))

	changed := fixtureMenus(t)
	changed.Menus = changed.Menus[:3]
	provider.mu.Lock()
	provider.menus = changed
	provider.mu.Unlock()
	require.NoError(t, router.LoadDynamicRoutes(context.Background()))
	assert.Len(t, router.Routes(), 2)
	assert.False(t, router.HasRoute("/layout/members"))
}

func TestRouter_DuplicatePathsRegisterOnce(t *testing.T) {
	menus := &api.AuthMenus{Menus: []api.MenuNode{
		{Id: 1, Path: "/admins", Name: "Admins", Component: "system/Admins"},
		{Id: 2, Path: "admins/", Name: "AdminsAgain", Component: "system/Admins"},
	}}
	router := newTestRouter(t, newTestSession(t, "token-1"), &staticMenuProvider{menus: menus}, nil)
	require.NoError(t, router.LoadDynamicRoutes(context.Background()))
	require.Len(t, router.Routes(), 1)
	assert.Equal(t, "Admins", router.Resolve("/layout/admins").Name)
}

func TestRouter_Reset(t *testing.T) {
	session := newTestSession(t, "token-1")
	provider := &staticMenuProvider{menus: fixtureMenus(t)}
	router := newTestRouter(t, session, provider, nil)
	_, err := router.Navigate(context.Background(), "/layout/admins")
	require.NoError(t, err)

	router.Reset()
	assert.False(t, router.HasRoute("/layout/admins"))
	assert.False(t, session.HasRoleMenu())
	assert.Empty(t, router.Routes())
	assert.Equal(t, "", router.Current())

	_, err = router.Navigate(context.Background(), "/layout/admins")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.Calls())
}

func TestRouter_NavigationHooks(t *testing.T) {
	var calls []string
	hookA := NewNavigationHook(
		func(ctx *NavigationContext) error { calls = append(calls, "before-A"); return nil },
		func(ctx *NavigationContext, nav *Navigation) error { calls = append(calls, "after-A"); return nil },
		func(ctx *NavigationContext, nav *Navigation) error { calls = append(calls, "finally-A"); return nil },
		func(ctx *NavigationContext, err error) error { calls = append(calls, "error-A"); return nil },
	)
	hookB := NewNavigationHook(
		func(ctx *NavigationContext) error { calls = append(calls, "before-B"); return nil },
		func(ctx *NavigationContext, nav *Navigation) error { calls = append(calls, "after-B"); return nil },
		func(ctx *NavigationContext, nav *Navigation) error { calls = append(calls, "finally-B"); return nil },
		nil,
	)
	router := newTestRouter(t, newTestSession(t, ""), &staticMenuProvider{}, nil, hookA, hookB)

	_, err := router.Navigate(context.Background(), "/login")
	require.NoError(t, err)
	assert.Equal(t, []string{"before-A", "before-B", "after-B", "after-A", "finally-B", "finally-A"}, calls)

	calls = nil
	router.AddHook(&NavigationHook{
		Before: func(ctx *NavigationContext) error { return errors.New("maintenance window") },
	})
	_, err = router.Navigate(context.Background(), "/login")
	var beforeErr *BeforeNavigationError
	require.ErrorAs(t, err, &beforeErr)
	assert.Equal(t, 2, beforeErr.HookIndex)
	assert.Equal(t, []string{"before-A", "before-B", "error-A", "finally-B", "finally-A"}, calls)

	router.ClearHooks()
	calls = nil
	_, err = router.Navigate(context.Background(), "/login")
	require.NoError(t, err)
	assert.Empty(t, calls)
}

func TestRouter_AfterHookErrorIsReturned(t *testing.T) {
	hook := &NavigationHook{
		After: func(ctx *NavigationContext, nav *Navigation) error { return errors.New("audit log unavailable") },
	}
	router := newTestRouter(t, newTestSession(t, ""), &staticMenuProvider{}, nil, hook)

	_, err := router.Navigate(context.Background(), "/login")
	var afterErr *AfterNavigationError
	require.ErrorAs(t, err, &afterErr)
	assert.Equal(t, "", router.Current())
}

func TestRouter_ServeHTTP(t *testing.T) {
	session := newTestSession(t, "")
	router := newTestRouter(t, session, &staticMenuProvider{menus: fixtureMenus(t)}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/layout/admins", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	fatalErr(t, session.SetToken("token-1", ""))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/layout/members/7", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "MemberDetail", info["name"])
	assert.Equal(t, map[string]interface{}{"id": "7"}, info["params"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/layout/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_PagesResolveLazilyOnce(t *testing.T) {
	pages := NewPageRegistry()
	built := 0
	pages.Register("system/Roles", func(route *Route) (http.Handler, error) {
		built++
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("roles page"))
		}), nil
	})
	pages.Register("system/Admins", func(route *Route) (http.Handler, error) {
		return nil, errors.New("chunk failed to load")
	})

	router, err := NewRouter(newTestSession(t, "token-1"), &staticMenuProvider{menus: fixtureMenus(t)}, pages, &Options{PageURL: test_page_url})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/layout/roles", nil))
		assert.Equal(t, "roles page", rec.Body.String())
	}
	assert.Equal(t, 1, built)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/layout/admins", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	pages.SetFallback(nil)
	assert.False(t, pages.Has("member/List"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/layout/members", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouter_RejectedCredentialRedirectsToLogin(t *testing.T) {
	session := newTestSession(t, "expired-token")
	provider := &staticMenuProvider{err: &APIError{StatusCode: http.StatusUnauthorized}}
	router := newTestRouter(t, session, provider, nil)

	nav, err := router.Navigate(context.Background(), "/layout/admins")
	require.NoError(t, err)
	assert.Equal(t, "/login", nav.Redirect)
	assert.Equal(t, "expired-token", session.Token())

	nav, err = router.Navigate(context.Background(), "/login")
	require.NoError(t, err)
	require.False(t, nav.IsRedirect())
	assert.Equal(t, PageLogin, nav.Route.Name)
	assert.Equal(t, "expired-token", session.Token())
	assert.Equal(t, 2, provider.Calls())
}

func TestRouter_MalformedPathDropsOnlyThatRoute(t *testing.T) {
	menus := &api.AuthMenus{Menus: []api.MenuNode{
		{Id: 1, Title: "System"},
		{Id: 2, ParentId: 1, Path: "/admins", Name: "Admins", Component: "system/Admins"},
		{Id: 3, ParentId: 1, Path: "/files/*/x", Name: "Files", Component: "system/Files"},
		{Id: 4, ParentId: 1, Path: "/members", Name: "Members", Component: "system/Members"},
	}}
	session := newTestSession(t, "token-1")
	events := make(chan api.ClientEvent, 8)
	router := newTestRouter(t, session, &staticMenuProvider{menus: menus}, events)

	require.NoError(t, router.LoadDynamicRoutes(context.Background()))
	assert.True(t, router.HasRoute("/layout/admins"))
	assert.True(t, router.HasRoute("/layout/members"))
	_, ok := router.RouteByName("Files")
	assert.False(t, ok)
	assert.Len(t, router.Routes(), 2)
	require.Len(t, session.RoleMenu(), 1)
	assert.Equal(t, []uint{2, 3, 4}, treeIds(session.RoleMenu()[0].Children))
	assert.Equal(t, []api.ClientEventType{api.ClientEventType_RoutesLoaded}, drainEvents(events))

	nav, err := router.Navigate(context.Background(), "/layout/admins")
	require.NoError(t, err)
	assert.Equal(t, "Admins", nav.Route.Name)
}

func TestRouter_InvalidEntryDroppedOthersLoad(t *testing.T) {
	menus := &api.AuthMenus{
		Menus: []api.MenuNode{
			{Id: 1, Title: "System"},
			{Id: 2, ParentId: 1, Path: "/admins", Name: "Admins", Component: "system/Admins"},
			{Id: 3, ParentId: 1, Path: "/nameless", Component: "system/Nameless"},
			{Id: 0, Path: "/ghost", Name: "Ghost", Component: "system/Ghost"},
		},
		Permissions: []string{"admin:create"},
	}
	session := newTestSession(t, "token-1")
	router := newTestRouter(t, session, &staticMenuProvider{menus: menus}, nil)

	require.NoError(t, router.LoadDynamicRoutes(context.Background()))
	assert.True(t, router.HasRoute("/layout/admins"))
	assert.False(t, router.HasRoute("/layout/nameless"))
	assert.False(t, router.HasRoute("/layout/ghost"))
	require.Equal(t, []uint{1}, treeIds(session.RoleMenu()))
	assert.Equal(t, []uint{2}, treeIds(session.RoleMenu()[0].Children))
	assert.True(t, session.HasPermission("admin:create"))
}

func TestRouter_HooksMayUseRouter(t *testing.T) {
	var router *Router
	var seen []string
	hook := &NavigationHook{
		After: func(ctx *NavigationContext, nav *Navigation) error {
			seen = append(seen, "after:"+router.Current())
			return nil
		},
		OnFinally: func(ctx *NavigationContext, nav *Navigation) error {
			seen = append(seen, "finally:"+router.Current())
			router.AddHook(&NavigationHook{})
			return nil
		},
	}
	router = newTestRouter(t, newTestSession(t, ""), &staticMenuProvider{}, nil, hook)

	done := make(chan error, 1)
	go func() {
		_, err := router.Navigate(context.Background(), "/login")
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("navigation did not return while a hook used the router")
	}
	assert.Equal(t, []string{"after:", "finally:/login"}, seen)
	assert.Equal(t, "/login", router.Current())
	assert.Len(t, router.hooks.Hooks(), 2)
}

func TestRouter_BeforeHookRedirect(t *testing.T) {
	var after, errs int
	hook := &NavigationHook{
		Before: func(ctx *NavigationContext) error {
			if ctx.To == "/layout/secret" {
				return RedirectTo("/layout")
			}
			return nil
		},
		After: func(ctx *NavigationContext, nav *Navigation) error { after++; return nil },
		Error: func(ctx *NavigationContext, err error) error { errs++; return nil },
	}
	provider := &staticMenuProvider{menus: fixtureMenus(t)}
	router := newTestRouter(t, newTestSession(t, "token-1"), provider, nil, hook)

	nav, err := router.Navigate(context.Background(), "/layout/secret")
	require.NoError(t, err)
	assert.Equal(t, "/layout", nav.Redirect)
	assert.Equal(t, 0, provider.Calls())
	assert.Equal(t, 1, after)
	assert.Equal(t, 0, errs)
	assert.Equal(t, "", router.Current())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/layout/secret", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/layout", rec.Header().Get("Location"))
}
