package console

import (
	"context"

	"github.com/open-feature/go-sdk/pkg/openfeature"
)

// MenuTreeFlag is the object flag that resolves to the whole menu tree.
const MenuTreeFlag = "menus"

// PermissionFeatureProvider implements the FeatureProvider interface on top of
// the loaded permission set. Boolean flags are permission strings, string
// flags resolve a route name to its path and object flags resolve a route name
// to its menu entry.
type PermissionFeatureProvider struct {
	Session *Session
	Router  *Router
}

// Metadata returns the metadata of the provider
func (p PermissionFeatureProvider) Metadata() openfeature.Metadata {
	return openfeature.Metadata{Name: "console-permission-provider"}
}

func (p PermissionFeatureProvider) notReady() openfeature.ProviderResolutionDetail {
	return openfeature.ProviderResolutionDetail{
		ResolutionError: openfeature.NewProviderNotReadyResolutionError("permissions have not been loaded"),
		Reason:          openfeature.ErrorReason,
	}
}

func (p PermissionFeatureProvider) ready() bool {
	return p.Session != nil && p.Session.HasRoleMenu()
}

// BooleanEvaluation reports whether the session holds the permission named by flag
func (p PermissionFeatureProvider) BooleanEvaluation(ctx context.Context, flag string, defaultValue bool, evalCtx openfeature.FlattenedContext) openfeature.BoolResolutionDetail {
	if !p.ready() {
		return openfeature.BoolResolutionDetail{Value: defaultValue, ProviderResolutionDetail: p.notReady()}
	}
	if p.Session.HasPermission(flag) {
		return openfeature.BoolResolutionDetail{Value: true, ProviderResolutionDetail: openfeature.ProviderResolutionDetail{Reason: openfeature.TargetingMatchReason}}
	}
	return openfeature.BoolResolutionDetail{Value: false, ProviderResolutionDetail: openfeature.ProviderResolutionDetail{Reason: openfeature.DisabledReason}}
}

// StringEvaluation returns the path of the route named by flag
func (p PermissionFeatureProvider) StringEvaluation(ctx context.Context, flag string, defaultValue string, evalCtx openfeature.FlattenedContext) openfeature.StringResolutionDetail {
	if !p.ready() || p.Router == nil {
		return openfeature.StringResolutionDetail{Value: defaultValue, ProviderResolutionDetail: p.notReady()}
	}
	route, ok := p.Router.RouteByName(flag)
	if !ok {
		return openfeature.StringResolutionDetail{
			Value: defaultValue,
			ProviderResolutionDetail: openfeature.ProviderResolutionDetail{
				ResolutionError: openfeature.NewFlagNotFoundResolutionError("no route named " + flag), Reason: openfeature.ErrorReason,
			},
		}
	}
	return openfeature.StringResolutionDetail{Value: route.Path, ProviderResolutionDetail: openfeature.ProviderResolutionDetail{Reason: openfeature.TargetingMatchReason}}
}

// FloatEvaluation is not supported; permissions have no numeric form
func (p PermissionFeatureProvider) FloatEvaluation(ctx context.Context, flag string, defaultValue float64, evalCtx openfeature.FlattenedContext) openfeature.FloatResolutionDetail {
	return openfeature.FloatResolutionDetail{
		Value: defaultValue,
		ProviderResolutionDetail: openfeature.ProviderResolutionDetail{
			ResolutionError: openfeature.NewTypeMismatchResolutionError("permission flags are not numeric"), Reason: openfeature.ErrorReason,
		},
	}
}

// IntEvaluation is not supported; permissions have no numeric form
func (p PermissionFeatureProvider) IntEvaluation(ctx context.Context, flag string, defaultValue int64, evalCtx openfeature.FlattenedContext) openfeature.IntResolutionDetail {
	return openfeature.IntResolutionDetail{
		Value: defaultValue,
		ProviderResolutionDetail: openfeature.ProviderResolutionDetail{
			ResolutionError: openfeature.NewTypeMismatchResolutionError("permission flags are not numeric"), Reason: openfeature.ErrorReason,
		},
	}
}

// ObjectEvaluation returns the menu entry of the route named by flag, or the
// menu tree for MenuTreeFlag
func (p PermissionFeatureProvider) ObjectEvaluation(ctx context.Context, flag string, defaultValue interface{}, evalCtx openfeature.FlattenedContext) openfeature.InterfaceResolutionDetail {
	if !p.ready() {
		return openfeature.InterfaceResolutionDetail{Value: defaultValue, ProviderResolutionDetail: p.notReady()}
	}
	if flag == MenuTreeFlag {
		return openfeature.InterfaceResolutionDetail{Value: p.Session.RoleMenu(), ProviderResolutionDetail: openfeature.ProviderResolutionDetail{Reason: openfeature.TargetingMatchReason}}
	}
	if p.Router != nil {
		if route, ok := p.Router.RouteByName(flag); ok && route.Menu != nil {
			return openfeature.InterfaceResolutionDetail{Value: *route.Menu, ProviderResolutionDetail: openfeature.ProviderResolutionDetail{Reason: openfeature.TargetingMatchReason}}
		}
	}
	return openfeature.InterfaceResolutionDetail{
		Value: defaultValue,
		ProviderResolutionDetail: openfeature.ProviderResolutionDetail{
			ResolutionError: openfeature.NewFlagNotFoundResolutionError("no menu entry named " + flag), Reason: openfeature.ErrorReason,
		},
	}
}

// Hooks returns hooks
func (p PermissionFeatureProvider) Hooks() []openfeature.Hook {
	return []openfeature.Hook{}
}
