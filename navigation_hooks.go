package console

import (
	"errors"
	"fmt"
	"sync"

	"github.com/normaladmin/go-console-sdk/util"
)

// NavigationContext is passed to hooks around every guard evaluation.
type NavigationContext struct {
	// From is the path of the last successful navigation, empty on the first one.
	From string
	// To is the requested path
	To string
	// Authenticated reports whether a credential was present when the guard started
	Authenticated bool
	// Retry is set on the single re-issued navigation after routes were loaded
	Retry bool
}

// NavigationHook represents a hook that runs around navigation guard evaluation
type NavigationHook struct {
	// Before is called before the guard runs. An error aborts the navigation
	// unless it is a redirect from RedirectTo.
	Before func(ctx *NavigationContext) error
	// After is called with the guard's decision (only if Before didn't error)
	After func(ctx *NavigationContext, nav *Navigation) error
	// OnFinally is called after the guard regardless of errors
	OnFinally func(ctx *NavigationContext, nav *Navigation) error
	// Error is called when the navigation fails
	Error func(ctx *NavigationContext, err error) error
}

func NewNavigationHook(
	before func(ctx *NavigationContext) error,
	after func(ctx *NavigationContext, nav *Navigation) error,
	onFinally func(ctx *NavigationContext, nav *Navigation) error,
	onError func(ctx *NavigationContext, err error) error,
) *NavigationHook {
	return &NavigationHook{
		Before:    before,
		After:     after,
		OnFinally: onFinally,
		Error:     onError,
	}
}

// BeforeNavigationError represents an error that occurred during a before hook
type BeforeNavigationError struct {
	HookIndex int
	Err       error
}

func (e *BeforeNavigationError) Error() string {
	return fmt.Sprintf("before navigation hook %d failed: %v", e.HookIndex, e.Err)
}

func (e *BeforeNavigationError) Unwrap() error {
	return e.Err
}

// AfterNavigationError represents an error that occurred during an after hook
type AfterNavigationError struct {
	HookIndex int
	Err       error
}

func (e *AfterNavigationError) Error() string {
	return fmt.Sprintf("after navigation hook %d failed: %v", e.HookIndex, e.Err)
}

func (e *AfterNavigationError) Unwrap() error {
	return e.Err
}

// NavigationRedirect is returned, usually through RedirectTo, by a Before
// hook that sends the navigation elsewhere instead of aborting it.
type NavigationRedirect struct {
	Path string
}

func (e *NavigationRedirect) Error() string {
	return fmt.Sprintf("navigation redirected to %s", e.Path)
}

// RedirectTo makes a Before hook skip the guard and redirect to path.
func RedirectTo(path string) error {
	return &NavigationRedirect{Path: path}
}

// NavigationHookRunner runs before hooks in registration order and every other
// kind in reverse order. Each run works on a snapshot of the hook list, so a
// hook may add or clear hooks without affecting the navigation in progress.
type NavigationHookRunner struct {
	mu    sync.RWMutex
	hooks []*NavigationHook
}

func NewNavigationHookRunner(hooks []*NavigationHook) *NavigationHookRunner {
	return &NavigationHookRunner{
		hooks: append([]*NavigationHook(nil), hooks...),
	}
}

func (r *NavigationHookRunner) Hooks() []*NavigationHook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*NavigationHook(nil), r.hooks...)
}

// RunBeforeHooks stops at the first failing hook. A *NavigationRedirect is
// returned as is; any other error is wrapped in a BeforeNavigationError.
func (r *NavigationHookRunner) RunBeforeHooks(ctx *NavigationContext) error {
	for i, hook := range r.Hooks() {
		if hook.Before == nil {
			continue
		}
		err := hook.Before(ctx)
		if err == nil {
			continue
		}
		var redirect *NavigationRedirect
		if errors.As(err, &redirect) {
			util.Debugf("Before navigation hook %d redirected %s to %s", i, ctx.To, redirect.Path)
			return redirect
		}
		util.Errorf("Before navigation hook %d failed: %v", i, err)
		return &BeforeNavigationError{HookIndex: i, Err: err}
	}
	return nil
}

func (r *NavigationHookRunner) RunAfterHooks(ctx *NavigationContext, nav *Navigation) error {
	hooks := r.Hooks()
	for i := len(hooks) - 1; i >= 0; i-- {
		if hooks[i].After == nil {
			continue
		}
		if err := hooks[i].After(ctx, nav); err != nil {
			util.Errorf("After navigation hook %d failed: %v", i, err)
			return &AfterNavigationError{HookIndex: i, Err: err}
		}
	}
	return nil
}

func (r *NavigationHookRunner) RunOnFinallyHooks(ctx *NavigationContext, nav *Navigation) {
	hooks := r.Hooks()
	for i := len(hooks) - 1; i >= 0; i-- {
		if hooks[i].OnFinally == nil {
			continue
		}
		if err := hooks[i].OnFinally(ctx, nav); err != nil {
			util.Errorf("OnFinally navigation hook %d failed: %v", i, err)
		}
	}
}

func (r *NavigationHookRunner) RunErrorHooks(ctx *NavigationContext, navErr error) {
	hooks := r.Hooks()
	for i := len(hooks) - 1; i >= 0; i-- {
		if hooks[i].Error == nil {
			continue
		}
		if err := hooks[i].Error(ctx, navErr); err != nil {
			util.Errorf("Error navigation hook %d failed: %v", i, err)
		}
	}
}

func (r *NavigationHookRunner) AddHook(hook *NavigationHook) {
	if hook == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

func (r *NavigationHookRunner) ClearHooks() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = nil
}
