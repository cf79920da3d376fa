package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	console "github.com/normaladmin/go-console-sdk"
)

func main() {
	client, err := console.NewClient(&console.Options{PageURL: os.Getenv("CONSOLE_PAGE_URL")})
	if err != nil {
		log.Fatalf("Error initializing client: %v", err)
	}
	defer client.Close()

	beforeHook := func(nav *console.NavigationContext) error {
		fmt.Printf("Before hook: %q -> %q (authenticated: %t)\n", nav.From, nav.To, nav.Authenticated)
		if strings.HasPrefix(nav.To, "/layout/internal") {
			return errors.New("internal pages are disabled")
		}
		return nil
	}

	afterHook := func(nav *console.NavigationContext, result *console.Navigation) error {
		if result.IsRedirect() {
			fmt.Printf("After hook: %q redirected to %q\n", nav.To, result.Redirect)
			return nil
		}
		fmt.Printf("After hook: %q resolved to route %s (retry: %t)\n", nav.To, result.Route.Name, nav.Retry)
		return nil
	}

	onFinallyHook := func(nav *console.NavigationContext, result *console.Navigation) error {
		fmt.Printf("OnFinally hook: completed navigation to %q\n", nav.To)
		return nil
	}

	errorHook := func(nav *console.NavigationContext, navErr error) error {
		fmt.Printf("Error hook: navigation to %q failed: %v\n", nav.To, navErr)
		return nil
	}

	client.Router.AddHook(console.NewNavigationHook(beforeHook, afterHook, onFinallyHook, errorHook))

	ctx := context.Background()
	if _, err := client.Login(ctx, os.Getenv("CONSOLE_USERNAME"), os.Getenv("CONSOLE_PASSWORD")); err != nil {
		log.Fatalf("Error signing in: %v", err)
	}

	for _, path := range []string{"/", "/layout/admins", "/layout/internal/debug", "/layout/nowhere"} {
		if _, err := client.Navigate(ctx, path); err != nil {
			log.Printf("Navigate(%s): %v", path, err)
		}
	}
}
