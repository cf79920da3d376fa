package main

import (
	"context"
	"log"
	"os"

	"github.com/open-feature/go-sdk/pkg/openfeature"

	console "github.com/normaladmin/go-console-sdk"
)

func main() {
	consoleClient, err := console.NewClient(&console.Options{PageURL: os.Getenv("CONSOLE_PAGE_URL")})
	if err != nil {
		log.Fatal(err)
	}
	defer consoleClient.Close()

	ctx := context.Background()
	if _, err := consoleClient.Login(ctx, os.Getenv("CONSOLE_USERNAME"), os.Getenv("CONSOLE_PASSWORD")); err != nil {
		log.Fatal(err)
	}
	if err := consoleClient.Router.LoadDynamicRoutes(ctx); err != nil {
		log.Fatal(err)
	}

	openfeature.SetProvider(consoleClient.FeatureProvider())
	client := openfeature.NewClient("console")

	canDelete, err := client.BooleanValue(ctx, "admin:delete", false, openfeature.EvaluationContext{})
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("admin:delete granted: %t", canDelete)

	path, err := client.StringValue(ctx, "Admins", "/layout", openfeature.EvaluationContext{})
	if err != nil {
		log.Printf("Admins route unavailable: %v", err)
	}
	log.Printf("Admins route: %s", path)

	details, err := client.ObjectValueDetails(ctx, console.MenuTreeFlag, nil, openfeature.EvaluationContext{})
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Menu tree: %v | %T", details.Value, details.Value)
}
