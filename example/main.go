package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	console "github.com/normaladmin/go-console-sdk"
	"github.com/normaladmin/go-console-sdk/api"
)

func main() {
	pageURL := os.Getenv("CONSOLE_PAGE_URL")
	if pageURL == "" {
		log.Fatal("CONSOLE_PAGE_URL env var not set: set it to your console origin")
	}

	events := make(chan api.ClientEvent, 16)
	client, err := console.NewClient(&console.Options{
		PageURL:            pageURL,
		ReconnectInterval:  time.Second * 3,
		RequestTimeout:     time.Second * 10,
		ClientEventHandler: events,
	})
	if err != nil {
		log.Fatalf("Error initializing client: %v", err)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if _, err := client.Login(ctx, os.Getenv("CONSOLE_USERNAME"), os.Getenv("CONSOLE_PASSWORD")); err != nil {
		log.Fatalf("Error signing in: %v", err)
	}

	nav, err := client.Navigate(ctx, "/layout/admins")
	if err != nil {
		log.Fatalf("Error navigating: %v", err)
	}
	if nav.IsRedirect() {
		log.Printf("Redirected to %s", nav.Redirect)
	} else {
		log.Printf("Resolved route %s (%s)", nav.Route.Name, nav.Route.Title)
	}

	client.On(api.MessageType_Notification, func(msg api.Message) {
		log.Printf("Notification %v: %v", msg.Data["id"], msg.Data["message"])
	})
	client.On(api.MessageType_NotificationRecall, func(msg api.Message) {
		log.Printf("Notification %v recalled", msg.Data["id"])
	})
	if err := client.ConnectNotifications(ctx); err != nil {
		log.Fatalf("Error connecting notifications: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			log.Printf("Client event: %s %v", event.EventType, event.EventData)
		}
	}
}
