package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/normaladmin/go-console-sdk/api"
)

// NewServeCommand serves the console shell and relays notifications until interrupted.
func NewServeCommand() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the console shell and relay live notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			events := make(chan api.ClientEvent, 64)
			client, cfg, logger, err := newClient(ctx, events)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()
			if cmd.Flags().Changed("listen") {
				cfg.Listen = listen
			}

			if err := signIn(ctx, client, cfg, logger); err != nil {
				return err
			}
			if err := client.Router.LoadDynamicRoutes(ctx); err != nil {
				return fmt.Errorf("failed to load menus: %w", err)
			}

			client.On(api.MessageType_Notification, func(msg api.Message) {
				if msg.IsRecall() {
					return
				}
				logger.Info("notification", "id", msg.Data["id"], "message", msg.Data["message"])
			})
			client.On(api.MessageType_NotificationRecall, func(msg api.Message) {
				var recall api.RecallEvent
				if err := msg.Decode(&recall); err != nil {
					logger.Warn("malformed recall", "error", err)
					return
				}
				logger.Info("notification recalled", "id", recall.Id)
			})

			eg, egctx := errgroup.WithContext(ctx)

			srv := &http.Server{
				Addr:    cfg.Listen,
				Handler: client.Handler(),
				BaseContext: func(_ net.Listener) context.Context {
					return egctx
				},
				ReadHeaderTimeout: 10 * time.Second,
			}

			eg.Go(func() error {
				logger.Info("serving console", "addr", "http://"+cfg.Listen)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			})

			eg.Go(func() error {
				return relayEvents(egctx, events, logger)
			})

			eg.Go(func() error {
				if err := client.ConnectNotifications(egctx); err != nil {
					logger.Warn("notifications unavailable", "error", err)
				}
				return nil
			})

			eg.Go(func() error {
				<-egctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				logger.Debug("shutting down console server...")
				_ = client.Close()
				return srv.Shutdown(shutdownCtx)
			})

			return eg.Wait()
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Address to serve the console shell on")
	return cmd
}

// relayEvents logs client lifecycle events until ctx is done. A terminal
// reconnect failure is logged but does not stop the server.
func relayEvents(ctx context.Context, events <-chan api.ClientEvent, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-events:
			attrs := []any{"event", event.EventType, "status", event.Status}
			if event.EventData != nil {
				attrs = append(attrs, "data", event.EventData)
			}
			if event.Error != nil {
				logger.Warn("client event", append(attrs, "error", event.Error)...)
				continue
			}
			logger.Debug("client event", attrs...)
		}
	}
}
