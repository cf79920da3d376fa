package commands

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	console "github.com/normaladmin/go-console-sdk"
)

// NewRoutesCommand lists the routes registered from the operator's menu payload.
func NewRoutesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the dynamic routes for the signed-in operator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, cfg, logger, err := newClient(ctx, nil)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			if err := signIn(ctx, client, cfg, logger); err != nil {
				return err
			}
			if err := client.Router.LoadDynamicRoutes(ctx); err != nil {
				return err
			}
			renderRoutes(cmd.OutOrStdout(), client.Router.Routes())
			return nil
		},
	}
}

func renderRoutes(w io.Writer, routes []*console.Route) {
	if len(routes) == 0 {
		_, _ = fmt.Fprintln(w, "(0 routes)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Path", "Component", "Title"})
	for _, route := range routes {
		t.AppendRow(table.Row{route.Name, route.Path, route.Component, route.Title})
	}
	t.Render()
}
