package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/normaladmin/go-console-sdk/api"
	"github.com/normaladmin/go-console-sdk/util"
)

// NewMenusCommand prints the signed-in operator's menu tree and permissions.
func NewMenusCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "menus",
		Short: "Print the role menu tree",
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

			if asJSON {
				raw, err := util.Encode(struct {
					Menus       []*api.MenuTreeNode `json:"menus"`
					Permissions []string            `json:"permissions"`
				}{client.Session.RoleMenu(), client.Session.Permissions()})
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return err
			}
			printMenuTree(cmd.OutOrStdout(), client.Session.RoleMenu(), 0)
			if perms := client.Session.Permissions(); len(perms) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "\npermissions: %s\n", strings.Join(perms, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of an indented tree")
	return cmd
}

func printMenuTree(w io.Writer, nodes []*api.MenuTreeNode, depth int) {
	for _, node := range nodes {
		line := strings.Repeat("  ", depth) + node.Title
		if node.Path != "" {
			line += " (" + node.Path + ")"
		}
		fmt.Fprintln(w, line)
		printMenuTree(w, node.Children, depth+1)
	}
}
