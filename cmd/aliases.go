package cmd

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/zjrosen/symtab/internal/server"
)

var aliasCmd = &cobra.Command{
	Use:   "alias <name> <alias>",
	Short: "Register an alias for a symbol",
	Long: `Register alias as a name sharing the array bound to name. Registered
names are not removed by "rm"; use "unalias" instead.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp server.AliasResponse
		body := server.AliasRequest{Alias: args[1]}
		if err := newAPIClient(daemonAddr()).do(cmd.Context(), http.MethodPost, "/symbols/"+url.PathEscape(args[0])+"/alias", nil, body, &resp); err != nil {
			return err
		}
		if jsonOutput {
			return newFormatter(cmd.OutOrStdout()).FormatJSON(resp)
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "registered %s -> %s\n", resp.Alias, resp.Name)
		return err
	},
}

var unaliasCmd = &cobra.Command{
	Use:   "unalias <alias>",
	Short: "Unregister an alias and remove it from the table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return newAPIClient(daemonAddr()).do(cmd.Context(), http.MethodDelete, "/aliases/"+url.PathEscape(args[0]), nil, nil, nil)
	},
}

func init() {
	rootCmd.AddCommand(aliasCmd, unaliasCmd)
}
