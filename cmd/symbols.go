package cmd

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zjrosen/symtab/internal/presentation"
	"github.com/zjrosen/symtab/internal/server"
	"github.com/zjrosen/symtab/internal/symtab"
)

var (
	lsRegistered  bool
	createName    string
	createDType   string
	createSize    int64
	createKey     string
	previewStyle  string
	previewLimit  int64
	dumpThreshold int64
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List symbols",
	Long:  `List every bound name with its dtype, size, shape and footprint, in insertion order.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		query := url.Values{}
		if lsRegistered {
			query.Set("registered", "true")
		}

		var resp server.ListSymbolsResponse
		if err := newAPIClient(daemonAddr()).do(cmd.Context(), http.MethodGet, "/symbols", query, nil, &resp); err != nil {
			return err
		}
		return newFormatter(cmd.OutOrStdout()).FormatSymbols(presentation.FromAttributesList(resp.Symbols))
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show a symbol's attributes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var attrs symtab.Attributes
		if err := newAPIClient(daemonAddr()).do(cmd.Context(), http.MethodGet, "/symbols/"+url.PathEscape(args[0]), nil, nil, &attrs); err != nil {
			return err
		}
		return newFormatter(cmd.OutOrStdout()).FormatSymbol(presentation.FromAttributes(attrs))
	},
}

var createCmd = &cobra.Command{
	Use:   "create [values...]",
	Short: "Create a symbol",
	Long: `Create a zero-filled array with --size, or an array of the given values.

Example:
  symtab create --dtype int64 --size 10
  symtab create --name w --dtype float64 1.5 nan 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := server.CreateSymbolRequest{Name: createName, DType: createDType}
		switch {
		case len(args) > 0 && cmd.Flags().Changed("size"):
			return fmt.Errorf("--size cannot be combined with values")
		case len(args) > 0:
			for _, v := range args {
				req.Values = append(req.Values, []byte(strconv.Quote(v)))
			}
		default:
			size := createSize
			req.Size = &size
		}

		client := newAPIClient(daemonAddr())
		httpReq, err := client.newRequest(cmd.Context(), http.MethodPost, "/symbols", nil, req)
		if err != nil {
			return err
		}
		if createKey != "" {
			httpReq.Header.Set(server.IdempotencyKeyHeader, createKey)
		}

		var resp server.CreateSymbolResponse
		if err := client.send(httpReq, &resp); err != nil {
			return err
		}
		if jsonOutput {
			return newFormatter(cmd.OutOrStdout()).FormatJSON(resp)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
		return err
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <name>...",
	Short: "Delete unregistered symbols",
	Long:  `Delete names from the table. Registered names and unknown names are left alone.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient(daemonAddr())
		for _, name := range args {
			if err := client.do(cmd.Context(), http.MethodDelete, "/symbols/"+url.PathEscape(name), nil, nil, nil); err != nil {
				return err
			}
		}
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every symbol",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var resp server.ClearResponse
		if err := newAPIClient(daemonAddr()).do(cmd.Context(), http.MethodPost, "/symbols/clear", nil, nil, &resp); err != nil {
			return err
		}
		if jsonOutput {
			return newFormatter(cmd.OutOrStdout()).FormatJSON(resp)
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "removed %d names\n", resp.Removed)
		return err
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview <name>",
	Short: "Print a symbol's elements",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := url.Values{}
		query.Set("style", previewStyle)
		if previewLimit > 0 {
			query.Set("threshold", strconv.FormatInt(previewLimit, 10))
		}

		var resp server.PreviewResponse
		if err := newAPIClient(daemonAddr()).do(cmd.Context(), http.MethodGet, "/symbols/"+url.PathEscape(args[0])+"/preview", query, nil, &resp); err != nil {
			return err
		}
		if jsonOutput {
			return newFormatter(cmd.OutOrStdout()).FormatJSON(resp)
		}
		return newFormatter(cmd.OutOrStdout()).FormatText(resp.Text)
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump [name]",
	Short: "Print attributes and elements of one or all symbols",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := symtab.AllSymbols
		if len(args) == 1 {
			name = args[0]
		}
		query := url.Values{}
		if dumpThreshold > 0 {
			query.Set("threshold", strconv.FormatInt(dumpThreshold, 10))
		}

		var text string
		if err := newAPIClient(daemonAddr()).do(cmd.Context(), http.MethodGet, "/dump/"+url.PathEscape(name), query, nil, &text); err != nil {
			return err
		}
		if text == "" {
			return nil
		}
		return newFormatter(cmd.OutOrStdout()).FormatText(text)
	},
}

var findCmd = &cobra.Command{
	Use:   "find <pattern>",
	Short: "List names matching a regular expression",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := url.Values{}
		query.Set("pattern", args[0])

		var resp server.FindResponse
		if err := newAPIClient(daemonAddr()).do(cmd.Context(), http.MethodGet, "/find", query, nil, &resp); err != nil {
			return err
		}
		if jsonOutput {
			return newFormatter(cmd.OutOrStdout()).FormatJSON(resp)
		}
		for _, name := range resp.Names {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd, infoCmd, createCmd, rmCmd, clearCmd, previewCmd, dumpCmd, findCmd)

	lsCmd.Flags().BoolVarP(&lsRegistered, "registered", "r", false, "only list registered names")

	createCmd.Flags().StringVarP(&createName, "name", "n", "", "name to bind (default: a fresh id_<n>)")
	createCmd.Flags().StringVarP(&createDType, "dtype", "t", "float64", "element type: int64, uint64, uint8, float64, bool")
	createCmd.Flags().Int64VarP(&createSize, "size", "s", 0, "number of zero-filled elements")
	createCmd.Flags().StringVar(&createKey, "idempotency-key", "", "replay the first response for repeated requests with this key")

	previewCmd.Flags().StringVar(&previewStyle, "style", "bare", "preview style: bare or constructor")
	previewCmd.Flags().Int64Var(&previewLimit, "threshold", 0, "truncate arrays of at least this size (default: server setting)")

	dumpCmd.Flags().Int64Var(&dumpThreshold, "threshold", 0, "truncate arrays of at least this size (default: server setting)")
}
