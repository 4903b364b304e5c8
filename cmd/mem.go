package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/zjrosen/symtab/internal/config"
	"github.com/zjrosen/symtab/internal/presentation"
	"github.com/zjrosen/symtab/internal/server"
)

var (
	memSetBytes   int64
	memSetPercent float64
	memDisable    bool
)

var memCmd = &cobra.Command{
	Use:   "mem",
	Short: "Show or change the daemon's memory budget",
	Long: `Without flags, print memory in use and the current limit.

The --set-* flags write the memory section of the config file. A running
daemon with the config-reload flag picks the change up without a restart.

Example:
  symtab mem
  symtab mem --set-bytes 1073741824
  symtab mem --set-percent 50`,
	Args: cobra.NoArgs,
	RunE: runMem,
}

func init() {
	rootCmd.AddCommand(memCmd)

	memCmd.Flags().Int64Var(&memSetBytes, "set-bytes", 0, "set an absolute limit in bytes")
	memCmd.Flags().Float64Var(&memSetPercent, "set-percent", 0, "set the limit as a percent of physical memory")
	memCmd.Flags().BoolVar(&memDisable, "disable", false, "turn the memory guard off")
	memCmd.MarkFlagsMutuallyExclusive("set-bytes", "set-percent", "disable")
}

func runMem(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	if flags.Changed("set-bytes") || flags.Changed("set-percent") || flags.Changed("disable") {
		return saveMemory(cmd)
	}

	var resp server.MemoryResponse
	if err := newAPIClient(daemonAddr()).do(cmd.Context(), http.MethodGet, "/memory", nil, nil, &resp); err != nil {
		return err
	}
	return newFormatter(cmd.OutOrStdout()).FormatMemory(presentation.MemoryDTO{
		UsedBytes:  resp.UsedBytes,
		LimitBytes: resp.LimitBytes,
		Entries:    resp.Entries,
		Names:      resp.Names,
		Registered: resp.Registered,
	})
}

func saveMemory(cmd *cobra.Command) error {
	mem := cfg.Memory
	flags := cmd.Flags()
	switch {
	case flags.Changed("disable"):
		mem.Enabled = !memDisable
	case flags.Changed("set-bytes"):
		mem.Enabled = true
		mem.LimitBytes = memSetBytes
	case flags.Changed("set-percent"):
		mem.Enabled = true
		mem.LimitBytes = 0
		mem.LimitPercent = memSetPercent
	}
	if err := config.ValidateMemory(mem); err != nil {
		return err
	}

	path := configWritePath()
	if path == "" {
		return fmt.Errorf("no config path: pass --config")
	}
	if err := config.SaveMemory(path, mem); err != nil {
		return err
	}
	cfg.Memory = mem

	_, err := fmt.Fprintf(cmd.OutOrStdout(), "memory settings saved to %s\n", path)
	return err
}
