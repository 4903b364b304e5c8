package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/zjrosen/symtab/internal/server"
)

var eventsName string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Stream registry lifecycle events",
	Long:  `Print created, updated, deleted, registered, unregistered and cleared events as they happen. Stop with Ctrl+C.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		query := url.Values{}
		if eventsName != "" {
			query.Set("name", eventsName)
		}

		out := cmd.OutOrStdout()
		return newAPIClient(daemonAddr()).stream(cmd.Context(), "/events", query, func(event, data string) error {
			if event == "connected" {
				return nil
			}
			if jsonOutput {
				_, err := fmt.Fprintln(out, data)
				return err
			}

			var ev server.EventResponse
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				return fmt.Errorf("decoding event: %w", err)
			}
			_, err := fmt.Fprintln(out, formatEvent(ev))
			return err
		})
	},
}

func formatEvent(ev server.EventResponse) string {
	line := fmt.Sprintf("%s %-12s %s", ev.Timestamp.Format("15:04:05"), ev.Type, ev.Name)
	switch {
	case ev.Target != "":
		line += " -> " + ev.Target
	case ev.DType != "":
		line += fmt.Sprintf(" %s[%d]", ev.DType, ev.Size)
	case ev.Type == "cleared":
		line += fmt.Sprintf(" %d names", ev.Size)
	}
	return line
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().StringVar(&eventsName, "name", "", "only show events for this name")
}
