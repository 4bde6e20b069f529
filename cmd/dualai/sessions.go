package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/dualai/internal/display"
	"github.com/spf13/cobra"
)

var sessionsFlags struct {
	json bool
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect recorded sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded sessions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := startOrchestrator(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer stopOrchestrator(o)

		summaries, err := o.Store().List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}

		rows := make([]display.SessionRow, 0, len(summaries))
		for _, s := range summaries {
			rows = append(rows, display.SessionRow{
				ID:          s.ID,
				Request:     s.Request,
				State:       s.State,
				Consensus:   s.Consensus,
				RoundsUsed:  s.RoundsUsed,
				Implementer: s.Implementer,
				StartedAt:   s.StartedAt,
			})
		}
		display.New(os.Stdout, display.Options{Width: terminalWidth()}).Sessions(rows)
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a recorded session (ID or prefix of at least 8 characters)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		o, err := startOrchestrator(ctx, true)
		if err != nil {
			return err
		}
		defer stopOrchestrator(o)

		id, err := o.Store().ResolveID(ctx, args[0])
		if err != nil {
			return err
		}
		rec, err := o.Store().LoadRecord(ctx, id)
		if err != nil {
			return err
		}

		if sessionsFlags.json {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		}
		display.New(os.Stdout, display.Options{Width: terminalWidth()}).Record(*rec)
		return nil
	},
}

func init() {
	sessionsShowCmd.Flags().BoolVar(&sessionsFlags.json, "json", false, "Print the record as JSON")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
}
