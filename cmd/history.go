package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/mealdesk/mealdesk/internal/config"
	"github.com/mealdesk/mealdesk/internal/database"
	"github.com/spf13/cobra"
)

var historyCmdFlags struct {
	Database   string
	Limit      int
	WhatsappID string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent dashboard activity",
	Long:  `Display the orders created, updated and canceled through the dashboard, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := historyCmdFlags.Database
		if dbPath == "" {
			cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			dbPath = cfg.Database.Path
		}

		db, err := database.New(dbPath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close() //nolint: errcheck

		var events []database.Event
		if historyCmdFlags.WhatsappID != "" {
			events, err = db.GetEventsByWhatsappID(cmd.Context(), historyCmdFlags.WhatsappID)
		} else {
			events, err = db.GetEvents(cmd.Context(), historyCmdFlags.Limit)
		}
		if err != nil {
			return fmt.Errorf("failed to get history: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No activity recorded yet.")
			return nil
		}

		fmt.Fprintln(out, "Recent Activity:")
		for _, e := range events {
			fmt.Fprintf(out, "  %s  %-15s  %-15s  %s  by %s",
				e.EventTime.Format("2006-01-02 15:04:05"), e.Action, e.WhatsappID, e.OrderDate, e.Actor)
			if e.Detail != "" {
				fmt.Fprintf(out, "  (%s)", e.Detail)
			}
			fmt.Fprintf(out, "  %s\n", humanize.Time(e.EventTime))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyCmdFlags.Database, "database", "", "Path to the history database (default: database.path from the config)")
	historyCmd.Flags().IntVarP(&historyCmdFlags.Limit, "limit", "n", 20, "Maximum number of entries to show")
	historyCmd.Flags().StringVar(&historyCmdFlags.WhatsappID, "whatsapp-id", "", "Only show the activity of one user")
	rootCmd.AddCommand(historyCmd)
}
