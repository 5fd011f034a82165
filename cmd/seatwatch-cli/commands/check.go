package commands

import (
	"context"
	"log/slog"
	"os"
	"time"

	"seatwatch/lib/scrapers/flexportal"
	"seatwatch/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Logs in, fetches the target course once and prints its sections.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		err := cfg.ValidatePortal()
		if err != nil {
			serviceutil.Fatal("invalid config", err)
		}
		source, err := cfg.NewPortalSource()
		if err != nil {
			serviceutil.Fatal("failed to initialize portal source", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Second*60)
		defer cancel()

		client, err := source.Acquire(ctx)
		if err != nil {
			serviceutil.Fatal("failed to acquire session", err)
		}
		sections, err := client.FetchSections(ctx, cfg.Course.Code)
		if err != nil {
			serviceutil.Fatal("failed to fetch sections", err)
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Course", "Section", "Seats", "Status"})
		for _, s := range sections {
			status := "AVAILABLE"
			if s.Full {
				status = "FULL"
			}
			t.AppendRow(table.Row{s.Course, s.Name, s.Seats, status})
		}
		t.Render()

		slog.Info(
			"seat status",
			"course", cfg.Course.Code,
			"section", cfg.Course.Section,
			"open_seats", flexportal.OpenSeats(sections, cfg.Course.Section),
		)
	},
}
