package commands

import (
	"os"
	"time"

	"seatwatch/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLimit *int
var historyNotifications *bool

func init() {
	historyLimit = historyCmd.Flags().Int("limit", 20, "The maximum number of observations to print.")
	historyNotifications = historyCmd.Flags().Bool("notifications", false, "Print sent notifications instead of observations.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--limit <n>] [--notifications]",
	Short: "Prints recorded seat observations for the target course.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store, err := cfg.OpenStore()
		if err != nil {
			serviceutil.Fatal("failed to open database", err)
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(os.Stdout)

		if *historyNotifications {
			sent, err := store.Notifications(cmd.Context(), cfg.Course.Code, cfg.Course.Section)
			if err != nil {
				serviceutil.Fatal("failed to query notifications", err)
			}
			t.AppendHeader(table.Row{"Time", "Message"})
			for _, n := range sent {
				t.AppendRow(table.Row{n.Time.Format(time.DateTime), n.Message})
			}
			t.Render()
			return
		}

		observations, err := store.History(cmd.Context(), cfg.Course.Code, cfg.Course.Section, *historyLimit)
		if err != nil {
			serviceutil.Fatal("failed to query observations", err)
		}
		t.AppendHeader(table.Row{"Time", "Seats", "Status"})
		for _, o := range observations {
			status := "FULL"
			if o.Available {
				status = "AVAILABLE"
			}
			t.AppendRow(table.Row{o.Time.Format(time.DateTime), o.Seats, status})
		}
		t.Render()
	},
}
