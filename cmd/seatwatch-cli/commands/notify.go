package commands

import (
	"fmt"
	"log/slog"

	"seatwatch/lib/notify"
	"seatwatch/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(notifyCmd)
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Sends a test notification through every enabled channel.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		notifier := cfg.NewNotifier()
		if notifier == nil {
			serviceutil.Fatal("cannot send", fmt.Errorf("no notification channel enabled"))
		}

		err := notifier.Notify(cmd.Context(), notify.Notification{
			Subject: "Seatwatch test notification",
			Body:    "If you can read this, delivery is configured correctly.",
		})
		if err != nil {
			serviceutil.Fatal("delivery failed", err)
		}
		slog.Info("test notification delivered")
	},
}
