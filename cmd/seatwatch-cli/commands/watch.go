package commands

import (
	"seatwatch/lib/serviceutil"
	"seatwatch/services/monitor"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Runs the availability monitor in the foreground until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		service, err := monitor.NewServiceFromConfig(cfg)
		if err != nil {
			serviceutil.Fatal("failed to initialize monitor", err)
		}
		err = service.Run(cmd.Context())
		if err != nil {
			serviceutil.Fatal("monitor exited", err)
		}
	},
}
