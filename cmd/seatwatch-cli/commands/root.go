package commands

import (
	"context"
	"fmt"
	"os"

	"seatwatch/lib/serviceutil"
	"seatwatch/services/monitor"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "seatwatch-cli",
	Short: "seatwatch-cli checks course seat availability and tests the monitoring setup.",
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() monitor.Config {
	cfg, err := monitor.LoadConfig()
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	return cfg
}
