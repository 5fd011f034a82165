package commands

import (
	"context"
	"log/slog"
	"time"

	"seatwatch/lib/scrapers/flexportal"
	"seatwatch/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(registerCmd)
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Attempts to register for the target course section once.",
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
		result, err := client.Register(ctx, flexportal.RegisterTarget{
			CourseCode: cfg.Course.Code,
			Section:    cfg.Course.Section,
		})
		if err != nil {
			serviceutil.Fatal("registration failed", err)
		}
		slog.Info(
			"registration submitted",
			"course", result.Course,
			"section", result.Section,
			"confirmed", result.Confirmed,
			"message", result.Message,
		)
	},
}
