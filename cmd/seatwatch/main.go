package main

import (
	"flag"
	"log/slog"

	"seatwatch/lib/serviceutil"
	"seatwatch/lib/telemetry"
	"seatwatch/services/monitor"
)

func main() {
	verbose := flag.Bool("v", false, "enable verbose logging")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	telemetry.InitSlog(*verbose)
	t, err := telemetry.SetupFromEnv(ctx, "seatwatch")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer t.Shutdown(ctx)

	cfg, err := monitor.LoadConfig()
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	err = cfg.Validate()
	if err != nil {
		serviceutil.Fatal("invalid config", err)
	}

	service, err := monitor.NewServiceFromConfig(cfg)
	if err != nil {
		serviceutil.Fatal("failed to initialize monitor", err)
	}

	err = service.Run(ctx)
	if err != nil {
		serviceutil.Fatal("monitor exited", err)
	}
	slog.Info("shutdown complete")
}
