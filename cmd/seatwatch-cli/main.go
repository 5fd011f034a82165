package main

import (
	"context"

	"seatwatch/cmd/seatwatch-cli/commands"
	"seatwatch/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "seatwatch-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
