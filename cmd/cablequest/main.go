package main

import (
	"os"

	"cablequest/cmd/cablequest/commands"
	"cablequest/lib/serviceutil"
	"cablequest/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "cablequest")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	if err == nil {
		telemetry.InstrumentPerfStats(ctx)
		defer tel.Shutdown(ctx)
	}

	commands.ExecuteContext(ctx)
}
