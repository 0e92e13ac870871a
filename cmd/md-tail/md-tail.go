package main

import (
	"context"
	"encoding/json"
	"os"
	"strconv"

	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"

	"github.com/fedops/mdpipe/internal/pkg/application/history"
	"github.com/fedops/mdpipe/internal/pkg/application/pipeline"
)

const appName string = "md-tail"

// md-tail renders the most recent timestamp records as a json array for
// downstream plotting tools.
func main() {
	appVersion := buildinfo.SourceVersion()

	ctx, log, cleanup := o11y.Init(context.Background(), appName, appVersion, "json")
	defer cleanup()

	ctx = logging.NewContextWithLogger(ctx, log)

	cfg, err := pipeline.LoadConfigurationFromFile(
		env.GetVariableOrDefault(ctx, "MDPIPE_CONFIG_FILE", "/etc/mdpipe/config.yaml"),
	)
	if err != nil {
		log.Error("failed to load configuration", "err", err.Error())
		os.Exit(2)
	}

	logFile := env.GetVariableOrDefault(ctx, "MDPIPE_HISTORY_FILE", cfg.History.LogFile)
	if logFile == "" {
		log.Error("no timestamp log file configured")
		os.Exit(2)
	}

	limit, err := strconv.Atoi(env.GetVariableOrDefault(ctx, "MDPIPE_TAIL_LIMIT", "10"))
	if err != nil || limit < 0 {
		log.Error("tail limit must be a non negative integer")
		os.Exit(2)
	}

	records, err := history.NewRecorder(logFile).Tail(ctx, limit)
	if err != nil {
		log.Error("failed to read timestamp log", "err", err.Error())
		os.Exit(3)
	}

	body, err := json.MarshalIndent(history.Export(records), "", "  ")
	if err != nil {
		log.Error("failed to render records", "err", err.Error())
		os.Exit(3)
	}

	os.Stdout.Write(body)
	os.Stdout.Write([]byte("\n"))
}
