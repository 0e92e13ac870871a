package main

import (
	"context"
	"net/http"
	"os"

	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"

	"github.com/fedops/mdpipe/internal/pkg/application/history"
	"github.com/fedops/mdpipe/internal/pkg/application/pipeline"
	"github.com/fedops/mdpipe/internal/pkg/application/status"
	"github.com/fedops/mdpipe/internal/pkg/infrastructure/router"
	"github.com/fedops/mdpipe/internal/pkg/presentation/api/mdstatus"
)

const appName string = "md-status"

// md-status serves the cached metadata document and the timestamp history
// over http, so that operators can inspect the state of a refresh pipeline
// without shell access to the host running it.
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

	expirationWarningLen, freshnessLen, err := cfg.Intervals.Parse()
	if err != nil {
		log.Error("failed to parse intervals", "err", err.Error())
		os.Exit(2)
	}

	policyFile := env.GetVariableOrDefault(ctx, "MDPIPE_AUTHZ_POLICY_FILE", "/etc/mdpipe/authz.rego")
	policies, err := os.Open(policyFile)
	if err != nil {
		log.Error("failed to open authz policies", "file", policyFile, "err", err.Error())
		os.Exit(2)
	}
	defer policies.Close()

	recorder := history.NewRecorder(
		env.GetVariableOrDefault(ctx, "MDPIPE_HISTORY_FILE", cfg.History.LogFile),
	)

	app := status.New(
		env.GetVariableOrDefault(ctx, "MDPIPE_CACHE_FILE", cfg.Source.CacheFile),
		recorder, expirationWarningLen, freshnessLen,
	)

	r := router.New(appName)

	if err := mdstatus.RegisterHandlers(ctx, r, policies, app); err != nil {
		log.Error("failed to register handlers", "err", err.Error())
		os.Exit(2)
	}

	port := env.GetVariableOrDefault(ctx, "SERVICE_PORT", "8080")
	log.Info("starting to listen for connections", "port", port)

	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Error("failed to listen for connections", "err", err.Error())
		os.Exit(3)
	}
}
