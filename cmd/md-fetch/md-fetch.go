package main

import (
	"context"
	"os"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/google/uuid"

	"github.com/fedops/mdpipe/internal/pkg/application/pipeline"
	"github.com/fedops/mdpipe/internal/pkg/infrastructure/fetch"
)

const appName string = "md-fetch"

// md-fetch is the first stage of a metadata refresh pipeline. It performs a
// conditional GET against the configured source and writes the document to
// stdout when the source returned new content. A cache hit exits with code 1
// so that a pipeline run driven by cron can skip the remaining stages.
func main() {
	appVersion := buildinfo.SourceVersion()

	ctx, log, cleanup := o11y.Init(context.Background(), appName, appVersion, "json")
	defer cleanup()

	log = log.With("run_id", uuid.NewString())
	ctx = logging.NewContextWithLogger(ctx, log)

	cfg, err := pipeline.LoadConfigurationFromFile(
		env.GetVariableOrDefault(ctx, "MDPIPE_CONFIG_FILE", "/etc/mdpipe/config.yaml"),
	)
	if err != nil {
		log.Error("failed to load configuration", "err", err.Error())
		os.Exit(2)
	}

	sourceURL := env.GetVariableOrDefault(ctx, "MDPIPE_SOURCE_URL", cfg.Source.URL)
	cacheFile := env.GetVariableOrDefault(ctx, "MDPIPE_CACHE_FILE", cfg.Source.CacheFile)

	if sourceURL == "" || cacheFile == "" {
		log.Error("no metadata source url or cache file configured")
		os.Exit(2)
	}

	timeout, err := time.ParseDuration(env.GetVariableOrDefault(ctx, "MDPIPE_FETCH_TIMEOUT", "30s"))
	if err != nil {
		log.Error("fetch timeout must be a valid duration", "err", err.Error())
		os.Exit(2)
	}

	f := fetch.New(sourceURL, cacheFile,
		fetch.Debug(env.GetVariableOrDefault(ctx, "MDPIPE_DEBUG_CLIENT", "false")),
		fetch.Timeout(timeout),
	)

	result, err := f.Fetch(ctx)
	if err != nil {
		log.Error("failed to fetch metadata", "url", sourceURL, "err", err.Error())
		os.Exit(3)
	}

	if result.Outcome == fetch.OutcomeNotModified {
		log.Info("metadata source not modified, skipping remaining stages", "url", sourceURL)
		os.Exit(1)
	}

	log.Info("fetched fresh metadata", "url", sourceURL, "bytes", len(result.Document))

	if _, err := os.Stdout.Write(result.Document); err != nil {
		log.Error("failed to write document to stdout", "err", err.Error())
		os.Exit(3)
	}
}
