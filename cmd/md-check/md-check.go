package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/google/uuid"

	"github.com/fedops/mdpipe/internal/pkg/application/freshness"
	"github.com/fedops/mdpipe/internal/pkg/application/pipeline"
	"github.com/fedops/mdpipe/pkg/isotime"
	"github.com/fedops/mdpipe/pkg/metadata"
)

const appName string = "md-check"

// Exit codes follow the convention shared by all pipeline stages:
// 0 success, 1 warning, 2 usage or initialization error, 3 unexpected
// internal failure, 4 expired metadata, 5 creation in the future,
// 6 overlapping sub intervals.
const (
	exitOK       = 0
	exitWarning  = 1
	exitUsage    = 2
	exitInternal = 3
	exitExpired  = 4
	exitFuture   = 5
	exitOverlap  = 6
)

// md-check evaluates the temporal validity of the metadata document on
// stdin. A usable document is passed through to stdout so that the stage
// composes as a filter; an unusable one is withheld and the exit code names
// the anomaly. With MDPIPE_QUIET=true a warning also withholds the document,
// so a strict pipeline can stop on warnings while the exit code still
// distinguishes them from failures.
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
		os.Exit(exitUsage)
	}

	expirationWarningLen, freshnessLen, err := cfg.Intervals.Parse()
	if err != nil {
		log.Error("failed to parse intervals", "err", err.Error())
		os.Exit(exitUsage)
	}

	document, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Error("failed to read document from stdin", "err", err.Error())
		os.Exit(exitInternal)
	}

	model, err := metadata.Extract(bytes.NewReader(document))
	if err != nil {
		log.Error("failed to extract metadata attributes", "err", err.Error())
		os.Exit(exitUsage)
	}

	currentTime := isotime.Now()

	verdict := freshness.Evaluate(model, currentTime)

	switch verdict.Status {
	case freshness.StatusExpired:
		log.Error("metadata has expired",
			slog.String("valid_until", isotime.FormatDateTime(verdict.Timestamp)),
			slog.Int64("seconds_since_expiration", verdict.OffsetSeconds),
		)
		os.Exit(exitExpired)
	case freshness.StatusCreatedInFuture:
		log.Error("metadata was created in the future",
			slog.String("creation_instant", isotime.FormatDateTime(verdict.Timestamp)),
			slog.Int64("seconds_into_future", verdict.OffsetSeconds),
		)
		os.Exit(exitFuture)
	}

	warning, err := freshness.EvaluateWarning(model, currentTime, expirationWarningLen, freshnessLen)
	if err != nil {
		log.Error("warning evaluation failed", "err", err.Error())
		os.Exit(exitInternal)
	}

	quiet := env.GetVariableOrDefault(ctx, "MDPIPE_QUIET", "false") == "true"

	exitCode := exitOK

	switch warning.Outcome {
	case freshness.OutcomeSubIntervalsOverlap:
		log.Error("configured sub intervals overlap the validity interval",
			slog.String("expiration_warning", expirationWarningLen.String()),
			slog.String("freshness", freshnessLen.String()),
			slog.String("validity_interval", isotime.FromSeconds(warning.ValidityIntervalSeconds).String()),
		)
		os.Exit(exitOverlap)
	case freshness.OutcomeExpirationImminent:
		log.Warn("metadata expires soon",
			slog.Int64("seconds_until_expiration", warning.SecondsUntilExpiration),
			slog.String("time_left", isotime.FromSeconds(warning.SecondsUntilExpiration).String()),
		)
		exitCode = exitWarning
	case freshness.OutcomeStale:
		log.Warn("metadata is stale",
			slog.Int64("seconds_since_creation", warning.SecondsSinceCreation),
			slog.String("age", isotime.FromSeconds(warning.SecondsSinceCreation).String()),
		)
		exitCode = exitWarning
	default:
		log.Debug("metadata accepted", "outcome", warning.Outcome.String())
	}

	if emitDocument(warning.Outcome, quiet) {
		if _, err := os.Stdout.Write(document); err != nil {
			log.Error("failed to write document to stdout", "err", err.Error())
			os.Exit(exitInternal)
		}
	}

	os.Exit(exitCode)
}

// emitDocument decides whether the document is passed through to stdout.
// Accepted documents always pass; warnings pass unless quiet mode is on.
func emitDocument(outcome freshness.Outcome, quiet bool) bool {
	return !quiet || !outcome.IsWarning()
}
