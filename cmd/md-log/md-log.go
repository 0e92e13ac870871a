package main

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/google/uuid"

	"github.com/fedops/mdpipe/internal/pkg/application/history"
	"github.com/fedops/mdpipe/internal/pkg/application/pipeline"
	"github.com/fedops/mdpipe/pkg/isotime"
	"github.com/fedops/mdpipe/pkg/metadata"
)

const appName string = "md-log"

// md-log records the timestamp triple of the document on stdin and passes
// the document through unchanged. Recording is best effort observability:
// a failed append is reported but never changes the exit status, because
// metadata delivery must not be blocked by it.
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

	logFile := env.GetVariableOrDefault(ctx, "MDPIPE_HISTORY_FILE", cfg.History.LogFile)
	if logFile == "" {
		log.Error("no timestamp log file configured")
		os.Exit(2)
	}

	document, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Error("failed to read document from stdin", "err", err.Error())
		os.Exit(3)
	}

	if _, err := os.Stdout.Write(document); err != nil {
		log.Error("failed to write document to stdout", "err", err.Error())
		os.Exit(3)
	}

	model, err := metadata.Extract(bytes.NewReader(document))
	if err != nil {
		log.Error("failed to extract metadata attributes", "err", err.Error())
		return
	}

	if model.CreationInstant == nil || model.ValidUntil == nil {
		log.Debug("document lacks one or both timestamps, nothing to record")
		return
	}

	recorder := history.NewRecorder(logFile)

	err = recorder.Append(ctx, history.TimestampRecord{
		CurrentTime:     isotime.Now(),
		CreationInstant: *model.CreationInstant,
		ValidUntil:      *model.ValidUntil,
	})
	if err != nil {
		log.Error("failed to append to timestamp log", "err", err.Error())
		return
	}

	log.Debug("timestamp record appended", "log_file", logFile)
}
