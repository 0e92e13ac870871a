package main

import (
	"testing"

	"github.com/fedops/mdpipe/internal/pkg/application/freshness"
	"github.com/matryer/is"
)

func TestAcceptedDocumentsAlwaysPassThrough(t *testing.T) {
	is := is.New(t)

	for _, outcome := range []freshness.Outcome{
		freshness.OutcomeFresh,
		freshness.OutcomeNoValidUntil,
		freshness.OutcomeNoFreshnessConfigured,
		freshness.OutcomeNoCreationInstant,
	} {
		is.True(emitDocument(outcome, false))
		is.True(emitDocument(outcome, true)) // quiet mode only affects warnings
	}
}

func TestQuietModeWithholdsDocumentOnWarnings(t *testing.T) {
	is := is.New(t)

	for _, outcome := range []freshness.Outcome{
		freshness.OutcomeExpirationImminent,
		freshness.OutcomeStale,
	} {
		is.True(emitDocument(outcome, false)) // warnings pass through by default
		is.True(!emitDocument(outcome, true))
	}
}
