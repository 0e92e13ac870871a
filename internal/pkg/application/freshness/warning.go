package freshness

import (
	"time"

	"github.com/fedops/mdpipe/pkg/isotime"
	"github.com/fedops/mdpipe/pkg/metadata"
)

// Outcome is the single prioritised result of a warning evaluation.
type Outcome int

const (
	// OutcomeNoValidUntil means the document has no expiration to warn about
	OutcomeNoValidUntil Outcome = iota
	// OutcomeExpirationImminent means expiration falls within the warning interval
	OutcomeExpirationImminent
	// OutcomeNoFreshnessConfigured means no freshness interval was supplied
	OutcomeNoFreshnessConfigured
	// OutcomeNoCreationInstant means staleness cannot be computed
	OutcomeNoCreationInstant
	// OutcomeSubIntervalsOverlap means the two sub intervals together exceed the validity window
	OutcomeSubIntervalsOverlap
	// OutcomeStale means the document is older than the freshness interval
	OutcomeStale
	// OutcomeFresh means no warning applies
	OutcomeFresh
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoValidUntil:
		return "no-valid-until"
	case OutcomeExpirationImminent:
		return "expiration-imminent"
	case OutcomeNoFreshnessConfigured:
		return "no-freshness-configured"
	case OutcomeNoCreationInstant:
		return "no-creation-instant"
	case OutcomeSubIntervalsOverlap:
		return "sub-intervals-overlap"
	case OutcomeStale:
		return "stale"
	case OutcomeFresh:
		return "fresh"
	default:
		return "unknown"
	}
}

// IsWarning reports whether the outcome should be surfaced to an operator.
func (o Outcome) IsWarning() bool {
	return o == OutcomeExpirationImminent || o == OutcomeSubIntervalsOverlap || o == OutcomeStale
}

// WarningVerdict carries the outcome and the numeric values relevant for
// logging it. Fields that were never computed on the taken branch are zero.
type WarningVerdict struct {
	Outcome Outcome

	SecondsUntilExpiration  int64
	SecondsSinceCreation    int64
	ValidityIntervalSeconds int64
}

// EvaluateWarning computes the single warning outcome for a document that
// has already been confirmed valid at the reference time. The branches are
// tried in a fixed priority order and the first applicable one wins, so at
// most one warning is ever surfaced per evaluation; in particular an
// imminent expiration always preempts a staleness warning. A zero length
// expiration warning interval disables imminent expiration warnings, and an
// absent freshness interval disables staleness warnings.
//
// Calling this on a document that is not valid at currentTime violates the
// contract; if that manifests as a negative validity interval it is reported
// as an internal inconsistency error rather than a verdict.
func EvaluateWarning(
	model *metadata.AttributeModel,
	currentTime time.Time,
	expirationWarningLen isotime.Duration,
	freshnessLen *isotime.Duration,
) (WarningVerdict, error) {

	if model.ValidUntil == nil {
		return WarningVerdict{Outcome: OutcomeNoValidUntil}, nil
	}

	secsUntilExpiration := isotime.SecondsBetween(currentTime, *model.ValidUntil)

	if secsUntilExpiration <= expirationWarningLen.Seconds() {
		return WarningVerdict{
			Outcome:                OutcomeExpirationImminent,
			SecondsUntilExpiration: secsUntilExpiration,
		}, nil
	}

	if freshnessLen == nil {
		return WarningVerdict{
			Outcome:                OutcomeNoFreshnessConfigured,
			SecondsUntilExpiration: secsUntilExpiration,
		}, nil
	}

	if model.CreationInstant == nil {
		return WarningVerdict{
			Outcome:                OutcomeNoCreationInstant,
			SecondsUntilExpiration: secsUntilExpiration,
		}, nil
	}

	actualValidityIntervalSecs := isotime.SecondsBetween(*model.CreationInstant, *model.ValidUntil)
	if actualValidityIntervalSecs < 0 {
		return WarningVerdict{}, NewInternalInconsistencyError(
			"validity interval is negative (%d seconds) for a supposedly valid document",
			actualValidityIntervalSecs,
		)
	}

	// The two sub intervals are anchored at opposite ends of the validity
	// window. If together they are longer than the window itself they
	// necessarily overlap, and any freshness verdict computed from them
	// would be misleading.
	if freshnessLen.Seconds()+expirationWarningLen.Seconds() > actualValidityIntervalSecs {
		return WarningVerdict{
			Outcome:                 OutcomeSubIntervalsOverlap,
			SecondsUntilExpiration:  secsUntilExpiration,
			ValidityIntervalSeconds: actualValidityIntervalSecs,
		}, nil
	}

	secsSinceCreation := isotime.SecondsBetween(*model.CreationInstant, currentTime)

	if secsSinceCreation >= freshnessLen.Seconds() {
		return WarningVerdict{
			Outcome:                 OutcomeStale,
			SecondsUntilExpiration:  secsUntilExpiration,
			SecondsSinceCreation:    secsSinceCreation,
			ValidityIntervalSeconds: actualValidityIntervalSecs,
		}, nil
	}

	return WarningVerdict{
		Outcome:                 OutcomeFresh,
		SecondsUntilExpiration:  secsUntilExpiration,
		SecondsSinceCreation:    secsSinceCreation,
		ValidityIntervalSeconds: actualValidityIntervalSecs,
	}, nil
}
