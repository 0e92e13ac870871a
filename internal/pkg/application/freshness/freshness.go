package freshness

import (
	"time"

	"github.com/fedops/mdpipe/pkg/isotime"
	"github.com/fedops/mdpipe/pkg/metadata"
)

// Status is the outcome of a temporal validity evaluation.
type Status int

const (
	// StatusValid means the document is usable at the reference time
	StatusValid Status = iota
	// StatusExpired means validUntil lies at or before the reference time
	StatusExpired
	// StatusCreatedInFuture means creationInstant lies after the reference time
	StatusCreatedInFuture
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusExpired:
		return "expired"
	case StatusCreatedInFuture:
		return "created-in-future"
	default:
		return "unknown"
	}
}

// ValidityVerdict carries the evaluation outcome together with the
// offending timestamp and the magnitude of the violation in seconds.
// For a valid document both extra fields are zero.
type ValidityVerdict struct {
	Status        Status
	Timestamp     time.Time
	OffsetSeconds int64
}

func (v ValidityVerdict) IsValid() bool {
	return v.Status == StatusValid
}

// Evaluate decides whether a document is usable at the given reference
// time. Each timestamp is checked independently and an absent timestamp
// never invalidates the document: a model carrying neither attribute is
// trivially valid. Expiration is inclusive of the boundary instant, so a
// document whose validUntil equals the reference time is already expired.
// A creationInstant equal to the reference time is not in the future.
func Evaluate(model *metadata.AttributeModel, currentTime time.Time) ValidityVerdict {
	if model.ValidUntil != nil {
		secsUntilExpiration := isotime.SecondsBetween(currentTime, *model.ValidUntil)
		if secsUntilExpiration <= 0 {
			return ValidityVerdict{
				Status:        StatusExpired,
				Timestamp:     *model.ValidUntil,
				OffsetSeconds: -secsUntilExpiration,
			}
		}
	}

	if model.CreationInstant != nil {
		secsSinceCreation := isotime.SecondsBetween(*model.CreationInstant, currentTime)
		if secsSinceCreation < 0 {
			return ValidityVerdict{
				Status:        StatusCreatedInFuture,
				Timestamp:     *model.CreationInstant,
				OffsetSeconds: -secsSinceCreation,
			}
		}
	}

	return ValidityVerdict{Status: StatusValid}
}
