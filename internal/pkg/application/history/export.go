package history

import (
	"math"

	"github.com/fedops/mdpipe/pkg/isotime"
)

// Span exposes a number of seconds together with its hour and day
// equivalents, rounded to two decimal places for display.
type Span struct {
	Secs  int64   `json:"secs"`
	Hours float64 `json:"hours"`
	Days  float64 `json:"days"`
}

func NewSpan(secs int64) Span {
	round := func(v float64) float64 {
		return math.Round(v*100) / 100
	}

	return Span{
		Secs:  secs,
		Hours: round(float64(secs) / 3600),
		Days:  round(float64(secs) / 86400),
	}
}

// RecordView is the reporting view of one timestamp record, used for the
// JSON tail export consumed by downstream plotting tools.
type RecordView struct {
	CurrentDateTime string `json:"currentDateTime"`
	CreationInstant string `json:"creationInstant"`
	ValidUntil      string `json:"validUntil"`

	SinceEpoch       Span `json:"sinceEpoch"`
	SinceCreation    Span `json:"sinceCreation"`
	UntilExpiration  Span `json:"untilExpiration"`
	ValidityInterval Span `json:"validityInterval"`
}

// Export derives the reporting view for a sequence of records, preserving
// their order.
func Export(records []TimestampRecord) []RecordView {
	views := make([]RecordView, 0, len(records))

	for _, record := range records {
		views = append(views, RecordView{
			CurrentDateTime: isotime.FormatDateTime(record.CurrentTime),
			CreationInstant: isotime.FormatDateTime(record.CreationInstant),
			ValidUntil:      isotime.FormatDateTime(record.ValidUntil),

			SinceEpoch:       NewSpan(record.CurrentTime.Unix()),
			SinceCreation:    NewSpan(isotime.SecondsBetween(record.CreationInstant, record.CurrentTime)),
			UntilExpiration:  NewSpan(isotime.SecondsBetween(record.CurrentTime, record.ValidUntil)),
			ValidityInterval: NewSpan(isotime.SecondsBetween(record.CreationInstant, record.ValidUntil)),
		})
	}

	return views
}
