package isotime

import (
	"fmt"
	"time"
)

// CanonicalLayout is the fixed UTC dateTime form used throughout federation
// metadata: YYYY-MM-DDThh:mm:ssZ.
const CanonicalLayout = "2006-01-02T15:04:05Z"

type InvalidDateTimeError struct {
	msg string
}

func NewInvalidDateTimeError(value string, cause error) InvalidDateTimeError {
	return InvalidDateTimeError{msg: fmt.Sprintf("invalid dateTime %q: %s", value, cause.Error())}
}

func (ide InvalidDateTimeError) Error() string {
	return ide.msg
}

// ParseDateTime parses a canonical UTC dateTime string.
func ParseDateTime(s string) (time.Time, error) {
	t, err := time.Parse(CanonicalLayout, s)
	if err != nil {
		return time.Time{}, NewInvalidDateTimeError(s, err)
	}

	return t, nil
}

// FormatDateTime renders a timestamp in canonical UTC form, truncated to
// whole seconds.
func FormatDateTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(CanonicalLayout)
}

// Now returns the current wall clock time in canonical UTC resolution.
// This is the one impure operation in this package; callers compute it once
// per evaluation pass and inject it so that a pass is internally consistent
// and tests stay deterministic.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// SecondsBetween returns the signed difference t2 - t1 in whole seconds.
// The result is negative when t1 is later than t2.
func SecondsBetween(t1, t2 time.Time) int64 {
	return t2.Unix() - t1.Unix()
}
