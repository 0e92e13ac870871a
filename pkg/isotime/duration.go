package isotime

import (
	"fmt"
	"math"
	"strings"
)

// Duration is a span of time expressed in whole seconds, with a lossless
// ISO-8601 textual form for the subset of the duration grammar built from
// days, hours, minutes and seconds. Calendar units (years, months) have no
// fixed length in seconds, and weeks are outside the supported vocabulary;
// ParseDuration rejects all three.
type Duration struct {
	seconds int64
}

const (
	secondsPerMinute int64 = 60
	secondsPerHour   int64 = 3600
	secondsPerDay    int64 = 86400

	// maxSeconds bounds parsed durations so that neither the unit
	// conversion of a single component nor the running total can wrap
	// int64.
	maxSeconds        = int64(math.MaxInt64) / 8
	maxComponentValue = maxSeconds / secondsPerDay
)

type InvalidDurationError struct {
	msg string
}

func NewInvalidDurationError(format string, args ...any) InvalidDurationError {
	return InvalidDurationError{msg: fmt.Sprintf(format, args...)}
}

func (ide InvalidDurationError) Error() string {
	return ide.msg
}

// ParseDuration parses an ISO-8601 duration such as P2D, PT36H or PT0S.
// A zero length duration is legal and is the documented way to disable
// interval based features.
func ParseDuration(s string) (Duration, error) {
	input := s

	if len(s) < 2 || s[0] != 'P' {
		return Duration{}, NewInvalidDurationError("invalid duration %q: must start with P and name at least one component", input)
	}

	s = s[1:]
	inTime := false
	sawComponent := false

	var total int64

	for len(s) > 0 {
		if s[0] == 'T' {
			if inTime {
				return Duration{}, NewInvalidDurationError("invalid duration %q: repeated time designator", input)
			}
			inTime = true
			s = s[1:]
			continue
		}

		digits := 0
		for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
			digits++
		}

		if digits == 0 || digits == len(s) {
			return Duration{}, NewInvalidDurationError("invalid duration %q", input)
		}

		var value int64
		for _, c := range s[:digits] {
			value = value*10 + int64(c-'0')
			if value > maxComponentValue {
				return Duration{}, NewInvalidDurationError("invalid duration %q: component value out of range", input)
			}
		}

		unit := s[digits]
		s = s[digits+1:]

		switch {
		case !inTime && unit == 'D':
			total += value * secondsPerDay
		case inTime && unit == 'H':
			total += value * secondsPerHour
		case inTime && unit == 'M':
			total += value * secondsPerMinute
		case inTime && unit == 'S':
			total += value
		case !inTime && (unit == 'Y' || unit == 'M'):
			return Duration{}, NewInvalidDurationError(
				"unsupported duration %q: calendar unit %q has no exact length in seconds", input, string(unit),
			)
		case !inTime && unit == 'W':
			return Duration{}, NewInvalidDurationError(
				"unsupported duration %q: week components are not accepted, express the span in days", input,
			)
		default:
			return Duration{}, NewInvalidDurationError("invalid duration %q: unexpected unit %q", input, string(unit))
		}

		if total > maxSeconds {
			return Duration{}, NewInvalidDurationError("invalid duration %q: duration out of range", input)
		}

		sawComponent = true
	}

	if !sawComponent {
		return Duration{}, NewInvalidDurationError("invalid duration %q: no components", input)
	}

	return Duration{seconds: total}, nil
}

// FromSeconds creates a Duration from a non negative number of whole seconds.
func FromSeconds(seconds int64) Duration {
	if seconds < 0 {
		seconds = 0
	}
	return Duration{seconds: seconds}
}

func (d Duration) Seconds() int64 {
	return d.seconds
}

func (d Duration) IsZero() bool {
	return d.seconds == 0
}

// String renders the duration in ISO-8601 form. The textual form is
// normalised (PT48H comes back as P2D) but always denotes the same number
// of seconds as the value it was parsed from.
func (d Duration) String() string {
	if d.seconds == 0 {
		return "PT0S"
	}

	var sb strings.Builder
	sb.WriteByte('P')

	remainder := d.seconds

	if days := remainder / secondsPerDay; days > 0 {
		fmt.Fprintf(&sb, "%dD", days)
		remainder -= days * secondsPerDay
	}

	if remainder > 0 {
		sb.WriteByte('T')

		if hours := remainder / secondsPerHour; hours > 0 {
			fmt.Fprintf(&sb, "%dH", hours)
			remainder -= hours * secondsPerHour
		}

		if minutes := remainder / secondsPerMinute; minutes > 0 {
			fmt.Fprintf(&sb, "%dM", minutes)
			remainder -= minutes * secondsPerMinute
		}

		if remainder > 0 {
			fmt.Fprintf(&sb, "%dS", remainder)
		}
	}

	return sb.String()
}
