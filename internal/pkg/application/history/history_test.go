package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fedops/mdpipe/pkg/isotime"
	"github.com/matryer/is"
)

func newTestRecorder(t *testing.T) *Recorder {
	return NewRecorder(filepath.Join(t.TempDir(), "timestamps.log"))
}

func record(t *testing.T, current, creation, validUntil string) TimestampRecord {
	t.Helper()

	parse := func(value string) time.Time {
		ts, err := isotime.ParseDateTime(value)
		if err != nil {
			t.Fatal(err.Error())
		}
		return ts
	}

	return TimestampRecord{
		CurrentTime:     parse(current),
		CreationInstant: parse(creation),
		ValidUntil:      parse(validUntil),
	}
}

func TestAppendWritesTabSeparatedLines(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	recorder := newTestRecorder(t)

	err := recorder.Append(ctx, record(t, "2018-02-03T21:01:20Z", "2018-02-03T20:32:53Z", "2018-02-07T20:32:53Z"))
	is.NoErr(err)

	contents, err := os.ReadFile(recorder.path)
	is.NoErr(err)
	is.Equal(string(contents), "2018-02-03T21:01:20Z\t2018-02-03T20:32:53Z\t2018-02-07T20:32:53Z\n")
}

func TestTailReturnsMostRecentRecordsInOrder(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	recorder := newTestRecorder(t)

	for i := 0; i < 5; i++ {
		current := fmt.Sprintf("2018-02-0%dT12:00:00Z", i+1)
		err := recorder.Append(ctx, record(t, current, "2018-02-01T00:00:00Z", "2018-02-14T00:00:00Z"))
		is.NoErr(err)
	}

	records, err := recorder.Tail(ctx, 3)
	is.NoErr(err)

	is.Equal(len(records), 3) // last three of five
	is.Equal(isotime.FormatDateTime(records[0].CurrentTime), "2018-02-03T12:00:00Z")
	is.Equal(isotime.FormatDateTime(records[2].CurrentTime), "2018-02-05T12:00:00Z")
}

func TestTailIsRestartable(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	recorder := newTestRecorder(t)

	err := recorder.Append(ctx, record(t, "2018-02-03T21:01:20Z", "2018-02-03T20:32:53Z", "2018-02-07T20:32:53Z"))
	is.NoErr(err)

	first, err := recorder.Tail(ctx, 10)
	is.NoErr(err)
	second, err := recorder.Tail(ctx, 10)
	is.NoErr(err)

	is.Equal(len(first), 1)
	is.Equal(first, second) // repeated calls have no side effect
}

func TestTailOfMissingLogIsEmpty(t *testing.T) {
	is := is.New(t)

	records, err := newTestRecorder(t).Tail(context.Background(), 10)
	is.NoErr(err)
	is.Equal(len(records), 0)
}

func TestTailSkipsPartialLines(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	recorder := newTestRecorder(t)

	err := recorder.Append(ctx, record(t, "2018-02-03T21:01:20Z", "2018-02-03T20:32:53Z", "2018-02-07T20:32:53Z"))
	is.NoErr(err)

	// simulate a writer that died mid record
	f, err := os.OpenFile(recorder.path, os.O_APPEND|os.O_WRONLY, 0644)
	is.NoErr(err)
	_, err = f.Write([]byte("2018-02-04T21:01:20Z\t2018-02-0"))
	is.NoErr(err)
	f.Close()

	records, err := recorder.Tail(ctx, 10)
	is.NoErr(err)
	is.Equal(len(records), 1) // only the complete record survives
}

func TestExportDerivesSpans(t *testing.T) {
	is := is.New(t)

	views := Export([]TimestampRecord{
		record(t, "2018-02-03T21:01:20Z", "2018-02-03T20:32:53Z", "2018-02-07T20:32:53Z"),
	})

	is.Equal(len(views), 1)
	view := views[0]

	is.Equal(view.CurrentDateTime, "2018-02-03T21:01:20Z")
	is.Equal(view.SinceCreation.Secs, int64(1707))
	is.Equal(view.UntilExpiration.Secs, int64(343893))
	is.Equal(view.ValidityInterval.Secs, int64(345600))
	is.Equal(view.SinceCreation.Secs+view.UntilExpiration.Secs, view.ValidityInterval.Secs)

	is.Equal(view.ValidityInterval.Hours, 96.0)
	is.Equal(view.ValidityInterval.Days, 4.0)
	is.Equal(view.SinceCreation.Hours, 0.47) // 1707/3600 rounded to 2 decimals
	is.Equal(view.SinceCreation.Days, 0.02)
	is.Equal(view.UntilExpiration.Hours, 95.53)
	is.Equal(view.UntilExpiration.Days, 3.98)
}

func TestNewSpanRounding(t *testing.T) {
	is := is.New(t)

	span := NewSpan(345600)
	is.Equal(span.Secs, int64(345600))
	is.Equal(span.Hours, 96.0)
	is.Equal(span.Days, 4.0)
}
