package history

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/fedops/mdpipe/pkg/isotime"
)

// TimestampRecord is one observation of a document's temporal attributes:
// the time of observation together with the document's own creationInstant
// and validUntil. Records are kept in insertion order, which is
// chronological by observation time, not by metadata content.
type TimestampRecord struct {
	CurrentTime     time.Time
	CreationInstant time.Time
	ValidUntil      time.Time
}

// Recorder appends timestamp triples to a flat, append only log file. Each
// line holds three tab separated canonical dateTimes with no header row.
// Independent processes (overlapping cron runs) may append concurrently, so
// each record is written with a single write on a descriptor opened in
// append mode and no in-process locking.
type Recorder struct {
	path string
}

func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

// Append writes one record to the end of the log. Failure to append is
// reported to the caller but is expected to be treated as non fatal: the
// delivery of a metadata document must not be blocked by best effort
// observability.
func (r *Recorder) Append(ctx context.Context, record TimestampRecord) error {
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("unable to open timestamp log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s\t%s\t%s\n",
		isotime.FormatDateTime(record.CurrentTime),
		isotime.FormatDateTime(record.CreationInstant),
		isotime.FormatDateTime(record.ValidUntil),
	)

	if _, err := f.Write([]byte(line)); err != nil {
		return fmt.Errorf("unable to append to timestamp log: %w", err)
	}

	return nil
}

// Tail returns the most recent n records in their original order, or fewer
// if the log is shorter. It never mutates the log and can be called
// repeatedly. Lines that do not parse (such as a partial line from a writer
// that died mid record) are skipped with a warning.
func (r *Recorder) Tail(ctx context.Context, n int) ([]TimestampRecord, error) {
	if n < 0 {
		n = 0
	}

	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []TimestampRecord{}, nil
		}
		return nil, fmt.Errorf("unable to open timestamp log: %w", err)
	}
	defer f.Close()

	log := logging.GetFromContext(ctx)
	records := make([]TimestampRecord, 0, n)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		record, err := parseRecord(scanner.Text())
		if err != nil {
			log.Warn("skipping malformed timestamp log line", "err", err.Error())
			continue
		}

		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("unable to read timestamp log: %w", err)
	}

	if len(records) > n {
		records = records[len(records)-n:]
	}

	return records, nil
}

func parseRecord(line string) (TimestampRecord, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 3 {
		return TimestampRecord{}, fmt.Errorf("expected 3 fields, found %d", len(fields))
	}

	record := TimestampRecord{}

	for i, target := range []*time.Time{&record.CurrentTime, &record.CreationInstant, &record.ValidUntil} {
		ts, err := isotime.ParseDateTime(fields[i])
		if err != nil {
			return TimestampRecord{}, err
		}
		*target = ts
	}

	return record, nil
}
