package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	yaml "gopkg.in/yaml.v2"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Outcome distinguishes the three results a fetch attempt can have.
type Outcome int

const (
	// OutcomeFailed means no usable document was obtained
	OutcomeFailed Outcome = iota
	// OutcomeFresh means the source returned new content
	OutcomeFresh
	// OutcomeNotModified means the cached copy is still current
	OutcomeNotModified
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFresh:
		return "fresh"
	case OutcomeNotModified:
		return "not-modified"
	default:
		return "failed"
	}
}

type Result struct {
	Outcome  Outcome
	Document []byte
}

type Fetcher interface {
	Fetch(ctx context.Context) (Result, error)
}

func Debug(enabled string) func(*fetcher) {
	return func(f *fetcher) {
		f.debug = (enabled == "true")
	}
}

func Timeout(timeout time.Duration) func(*fetcher) {
	return func(f *fetcher) {
		f.httpClient.Timeout = timeout
	}
}

// New creates a Fetcher that performs conditional GET against sourceURL and
// maintains the cached document at cacheFile, with the stored validators
// kept in a sidecar file next to it.
func New(sourceURL, cacheFile string, options ...func(*fetcher)) Fetcher {
	f := &fetcher{
		sourceURL: sourceURL,
		cacheFile: cacheFile,
		httpClient: http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		},
	}

	for _, option := range options {
		option(f)
	}

	return f
}

var tracer = otel.Tracer("mdpipe/fetch")

type fetcher struct {
	sourceURL  string
	cacheFile  string
	httpClient http.Client
	debug      bool
}

type cacheState struct {
	ETag         string `yaml:"etag"`
	LastModified string `yaml:"lastModified"`
}

type FetchFailedError struct {
	msg string
}

func NewFetchFailedError(format string, args ...any) FetchFailedError {
	return FetchFailedError{msg: fmt.Sprintf(format, args...)}
}

func (ffe FetchFailedError) Error() string {
	return ffe.msg
}

// Fetch performs one conditional GET. A 304 from the source leaves the
// cached document untouched and returns its current contents; a 200 stores
// the new document and its validators before returning it. Every other
// response, and any transport failure, is a failed outcome.
func (f *fetcher) Fetch(ctx context.Context) (Result, error) {
	var err error

	ctx, span := tracer.Start(ctx, "fetch-metadata",
		trace.WithAttributes(attribute.String("metadata-source", f.sourceURL)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	log := logging.GetFromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.sourceURL, nil)
	if err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}

	state := f.loadState(ctx)
	if state.ETag != "" {
		req.Header.Set("If-None-Match", state.ETag)
	}
	if state.LastModified != "" {
		req.Header.Set("If-Modified-Since", state.LastModified)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		err = NewFetchFailedError("request to metadata source failed: %s", err.Error())
		return Result{Outcome: OutcomeFailed}, err
	}
	defer resp.Body.Close()

	if f.debug {
		respDump, _ := httputil.DumpResponse(resp, false)
		log.Debug("response dump", "response", string(respDump))
	}

	if resp.StatusCode == http.StatusNotModified {
		document, readErr := os.ReadFile(f.cacheFile)
		if readErr != nil {
			err = NewFetchFailedError("source reports not modified but cached document is unreadable: %s", readErr.Error())
			return Result{Outcome: OutcomeFailed}, err
		}

		return Result{Outcome: OutcomeNotModified, Document: document}, nil
	}

	if resp.StatusCode != http.StatusOK {
		err = NewFetchFailedError("unexpected response code %d from metadata source", resp.StatusCode)
		return Result{Outcome: OutcomeFailed}, err
	}

	document, err := io.ReadAll(resp.Body)
	if err != nil {
		err = NewFetchFailedError("unable to read response body: %s", err.Error())
		return Result{Outcome: OutcomeFailed}, err
	}

	if err = f.storeDocument(document); err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}

	f.storeState(ctx, cacheState{
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	})

	return Result{Outcome: OutcomeFresh, Document: document}, nil
}

func (f *fetcher) statePath() string {
	return f.cacheFile + ".state"
}

func (f *fetcher) loadState(ctx context.Context) cacheState {
	state := cacheState{}

	buf, err := os.ReadFile(f.statePath())
	if err != nil {
		return state
	}

	if err := yaml.Unmarshal(buf, &state); err != nil {
		logging.GetFromContext(ctx).Warn("ignoring unreadable cache state", "err", err.Error())
		return cacheState{}
	}

	return state
}

// storeState failures only cost an unconditional refetch next run
func (f *fetcher) storeState(ctx context.Context, state cacheState) {
	buf, err := yaml.Marshal(state)
	if err == nil {
		err = os.WriteFile(f.statePath(), buf, 0644)
	}

	if err != nil {
		logging.GetFromContext(ctx).Warn("unable to store cache state", "err", err.Error())
	}
}

// storeDocument replaces the cached document atomically so that concurrent
// readers never observe a partially written file.
func (f *fetcher) storeDocument(document []byte) error {
	tmp := f.cacheFile + ".tmp"

	if err := os.WriteFile(tmp, document, 0644); err != nil {
		return NewFetchFailedError("unable to stage fetched document: %s", err.Error())
	}

	if err := os.Rename(tmp, f.cacheFile); err != nil {
		return NewFetchFailedError("unable to replace cached document: %s", err.Error())
	}

	return nil
}
