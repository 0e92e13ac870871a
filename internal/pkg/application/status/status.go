package status

import (
	"bytes"
	"context"
	"os"

	"github.com/fedops/mdpipe/internal/pkg/application/freshness"
	"github.com/fedops/mdpipe/internal/pkg/application/history"
	"github.com/fedops/mdpipe/pkg/isotime"
	"github.com/fedops/mdpipe/pkg/metadata"
)

// API exposes the cached metadata document and the timestamp history to the
// presentation layer.
type API interface {
	GetDocument(ctx context.Context) (*DocumentStatus, error)
	GetHistory(ctx context.Context, limit int) ([]history.RecordView, error)
}

// DocumentStatus is the cached document together with its temporal verdicts
// at the time of the request.
type DocumentStatus struct {
	Document []byte
	Model    *metadata.AttributeModel
	Validity freshness.ValidityVerdict
	Warning  freshness.WarningVerdict
}

func New(cacheFile string, recorder *history.Recorder, expirationWarningLen isotime.Duration, freshnessLen *isotime.Duration) API {
	return &statusImpl{
		cacheFile:            cacheFile,
		recorder:             recorder,
		expirationWarningLen: expirationWarningLen,
		freshnessLen:         freshnessLen,
	}
}

type statusImpl struct {
	cacheFile            string
	recorder             *history.Recorder
	expirationWarningLen isotime.Duration
	freshnessLen         *isotime.Duration
}

func (s *statusImpl) GetDocument(ctx context.Context) (*DocumentStatus, error) {
	document, err := os.ReadFile(s.cacheFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewNotFoundError("no cached metadata document")
		}
		return nil, err
	}

	model, err := metadata.Extract(bytes.NewReader(document))
	if err != nil {
		return nil, err
	}

	ds := &DocumentStatus{
		Document: document,
		Model:    model,
	}

	currentTime := isotime.Now()
	ds.Validity = freshness.Evaluate(model, currentTime)

	if ds.Validity.IsValid() {
		ds.Warning, err = freshness.EvaluateWarning(model, currentTime, s.expirationWarningLen, s.freshnessLen)
		if err != nil {
			return nil, err
		}
	}

	return ds, nil
}

func (s *statusImpl) GetHistory(ctx context.Context, limit int) ([]history.RecordView, error) {
	records, err := s.recorder.Tail(ctx, limit)
	if err != nil {
		return nil, err
	}

	return history.Export(records), nil
}
