package mdstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fedops/mdpipe/internal/pkg/application/freshness"
	"github.com/fedops/mdpipe/internal/pkg/application/history"
	"github.com/fedops/mdpipe/internal/pkg/application/status"
	"github.com/fedops/mdpipe/pkg/metadata"
	"github.com/go-chi/chi/v5"
	"github.com/matryer/is"
)

type statusMock struct {
	GetDocumentFunc func(ctx context.Context) (*status.DocumentStatus, error)
	GetHistoryFunc  func(ctx context.Context, limit int) ([]history.RecordView, error)
}

func (m *statusMock) GetDocument(ctx context.Context) (*status.DocumentStatus, error) {
	return m.GetDocumentFunc(ctx)
}

func (m *statusMock) GetHistory(ctx context.Context, limit int) ([]history.RecordView, error) {
	return m.GetHistoryFunc(ctx, limit)
}

func setupTest(t *testing.T) (*is.I, *httptest.Server, *statusMock) {
	is := is.New(t)

	app := &statusMock{
		GetDocumentFunc: func(ctx context.Context) (*status.DocumentStatus, error) {
			return &status.DocumentStatus{
				Document: []byte(`<EntitiesDescriptor/>`),
				Model:    &metadata.AttributeModel{Kind: metadata.KindAggregate},
				Validity: freshness.ValidityVerdict{Status: freshness.StatusValid},
				Warning:  freshness.WarningVerdict{Outcome: freshness.OutcomeFresh},
			}, nil
		},
		GetHistoryFunc: func(ctx context.Context, limit int) ([]history.RecordView, error) {
			return []history.RecordView{}, nil
		},
	}

	r := chi.NewRouter()
	err := RegisterHandlers(context.Background(), r, strings.NewReader(allowAllPolicy), app)
	is.NoErr(err)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return is, ts, app
}

func TestHealthEndpoint(t *testing.T) {
	is, ts, _ := setupTest(t)

	resp, _ := testRequest(is, ts, "/health")
	is.Equal(resp.StatusCode, http.StatusNoContent)
}

func TestRetrieveDocument(t *testing.T) {
	is, ts, _ := setupTest(t)

	resp, body := testRequest(is, ts, "/api/v1/document")

	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(body, `<EntitiesDescriptor/>`)
	is.Equal(resp.Header.Get("Content-Type"), "application/samlmetadata+xml")
	is.Equal(resp.Header.Get("MD-Validity"), "valid")
	is.Equal(resp.Header.Get("MD-Warning"), "fresh")
}

func TestRetrieveDocumentOmitsWarningHeaderWhenInvalid(t *testing.T) {
	is, ts, app := setupTest(t)

	app.GetDocumentFunc = func(ctx context.Context) (*status.DocumentStatus, error) {
		return &status.DocumentStatus{
			Document: []byte(`<EntitiesDescriptor/>`),
			Validity: freshness.ValidityVerdict{Status: freshness.StatusExpired, OffsetSeconds: 3600},
		}, nil
	}

	resp, _ := testRequest(is, ts, "/api/v1/document")

	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.Header.Get("MD-Validity"), "expired")
	is.Equal(resp.Header.Get("MD-Warning"), "") // warnings are undefined for invalid documents
}

func TestRetrieveDocumentReturnsNotFoundWithoutCache(t *testing.T) {
	is, ts, app := setupTest(t)

	app.GetDocumentFunc = func(ctx context.Context) (*status.DocumentStatus, error) {
		return nil, status.NewNotFoundError("no cached metadata document")
	}

	resp, _ := testRequest(is, ts, "/api/v1/document")
	is.Equal(resp.StatusCode, http.StatusNotFound)
}

func TestRetrieveDocumentReportsInternalErrors(t *testing.T) {
	is, ts, app := setupTest(t)

	app.GetDocumentFunc = func(ctx context.Context) (*status.DocumentStatus, error) {
		return nil, fmt.Errorf("some unknown error")
	}

	resp, _ := testRequest(is, ts, "/api/v1/document")
	is.Equal(resp.StatusCode, http.StatusInternalServerError)
}

func TestRetrieveHistory(t *testing.T) {
	is, ts, app := setupTest(t)

	requestedLimit := 0
	app.GetHistoryFunc = func(ctx context.Context, limit int) ([]history.RecordView, error) {
		requestedLimit = limit
		return []history.RecordView{
			{CurrentDateTime: "2018-02-03T21:01:20Z", SinceCreation: history.NewSpan(1707)},
		}, nil
	}

	resp, body := testRequest(is, ts, "/api/v1/history?limit=5")

	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(requestedLimit, 5)

	views := []history.RecordView{}
	is.NoErr(json.Unmarshal([]byte(body), &views))
	is.Equal(len(views), 1)
	is.Equal(views[0].SinceCreation.Secs, int64(1707))
}

func TestRetrieveHistoryRejectsBadLimit(t *testing.T) {
	is, ts, _ := setupTest(t)

	for _, query := range []string{"limit=nope", "limit=-1"} {
		resp, _ := testRequest(is, ts, "/api/v1/history?"+query)
		is.Equal(resp.StatusCode, http.StatusBadRequest)
	}
}

func TestAccessDeniedByPolicy(t *testing.T) {
	is := is.New(t)

	app := &statusMock{}
	r := chi.NewRouter()
	err := RegisterHandlers(context.Background(), r, strings.NewReader(denyAllPolicy), app)
	is.NoErr(err)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	resp, _ := testRequest(is, ts, "/api/v1/document")
	is.Equal(resp.StatusCode, http.StatusUnauthorized)
}

func testRequest(is *is.I, ts *httptest.Server, path string) (*http.Response, string) {
	resp, err := http.Get(ts.URL + path)
	is.NoErr(err) // http request failed
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	is.NoErr(err) // failed to read response body

	return resp, string(respBody)
}

const allowAllPolicy = `
package mdpipe.authz

default allow := true
`

const denyAllPolicy = `
package mdpipe.authz

default allow := false
`
