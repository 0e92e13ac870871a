package mdstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"

	"github.com/fedops/mdpipe/internal/pkg/application/status"
	"github.com/fedops/mdpipe/internal/pkg/presentation/api/mdstatus/auth"
	mderrors "github.com/fedops/mdpipe/internal/pkg/presentation/api/mdstatus/errors"
)

var tracer = otel.Tracer("mdpipe/mdstatus")

const defaultHistoryLimit = 10

// RegisterHandlers wires the status endpoints onto the router. Access to
// the api endpoints is decided by the supplied rego policies.
func RegisterHandlers(ctx context.Context, r *chi.Mux, policies io.Reader, app status.API) error {

	authenticator, err := auth.NewAuthenticator(ctx, policies)
	if err != nil {
		return fmt.Errorf("failed to create api authenticator: %w", err)
	}

	r.Get("/health", NewHealthHandler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/document", NewRetrieveDocumentHandler(app, authenticator))
		r.Get("/history", NewRetrieveHistoryHandler(app, authenticator))
	})

	return nil
}

func NewHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// NewRetrieveDocumentHandler serves the cached metadata document together
// with its temporal verdicts at the time of the request.
func NewRetrieveDocumentHandler(app status.API, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "retrieve-document")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		_, ctx, log := o11y.AddTraceIDToLoggerAndStoreInContext(span, logging.GetFromContext(r.Context()), ctx)

		if err = authenticator.CheckAccess(ctx, r); err != nil {
			mderrors.ReportUnauthorizedRequest(w, "access denied")
			return
		}

		ds, err := app.GetDocument(ctx)
		if err != nil {
			switch err.(type) {
			case status.NotFoundError:
				mderrors.ReportNotFoundError(w, err.Error())
			default:
				log.Error("failed to retrieve document", "err", err.Error())
				mderrors.ReportNewInternalError(w, err.Error())
			}
			return
		}

		w.Header().Set("Content-Type", "application/samlmetadata+xml")
		w.Header().Set("MD-Validity", ds.Validity.Status.String())
		if ds.Validity.IsValid() {
			w.Header().Set("MD-Warning", ds.Warning.Outcome.String())
		}

		w.WriteHeader(http.StatusOK)
		w.Write(ds.Document)
	}
}

// NewRetrieveHistoryHandler serves a bounded tail of the timestamp history
// as a json array.
func NewRetrieveHistoryHandler(app status.API, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "retrieve-history")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		_, ctx, log := o11y.AddTraceIDToLoggerAndStoreInContext(span, logging.GetFromContext(r.Context()), ctx)

		if err = authenticator.CheckAccess(ctx, r); err != nil {
			mderrors.ReportUnauthorizedRequest(w, "access denied")
			return
		}

		limit := defaultHistoryLimit
		if param := r.URL.Query().Get("limit"); param != "" {
			limit, err = strconv.Atoi(param)
			if err != nil || limit < 0 {
				err = fmt.Errorf("limit must be a non negative integer")
				mderrors.ReportNewInvalidRequest(w, err.Error())
				return
			}
		}

		views, err := app.GetHistory(ctx, limit)
		if err != nil {
			log.Error("failed to retrieve history", "err", err.Error())
			mderrors.ReportNewInternalError(w, err.Error())
			return
		}

		body, err := json.Marshal(views)
		if err != nil {
			mderrors.ReportNewInternalError(w, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}
