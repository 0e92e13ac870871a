package errors

import (
	"encoding/json"
	"net/http"
)

// ProblemDetails stores details about a certain problem according to RFC7807
// See https://tools.ietf.org/html/rfc7807
type ProblemDetails interface {
	ContentType() string
	MarshalJSON() ([]byte, error)
	WriteResponse(w http.ResponseWriter)
}

type ProblemDetailsImpl struct {
	typ    string
	title  string
	detail string
	code   int
}

const (
	// ProblemReportContentType as required by https://tools.ietf.org/html/rfc7807
	ProblemReportContentType string = "application/problem+json"
)

// InvalidRequest reports that the request is syntactically invalid or
// includes wrong content
type InvalidRequest struct {
	ProblemDetailsImpl
}

func NewInvalidRequest(detail string) *InvalidRequest {
	return &InvalidRequest{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:    "urn:fedops:mdpipe:errors:invalid-request",
			title:  "Invalid Request",
			detail: detail,
			code:   http.StatusBadRequest,
		},
	}
}

func ReportNewInvalidRequest(w http.ResponseWriter, detail string) {
	ir := NewInvalidRequest(detail)
	ir.WriteResponse(w)
}

// NotFound reports that the requested resource does not exist, such as when
// no metadata document has been cached yet
type NotFound struct {
	ProblemDetailsImpl
}

func NewNotFound(detail string) *NotFound {
	return &NotFound{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:    "urn:fedops:mdpipe:errors:not-found",
			title:  "Not Found",
			detail: detail,
			code:   http.StatusNotFound,
		},
	}
}

func ReportNotFoundError(w http.ResponseWriter, detail string) {
	nf := NewNotFound(detail)
	nf.WriteResponse(w)
}

// InternalError reports that there has been an error during the operation
// execution
type InternalError struct {
	ProblemDetailsImpl
}

func NewInternalError(detail string) *InternalError {
	return &InternalError{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:    "urn:fedops:mdpipe:errors:internal-error",
			title:  "Internal Error",
			detail: detail,
			code:   http.StatusInternalServerError,
		},
	}
}

func ReportNewInternalError(w http.ResponseWriter, detail string) {
	ie := NewInternalError(detail)
	ie.WriteResponse(w)
}

type UnauthorizedRequest struct {
	ProblemDetailsImpl
}

func NewUnauthorizedRequest(detail string) *UnauthorizedRequest {
	return &UnauthorizedRequest{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:    "urn:fedops:mdpipe:errors:unauthorized-request",
			title:  "Unauthorized Request",
			detail: detail,
			code:   http.StatusUnauthorized,
		},
	}
}

func ReportUnauthorizedRequest(w http.ResponseWriter, detail string) {
	ur := NewUnauthorizedRequest(detail)
	ur.WriteResponse(w)
}

func (p *ProblemDetailsImpl) ContentType() string {
	return ProblemReportContentType
}

func (p *ProblemDetailsImpl) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}{
		Type:   p.typ,
		Title:  p.title,
		Detail: p.detail,
	})
}

func (p *ProblemDetailsImpl) ResponseCode() int {
	if p.code != 0 {
		return p.code
	}

	return http.StatusBadRequest
}

func (p *ProblemDetailsImpl) WriteResponse(w http.ResponseWriter) {
	w.Header().Add("Content-Type", p.ContentType())
	w.Header().Add("Content-Language", "en")
	w.WriteHeader(p.ResponseCode())

	pdbytes, err := json.MarshalIndent(p, "", "  ")
	if err == nil {
		w.Write(pdbytes)
	}
}
