package auth

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/matryer/is"
)

func TestAllowsAnonymousReadAccess(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	e, err := NewAuthenticator(ctx, bytes.NewBufferString(readOnlyPolicy))
	is.NoErr(err)

	req, _ := http.NewRequest(http.MethodGet, "http://localhost/api/v1/document", nil)
	is.NoErr(e.CheckAccess(ctx, req))
}

func TestDeniesWriteAccess(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	e, err := NewAuthenticator(ctx, bytes.NewBufferString(readOnlyPolicy))
	is.NoErr(err)

	req, _ := http.NewRequest(http.MethodPost, "http://localhost/api/v1/document", nil)
	is.True(e.CheckAccess(ctx, req) != nil)
}

func TestDeniesHistoryAccessWithoutToken(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	e, err := NewAuthenticator(ctx, bytes.NewBufferString(readOnlyPolicy))
	is.NoErr(err)

	req, _ := http.NewRequest(http.MethodGet, "http://localhost/api/v1/history", nil)
	is.True(e.CheckAccess(ctx, req) != nil) // history requires a bearer token

	req.Header.Set("Authorization", "Bearer sekret")
	is.NoErr(e.CheckAccess(ctx, req))
}

const readOnlyPolicy = `
package mdpipe.authz

default allow := false

allow {
    input.method == "GET"
    input.path == ["api", "v1", "document"]
}

allow {
    input.method == "GET"
    input.path == ["api", "v1", "history"]
    input.token == "sekret"
}
`
