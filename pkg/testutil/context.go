package testutil

import (
	"net/http"

	"custodian/pkg/requestcontext"
)

// WithActor puts rc on the request the way the auth middleware does for a
// validated bearer token.
func WithActor(req *http.Request, rc requestcontext.RequestContext) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), rc))
}

// WithBearer sets the Authorization header for requests that go through the
// full middleware chain.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
