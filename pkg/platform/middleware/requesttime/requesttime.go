// Package requesttime pins one clock reading per request. Every row a request
// writes (custody records, audit entries, updated_at columns) shares it.
package requesttime

import (
	"net/http"
	"time"

	"custodian/pkg/requestcontext"
)

// Precision matches Postgres timestamptz so a timestamp read back from the
// store compares equal to the one that was written.
const Precision = time.Microsecond

// Middleware stores the request start time, in UTC and at store precision.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), Stamp(time.Now()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Stamp normalizes t the way Middleware does.
func Stamp(t time.Time) time.Time {
	return t.UTC().Truncate(Precision)
}
