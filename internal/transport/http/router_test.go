package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodian/internal/platform/metrics"
	id "custodian/pkg/domain"
	"custodian/pkg/requestcontext"
)

type tokenTable map[string]requestcontext.RequestContext

func (t tokenTable) Authenticate(token string) (requestcontext.RequestContext, error) {
	rc, ok := t[token]
	if !ok {
		return requestcontext.RequestContext{}, errors.New("unknown token")
	}
	return rc, nil
}

// whoami echoes the resolved actor and request metadata.
type whoami struct{}

func (whoami) Register(r chi.Router) {
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		_ = json.NewEncoder(w).Encode(map[string]string{
			"actor":      requestcontext.Actor(ctx).ActorID.String(),
			"request_id": requestcontext.RequestID(ctx),
			"user_agent": requestcontext.UserAgent(ctx),
		})
	})
}

func newTestRouter(t *testing.T, checks map[string]HealthCheck) (http.Handler, requestcontext.RequestContext) {
	t.Helper()
	rc := requestcontext.RequestContext{ActorID: id.NewActorID(), OrganizationID: id.NewOrganizationID(), Role: "examiner"}
	reg := prometheus.NewRegistry()
	return NewRouter(Config{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Authenticator: tokenTable{"t1": rc},
		Metrics:       metrics.New(reg),
		Gatherer:      reg,
		Checks:        checks,
		Handlers:      []Registrar{whoami{}},
	}), rc
}

func TestRouterAuthenticatesModuleRoutes(t *testing.T) {
	router, rc := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer t1")
	req.Header.Set("User-Agent", "custodyctl/1.0")
	req.Header.Set("X-Request-ID", "req-7")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, rc.ActorID.String(), body["actor"])
	assert.Equal(t, "req-7", body["request_id"])
	assert.Equal(t, "custodyctl/1.0", body["user_agent"])
}

func TestRouterOperationalEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"postgres":"ok","redis":"unavailable"}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "custodian_http_requests_total"))
}
