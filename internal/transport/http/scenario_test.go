package httptransport_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodian/internal/app"
	audithandler "custodian/internal/audit/handler"
	custodyhandler "custodian/internal/custody/handler"
	"custodian/internal/domain"
	evidencehandler "custodian/internal/evidence/handler"
	jwttoken "custodian/internal/jwt_token"
	"custodian/internal/platform/config"
	"custodian/internal/platform/metrics"
	qahandler "custodian/internal/qa/handler"
	"custodian/internal/storage/memory"
	httptransport "custodian/internal/transport/http"
	id "custodian/pkg/domain"
	"custodian/pkg/requestcontext"
	"custodian/pkg/testutil"
)

// stack is the server as cmd/server assembles it, over the memory store.
type stack struct {
	router http.Handler
	store  *memory.Store
	token  string
	rc     requestcontext.RequestContext
}

func newStack(t *testing.T) *stack {
	t.Helper()
	cfg := config.Default()
	cfg.Evidence.Root = t.TempDir()
	cfg.Signing.ScryptCost = 1 << 10
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.New()
	reg := prometheus.NewRegistry()
	a, err := app.New(context.Background(), cfg, log, app.WithRegisterer(reg), app.WithStore(store))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	jwt := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "custodian", "custodian-api")
	rc := requestcontext.RequestContext{ActorID: id.NewActorID(), OrganizationID: id.NewOrganizationID(), Role: "examiner"}
	token, err := jwt.GenerateAccessToken(rc, time.Hour)
	require.NoError(t, err)

	router := httptransport.NewRouter(httptransport.Config{
		Logger:        log,
		Authenticator: jwt,
		Metrics:       metrics.New(reg),
		Gatherer:      reg,
		Handlers: []httptransport.Registrar{
			audithandler.New(a.Audit, log),
			custodyhandler.New(a.Custody, log),
			evidencehandler.New(a.Evidence, log, cfg.Server.MaxUpload),
			qahandler.New(a.QA, log),
		},
	})
	return &stack{router: router, store: store, token: token, rc: rc}
}

func (s *stack) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, method, path, body)
	return testutil.DoRequest(s.router, testutil.WithBearer(req, s.token))
}

func TestEvidenceLifecycleOverHTTP(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	kase := domain.Case{ID: id.NewCaseID(), OrganizationID: s.rc.OrganizationID, Number: "C-2026-14"}
	require.NoError(t, s.store.CreateCase(ctx, &kase))
	evType := domain.EvidenceType{ID: id.NewEvidenceTypeID(), OrganizationID: s.rc.OrganizationID, Name: "Hard drive"}
	require.NoError(t, s.store.CreateEvidenceType(ctx, &evType))
	casePath := "/cases/" + kase.ID.String()

	var evidenceID string
	testutil.Given(t, "a case with registered evidence", func(t *testing.T) {
		rr := s.do(t, http.MethodPost, casePath+"/evidence", map[string]any{
			"number":  "EV-001",
			"type_id": evType.ID.String(),
			"size":    2048,
			"reason":  "seized at scene",
		})
		testutil.AssertStatus(t, rr, http.StatusCreated)
		ev := testutil.UnmarshalResponse[evidencehandler.EvidenceResponse](t, rr)
		assert.Equal(t, "In Custody", ev.Status)
		evidenceID = ev.ID
	})
	require.NotEmpty(t, evidenceID)
	custodyPath := "/evidence/" + evidenceID + "/custody"

	testutil.When(t, "the item is checked out", func(t *testing.T) {
		rr := s.do(t, http.MethodPost, custodyPath, map[string]string{"action": "CheckedOut", "reason": "imaging"})
		testutil.AssertStatus(t, rr, http.StatusCreated)

		testutil.Then(t, "the ledger verifies and the status follows the last action", func(t *testing.T) {
			rr := s.do(t, http.MethodGet, custodyPath+"/verify", nil)
			testutil.AssertStatusOK(t, rr)
			report := testutil.UnmarshalResponse[custodyhandler.ReportResponse](t, rr)
			assert.True(t, report.Valid)
			assert.Equal(t, 2, report.Records)

			rr = s.do(t, http.MethodGet, "/evidence/"+evidenceID, nil)
			testutil.AssertJSONContains(t, rr, "status", "Checked Out")
		})
	})

	testutil.When(t, "a QA checklist is applied to the case", func(t *testing.T) {
		rr := s.do(t, http.MethodPost, "/qa/templates", map[string]any{
			"name":  "Imaging",
			"items": []map[string]string{{"title": "Write blocker attached"}, {"title": "Image hashed"}},
		})
		testutil.AssertStatus(t, rr, http.StatusCreated)
		tmpl := testutil.UnmarshalResponse[qahandler.TemplateResponse](t, rr)

		rr = s.do(t, http.MethodPost, casePath+"/qa/apply", map[string]string{"template_id": tmpl.ID})
		testutil.AssertStatus(t, rr, http.StatusCreated)
		applied := testutil.UnmarshalResponse[qahandler.ApplyResponse](t, rr)
		require.Len(t, applied.Responses, 2)

		rr = s.do(t, http.MethodPatch, casePath+"/qa/"+applied.Responses[0].ID, map[string]any{"completed": true})
		testutil.AssertStatusOK(t, rr)

		testutil.Then(t, "the case summary counts the completed item", func(t *testing.T) {
			rr := s.do(t, http.MethodGet, casePath+"/qa", nil)
			testutil.AssertStatusOK(t, rr)
			list := testutil.UnmarshalResponse[qahandler.ChecklistListResponse](t, rr)
			assert.Equal(t, 2, list.Total)
			assert.Equal(t, 1, list.Completed)
		})
	})

	testutil.Then(t, "every mutation is in the audit trail", func(t *testing.T) {
		rr := s.do(t, http.MethodGet, "/audit?resource_type=evidence&case_id="+kase.ID.String(), nil)
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONHasKey(t, rr, "entries")
	})
}

func TestUnknownCaseIsNotFound(t *testing.T) {
	s := newStack(t)
	rr := s.do(t, http.MethodGet, "/cases/"+id.NewCaseID().String()+"/qa", nil)
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestMissingTokenIsRejected(t *testing.T) {
	s := newStack(t)
	req := testutil.NewJSONRequest(t, http.MethodPost, "/qa/templates", map[string]string{"name": "x"})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}
