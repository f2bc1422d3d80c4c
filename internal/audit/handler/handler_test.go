package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"custodian/internal/audit"
	"custodian/internal/audit/handler/mocks"
	"custodian/internal/domain"
	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
	"custodian/pkg/requestcontext"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type AuditHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	rc      requestcontext.RequestContext
}

func TestAuditHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuditHandlerSuite))
}

func (s *AuditHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.rc = requestcontext.RequestContext{ActorID: id.NewActorID(), OrganizationID: id.NewOrganizationID(), Role: "examiner"}

	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(r.Context(), s.rc)))
		})
	})
	h.Register(s.router)
}

func (s *AuditHandlerSuite) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *AuditHandlerSuite) TestQueryPassesFiltersAndPaging() {
	kase := id.NewCaseID()
	actor := s.rc.ActorID
	s.service.EXPECT().
		Query(gomock.Any(), s.rc, domain.AuditFilter{ResourceType: "evidence", Action: "evidence.created", CaseID: &kase}, 2, 25).
		Return(&domain.AuditPage{
			Entries: []domain.AuditEntry{{
				ID:           id.NewAuditEntryID(),
				Sequence:     7,
				ActorID:      actor,
				Actor:        &domain.UserSummary{ID: actor, Name: "Dana Reyes", Email: "dana@lab.test"},
				Action:       "evidence.created",
				ResourceType: "evidence",
				CaseID:       &kase,
				UserAgent:    chromeUA,
				CreatedAt:    time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
			}},
			Total: 26, Page: 2, Limit: 25,
		}, nil)

	w := s.do(http.MethodGet, "/audit?resource_type=evidence&action=evidence.created&case_id="+kase.String()+"&page=2&limit=25", "")
	s.Require().Equal(http.StatusOK, w.Code)

	var resp PageResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(26, resp.Total)
	s.Require().Len(resp.Entries, 1)
	e := resp.Entries[0]
	s.Equal("Dana Reyes", e.Actor.Name)
	s.Equal(kase.String(), e.CaseID)
	s.NotNil(e.Details)
	s.Require().NotNil(e.Client)
	s.Equal("Chrome", e.Client.Browser)
	s.Equal("Windows 10", e.Client.OS)
	s.False(e.Client.Mobile)
}

func (s *AuditHandlerSuite) TestQueryRejectsMalformedParameters() {
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/audit?page=two", "").Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/audit?case_id=not-a-uuid", "").Code)
}

func (s *AuditHandlerSuite) TestQueryMapsUnauthorized() {
	s.service.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any(), 0, 0).
		Return(nil, dErrors.New(dErrors.CodeUnauthorized, "authenticated actor and organization required"))
	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/audit", "").Code)
}

func (s *AuditHandlerSuite) TestAppend() {
	kase := id.NewCaseID()
	s.service.EXPECT().
		Append(gomock.Any(), s.rc, gomock.Any()).
		DoAndReturn(func(_ context.Context, rc requestcontext.RequestContext, in audit.Entry) (*domain.AuditEntry, error) {
			s.Equal(domain.AuditAction("note.created"), in.Action)
			s.Equal("note", in.ResourceType)
			s.Require().NotNil(in.CaseID)
			s.Equal(kase, *in.CaseID)
			return &domain.AuditEntry{
				ID: id.NewAuditEntryID(), Sequence: 1, ActorID: rc.ActorID, OrganizationID: rc.OrganizationID,
				Action: string(in.Action), ResourceType: in.ResourceType, CaseID: in.CaseID, Details: in.Details,
			}, nil
		})

	w := s.do(http.MethodPost, "/audit", `{"action":" note.created ","resource_type":"note","case_id":"`+kase.String()+`","details":{"title":"x"}}`)
	s.Require().Equal(http.StatusCreated, w.Code)

	var resp EntryResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("x", resp.Details["title"])
	s.Nil(resp.Client)
}

func (s *AuditHandlerSuite) TestAppendValidation() {
	w := s.do(http.MethodPost, "/audit", `{"resource_type":"note"}`)
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	var body map[string]string
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("action is required", body["error_description"])

	s.Equal(http.StatusUnprocessableEntity, s.do(http.MethodPost, "/audit", `{"action":"a","resource_type":"note","case_id":"nope"}`).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/audit", `{"action":`).Code)
}

func TestParseClient(t *testing.T) {
	assert.Nil(t, parseClient(""))

	c := parseClient("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
	require.NotNil(t, c)
	assert.True(t, c.Mobile)
	assert.Equal(t, "Safari", c.Browser)
}
