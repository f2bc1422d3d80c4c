package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"custodian/internal/custody"
	"custodian/internal/custody/handler/mocks"
	"custodian/internal/domain"
	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
	"custodian/pkg/requestcontext"
)

type CustodyHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	rc      requestcontext.RequestContext
}

func TestCustodyHandlerSuite(t *testing.T) {
	suite.Run(t, new(CustodyHandlerSuite))
}

func (s *CustodyHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.rc = requestcontext.RequestContext{ActorID: id.NewActorID(), OrganizationID: id.NewOrganizationID(), Role: "examiner"}

	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(r.Context(), s.rc)))
		})
	})
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *CustodyHandlerSuite) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(method, target, r))
	return w
}

func (s *CustodyHandlerSuite) TestRecordAction() {
	evidenceID := id.NewEvidenceID()
	s.service.EXPECT().
		RecordCustodyAction(gomock.Any(), s.rc, evidenceID, custody.ActionInput{Action: "CheckedOut", Reason: "lab", Location: "Lab 2"}).
		Return(&domain.CustodyRecord{
			ID: id.NewCustodyRecordID(), EvidenceID: evidenceID, Sequence: 2, ActorID: s.rc.ActorID,
			Action: "CheckedOut", Reason: "lab", Location: "Lab 2", Signature: "sig",
			Integrity: domain.IntegrityVerified, CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}, nil)

	w := s.do(http.MethodPost, "/evidence/"+evidenceID.String()+"/custody", `{"action":"CheckedOut","reason":" lab ","location":"Lab 2"}`)
	s.Require().Equal(http.StatusCreated, w.Code)

	var resp RecordResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(int64(2), resp.Sequence)
	s.Equal("verified", resp.Integrity)
}

func (s *CustodyHandlerSuite) TestRecordActionValidation() {
	evidenceID := id.NewEvidenceID()
	s.Equal(http.StatusUnprocessableEntity, s.do(http.MethodPost, "/evidence/"+evidenceID.String()+"/custody", `{"reason":"x"}`).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/evidence/not-an-id/custody", `{"action":"CheckedOut"}`).Code)
}

func (s *CustodyHandlerSuite) TestListMarksFailedRecords() {
	evidenceID := id.NewEvidenceID()
	s.service.EXPECT().ListCustodyRecords(gomock.Any(), s.rc, evidenceID).Return([]domain.CustodyRecord{
		{ID: id.NewCustodyRecordID(), Sequence: 1, Action: "Created", Integrity: domain.IntegrityVerified},
		{ID: id.NewCustodyRecordID(), Sequence: 2, Action: "CheckedOut", Integrity: domain.IntegrityFailed},
	}, nil)

	w := s.do(http.MethodGet, "/evidence/"+evidenceID.String()+"/custody", "")
	s.Require().Equal(http.StatusOK, w.Code)

	var resp LedgerResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Len(resp.Records, 2)
	s.Equal(1, resp.IntegrityFailed)
	s.Equal("failed", resp.Records[1].Integrity)
}

func (s *CustodyHandlerSuite) TestVerifyRecordDistinguishesIntegrityFromMissing() {
	evidenceID := id.NewEvidenceID()
	tampered, missing := id.NewCustodyRecordID(), id.NewCustodyRecordID()
	s.service.EXPECT().VerifyRecord(gomock.Any(), s.rc, evidenceID, tampered).
		Return(nil, dErrors.New(dErrors.CodeIntegrityFailure, "custody record failed integrity verification"))
	s.service.EXPECT().VerifyRecord(gomock.Any(), s.rc, evidenceID, missing).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "custody record not found"))

	w := s.do(http.MethodGet, "/evidence/"+evidenceID.String()+"/custody/"+tampered.String()+"/verify", "")
	s.Equal(http.StatusConflict, w.Code)
	var body map[string]string
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("integrity_failure", body["error"])

	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/evidence/"+evidenceID.String()+"/custody/"+missing.String()+"/verify", "").Code)
}

func (s *CustodyHandlerSuite) TestVerifyLedger() {
	evidenceID := id.NewEvidenceID()
	s.service.EXPECT().VerifyLedger(gomock.Any(), s.rc, evidenceID).Return(&custody.LedgerReport{
		EvidenceID: evidenceID, Records: 3, Status: domain.StatusInCustody, DerivedStatus: domain.StatusInCustody,
	}, nil)

	w := s.do(http.MethodGet, "/evidence/"+evidenceID.String()+"/custody/verify", "")
	s.Require().Equal(http.StatusOK, w.Code)
	var resp ReportResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.True(resp.Valid)
	s.Equal(3, resp.Records)
	s.Empty(resp.FailedRecords)
}

func (s *CustodyHandlerSuite) TestCaseActions() {
	caseID := id.NewCaseID()
	actionID := id.NewCaseActionID()
	order := 3

	s.service.EXPECT().ListCaseActions(gomock.Any(), s.rc, caseID).Return([]domain.CaseAction{
		{ID: id.NewCaseActionID(), CaseID: caseID, Name: "CheckedOut", IsDefault: true},
	}, nil)
	s.service.EXPECT().CreateCaseAction(gomock.Any(), s.rc, caseID, custody.CaseActionInput{Name: "Imaged", Order: &order}).
		Return(&domain.CaseAction{ID: actionID, CaseID: caseID, Name: "Imaged", Order: 3}, nil)
	s.service.EXPECT().DeleteCaseAction(gomock.Any(), s.rc, caseID, actionID).
		Return(dErrors.New(dErrors.CodeForbidden, "default custody actions cannot be deleted"))

	w := s.do(http.MethodGet, "/cases/"+caseID.String()+"/actions", "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"is_default":true`)

	w = s.do(http.MethodPost, "/cases/"+caseID.String()+"/actions", `{"name":"Imaged","order":3}`)
	s.Require().Equal(http.StatusCreated, w.Code)

	s.Equal(http.StatusForbidden, s.do(http.MethodDelete, "/cases/"+caseID.String()+"/actions/"+actionID.String(), "").Code)
	s.Equal(http.StatusUnprocessableEntity, s.do(http.MethodPost, "/cases/"+caseID.String()+"/actions", `{"name":"x","order":-1}`).Code)
}
