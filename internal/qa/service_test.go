package qa

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"custodian/internal/audit"
	"custodian/internal/domain"
	"custodian/internal/storage/memory"
	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
	"custodian/pkg/requestcontext"
)

type recordedAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recordedAudit) Record(_ context.Context, _ requestcontext.RequestContext, in audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, in)
}

func (r *recordedAudit) last() audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[len(r.entries)-1]
}

// failingResponses breaks response creation halfway through a transaction.
type failingResponses struct {
	*memory.Store
}

func (f failingResponses) CreateResponses(ctx context.Context, responses []domain.ChecklistResponse) error {
	if err := f.Store.CreateResponses(ctx, responses[:1]); err != nil {
		return err
	}
	return fmt.Errorf("disk full")
}

type ServiceSuite struct {
	suite.Suite
	store   *memory.Store
	audit   *recordedAudit
	metrics *Metrics
	service *Service

	rc   requestcontext.RequestContext
	ctx  context.Context
	now  time.Time
	kase domain.Case
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = memory.New()
	s.audit = &recordedAudit{}
	s.metrics = NewMetrics(prometheus.NewRegistry())
	s.service = New(s.store, s.audit, WithMetrics(s.metrics))

	s.rc = requestcontext.RequestContext{ActorID: id.NewActorID(), OrganizationID: id.NewOrganizationID(), Role: "examiner"}
	s.now = time.Date(2026, 6, 2, 14, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.kase = domain.Case{ID: id.NewCaseID(), OrganizationID: s.rc.OrganizationID, Number: "C-2026-12", Title: "Embezzlement"}
	s.Require().NoError(s.store.CreateCase(context.Background(), &s.kase))
}

func (s *ServiceSuite) template(n int) *domain.QATemplate {
	in := TemplateInput{Name: "Disk imaging"}
	for i := 0; i < n; i++ {
		in.Items = append(in.Items, ItemInput{Title: fmt.Sprintf("Step %d", i+1)})
	}
	t, err := s.service.CreateTemplate(s.ctx, s.rc, in)
	s.Require().NoError(err)
	return t
}

func (s *ServiceSuite) TestCreateTemplate() {
	s.Run("keeps item order and trims text", func() {
		t, err := s.service.CreateTemplate(s.ctx, s.rc, TemplateInput{
			Name: "  Mobile extraction ",
			Items: []ItemInput{
				{Title: "Photograph device"},
				{Title: " Enable airplane mode ", Description: "  before extraction "},
			},
		})
		s.Require().NoError(err)
		s.Equal("Mobile extraction", t.Name)
		s.Require().Len(t.Items, 2)
		s.Equal(0, t.Items[0].Order)
		s.Equal("Enable airplane mode", t.Items[1].Title)
		s.Equal("before extraction", t.Items[1].Description)
		s.Equal(1, t.Items[1].Order)
		s.Equal(t.ID, *t.Items[1].TemplateID)
		s.Equal(domain.AuditQATemplateCreated, s.audit.last().Action)
	})

	tests := []struct {
		name string
		in   TemplateInput
	}{
		{"missing name", TemplateInput{Name: " ", Items: []ItemInput{{Title: "a"}}}},
		{"no items", TemplateInput{Name: "Empty"}},
		{"blank item title", TemplateInput{Name: "Bad", Items: []ItemInput{{Title: "ok"}, {Title: "  "}}}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.CreateTemplate(s.ctx, s.rc, tt.in)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
		})
	}
}

func (s *ServiceSuite) TestApplyTemplate() {
	s.Run("creates one pending response per item", func() {
		t := s.template(10)

		res, err := s.service.ApplyTemplate(s.ctx, s.rc, s.kase.ID, t.ID)
		s.Require().NoError(err)
		s.Len(res.Responses, 10)
		s.Zero(res.Replaced)

		listed, err := s.service.ListResponses(s.ctx, s.rc, s.kase.ID)
		s.Require().NoError(err)
		s.Require().Len(listed, 10)
		for i, r := range listed {
			s.Equal(domain.ResponsePending, r.State())
			s.Nil(r.CompletedBy)
			s.Nil(r.CompletedAt)
			s.Require().NotNil(r.Item)
			s.Equal(fmt.Sprintf("Step %d", i+1), r.Item.Title)
		}
		s.Equal(float64(10), testutil.ToFloat64(s.metrics.ResponsesCreated))
		s.Equal(domain.AuditQATemplateApplied, s.audit.last().Action)
	})

	s.Run("applying twice duplicates responses", func() {
		s.SetupTest()
		t := s.template(3)
		_, err := s.service.ApplyTemplate(s.ctx, s.rc, s.kase.ID, t.ID)
		s.Require().NoError(err)
		_, err = s.service.ApplyTemplate(s.ctx, s.rc, s.kase.ID, t.ID)
		s.Require().NoError(err)

		sum, err := s.service.Summary(s.ctx, s.rc, s.kase.ID)
		s.Require().NoError(err)
		s.Equal(6, sum.Total)
	})

	s.Run("is all or nothing", func() {
		s.SetupTest()
		t := s.template(4)
		broken := New(failingResponses{s.store}, s.audit)

		_, err := broken.ApplyTemplate(s.ctx, s.rc, s.kase.ID, t.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))

		listed, err := s.service.ListResponses(s.ctx, s.rc, s.kase.ID)
		s.Require().NoError(err)
		s.Empty(listed)
	})

	s.Run("unknown template", func() {
		_, err := s.service.ApplyTemplate(s.ctx, s.rc, s.kase.ID, id.NewTemplateID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("template from another organization", func() {
		t := s.template(2)
		other := requestcontext.RequestContext{ActorID: id.NewActorID(), OrganizationID: id.NewOrganizationID()}
		otherCase := domain.Case{ID: id.NewCaseID(), OrganizationID: other.OrganizationID, Number: "X-1"}
		s.Require().NoError(s.store.CreateCase(context.Background(), &otherCase))

		_, err := s.service.ApplyTemplate(s.ctx, other, otherCase.ID, t.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("template without items", func() {
		empty := &domain.QATemplate{ID: id.NewTemplateID(), OrganizationID: s.rc.OrganizationID, Name: "Draft"}
		s.Require().NoError(s.store.CreateTemplate(context.Background(), empty))

		_, err := s.service.ApplyTemplate(s.ctx, s.rc, s.kase.ID, empty.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown case", func() {
		t := s.template(1)
		_, err := s.service.ApplyTemplate(s.ctx, s.rc, id.NewCaseID(), t.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestReplaceTemplate() {
	t := s.template(3)
	other := s.template(2)
	first, err := s.service.ApplyTemplate(s.ctx, s.rc, s.kase.ID, t.ID)
	s.Require().NoError(err)
	_, err = s.service.ApplyTemplate(s.ctx, s.rc, s.kase.ID, other.ID)
	s.Require().NoError(err)
	_, err = s.service.UpdateResponse(s.ctx, s.rc, s.kase.ID, first.Responses[0].ID, ResponseUpdate{Completed: true})
	s.Require().NoError(err)

	res, err := s.service.ReplaceTemplate(s.ctx, s.rc, s.kase.ID, t.ID)
	s.Require().NoError(err)
	s.Equal(3, res.Replaced)
	s.Len(res.Responses, 3)
	s.Equal(domain.AuditQATemplateReplaced, s.audit.last().Action)

	sum, err := s.service.Summary(s.ctx, s.rc, s.kase.ID)
	s.Require().NoError(err)
	s.Equal(5, sum.Total, "other template's responses survive")
	s.Zero(sum.Completed)
}

func (s *ServiceSuite) TestUpdateResponse() {
	t := s.template(10)
	applied, err := s.service.ApplyTemplate(s.ctx, s.rc, s.kase.ID, t.ID)
	s.Require().NoError(err)
	target := applied.Responses[4]

	s.Run("completing records the completer and time", func() {
		notes := "  imaged with write blocker "
		r, err := s.service.UpdateResponse(s.ctx, s.rc, s.kase.ID, target.ID, ResponseUpdate{Completed: true, Notes: &notes})
		s.Require().NoError(err)
		s.True(r.Completed)
		s.Require().NotNil(r.CompletedBy)
		s.Equal(s.rc.ActorID, *r.CompletedBy)
		s.Require().NotNil(r.CompletedAt)
		s.Equal(s.now, *r.CompletedAt)
		s.Equal("imaged with write blocker", r.Notes)

		listed, err := s.service.ListResponses(s.ctx, s.rc, s.kase.ID)
		s.Require().NoError(err)
		for _, other := range listed {
			if other.ID == target.ID {
				s.True(other.Completed)
				continue
			}
			s.False(other.Completed)
			s.Nil(other.CompletedBy)
		}
		sum, err := s.service.Summary(s.ctx, s.rc, s.kase.ID)
		s.Require().NoError(err)
		s.Equal(domain.QASummary{Total: 10, Completed: 1}, sum)
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.Transitions.WithLabelValues("completed")))

		entry := s.audit.last()
		s.Equal(domain.AuditQAResponseUpdated, entry.Action)
		s.Equal("completed", entry.Details["state"])
	})

	s.Run("completing again keeps the original completer", func() {
		later := requestcontext.WithTime(context.Background(), s.now.Add(time.Hour))
		other := s.rc
		other.ActorID = id.NewActorID()

		r, err := s.service.UpdateResponse(later, other, s.kase.ID, target.ID, ResponseUpdate{Completed: true})
		s.Require().NoError(err)
		s.Equal(s.rc.ActorID, *r.CompletedBy)
		s.Equal(s.now, *r.CompletedAt)
		s.Equal("imaged with write blocker", r.Notes, "nil notes leave notes alone")
	})

	s.Run("reopening clears completion", func() {
		r, err := s.service.UpdateResponse(s.ctx, s.rc, s.kase.ID, target.ID, ResponseUpdate{Completed: false})
		s.Require().NoError(err)
		s.False(r.Completed)
		s.Nil(r.CompletedBy)
		s.Nil(r.CompletedAt)
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.Transitions.WithLabelValues("reopened")))
	})

	s.Run("response from another case", func() {
		otherCase := domain.Case{ID: id.NewCaseID(), OrganizationID: s.rc.OrganizationID, Number: "C-2026-13"}
		s.Require().NoError(s.store.CreateCase(context.Background(), &otherCase))

		_, err := s.service.UpdateResponse(s.ctx, s.rc, otherCase.ID, target.ID, ResponseUpdate{Completed: true})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("requires an actor", func() {
		_, err := s.service.UpdateResponse(s.ctx, requestcontext.RequestContext{}, s.kase.ID, target.ID, ResponseUpdate{Completed: true})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
