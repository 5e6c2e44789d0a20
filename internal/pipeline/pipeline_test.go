package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/a11ykit/remedia/internal/aggregate"
	"github.com/a11ykit/remedia/internal/dispatch"
	"github.com/a11ykit/remedia/internal/models"
	"github.com/a11ykit/remedia/internal/opportunity"
	"github.com/a11ykit/remedia/pkg/logger"
)

type mockReconciler struct {
	result *opportunity.ReconcileResult
	err    error

	gotInstance  opportunity.Instance
	gotAuditID   string
	gotUpdatedBy string
}

func (m *mockReconciler) FindOrCreate(_ context.Context, instance opportunity.Instance, _ models.Site, auditID, updatedBy string) (*opportunity.ReconcileResult, error) {
	m.gotInstance = instance
	m.gotAuditID = auditID
	m.gotUpdatedBy = updatedBy
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockSync struct {
	err       error
	gotOpp    opportunity.Opportunity
	gotGroups []models.CandidateGroup
}

func (m *mockSync) Sync(_ context.Context, opp opportunity.Opportunity, groups []models.CandidateGroup) error {
	m.gotOpp = opp
	m.gotGroups = groups
	return m.err
}

type mockDispatcher struct {
	summary  dispatch.Summary
	err      error
	gotOppID string
	gotPages []dispatch.Page
}

func (m *mockDispatcher) Dispatch(_ context.Context, _ models.Site, _ string, opportunityID string, pages []dispatch.Page) (dispatch.Summary, error) {
	m.gotOppID = opportunityID
	m.gotPages = pages
	if m.err != nil {
		return dispatch.Summary{}, m.err
	}
	return m.summary, nil
}

func testScrape() models.ScrapeResult {
	return models.ScrapeResult{
		"https://x.com/a": {
			Violations: models.ViolationTree{
				models.SeverityCritical: {
					Items: map[string]models.ViolationItem{
						"aria-hidden-focus": {
							SuccessCriteriaTags: []string{"wcag412"},
							HTMLWithIssues:      []string{"<div>a</div>"},
							Target:              []string{"div.a"},
						},
					},
				},
			},
		},
	}
}

func testBatch() Batch {
	return Batch{
		Site:    models.Site{ID: "site-1", DeliveryType: "edge"},
		AuditID: "audit-1",
	}
}

func newTestPipeline(rec Reconciler, sync SuggestionSync, disp MessageDispatcher) *Pipeline {
	return New(aggregate.New(), rec, sync, disp, "system", logger.NewMockLogger())
}

func TestRunHappyPath(t *testing.T) {
	opp := &opportunity.MockOpportunity{IDVal: "opp-1", TypeVal: models.OpportunityTypeAssistive}
	rec := &mockReconciler{result: &opportunity.ReconcileResult{Opportunity: opp, IsNew: true}}
	sync := &mockSync{}
	disp := &mockDispatcher{summary: dispatch.Summary{Successful: 1}}

	result, err := newTestPipeline(rec, sync, disp).Run(context.Background(), testScrape(), testBatch())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Status != "" || result.Error != "" {
		t.Errorf("result = %+v", result)
	}
	if len(result.Opportunities) != 1 {
		t.Fatalf("got %d outcomes", len(result.Opportunities))
	}

	outcome := result.Opportunities[0]
	if outcome.Status != models.StatusOpportunityCreated {
		t.Errorf("status = %q", outcome.Status)
	}
	if outcome.OpportunityID != "opp-1" {
		t.Errorf("opportunityId = %q", outcome.OpportunityID)
	}
	if outcome.Dispatch.Successful != 1 {
		t.Errorf("dispatch = %+v", outcome.Dispatch)
	}

	// Stages saw the right data.
	if rec.gotAuditID != "audit-1" || rec.gotUpdatedBy != "system" {
		t.Errorf("reconciler got auditID %q updatedBy %q", rec.gotAuditID, rec.gotUpdatedBy)
	}
	if rec.gotInstance.Type != models.OpportunityTypeAssistive {
		t.Errorf("instance type = %q", rec.gotInstance.Type)
	}
	if sync.gotOpp == nil || len(sync.gotGroups) != 1 {
		t.Errorf("sync got opp=%v groups=%d", sync.gotOpp, len(sync.gotGroups))
	}
	if disp.gotOppID != "opp-1" || len(disp.gotPages) != 1 {
		t.Errorf("dispatcher got opp=%q pages=%d", disp.gotOppID, len(disp.gotPages))
	}
}

func TestRunReusedOpportunityReportsUpdated(t *testing.T) {
	opp := &opportunity.MockOpportunity{IDVal: "opp-1", TypeVal: models.OpportunityTypeAssistive}
	rec := &mockReconciler{result: &opportunity.ReconcileResult{Opportunity: opp, IsNew: false}}

	result, err := newTestPipeline(rec, &mockSync{}, &mockDispatcher{}).Run(context.Background(), testScrape(), testBatch())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Opportunities[0].Status != models.StatusOpportunityUpdated {
		t.Errorf("status = %q", result.Opportunities[0].Status)
	}
}

func TestRunEmptyScrapeReportsNoOpportunities(t *testing.T) {
	result, err := newTestPipeline(&mockReconciler{}, &mockSync{}, &mockDispatcher{}).
		Run(context.Background(), models.ScrapeResult{}, testBatch())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Status != models.StatusNoOpportunities {
		t.Errorf("status = %q", result.Status)
	}
	if result.Message == "" {
		t.Error("NO_OPPORTUNITIES should carry a message")
	}
}

func TestRunStageFailures(t *testing.T) {
	storeDown := errors.New("store unreachable")

	tests := []struct {
		name      string
		rec       *mockReconciler
		sync      *mockSync
		disp      *mockDispatcher
		wantStage Stage
	}{
		{
			name:      "reconcile failure",
			rec:       &mockReconciler{err: storeDown},
			sync:      &mockSync{},
			disp:      &mockDispatcher{},
			wantStage: StageReconcile,
		},
		{
			name: "sync failure",
			rec: &mockReconciler{result: &opportunity.ReconcileResult{
				Opportunity: &opportunity.MockOpportunity{IDVal: "opp-1", TypeVal: models.OpportunityTypeAssistive},
			}},
			sync:      &mockSync{err: storeDown},
			disp:      &mockDispatcher{},
			wantStage: StageSync,
		},
		{
			name: "dispatch config failure",
			rec: &mockReconciler{result: &opportunity.ReconcileResult{
				Opportunity: &opportunity.MockOpportunity{IDVal: "opp-1", TypeVal: models.OpportunityTypeAssistive},
			}},
			sync:      &mockSync{},
			disp:      &mockDispatcher{err: errors.New("queue URL missing")},
			wantStage: StageDispatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newTestPipeline(tt.rec, tt.sync, tt.disp).
				Run(context.Background(), testScrape(), testBatch())
			if err == nil {
				t.Fatal("expected error")
			}

			var pe *PipelineError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not a PipelineError", err)
			}
			if pe.Stage != tt.wantStage {
				t.Errorf("stage = %q, want %q", pe.Stage, tt.wantStage)
			}
			if !IsRetryable(err) {
				t.Error("batch failures should be retryable at the batch level")
			}

			if result.Status != models.StatusOpportunitiesFailed {
				t.Errorf("status = %q", result.Status)
			}
			if result.Error == "" {
				t.Error("failed result should carry the error")
			}
		})
	}
}

func TestIsRetryableOtherErrors(t *testing.T) {
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are not pipeline retryable")
	}
}
