// Package pipeline runs one audit batch end to end: aggregate raw violations
// into candidate groups, reconcile the site's opportunities, synchronize
// suggestion rows, and dispatch remediation requests.
package pipeline

import (
	"context"
	"sort"

	"github.com/a11ykit/remedia/internal/aggregate"
	"github.com/a11ykit/remedia/internal/dispatch"
	"github.com/a11ykit/remedia/internal/models"
	"github.com/a11ykit/remedia/internal/opportunity"
	"github.com/a11ykit/remedia/pkg/logger"
)

// Reconciler finds or creates the one active opportunity per site and type.
type Reconciler interface {
	FindOrCreate(ctx context.Context, instance opportunity.Instance, site models.Site, auditID, updatedBy string) (*opportunity.ReconcileResult, error)
}

// SuggestionSync reconciles an opportunity's stored suggestions against
// fresh candidate groups.
type SuggestionSync interface {
	Sync(ctx context.Context, opp opportunity.Opportunity, groups []models.CandidateGroup) error
}

// MessageDispatcher fans remediation messages out, one per page.
type MessageDispatcher interface {
	Dispatch(ctx context.Context, site models.Site, auditID, opportunityID string, pages []dispatch.Page) (dispatch.Summary, error)
}

// Batch identifies one audit run's site and audit.
type Batch struct {
	Site    models.Site
	AuditID string
}

// Outcome reports one opportunity's reconciliation in a batch.
type Outcome struct {
	OpportunityID string           `json:"opportunityId"`
	Type          string           `json:"type"`
	Status        string           `json:"status"`
	Dispatch      dispatch.Summary `json:"dispatch"`
}

// Result is the batch-level answer the audit runner reports. Either
// Opportunities is populated, or Status carries NO_OPPORTUNITIES with a
// message, or OPPORTUNITIES_FAILED with the error.
type Result struct {
	Status        string    `json:"status,omitempty"`
	Message       string    `json:"message,omitempty"`
	Error         string    `json:"error,omitempty"`
	Opportunities []Outcome `json:"opportunities,omitempty"`
}

// Pipeline wires the batch stages together.
type Pipeline struct {
	aggregator *aggregate.Aggregator
	reconciler Reconciler
	sync       SuggestionSync
	dispatcher MessageDispatcher
	updatedBy  string
	log        logger.Logger
}

// New creates a pipeline over the given collaborators.
func New(agg *aggregate.Aggregator, rec Reconciler, sync SuggestionSync, disp MessageDispatcher, updatedBy string, log logger.Logger) *Pipeline {
	return &Pipeline{
		aggregator: agg,
		reconciler: rec,
		sync:       sync,
		dispatcher: disp,
		updatedBy:  updatedBy,
		log:        log,
	}
}

// instances maps opportunity types to their creation templates. Types
// without a template are skipped with a warning rather than failing the
// batch.
var instances = map[string]func() opportunity.Instance{
	models.OpportunityTypeAssistive: opportunity.AssistiveInstance,
}

// Run processes one audit batch. The result always describes the outcome;
// the returned error is additionally non-nil for store and queue level
// failures so callers can decide whether to retry the batch.
func (p *Pipeline) Run(ctx context.Context, scrape models.ScrapeResult, batch Batch) (*Result, error) {
	aggregated := p.aggregator.ByOppType(scrape)
	byType := groupsByType(aggregated)

	if len(byType) == 0 {
		p.log.Info("No opportunity candidates in audit data",
			"site", batch.Site.ID, "audit", batch.AuditID)
		return &Result{
			Status:  models.StatusNoOpportunities,
			Message: "no opportunity candidates aggregated from audit data",
		}, nil
	}

	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	var outcomes []Outcome
	for _, oppType := range types {
		instance, ok := instances[oppType]
		if !ok {
			p.log.Warn("No opportunity template for type, skipping", "type", oppType)
			continue
		}

		outcome, err := p.runOpportunity(ctx, instance(), byType[oppType], batch)
		if err != nil {
			p.log.Error("[A11yProcessingError] Batch failed",
				"site", batch.Site.ID, "audit", batch.AuditID, "type", oppType, "error", err)
			return &Result{
				Status: models.StatusOpportunitiesFailed,
				Error:  err.Error(),
			}, err
		}
		outcomes = append(outcomes, *outcome)
	}

	if len(outcomes) == 0 {
		return &Result{
			Status:  models.StatusNoOpportunities,
			Message: "no opportunity templates matched the aggregated data",
		}, nil
	}

	return &Result{Opportunities: outcomes}, nil
}

// runOpportunity reconciles, synchronizes and dispatches one opportunity
// type's candidate groups.
func (p *Pipeline) runOpportunity(ctx context.Context, instance opportunity.Instance, groups []models.CandidateGroup, batch Batch) (*Outcome, error) {
	reconciled, err := p.reconciler.FindOrCreate(ctx, instance, batch.Site, batch.AuditID, p.updatedBy)
	if err != nil {
		return nil, newPipelineError(StageReconcile, err)
	}
	opp := reconciled.Opportunity

	if err := p.sync.Sync(ctx, opp, groups); err != nil {
		return nil, newPipelineError(StageSync, err)
	}

	summary, err := p.dispatcher.Dispatch(ctx, batch.Site, batch.AuditID, opp.ID(), dispatch.PagesFromGroups(groups))
	if err != nil {
		return nil, newPipelineError(StageDispatch, err)
	}

	status := models.StatusOpportunityUpdated
	if reconciled.IsNew {
		status = models.StatusOpportunityCreated
	}

	p.log.Info("Opportunity reconciled",
		"site", batch.Site.ID,
		"opportunity", opp.ID(),
		"type", opp.Type(),
		"status", status,
		"pages", len(groups),
	)

	return &Outcome{
		OpportunityID: opp.ID(),
		Type:          opp.Type(),
		Status:        status,
		Dispatch:      summary,
	}, nil
}

// groupsByType flattens the aggregator's bucket list into one ordered slice
// of candidate groups per opportunity type.
func groupsByType(aggregated models.AggregationResult) map[string][]models.CandidateGroup {
	byType := make(map[string][]models.CandidateGroup)
	for _, bucket := range aggregated.Data {
		for oppType, groups := range bucket {
			byType[oppType] = append(byType[oppType], groups...)
		}
	}
	return byType
}
