// Package guidance reconciles the remediation service's asynchronous replies
// back into the persisted suggestions: matching by identifier, merging AI
// guidance into issue data, and classifying every mismatch without letting
// one bad item block the rest.
package guidance

import (
	"context"
	"errors"
	"fmt"

	"github.com/a11ykit/remedia/internal/models"
	"github.com/a11ykit/remedia/internal/opportunity"
	"github.com/a11ykit/remedia/pkg/logger"
	"github.com/a11ykit/remedia/pkg/settle"
)

// Reported error strings for expected, non-retryable conditions.
const (
	ErrOpportunityNotFound = "Opportunity not found"
	ErrSiteIDMismatch      = "Site ID mismatch"
)

// MetricsStore persists dispatch/reconciliation validation metrics.
type MetricsStore interface {
	DispatchedCount(ctx context.Context, opportunityID, pageURL string) (int, error)
	SaveValidationMetrics(ctx context.Context, opportunityID, pageURL string, metrics models.ValidationMetrics) error
}

// Result is the structured outcome of handling one guidance message.
// Expected conditions (not found, mismatch, per-item failures) are reported
// here, never thrown.
type Result struct {
	Success               bool          `json:"success"`
	Error                 string        `json:"error,omitempty"`
	TotalIssues           int           `json:"totalIssues"`
	PageURL               string        `json:"pageUrl"`
	NotFoundSuggestionIDs []string      `json:"notFoundSuggestionIds"`
	InvalidRemediations   []Remediation `json:"invalidRemediations"`
	FailedSuggestionIDs   []string      `json:"failedSuggestionIds"`
}

// Handler consumes remediation guidance messages.
type Handler struct {
	store     opportunity.Store
	metrics   MetricsStore
	updatedBy string
	log       logger.Logger
}

// NewHandler creates a guidance handler. metrics may be nil; metric
// persistence is best-effort either way.
func NewHandler(store opportunity.Store, metrics MetricsStore, updatedBy string, log logger.Logger) *Handler {
	return &Handler{store: store, metrics: metrics, updatedBy: updatedBy, log: log}
}

// Handle reconciles one guidance message. The returned error is non-nil only
// for unexpected store-level failures; every expected condition resolves to
// a Result.
func (h *Handler) Handle(ctx context.Context, msg Message) (*Result, error) {
	result := &Result{
		TotalIssues:           msg.Data.TotalIssues,
		PageURL:               msg.Data.PageURL,
		NotFoundSuggestionIDs: []string{},
		InvalidRemediations:   []Remediation{},
		FailedSuggestionIDs:   []string{},
	}

	opp, err := h.store.FindByID(ctx, msg.Data.OpportunityID)
	if err != nil {
		if errors.Is(err, opportunity.ErrNotFound) {
			h.log.Error("[A11yRemediationGuidance] Opportunity not found",
				"opportunity", msg.Data.OpportunityID, "site", msg.SiteID)
			result.Error = ErrOpportunityNotFound
			return result, nil
		}
		return nil, fmt.Errorf("loading opportunity %s: %w", msg.Data.OpportunityID, err)
	}

	if opp.SiteID() != msg.SiteID {
		h.log.Error("[A11yRemediationGuidance] Site ID mismatch",
			"opportunity", opp.ID(), "expected", opp.SiteID(), "got", msg.SiteID)
		result.Error = ErrSiteIDMismatch
		return result, nil
	}

	valid := make([]Remediation, 0, len(msg.Data.Remediations))
	for _, rem := range msg.Data.Remediations {
		if rem.SuggestionID == "" {
			result.InvalidRemediations = append(result.InvalidRemediations, rem)
			continue
		}
		valid = append(valid, rem)
	}
	if len(result.InvalidRemediations) > 0 {
		h.log.Warn("[A11yRemediationGuidance] Remediations missing suggestion id",
			"opportunity", opp.ID(), "count", len(result.InvalidRemediations))
	}

	suggestions, err := opp.Suggestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading suggestions for opportunity %s: %w", opp.ID(), err)
	}

	byID := make(map[string]opportunity.Suggestion, len(suggestions))
	for _, s := range suggestions {
		byID[s.ID()] = s
	}

	// A suggestion can be targeted by several remediations (one per issue),
	// so matches are grouped per suggestion: all guidance merges apply, then
	// one save.
	matchedRems := make(map[string][]Remediation)
	var matchedOrder []string
	seen := make(map[string]struct{})
	for _, rem := range valid {
		if _, ok := byID[rem.SuggestionID]; !ok {
			if _, dup := seen[rem.SuggestionID]; !dup {
				result.NotFoundSuggestionIDs = append(result.NotFoundSuggestionIDs, rem.SuggestionID)
				seen[rem.SuggestionID] = struct{}{}
			}
			continue
		}
		if _, dup := seen[rem.SuggestionID]; !dup {
			matchedOrder = append(matchedOrder, rem.SuggestionID)
			seen[rem.SuggestionID] = struct{}{}
		}
		matchedRems[rem.SuggestionID] = append(matchedRems[rem.SuggestionID], rem)
	}
	if len(result.NotFoundSuggestionIDs) > 0 {
		h.log.Warn("[A11yRemediationGuidance] Suggestions not found",
			"opportunity", opp.ID(), "ids", result.NotFoundSuggestionIDs)
	}

	// Merge guidance and persist every matched suggestion independently.
	tasks := make([]settle.Task[string], 0, len(matchedOrder))
	for _, id := range matchedOrder {
		suggestion := byID[id]
		rems := matchedRems[id]
		tasks = append(tasks, func(ctx context.Context) (string, error) {
			data := suggestion.Data()
			for _, rem := range rems {
				data = mergeGuidance(data, rem)
			}
			suggestion.SetData(data)
			if err := suggestion.Save(ctx); err != nil {
				return suggestion.ID(), err
			}
			return suggestion.ID(), nil
		})
	}

	received := 0
	for _, r := range settle.All(ctx, tasks) {
		if r.Ok() {
			received++
			continue
		}
		result.FailedSuggestionIDs = append(result.FailedSuggestionIDs, r.Value)
		h.log.Error("[A11yRemediationGuidance] Failed to save suggestion",
			"opportunity", opp.ID(), "suggestion", r.Value, "error", r.Err)
	}

	opp.SetAuditID(msg.AuditID)
	opp.SetUpdatedBy(h.updatedBy)
	if err := opp.Save(ctx); err != nil {
		return nil, fmt.Errorf("saving opportunity %s: %w", opp.ID(), err)
	}

	h.recordMetrics(ctx, opp.ID(), msg.Data.PageURL, received)

	result.Success = true
	return result, nil
}

// mergeGuidance attaches the remediation's guidance to every offending HTML
// entry of the matching issue. Guidance merges into issue data; it never
// replaces it. Issues without HTML entries are left unmodified.
func mergeGuidance(data models.SuggestionData, rem Remediation) models.SuggestionData {
	for i, issue := range data.Issues {
		if issue.Type != rem.IssueType || len(issue.HTMLWithIssues) == 0 {
			continue
		}
		for j := range issue.HTMLWithIssues {
			g := rem.Guidance
			data.Issues[i].HTMLWithIssues[j].Guidance = &g
		}
	}
	return data
}

// recordMetrics persists {sent, received} validation counts. Best-effort:
// failures are logged and never fail the handler.
func (h *Handler) recordMetrics(ctx context.Context, opportunityID, pageURL string, received int) {
	if h.metrics == nil {
		return
	}

	sent, err := h.metrics.DispatchedCount(ctx, opportunityID, pageURL)
	if err != nil {
		h.log.Warn("[A11yRemediationGuidance] Could not read dispatch count",
			"opportunity", opportunityID, "url", pageURL, "error", err)
		return
	}

	metrics := models.ValidationMetrics{Sent: sent, Received: received}
	if err := h.metrics.SaveValidationMetrics(ctx, opportunityID, pageURL, metrics); err != nil {
		h.log.Warn("[A11yRemediationGuidance] Could not persist validation metrics",
			"opportunity", opportunityID, "url", pageURL, "error", err)
	}
}
